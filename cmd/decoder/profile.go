package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/abelbrown/decoder/internal/risk"
	"github.com/abelbrown/decoder/internal/store"
)

func runProfile() {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	user := fs.String("user", "", "User ID (required)")
	triggers := fs.String("triggers", "", "Comma-separated trigger words to set")
	sensitivity := fs.Float64("sensitivity", -1, "Sensitivity 0..1 to set")
	threshold := fs.Float64("threshold", -1, "Risk threshold 0..1 to set")
	rawJSON := fs.Bool("json", false, "Output JSON")
	fs.Parse(os.Args[1:])

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: decoder profile -user <id> [-triggers a,b] [-sensitivity x] [-threshold x]")
		os.Exit(2)
	}

	ctx := context.Background()
	a := openApp(ctx, false)
	defer a.Close()
	requireStore(a)

	p, err := a.Store.Profile(ctx, *user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	changed := false
	if *triggers != "" {
		p.TriggerWords = splitList(*triggers)
		changed = true
	}
	if *sensitivity >= 0 {
		p.Sensitivity = min(1, *sensitivity)
		changed = true
	}
	if *threshold >= 0 {
		p.RiskThreshold = min(1, *threshold)
		changed = true
	}
	if changed {
		if err := a.Store.SaveProfile(ctx, p); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	if *rawJSON {
		printJSON(p)
		return
	}
	printProfile(p)
}

func printProfile(p risk.Profile) {
	fmt.Printf("User:           %s\n", p.UserID)
	fmt.Printf("Trigger words:  %s\n", strings.Join(p.TriggerWords, ", "))
	fmt.Printf("Sensitivity:    %.2f\n", p.Sensitivity)
	fmt.Printf("Risk threshold: %.2f\n", p.RiskThreshold)
	fmt.Printf("Recent trend:   %s\n", p.RecentTrend)
}

func splitList(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func runFeedback() {
	fs := flag.NewFlagSet("feedback", flag.ExitOnError)
	comment := fs.String("m", "", "Optional comment")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: decoder feedback [-m comment] <decode-id> <correct|incorrect|helpful|not_helpful>")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])
	if fs.NArg() != 2 {
		fs.Usage()
		os.Exit(2)
	}
	kind := store.FeedbackKind(fs.Arg(1))
	if !kind.Valid() {
		fmt.Fprintf(os.Stderr, "error: unknown feedback kind %q\n", fs.Arg(1))
		os.Exit(2)
	}

	ctx := context.Background()
	a := openApp(ctx, false)
	defer a.Close()
	requireStore(a)

	if err := a.Store.SaveFeedback(ctx, fs.Arg(0), kind, *comment); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("recorded %s for %s\n", kind, fs.Arg(0))
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("n", 20, "Number of recent decodes")
	fs.Parse(os.Args[1:])

	ctx := context.Background()
	a := openApp(ctx, false)
	defer a.Close()
	requireStore(a)

	logs, err := a.Store.RecentDecodes(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Recent decodes (%d):\n", len(logs))
	for _, l := range logs {
		fmt.Printf("  %s  %s  %-6s %.2f  %-6s  %s\n",
			l.CreatedAt.Format("01-02 15:04"), shortID(l.ID), l.FinalScene, l.Confidence, l.RiskLevel, truncate(l.Text, 36))
	}

	counts, err := a.Store.FeedbackCounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nFeedback:")
	for _, k := range []store.FeedbackKind{store.FeedbackCorrect, store.FeedbackIncorrect, store.FeedbackHelpful, store.FeedbackNotHelpful} {
		fmt.Printf("  %-12s %d\n", k, counts[k])
	}
	if total := counts[store.FeedbackCorrect] + counts[store.FeedbackIncorrect]; total > 0 {
		fmt.Printf("\nAccuracy:       %.1f%%\n", float64(counts[store.FeedbackCorrect])/float64(total)*100)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
