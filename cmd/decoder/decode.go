package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/decoder/internal/decode"
	"github.com/abelbrown/decoder/internal/risk"
)

func runDecode() {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	ai := fs.Bool("ai", false, "Request AI refinement (default from config)")
	noAI := fs.Bool("no-ai", false, "Never use AI refinement")
	user := fs.String("user", "", "User ID for profile-aware risk detection")
	rawJSON := fs.Bool("json", false, "Output the full result as JSON")
	verbose := fs.Bool("v", false, "Log to stderr")
	fs.Parse(os.Args[1:])
	text := textArg(fs.Args(), "decode")

	ctx := context.Background()
	a := openApp(ctx, *verbose)
	defer a.Close()

	useAI := (*ai || a.UseAI()) && !*noAI
	res := a.Decoder.Decode(ctx, decode.Request{Text: text, UseAI: useAI, UserID: *user})

	if *rawJSON {
		printJSON(res)
		return
	}
	printDecode(res)
}

// printDecode renders a result for humans.
func printDecode(res decode.Result) {
	fmt.Println(res.Explanation)
	fmt.Println()
	fmt.Printf("场景:     %s (%.2f)\n", res.FinalScene, res.Confidence)
	fmt.Printf("风险:     %s\n", res.Risk.RiskLevel)
	for _, r := range res.Risk.Reasons {
		fmt.Printf("  - %s\n", r)
	}
	if res.Risk.RiskLevel != risk.Low {
		for _, s := range res.Risk.Suggestions {
			fmt.Printf("  > %s\n", s)
		}
	}

	if s := res.Suggestion; len(s.Suggestions) > 0 || len(s.DoNot) > 0 {
		fmt.Println()
		if s.Explanation != "" {
			fmt.Printf("解读:     %s\n", s.Explanation)
		}
		for _, step := range s.Suggestions {
			fmt.Printf("  ✓ %s\n", step)
		}
		for _, dont := range s.DoNot {
			fmt.Printf("  ✗ %s\n", dont)
		}
	}

	if len(res.Analysis.Keywords) > 0 {
		words := make([]string, len(res.Analysis.Keywords))
		for i, k := range res.Analysis.Keywords {
			words[i] = k.Word
		}
		fmt.Printf("\n关键词:   %s\n", strings.Join(words, ", "))
	}
	fmt.Printf("\nid=%s refine=%s suggestion=%s log=%s\n",
		res.ID, res.Stages.Refinement, res.Stages.Suggestion, res.Stages.Log)
}

func runBatch() {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	concurrency := fs.Int("c", 0, "Parallel decodes (default from config)")
	ai := fs.Bool("ai", false, "Request AI refinement")
	user := fs.String("user", "", "User ID applied to every line")
	rawJSON := fs.Bool("json", false, "Output one JSON result per line")
	verbose := fs.Bool("v", false, "Log to stderr")
	fs.Parse(os.Args[1:])

	var in io.Reader = os.Stdin
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			log.Fatalf("failed to open input: %v", err)
		}
		defer f.Close()
		in = f
	}
	texts, err := readLines(in)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}
	if len(texts) == 0 {
		fmt.Fprintln(os.Stderr, "no input lines")
		return
	}

	ctx := context.Background()
	a := openApp(ctx, *verbose)
	defer a.Close()

	n := *concurrency
	if n <= 0 {
		n = a.Config.Classifier.BatchConcurrency
	}
	reqs := make([]decode.Request, len(texts))
	for i, t := range texts {
		reqs[i] = decode.Request{Text: t, UseAI: *ai || a.UseAI(), UserID: *user}
	}

	start := time.Now()
	results := a.Decoder.Batch(ctx, reqs, n)

	if *rawJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				log.Fatalf("failed to encode output: %v", err)
			}
		}
		return
	}

	levels := map[risk.Level]int{}
	for i, r := range results {
		levels[r.Risk.RiskLevel]++
		fmt.Printf("%4d  %-6s %.2f  %-6s  %s\n", i+1, r.FinalScene, r.Confidence, r.Risk.RiskLevel, truncate(r.Text, 40))
	}
	fmt.Printf("\n%d decoded in %s  (risk: %d high, %d medium, %d low)\n",
		len(results), time.Since(start).Round(time.Millisecond),
		levels[risk.High], levels[risk.Medium], levels[risk.Low])
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func runScene() {
	fs := flag.NewFlagSet("scene", flag.ExitOnError)
	ai := fs.Bool("ai", false, "Allow the semantic layer")
	rawJSON := fs.Bool("json", false, "Output JSON")
	verbose := fs.Bool("v", false, "Log to stderr")
	fs.Parse(os.Args[1:])
	text := textArg(fs.Args(), "scene")

	ctx := context.Background()
	a := openApp(ctx, *verbose)
	defer a.Close()

	res := a.Scene.Classify(ctx, text, *ai || a.UseAI())
	if *rawJSON {
		printJSON(res)
		return
	}
	fmt.Printf("%s (%.2f) via %s\n", res.Category, res.Confidence, res.Method)
	if len(res.MatchedKeywords) > 0 {
		fmt.Printf("keywords: %s\n", strings.Join(res.MatchedKeywords, ", "))
	}
	if res.Explanation != "" {
		fmt.Println(res.Explanation)
	}
}
