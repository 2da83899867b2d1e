package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/abelbrown/decoder/internal/fusion"
	"github.com/abelbrown/decoder/internal/modality"
)

func runFuse() {
	fs := flag.NewFlagSet("fuse", flag.ExitOnError)
	strategy := fs.String("strategy", "", "weighted | negative_priority | dynamic_weight | voting (default from config)")
	user := fs.String("user", "", "User ID for history-based dynamic weights")
	weights := fs.String("weights", "", "Historical weights for dynamic_weight, e.g. text=0.6,voice=0.3,face=0.1")
	rawJSON := fs.Bool("json", false, "Output JSON")
	verbose := fs.Bool("v", false, "Log to stderr")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: decoder fuse [flags] modality:emotion:confidence[:intensity] ...")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	readings := make([]fusion.ModalityResult, 0, fs.NArg())
	for _, arg := range fs.Args() {
		r, err := parseReading(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
		readings = append(readings, r)
	}
	hist, err := parseWeights(*weights)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	a := openApp(ctx, *verbose)
	defer a.Close()

	res := a.Fusion.Fuse(ctx, fusion.Request{
		Results:           readings,
		Strategy:          fusion.Strategy(*strategy),
		UserID:            *user,
		HistoricalWeights: hist,
	})
	if *rawJSON {
		printJSON(res)
		return
	}
	printFusion(res)
}

func printFusion(res fusion.Result) {
	fmt.Printf("%s  confidence=%.2f intensity=%.2f  (%s)\n", res.Emotion, res.Confidence, res.Intensity, res.FusionMethod)
	if len(res.WeightsUsed) > 0 {
		parts := make([]string, 0, len(fusion.Modalities))
		for _, m := range fusion.Modalities {
			if w, ok := res.WeightsUsed[m]; ok {
				parts = append(parts, fmt.Sprintf("%s=%.2f", m, w))
			}
		}
		fmt.Printf("weights: %s\n", strings.Join(parts, " "))
	}
	if src := res.Details.WeightSource; src != "" {
		fmt.Printf("weight source: %s\n", src)
	}
}

// parseReading parses modality:emotion:confidence[:intensity].
func parseReading(s string) (fusion.ModalityResult, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return fusion.ModalityResult{}, fmt.Errorf("reading %q: want modality:emotion:confidence[:intensity]", s)
	}
	m := fusion.Modality(strings.ToLower(parts[0]))
	if !m.Valid() {
		return fusion.ModalityResult{}, fmt.Errorf("reading %q: unknown modality %q", s, parts[0])
	}
	conf, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return fusion.ModalityResult{}, fmt.Errorf("reading %q: confidence: %w", s, err)
	}
	r := fusion.ModalityResult{Modality: m, Emotion: parts[1], Confidence: conf}
	if len(parts) == 4 {
		if r.Intensity, err = strconv.ParseFloat(parts[3], 64); err != nil {
			return fusion.ModalityResult{}, fmt.Errorf("reading %q: intensity: %w", s, err)
		}
	}
	return r, nil
}

// parseWeights parses text=0.6,voice=0.3. Empty input gives nil.
func parseWeights(s string) (fusion.Weights, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	w := fusion.Weights{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("weight %q: want modality=value", pair)
		}
		m := fusion.Modality(strings.ToLower(k))
		if !m.Valid() {
			return nil, fmt.Errorf("weight %q: unknown modality %q", pair, k)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", pair, err)
		}
		w[m] = f
	}
	return w, nil
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	text := fs.String("text", "", "Text input")
	user := fs.String("user", "", "User ID (enables history and trend tracking)")
	strategy := fs.String("strategy", "", "Fusion strategy (default from config)")

	var voice modality.VoiceFeatures
	fs.Float64Var(&voice.PitchHz, "pitch", 0, "Voice: mean pitch in Hz")
	fs.Float64Var(&voice.PitchVariance, "pitch-var", 0, "Voice: pitch variance 0..1")
	fs.Float64Var(&voice.Energy, "energy", 0, "Voice: energy 0..1")
	fs.Float64Var(&voice.SpeakingRate, "rate", 0, "Voice: syllables per second")

	var face modality.FaceFeatures
	fs.Float64Var(&face.Smile, "smile", 0, "Face: smile 0..1")
	fs.Float64Var(&face.BrowRaise, "brow", 0, "Face: brow raise 0..1")
	fs.Float64Var(&face.EyeOpenness, "eyes", 0, "Face: eye openness 0..1")
	fs.Float64Var(&face.Frown, "frown", 0, "Face: frown 0..1")
	fs.Float64Var(&face.MouthOpen, "mouth", 0, "Face: mouth open 0..1")

	rawJSON := fs.Bool("json", false, "Output JSON")
	verbose := fs.Bool("v", false, "Log to stderr")
	fs.Parse(os.Args[1:])

	in := modality.Input{UserID: *user, Text: *text, Strategy: fusion.Strategy(*strategy)}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pitch", "pitch-var", "energy", "rate":
			in.Voice = &voice
		case "smile", "brow", "eyes", "frown", "mouth":
			in.Face = &face
		}
	})

	ctx := context.Background()
	a := openApp(ctx, *verbose)
	defer a.Close()

	out := a.Realtime.Analyze(ctx, in)
	if *rawJSON {
		printJSON(out)
		return
	}
	for _, r := range out.Readings {
		fmt.Printf("  %-5s %-9s %.2f\n", r.Modality, r.Emotion, r.Confidence)
	}
	printFusion(out.Fused)
	if out.Trend != "" {
		fmt.Printf("trend: %s\n", out.Trend)
	}
}
