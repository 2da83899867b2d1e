// Command decoder is the CLI for the social signal decoder.
//
// Usage:
//
//	decoder                        Show help
//	decoder decode <text>          Three-tier decode with risk and advice
//	decoder batch [file]           Decode one text per line
//	decoder scene <text>           Quick three-layer scene classification
//	decoder fuse <readings...>     Fuse modality readings
//	decoder analyze                Real-time multimodal analysis
//	decoder profile                Show or update a user profile
//	decoder feedback <id> <kind>   Record feedback on a decode
//	decoder history                Recent decodes and feedback totals
//	decoder events                 JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `decoder - social signal decoder CLI

Usage:
  decoder <command> [flags]

Commands:
  decode      Three-tier decode of one text (tier 1 + tier 2 + optional AI refinement)
  batch       Decode one text per line from a file or stdin
  scene       Quick three-layer scene classification
  fuse        Fuse modality readings, e.g. text:sad:0.8 voice:neutral:0.5
  analyze     Real-time analysis from text, voice and face features
  profile     Show or update a user's emotion profile
  feedback    Record feedback on a stored decode
  history     Recent decodes and feedback totals
  events      JSONL event log viewer

Environment:
  OPENAI_API_KEY                 Enables OpenAI refinement
  OLLAMA_HOST                    Ollama endpoint (used when no OpenAI key)
  DECODER_MODEL                  Model override
  EMOTION_FUSION_STRATEGY        weighted | negative_priority | dynamic_weight | voting
  EMOTION_FUSION_WEIGHT_TEXT     Default text weight (also _VOICE, _FACE)

Config: ~/.decoder/config.json
Run 'decoder <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "decode":
		runDecode()
	case "batch":
		runBatch()
	case "scene":
		runScene()
	case "fuse":
		runFuse()
	case "analyze":
		runAnalyze()
	case "profile":
		runProfile()
	case "feedback":
		runFeedback()
	case "history":
		runHistory()
	case "events":
		runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "decoder: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
