package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	clog "github.com/charmbracelet/log"

	"github.com/abelbrown/decoder/internal/app"
	"github.com/abelbrown/decoder/internal/config"
	"github.com/abelbrown/decoder/internal/logging"
)

// loadConfig reads ~/.decoder/config.json, then keys.sh if present, then
// the environment.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	keysPath := filepath.Join(config.DataDir(), "keys.sh")
	if _, err := os.Stat(keysPath); err == nil {
		if err := cfg.LoadKeysFromFile(keysPath); err != nil {
			log.Printf("warning: failed to read %s: %v", keysPath, err)
		}
		cfg.AutoPopulateFromEnv()
	}
	return cfg
}

// openApp loads config, starts logging and wires the services. verbose
// mirrors the log to stderr instead of the log file.
func openApp(ctx context.Context, verbose bool) *app.App {
	cfg := loadConfig()
	if verbose {
		logging.SetOutput(os.Stderr, clog.DebugLevel)
	} else if err := logging.Init(cfg.Paths.Logs); err != nil {
		logging.SetOutput(os.Stderr, clog.WarnLevel)
		logging.Warn("File logging unavailable", "error", err)
	}
	return app.New(ctx, cfg, app.Options{})
}

// requireStore exits when the database is unavailable.
func requireStore(a *app.App) {
	if a.Store == nil {
		fmt.Fprintln(os.Stderr, "error: database unavailable")
		fmt.Fprintf(os.Stderr, "  check %s and the log under %s\n", a.Config.Paths.Database, a.Config.Paths.Logs)
		a.Close()
		os.Exit(1)
	}
}

// textArg joins positional args, or fatals when there are none.
func textArg(args []string, cmd string) string {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		fmt.Fprintf(os.Stderr, "usage: decoder %s [flags] <text>\n", cmd)
		os.Exit(2)
	}
	return text
}

// printJSON writes v as indented JSON.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Fatalf("failed to encode output: %v", err)
	}
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
