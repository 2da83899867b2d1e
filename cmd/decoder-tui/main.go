// Command decoder-tui is the interactive decoder.
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	clog "github.com/charmbracelet/log"

	"github.com/abelbrown/decoder/internal/app"
	"github.com/abelbrown/decoder/internal/config"
	"github.com/abelbrown/decoder/internal/decode"
	"github.com/abelbrown/decoder/internal/logging"
	"github.com/abelbrown/decoder/internal/otel"
	"github.com/abelbrown/decoder/internal/store"
	"github.com/abelbrown/decoder/internal/ui"
)

const historyLimit = 200

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	keysPath := filepath.Join(config.DataDir(), "keys.sh")
	if _, err := os.Stat(keysPath); err == nil {
		if err := cfg.LoadKeysFromFile(keysPath); err != nil {
			log.Printf("Warning: failed to read %s: %v", keysPath, err)
		}
		cfg.AutoPopulateFromEnv()
	}

	// The TUI owns the terminal, so logs only go to the file.
	if err := logging.Init(cfg.Paths.Logs); err != nil {
		logging.SetOutput(os.Stderr, clog.ErrorLevel)
	}
	defer logging.Close()

	ring := otel.NewRingBuffer(512)
	a := app.New(ctx, cfg, app.Options{Ring: ring})
	defer a.Close()

	uiCfg := ui.AppConfig{
		Decode: func(text string, useAI bool) tea.Cmd {
			return func() tea.Msg {
				return ui.DecodeDone{Result: a.Decoder.Decode(ctx, decode.Request{Text: text, UseAI: useAI})}
			}
		},
		ReloadLexicon: func() tea.Cmd {
			return func() tea.Msg { return ui.LexiconReloaded{Err: a.ReloadLexicon()} }
		},
		Ring:        ring,
		Events:      a.Events,
		Trace:       otel.TraceEnabled(),
		AIAvailable: a.Model != nil,
		UseAI:       a.UseAI(),
	}
	if a.Store != nil {
		uiCfg.LoadHistory = func() tea.Cmd {
			return func() tea.Msg {
				logs, err := a.Store.RecentDecodes(ctx, historyLimit)
				return ui.HistoryLoaded{Logs: logs, Err: err}
			}
		}
		uiCfg.SaveFeedback = func(id string, kind store.FeedbackKind) tea.Cmd {
			return func() tea.Msg {
				return ui.FeedbackSaved{ID: id, Kind: kind, Err: a.Store.SaveFeedback(ctx, id, kind, "")}
			}
		}
	}

	program := tea.NewProgram(ui.NewApp(uiCfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		logging.Error("TUI exited with error", "error", err)
	}
}
