// Package app wires the decoder's services from configuration. Commands
// build one App and share it.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/decoder/internal/classify"
	"github.com/abelbrown/decoder/internal/config"
	"github.com/abelbrown/decoder/internal/decode"
	"github.com/abelbrown/decoder/internal/fusion"
	"github.com/abelbrown/decoder/internal/lexicon"
	"github.com/abelbrown/decoder/internal/logging"
	"github.com/abelbrown/decoder/internal/modality"
	"github.com/abelbrown/decoder/internal/otel"
	"github.com/abelbrown/decoder/internal/refine"
	"github.com/abelbrown/decoder/internal/risk"
	"github.com/abelbrown/decoder/internal/store"
	"github.com/abelbrown/decoder/internal/template"
)

// App holds every long-lived service. Fields are set once by New and never
// reassigned.
type App struct {
	Config    *config.Config
	Store     *store.Store // nil when the database could not be opened
	Lexicon   *lexicon.Cache
	Templates template.Store
	Model     *refine.Model // nil when AI is disabled or no backend is configured
	Risk      *risk.Service
	Scene     *classify.SceneClassifier
	Decoder   *decode.Orchestrator
	Fusion    *fusion.Engine
	Realtime  *modality.Realtime
	Events    *otel.Logger

	eventFile *os.File
}

// Options adjusts New for commands and tests.
type Options struct {
	// EventWriter overrides the event log file. nil means cfg.Paths.Events.
	EventWriter io.Writer
	// Ring receives a copy of every event for live inspection.
	Ring *otel.RingBuffer
	// NoStore skips the database entirely.
	NoStore bool
}

// New builds the services. A database that fails to open is logged and the
// app continues without persistence.
func New(ctx context.Context, cfg *config.Config, opts Options) *App {
	a := &App{Config: cfg}

	a.Events = a.openEvents(opts)
	a.Events.SetRingBuffer(opts.Ring)

	if !opts.NoStore {
		if err := os.MkdirAll(filepath.Dir(cfg.Paths.Database), 0755); err != nil {
			logging.Warn("Failed to create data directory", "error", err)
		}
		st, err := store.Open(cfg.Paths.Database)
		if err != nil {
			// Continue without persistence
			logging.Warn("Database unavailable, continuing without persistence", "path", cfg.Paths.Database, "error", err)
			a.Events.Fail(otel.KindStoreError, "app", err)
		} else {
			a.Store = st
		}
	}

	a.Lexicon = lexicon.NewFileCache(cfg.Paths.Lexicon)
	if cfg.Paths.Templates != "" {
		a.Templates = template.NewDir(cfg.Paths.Templates)
	} else {
		a.Templates = template.Defaults()
	}

	a.Model = newModel(ctx, cfg, a.Lexicon)

	// Interfaces stay nil unless the concrete value exists.
	var (
		profiles  risk.ProfileProvider
		assessor  risk.Assessor
		semantic  classify.SemanticClassifier
		refiner   refine.Refiner
		history   fusion.HistoryProvider
		recorder  modality.Recorder
		profStore modality.ProfileStore
		decodeLog decode.DecodeLogger
	)
	if a.Store != nil {
		profiles, history, recorder, profStore, decodeLog = a.Store, a.Store, a.Store, a.Store, a.Store
	}
	if a.Model != nil {
		assessor, semantic, refiner = a.Model, a.Model, a.Model
	}

	a.Risk = risk.NewService(cfg.RiskWords(), profiles, assessor)
	a.Risk.SetAITimeout(time.Duration(cfg.Risk.AITimeoutSeconds) * time.Second)
	a.Risk.SetProfileTimeout(cfg.HistoryTimeout())

	a.Scene = classify.NewScene(a.Lexicon, semantic,
		classify.WithThreshold(cfg.Classifier.ConfidenceThreshold),
		classify.WithSemanticTimeout(cfg.RefineTimeout()))

	a.Decoder = decode.NewOrchestrator(a.Lexicon,
		decode.WithTemplates(a.Templates),
		decode.WithThreshold(cfg.Classifier.ConfidenceThreshold),
		decode.WithRefiner(refiner, cfg.RefineTimeout()),
		decode.WithRisk(a.Risk),
		decode.WithDecodeLog(decodeLog),
		decode.WithEvents(a.Events),
	)

	a.Fusion = fusion.NewEngine(
		fusion.WithWeights(cfg.FusionWeights()),
		fusion.WithStrategy(cfg.FusionStrategy()),
		fusion.WithHistory(history, cfg.HistoryTimeout()),
		fusion.WithEvents(a.Events),
	)
	a.Realtime = modality.NewRealtime(classify.NewDirection(a.Lexicon), a.Fusion, recorder, profStore)

	a.Events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindStartup,
		Comp:  "app",
		Msg:   providerName(a.Model),
		Extra: map[string]any{"store": a.Store != nil, "strategy": string(cfg.FusionStrategy())},
	})
	return a
}

// newModel returns nil unless AI is enabled and a backend is configured.
func newModel(ctx context.Context, cfg *config.Config, lex *lexicon.Cache) *refine.Model {
	if !cfg.AI.Enabled {
		return nil
	}
	var b refine.Backend
	if cfg.AI.Provider == "" && cfg.AI.APIKey == "" {
		b = refine.NewBackend(ctx)
	} else {
		b = refine.NewBackendWithConfig(cfg.AI.Provider, cfg.AI.Endpoint, cfg.AI.Model, cfg.AI.APIKey)
	}
	if b == nil {
		logging.Warn("AI enabled but no backend configured", "provider", cfg.AI.Provider)
		return nil
	}

	scenes := make([]string, 0, len(lex.Load().Scenes))
	for _, c := range lex.Load().Scenes {
		scenes = append(scenes, c.Name)
	}
	return refine.NewModel(b, scenes)
}

func (a *App) openEvents(opts Options) *otel.Logger {
	if opts.EventWriter != nil {
		return otel.NewLogger(opts.EventWriter)
	}
	path := a.Config.Paths.Events
	if path == "" {
		return otel.NewNullLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logging.Warn("Failed to create event log directory", "error", err)
		return otel.NewNullLogger()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logging.Warn("Failed to open event log", "path", path, "error", err)
		return otel.NewNullLogger()
	}
	a.eventFile = f
	return otel.NewLogger(f)
}

// ReloadLexicon re-reads the lexicon file. The current tables stay in
// place on failure.
func (a *App) ReloadLexicon() error {
	start := time.Now()
	if err := a.Lexicon.Refresh(); err != nil {
		a.Events.Fail(otel.KindError, "lexicon", err)
		return fmt.Errorf("reload lexicon: %w", err)
	}
	t := a.Lexicon.Load()
	a.Events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindLexiconRefresh,
		Comp:  "lexicon",
		Dur:   time.Since(start),
		Count: len(t.Scenes) + len(t.Emotions),
	})
	return nil
}

// UseAI reports whether decodes should request tier 3 by default.
func (a *App) UseAI() bool {
	return a.Config.Classifier.UseAIRefinement && a.Model != nil
}

// Close flushes events and closes the database.
func (a *App) Close() {
	a.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "app"})
	a.Events.Close()
	if a.eventFile != nil {
		a.eventFile.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			logging.Warn("Failed to close database", "error", err)
		}
	}
}

func providerName(m *refine.Model) string {
	if m == nil {
		return "no model"
	}
	return m.Provider()
}
