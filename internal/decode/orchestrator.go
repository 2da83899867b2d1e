// Package decode runs the three-tier classification cascade over one text
// and merges it with risk detection and template advice.
package decode

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/decoder/internal/classify"
	"github.com/abelbrown/decoder/internal/lexicon"
	"github.com/abelbrown/decoder/internal/logging"
	"github.com/abelbrown/decoder/internal/otel"
	"github.com/abelbrown/decoder/internal/refine"
	"github.com/abelbrown/decoder/internal/risk"
	"github.com/abelbrown/decoder/internal/store"
	"github.com/abelbrown/decoder/internal/template"
)

// Request is one decode call.
type Request struct {
	Text   string `json:"text"`
	UseAI  bool   `json:"use_ai"`
	UserID string `json:"user_id,omitempty"`
}

// StageStatus records how a collaborator stage ended.
type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageEmpty   StageStatus = "empty"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// Trace is the per-tier reasoning chain.
type Trace struct {
	Level1 classify.Result          `json:"level1_behavior"`
	Level2 classify.DirectionResult `json:"level2_emotion"`
	Level3 refine.Result            `json:"level3_refinement"`
}

// Stages reports the outcome of each fallible stage.
type Stages struct {
	Refinement refine.Status `json:"refinement"`
	Suggestion StageStatus   `json:"suggestion"`
	Log        StageStatus   `json:"log"`
}

// Result is the full decode payload.
type Result struct {
	ID          string              `json:"id"`
	Text        string              `json:"text"`
	Trace       Trace               `json:"classification_trace"`
	FinalScene  string              `json:"final_scene"`
	Confidence  float64             `json:"confidence"`
	Risk        risk.Analysis       `json:"risk_analysis"`
	Suggestion  template.Suggestion `json:"suggestion"`
	Analysis    Analysis            `json:"analysis"`
	Explanation string              `json:"explanation"`
	Stages      Stages              `json:"stages"`
}

// DecodeLogger persists decode results.
type DecodeLogger interface {
	SaveDecode(ctx context.Context, l store.DecodeLog) (string, error)
}

// Orchestrator sequences the tiers. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	lex           *lexicon.Cache
	behavior      *classify.Behavior
	direction     *classify.DirectionClassifier
	refiner       refine.Refiner  // optional: nil means tier 3 is unavailable
	refineTimeout time.Duration
	risk          risk.Detector
	templates     template.Store // optional: nil means keywords only and no suggestions
	threshold     float64
	log           DecodeLogger   // optional: nil disables persistence
	events        *otel.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRefiner enables tier 3. timeout bounds each refinement; zero means
// refine.DefaultTimeout.
func WithRefiner(r refine.Refiner, timeout time.Duration) Option {
	return func(o *Orchestrator) {
		o.refiner = r
		o.refineTimeout = timeout
	}
}

// WithRisk replaces the default word-list risk detector.
func WithRisk(d risk.Detector) Option {
	return func(o *Orchestrator) {
		if d != nil {
			o.risk = d
		}
	}
}

// WithTemplates sets the tier-1 pattern and suggestion source.
func WithTemplates(s template.Store) Option {
	return func(o *Orchestrator) { o.templates = s }
}

// WithThreshold sets the tier-1 confidence threshold.
func WithThreshold(t float64) Option {
	return func(o *Orchestrator) { o.threshold = t }
}

// WithDecodeLog persists every decode.
func WithDecodeLog(l DecodeLogger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithEvents emits decode events.
func WithEvents(l *otel.Logger) Option {
	return func(o *Orchestrator) { o.events = l }
}

// NewOrchestrator builds tier 1 and tier 2 over lex. Risk detection
// defaults to the built-in word lists without profiles or AI.
func NewOrchestrator(lex *lexicon.Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		lex:           lex,
		refineTimeout: refine.DefaultTimeout,
		risk:          risk.NewService(risk.DefaultWords(), nil, nil),
	}
	for _, opt := range opts {
		opt(o)
	}
	var copts []classify.Option
	if o.threshold > 0 {
		copts = append(copts, classify.WithThreshold(o.threshold))
	}
	o.behavior = classify.NewBehavior(lex, o.templates, copts...)
	o.direction = classify.NewDirection(lex)
	return o
}

// Decode never fails. Collaborator failures show up as stage statuses and
// fallback values.
func (o *Orchestrator) Decode(ctx context.Context, req Request) Result {
	start := time.Now()
	id := uuid.NewString()
	ev := o.events.For("decode", id)
	ev.Emit(otel.Event{
		Level: otel.LevelDebug,
		Kind:  otel.KindDecodeStart,
		Count: len([]rune(req.Text)),
	})

	// Tier 1 and tier 2 share no data.
	var (
		tier1 classify.Result
		tier2 classify.DirectionResult
		g     errgroup.Group
	)
	g.Go(func() error {
		tier1 = o.behavior.Classify(ctx, req.Text)
		return nil
	})
	g.Go(func() error {
		tier2 = o.direction.Classify(req.Text)
		return nil
	})
	_ = g.Wait() // classifiers never fail

	tier3 := o.refine(ctx, o.events.For("refine", id), req, tier1, tier2)

	res := Result{
		ID:         id,
		Text:       req.Text,
		Trace:      Trace{Level1: tier1, Level2: tier2, Level3: tier3},
		FinalScene: tier3.FinalScene,
		Confidence: tier3.Confidence,
		Risk:       o.risk.Detect(ctx, req.Text, req.UseAI, req.UserID),
		Analysis:   Analyze(req.Text, o.lex.Load().StopWords, tier2.Sentiment),
		Stages:     Stages{Refinement: tier3.Status},
	}
	if res.Risk.RiskLevel != risk.Low {
		ev.Emit(otel.Event{
			Level:  otel.LevelWarn,
			Kind:   otel.KindRiskDetected,
			Status: string(res.Risk.RiskLevel),
			Count:  len(res.Risk.Reasons),
		})
	}
	res.Suggestion, res.Stages.Suggestion = o.suggest(ctx, res.FinalScene, req.Text)
	res.Explanation = Explain(res.Trace)
	res.Stages.Log = o.persist(ctx, ev, req.UserID, res)

	ev.Emit(otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindDecodeComplete,
		Dur:        time.Since(start),
		Scene:      res.FinalScene,
		Emotion:    tier2.EmotionType,
		Confidence: res.Confidence,
		Status:     string(tier3.Status),
	})
	return res
}

func (o *Orchestrator) refine(ctx context.Context, scope otel.Scope, req Request, tier1 classify.Result, tier2 classify.DirectionResult) refine.Result {
	if !req.UseAI {
		return refine.Fallback(tier1, refine.StatusDisabled, refine.ReasonDisabled)
	}

	start := time.Now()
	res := refine.Run(ctx, o.refiner, req.Text, tier1, tier2, o.refineTimeout)
	ev := otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindRefineComplete,
		Dur:        time.Since(start),
		Scene:      res.FinalScene,
		Confidence: res.Confidence,
		Status:     string(res.Status),
		Msg:        res.Provider,
	}
	if res.Status != refine.StatusRefined {
		ev.Level = otel.LevelWarn
		ev.Kind = otel.KindDecodeFallback
		ev.Msg = res.Reason
	}
	scope.Emit(ev)
	return res
}

// suggest looks up advice for the final scene. A missing template is not
// an error.
func (o *Orchestrator) suggest(ctx context.Context, scene, text string) (template.Suggestion, StageStatus) {
	empty := template.Suggestion{Suggestions: []string{}, DoNot: []string{}}
	if o.templates == nil {
		return empty, StageSkipped
	}
	s, err := o.templates.Suggestion(ctx, scene, text)
	switch {
	case errors.Is(err, template.ErrNotFound):
		return empty, StageEmpty
	case err != nil:
		logging.Warn("Suggestion lookup failed", "scene", scene, "error", err)
		return empty, StageFailed
	}
	if s.Suggestions == nil {
		s.Suggestions = []string{}
	}
	if s.DoNot == nil {
		s.DoNot = []string{}
	}
	return s, StageOK
}

func (o *Orchestrator) persist(ctx context.Context, ev otel.Scope, userID string, res Result) StageStatus {
	if o.log == nil {
		return StageSkipped
	}
	payload, err := json.Marshal(res)
	if err == nil {
		_, err = o.log.SaveDecode(ctx, store.DecodeLog{
			ID:         res.ID,
			UserID:     userID,
			Text:       res.Text,
			FinalScene: res.FinalScene,
			Confidence: res.Confidence,
			RiskLevel:  string(res.Risk.RiskLevel),
			Result:     payload,
		})
	}
	if err != nil {
		logging.Warn("Failed to save decode", "id", res.ID, "error", err)
		ev.Emit(otel.Event{
			Level: otel.LevelError,
			Kind:  otel.KindStoreError,
			Err:   err.Error(),
		})
		return StageFailed
	}
	return StageOK
}
