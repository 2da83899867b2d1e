package fusion

import (
	"context"
	"fmt"
	"time"

	"github.com/abelbrown/decoder/internal/logging"
	"github.com/abelbrown/decoder/internal/otel"
)

// HistoryProvider supplies the per-user signals dynamic weighting needs.
type HistoryProvider interface {
	// RecentModalityUsage counts recent readings per modality; total is the
	// number of readings counted.
	RecentModalityUsage(ctx context.Context, userID string) (counts map[string]int, total int, err error)
	Sensitivity(ctx context.Context, userID string) (float64, error)
}

// Weight sources reported in Details.WeightSource.
const (
	SourceHistorical = "historical"
	SourceHistory    = "history"
	SourceDefault    = "default"
)

const (
	defaultHistoryTimeout = 2 * time.Second
	highSensitivity       = 0.7
	textSensitivityBoost  = 1.2
)

// Request is one fusion call.
type Request struct {
	Results []ModalityResult
	// Strategy overrides the engine default when set.
	Strategy Strategy
	// UserID enables history-based weights for dynamic_weight.
	UserID string
	// HistoricalWeights, when non-empty, are used by dynamic_weight as is.
	HistoricalWeights Weights
	// RequestID correlates events.
	RequestID string
}

// Engine runs fusion with configured defaults. Safe for concurrent use; it
// holds no per-call state.
type Engine struct {
	weights        Weights
	strategy       Strategy
	history        HistoryProvider
	historyTimeout time.Duration
	events         *otel.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights sets the default weight vector. Invalid vectors fall back to
// DefaultWeights.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w.Normalize(DefaultWeights()) }
}

// WithStrategy sets the strategy used when a request names none.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		if _, ok := ParseStrategy(string(s)); ok {
			e.strategy = s
		}
	}
}

// WithHistory enables history-based dynamic weights.
func WithHistory(h HistoryProvider, timeout time.Duration) Option {
	return func(e *Engine) {
		e.history = h
		if timeout > 0 {
			e.historyTimeout = timeout
		}
	}
}

// WithEvents emits a fusion.complete event per call.
func WithEvents(l *otel.Logger) Option {
	return func(e *Engine) { e.events = l }
}

// NewEngine creates an engine. Defaults: weighted strategy, DefaultWeights,
// no history.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights:        DefaultWeights().Normalize(nil),
		strategy:       StrategyWeighted,
		historyTimeout: defaultHistoryTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns a copy of the default weight vector.
func (e *Engine) Weights() Weights { return e.weights.Clone() }

// Strategy returns the default strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Fuse never fails. Zero readings give an unknown verdict.
func (e *Engine) Fuse(ctx context.Context, req Request) Result {
	start := time.Now()
	strategy := req.Strategy
	if _, ok := ParseStrategy(string(strategy)); !ok {
		if strategy != "" {
			logging.Warn("Unknown fusion strategy, using default", "strategy", strategy, "default", e.strategy)
		}
		strategy = e.strategy
	}

	var res Result
	switch strategy {
	case StrategyNegativePriority:
		res = NegativePriority(req.Results)
	case StrategyVoting:
		res = Voting(req.Results)
	case StrategyDynamicWeight:
		res = e.dynamic(ctx, req)
	default:
		res = Weighted(req.Results, e.weights)
	}

	e.events.Emit(otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindFusionComplete,
		Comp:       "fusion",
		RequestID:  req.RequestID,
		Dur:        time.Since(start),
		Count:      len(res.Sources),
		Emotion:    res.Emotion,
		Confidence: res.Confidence,
		Strategy:   string(res.FusionMethod),
	})
	return res
}

func (e *Engine) dynamic(ctx context.Context, req Request) Result {
	if len(canonical(req.Results)) == 0 {
		return empty(StrategyDynamicWeight)
	}
	w, source := e.dynamicWeights(ctx, req)
	res := Weighted(req.Results, w)
	res.FusionMethod = StrategyDynamicWeight
	res.Details.DynamicWeights = w
	res.Details.WeightSource = source
	return res
}

// dynamicWeights prefers explicit historical weights, then the user's
// history, then the configured defaults. The result is normalized.
func (e *Engine) dynamicWeights(ctx context.Context, req Request) (Weights, string) {
	if len(req.HistoricalWeights) > 0 {
		return req.HistoricalWeights.Normalize(e.weights), SourceHistorical
	}
	if req.UserID == "" || e.history == nil {
		return e.weights.Clone(), SourceDefault
	}

	w, err := e.historyWeights(ctx, req.UserID)
	if err != nil {
		logging.Warn("Fusion history lookup failed, using default weights", "user", req.UserID, "error", err)
		e.events.Emit(otel.Event{
			Level:     otel.LevelWarn,
			Kind:      otel.KindFusionHistory,
			Comp:      "fusion",
			RequestID: req.RequestID,
			Err:       err.Error(),
		})
		return e.weights.Clone(), SourceDefault
	}
	if w == nil {
		return e.weights.Clone(), SourceDefault
	}
	return w.Normalize(e.weights), SourceHistory
}

type historySignal struct {
	counts      map[string]int
	total       int
	sensitivity float64
	sensErr     error
	err         error
}

// historyWeights derives weights from modality usage frequency. Returns nil
// weights when the user has no history.
func (e *Engine) historyWeights(ctx context.Context, userID string) (Weights, error) {
	ctx, cancel := context.WithTimeout(ctx, e.historyTimeout)
	defer cancel()

	done := make(chan historySignal, 1)
	go func() {
		var s historySignal
		s.counts, s.total, s.err = e.history.RecentModalityUsage(ctx, userID)
		if s.err == nil && s.total > 0 {
			s.sensitivity, s.sensErr = e.history.Sensitivity(ctx, userID)
		}
		done <- s
	}()

	var s historySignal
	select {
	case s = <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("history lookup: %w", ctx.Err())
	}
	if s.err != nil {
		return nil, fmt.Errorf("modality usage: %w", s.err)
	}
	if s.total <= 0 {
		return nil, nil
	}

	w := make(Weights, len(Modalities))
	for _, m := range Modalities {
		if n := s.counts[string(m)]; n > 0 {
			w[m] = float64(n) / float64(s.total)
		} else {
			w[m] = e.weights[m]
		}
	}
	if s.sensErr != nil {
		logging.Warn("Fusion sensitivity lookup failed", "user", userID, "error", s.sensErr)
	} else if s.sensitivity > highSensitivity {
		w[ModalityText] *= textSensitivityBoost
	}
	return w, nil
}
