// Package refine is the third decoding tier: a language model looks at the
// text together with the first two tiers' verdicts and may correct the
// scene. Every failure mode degrades to the tier-1 result with a status that
// says what happened.
package refine

import (
	"context"
	"errors"
	"time"

	"github.com/abelbrown/decoder/internal/classify"
	"github.com/abelbrown/decoder/internal/logging"
	"gonum.org/v1/gonum/floats/scalar"
)

// ErrUnavailable means no model backend can be reached.
var ErrUnavailable = errors.New("refiner unavailable")

// DefaultTimeout bounds a refinement when the caller gives none.
const DefaultTimeout = 10 * time.Second

// Status records how tier 3 ended.
type Status string

const (
	StatusRefined     Status = "refined"
	StatusDisabled    Status = "disabled"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
	StatusTimeout     Status = "timeout"
)

// Fallback reasons, one per non-refined status.
const (
	ReasonDisabled    = "AI未启用，使用一级分类结果"
	ReasonUnavailable = "AI服务不可用，使用一级分类结果"
	ReasonFailed      = "AI精炼失败，使用一级分类结果"
	ReasonTimeout     = "AI精炼超时，使用一级分类结果"
)

// Refinements describes what tier 3 changed relative to tier 1.
type Refinements struct {
	CategoryChanged  bool    `json:"category_changed"`
	OriginalCategory string  `json:"original_category"`
	FinalCategory    string  `json:"final_category"`
	ConfidenceBoost  float64 `json:"confidence_boost"`
}

// Result is the tier-3 verdict. FinalScene equals the tier-1 category
// unless Refinements.CategoryChanged is set.
type Result struct {
	FinalScene  string      `json:"final_scene"`
	Confidence  float64     `json:"confidence"`
	Reason      string      `json:"reason"`
	Refinements Refinements `json:"refinements"`
	Status      Status      `json:"status"`
	Provider    string      `json:"provider,omitempty"`
}

// Refiner asks a model to confirm or correct the tier-1 scene.
type Refiner interface {
	Refine(ctx context.Context, text string, tier1 classify.Result, tier2 classify.DirectionResult) (Result, error)
}

// Fallback keeps the tier-1 verdict verbatim.
func Fallback(tier1 classify.Result, status Status, reason string) Result {
	return Result{
		FinalScene: tier1.Category,
		Confidence: tier1.Confidence,
		Reason:     reason,
		Refinements: Refinements{
			OriginalCategory: tier1.Category,
			FinalCategory:    tier1.Category,
		},
		Status: status,
	}
}

type outcome struct {
	res Result
	err error
}

// Run calls r under timeout and never fails. A nil refiner counts as
// unavailable. The call runs in its own goroutine so a refiner that ignores
// its context cannot hold up the caller past the deadline.
func Run(ctx context.Context, r Refiner, text string, tier1 classify.Result, tier2 classify.DirectionResult, timeout time.Duration) Result {
	if r == nil {
		return Fallback(tier1, StatusUnavailable, ReasonUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := r.Refine(ctx, text, tier1, tier2)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return failure(tier1, o.err)
		}
		return settle(o.res, tier1)
	case <-ctx.Done():
		logging.Warn("Refinement timed out", "timeout", timeout)
		return Fallback(tier1, StatusTimeout, ReasonTimeout)
	}
}

func failure(tier1 classify.Result, err error) Result {
	switch {
	case errors.Is(err, ErrUnavailable):
		logging.Debug("Refiner unavailable", "error", err)
		return Fallback(tier1, StatusUnavailable, ReasonUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		logging.Warn("Refinement timed out", "error", err)
		return Fallback(tier1, StatusTimeout, ReasonTimeout)
	default:
		logging.Warn("Refinement failed", "error", err)
		return Fallback(tier1, StatusFailed, ReasonFailed)
	}
}

// settle recomputes the refinement bookkeeping from tier 1 so the result
// is consistent whatever the model reported.
func settle(res Result, tier1 classify.Result) Result {
	if res.FinalScene == "" {
		res.FinalScene = tier1.Category
	}
	res.Confidence = min(1, max(0, res.Confidence))
	res.Refinements = Refinements{
		CategoryChanged:  res.FinalScene != tier1.Category,
		OriginalCategory: tier1.Category,
		FinalCategory:    res.FinalScene,
		ConfidenceBoost:  scalar.Round(res.Confidence-tier1.Confidence, 2),
	}
	res.Status = StatusRefined
	return res
}
