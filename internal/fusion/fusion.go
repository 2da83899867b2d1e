// Package fusion combines per-modality emotion readings (text, voice, face)
// into one verdict using one of four strategies.
package fusion

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// Unknown is the emotion reported when there is nothing to fuse.
const Unknown = "unknown"

// Strategy selects a fusion algorithm.
type Strategy string

const (
	StrategyWeighted         Strategy = "weighted"
	StrategyNegativePriority Strategy = "negative_priority"
	StrategyDynamicWeight    Strategy = "dynamic_weight"
	StrategyVoting           Strategy = "voting"
)

// ParseStrategy maps a name to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch st := Strategy(s); st {
	case StrategyWeighted, StrategyNegativePriority, StrategyDynamicWeight, StrategyVoting:
		return st, true
	}
	return "", false
}

// ModalityResult is one modality's emotion reading. Intensity ≤ 0 means
// unset and is replaced by Confidence.
type ModalityResult struct {
	Modality   Modality `json:"modality"`
	Emotion    string   `json:"emotion"`
	Confidence float64  `json:"confidence"`
	Intensity  float64  `json:"intensity"`
}

// Details carries strategy-specific diagnostics. Scores are rounded to two
// decimals.
type Details struct {
	EmotionScores     map[string]float64 `json:"emotion_scores,omitempty"`
	TotalConfidence   float64            `json:"total_confidence,omitempty"`
	PriorityUsed      int                `json:"priority_used,omitempty"`
	SamePriorityCount int                `json:"same_priority_count,omitempty"`
	EmotionVotes      map[string]int     `json:"emotion_votes,omitempty"`
	DynamicWeights    Weights            `json:"dynamic_weights,omitempty"`
	WeightSource      string             `json:"weight_source,omitempty"`
}

// Result is the fused verdict. WeightsUsed sums to 1 when non-empty.
type Result struct {
	Emotion      string           `json:"emotion"`
	Confidence   float64          `json:"confidence"`
	Intensity    float64          `json:"intensity"`
	Sources      []ModalityResult `json:"sources"`
	FusionMethod Strategy         `json:"fusion_method"`
	WeightsUsed  Weights          `json:"weights_used"`
	Details      Details          `json:"details"`
}

func empty(method Strategy) Result {
	return Result{
		Emotion:      Unknown,
		Sources:      []ModalityResult{},
		FusionMethod: method,
		WeightsUsed:  Weights{},
	}
}

// canonical keeps the last reading per known modality, ordered text, voice,
// face, with emotion, confidence and intensity filled in.
func canonical(in []ModalityResult) []ModalityResult {
	last := make(map[Modality]ModalityResult, len(Modalities))
	for _, r := range in {
		if !r.Modality.Valid() {
			continue
		}
		last[r.Modality] = r
	}
	out := make([]ModalityResult, 0, len(last))
	for _, m := range Modalities {
		r, ok := last[m]
		if !ok {
			continue
		}
		if r.Emotion == "" {
			r.Emotion = "neutral"
		}
		r.Confidence = clamp01(r.Confidence)
		if r.Intensity <= 0 || math.IsNaN(r.Intensity) {
			r.Intensity = r.Confidence
		}
		r.Intensity = clamp01(r.Intensity)
		out = append(out, r)
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(1, max(0, v))
}

func round2(v float64) float64 { return scalar.Round(v, 2) }

func roundScores(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = round2(v)
	}
	return out
}

func presentModalities(results []ModalityResult) []Modality {
	out := make([]Modality, len(results))
	for i, r := range results {
		out[i] = r.Modality
	}
	return out
}

// Weighted adds weight×confidence per emotion, with w renormalized over the
// modalities present. The first emotion to reach the top score wins; its
// intensity is the mean over the readings that reported it.
func Weighted(in []ModalityResult, w Weights) Result {
	results := canonical(in)
	if len(results) == 0 {
		return empty(StrategyWeighted)
	}
	used := w.restrict(presentModalities(results), DefaultWeights())

	scores := make(map[string]float64)
	intensities := make(map[string][]float64)
	var order []string
	var total float64
	for _, r := range results {
		if _, seen := scores[r.Emotion]; !seen {
			order = append(order, r.Emotion)
		}
		s := used[r.Modality] * r.Confidence
		scores[r.Emotion] += s
		intensities[r.Emotion] = append(intensities[r.Emotion], r.Intensity)
		total += s
	}

	best := order[0]
	for _, e := range order[1:] {
		if scores[e] > scores[best] {
			best = e
		}
	}

	return Result{
		Emotion:      best,
		Confidence:   round2(scores[best]),
		Intensity:    round2(stat.Mean(intensities[best], nil)),
		Sources:      results,
		FusionMethod: StrategyWeighted,
		WeightsUsed:  used,
		Details: Details{
			EmotionScores:   roundScores(scores),
			TotalConfidence: round2(total),
		},
	}
}

// NegativePriority takes the reading whose emotion ranks highest in the
// priority table. Readings tied at the top rank are averaged.
func NegativePriority(in []ModalityResult) Result {
	results := canonical(in)
	if len(results) == 0 {
		return empty(StrategyNegativePriority)
	}

	ranked := make([]ModalityResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Priority(ranked[i].Emotion) > Priority(ranked[j].Emotion)
	})

	top := ranked[0]
	topPriority := Priority(top.Emotion)
	var confs, ints []float64
	for _, r := range ranked {
		if Priority(r.Emotion) != topPriority {
			break
		}
		confs = append(confs, r.Confidence)
		ints = append(ints, r.Intensity)
	}

	return Result{
		Emotion:      top.Emotion,
		Confidence:   round2(stat.Mean(confs, nil)),
		Intensity:    round2(stat.Mean(ints, nil)),
		Sources:      results,
		FusionMethod: StrategyNegativePriority,
		WeightsUsed:  Weights{},
		Details: Details{
			PriorityUsed:      topPriority,
			SamePriorityCount: len(confs),
		},
	}
}

// Voting picks the emotion reported by the most modalities, breaking ties by
// summed confidence and then by first appearance.
func Voting(in []ModalityResult) Result {
	results := canonical(in)
	if len(results) == 0 {
		return empty(StrategyVoting)
	}

	confs := make(map[string][]float64)
	ints := make(map[string][]float64)
	var order []string
	for _, r := range results {
		if _, seen := confs[r.Emotion]; !seen {
			order = append(order, r.Emotion)
		}
		confs[r.Emotion] = append(confs[r.Emotion], r.Confidence)
		ints[r.Emotion] = append(ints[r.Emotion], r.Intensity)
	}

	best := order[0]
	for _, e := range order[1:] {
		n, bn := len(confs[e]), len(confs[best])
		if n > bn || (n == bn && floats.Sum(confs[e]) > floats.Sum(confs[best])) {
			best = e
		}
	}

	votes := make(map[string]int, len(confs))
	for e, c := range confs {
		votes[e] = len(c)
	}

	return Result{
		Emotion:      best,
		Confidence:   round2(stat.Mean(confs[best], nil)),
		Intensity:    round2(stat.Mean(ints[best], nil)),
		Sources:      results,
		FusionMethod: StrategyVoting,
		WeightsUsed:  Weights{},
		Details:      Details{EmotionVotes: votes},
	}
}
