package fusion

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Modality is an input channel.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
	ModalityFace  Modality = "face"
)

// Modalities lists every modality in fusion order.
var Modalities = []Modality{ModalityText, ModalityVoice, ModalityFace}

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	return m == ModalityText || m == ModalityVoice || m == ModalityFace
}

// Weights maps modalities to their share of the fused score.
type Weights map[Modality]float64

// DefaultWeights is the built-in weight vector.
func DefaultWeights() Weights {
	return Weights{ModalityText: 0.5, ModalityVoice: 0.3, ModalityFace: 0.2}
}

// sanitize keeps finite non-negative entries for known modalities.
func (w Weights) sanitize() Weights {
	out := make(Weights, len(w))
	for _, m := range Modalities {
		v, ok := w[m]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		out[m] = v
	}
	return out
}

// sum adds entries in modality order so the result does not depend on map
// iteration.
func (w Weights) sum() float64 {
	vals := make([]float64, 0, len(w))
	for _, m := range Modalities {
		if v, ok := w[m]; ok {
			vals = append(vals, v)
		}
	}
	return floats.Sum(vals)
}

// Normalize returns w scaled to sum to 1 after dropping negative, NaN and
// infinite entries. A vector with nothing positive left normalizes fallback
// instead, and DefaultWeights if fallback is unusable too.
func (w Weights) Normalize(fallback Weights) Weights {
	for _, cand := range []Weights{w, fallback, DefaultWeights()} {
		clean := cand.sanitize()
		total := clean.sum()
		if total <= 0 {
			continue
		}
		for m, v := range clean {
			clean[m] = v / total
		}
		return clean
	}
	// unreachable: DefaultWeights is positive
	return DefaultWeights()
}

// restrict normalizes w over the given modalities only.
func (w Weights) restrict(present []Modality, fallback Weights) Weights {
	sub := make(Weights, len(present))
	for _, m := range present {
		sub[m] = w[m]
	}
	if sub.sanitize().sum() > 0 {
		return sub.Normalize(nil)
	}
	sub = make(Weights, len(present))
	for _, m := range present {
		sub[m] = fallback[m]
	}
	if sub.sanitize().sum() > 0 {
		return sub.Normalize(nil)
	}
	for _, m := range present {
		sub[m] = 1
	}
	return sub.Normalize(nil)
}

// Clone returns a copy of w.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// priorities ranks emotions for negative_priority fusion; negative emotions
// rank higher.
var priorities = map[string]int{
	"sad":       5,
	"angry":     5,
	"anxious":   4,
	"fear":      4,
	"tired":     3,
	"neutral":   2,
	"surprised": 2,
	"happy":     1,
	"excited":   1,
}

const defaultPriority = 2

// Priority returns the negative_priority rank of emotion. Unknown emotions
// rank with neutral.
func Priority(emotion string) int {
	if p, ok := priorities[emotion]; ok {
		return p
	}
	return defaultPriority
}
