// Package classify implements the first two decoding tiers: the behavior
// classifier (keywords merged with template patterns) and the emotion
// direction classifier, plus the quick three-layer scene classifier.
package classify

import (
	"time"

	"github.com/abelbrown/decoder/internal/scoring"
)

// Method records which evidence produced a classification.
type Method string

const (
	MethodRule             Method = "rule"
	MethodTemplate         Method = "template"
	MethodRuleTemplate     Method = "rule+template"
	MethodSentimentKeyword Method = "sentiment_keyword"
	MethodAISemantic       Method = "ai_semantic"
)

// DefaultThreshold is the confidence at which a single source is trusted on
// its own.
const DefaultThreshold = 0.7

// Result is a scene classification.
type Result struct {
	Category        string   `json:"category"`
	Confidence      float64  `json:"confidence"`
	Method          Method   `json:"method"`
	MatchedKeywords []string `json:"matched_keywords"`
	MatchedTemplate string   `json:"matched_template,omitempty"`
	// LowConfidence is set when no source reached the threshold and the
	// stronger of two weak results was taken.
	LowConfidence bool   `json:"low_confidence"`
	Explanation   string `json:"explanation"`
}

// Direction is the coarse emotional bucket of a text.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNeutral  Direction = "neutral"
	DirectionNegative Direction = "negative"
	DirectionRisky    Direction = "risky"
)

// DirectionResult is the tier-2 verdict.
type DirectionResult struct {
	Direction   Direction           `json:"direction"`
	Confidence  float64             `json:"confidence"`
	EmotionType string              `json:"emotion_type"`
	Intensity   float64             `json:"intensity"`
	IsRisky     bool                `json:"is_risky"`
	RiskTrigger scoring.RiskTrigger `json:"risk_trigger,omitempty"`
	Sentiment   scoring.Sentiment   `json:"sentiment"`
	Explanation string              `json:"explanation"`
}

// Option configures a classifier.
type Option func(*options)

type options struct {
	threshold       float64
	semanticTimeout time.Duration
}

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t float64) Option {
	return func(o *options) {
		if t > 0 && t <= 1 {
			o.threshold = t
		}
	}
}

// WithSemanticTimeout bounds each semantic model call. Non-positive values
// keep DefaultSemanticTimeout.
func WithSemanticTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.semanticTimeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{threshold: DefaultThreshold, semanticTimeout: DefaultSemanticTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
