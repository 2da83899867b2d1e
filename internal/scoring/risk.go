package scoring

import (
	"slices"

	"github.com/abelbrown/decoder/internal/lexicon"
)

// RiskTrigger names the condition that flagged a text as risky.
type RiskTrigger string

const (
	TriggerNone           RiskTrigger = ""
	TriggerIntenseEmotion RiskTrigger = "intense_negative_emotion"
	TriggerNegativeCount  RiskTrigger = "negative_sentiment"
	TriggerExtremeTerm    RiskTrigger = "extreme_term"
)

// riskEmotions are the emotion types that count as risky above
// riskIntensity.
var riskEmotions = []string{"难过", "生气", "焦虑", "失望", "疲惫"}

const (
	riskIntensity     = 0.7
	riskNegativeCount = 3
)

// Risk is the risk flagger's verdict.
type Risk struct {
	Risky   bool        `json:"is_risky"`
	Trigger RiskTrigger `json:"trigger,omitempty"`
	// Term is the extreme term that fired, when Trigger is TriggerExtremeTerm.
	Term string `json:"term,omitempty"`
}

// IntenseNegativeEmotion reports whether e is a risk emotion above the
// intensity threshold.
func IntenseNegativeEmotion(e Emotion) bool {
	return slices.Contains(riskEmotions, e.Type) && e.Intensity > riskIntensity
}

// StrongNegativeSentiment reports whether s is negative with at least three
// negative hits.
func StrongNegativeSentiment(s Sentiment) bool {
	return s.Label == Negative && s.NegativeScore >= riskNegativeCount
}

// ExtremeTerm returns the first extreme term contained in text.
func ExtremeTerm(text string, terms []string) (string, bool) {
	m := Matched(text, terms)
	if len(m) == 0 {
		return "", false
	}
	return m[0], true
}

// FlagRisk checks the three risk conditions in order and stops at the first
// that holds.
func FlagRisk(text string, e Emotion, s Sentiment, t *lexicon.Tables) Risk {
	if IntenseNegativeEmotion(e) {
		return Risk{Risky: true, Trigger: TriggerIntenseEmotion}
	}
	if StrongNegativeSentiment(s) {
		return Risk{Risky: true, Trigger: TriggerNegativeCount}
	}
	if term, ok := ExtremeTerm(text, t.Extreme); ok {
		return Risk{Risky: true, Trigger: TriggerExtremeTerm, Term: term}
	}
	return Risk{}
}
