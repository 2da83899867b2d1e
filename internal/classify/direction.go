package classify

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/abelbrown/decoder/internal/lexicon"
	"github.com/abelbrown/decoder/internal/scoring"
)

var (
	positiveEmotions = []string{"开心", "高兴", "快乐", "愉快", "兴奋"}
	negativeEmotions = []string{"难过", "生气", "焦虑", "失望", "疲惫", "尴尬"}
)

// riskBoost is added to the confidence of a risky verdict.
const riskBoost = 0.2

// DirectionClassifier is the tier-2 classifier.
type DirectionClassifier struct {
	lex *lexicon.Cache
}

// NewDirection creates a tier-2 classifier.
func NewDirection(lex *lexicon.Cache) *DirectionClassifier {
	return &DirectionClassifier{lex: lex}
}

// Classify buckets text as risky, positive, negative or neutral, checked in
// that order.
func (d *DirectionClassifier) Classify(text string) DirectionResult {
	t := d.lex.Load()
	norm := lexicon.Normalize(text)

	sent := scoring.EstimateSentiment(norm, t)
	emo := scoring.MapEmotion(norm, t.Emotions, sent)
	risk := scoring.FlagRisk(norm, emo, sent, t)

	dir := DirectionNeutral
	switch {
	case risk.Risky:
		dir = DirectionRisky
	case slices.Contains(positiveEmotions, emo.Type) || sent.Label == scoring.Positive:
		dir = DirectionPositive
	case slices.Contains(negativeEmotions, emo.Type) || sent.Label == scoring.Negative:
		dir = DirectionNegative
	}

	conf := (sent.Confidence + emo.Intensity) / 2
	if risk.Risky {
		conf = min(0.95, conf+riskBoost)
	}

	return DirectionResult{
		Direction:   dir,
		Confidence:  scalar.Round(conf, 2),
		EmotionType: emo.Type,
		Intensity:   emo.Intensity,
		IsRisky:     risk.Risky,
		RiskTrigger: risk.Trigger,
		Sentiment:   sent,
		Explanation: directionExplanation(dir, emo),
	}
}

// Sentiment exposes the tier-2 sentiment estimate on its own.
func (d *DirectionClassifier) Sentiment(text string) scoring.Sentiment {
	return scoring.EstimateSentiment(lexicon.Normalize(text), d.lex.Load())
}

func directionExplanation(dir Direction, e scoring.Emotion) string {
	switch dir {
	case DirectionRisky:
		return fmt.Sprintf("检测到高风险情绪：%s（强度%.1f），需要关注", e.Type, e.Intensity)
	case DirectionPositive:
		return fmt.Sprintf("正面情绪：%s（强度%.1f）", e.Type, e.Intensity)
	case DirectionNegative:
		return fmt.Sprintf("负面情绪：%s（强度%.1f）", e.Type, e.Intensity)
	default:
		return fmt.Sprintf("中性情绪：%s（强度%.1f）", e.Type, e.Intensity)
	}
}
