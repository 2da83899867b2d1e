package modality

import (
	"github.com/abelbrown/decoder/internal/risk"
	"github.com/abelbrown/decoder/internal/store"
)

var (
	positiveLabels = map[string]bool{"happy": true, "excited": true}
	negativeLabels = map[string]bool{"sad": true, "angry": true, "anxious": true, "fear": true, "tired": true}
)

// Trend classifies a run of readings: clearly more positive than negative
// (by half again) is improving, clearly more negative is declining, merely
// more negative is slightly negative, anything else is stable.
func Trend(records []store.EmotionRecord) risk.Trend {
	var pos, neg int
	for _, r := range records {
		switch {
		case positiveLabels[r.Emotion]:
			pos++
		case negativeLabels[r.Emotion]:
			neg++
		}
	}
	switch {
	case pos+neg == 0:
		return risk.TrendStable
	case float64(pos) > float64(neg)*1.5:
		return risk.TrendImproving
	case float64(neg) > float64(pos)*1.5:
		return risk.TrendDeclining
	case neg > pos:
		return risk.TrendSlightlyNegative
	default:
		return risk.TrendStable
	}
}
