package scoring

import "github.com/abelbrown/decoder/internal/lexicon"

// Emotion types produced by the fallback path.
const (
	EmotionHappy = "开心"
	EmotionSad   = "难过"
	EmotionCalm  = "平静"
)

// Emotion is the emotion-type mapper's verdict.
type Emotion struct {
	Type      string   `json:"emotion_type"`
	Intensity float64  `json:"intensity"`
	Hits      []string `json:"hits,omitempty"`
	// FromSentiment is true when no emotion keyword matched and the type was
	// derived from the sentiment label.
	FromSentiment bool `json:"from_sentiment,omitempty"`
}

// MapEmotion returns the first emotion in table order with at least one
// keyword in text. Intensity is 0.5 plus 0.15 per hit, capped at 1.
// Without a hit the sentiment decides: positive → 开心 0.6, negative → 难过
// 0.6, otherwise 平静 0.5.
func MapEmotion(text string, emotions []lexicon.Category, s Sentiment) Emotion {
	for _, e := range emotions {
		hits := Matched(text, e.Keywords)
		if len(hits) == 0 {
			continue
		}
		return Emotion{
			Type:      e.Name,
			Intensity: min(1.0, 0.5+float64(len(hits))*0.15),
			Hits:      hits,
		}
	}

	switch s.Label {
	case Positive:
		return Emotion{Type: EmotionHappy, Intensity: 0.6, FromSentiment: true}
	case Negative:
		return Emotion{Type: EmotionSad, Intensity: 0.6, FromSentiment: true}
	default:
		return Emotion{Type: EmotionCalm, Intensity: 0.5, FromSentiment: true}
	}
}
