package scoring

import "github.com/abelbrown/decoder/internal/lexicon"

// Polarity is a coarse sentiment label.
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
	Neutral  Polarity = "neutral"
)

// Sentiment is the sentiment estimator's verdict. The scores are raw lexicon
// hit counts; each lexicon word counts at most once.
type Sentiment struct {
	Label         Polarity `json:"sentiment"`
	Confidence    float64  `json:"confidence"`
	PositiveScore int      `json:"positive_score"`
	NegativeScore int      `json:"negative_score"`
}

// EstimateSentiment counts positive and negative lexicon words in text.
// Confidence is 0.5 for neutral and grows 0.1 per point of difference, capped
// at 0.9.
func EstimateSentiment(text string, t *lexicon.Tables) Sentiment {
	pos := len(Matched(text, t.Positive))
	neg := len(Matched(text, t.Negative))

	s := Sentiment{Label: Neutral, Confidence: 0.5, PositiveScore: pos, NegativeScore: neg}
	switch {
	case pos > neg:
		s.Label = Positive
		s.Confidence = min(0.9, 0.5+float64(pos-neg)*0.1)
	case neg > pos:
		s.Label = Negative
		s.Confidence = min(0.9, 0.5+float64(neg-pos)*0.1)
	}
	return s
}
