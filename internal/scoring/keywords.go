// Package scoring implements the lexical scorers the classifiers are built
// from: the keyword scorer, the sentiment estimator, the emotion-type mapper
// and the risk flagger. Everything here is a pure function of the input text
// and the lexicon tables passed in.
package scoring

import (
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"

	"github.com/abelbrown/decoder/internal/lexicon"
)

// Unknown is the category returned when nothing matches.
const Unknown = "未知"

const (
	// maxKeywordConfidence caps the keyword scorer's confidence.
	maxKeywordConfidence = 0.85

	// positionBonus is added when a keyword opens the text or follows a space.
	positionBonus = 0.5
)

// KeywordMatch is the keyword scorer's verdict.
type KeywordMatch struct {
	Category   string
	Score      float64
	Total      float64
	Confidence float64
	// Keywords lists the winning category's keywords found in the text,
	// in table order.
	Keywords []string
}

// KeywordWeight is the score a single matched keyword contributes, before
// the position bonus. Longer keywords weigh more.
func KeywordWeight(kw string) float64 {
	return float64(utf8.RuneCountInString(kw))/10.0 + 1.0
}

// ScoreKeywords scores text against each category and returns the best.
// Ties go to the category listed first. text must already be normalized.
func ScoreKeywords(text string, categories []lexicon.Category) KeywordMatch {
	if text == "" {
		return KeywordMatch{Category: Unknown}
	}

	scores := make([]float64, len(categories))
	best := -1
	for i, c := range categories {
		scores[i] = categoryScore(text, c.Keywords)
		if scores[i] > 0 && (best < 0 || scores[i] > scores[best]) {
			best = i
		}
	}
	if best < 0 {
		return KeywordMatch{Category: Unknown}
	}

	total := floats.Sum(scores)
	conf := min(maxKeywordConfidence, 0.5+(scores[best]/max(total, 1))*0.35)

	return KeywordMatch{
		Category:   categories[best].Name,
		Score:      scores[best],
		Total:      total,
		Confidence: conf,
		Keywords:   Matched(text, categories[best].Keywords),
	}
}

func categoryScore(text string, keywords []string) float64 {
	var score float64
	for _, kw := range keywords {
		if kw == "" || !strings.Contains(text, kw) {
			continue
		}
		score += KeywordWeight(kw)
		if strings.HasPrefix(text, kw) || strings.Contains(text, " "+kw) {
			score += positionBonus
		}
	}
	return score
}

// Matched returns the distinct words found in text, in list order.
func Matched(text string, words []string) []string {
	var out []string
	for _, w := range words {
		if w == "" || !strings.Contains(text, w) {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == w {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, w)
		}
	}
	return out
}
