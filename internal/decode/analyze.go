package decode

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/abelbrown/decoder/internal/scoring"
)

// maxKeywords caps Analysis.Keywords.
const maxKeywords = 10

// Stats are character and word counts of a text.
type Stats struct {
	TotalChars    int     `json:"total_chars"`
	TotalWords    int     `json:"total_words"`
	ChineseChars  int     `json:"chinese_chars"`
	EnglishWords  int     `json:"english_words"`
	Numbers       int     `json:"numbers"`
	Punctuation   int     `json:"punctuation"`
	AvgWordLength float64 `json:"avg_word_length"`
}

// Keyword is a frequent token and its share of all tokens.
type Keyword struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

// Analysis is the basic text analysis attached to every decode.
type Analysis struct {
	Stats     Stats             `json:"stats"`
	Keywords  []Keyword         `json:"keywords"`
	Sentiment scoring.Sentiment `json:"sentiment"`
}

// Analyze computes stats and frequency keywords. Tokens are runs of letters,
// digits and underscores; single-rune tokens and stop words are not
// keywords.
func Analyze(text string, stopWords []string, sentiment scoring.Sentiment) Analysis {
	st := Stats{
		TotalChars: utf8.RuneCountInString(text),
		TotalWords: len(strings.Fields(text)),
	}
	for _, r := range text {
		switch {
		case r >= 0x4e00 && r <= 0x9fff:
			st.ChineseChars++
		case unicode.IsPunct(r):
			st.Punctuation++
		}
	}
	st.EnglishWords = countRuns(text, isASCIILetter)
	st.Numbers = countRuns(text, unicode.IsDigit)
	if st.TotalWords > 0 {
		st.AvgWordLength = scalar.Round(float64(st.TotalChars)/float64(st.TotalWords), 2)
	}

	return Analysis{
		Stats:     st,
		Keywords:  keywords(tokens(strings.ToLower(text)), stopWords),
		Sentiment: sentiment,
	}
}

func keywords(toks, stopWords []string) []Keyword {
	freq := make(map[string]int)
	var order []string
	for _, t := range toks {
		if utf8.RuneCountInString(t) <= 1 || slices.Contains(stopWords, t) {
			continue
		}
		if freq[t] == 0 {
			order = append(order, t)
		}
		freq[t]++
	}
	// Stable: equal counts keep first-appearance order.
	slices.SortStableFunc(order, func(a, b string) int { return cmp.Compare(freq[b], freq[a]) })
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}

	out := make([]Keyword, len(order))
	for i, w := range order {
		out[i] = Keyword{Word: w, Weight: scalar.Round(float64(freq[w])/float64(len(toks)), 4)}
	}
	return out
}

func tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) })
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// countRuns counts maximal runs of runes satisfying in.
func countRuns(text string, in func(rune) bool) int {
	n := 0
	prev := false
	for _, r := range text {
		cur := in(r)
		if cur && !prev {
			n++
		}
		prev = cur
	}
	return n
}
