// Package template provides the scene template store: per-scene expression
// patterns used by the tier-1 template matcher, and the behavior suggestions
// looked up for a decoded scene.
package template

import (
	"context"
	"errors"
	"strings"

	"github.com/abelbrown/decoder/internal/lexicon"
	"github.com/abelbrown/decoder/internal/scoring"
)

// ErrNotFound is returned when no template covers a scene.
var ErrNotFound = errors.New("template not found")

// SubScene is one concrete situation within a template.
type SubScene struct {
	Type              string   `json:"type"`
	Patterns          []string `json:"patterns"`
	SimpleExplanation string   `json:"simple_explanation,omitempty"`
	Why               string   `json:"why,omitempty"`
	SuggestionSteps   []string `json:"suggestion_steps,omitempty"`
	DoNot             []string `json:"do_not,omitempty"`
}

// Category is the scene label a match on this sub-scene produces.
func (s SubScene) Category(templateName string) string {
	if s.Type != "" {
		return s.Type
	}
	return templateName
}

// Template groups related sub-scenes. Name is the file stem.
type Template struct {
	Name        string     `json:"-"`
	Description string     `json:"description,omitempty"`
	SubScenes   []SubScene `json:"sub_scenes"`
}

// Suggestion is the advice returned for a decoded scene.
type Suggestion struct {
	Scene          string   `json:"scene,omitempty"`
	Template       string   `json:"template,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
	Why            string   `json:"why,omitempty"`
	Suggestions    []string `json:"suggestions"`
	DoNot          []string `json:"do_not"`
	MatchedPattern string   `json:"matched_pattern,omitempty"`
}

// IsZero reports whether s carries no advice.
func (s Suggestion) IsZero() bool {
	return s.Scene == "" && len(s.Suggestions) == 0 && len(s.DoNot) == 0
}

// Store is the template collaborator. Patterns returns an empty list for an
// unknown category. Suggestion returns ErrNotFound for an unknown scene.
type Store interface {
	Templates(ctx context.Context) ([]Template, error)
	Patterns(ctx context.Context, category string) ([]string, error)
	Suggestion(ctx context.Context, scene, text string) (Suggestion, error)
}

// patternsFor collects the patterns of every sub-scene that yields category,
// or of the whole template when category names it.
func patternsFor(templates []Template, category string) []string {
	var out []string
	for _, t := range templates {
		for _, s := range t.SubScenes {
			if t.Name == category || s.Category(t.Name) == category {
				out = append(out, s.Patterns...)
			}
		}
	}
	return out
}

// suggestionFor picks the best sub-scene for scene. When several qualify,
// the one whose patterns score highest against text wins, first on ties.
func suggestionFor(templates []Template, scene, text string) (Suggestion, error) {
	text = lexicon.Normalize(text)

	var (
		found     bool
		bestT     string
		bestS     SubScene
		bestScore = -1.0
		bestPat   string
	)
	for _, t := range templates {
		for _, s := range t.SubScenes {
			if t.Name != scene && s.Category(t.Name) != scene {
				continue
			}
			score, pat := PatternScore(text, s.Patterns)
			if !found || score > bestScore {
				found, bestT, bestS, bestScore, bestPat = true, t.Name, s, score, pat
			}
		}
	}
	if !found {
		return Suggestion{}, ErrNotFound
	}

	return Suggestion{
		Scene:          bestS.Category(bestT),
		Template:       bestT,
		Explanation:    bestS.SimpleExplanation,
		Why:            bestS.Why,
		Suggestions:    append([]string(nil), bestS.SuggestionSteps...),
		DoNot:          append([]string(nil), bestS.DoNot...),
		MatchedPattern: bestPat,
	}, nil
}

// PatternScore sums the weight of every pattern contained in text and
// returns the first one that matched. text must already be normalized.
func PatternScore(text string, patterns []string) (float64, string) {
	var (
		score float64
		first string
	)
	for _, p := range patterns {
		p = lexicon.Normalize(p)
		if p == "" || !strings.Contains(text, p) {
			continue
		}
		score += scoring.KeywordWeight(p)
		if first == "" {
			first = p
		}
	}
	return score, first
}
