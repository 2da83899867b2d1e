// Package lexicon holds the keyword tables the decoder scores text against.
//
// Every table is an ordered slice. Order is part of the contract: the keyword
// scorer breaks ties by category position and the emotion mapper is
// first-match-wins, so reordering a table changes results.
package lexicon

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Category is a named keyword group.
type Category struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Tables is the complete set of keyword tables used by the scorers.
type Tables struct {
	// Scenes drives the tier-1 keyword scorer.
	Scenes []Category `yaml:"scenes"`

	// Emotions drives the emotion-type mapper, first match wins.
	Emotions []Category `yaml:"emotions"`

	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`

	// Extreme terms flag a text as risky on their own.
	Extreme []string `yaml:"extreme"`

	// StopWords are skipped by keyword-frequency analysis.
	StopWords []string `yaml:"stop_words"`
}

// Scene returns the keywords for a scene category, or nil.
func (t *Tables) Scene(name string) []string {
	for _, c := range t.Scenes {
		if c.Name == name {
			return c.Keywords
		}
	}
	return nil
}

// Clone returns a deep copy.
func (t *Tables) Clone() *Tables {
	cp := &Tables{
		Scenes:    cloneCategories(t.Scenes),
		Emotions:  cloneCategories(t.Emotions),
		Positive:  slices.Clone(t.Positive),
		Negative:  slices.Clone(t.Negative),
		Extreme:   slices.Clone(t.Extreme),
		StopWords: slices.Clone(t.StopWords),
	}
	return cp
}

// Merge returns a copy of t with o folded in. Categories present in both keep
// t's position and gain o's new keywords at the end; categories only in o are
// appended in o's order.
func (t *Tables) Merge(o *Tables) *Tables {
	out := t.Clone()
	if o == nil {
		return out
	}
	out.Scenes = mergeCategories(out.Scenes, o.Scenes)
	out.Emotions = mergeCategories(out.Emotions, o.Emotions)
	out.Positive = union(out.Positive, o.Positive)
	out.Negative = union(out.Negative, o.Negative)
	out.Extreme = union(out.Extreme, o.Extreme)
	out.StopWords = union(out.StopWords, o.StopWords)
	return out
}

// LoadFile reads a YAML table file and merges it over the defaults.
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML tables and merges them over the defaults.
func Parse(data []byte) (*Tables, error) {
	var user Tables
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	user.normalize()
	return Default().Merge(&user), nil
}

// normalize puts user-supplied keywords in the same form as scored text.
func (t *Tables) normalize() {
	for _, cats := range [][]Category{t.Scenes, t.Emotions} {
		for i := range cats {
			cats[i].Keywords = normalizeAll(cats[i].Keywords)
		}
	}
	t.Positive = normalizeAll(t.Positive)
	t.Negative = normalizeAll(t.Negative)
	t.Extreme = normalizeAll(t.Extreme)
	t.StopWords = normalizeAll(t.StopWords)
}

func normalizeAll(words []string) []string {
	for i, w := range words {
		words[i] = Normalize(w)
	}
	return words
}

// Marshal encodes tables as YAML.
func (t *Tables) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

func cloneCategories(in []Category) []Category {
	out := make([]Category, len(in))
	for i, c := range in {
		out[i] = Category{Name: c.Name, Keywords: slices.Clone(c.Keywords)}
	}
	return out
}

func mergeCategories(base, extra []Category) []Category {
	for _, e := range extra {
		if e.Name == "" {
			continue
		}
		idx := slices.IndexFunc(base, func(c Category) bool { return c.Name == e.Name })
		if idx < 0 {
			base = append(base, Category{Name: e.Name, Keywords: union(nil, e.Keywords)})
			continue
		}
		base[idx].Keywords = union(base[idx].Keywords, e.Keywords)
	}
	return base
}

// union appends the words of extra missing from base, preserving order.
func union(base, extra []string) []string {
	for _, w := range extra {
		if w == "" || slices.Contains(base, w) {
			continue
		}
		base = append(base, w)
	}
	return base
}
