// Package risk detects emotional and safety risk in a text. Detection layers
// word lists, the user's emotion profile and an optional model assessment;
// the highest level found wins.
package risk

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/abelbrown/decoder/internal/lexicon"
	"github.com/abelbrown/decoder/internal/logging"
)

// Level is a risk severity.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

func (l Level) rank() int {
	switch l {
	case High:
		return 2
	case Medium:
		return 1
	default:
		return 0
	}
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l == Low || l == Medium || l == High
}

// MaxLevel returns the more severe of a and b.
func MaxLevel(a, b Level) Level {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// maxSuggestions caps the suggestions returned by Detect.
const maxSuggestions = 5

// Analysis is the merged risk verdict.
type Analysis struct {
	RiskLevel   Level    `json:"risk_level"`
	RiskType    string   `json:"risk_type"`
	Confidence  float64  `json:"confidence"`
	Reasons     []string `json:"reasons"`
	Suggestions []string `json:"suggestions"`
}

// Detector is what the decoder consumes.
type Detector interface {
	Detect(ctx context.Context, text string, useAI bool, userID string) Analysis
}

// Assessment is a model's risk opinion.
type Assessment struct {
	Level       Level
	Reasons     []string
	Suggestions []string
}

// Assessor asks a model for a risk opinion.
type Assessor interface {
	AssessRisk(ctx context.Context, text string) (Assessment, error)
}

// Words are the configurable risk word lists.
type Words struct {
	High   []string `json:"high_risk"`
	Medium []string `json:"medium_risk"`
}

// DefaultWords returns the built-in word lists.
func DefaultWords() Words {
	return Words{
		High:   []string{"想死", "不想活了", "绝望", "崩溃", "自杀", "自残"},
		Medium: []string{"难过", "痛苦", "受不了", "压力大", "焦虑", "害怕"},
	}
}

// Service is the default Detector.
type Service struct {
	words     Words
	profiles  ProfileProvider
	assessor  Assessor
	aiTimeout time.Duration

	profileTimeout time.Duration
}

var _ Detector = (*Service)(nil)

// NewService creates a detector. Empty word lists fall back to the defaults;
// profiles and assessor may be nil.
func NewService(words Words, profiles ProfileProvider, assessor Assessor) *Service {
	def := DefaultWords()
	if len(words.High) == 0 {
		words.High = def.High
	}
	if len(words.Medium) == 0 {
		words.Medium = def.Medium
	}
	return &Service{
		words:     words,
		profiles:  profiles,
		assessor:  assessor,
		aiTimeout: 10 * time.Second,

		profileTimeout: 2 * time.Second,
	}
}

// SetAITimeout bounds each model assessment.
func (s *Service) SetAITimeout(d time.Duration) {
	if d > 0 {
		s.aiTimeout = d
	}
}

// SetProfileTimeout bounds each profile lookup.
func (s *Service) SetProfileTimeout(d time.Duration) {
	if d > 0 {
		s.profileTimeout = d
	}
}

type partial struct {
	level       Level
	reasons     []string
	suggestions []string
}

// Detect never fails: profile or model errors are logged and skipped.
func (s *Service) Detect(ctx context.Context, text string, useAI bool, userID string) Analysis {
	norm := lexicon.Normalize(text)

	acc := s.detectWords(norm)

	if userID != "" && s.profiles != nil {
		pctx, cancel := context.WithTimeout(ctx, s.profileTimeout)
		p, err := s.profiles.Profile(pctx, userID)
		cancel()
		if err != nil {
			logging.Warn("Risk profile lookup failed", "user", userID, "error", err)
		} else {
			pr := detectWithProfile(norm, p)
			acc.level = MaxLevel(acc.level, pr.level)
			acc.reasons = append(acc.reasons, pr.reasons...)
			acc.suggestions = append(acc.suggestions, pr.suggestions...)
		}
	}

	if useAI && s.assessor != nil {
		actx, cancel := context.WithTimeout(ctx, s.aiTimeout)
		a, err := s.assessor.AssessRisk(actx, text)
		cancel()
		switch {
		case err != nil:
			logging.Warn("Risk assessment failed", "error", err)
		case !a.Level.Valid():
			logging.Warn("Risk assessment returned unknown level", "level", a.Level)
		case a.Level == High || acc.level == Low:
			acc.level = a.Level
			acc.reasons = append(acc.reasons, a.Reasons...)
			acc.suggestions = append(acc.suggestions, a.Suggestions...)
		}
	}

	out := Analysis{
		RiskLevel:   acc.level,
		RiskType:    "无风险",
		Confidence:  0.5,
		Reasons:     dedupe(acc.reasons),
		Suggestions: dedupe(acc.suggestions),
	}
	if acc.level != Low {
		out.RiskType = "情绪风险"
		out.Confidence = 0.7
	}
	if len(out.Suggestions) > maxSuggestions {
		out.Suggestions = out.Suggestions[:maxSuggestions]
	}
	return out
}

// detectWords reports the first high-risk word, else the first medium one.
func (s *Service) detectWords(text string) partial {
	for _, w := range s.words.High {
		if w != "" && strings.Contains(text, w) {
			return partial{
				level:       High,
				reasons:     []string{fmt.Sprintf("检测到高风险词汇：%s", w)},
				suggestions: []string{"建议立即寻求专业帮助或联系紧急支持"},
			}
		}
	}
	for _, w := range s.words.Medium {
		if w != "" && strings.Contains(text, w) {
			return partial{
				level:       Medium,
				reasons:     []string{fmt.Sprintf("检测到负面情绪词汇：%s", w)},
				suggestions: []string{"建议关注情绪变化，考虑寻求支持"},
			}
		}
	}
	return partial{level: Low}
}

// dedupe drops repeats and empty strings, keeping first occurrences in order.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
