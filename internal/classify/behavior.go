package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/abelbrown/decoder/internal/lexicon"
	"github.com/abelbrown/decoder/internal/logging"
	"github.com/abelbrown/decoder/internal/scoring"
	"github.com/abelbrown/decoder/internal/template"
)

// TemplateMatch is the template matcher's verdict.
type TemplateMatch struct {
	Category   string
	Confidence float64
	Score      float64
	Template   string
	Patterns   []string
}

// Evaluation is a tier-1 result together with the evidence behind it.
type Evaluation struct {
	Result   Result
	Rule     scoring.KeywordMatch
	Template TemplateMatch
	// TemplateErr is non-nil when the template store failed. The template
	// side then counts as unknown with zero confidence.
	TemplateErr error
}

// Behavior is the tier-1 classifier.
type Behavior struct {
	lex       *lexicon.Cache
	templates template.Store
	opts      options
}

// NewBehavior creates a tier-1 classifier. store may be nil, in which case
// only keywords are used.
func NewBehavior(lex *lexicon.Cache, store template.Store, opts ...Option) *Behavior {
	return &Behavior{lex: lex, templates: store, opts: buildOptions(opts)}
}

// Classify returns the tier-1 scene classification of text.
func (b *Behavior) Classify(ctx context.Context, text string) Result {
	return b.Evaluate(ctx, text).Result
}

// Evaluate runs the keyword scorer and the template matcher and merges them:
// both confident → keyword category with the averaged confidence capped at
// 0.95; one confident → that one; neither → the stronger, flagged low
// confidence, with keywords winning ties.
func (b *Behavior) Evaluate(ctx context.Context, text string) Evaluation {
	norm := lexicon.Normalize(text)
	rule := scoring.ScoreKeywords(norm, b.lex.Load().Scenes)

	tm, err := b.matchTemplates(ctx, norm)
	if err != nil {
		logging.Warn("Template lookup failed", "error", err)
		tm = TemplateMatch{Category: scoring.Unknown}
	}

	ev := Evaluation{Rule: rule, Template: tm, TemplateErr: err}
	th := b.opts.threshold

	switch {
	case rule.Confidence >= th && tm.Confidence >= th:
		ev.Result = Result{
			Category:        rule.Category,
			Confidence:      min(0.95, (rule.Confidence+tm.Confidence)/2),
			Method:          MethodRuleTemplate,
			MatchedKeywords: nonNil(rule.Keywords),
			MatchedTemplate: tm.Template,
			Explanation:     fmt.Sprintf("规则匹配到「%s」关键词，同时模板也匹配到「%s」", rule.Category, tm.Template),
		}
	case rule.Confidence >= th:
		ev.Result = ruleResult(rule)
	case tm.Confidence >= th:
		ev.Result = templateResult(tm, err)
	case rule.Confidence >= tm.Confidence:
		ev.Result = ruleResult(rule)
		ev.Result.LowConfidence = true
	default:
		ev.Result = templateResult(tm, err)
		ev.Result.LowConfidence = true
	}
	return ev
}

func ruleResult(m scoring.KeywordMatch) Result {
	expl := "未匹配到明确关键词"
	if len(m.Keywords) > 0 {
		shown := m.Keywords
		if len(shown) > 3 {
			shown = shown[:3]
		}
		expl = fmt.Sprintf("检测到「%s」相关关键词：%s", m.Category, strings.Join(shown, ", "))
	}
	return Result{
		Category:        m.Category,
		Confidence:      m.Confidence,
		Method:          MethodRule,
		MatchedKeywords: nonNil(m.Keywords),
		Explanation:     expl,
	}
}

func templateResult(m TemplateMatch, err error) Result {
	expl := "未匹配到模板"
	switch {
	case err != nil:
		expl = "模板匹配失败"
	case m.Category != scoring.Unknown:
		expl = fmt.Sprintf("模板匹配到「%s」场景", m.Category)
	}
	return Result{
		Category:        m.Category,
		Confidence:      m.Confidence,
		Method:          MethodTemplate,
		MatchedKeywords: []string{},
		MatchedTemplate: m.Template,
		Explanation:     expl,
	}
}

// matchTemplates scores every sub-scene's patterns against text. The first
// sub-scene with the strictly highest score wins.
func (b *Behavior) matchTemplates(ctx context.Context, text string) (TemplateMatch, error) {
	none := TemplateMatch{Category: scoring.Unknown}
	if b.templates == nil || text == "" {
		return none, nil
	}
	templates, err := b.templates.Templates(ctx)
	if err != nil {
		return none, fmt.Errorf("load templates: %w", err)
	}

	best := none
	for _, t := range templates {
		for _, s := range t.SubScenes {
			score, _ := template.PatternScore(text, s.Patterns)
			if score > best.Score {
				best = TemplateMatch{
					Category: s.Category(t.Name),
					Score:    score,
					Template: t.Name,
					Patterns: s.Patterns,
				}
			}
		}
	}
	if best.Score > 0 {
		best.Confidence = min(0.9, 0.5+(best.Score/10.0)*0.4)
	}
	return best, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
