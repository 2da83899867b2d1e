package classify

import (
	"context"
	"time"

	"github.com/abelbrown/decoder/internal/lexicon"
	"github.com/abelbrown/decoder/internal/logging"
	"github.com/abelbrown/decoder/internal/scoring"
)

// SemanticClassifier labels a text's scene with a language model.
type SemanticClassifier interface {
	ClassifyScene(ctx context.Context, text string) (scene string, confidence float64, err error)
}

// DefaultSemanticTimeout bounds the semantic layer when no timeout is set.
const DefaultSemanticTimeout = 10 * time.Second

const (
	sceneConflict = "冲突"
	sceneEmotion  = "情绪"
)

// SceneClassifier is the quick three-layer classifier: keyword rules, then
// sentiment with keywords, then an optional semantic model.
type SceneClassifier struct {
	lex  *lexicon.Cache
	ai   SemanticClassifier
	opts options
}

// NewScene creates a three-layer classifier. ai may be nil.
func NewScene(lex *lexicon.Cache, ai SemanticClassifier, opts ...Option) *SceneClassifier {
	return &SceneClassifier{lex: lex, ai: ai, opts: buildOptions(opts)}
}

// Classify stops at the first layer that reaches the threshold. The semantic
// layer replaces the second layer's answer only when it is more confident.
func (s *SceneClassifier) Classify(ctx context.Context, text string, useAI bool) Result {
	t := s.lex.Load()
	norm := lexicon.Normalize(text)

	rule := scoring.ScoreKeywords(norm, t.Scenes)
	if rule.Confidence >= s.opts.threshold {
		r := ruleResult(rule)
		r.Explanation = "检测到" + rule.Category + "相关关键词"
		return r
	}

	scene, conf := sentimentKeywordLayer(norm, t, rule)
	layer2 := Result{
		Category:        scene,
		Confidence:      conf,
		Method:          MethodSentimentKeyword,
		MatchedKeywords: nonNil(scoring.Matched(norm, t.Scene(scene))),
		Explanation:     "基于情感和关键词分析",
	}
	if conf >= s.opts.threshold || !useAI || s.ai == nil {
		return layer2
	}

	v, ok := s.semantic(ctx, text)
	if ok && v.conf > conf && v.scene != "" {
		return Result{
			Category:        v.scene,
			Confidence:      min(1, v.conf),
			Method:          MethodAISemantic,
			MatchedKeywords: []string{},
			Explanation:     "基于语义模型理解",
		}
	}
	return layer2
}

type verdict struct {
	scene string
	conf  float64
	err   error
}

// semantic asks the model under the configured deadline. It returns as soon
// as the deadline passes even if the model ignores ctx.
func (s *SceneClassifier) semantic(ctx context.Context, text string) (verdict, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.semanticTimeout)
	defer cancel()

	done := make(chan verdict, 1)
	go func() {
		scene, conf, err := s.ai.ClassifyScene(ctx, text)
		done <- verdict{scene, conf, err}
	}()

	select {
	case v := <-done:
		if v.err != nil {
			logging.Warn("Semantic scene classification failed", "error", v.err)
			return v, false
		}
		return v, true
	case <-ctx.Done():
		logging.Warn("Semantic scene classification timed out", "timeout", s.opts.semanticTimeout)
		return verdict{}, false
	}
}

// sentimentKeywordLayer maps strong sentiment to 冲突 or 情绪, else keeps a
// moderately confident keyword result, else gives up with 未知 at 0.5.
func sentimentKeywordLayer(text string, t *lexicon.Tables, rule scoring.KeywordMatch) (string, float64) {
	s := scoring.EstimateSentiment(text, t)
	pos, neg := s.PositiveScore, s.NegativeScore

	if neg > pos && neg > 2 {
		if len(scoring.Matched(text, t.Scene(sceneConflict))) > 0 {
			return sceneConflict, 0.75
		}
		return sceneEmotion, 0.7
	}
	if pos > neg && pos > 2 {
		return sceneEmotion, 0.7
	}
	if rule.Confidence > 0.6 {
		return rule.Category, rule.Confidence
	}
	return scoring.Unknown, 0.5
}
