package classify

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/decoder/internal/lexicon"
	"github.com/abelbrown/decoder/internal/scoring"
	"github.com/abelbrown/decoder/internal/template"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// failingStore is a template.Store whose every call fails.
type failingStore struct{}

func (failingStore) Templates(context.Context) ([]template.Template, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) Patterns(context.Context, string) ([]string, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) Suggestion(context.Context, string, string) (template.Suggestion, error) {
	return template.Suggestion{}, errors.New("disk on fire")
}

var outing = template.Template{
	Name: "outing",
	SubScenes: []template.SubScene{{
		Patterns: []string{"周末一起去爬山", "山顶风景很美", "记得带上水壶", "周末"},
	}},
}

var refusal = template.Template{
	Name: "refusal",
	SubScenes: []template.SubScene{{
		Type:     "拒绝",
		Patterns: []string{"算了吧", "改天再说", "下次吧", "不用了"},
	}},
}

func TestBehaviorSoftRefusalUsesRule(t *testing.T) {
	b := NewBehavior(lexicon.NewCache(nil), template.Defaults())
	r := b.Classify(context.Background(), "算了，下次吧")

	if r.Category != "拒绝" || r.Method != MethodRule {
		t.Fatalf("got %s/%s, want 拒绝/rule", r.Category, r.Method)
	}
	if r.Confidence < 0.5 || !near(r.Confidence, 0.85, 1e-9) {
		t.Errorf("confidence = %v, want 0.85", r.Confidence)
	}
	if r.LowConfidence {
		t.Error("should not be low confidence")
	}
	if r.MatchedTemplate != "" {
		t.Errorf("rule branch should not carry a template, got %q", r.MatchedTemplate)
	}
	if want := []string{"算了", "下次"}; !reflect.DeepEqual(r.MatchedKeywords, want) {
		t.Errorf("keywords = %v, want %v", r.MatchedKeywords, want)
	}
	if r.Explanation != "检测到「拒绝」相关关键词：算了, 下次" {
		t.Errorf("explanation = %q", r.Explanation)
	}
}

func TestBehaviorRuleAndTemplate(t *testing.T) {
	b := NewBehavior(lexicon.NewCache(nil), template.NewMemory(refusal))
	ev := b.Evaluate(context.Background(), "算了吧，改天再说，下次吧，不用了")
	r := ev.Result

	if r.Method != MethodRuleTemplate {
		t.Fatalf("method = %s, want rule+template (rule %.3f, template %.3f)",
			r.Method, ev.Rule.Confidence, ev.Template.Confidence)
	}
	if r.Category != ev.Rule.Category {
		t.Errorf("category %q should come from keywords (%q)", r.Category, ev.Rule.Category)
	}
	want := min(0.95, (ev.Rule.Confidence+ev.Template.Confidence)/2)
	if !near(r.Confidence, want, 1e-9) {
		t.Errorf("confidence = %v, want %v", r.Confidence, want)
	}
	if r.MatchedTemplate != "refusal" || len(r.MatchedKeywords) == 0 {
		t.Errorf("merged result should carry both: %+v", r)
	}
}

func TestBehaviorTemplateOnly(t *testing.T) {
	b := NewBehavior(lexicon.NewCache(nil), template.NewMemory(outing))
	r := b.Classify(context.Background(), "周末一起去爬山吧，山顶风景很美，记得带上水壶")

	if r.Method != MethodTemplate || r.LowConfidence {
		t.Fatalf("got %s low=%v, want confident template", r.Method, r.LowConfidence)
	}
	// Untyped sub-scene falls back to the template name.
	if r.Category != "outing" {
		t.Errorf("category = %q, want outing", r.Category)
	}
	if len(r.MatchedKeywords) != 0 {
		t.Errorf("template branch must not report keywords: %v", r.MatchedKeywords)
	}
	if r.Explanation != "模板匹配到「outing」场景" {
		t.Errorf("explanation = %q", r.Explanation)
	}
	// 1.7 + 1.6 + 1.6 + 1.2 = 6.1
	if !near(r.Confidence, 0.5+0.61*0.4, 1e-9) {
		t.Errorf("confidence = %v", r.Confidence)
	}
}

func TestBehaviorLowConfidence(t *testing.T) {
	ctx := context.Background()

	t.Run("rule wins", func(t *testing.T) {
		b := NewBehavior(lexicon.NewCache(nil), nil)
		r := b.Classify(ctx, "可以 也许")
		if !r.LowConfidence || r.Method != MethodRule {
			t.Fatalf("got %+v", r)
		}
		// equal scores, 暗示 is listed before 请求
		if r.Category != "暗示" || !near(r.Confidence, 0.675, 1e-9) {
			t.Errorf("got %s %.3f, want 暗示 0.675", r.Category, r.Confidence)
		}
	})

	t.Run("template wins", func(t *testing.T) {
		b := NewBehavior(lexicon.NewCache(nil), template.NewMemory(outing))
		r := b.Classify(ctx, "周末")
		if !r.LowConfidence || r.Method != MethodTemplate || r.Category != "outing" {
			t.Fatalf("got %+v", r)
		}
	})

	t.Run("nothing matches", func(t *testing.T) {
		b := NewBehavior(lexicon.NewCache(nil), template.Defaults())
		r := b.Classify(ctx, "")
		if r.Category != scoring.Unknown || r.Confidence != 0 || !r.LowConfidence {
			t.Fatalf("got %+v", r)
		}
		if r.MatchedKeywords == nil {
			t.Error("matched keywords should be an empty list, not nil")
		}
	})
}

func TestBehaviorTemplateStoreFailure(t *testing.T) {
	b := NewBehavior(lexicon.NewCache(nil), failingStore{})
	ev := b.Evaluate(context.Background(), "算了，下次吧")
	if ev.TemplateErr == nil {
		t.Fatal("expected template error to be recorded")
	}
	if ev.Template.Category != scoring.Unknown || ev.Template.Confidence != 0 {
		t.Errorf("failed template side = %+v", ev.Template)
	}
	if ev.Result.Category != "拒绝" || ev.Result.Method != MethodRule {
		t.Errorf("keyword result should stand: %+v", ev.Result)
	}
}

func TestBehaviorThresholdOption(t *testing.T) {
	b := NewBehavior(lexicon.NewCache(nil), nil, WithThreshold(0.9))
	r := b.Classify(context.Background(), "算了，下次吧")
	if !r.LowConfidence {
		t.Error("0.85 should be low confidence under a 0.9 threshold")
	}
}

func TestDirection(t *testing.T) {
	d := NewDirection(lexicon.NewCache(nil))
	tests := []struct {
		text    string
		dir     Direction
		emotion string
		conf    float64
	}{
		{"我想死", DirectionRisky, "平静", 0.7},
		{"太开心了开心高兴但是我想死", DirectionRisky, "开心", 0.95},
		{"我今天很开心", DirectionPositive, "开心", 0.63},
		{"有点尴尬", DirectionNegative, "尴尬", 0.58},
		{"周三开会", DirectionNeutral, "平静", 0.5},
		{"失败", DirectionNegative, "难过", 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := d.Classify(tt.text)
			if r.Direction != tt.dir || r.EmotionType != tt.emotion {
				t.Fatalf("got %s/%s, want %s/%s", r.Direction, r.EmotionType, tt.dir, tt.emotion)
			}
			if !near(r.Confidence, tt.conf, 0.011) {
				t.Errorf("confidence = %v, want ~%v", r.Confidence, tt.conf)
			}
			if r.IsRisky != (tt.dir == DirectionRisky) {
				t.Errorf("is_risky = %v", r.IsRisky)
			}
		})
	}
}

func TestDirectionRiskyExplanation(t *testing.T) {
	r := NewDirection(lexicon.NewCache(nil)).Classify("我想死")
	if r.Explanation != "检测到高风险情绪：平静（强度0.5），需要关注" {
		t.Errorf("explanation = %q", r.Explanation)
	}
	if r.RiskTrigger != scoring.TriggerExtremeTerm {
		t.Errorf("trigger = %q", r.RiskTrigger)
	}
}

type fakeSemantic struct {
	mu    sync.Mutex
	calls int
	scene string
	conf  float64
	err   error
}

func (f *fakeSemantic) ClassifyScene(ctx context.Context, text string) (string, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.scene, f.conf, f.err
}

func TestSceneClassifierLayers(t *testing.T) {
	ctx := context.Background()
	lex := lexicon.NewCache(nil)

	t.Run("rule layer", func(t *testing.T) {
		r := NewScene(lex, nil).Classify(ctx, "算了，下次吧", true)
		if r.Method != MethodRule || r.Category != "拒绝" {
			t.Fatalf("got %+v", r)
		}
	})

	t.Run("sentiment keyword conflict", func(t *testing.T) {
		r := NewScene(lex, nil).Classify(ctx, "糟糕 失败 痛苦 烦", true)
		if r.Method != MethodSentimentKeyword || r.Category != "冲突" || r.Confidence != 0.75 {
			t.Fatalf("got %+v", r)
		}
	})

	t.Run("ai more confident", func(t *testing.T) {
		ai := &fakeSemantic{scene: "请求", conf: 0.8}
		r := NewScene(lex, ai).Classify(ctx, "周三开会", true)
		if r.Method != MethodAISemantic || r.Category != "请求" || r.Confidence != 0.8 {
			t.Fatalf("got %+v", r)
		}
	})

	t.Run("ai less confident", func(t *testing.T) {
		ai := &fakeSemantic{scene: "请求", conf: 0.4}
		r := NewScene(lex, ai).Classify(ctx, "周三开会", true)
		if r.Method != MethodSentimentKeyword || r.Category != scoring.Unknown || r.Confidence != 0.5 {
			t.Fatalf("got %+v", r)
		}
	})

	t.Run("ai error", func(t *testing.T) {
		ai := &fakeSemantic{err: errors.New("boom")}
		r := NewScene(lex, ai).Classify(ctx, "周三开会", true)
		if r.Method != MethodSentimentKeyword {
			t.Fatalf("got %+v", r)
		}
	})

	t.Run("ai disabled", func(t *testing.T) {
		ai := &fakeSemantic{scene: "请求", conf: 0.9}
		r := NewScene(lex, ai).Classify(ctx, "周三开会", false)
		if r.Method != MethodSentimentKeyword || ai.calls != 0 {
			t.Fatalf("got %+v after %d calls", r, ai.calls)
		}
	})
}

// stuckSemantic never answers until release is closed, whatever ctx says.
type stuckSemantic struct{ release chan struct{} }

func (s stuckSemantic) ClassifyScene(context.Context, string) (string, float64, error) {
	<-s.release
	return "请求", 0.99, nil
}

func TestSceneClassifierSemanticTimeout(t *testing.T) {
	ai := stuckSemantic{release: make(chan struct{})}
	defer close(ai.release)

	c := NewScene(lexicon.NewCache(nil), ai, WithSemanticTimeout(50*time.Millisecond))
	start := time.Now()
	r := c.Classify(context.Background(), "周三开会", true)

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Classify blocked for %v", elapsed)
	}
	if r.Method != MethodSentimentKeyword || r.Category != scoring.Unknown {
		t.Errorf("got %+v, want sentiment_keyword fallback", r)
	}
}

func TestClassifiersAreIdempotent(t *testing.T) {
	ctx := context.Background()
	lex := lexicon.NewCache(nil)
	b := NewBehavior(lex, template.Defaults())
	d := NewDirection(lex)
	text := "算了吧，我有点难过，下次再说"

	if !reflect.DeepEqual(b.Classify(ctx, text), b.Classify(ctx, text)) {
		t.Error("tier-1 not idempotent")
	}
	if !reflect.DeepEqual(d.Classify(text), d.Classify(text)) {
		t.Error("tier-2 not idempotent")
	}
}
