package decode

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/abelbrown/decoder/internal/classify"
	"github.com/abelbrown/decoder/internal/lexicon"
	"github.com/abelbrown/decoder/internal/refine"
	"github.com/abelbrown/decoder/internal/risk"
	"github.com/abelbrown/decoder/internal/scoring"
	"github.com/abelbrown/decoder/internal/store"
	"github.com/abelbrown/decoder/internal/template"
)

// sceneRefiner always answers with a fixed scene.
type sceneRefiner struct {
	scene string
	conf  float64
	calls atomic.Int32
}

func (r *sceneRefiner) Refine(_ context.Context, _ string, _ classify.Result, _ classify.DirectionResult) (refine.Result, error) {
	r.calls.Add(1)
	return refine.Result{FinalScene: r.scene, Confidence: r.conf, Reason: "语义更接近" + r.scene, Provider: "fake"}, nil
}

type brokenTemplates struct{}

func (brokenTemplates) Templates(context.Context) ([]template.Template, error) {
	return nil, errors.New("templates offline")
}
func (brokenTemplates) Patterns(context.Context, string) ([]string, error) {
	return nil, errors.New("templates offline")
}
func (brokenTemplates) Suggestion(context.Context, string, string) (template.Suggestion, error) {
	return template.Suggestion{}, errors.New("templates offline")
}

type brokenLog struct{}

func (brokenLog) SaveDecode(context.Context, store.DecodeLog) (string, error) {
	return "", errors.New("read-only database")
}

func newOrchestrator(opts ...Option) *Orchestrator {
	opts = append([]Option{WithTemplates(template.Defaults())}, opts...)
	return NewOrchestrator(lexicon.NewCache(nil), opts...)
}

func TestDecodeSoftRefusalWithoutAI(t *testing.T) {
	o := newOrchestrator()
	res := o.Decode(context.Background(), Request{Text: "算了，下次吧"})

	l1 := res.Trace.Level1
	if l1.Category != "拒绝" || l1.Method != classify.MethodRule || l1.Confidence < 0.5 {
		t.Fatalf("level1 = %s/%s/%v, want 拒绝/rule/>=0.5", l1.Category, l1.Method, l1.Confidence)
	}
	if res.FinalScene != "拒绝" || res.Confidence != l1.Confidence {
		t.Errorf("final = %s/%v, want tier-1 verdict", res.FinalScene, res.Confidence)
	}
	l3 := res.Trace.Level3
	if l3.Status != refine.StatusDisabled || l3.Reason != refine.ReasonDisabled {
		t.Errorf("level3 = %s/%q, want disabled", l3.Status, l3.Reason)
	}
	if l3.Refinements.CategoryChanged || l3.Refinements.FinalCategory != "拒绝" {
		t.Errorf("refinements = %+v", l3.Refinements)
	}
	if res.Stages.Suggestion != StageOK || len(res.Suggestion.Suggestions) == 0 {
		t.Errorf("suggestion = %s/%+v", res.Stages.Suggestion, res.Suggestion)
	}
	if res.Stages.Log != StageSkipped {
		t.Errorf("log stage = %s, want skipped", res.Stages.Log)
	}
	if res.ID == "" {
		t.Error("missing request ID")
	}
}

func TestDecodeSelfHarmIsHighRisk(t *testing.T) {
	o := newOrchestrator()
	res := o.Decode(context.Background(), Request{Text: "今天很开心，但我真的不想活了"})

	if res.Risk.RiskLevel != risk.High {
		t.Errorf("risk = %s, want high", res.Risk.RiskLevel)
	}
	if res.Trace.Level2.Direction != classify.DirectionRisky || !res.Trace.Level2.IsRisky {
		t.Errorf("direction = %s, want risky", res.Trace.Level2.Direction)
	}
}

func TestDecodeHighRiskWordsAreRisky(t *testing.T) {
	o := newOrchestrator()
	for _, w := range risk.DefaultWords().High {
		t.Run(w, func(t *testing.T) {
			res := o.Decode(context.Background(), Request{Text: "我" + w})
			if res.Risk.RiskLevel != risk.High {
				t.Errorf("risk = %s, want high", res.Risk.RiskLevel)
			}
			if res.Trace.Level2.Direction != classify.DirectionRisky || !res.Trace.Level2.IsRisky {
				t.Errorf("direction = %s, want risky", res.Trace.Level2.Direction)
			}
		})
	}
}

func TestDecodeRefinedCategoryChange(t *testing.T) {
	r := &sceneRefiner{scene: "冲突", conf: 0.9}
	o := newOrchestrator(WithRefiner(r, 0))
	res := o.Decode(context.Background(), Request{Text: "算了，下次吧", UseAI: true})

	if r.calls.Load() != 1 {
		t.Fatalf("refiner calls = %d, want 1", r.calls.Load())
	}
	if res.FinalScene != "冲突" || res.Confidence != 0.9 {
		t.Errorf("final = %s/%v, want 冲突/0.9", res.FinalScene, res.Confidence)
	}
	ref := res.Trace.Level3.Refinements
	if !ref.CategoryChanged || ref.OriginalCategory != "拒绝" || ref.FinalCategory != "冲突" {
		t.Errorf("refinements = %+v", ref)
	}
	if math.Abs(ref.ConfidenceBoost-0.05) > 1e-9 {
		t.Errorf("boost = %v, want 0.05", ref.ConfidenceBoost)
	}
	if res.Stages.Refinement != refine.StatusRefined {
		t.Errorf("refinement stage = %s", res.Stages.Refinement)
	}
	if !strings.Contains(res.Explanation, "拒绝 → 冲突") {
		t.Errorf("explanation does not note the change:\n%s", res.Explanation)
	}
}

func TestDecodeDisabledSkipsRefiner(t *testing.T) {
	r := &sceneRefiner{scene: "冲突", conf: 0.9}
	o := newOrchestrator(WithRefiner(r, 0))
	res := o.Decode(context.Background(), Request{Text: "算了，下次吧"})

	if r.calls.Load() != 0 {
		t.Errorf("refiner called %d times with AI off", r.calls.Load())
	}
	if res.FinalScene != "拒绝" {
		t.Errorf("final = %s", res.FinalScene)
	}
}

func TestDecodeWithoutRefinerFallsBack(t *testing.T) {
	o := newOrchestrator()
	res := o.Decode(context.Background(), Request{Text: "算了，下次吧", UseAI: true})

	if res.Trace.Level3.Status != refine.StatusUnavailable {
		t.Errorf("status = %s, want unavailable", res.Trace.Level3.Status)
	}
	if res.FinalScene != res.Trace.Level1.Category {
		t.Errorf("final %s != level1 %s", res.FinalScene, res.Trace.Level1.Category)
	}
}

func TestDecodeSuggestionStages(t *testing.T) {
	t.Run("unknown scene", func(t *testing.T) {
		o := newOrchestrator(WithRefiner(&sceneRefiner{scene: "没有模板的场景", conf: 0.8}, 0))
		res := o.Decode(context.Background(), Request{Text: "算了，下次吧", UseAI: true})
		if res.Stages.Suggestion != StageEmpty {
			t.Errorf("stage = %s, want empty", res.Stages.Suggestion)
		}
		if res.Suggestion.Suggestions == nil || res.Suggestion.DoNot == nil {
			t.Error("empty suggestion should carry empty lists")
		}
	})
	t.Run("store failure", func(t *testing.T) {
		o := NewOrchestrator(lexicon.NewCache(nil), WithTemplates(brokenTemplates{}))
		res := o.Decode(context.Background(), Request{Text: "算了，下次吧"})
		if res.Stages.Suggestion != StageFailed {
			t.Errorf("stage = %s, want failed", res.Stages.Suggestion)
		}
		if res.Trace.Level1.Category != "拒绝" {
			t.Errorf("keywords alone should still find 拒绝, got %s", res.Trace.Level1.Category)
		}
	})
	t.Run("no store", func(t *testing.T) {
		o := NewOrchestrator(lexicon.NewCache(nil))
		res := o.Decode(context.Background(), Request{Text: "算了，下次吧"})
		if res.Stages.Suggestion != StageSkipped {
			t.Errorf("stage = %s, want skipped", res.Stages.Suggestion)
		}
	})
}

func TestDecodePersists(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "decoder.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	o := newOrchestrator(WithDecodeLog(st))
	res := o.Decode(context.Background(), Request{Text: "算了，下次吧", UserID: "u1"})
	if res.Stages.Log != StageOK {
		t.Fatalf("log stage = %s", res.Stages.Log)
	}

	logs, err := st.RecentDecodes(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentDecodes: %v", err)
	}
	if len(logs) != 1 || logs[0].ID != res.ID || logs[0].FinalScene != "拒绝" || logs[0].UserID != "u1" {
		t.Fatalf("logs = %+v", logs)
	}
	if !strings.Contains(string(logs[0].Result), `"classification_trace"`) {
		t.Errorf("stored payload missing trace: %s", logs[0].Result)
	}
}

func TestDecodePersistFailure(t *testing.T) {
	o := newOrchestrator(WithDecodeLog(brokenLog{}))
	res := o.Decode(context.Background(), Request{Text: "算了，下次吧"})
	if res.Stages.Log != StageFailed {
		t.Errorf("log stage = %s, want failed", res.Stages.Log)
	}
	if res.FinalScene != "拒绝" {
		t.Errorf("final = %s", res.FinalScene)
	}
}

func TestDecodeEmptyText(t *testing.T) {
	o := newOrchestrator()
	res := o.Decode(context.Background(), Request{})
	if res.Trace.Level1.Category == "" || res.FinalScene == "" {
		t.Errorf("empty text should still give a category, got %q", res.FinalScene)
	}
	if res.Risk.RiskLevel != risk.Low {
		t.Errorf("risk = %s, want low", res.Risk.RiskLevel)
	}
	if res.Analysis.Keywords == nil || len(res.Analysis.Keywords) != 0 {
		t.Errorf("keywords = %v", res.Analysis.Keywords)
	}
}

func TestBatchPreservesOrder(t *testing.T) {
	o := newOrchestrator()
	texts := []string{"算了，下次吧", "我今天很开心", "我真的不想活了", "周三开会", "改天吧"}
	reqs := make([]Request, len(texts))
	for i, s := range texts {
		reqs[i] = Request{Text: s}
	}

	got := o.Batch(context.Background(), reqs, 2)
	if len(got) != len(texts) {
		t.Fatalf("len = %d", len(got))
	}
	for i, r := range got {
		if r.Text != texts[i] {
			t.Errorf("result %d text = %q, want %q", i, r.Text, texts[i])
		}
		if r.ID == "" {
			t.Errorf("result %d not decoded", i)
		}
	}
	if got[2].Risk.RiskLevel != risk.High {
		t.Errorf("result 2 risk = %s", got[2].Risk.RiskLevel)
	}
}

func TestBatchCancelled(t *testing.T) {
	o := newOrchestrator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := o.Batch(ctx, []Request{{Text: "a"}, {Text: "b"}}, 0)
	for i, r := range got {
		if r.ID != "" {
			t.Errorf("result %d decoded after cancel", i)
		}
		if r.Text == "" {
			t.Errorf("result %d lost its text", i)
		}
	}
}

func TestAnalyze(t *testing.T) {
	a := Analyze("I love Go, I love 编程 123!", nil, scoring.Sentiment{Label: scoring.Positive, Confidence: 0.6})

	want := Stats{
		TotalChars:    25,
		TotalWords:    7,
		ChineseChars:  2,
		EnglishWords:  5,
		Numbers:       1,
		Punctuation:   2,
		AvgWordLength: 3.57,
	}
	if a.Stats != want {
		t.Errorf("stats = %+v, want %+v", a.Stats, want)
	}

	wantKw := []Keyword{{"love", 0.2857}, {"go", 0.1429}, {"编程", 0.1429}, {"123", 0.1429}}
	if len(a.Keywords) != len(wantKw) {
		t.Fatalf("keywords = %+v", a.Keywords)
	}
	for i, k := range wantKw {
		if a.Keywords[i] != k {
			t.Errorf("keyword %d = %+v, want %+v", i, a.Keywords[i], k)
		}
	}
	if a.Sentiment.Label != scoring.Positive {
		t.Errorf("sentiment = %s", a.Sentiment.Label)
	}
}

func TestAnalyzeStopWordsAndCap(t *testing.T) {
	a := Analyze("没有 自己 这 aa bb cc dd ee ff gg hh ii jj kk", lexicon.Default().StopWords, scoring.Sentiment{})
	if len(a.Keywords) != maxKeywords {
		t.Fatalf("len = %d, want %d", len(a.Keywords), maxKeywords)
	}
	if a.Keywords[0].Word != "aa" || a.Keywords[9].Word != "jj" {
		t.Errorf("keywords = %+v", a.Keywords)
	}
}

func TestExplainOrder(t *testing.T) {
	tr := Trace{
		Level1: classify.Result{Category: "拒绝", Method: classify.MethodRule, Confidence: 0.85, Explanation: "一级说明"},
		Level2: classify.DirectionResult{Direction: classify.DirectionNegative, EmotionType: "失望", Intensity: 0.6, Explanation: "二级说明"},
		Level3: refine.Fallback(classify.Result{Category: "拒绝", Confidence: 0.85}, refine.StatusDisabled, refine.ReasonDisabled),
	}
	got := Explain(tr)

	i1 := strings.Index(got, "一级说明")
	i2 := strings.Index(got, "二级说明")
	i3 := strings.Index(got, refine.ReasonDisabled)
	if i1 < 0 || i2 < i1 || i3 < i2 {
		t.Fatalf("tiers out of order:\n%s", got)
	}
	if !strings.HasPrefix(got, "## 分类过程说明") {
		t.Errorf("missing heading:\n%s", got)
	}
	if strings.Contains(got, "→") {
		t.Errorf("unchanged category should not be called out:\n%s", got)
	}
	if !strings.Contains(got, "- 置信度：0.85") || !strings.Contains(got, "- 强度：0.60") {
		t.Errorf("numbers not formatted:\n%s", got)
	}
}

func TestDecodeIsIdempotent(t *testing.T) {
	o := newOrchestrator()
	a := o.Decode(context.Background(), Request{Text: "有点尴尬，改天吧"})
	b := o.Decode(context.Background(), Request{Text: "有点尴尬，改天吧"})
	a.ID, b.ID = "", ""
	if a.Explanation != b.Explanation || a.FinalScene != b.FinalScene || a.Confidence != b.Confidence {
		t.Errorf("decodes differ:\n%+v\n%+v", a, b)
	}
}
