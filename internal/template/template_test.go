package template

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestDefaultsLoadInFileOrder(t *testing.T) {
	ts, err := Defaults().Templates(context.Background())
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}
	want := []string{"conflict", "emotion", "gratitude", "hint", "refusal", "request"}
	if len(ts) != len(want) {
		t.Fatalf("got %d templates, want %d", len(ts), len(want))
	}
	for i, name := range want {
		if ts[i].Name != name {
			t.Errorf("template %d = %q, want %q", i, ts[i].Name, name)
		}
		if len(ts[i].SubScenes) == 0 {
			t.Errorf("template %q has no sub-scenes", name)
		}
	}
}

func TestPatterns(t *testing.T) {
	ctx := context.Background()
	s := Defaults()

	p, err := s.Patterns(ctx, "拒绝")
	if err != nil {
		t.Fatal(err)
	}
	if len(p) == 0 || p[0] != "下次吧" {
		t.Errorf("拒绝 patterns = %v", p)
	}

	// Template name selects every sub-scene.
	all, _ := s.Patterns(ctx, "conflict")
	one, _ := s.Patterns(ctx, "冲突")
	if len(all) <= len(one) {
		t.Errorf("template-wide patterns (%d) should exceed one sub-scene (%d)", len(all), len(one))
	}

	none, err := s.Patterns(ctx, "不存在")
	if err != nil || len(none) != 0 {
		t.Errorf("unknown category: %v, %v", none, err)
	}
}

func TestSuggestionPrefersBestMatchingSubScene(t *testing.T) {
	m := NewMemory(Template{
		Name: "mixed",
		SubScenes: []SubScene{
			{Type: "请求", Patterns: []string{"可以吗"}, SuggestionSteps: []string{"first"}},
			{Type: "请求", Patterns: []string{"能不能帮我"}, SuggestionSteps: []string{"second"}},
		},
	})

	sg, err := m.Suggestion(context.Background(), "请求", "你能不能帮我看看")
	if err != nil {
		t.Fatal(err)
	}
	if len(sg.Suggestions) != 1 || sg.Suggestions[0] != "second" {
		t.Errorf("suggestions = %v, want [second]", sg.Suggestions)
	}
	if sg.MatchedPattern != "能不能帮我" {
		t.Errorf("matched pattern = %q", sg.MatchedPattern)
	}

	// No pattern hit: first sub-scene.
	sg, _ = m.Suggestion(context.Background(), "请求", "嗯")
	if sg.Suggestions[0] != "first" {
		t.Errorf("suggestions = %v, want [first]", sg.Suggestions)
	}
}

func TestSuggestionNotFound(t *testing.T) {
	sg, err := Defaults().Suggestion(context.Background(), "不存在", "text")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !sg.IsZero() {
		t.Errorf("suggestion should be zero, got %+v", sg)
	}
}

func TestFSStoreSkipsMalformedFile(t *testing.T) {
	fsys := fstest.MapFS{
		"a.json": {Data: []byte(`{"sub_scenes":[{"type":"拒绝","patterns":["改天"]}]}`)},
		"b.json": {Data: []byte(`{not json`)},
		"c.txt":  {Data: []byte(`ignored`)},
	}
	ts, err := NewFS(fsys).Templates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 1 || ts[0].Name != "a" {
		t.Errorf("templates = %+v", ts)
	}
}

func TestFSStoreReload(t *testing.T) {
	dir := t.TempDir()
	write := func(body string) {
		if err := os.WriteFile(filepath.Join(dir, "x.json"), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(`{"sub_scenes":[{"type":"A","patterns":["one"]}]}`)

	s := NewDir(dir)
	ctx := context.Background()
	if p, _ := s.Patterns(ctx, "A"); len(p) != 1 {
		t.Fatalf("patterns = %v", p)
	}

	write(`{"sub_scenes":[{"type":"A","patterns":["one","two"]}]}`)
	if p, _ := s.Patterns(ctx, "A"); len(p) != 1 {
		t.Errorf("cached patterns changed before Reload: %v", p)
	}
	s.Reload()
	if p, _ := s.Patterns(ctx, "A"); len(p) != 2 {
		t.Errorf("patterns after Reload = %v", p)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory().Templates(ctx); err == nil {
		t.Error("expected context error")
	}
	if _, err := Defaults().Templates(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestPatternScore(t *testing.T) {
	score, first := PatternScore("算了,下次吧", []string{"改天吧", "下次吧", "算了"})
	// 下次吧 1.3 + 算了 1.2
	if score < 2.49 || score > 2.51 {
		t.Errorf("score = %v, want 2.5", score)
	}
	if first != "下次吧" {
		t.Errorf("first = %q", first)
	}
}
