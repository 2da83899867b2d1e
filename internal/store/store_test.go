package store

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/decoder/internal/risk"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen(t *testing.T) {
	st := openTest(t)

	for _, table := range []string{"emotion_history", "profiles", "decode_logs", "feedback"} {
		var name string
		err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Fatalf("%s table not created: %v", table, err)
		}
	}
}

func TestOpenFile(t *testing.T) {
	path := t.TempDir() + "/decoder.db"
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := st.SaveDecode(context.Background(), DecodeLog{Text: "x", FinalScene: "拒绝"}); err != nil {
		t.Fatal(err)
	}
	st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st.Close()
	logs, err := st.RecentDecodes(context.Background(), 10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("got %d logs, err %v", len(logs), err)
	}
}

func TestRecentModalityUsage(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	records := []EmotionRecord{
		{UserID: "u1", Modality: "text", Emotion: "sad", Confidence: 0.8, Intensity: 0.8},
		{UserID: "u1", Modality: "text", Emotion: "sad", Confidence: 0.7, Intensity: 0.7, CreatedAt: now.Add(-time.Hour)},
		{UserID: "u1", Modality: "voice", Emotion: "neutral", Confidence: 0.5, Intensity: 0.5, CreatedAt: now.Add(-48 * time.Hour)},
		// outside the window
		{UserID: "u1", Modality: "face", Emotion: "happy", Confidence: 0.6, Intensity: 0.6, CreatedAt: now.Add(-8 * 24 * time.Hour)},
		{UserID: "u2", Modality: "face", Emotion: "happy", Confidence: 0.6, Intensity: 0.6},
	}
	if err := st.RecordEmotions(ctx, records); err != nil {
		t.Fatal(err)
	}

	counts, total, err := st.RecentModalityUsage(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if want := map[string]int{"text": 2, "voice": 1}; !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}

	counts, total, err = st.RecentModalityUsage(ctx, "nobody")
	if err != nil || total != 0 || len(counts) != 0 {
		t.Errorf("unknown user: %v %d %v", counts, total, err)
	}
}

func TestRecentEmotionsOrderAndLimit(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var records []EmotionRecord
	for i := 0; i < 5; i++ {
		records = append(records, EmotionRecord{
			UserID: "u", Modality: "text", Emotion: "sad",
			Confidence: float64(i) / 10, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	if err := st.RecordEmotions(ctx, records); err != nil {
		t.Fatal(err)
	}

	got, err := st.RecentEmotions(ctx, "u", base.Add(-time.Hour), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Confidence != 0.4 || !got[0].CreatedAt.Equal(base.Add(4*time.Minute)) {
		t.Errorf("newest first: got %+v", got[0])
	}
}

func TestProfileDefaultAndSave(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	p, err := st.Profile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p, risk.DefaultProfile("u1")) {
		t.Errorf("missing profile = %+v, want default", p)
	}

	want := risk.Profile{
		UserID:        "u1",
		TriggerWords:  []string{"考试", "面试"},
		Sensitivity:   0.8,
		RiskThreshold: 0.6,
		RecentTrend:   risk.TrendDeclining,
	}
	if err := st.SaveProfile(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := st.Profile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	want.Sensitivity = 0.3
	want.TriggerWords = nil
	want.RecentTrend = ""
	if err := st.SaveProfile(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, _ = st.Profile(ctx, "u1")
	if got.Sensitivity != 0.3 || len(got.TriggerWords) != 0 || got.RecentTrend != risk.TrendStable {
		t.Errorf("upsert: got %+v", got)
	}

	sens, err := st.Sensitivity(ctx, "u1")
	if err != nil || sens != 0.3 {
		t.Errorf("sensitivity = %v, %v", sens, err)
	}

	if err := st.SaveProfile(ctx, risk.Profile{}); err == nil {
		t.Error("profile without user id should be rejected")
	}
}

func TestDecodeLogAndFeedback(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	id, err := st.SaveDecode(ctx, DecodeLog{
		UserID:     "u1",
		Text:       "算了，下次吧",
		FinalScene: "拒绝",
		Confidence: 0.85,
		RiskLevel:  "low",
		Result:     json.RawMessage(`{"final_scene":"拒绝"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	logs, err := st.RecentDecodes(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].ID != id || logs[0].FinalScene != "拒绝" || string(logs[0].Result) != `{"final_scene":"拒绝"}` {
		t.Errorf("got %+v", logs)
	}

	if err := st.SaveFeedback(ctx, id, FeedbackCorrect, ""); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveFeedback(ctx, id, FeedbackHelpful, "很有用"); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveFeedback(ctx, id, FeedbackCorrect, ""); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveFeedback(ctx, id, "meh", ""); err == nil {
		t.Error("unknown kind should be rejected")
	}
	if err := st.SaveFeedback(ctx, "missing", FeedbackCorrect, ""); err == nil {
		t.Error("feedback on a missing decode should be rejected")
	}

	counts, err := st.FeedbackCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := map[FeedbackKind]int{FeedbackCorrect: 2, FeedbackHelpful: 1}; !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.RecordEmotions(ctx, []EmotionRecord{{UserID: "u", Modality: "voice", Emotion: "neutral"}})
		}()
		go func() {
			defer wg.Done()
			st.RecentModalityUsage(ctx, "u")
		}()
	}
	wg.Wait()

	_, total, err := st.RecentModalityUsage(ctx, "u")
	if err != nil || total != 10 {
		t.Errorf("total = %d, err %v", total, err)
	}
}
