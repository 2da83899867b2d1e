package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/decoder/internal/risk"
	"github.com/abelbrown/decoder/internal/store"
)

// makeLogs creates n decodes one minute apart, all in the "Just Now" band
// for n <= 15.
func makeLogs(n int) []store.DecodeLog {
	now := time.Now()
	logs := make([]store.DecodeLog, n)
	for i := range logs {
		logs[i] = store.DecodeLog{
			ID:         fmt.Sprintf("id-%03d", i),
			Text:       fmt.Sprintf("decode text %03d", i),
			FinalScene: "拒绝",
			RiskLevel:  string(risk.Low),
			CreatedAt:  now.Add(-time.Duration(i) * time.Minute),
		}
	}
	return logs
}

// makeBandedLogs puts the first 5 in "Just Now", the next 10 in
// "Past Hour" and the rest in "Today".
func makeBandedLogs(n int) []store.DecodeLog {
	logs := makeLogs(n)
	now := time.Now()
	for i := range logs {
		switch {
		case i < 5:
		case i < 15:
			logs[i].CreatedAt = now.Add(-20*time.Minute - time.Duration(i)*time.Minute)
		default:
			logs[i].CreatedAt = now.Add(-2*time.Hour - time.Duration(i)*time.Minute)
		}
	}
	return logs
}

func TestTimeBand(t *testing.T) {
	now := time.Now()
	tests := []struct {
		age  time.Duration
		want string
	}{
		{time.Minute, "Just Now"},
		{30 * time.Minute, "Past Hour"},
		{5 * time.Hour, "Today"},
		{30 * time.Hour, "Yesterday"},
		{72 * time.Hour, "Older"},
	}
	for _, tt := range tests {
		if got := TimeBand(now.Add(-tt.age)); got != tt.want {
			t.Errorf("TimeBand(-%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestVisibleLineCount(t *testing.T) {
	logs := makeBandedLogs(20)

	// 1 header + 5 entries
	if got := visibleLineCount(logs, 0, 4); got != 6 {
		t.Errorf("visibleLineCount(0,4) = %d, want 6", got)
	}
	// crosses into "Past Hour": 2 headers + 6 entries
	if got := visibleLineCount(logs, 0, 5); got != 8 {
		t.Errorf("visibleLineCount(0,5) = %d, want 8", got)
	}
	// predecessor is in another band, so a header starts the range
	if got := visibleLineCount(logs, 5, 5); got != 2 {
		t.Errorf("visibleLineCount(5,5) = %d, want 2", got)
	}
	// same band as predecessor: no header
	if got := visibleLineCount(logs, 6, 10); got != 5 {
		t.Errorf("visibleLineCount(6,10) = %d, want 5", got)
	}
}

func TestCalcScrollOffsetCursorAlwaysVisible(t *testing.T) {
	logs := makeBandedLogs(50)

	for height := 5; height <= 20; height += 5 {
		for cursor := 0; cursor < len(logs); cursor++ {
			offset := calcScrollOffset(logs, cursor, height)
			if lines := visibleLineCount(logs, offset, cursor); lines > height {
				t.Fatalf("height=%d cursor=%d offset=%d: lines=%d exceeds viewport",
					height, cursor, offset, lines)
			}
			if offset > cursor {
				t.Fatalf("height=%d cursor=%d: offset=%d > cursor", height, cursor, offset)
			}
		}
	}
}

func TestCalcScrollOffsetEmpty(t *testing.T) {
	if got := calcScrollOffset(nil, 3, 10); got != 0 {
		t.Errorf("offset = %d, want 0", got)
	}
}

func TestRenderHistoryNoOverRender(t *testing.T) {
	logs := makeBandedLogs(200)
	out := RenderHistory(logs, 120, 80, 30)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) > 30 {
		t.Errorf("rendered %d lines, want <= 30", len(lines))
	}
	if !strings.Contains(out, logs[120].Text) {
		t.Error("cursor entry should be visible")
	}
}

func TestRenderHistoryCursorVisible(t *testing.T) {
	logs := makeBandedLogs(40)
	for _, cursor := range []int{0, 4, 5, 14, 15, 39} {
		out := RenderHistory(logs, cursor, 80, 10)
		if !strings.Contains(out, logs[cursor].Text) {
			t.Errorf("cursor=%d: entry not in output", cursor)
		}
	}
}

func TestRenderHistoryEmpty(t *testing.T) {
	if out := RenderHistory(nil, 0, 80, 10); !strings.Contains(out, "No decodes yet") {
		t.Errorf("empty history = %q", out)
	}
}

func TestRenderHistoryLineRiskMarker(t *testing.T) {
	l := makeLogs(1)[0]
	if strings.Contains(stripANSI(renderHistoryLine(l, false, 80)), "!") {
		t.Error("low risk should have no marker")
	}
	l.RiskLevel = string(risk.High)
	if !strings.Contains(stripANSI(renderHistoryLine(l, false, 80)), "!") {
		t.Error("high risk should be marked")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"今天很开心但是", 5, "今天..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

// stripANSI drops SGR escape sequences.
func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == 0x1b:
			inEsc = true
		case inEsc && r == 'm':
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
