package ui

import (
	"fmt"
	"strings"

	"github.com/abelbrown/decoder/internal/decode"
	"github.com/abelbrown/decoder/internal/risk"
)

// RenderResult renders one decode: verdict, risk, advice and a one-line
// summary per tier.
func RenderResult(res decode.Result, width int) string {
	inner := width - 4
	if inner < 20 {
		inner = 20
	}

	var lines []string
	field := func(label, value string) {
		lines = append(lines, ResultLabel.Render(label)+value)
	}

	field("Text", truncateRunes(res.Text, inner-8))
	field("Scene", ResultScene.Render(res.FinalScene)+fmt.Sprintf("  %.2f", res.Confidence))

	r := res.Risk
	riskLine := riskStyle(r.RiskLevel).Render(string(r.RiskLevel))
	if r.RiskLevel != risk.Low {
		detail := r.RiskType
		if len(r.Reasons) > 0 {
			detail += " (" + strings.Join(r.Reasons, "; ") + ")"
		}
		riskLine += "  " + truncateRunes(detail, inner-16)
	}
	field("Risk", riskLine)
	for _, s := range r.Suggestions {
		lines = append(lines, "        "+riskStyle(r.RiskLevel).Render("› ")+s)
	}

	t := res.Trace
	lines = append(lines, "")
	field("Tier 1", fmt.Sprintf("%s %.2f [%s]", t.Level1.Category, t.Level1.Confidence, t.Level1.Method))
	field("Tier 2", fmt.Sprintf("%s/%s %.2f", t.Level2.Direction, t.Level2.EmotionType, t.Level2.Confidence))
	tier3 := string(t.Level3.Status)
	if t.Level3.Reason != "" {
		tier3 += ": " + t.Level3.Reason
	}
	field("Tier 3", truncateRunes(tier3, inner-8))

	s := res.Suggestion
	if s.Explanation != "" || len(s.Suggestions) > 0 || len(s.DoNot) > 0 {
		lines = append(lines, "")
		if s.Explanation != "" {
			field("Means", truncateRunes(s.Explanation, inner-8))
		}
		for _, item := range s.Suggestions {
			lines = append(lines, "  + "+truncateRunes(item, inner-4))
		}
		for _, item := range s.DoNot {
			lines = append(lines, DoNotItem.Render("  - "+truncateRunes(item, inner-4)))
		}
	}

	lines = append(lines, MetaItem.Render(fmt.Sprintf("id %s  refinement=%s suggestion=%s log=%s",
		shortID(res.ID), res.Stages.Refinement, res.Stages.Suggestion, res.Stages.Log)))

	return ResultPanel.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
