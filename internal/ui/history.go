package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/decoder/internal/risk"
	"github.com/abelbrown/decoder/internal/store"
)

// TimeBand returns a display string for grouping decodes by age.
func TimeBand(created time.Time) string {
	age := time.Since(created)
	switch {
	case age < 15*time.Minute:
		return "Just Now"
	case age < 1*time.Hour:
		return "Past Hour"
	case age < 24*time.Hour:
		return "Today"
	case age < 48*time.Hour:
		return "Yesterday"
	default:
		return "Older"
	}
}

// RenderHistory renders recent decodes grouped by time band. height is the
// number of lines available.
func RenderHistory(logs []store.DecodeLog, cursor int, width, height int) string {
	if len(logs) == 0 {
		return HelpStyle.Render("No decodes yet. Press / and type something to decode.")
	}
	if height < 1 {
		height = 1
	}

	var b strings.Builder
	currentBand := ""
	rendered := 0
	offset := calcScrollOffset(logs, cursor, height)

	for i, l := range logs {
		if rendered >= height {
			break
		}
		// Band state is tracked for skipped entries too so the first
		// visible header is correct.
		band := TimeBand(l.CreatedAt)
		if band != currentBand {
			currentBand = band
			if i >= offset {
				b.WriteString(TimeBandHeader.Render(band))
				b.WriteString("\n")
				rendered++
			}
		}
		if i < offset || rendered >= height {
			continue
		}
		b.WriteString(renderHistoryLine(l, i == cursor, width))
		b.WriteString("\n")
		rendered++
	}
	return b.String()
}

// calcScrollOffset finds the smallest index such that every line from it
// through the cursor, band headers included, fits in height.
func calcScrollOffset(logs []store.DecodeLog, cursor, height int) int {
	if len(logs) == 0 || cursor < 0 {
		return 0
	}
	if cursor >= len(logs) {
		cursor = len(logs) - 1
	}
	offset := 0
	if cursor >= height {
		offset = cursor - height + 1
	}
	for offset <= cursor {
		if visibleLineCount(logs, offset, cursor) <= height {
			return offset
		}
		offset++
	}
	return cursor
}

// visibleLineCount counts the lines logs[from..to] render to, including
// band headers.
func visibleLineCount(logs []store.DecodeLog, from, to int) int {
	lines := 0
	currentBand := ""
	if from > 0 {
		currentBand = TimeBand(logs[from-1].CreatedAt)
	}
	for i := from; i <= to && i < len(logs); i++ {
		if band := TimeBand(logs[i].CreatedAt); band != currentBand {
			currentBand = band
			lines++
		}
		lines++
	}
	return lines
}

const (
	sceneColWidth = 6
	ageColWidth   = 8
)

func renderHistoryLine(l store.DecodeLog, selected bool, width int) string {
	scene := l.FinalScene
	if utf8.RuneCountInString(scene) > sceneColWidth {
		scene = string([]rune(scene)[:sceneColWidth])
	}
	badge := SceneBadge.Foreground(scenePaletteColor(l.FinalScene)).Render(scene)
	marker := " "
	if lvl := risk.Level(l.RiskLevel); lvl != risk.Low && lvl != "" {
		marker = riskStyle(lvl).Render("!")
	}

	age := formatAgeShort(l.CreatedAt)
	textWidth := width - lipgloss.Width(badge) - ageColWidth - 6
	if textWidth < 10 {
		textWidth = 10
	}
	text := truncateRunes(strings.ReplaceAll(l.Text, "\n", " "), textWidth)

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	left := marker + badge + style.Render(text)
	pad := width - lipgloss.Width(left) - lipgloss.Width(age) - 1
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + MetaItem.Render(age)
}

func formatAgeShort(created time.Time) string {
	age := time.Since(created)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

// scenePaletteColor picks a stable color per scene name.
func scenePaletteColor(name string) lipgloss.Color {
	palette := []lipgloss.Color{
		lipgloss.Color("39"),
		lipgloss.Color("78"),
		lipgloss.Color("141"),
		lipgloss.Color("180"),
		lipgloss.Color("75"),
		lipgloss.Color("99"),
		lipgloss.Color("212"),
	}
	sum := 0
	for i := 0; i < len(name); i++ {
		sum += int(name[i])
	}
	return palette[sum%len(palette)]
}

// truncateRunes shortens s to max runes, appending "..." if truncated.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

// RenderStatusBar renders the bottom status bar with key hints.
func RenderStatusBar(cursor, total, width int, busy, useAI, aiAvailable bool) string {
	var left string
	switch {
	case busy:
		left = " Decoding... "
	case total > 0:
		left = fmt.Sprintf(" %d/%d ", cursor+1, total)
	default:
		left = " 0/0 "
	}
	switch {
	case !aiAvailable:
		left += StatusBarText.Render("AI n/a")
	case useAI:
		left += StatusBarKey.Render("AI on")
	default:
		left += StatusBarText.Render("AI off")
	}

	keys := []string{
		StatusBarKey.Render("/") + StatusBarText.Render(":decode"),
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("Enter") + StatusBarText.Render(":open"),
		StatusBarKey.Render("a") + StatusBarText.Render(":ai"),
		StatusBarKey.Render("1-4") + StatusBarText.Render(":feedback"),
		StatusBarKey.Render("r") + StatusBarText.Render(":refresh"),
		StatusBarKey.Render("D") + StatusBarText.Render(":debug"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	hints := strings.Join(keys, " ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(hints)
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + hints)
}
