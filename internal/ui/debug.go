package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/decoder/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders session counters, the events of the decode open in
// the result panel (rid may be empty), and the most recent events. Returns
// an empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, rid string, width, height int) string {
	if ring == nil {
		return ""
	}

	c := ring.Counters()

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Pipeline Stats"))
	lines = append(lines, fmt.Sprintf("  Decodes:    %d complete, %d fallback, %d batch",
		c.Decodes, c.Fallbacks, c.Batches))
	lines = append(lines, fmt.Sprintf("  Refines:    %d complete, %d errors",
		c.Refines, c.RefineErrors))
	lines = append(lines, fmt.Sprintf("  Fusions:    %d complete, %d history lookups",
		c.Fusions, c.HistoryLookups))
	lines = append(lines, fmt.Sprintf("  Risk:       %d flagged, %d store errors",
		c.RiskFlags, c.StoreErrors))
	if top := c.TopScenes(4); len(top) > 0 {
		parts := make([]string, len(top))
		for i, s := range top {
			parts[i] = fmt.Sprintf("%s %d", s, c.Scenes[s])
		}
		lines = append(lines, "  Scenes:     "+strings.Join(parts, ", "))
	}
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	if trail := ring.Request(rid); len(trail) > 0 {
		lines = append(lines, DebugHeaderStyle.Render("Current Decode "+shortID(rid)))
		first := trail[0].Time
		for _, e := range trail {
			lines = append(lines, "  +"+formatAge(e.Time.Sub(first))+"  "+eventDetail(e))
		}
		lines = append(lines, "")
	}

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range ring.Last(20) {
		line := fmt.Sprintf("  %6s  %s", formatAge(time.Since(e.Time)), eventDetail(e))
		if e.RequestID != "" {
			line += "  rid:" + shortID(e.RequestID)
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 76
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	content := strings.Join(lines, "\n")
	return DebugPanel.Width(panelWidth).Render(content)
}

func eventDetail(e otel.Event) string {
	line := fmt.Sprintf("%-18s", string(e.Kind))
	if e.Scene != "" {
		line += "  " + e.Scene
	}
	if e.Status != "" {
		line += "  " + e.Status
	}
	if e.Msg != "" {
		line += "  " + truncateRunes(e.Msg, 40)
	}
	if e.Err != "" {
		line += "  ERR:" + truncateRunes(e.Err, 30)
	}
	return line
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
