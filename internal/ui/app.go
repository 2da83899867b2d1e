package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/decoder/internal/decode"
	"github.com/abelbrown/decoder/internal/otel"
	"github.com/abelbrown/decoder/internal/store"
)

// AppConfig wires the App to the services. The App never holds the store
// or the decoder; it only receives their results via messages.
type AppConfig struct {
	Decode        func(text string, useAI bool) tea.Cmd
	LoadHistory   func() tea.Cmd
	SaveFeedback  func(id string, kind store.FeedbackKind) tea.Cmd
	ReloadLexicon func() tea.Cmd

	// Ring feeds the debug overlay. Nil disables it.
	Ring *otel.RingBuffer
	// Events receives message traces when Trace is set.
	Events *otel.Logger
	Trace  bool
	// AIAvailable reports whether a refinement backend is configured.
	AIAvailable bool
	// UseAI is the initial AI toggle.
	UseAI bool
}

// feedbackKeys maps number keys to feedback kinds.
var feedbackKeys = map[string]store.FeedbackKind{
	"1": store.FeedbackCorrect,
	"2": store.FeedbackIncorrect,
	"3": store.FeedbackHelpful,
	"4": store.FeedbackNotHelpful,
}

// App is the root Bubble Tea model.
type App struct {
	cfg   AppConfig
	input textinput.Model

	history []store.DecodeLog
	cursor  int
	current *decode.Result

	useAI  bool
	busy   bool
	debug  bool
	status string
	err    error
	width  int
	height int
	ready  bool
}

// NewApp creates an App. Nil command functions disable their feature.
func NewApp(cfg AppConfig) App {
	ti := textinput.New()
	ti.Placeholder = "Type what they said..."
	ti.Prompt = "› "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	ti.CharLimit = 500

	return App{
		cfg:   cfg,
		input: ti,
		useAI: cfg.UseAI && cfg.AIAvailable,
	}
}

// Init loads history.
func (a App) Init() tea.Cmd {
	if a.cfg.LoadHistory != nil {
		return a.cfg.LoadHistory()
	}
	return nil
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case DecodeDone, HistoryLoaded, FeedbackSaved, LexiconReloaded:
		if !a.cfg.Trace {
			break
		}
		name := fmt.Sprintf("%T", msg)
		start := time.Now()
		a.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: "ui", Msg: name})
		defer func() {
			a.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgHandled, Comp: "ui", Msg: name, Dur: time.Since(start)})
		}()
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.input.Focused() {
			return a.handleInputKey(msg)
		}
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 6
		a.ready = true
		return a, nil

	case DecodeDone:
		a.busy = false
		res := msg.Result
		a.current = &res
		a.status = fmt.Sprintf("%s %.2f", res.FinalScene, res.Confidence)
		if a.cfg.LoadHistory != nil {
			return a, a.cfg.LoadHistory()
		}
		return a, nil

	case HistoryLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.history = msg.Logs
		if a.cursor >= len(a.history) {
			a.cursor = max(0, len(a.history)-1)
		}
		return a, nil

	case FeedbackSaved:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.status = fmt.Sprintf("feedback %s saved for %s", msg.Kind, shortID(msg.ID))
		return a, nil

	case LexiconReloaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.status = "lexicon reloaded"
		return a, nil
	}

	if a.input.Focused() {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return a, tea.Quit
	case tea.KeyEsc:
		a.input.Blur()
		return a, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(a.input.Value())
		if text == "" || a.busy || a.cfg.Decode == nil {
			return a, nil
		}
		a.input.SetValue("")
		a.input.Blur()
		a.busy = true
		a.err = nil
		a.status = ""
		return a, a.cfg.Decode(text, a.useAI)
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleKeyMsg processes keyboard input outside the text field.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.err != nil {
		a.err = nil
	}

	key := msg.String()
	if a.debug && key != "D" && key != "ctrl+c" && key != "q" {
		return a, nil
	}

	switch key {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "/", "i":
		a.input.Focus()
		return a, textinput.Blink

	case "j", "down":
		if a.cursor < len(a.history)-1 {
			a.cursor++
		}
		return a, nil

	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "g", "home":
		a.cursor = 0
		return a, nil

	case "G", "end":
		if len(a.history) > 0 {
			a.cursor = len(a.history) - 1
		}
		return a, nil

	case "enter":
		if a.cursor < len(a.history) {
			var res decode.Result
			if err := json.Unmarshal(a.history[a.cursor].Result, &res); err != nil {
				a.err = fmt.Errorf("open decode %s: %w", shortID(a.history[a.cursor].ID), err)
				return a, nil
			}
			a.current = &res
		}
		return a, nil

	case "a":
		if !a.cfg.AIAvailable {
			a.status = "AI refinement is not configured"
			return a, nil
		}
		a.useAI = !a.useAI
		return a, nil

	case "1", "2", "3", "4":
		if a.current == nil || a.cfg.SaveFeedback == nil {
			return a, nil
		}
		return a, a.cfg.SaveFeedback(a.current.ID, feedbackKeys[key])

	case "r":
		if a.cfg.LoadHistory != nil {
			return a, a.cfg.LoadHistory()
		}
		return a, nil

	case "L":
		if a.cfg.ReloadLexicon != nil {
			return a, a.cfg.ReloadLexicon()
		}
		return a, nil

	case "D":
		if a.cfg.Ring != nil {
			a.debug = !a.debug
		}
		return a, nil
	}

	return a, nil
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.debug {
		var rid string
		if a.current != nil {
			rid = a.current.ID
		}
		overlay := debugOverlay(a.cfg.Ring, rid, a.width, a.height-1)
		return overlay + "\n" + debugStatusBar(a.width)
	}

	var sections []string
	sections = append(sections, InputBar.Width(a.width).Render(a.input.View()))

	used := 2 // input bar + status bar
	if a.current != nil {
		panel := RenderResult(*a.current, a.width)
		sections = append(sections, panel)
		used += lipgloss.Height(panel)
	}

	var footer []string
	if a.err != nil {
		footer = append(footer, ErrorStyle.Width(a.width).Render("Error: "+a.err.Error()+" (press any key to dismiss)"))
		used++
	} else if a.status != "" {
		footer = append(footer, StatusBarText.Render(" "+a.status))
		used++
	}

	sections = append(sections, strings.TrimRight(RenderHistory(a.history, a.cursor, a.width, a.height-used), "\n"))
	sections = append(sections, footer...)
	sections = append(sections, RenderStatusBar(a.cursor, len(a.history), a.width, a.busy, a.useAI, a.cfg.AIAvailable))
	return strings.Join(sections, "\n")
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Current returns the decode shown in the result panel, or nil.
func (a App) Current() *decode.Result {
	return a.current
}

// UseAI reports the AI toggle.
func (a App) UseAI() bool {
	return a.useAI
}
