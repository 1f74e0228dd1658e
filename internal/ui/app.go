package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maximbilan/medtr/internal/engine"
	"github.com/maximbilan/medtr/internal/history"
	"github.com/maximbilan/medtr/internal/hotkey"
	"github.com/maximbilan/medtr/internal/session"
)

const appTitle = "MedTranslate"

// trimTrailingWhitespace removes trailing whitespace from text
func trimTrailingWhitespace(text string) string {
	return strings.TrimRight(text, " \t\n\r")
}

type Mode int

const (
	ModeMain Mode = iota
	ModeInput
	ModeHistory
	ModeHelp
)

// fixedKeys are handled before the configurable hotkeys.
type fixedKeys struct {
	Quit    key.Binding
	Help    key.Binding
	Input   key.Binding
	History key.Binding
	Submit  key.Binding
	Back    key.Binding
}

func newFixedKeys() fixedKeys {
	return fixedKeys{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:    key.NewBinding(key.WithKeys("?", "f1"), key.WithHelp("?", "help")),
		Input:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "type a term")),
		History: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		Submit:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "translate")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// keyMap adapts the bindings to the help component.
type keyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return k.short }
func (k keyMap) FullHelp() [][]key.Binding { return k.full }

func newKeyMap(hk *hotkey.Manager, fixed fixedKeys) keyMap {
	start := hk.KeyBinding(hotkey.StartTranslator, "start")
	stop := hk.KeyBinding(hotkey.StopTranslator, "stop")
	cycle := hk.KeyBinding(hotkey.CycleSources, "next source")
	copyResult := hk.KeyBinding(hotkey.CopyResult, "copy")
	favorite := hk.KeyBinding(hotkey.ToggleFavorite, "favorite")

	return keyMap{
		short: []key.Binding{start, stop, cycle, copyResult, favorite, fixed.Help, fixed.Quit},
		full: [][]key.Binding{
			{start, stop, copyResult, favorite},
			{
				cycle,
				hk.KeyBinding(hotkey.ForceAI, "use AI"),
				hk.KeyBinding(hotkey.ForceLibre, "use LibreTranslate"),
				hk.KeyBinding(hotkey.ForceLocal, "use dictionary"),
				hk.KeyBinding(hotkey.ForceKeyfix, "use keyboard fixer"),
			},
			{fixed.Input, fixed.History, fixed.Help, fixed.Quit},
		},
	}
}

// Options are the collaborators of the terminal UI.
type Options struct {
	Session *session.Session
	Hotkeys *hotkey.Manager
	History *history.Manager
}

type Model struct {
	mode Mode

	// State
	original     string
	result       engine.Result
	hasResult    bool
	favorite     bool
	translating  bool
	active       bool
	activeSource engine.Source
	status       string
	notice       string
	error        string

	// UI Components
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	fixed    fixedKeys
	keys     keyMap

	// Services
	session *session.Session
	hotkeys *hotkey.Manager
	history *history.Manager

	// Dimensions
	width  int
	height int
}

// Messages
type eventMsg session.Event

type eventsClosedMsg struct{}

func NewModel(opts Options) Model {
	input := textarea.New()
	input.Placeholder = "Type a medical term..."
	input.CharLimit = 200
	input.SetWidth(80)
	input.SetHeight(3)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	fixed := newFixedKeys()
	return Model{
		mode:         ModeMain,
		input:        input,
		viewport:     viewport.New(80, 20),
		spinner:      sp,
		help:         help.New(),
		fixed:        fixed,
		keys:         newKeyMap(opts.Hotkeys, fixed),
		session:      opts.Session,
		hotkeys:      opts.Hotkeys,
		history:      opts.History,
		active:       opts.Session.Active(),
		activeSource: opts.Session.ActiveSource(),
		status:       "Ready. Press s to start watching the clipboard, ? for help",
	}
}

// waitForEvent delivers the next session event as a message.
func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.session.Events()), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		width := msg.Width - 4
		if width < 20 {
			width = 20
		}
		m.input.SetWidth(width)
		m.viewport.Width = width
		m.viewport.Height = msg.Height - 6
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		m = m.applyEvent(session.Event(msg))
		return m, waitForEvent(m.session.Events())

	case eventsClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case ModeHelp:
			if key.Matches(msg, m.fixed.Back, m.fixed.Help, m.fixed.Quit) {
				m.mode = ModeMain
			}
			return m, nil
		case ModeInput:
			return m.handleInputMode(msg)
		case ModeHistory:
			return m.handleHistoryMode(msg)
		}
		return m.handleMainMode(msg)
	}
	return m, nil
}

func (m Model) applyEvent(e session.Event) Model {
	m.error = ""
	switch e.Kind {
	case session.EventTranslating:
		m.translating = true
		m.original = trimTrailingWhitespace(e.Original)
		m.status = "Translating..."
	case session.EventTranslation:
		m.translating = false
		m.original = trimTrailingWhitespace(e.Original)
		m.result = e.Result
		m.hasResult = true
		m.favorite = m.history != nil && m.history.IsFavorite(e.Original)
		m.notice = ""
		m.status = "✓ " + e.Result.Source.DisplayName()
		if e.Message != "" {
			m.status = "✓ " + e.Message
		}
	case session.EventFallback:
		m.notice = e.Message
	case session.EventIgnored:
		m.translating = false
		m.status = "Ignored: " + e.Message
	case session.EventError:
		m.translating = false
		m.error = e.Message
	case session.EventStatus:
		m.status = e.Message
	}
	m.active = m.session.Active()
	m.activeSource = m.session.ActiveSource()
	return m
}

func (m Model) handleMainMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.fixed.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.fixed.Help):
		m.mode = ModeHelp
		return m, nil
	case key.Matches(msg, m.fixed.Input):
		m.mode = ModeInput
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.fixed.History):
		m.mode = ModeHistory
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoTop()
		return m, nil
	}

	if m.hotkeys.Dispatch(msg.String()) {
		m.active = m.session.Active()
		m.activeSource = m.session.ActiveSource()
		if m.history != nil && m.hasResult {
			m.favorite = m.history.IsFavorite(m.original)
		}
	}
	return m, nil
}

func (m Model) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.fixed.Back):
		m.input.Blur()
		m.mode = ModeMain
		return m, nil
	case key.Matches(msg, m.fixed.Submit), msg.Type == tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.mode = ModeMain
		if text != "" {
			m.session.Submit(text, "")
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleHistoryMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.fixed.Back, m.fixed.History, m.fixed.Quit) {
		m.mode = ModeMain
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

var sourceColors = map[engine.Source]string{
	engine.SourceAuto:          "10", // Bright green
	engine.SourceKeyboard:      "11", // Bright yellow
	engine.SourceLocal:         "12", // Bright blue
	engine.SourceLocalFallback: "12",
	engine.SourceLibre:         "13", // Bright magenta
	engine.SourceAI:            "14", // Bright cyan
	engine.SourceCache:         "8",
}

func sourceStyle(s engine.Source) lipgloss.Style {
	color, ok := sourceColors[s]
	if !ok {
		color = "8" // Gray
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
}

func (m Model) View() string {
	switch m.mode {
	case ModeHelp:
		return m.renderHelp()
	case ModeHistory:
		return m.renderHistoryView()
	}

	// Ensure we have valid dimensions
	if m.width == 0 {
		m.width = 80
	}
	if m.height == 0 {
		m.height = 24
	}

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(strings.Repeat("─", m.width))
	s.WriteString("\n\n")

	if m.mode == ModeInput {
		s.WriteString(labelStyle("4").Render("Term"))
		s.WriteString("\n")
		s.WriteString(m.input.View())
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderCard())
	s.WriteString("\n\n")

	if m.notice != "" {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render("! " + m.notice))
		s.WriteString("\n\n")
	}

	s.WriteString(strings.Repeat("─", m.width))
	s.WriteString("\n")
	s.WriteString(m.renderSourceShortcuts())
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

func labelStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
}

func (m Model) renderHeader() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("6")).
		Padding(0, 1)

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Padding(0, 1)

	state := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("● off")
	if m.active {
		state = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("● watching")
	}

	headerLeft := headerStyle.Render(appTitle) + " " + state + " " +
		sourceStyle(m.activeSource).Render("["+m.activeSource.DisplayName()+"]")

	status := statusStyle.Render(m.status)
	if m.translating {
		status = statusStyle.Render(m.spinner.View() + " " + m.status)
	}
	if m.error != "" {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Padding(0, 1)
		status = errorStyle.Render("✗ " + m.error)
	}

	// Put status on next line if header is too wide
	if lipgloss.Width(headerLeft)+lipgloss.Width(status)+2 <= m.width {
		return lipgloss.JoinHorizontal(lipgloss.Left, headerLeft, status)
	}
	return headerLeft + "\n" + status
}

// renderCard draws the current original and translation.
func (m Model) renderCard() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(m.width - 4)

	if !m.hasResult && !m.translating {
		placeholder := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true).
			Render("Copy a medical term to translate it.")
		return boxStyle.Render(placeholder)
	}

	var content strings.Builder
	content.WriteString(labelStyle("4").Render("Original"))
	content.WriteString("\n")
	content.WriteString(m.original)
	content.WriteString("\n\n")

	if m.translating {
		content.WriteString(m.spinner.View() + " Translating...")
		return boxStyle.Render(content.String())
	}

	title := "Translation"
	if m.favorite {
		title += " ★"
	}
	content.WriteString(labelStyle("2").Render(title))
	content.WriteString("  ")
	content.WriteString(sourceStyle(m.result.Source).Render(m.result.Source.DisplayName()))
	content.WriteString("\n")
	content.WriteString(m.result.Text)
	return boxStyle.Render(content.String())
}

// renderSourceShortcuts shows every source with the active one highlighted.
func (m Model) renderSourceShortcuts() string {
	var shortcuts []string
	for _, src := range engine.Selectable {
		if src == m.activeSource {
			shortcuts = append(shortcuts, sourceStyle(src).Render("["+src.DisplayName()+"]"))
		} else {
			shortcuts = append(shortcuts, lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(src.DisplayName()))
		}
	}
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Padding(0, 1)
	return footerStyle.Render("Sources: " + strings.Join(shortcuts, " "))
}

func (m Model) renderHistory() string {
	if m.history == nil {
		return "History is disabled."
	}
	entries := m.history.History(history.DefaultLimit)
	if len(entries) == 0 {
		return "No translations yet."
	}

	var b strings.Builder
	for _, e := range entries {
		marker := "  "
		if m.history.IsFavorite(e.Original) {
			marker = "★ "
		}
		b.WriteString(marker)
		b.WriteString(labelStyle("4").Render(e.Original))
		b.WriteString(" → ")
		b.WriteString(firstLine(e.Translation))
		b.WriteString("  ")
		b.WriteString(sourceStyle(engine.Source(e.Source)).Render(e.Source))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.history.Statistics().String()))
	return b.String()
}

func (m Model) renderHistoryView() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1).
		Render(appTitle + " - History")
	footer := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1).
		Render("↑/↓: Scroll  Esc: Back")
	return fmt.Sprintf("%s\n%s\n%s", header, m.viewport.View(), footer)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func (m Model) renderHelp() string {
	helpStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Padding(1, 2)
	if m.width > 4 {
		helpStyle = helpStyle.Width(m.width - 4)
	}

	full := m.help
	full.ShowAll = true

	var content strings.Builder
	content.WriteString(labelStyle("6").Render(appTitle + " - Keyboard Shortcuts"))
	content.WriteString("\n\n")
	content.WriteString(full.View(m.keys))
	content.WriteString("\n\n")
	content.WriteString(labelStyle("6").Render("Input Mode:"))
	content.WriteString("\n")
	content.WriteString("  Enter     Translate the typed term\n")
	content.WriteString("  Esc       Exit input mode\n")
	return helpStyle.Render(content.String())
}

// Run starts the session worker and the terminal UI, and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts.Session.BindHotkeys(opts.Hotkeys)
	go opts.Session.Run(ctx)

	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
