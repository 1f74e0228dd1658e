package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximbilan/medtr/internal/clipboard"
	"github.com/maximbilan/medtr/internal/config"
	"github.com/maximbilan/medtr/internal/dictionary"
	"github.com/maximbilan/medtr/internal/engine"
	"github.com/maximbilan/medtr/internal/history"
	"github.com/maximbilan/medtr/internal/hotkey"
	"github.com/maximbilan/medtr/internal/session"
)

func TestTrimTrailingWhitespace(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "no trailing whitespace",
			text: "Heart failure",
			want: "Heart failure",
		},
		{
			name: "trailing spaces",
			text: "Heart failure   ",
			want: "Heart failure",
		},
		{
			name: "trailing tabs",
			text: "Heart failure\t\t",
			want: "Heart failure",
		},
		{
			name: "trailing newlines",
			text: "Heart failure\n\n",
			want: "Heart failure",
		},
		{
			name: "mixed trailing whitespace",
			text: "قلب \t\n\r ",
			want: "قلب",
		},
		{
			name: "only whitespace",
			text: "   \t\n\r  ",
			want: "",
		},
		{
			name: "empty string",
			text: "",
			want: "",
		},
		{
			name: "leading whitespace preserved",
			text: "   Heart",
			want: "   Heart",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trimTrailingWhitespace(tt.text)
			if got != tt.want {
				t.Errorf("trimTrailingWhitespace(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

type fixture struct {
	model   Model
	session *session.Session
	history *history.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dict := dictionary.New()
	dict.Add("heart", "قلب")

	eng := engine.New(engine.Dependencies{
		Dictionary:   dict,
		NetworkProbe: func(context.Context) bool { return false },
	}, engine.Options{ActiveSource: engine.SourceAuto, OfflineFallback: true})

	mem := &clipboard.Memory{}
	hist := history.Open("")
	sess := session.New(session.Dependencies{
		Engine:    eng,
		History:   hist,
		Monitor:   clipboard.NewMonitor(mem, time.Millisecond, nil),
		Clipboard: mem,
	})
	hk := hotkey.New(config.DefaultHotkeys, nil)
	sess.BindHotkeys(hk)

	return &fixture{
		model:   NewModel(Options{Session: sess, Hotkeys: hk, History: hist}),
		session: sess,
		history: hist,
	}
}

func press(m Model, keys string) Model {
	var msg tea.KeyMsg
	switch keys {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func applyEvents(m Model, events []session.Event) Model {
	for _, e := range events {
		updated, _ := m.Update(eventMsg(e))
		m = updated.(Model)
	}
	return m
}

func TestModel_TranslationEvent(t *testing.T) {
	f := newFixture(t)

	events := f.session.Handle(context.Background(), "heart", "")
	m := applyEvents(f.model, events)

	require.True(t, m.hasResult)
	assert.Equal(t, "heart", m.original)
	assert.Equal(t, "قلب", m.result.Text)
	assert.Equal(t, engine.SourceLocal, m.result.Source)
	assert.False(t, m.translating)

	view := m.View()
	assert.Contains(t, view, "قلب")
	assert.Contains(t, view, engine.SourceLocal.DisplayName())
}

func TestModel_TranslatingShowsSpinnerState(t *testing.T) {
	f := newFixture(t)

	updated, _ := f.model.Update(eventMsg(session.Event{Kind: session.EventTranslating, Original: "heart\n"}))
	m := updated.(Model)

	assert.True(t, m.translating)
	assert.Equal(t, "heart", m.original)
	assert.Contains(t, m.View(), "Translating...")
}

func TestModel_ErrorAndFallbackEvents(t *testing.T) {
	f := newFixture(t)

	m := applyEvents(f.model, []session.Event{
		{Kind: session.EventFallback, Message: "Preferred source 'libre' failed. Used 'local' instead."},
		{Kind: session.EventError, Message: "clipboard unavailable"},
	})

	assert.Equal(t, "clipboard unavailable", m.error)
	view := m.View()
	assert.Contains(t, view, "✗ clipboard unavailable")
	assert.Contains(t, view, "Preferred source 'libre' failed")
}

func TestModel_HotkeysDriveSession(t *testing.T) {
	f := newFixture(t)
	m := f.model
	require.False(t, m.active)

	m = press(m, "s")
	assert.True(t, f.session.Active())
	assert.True(t, m.active)

	m = press(m, "tab")
	assert.Equal(t, engine.SourceKeyboard, f.session.ActiveSource())
	assert.Equal(t, engine.SourceKeyboard, m.activeSource)

	m = press(m, "d")
	assert.Equal(t, engine.SourceLocal, m.activeSource)

	m = press(m, "x")
	assert.False(t, m.active)
}

func TestModel_FavoriteToggle(t *testing.T) {
	f := newFixture(t)
	m := applyEvents(f.model, f.session.Handle(context.Background(), "heart", ""))

	m = press(m, "f")
	assert.True(t, f.history.IsFavorite("heart"))
	assert.True(t, m.favorite)
	assert.Contains(t, m.View(), "★")

	m = press(m, "f")
	assert.False(t, m.favorite)
}

func TestModel_Modes(t *testing.T) {
	f := newFixture(t)
	m := f.model

	m = press(m, "?")
	assert.Equal(t, ModeHelp, m.mode)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	m = press(m, "esc")
	assert.Equal(t, ModeMain, m.mode)

	f.session.Handle(context.Background(), "heart", "")
	m = press(m, "h")
	assert.Equal(t, ModeHistory, m.mode)
	assert.Contains(t, m.viewport.View(), "heart")
	m = press(m, "esc")
	assert.Equal(t, ModeMain, m.mode)
}

func TestModel_InputSubmitsToSession(t *testing.T) {
	f := newFixture(t)
	m := press(f.model, "i")
	require.Equal(t, ModeInput, m.mode)

	m.input.SetValue("heart")
	m = press(m, "enter")
	assert.Equal(t, ModeMain, m.mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.session.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-f.session.Events():
			if e.Kind == session.EventTranslation {
				assert.Equal(t, "قلب", e.Result.Text)
				return
			}
		case <-deadline:
			t.Fatal("submitted text was not translated")
		}
	}
}

func TestModel_QuitAndClosedEvents(t *testing.T) {
	f := newFixture(t)

	_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = f.model.Update(eventsClosedMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRenderSourceShortcuts(t *testing.T) {
	f := newFixture(t)
	out := f.model.renderSourceShortcuts()
	for _, src := range engine.Selectable {
		assert.True(t, strings.Contains(out, src.DisplayName()), "missing %s", src)
	}
	assert.Contains(t, out, "["+engine.SourceAuto.DisplayName()+"]")
}
