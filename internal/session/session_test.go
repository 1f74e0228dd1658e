package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/maximbilan/medtr/internal/clipboard"
	"github.com/maximbilan/medtr/internal/config"
	"github.com/maximbilan/medtr/internal/dictionary"
	"github.com/maximbilan/medtr/internal/engine"
	"github.com/maximbilan/medtr/internal/history"
	"github.com/maximbilan/medtr/internal/hotkey"
	mock_engine "github.com/maximbilan/medtr/internal/mocks/engine"
)

type fixture struct {
	session    *Session
	engine     *engine.Engine
	clipboard  *clipboard.Memory
	monitor    *clipboard.Monitor
	history    *history.Manager
	libre      *mock_engine.MockTranslator
	configPath string
}

func newFixture(t *testing.T, opts engine.Options) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	dict := dictionary.New()
	dict.Add("heart", "قلب")

	f := &fixture{
		clipboard:  &clipboard.Memory{},
		history:    history.Open(""),
		libre:      mock_engine.NewMockTranslator(ctrl),
		configPath: filepath.Join(t.TempDir(), "config.json"),
	}
	f.engine = engine.New(engine.Dependencies{
		Dictionary:   dict,
		Libre:        f.libre,
		NetworkProbe: func(context.Context) bool { return false },
	}, opts)
	f.monitor = clipboard.NewMonitor(f.clipboard, time.Millisecond, nil)
	f.session = New(Dependencies{
		Engine:            f.engine,
		History:           f.history,
		Monitor:           f.monitor,
		Clipboard:         f.clipboard,
		ConfigPath:        f.configPath,
		ShowNotifications: true,
	})
	return f
}

func drain(s *Session) []Event {
	var out []Event
	for {
		select {
		case e := <-s.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestHandle_IgnoresInvalidInput(t *testing.T) {
	f := newFixture(t, engine.Options{OfflineFallback: true})

	events := f.session.Handle(context.Background(), "visit www.example.org", "")
	require.Len(t, events, 1)
	assert.Equal(t, EventIgnored, events[0].Kind)
	assert.Empty(t, f.history.History(0))

	_, ok := f.session.Current()
	assert.False(t, ok)
}

func TestHandle_Translation(t *testing.T) {
	f := newFixture(t, engine.Options{OfflineFallback: true})

	events := f.session.Handle(context.Background(), "Heart", "")
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, EventTranslation, ev.Kind)
	assert.Equal(t, engine.SourceLocal, ev.Result.Source)
	assert.Equal(t, "قلب", ev.Result.Text)
	assert.Equal(t, "Translated using local", ev.Message)
	assert.False(t, ev.Copied)

	entries := f.history.History(0)
	require.Len(t, entries, 1)
	assert.Equal(t, "Heart", entries[0].Original)
	assert.Equal(t, ev.Entry.ID, entries[0].ID)

	cur, ok := f.session.Current()
	require.True(t, ok)
	assert.Equal(t, "قلب", cur.Text())
	assert.Empty(t, f.clipboard.Writes())
}

func TestHandle_KeyboardFixIsCopied(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.session.Activate()

	events := f.session.Handle(context.Background(), ";jhf", "")
	require.Len(t, events, 1)
	assert.True(t, events[0].Copied)
	assert.Equal(t, "Fixed: كتاب", events[0].Result.Text)
	assert.Equal(t, []string{"كتاب"}, f.clipboard.Writes())

	assert.True(t, f.monitor.Active(), "monitor restarted after the copy")
	_, detected := f.monitor.Poll()
	assert.False(t, detected, "the copied fix is not detected again")

	cur, _ := f.session.Current()
	assert.Equal(t, "كتاب", cur.Text())
}

func TestCopyCurrent_NeverEchoesWhilePolling(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.session.Activate()
	f.session.Handle(context.Background(), ";jhf", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.monitor.Run(ctx)

	for i := 0; i < 200; i++ {
		require.NoError(t, f.session.CopyCurrent())
	}
	select {
	case text := <-f.monitor.Texts():
		t.Fatalf("copied text %q was detected as a new copy", text)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHandle_FallsBackFromPreferredSource(t *testing.T) {
	f := newFixture(t, engine.Options{ActiveSource: engine.SourceLibre, OfflineFallback: true})
	f.libre.EXPECT().Translate(gomock.Any(), "heart", "auto", "ar").Return("", errors.New("offline"))

	events := f.session.Handle(context.Background(), "heart", "")
	require.Len(t, events, 2)
	assert.Equal(t, EventTranslation, events[0].Kind)
	assert.Equal(t, engine.SourceLocal, events[0].Result.Source)
	assert.Equal(t, EventFallback, events[1].Kind)
	assert.Equal(t, "Preferred source 'libre' failed. Used 'local' instead.", events[1].Message)
}

func TestHandle_ForcedSourceDoesNotFallBack(t *testing.T) {
	f := newFixture(t, engine.Options{OfflineFallback: true})
	f.libre.EXPECT().Translate(gomock.Any(), "heart", "auto", "ar").Return("", errors.New("offline"))

	events := f.session.Handle(context.Background(), "heart", engine.SourceLibre)
	require.Len(t, events, 1)
	assert.Equal(t, engine.MsgLibreUnavailable, events[0].Result.Text)
}

func TestChangeSource(t *testing.T) {
	f := newFixture(t, engine.Options{})

	require.NoError(t, f.session.ChangeSource(engine.SourceLocal))
	assert.Equal(t, engine.SourceLocal, f.engine.Options().ActiveSource)
	assert.Equal(t, engine.SourceLocal, f.session.ActiveSource())

	cfg, err := config.Load(f.configPath)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Translation.ActiveSource)

	assert.Error(t, f.session.ChangeSource("cache"))

	next, err := f.session.CycleSource()
	require.NoError(t, err)
	assert.Equal(t, engine.SourceLibre, next)

	events := drain(f.session)
	require.NotEmpty(t, events)
	assert.Equal(t, "Now using: Local Dictionary", events[0].Message)
}

func TestCopyCurrentAndFavorite(t *testing.T) {
	f := newFixture(t, engine.Options{OfflineFallback: true})

	assert.ErrorIs(t, f.session.CopyCurrent(), ErrNoResult)
	_, err := f.session.ToggleFavorite()
	assert.ErrorIs(t, err, ErrNoResult)

	f.session.Handle(context.Background(), "heart", "")
	require.NoError(t, f.session.CopyCurrent())
	assert.Equal(t, []string{"قلب"}, f.clipboard.Writes())

	fav, err := f.session.ToggleFavorite()
	require.NoError(t, err)
	assert.True(t, fav)
	assert.True(t, f.history.IsFavorite("heart"))

	fav, err = f.session.ToggleFavorite()
	require.NoError(t, err)
	assert.False(t, fav)

	f.clipboard.SetError(errors.New("no clipboard"))
	assert.Error(t, f.session.CopyCurrent())
}

func TestActivation(t *testing.T) {
	f := newFixture(t, engine.Options{})

	assert.False(t, f.session.Active())
	assert.True(t, f.session.Toggle())
	assert.True(t, f.session.Active())
	assert.False(t, f.session.Toggle())
	assert.False(t, f.session.Active())

	events := drain(f.session)
	require.Len(t, events, 2)
	assert.Equal(t, EventStatus, events[0].Kind)
	assert.Contains(t, events[0].Message, "activated")
	assert.Contains(t, events[1].Message, "deactivated")
}

func TestBindHotkeys(t *testing.T) {
	f := newFixture(t, engine.Options{})
	m := hotkey.New(config.DefaultHotkeys, nil)
	f.session.BindHotkeys(m)

	assert.True(t, m.Dispatch("s"))
	assert.True(t, f.session.Active())

	assert.True(t, m.Dispatch("d"))
	assert.Equal(t, engine.SourceLocal, f.engine.Options().ActiveSource)

	assert.True(t, m.Dispatch("c"))
	events := drain(f.session)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Kind)
	assert.Equal(t, ErrNoResult.Error(), last.Message)

	assert.True(t, m.Dispatch("x"))
	assert.False(t, f.session.Active())
}

func TestRun(t *testing.T) {
	f := newFixture(t, engine.Options{OfflineFallback: true})
	f.session.Activate()
	drain(f.session)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.session.Run(ctx)
		close(done)
	}()

	require.NoError(t, f.clipboard.WriteAll("heart"))

	var got []EventKind
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case e := <-f.session.Events():
			got = append(got, e.Kind)
		case <-timeout:
			t.Fatalf("events received: %v", got)
		}
	}
	assert.Equal(t, []EventKind{EventTranslating, EventTranslation}, got)

	f.session.Submit("heart", engine.SourceKeyboard)
	select {
	case e := <-f.session.Events():
		assert.Equal(t, EventTranslating, e.Kind)
	case <-timeout:
		t.Fatal("submitted text was not translated")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	for range f.session.Events() {
	}
}
