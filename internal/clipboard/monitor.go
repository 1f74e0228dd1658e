package clipboard

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maximbilan/medtr/internal/logging"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 100 * time.Millisecond

// Monitor polls a clipboard and emits each new non-empty text. A text equal
// to the previously seen one is never emitted twice in a row.
type Monitor struct {
	reader   Reader
	interval time.Duration
	logger   logrus.FieldLogger
	out      chan string

	mu     sync.Mutex
	active bool
	last   string
}

func NewMonitor(r Reader, interval time.Duration, logger logrus.FieldLogger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		reader:   r,
		interval: interval,
		logger:   logging.OrStandard(logger),
		out:      make(chan string, 16),
	}
}

// Texts delivers detected texts in detection order. It is closed when Run returns.
func (m *Monitor) Texts() <-chan string {
	return m.out
}

// Start begins emitting texts. The last seen text is reset so the current
// clipboard content is picked up on the next tick.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
	m.last = ""
}

// Resume begins emitting texts with seen already marked as the last text, so
// no tick can observe the monitor active with a stale last value.
func (m *Monitor) Resume(seen string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
	m.last = seen
}

// Stop pauses emission; it takes effect on the next tick.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetLast marks text as already seen, so writing it to the clipboard does
// not trigger a new detection.
func (m *Monitor) SetLast(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = text
}

// Run polls until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.out)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		text, ok := m.Poll()
		if !ok {
			continue
		}
		select {
		case m.out <- text:
		case <-ctx.Done():
			return
		}
	}
}

// Poll performs a single check and returns a newly detected text.
func (m *Monitor) Poll() (string, bool) {
	if !m.Active() {
		return "", false
	}

	text, err := m.reader.ReadAll()
	if err != nil {
		m.logger.WithError(err).Debug("Clipboard read failed")
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || text == "" || text == m.last {
		return "", false
	}
	m.last = text
	return text, true
}
