package clipboard

import "sync"

// Memory is an in-process clipboard, used when no system clipboard is available.
type Memory struct {
	mu     sync.Mutex
	text   string
	err    error
	writes []string
}

func (m *Memory) ReadAll() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.err
}

func (m *Memory) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.text = text
	m.writes = append(m.writes, text)
	return nil
}

// SetError makes every following read and write fail with err.
func (m *Memory) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Writes returns every text written so far.
func (m *Memory) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}
