// Package history provides location stores for the router: an in-memory
// stack for servers, tests and the CLI, and a WebSocket bridge to a browser
// tab's history.
package history

import (
	"errors"
	"sync"
)

// ErrOutOfRange is returned by Go when the move would leave the stack.
var ErrOutOfRange = errors.New("history: traversal out of range")

// Mode selects how a navigation is written to the history.
type Mode int

const (
	// ModePush appends a new entry.
	ModePush Mode = iota
	// ModeReplace overwrites the current entry.
	ModeReplace
)

// String returns "push" or "replace".
func (m Mode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "push"
}

// listeners is a set of location callbacks keyed by registration order.
type listeners struct {
	mu   sync.Mutex
	fns  map[int]func(string)
	next int
}

func (l *listeners) add(fn func(string)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(string))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// notify calls every listener in registration order. It must be called
// without the store's own lock held: listeners typically navigate, which
// writes back to the store.
func (l *listeners) notify(path string) {
	l.mu.Lock()
	fns := make([]func(string), 0, len(l.fns))
	for id := 0; id < l.next; id++ {
		if fn, ok := l.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(path)
	}
}

// Memory is an in-process history stack.
//
// Push and Replace never notify listeners; only Go, Back and Forward do,
// mirroring how a browser reports popstate but not pushState.
type Memory struct {
	mu      sync.Mutex
	entries []string
	index   int

	listeners listeners
}

// NewMemory creates a stack holding one entry. An empty initial path means "/".
func NewMemory(initial string) *Memory {
	if initial == "" {
		initial = "/"
	}
	return &Memory{entries: []string{initial}}
}

// Location returns the current entry.
func (m *Memory) Location() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index]
}

// Push discards any forward entries and appends path.
func (m *Memory) Push(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.index+1], path)
	m.index++
	return nil
}

// Replace overwrites the current entry.
func (m *Memory) Replace(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.index] = path
	return nil
}

// Write applies path with the given mode.
func (m *Memory) Write(mode Mode, path string) error {
	if mode == ModeReplace {
		return m.Replace(path)
	}
	return m.Push(path)
}

// Listen registers fn for traversal events.
func (m *Memory) Listen(fn func(path string)) (stop func()) {
	return m.listeners.add(fn)
}

// Go moves delta entries and notifies listeners with the new location.
// Go(0) does nothing.
func (m *Memory) Go(delta int) error {
	if delta == 0 {
		return nil
	}

	m.mu.Lock()
	target := m.index + delta
	if target < 0 || target >= len(m.entries) {
		m.mu.Unlock()
		return ErrOutOfRange
	}
	m.index = target
	path := m.entries[target]
	m.mu.Unlock()

	m.listeners.notify(path)
	return nil
}

// Back is Go(-1).
func (m *Memory) Back() error {
	return m.Go(-1)
}

// Forward is Go(1).
func (m *Memory) Forward() error {
	return m.Go(1)
}

// Entries returns a copy of the stack and the current index.
func (m *Memory) Entries() ([]string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	copy(out, m.entries)
	return out, m.index
}
