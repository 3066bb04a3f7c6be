package storage

import (
	"context"
	"sync"
)

// Memory is a process-local [TokenStorage], [UserStorage] and [StateStorage].
type Memory struct {
	mu     sync.Mutex
	token  string
	user   []byte
	states map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *Memory) Get(context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != "", nil
}

func (m *Memory) Destroy(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func (m *Memory) SaveUser(_ context.Context, record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = append([]byte(nil), record...)
	return nil
}

func (m *Memory) LoadUser(context.Context) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.user) == 0 {
		return nil, false, nil
	}
	return append([]byte(nil), m.user...), true, nil
}

func (m *Memory) DestroyUser(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}

func (m *Memory) SaveState(_ context.Context, name string, record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = make(map[string][]byte)
	}
	m.states[name] = append([]byte(nil), record...)
	return nil
}

func (m *Memory) LoadState(_ context.Context, name string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.states[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) DestroyState(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, name)
	return nil
}
