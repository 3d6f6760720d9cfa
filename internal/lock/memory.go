package lock

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	token   string
	expires time.Time
}

// Memory is an in-process Locker.
type Memory struct {
	mu   sync.Mutex
	held map[string]entry
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]entry), now: time.Now}
}

func (m *Memory) Acquire(ctx context.Context, name string, ttl time.Duration) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.held[name]; ok && now.Before(e.expires) {
		return nil, ErrLocked
	}

	token := newToken()
	m.held[name] = entry{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.held[name]; ok && e.token == token {
			delete(m.held, name)
		}
		return nil
	}, nil
}
