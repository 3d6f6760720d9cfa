// Package lock keeps two runs of the same job from writing at once.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrLocked is returned when another holder owns the lock.
var ErrLocked = errors.New("lock is held by another run")

// Release gives the lock back. Releasing an expired or stolen lock is not
// an error.
type Release func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (Release, error)
}

// Noop grants every request.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
