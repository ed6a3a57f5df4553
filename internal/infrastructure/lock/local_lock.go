package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type holder struct {
	token     string
	expiresAt time.Time
}

// LocalLock is an in-process run lock. It is suitable for single-instance
// deployments and testing.
type LocalLock struct {
	mu    sync.Mutex
	held  map[string]holder
	clock func() time.Time
}

// NewLocalLock creates a new in-process lock
func NewLocalLock() *LocalLock {
	return &LocalLock{
		held:  make(map[string]holder),
		clock: time.Now,
	}
}

// TryLock takes key for ttl. It returns ok=false while another holder owns
// an unexpired lock on key.
func (l *LocalLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if h, ok := l.held[key]; ok && now.Before(h.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.held[key] = holder{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Unlock releases key if token still owns it. Releasing a lock that expired
// or was taken over is not an error.
func (l *LocalLock) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.held[key]; ok && h.token == token {
		delete(l.held, key)
	}
	return nil
}

// IsHeld reports whether key is currently locked
func (l *LocalLock) IsHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.held[key]
	return ok && l.clock().Before(h.expiresAt)
}
