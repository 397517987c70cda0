package memory

import (
	"context"
	"sync"
	"time"

	"cmseditor/application/ports"
	pkgerrors "cmseditor/pkg/errors"
)

// LockService keeps resource locks in process memory
type LockService struct {
	mu    sync.Mutex
	locks map[string]ports.Lock
	now   func() time.Time
}

func NewLockService() *LockService {
	return &LockService{locks: make(map[string]ports.Lock), now: time.Now}
}

func (s *LockService) Acquire(ctx context.Context, path, owner string, ttl time.Duration) (*ports.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if current, ok := s.locks[path]; ok && current.ExpiresAt.After(now) && current.Owner != owner {
		return nil, pkgerrors.ErrResourceLocked.Clone().
			WithDetail("path", path).
			WithDetail("owner", current.Owner)
	}
	lock := ports.Lock{Path: path, Owner: owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)}
	s.locks[path] = lock
	return &lock, nil
}

func (s *LockService) Release(ctx context.Context, path, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.locks[path]; ok && current.Owner == owner {
		delete(s.locks, path)
	}
	return nil
}

func (s *LockService) GetLock(ctx context.Context, path string) (*ports.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.locks[path]
	if !ok || !current.ExpiresAt.After(s.now()) {
		return nil, nil
	}
	return &current, nil
}
