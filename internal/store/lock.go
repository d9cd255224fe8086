package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
)

// LockFileName is the lock file created in an index root.
const LockFileName = ".ftsync.lock"

// RootLock keeps two processes from opening the same index root.
// Works on all platforms gofrs/flock supports.
type RootLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewRootLock creates an unlocked lock for the index root dir.
func NewRootLock(dir string) *RootLock {
	p := filepath.Join(dir, LockFileName)
	return &RootLock{path: p, flock: flock.New(p)}
}

// Acquire takes the lock, retrying until timeout elapses.
func (l *RootLock) Acquire(ctx context.Context, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create index root: %w", err)
	}

	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := l.flock.TryLockContext(lctx, 50*time.Millisecond)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil || !ok {
		return ftserr.New(ftserr.ErrCodeRootLocked,
			fmt.Sprintf("index root %s is in use by another process", filepath.Dir(l.path)), err).
			WithDetail("lock", l.path)
	}

	l.locked = true
	return nil
}

// Release unlocks. Safe to call on an unlocked RootLock.
func (l *RootLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *RootLock) Path() string { return l.path }
