// Package lock provides cross-process advisory file locks.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrTimeout is returned when another process holds the lock for too long.
var ErrTimeout = errors.New("timed out waiting for lock")

// DefaultWait bounds how long FlockAcquire waits for another holder.
const DefaultWait = 10 * time.Second

const retryDelay = 50 * time.Millisecond

// FlockAcquire takes an exclusive lock on path, creating it if needed, and
// returns the function that releases it.
func FlockAcquire(path string) (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultWait)
	defer cancel()
	return FlockAcquireContext(ctx, path)
}

// FlockAcquireContext is FlockAcquire bounded by ctx.
func FlockAcquireContext(ctx context.Context, path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, path)
	}
	return func() { _ = fl.Unlock() }, nil
}
