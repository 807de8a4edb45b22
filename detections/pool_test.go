package detections

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestPool(t *testing.T, size int) *SessionPool {
	t.Helper()
	pool, err := NewSessionPool(size, 20*time.Millisecond, func() (*ModelSession, error) {
		return &ModelSession{}, nil
	})
	if err != nil {
		t.Fatalf("NewSessionPool() error = %v", err)
	}
	return pool
}

func TestSessionPoolAcquireRelease(t *testing.T) {
	pool := newTestPool(t, 2)
	defer pool.Destroy()
	ctx := context.Background()

	first, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	second, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if first == second {
		t.Error("pool handed out the same session twice")
	}

	if _, err := pool.Acquire(ctx); !errors.Is(err, ErrAcquireTimeout) {
		t.Errorf("Acquire() on empty pool error = %v, want ErrAcquireTimeout", err)
	}

	m := pool.Metrics()
	if m.Size != 2 || m.InUse != 2 || m.TotalAcquired != 2 || m.AcquireFailures != 1 {
		t.Errorf("metrics = %+v", m)
	}

	pool.Release(first)
	pool.Release(second)
	if m := pool.Metrics(); m.InUse != 0 || m.TotalReleased != 2 {
		t.Errorf("metrics after release = %+v", m)
	}
}

func TestSessionPoolContextCancel(t *testing.T) {
	pool := newTestPool(t, 1)
	defer pool.Destroy()

	held, _ := pool.Acquire(context.Background())
	defer pool.Release(held)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestSessionPoolClosed(t *testing.T) {
	pool := newTestPool(t, 1)
	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	pool.Destroy()
	pool.Destroy()
	pool.Release(held)

	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire() after Destroy error = %v, want ErrPoolClosed", err)
	}
}

func TestSessionPoolFactoryError(t *testing.T) {
	calls := 0
	_, err := NewSessionPool(3, 0, func() (*ModelSession, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("no memory")
		}
		return &ModelSession{}, nil
	})
	if err == nil {
		t.Fatal("NewSessionPool() error = nil")
	}
	if calls != 2 {
		t.Errorf("factory called %d times, want 2", calls)
	}
}

func TestSessionPoolReleaseNil(t *testing.T) {
	pool := newTestPool(t, 1)
	defer pool.Destroy()

	pool.Release(nil)
	if m := pool.Metrics(); m.InUse != 0 || m.TotalReleased != 0 {
		t.Errorf("metrics after Release(nil) = %+v", m)
	}
	if got := pool.Available(); got != 1 {
		t.Errorf("Available() = %d, want 1", got)
	}
}

func TestSessionPoolAvailable(t *testing.T) {
	pool := newTestPool(t, 2)
	defer pool.Destroy()

	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got := pool.Available(); got != 1 {
		t.Errorf("Available() with one held = %d, want 1", got)
	}
	pool.Release(held)
	if got := pool.Available(); got != 2 {
		t.Errorf("Available() after release = %d, want 2", got)
	}
}

func TestModelSessionDestroyPartial(t *testing.T) {
	var nilSession *ModelSession
	nilSession.Destroy()

	empty := &ModelSession{}
	empty.Destroy()
	empty.Destroy()
}

func TestSessionPoolCancelledContextWithFreeSession(t *testing.T) {
	pool := newTestPool(t, 1)
	defer pool.Destroy()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
	if m := pool.Metrics(); m.InUse != 0 || m.TotalAcquired != 0 {
		t.Errorf("metrics = %+v", m)
	}
}
