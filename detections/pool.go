package detections

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SessionPool hands out ModelSessions so that concurrent detections never
// share one set of input and output tensors.
type SessionPool struct {
	sessions       chan *ModelSession
	size           int
	acquireTimeout time.Duration

	mu     sync.Mutex
	closed bool

	inUse    atomic.Int64
	acquired atomic.Int64
	released atomic.Int64
	failures atomic.Int64
	waitNs   atomic.Int64
}

// PoolSnapshot is a copy of the pool counters.
type PoolSnapshot struct {
	Size            int           `json:"pool_size"`
	InUse           int           `json:"sessions_in_use"`
	TotalAcquired   int64         `json:"total_acquired"`
	TotalReleased   int64         `json:"total_released"`
	AcquireFailures int64         `json:"acquire_failures"`
	WaitTime        time.Duration `json:"wait_time_ns"`
}

// NewSessionPool fills a pool of size sessions created by factory.
func NewSessionPool(size int, acquireTimeout time.Duration, factory func() (*ModelSession, error)) (*SessionPool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if acquireTimeout <= 0 {
		acquireTimeout = AcquireTimeout
	}

	pool := &SessionPool{
		sessions:       make(chan *ModelSession, size),
		size:           size,
		acquireTimeout: acquireTimeout,
	}

	for i := 0; i < size; i++ {
		session, err := factory()
		if err != nil {
			pool.Destroy()
			return nil, fmt.Errorf("failed to initialize session %d: %w", i, err)
		}
		pool.sessions <- session
	}

	return pool, nil
}

func (p *SessionPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Acquire waits for a free session until the pool timeout or ctx expires.
func (p *SessionPool) Acquire(ctx context.Context) (*ModelSession, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { p.waitNs.Add(int64(time.Since(start))) }()

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case session, ok := <-p.sessions:
		if !ok {
			return nil, ErrPoolClosed
		}
		p.inUse.Add(1)
		p.acquired.Add(1)
		return session, nil
	case <-timer.C:
		p.failures.Add(1)
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns session to the pool, or destroys it once the pool is
// closed. A nil session is ignored.
func (p *SessionPool) Release(session *ModelSession) {
	if session == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.inUse.Add(-1)
	p.released.Add(1)

	if p.closed {
		session.Destroy()
		return
	}
	p.sessions <- session
}

// Destroy closes the pool and destroys every idle session. Sessions still
// checked out are destroyed when they are released.
func (p *SessionPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.sessions)

	for session := range p.sessions {
		session.Destroy()
	}
}

func (p *SessionPool) Size() int {
	return p.size
}

// Available reports how many sessions are idle right now.
func (p *SessionPool) Available() int {
	return len(p.sessions)
}

func (p *SessionPool) Metrics() PoolSnapshot {
	return PoolSnapshot{
		Size:            p.size,
		InUse:           int(p.inUse.Load()),
		TotalAcquired:   p.acquired.Load(),
		TotalReleased:   p.released.Load(),
		AcquireFailures: p.failures.Load(),
		WaitTime:        time.Duration(p.waitNs.Load()),
	}
}
