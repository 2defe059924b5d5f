package scripted

import (
	"context"
	"sync"
)

// Latch parks one service call until released.
type Latch struct {
	entered     chan struct{}
	release     chan struct{}
	enterOnce   sync.Once
	releaseOnce sync.Once
}

func newLatch() *Latch {
	return &Latch{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// Entered is closed once the held call has reached the service.
func (l *Latch) Entered() <-chan struct{} {
	return l.entered
}

// Release lets the held call proceed. Calling it more than once is a no-op.
func (l *Latch) Release() {
	l.releaseOnce.Do(func() { close(l.release) })
}

func (l *Latch) wait(ctx context.Context) error {
	l.enterOnce.Do(func() { close(l.entered) })
	select {
	case <-l.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
