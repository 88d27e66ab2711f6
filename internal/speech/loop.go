package speech

import (
	"context"
	"log/slog"
	"sync"
)

// Loop is the single control goroutine. Every controller method and every
// engine event runs on it, in the order it was posted, so controllers need
// no locks of their own.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewLoop(logger *slog.Logger) *Loop {
	return &Loop{
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Run processes posted work until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.stopped) })

	l.logger.Debug("speech loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("speech loop stopped")
			return nil
		case <-l.wake:
			for _, fn := range l.drain() {
				fn()
			}
		}
	}
}

func (l *Loop) drain() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.pending
	l.pending = nil
	return batch
}

// Post queues fn without blocking. It is safe to call from any goroutine,
// including the loop itself.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.stopped:
		return
	default:
	}

	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it. It must not be called from the
// loop goroutine.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-l.stopped:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}
