package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"breeze/internal/infrastructure/logging"
)

// writeOp performs one persistence call
type writeOp func(ctx context.Context) error

// stateWriter persists in the background. Pending ops are keyed: a newer op
// for a key replaces the queued one (last write wins) but keeps its place in
// line, so distinct keys are written in first-enqueued order.
type stateWriter struct {
	mu      sync.Mutex
	order   []string
	pending map[string]writeOp
	closed  bool

	// serialises batches so a Flush never races the background loop
	writeMu sync.Mutex

	timeout time.Duration
	logger  logging.Logger

	signal    chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newStateWriter(timeout time.Duration, logger logging.Logger) *stateWriter {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	w := &stateWriter{
		pending: make(map[string]writeOp),
		timeout: timeout,
		logger:  logger,
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Put queues op under key. It never blocks and reports false once closed.
func (w *stateWriter) Put(key string, op writeOp) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	if _, queued := w.pending[key]; !queued {
		w.order = append(w.order, key)
	}
	w.pending[key] = op
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
	return true
}

func (w *stateWriter) run() {
	defer close(w.done)
	for {
		select {
		case <-w.signal:
			_ = w.drain(context.Background())
		case <-w.stop:
			_ = w.drain(context.Background())
			return
		}
	}
}

func (w *stateWriter) take() ([]string, map[string]writeOp) {
	w.mu.Lock()
	defer w.mu.Unlock()

	order, batch := w.order, w.pending
	w.order = nil
	w.pending = make(map[string]writeOp)
	return order, batch
}

func (w *stateWriter) drain(ctx context.Context) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	order, batch := w.take()
	var errs []error
	for _, key := range order {
		opCtx, cancel := context.WithTimeout(ctx, w.timeout)
		err := batch[key](opCtx)
		cancel()
		if err != nil {
			logging.LogError(w.logger, err, "persist", map[string]interface{}{"key": key})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush writes everything queued so far before returning
func (w *stateWriter) Flush(ctx context.Context) error {
	return w.drain(ctx)
}

// Close stops accepting ops, writes what is queued and waits for the loop
func (w *stateWriter) Close(ctx context.Context) error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.stop)
	})

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
