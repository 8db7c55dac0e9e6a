// Package notify delivers phase-transition alerts and chimes. Delivery is
// fire-and-forget: callers never block on a sink and sink failures never
// reach them.
package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"breeze/internal/infrastructure/logging"
	"breeze/internal/types"
)

const (
	defaultQueueSize   = 16
	DefaultSinkTimeout = 5 * time.Second
)

// Alerter shows a notification to the user
type Alerter interface {
	Alert(ctx context.Context, n Notification) error
}

// Chimer plays a short sequence of tones
type Chimer interface {
	Chime(ctx context.Context, tones []Tone) error
}

// AlerterFunc adapts a function to Alerter
type AlerterFunc func(ctx context.Context, n Notification) error

func (f AlerterFunc) Alert(ctx context.Context, n Notification) error { return f(ctx, n) }

// ChimerFunc adapts a function to Chimer
type ChimerFunc func(ctx context.Context, tones []Tone) error

func (f ChimerFunc) Chime(ctx context.Context, tones []Tone) error { return f(ctx, tones) }

// Option configures a Dispatcher
type Option func(*Dispatcher)

func WithAlerter(a Alerter) Option {
	return func(d *Dispatcher) {
		if a != nil {
			d.alerters = append(d.alerters, a)
		}
	}
}

func WithChimer(c Chimer) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.chimers = append(d.chimers, c)
		}
	}
}

func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

func WithSinkTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sinkTimeout = timeout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher queues notifications for a single worker goroutine
type Dispatcher struct {
	logger      logging.Logger
	alerters    []Alerter
	chimers     []Chimer
	queueSize   int
	sinkTimeout time.Duration
	now         func() time.Time

	queue    chan Notification
	enabled  atomic.Bool
	rotation atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewDispatcher starts the delivery worker. Call Close to stop it.
func NewDispatcher(logger logging.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	d := &Dispatcher{
		logger:      logger,
		queueSize:   defaultQueueSize,
		sinkTimeout: DefaultSinkTimeout,
		now:         time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan Notification, d.queueSize)
	d.enabled.Store(true)

	go d.run()
	return d
}

// SetEnabled mirrors the user's notification preference
func (d *Dispatcher) SetEnabled(enabled bool) {
	d.enabled.Store(enabled)
}

func (d *Dispatcher) Enabled() bool {
	return d.enabled.Load()
}

// NotifyPhaseTransition enqueues the notification for kind. It reports
// whether the notification was accepted.
func (d *Dispatcher) NotifyPhaseTransition(kind types.TransitionKind) bool {
	if !d.enabled.Load() {
		return false
	}

	rotation := 0
	if kind == types.TransitionSessionComplete {
		rotation = int(d.rotation.Add(1) - 1)
	}

	n, ok := Build(kind, rotation, d.now())
	if !ok {
		d.logger.Debug("ignoring unknown transition kind", "kind", string(kind))
		return false
	}
	return d.enqueue(n)
}

func (d *Dispatcher) enqueue(n Notification) bool {
	select {
	case <-d.stop:
		return false
	default:
	}

	select {
	case d.queue <- n:
		return true
	default:
		d.logger.Debug("notification queue full, dropping", "kind", string(n.Kind))
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-d.stop:
			// deliver what was already accepted
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
	defer cancel()

	for _, a := range d.alerters {
		d.safely("alert", n.Kind, func() error { return a.Alert(ctx, n) })
	}
	if len(n.Tones) == 0 {
		return
	}
	for _, c := range d.chimers {
		d.safely("chime", n.Kind, func() error { return c.Chime(ctx, n.Tones) })
	}
}

func (d *Dispatcher) safely(op string, kind types.TransitionKind, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogError(d.logger, fmt.Errorf("notification sink panicked: %v", r), "notify."+op,
				map[string]interface{}{"kind": string(kind)})
		}
	}()

	if err := fn(); err != nil {
		logging.LogError(d.logger, err, "notify."+op, map[string]interface{}{"kind": string(kind)})
	}
}

// Close stops accepting notifications, drains the queue and waits for the
// worker or ctx, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() { close(d.stop) })

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
