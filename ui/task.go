// Package ui runs the task that owns the display. Other tasks talk to it
// only through its event queue.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"doorbell-core/apperr"
	"doorbell-core/display"
	"doorbell-core/metrics"
)

const splashChunk = 100 * time.Millisecond

// MinQueueDepth is the smallest accepted event queue.
const MinQueueDepth = 4

type EventKind int

const (
	EventShowSplash EventKind = iota
	EventShowWiFiSetup
)

func (k EventKind) String() string {
	switch k {
	case EventShowSplash:
		return "show_splash"
	case EventShowWiFiSetup:
		return "show_wifi_setup"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

type event struct {
	kind     EventKind
	duration time.Duration
	result   chan display.SetupResult
}

var ErrStopped = errors.New("ui task stopped")

type Options struct {
	Display        display.Display
	QueueDepth     int
	PollInterval   time.Duration
	EnqueueTimeout time.Duration
	ShutdownGrace  time.Duration
}

type Task struct {
	disp           display.Display
	events         chan event
	poll           time.Duration
	enqueueTimeout time.Duration
	grace          time.Duration
	logger         *slog.Logger

	running atomic.Bool
	started atomic.Bool
	done    chan struct{}
	stop    sync.Once
}

// New allocates the task and its queue. Depths below MinQueueDepth are
// raised to it.
func New(opts Options) (*Task, error) {
	if opts.Display == nil {
		return nil, fmt.Errorf("display is required: %w", apperr.ErrInvalidParam)
	}
	if opts.QueueDepth < 1 {
		return nil, fmt.Errorf("queue depth %d: %w", opts.QueueDepth, apperr.ErrQueueCreateFailed)
	}
	depth := max(opts.QueueDepth, MinQueueDepth)

	poll := opts.PollInterval
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	return &Task{
		disp:           opts.Display,
		events:         make(chan event, depth),
		poll:           poll,
		enqueueTimeout: opts.EnqueueTimeout,
		grace:          opts.ShutdownGrace,
		logger:         slog.Default().With("component", "ui"),
		done:           make(chan struct{}),
	}, nil
}

// Start launches the task loop. It may be called once.
func (t *Task) Start(ctx context.Context) error {
	if !t.started.CompareAndSwap(false, true) {
		return fmt.Errorf("ui task already started: %w", apperr.ErrTaskCreateFailed)
	}
	t.running.Store(true)
	go t.run(ctx)
	t.logger.Info("ui task started", slog.Int("queue_depth", cap(t.events)))
	return nil
}

// ShowSplash asks for the splash screen to be held for d.
func (t *Task) ShowSplash(d time.Duration) error {
	return t.enqueue(event{kind: EventShowSplash, duration: d})
}

// ShowWiFiSetup asks for the setup screen. The returned channel receives
// exactly one result and is then closed.
func (t *Task) ShowWiFiSetup() (<-chan display.SetupResult, error) {
	ch := make(chan display.SetupResult, 1)
	if err := t.enqueue(event{kind: EventShowWiFiSetup, result: ch}); err != nil {
		return nil, err
	}
	return ch, nil
}

func (t *Task) enqueue(ev event) error {
	if !t.running.Load() {
		return ErrStopped
	}

	select {
	case t.events <- ev:
		return nil
	default:
	}

	if t.enqueueTimeout > 0 {
		timer := time.NewTimer(t.enqueueTimeout)
		defer timer.Stop()
		select {
		case t.events <- ev:
			return nil
		case <-timer.C:
		}
	}

	metrics.UIEventDropped(ev.kind.String())
	t.logger.Warn("ui queue full, event dropped", slog.String("event", ev.kind.String()))
	return fmt.Errorf("enqueue %s: %w", ev.kind, apperr.ErrQueueFull)
}

func (t *Task) run(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for t.running.Load() {
		select {
		case <-ctx.Done():
			t.running.Store(false)
			return
		case ev := <-t.events:
			t.handle(ctx, ev)
		case <-ticker.C:
		}
		t.disp.Tick()
	}
}

func (t *Task) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case EventShowSplash:
		if err := t.disp.ShowSplash(); err != nil {
			t.logger.Error("splash screen failed", slog.String("err", err.Error()))
			return
		}
		t.hold(ctx, ev.duration)

	case EventShowWiFiSetup:
		var once sync.Once
		deliver := func(r display.SetupResult) {
			once.Do(func() {
				ev.result <- r
				close(ev.result)
			})
		}
		if err := t.disp.ShowWiFiSetup(deliver); err != nil {
			t.logger.Error("wifi setup screen failed", slog.String("err", err.Error()))
			deliver(display.SetupResult{Outcome: display.SetupError, Err: err})
		}
	}
}

// hold waits d in small chunks, ticking the display between them so the
// renderer and watchdog are never starved.
func (t *Task) hold(ctx context.Context, d time.Duration) {
	deadline := time.Now().Add(d)
	for t.running.Load() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		step := min(remaining, splashChunk)
		select {
		case <-ctx.Done():
			return
		case <-time.After(step):
		}
		t.disp.Tick()
	}
}

// Stop clears the running flag and waits up to the grace period for the loop
// to notice. Pending events are discarded; a pending setup request
// receives a SetupError result.
func (t *Task) Stop() {
	t.stop.Do(func() {
		t.running.Store(false)
		if t.started.Load() {
			select {
			case <-t.done:
			case <-time.After(t.grace):
				t.logger.Warn("ui task still busy after grace period")
			}
		}
		for {
			select {
			case ev := <-t.events:
				if ev.result != nil {
					ev.result <- display.SetupResult{Outcome: display.SetupError, Err: ErrStopped}
					close(ev.result)
				}
			default:
				t.logger.Info("ui task stopped")
				return
			}
		}
	})
}
