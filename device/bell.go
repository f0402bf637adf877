package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Pin drives one GPIO output line.
type Pin interface {
	Set(high bool) error
}

// LogPin stands in for the relay GPIO on hosts without one.
type LogPin struct {
	Name   string
	mu     sync.Mutex
	level  bool
	logger *slog.Logger
}

func NewLogPin(name string) *LogPin {
	return &LogPin{Name: name, logger: slog.Default().With("component", "gpio")}
}

func (p *LogPin) Set(high bool) error {
	p.mu.Lock()
	p.level = high
	p.mu.Unlock()
	p.logger.Info("gpio level", slog.String("pin", p.Name), slog.Bool("high", high))
	return nil
}

func (p *LogPin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Bell drives the bell relay. A ring holds it on for a fixed duration; only
// one ring runs at a time.
type Bell struct {
	pin     Pin
	mu      sync.Mutex
	ringing bool
}

func NewBell(pin Pin) *Bell {
	return &Bell{pin: pin}
}

func (b *Bell) Run() error {
	if err := b.pin.Set(true); err != nil {
		return fmt.Errorf("bell on: %w", err)
	}
	return nil
}

func (b *Bell) Stop() error {
	if err := b.pin.Set(false); err != nil {
		return fmt.Errorf("bell off: %w", err)
	}
	return nil
}

// ringWait switches the relay on for d, then off, and returns when done. The
// relay is switched off even when ctx is cancelled early.
func (b *Bell) ringWait(ctx context.Context, d time.Duration) error {
	if err := b.acquire(); err != nil {
		return err
	}
	return b.ring(ctx, d)
}

// RingAsync claims the relay and rings it in the background. It returns
// ErrBellBusy immediately when a ring is already in progress.
func (b *Bell) RingAsync(d time.Duration) error {
	if err := b.acquire(); err != nil {
		return err
	}
	go func() {
		if err := b.ring(context.Background(), d); err != nil {
			slog.Error("bell ring failed", slog.String("err", err.Error()))
		}
	}()
	return nil
}

func (b *Bell) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ringing {
		return ErrBellBusy
	}
	b.ringing = true
	return nil
}

func (b *Bell) ring(ctx context.Context, d time.Duration) error {
	defer func() {
		b.mu.Lock()
		b.ringing = false
		b.mu.Unlock()
	}()

	if err := b.Run(); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	return b.Stop()
}

func (b *Bell) Ringing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ringing
}
