// Package display is the boundary to the screen driver and widget library.
package display

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type Screen int

const (
	ScreenNone Screen = iota
	ScreenSplash
	ScreenWiFiSetup
)

func (s Screen) String() string {
	switch s {
	case ScreenNone:
		return "none"
	case ScreenSplash:
		return "splash"
	case ScreenWiFiSetup:
		return "wifi_setup"
	default:
		return fmt.Sprintf("Screen(%d)", int(s))
	}
}

type SetupOutcome int

const (
	SetupConnected SetupOutcome = iota
	SetupSkipped
	SetupError
)

func (o SetupOutcome) String() string {
	switch o {
	case SetupConnected:
		return "connected"
	case SetupSkipped:
		return "skipped"
	default:
		return "error"
	}
}

// SetupResult is what the WiFi setup screen reports. SSID and Password are
// set only for SetupConnected; Err only for SetupError.
type SetupResult struct {
	Outcome  SetupOutcome
	SSID     string
	Password string
	Err      error
}

// Display builds screens and runs the widget library's timers. Only the UI
// task calls it.
type Display interface {
	Init(ctx context.Context) error
	ShowSplash() error
	// ShowWiFiSetup shows the setup screen; done is called at most once when
	// the user connects or skips.
	ShowWiFiSetup(done func(SetupResult)) error
	// Tick lets the widget library render and process input.
	Tick()
}

// LogDisplay stands in for a panel on hosts without one. Screens are logged
// and a pending setup screen can be answered with Submit.
type LogDisplay struct {
	mu      sync.Mutex
	ready   bool
	current Screen
	pending func(SetupResult)
	ticks   int
	logger  *slog.Logger
}

func NewLogDisplay() *LogDisplay {
	return &LogDisplay{logger: slog.Default().With("component", "display")}
}

func (d *LogDisplay) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ready = true
	d.logger.Info("display ready")
	return nil
}

func (d *LogDisplay) show(s Screen) error {
	if !d.ready {
		return fmt.Errorf("display not initialised")
	}
	d.current = s
	d.logger.Info("screen shown", slog.String("screen", s.String()))
	return nil
}

func (d *LogDisplay) ShowSplash() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.show(ScreenSplash)
}

func (d *LogDisplay) ShowWiFiSetup(done func(SetupResult)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.show(ScreenWiFiSetup); err != nil {
		return err
	}
	d.pending = done
	return nil
}

func (d *LogDisplay) Tick() {
	d.mu.Lock()
	d.ticks++
	d.mu.Unlock()
}

// Submit answers the setup screen as if the user had pressed a button. It
// reports false when no setup screen is waiting.
func (d *LogDisplay) Submit(r SetupResult) bool {
	d.mu.Lock()
	done := d.pending
	d.pending = nil
	d.mu.Unlock()

	if done == nil {
		return false
	}
	d.logger.Info("setup screen answered", slog.String("outcome", r.Outcome.String()))
	done(r)
	return true
}

func (d *LogDisplay) Current() Screen {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *LogDisplay) Ticks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks
}
