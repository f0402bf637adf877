package wifi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
)

type Mode int

const (
	ModeAP Mode = iota
	ModeSTA
)

func (m Mode) String() string {
	switch m {
	case ModeAP:
		return "AP"
	case ModeSTA:
		return "STA"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

type AuthMode int

const (
	AuthOpen AuthMode = iota
	AuthWPA2PSK
)

func (a AuthMode) String() string {
	if a == AuthOpen {
		return "OPEN"
	}
	return "WPA2_PSK"
}

// authFor picks open auth for an empty password and WPA2 otherwise.
func authFor(password string) AuthMode {
	if password == "" {
		return AuthOpen
	}
	return AuthWPA2PSK
}

type APConfig struct {
	SSID           string
	Password       string
	Channel        int
	MaxConnections int
	Auth           AuthMode
}

type STAConfig struct {
	SSID          string
	Password      string
	AuthThreshold AuthMode
}

type EventKind int

const (
	EventGotIP EventKind = iota
	EventDisconnected
)

func (k EventKind) String() string {
	if k == EventGotIP {
		return "got_ip"
	}
	return "disconnected"
}

type Event struct {
	Kind   EventKind
	IP     netip.Addr
	Reason string
}

// Radio is the platform network stack. Calls happen in the order the
// Manager issues them; any error aborts bring-up.
type Radio interface {
	InitStack(ctx context.Context) error
	CreateInterface(ctx context.Context, mode Mode) error
	Init(ctx context.Context) error
	SetMode(ctx context.Context, mode Mode) error
	ConfigureAP(ctx context.Context, cfg APConfig) error
	ConfigureSTA(ctx context.Context, cfg STAConfig) error
	Start(ctx context.Context) error
	Connect(ctx context.Context) error
	OnEvent(kind EventKind, fn func(Event)) error
}

// SimRadio is a Radio that records calls and lets tests and the host build
// inject station events.
type SimRadio struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]error
	handlers map[EventKind][]func(Event)
	mode     Mode
	ap       APConfig
	sta      STAConfig
	started  bool
	logger   *slog.Logger
}

func NewSimRadio() *SimRadio {
	return &SimRadio{
		fail:     make(map[string]error),
		handlers: make(map[EventKind][]func(Event)),
		logger:   slog.Default().With("component", "radio"),
	}
}

// FailOn makes the named step ("init_stack", "start", ...) return err.
func (r *SimRadio) FailOn(step string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[step] = err
}

func (r *SimRadio) step(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	if err := r.fail[name]; err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (r *SimRadio) InitStack(ctx context.Context) error { return r.step("init_stack") }

func (r *SimRadio) CreateInterface(ctx context.Context, mode Mode) error {
	return r.step("create_" + mode.String())
}

func (r *SimRadio) Init(ctx context.Context) error { return r.step("init") }

func (r *SimRadio) SetMode(ctx context.Context, mode Mode) error {
	if err := r.step("set_mode"); err != nil {
		return err
	}
	r.mu.Lock()
	r.mode = mode
	r.mu.Unlock()
	return nil
}

func (r *SimRadio) ConfigureAP(ctx context.Context, cfg APConfig) error {
	if err := r.step("configure_ap"); err != nil {
		return err
	}
	r.mu.Lock()
	r.ap = cfg
	r.mu.Unlock()
	return nil
}

func (r *SimRadio) ConfigureSTA(ctx context.Context, cfg STAConfig) error {
	if err := r.step("configure_sta"); err != nil {
		return err
	}
	r.mu.Lock()
	r.sta = cfg
	r.mu.Unlock()
	return nil
}

func (r *SimRadio) Start(ctx context.Context) error {
	if err := r.step("start"); err != nil {
		return err
	}
	r.mu.Lock()
	r.started = true
	mode, ap := r.mode, r.ap
	r.mu.Unlock()

	if mode == ModeAP {
		r.logger.Info("access point up",
			slog.String("ssid", ap.SSID),
			slog.String("auth", ap.Auth.String()),
			slog.Int("channel", ap.Channel),
		)
	}
	return nil
}

func (r *SimRadio) Connect(ctx context.Context) error {
	if err := r.step("connect"); err != nil {
		return err
	}
	r.mu.Lock()
	started := r.started
	ssid := r.sta.SSID
	r.mu.Unlock()
	if !started {
		return errors.New("connect: radio not started")
	}
	r.logger.Info("station connecting", slog.String("ssid", ssid))
	return nil
}

func (r *SimRadio) OnEvent(kind EventKind, fn func(Event)) error {
	if err := r.step("on_" + kind.String()); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = append(r.handlers[kind], fn)
	return nil
}

// Emit delivers ev to the registered handlers synchronously.
func (r *SimRadio) Emit(ev Event) {
	r.mu.Lock()
	hs := append([]func(Event){}, r.handlers[ev.Kind]...)
	r.mu.Unlock()
	for _, fn := range hs {
		fn(ev)
	}
}

func (r *SimRadio) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *SimRadio) AP() APConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ap
}

func (r *SimRadio) STA() STAConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sta
}

func (r *SimRadio) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}
