// Package app is the top-level task: it brings the device up in a fixed order
// and then waits for application events.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"doorbell-core/apperr"
	"doorbell-core/config"
	"doorbell-core/database"
	"doorbell-core/device"
	"doorbell-core/display"
	"doorbell-core/fsys"
	"doorbell-core/metrics"
	"doorbell-core/server"
	"doorbell-core/session"
	"doorbell-core/storage"
	"doorbell-core/ui"
	"doorbell-core/wifi"
)

type Phase int

const (
	PhaseStorage Phase = iota
	PhaseFilesystem
	PhaseDisplay
	PhaseAssetListing
	PhaseNetwork
	PhaseHTTPServer
	PhaseUITask
	PhaseSplash
)

var phaseNames = [...]string{
	PhaseStorage:      "storage",
	PhaseFilesystem:   "filesystem",
	PhaseDisplay:      "display",
	PhaseAssetListing: "asset_listing",
	PhaseNetwork:      "network",
	PhaseHTTPServer:   "http_server",
	PhaseUITask:       "ui_task",
	PhaseSplash:       "splash",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// splashMargin lets the UI task finish the splash hold before the setup
// screen is queued behind it.
const splashMargin = 100 * time.Millisecond

const eventQueueDepth = 8

type EventKind int

const (
	// EventNoop is accepted and ignored.
	EventNoop EventKind = iota
	// EventSetupResult carries the WiFi setup screen outcome.
	EventSetupResult
)

type Event struct {
	Kind  EventKind
	Setup display.SetupResult
}

// StoreOpener opens the credential store. The returned DB, when not nil, is
// closed on shutdown and lends its Redis client to the login limiter.
type StoreOpener func(ctx context.Context, cfg *config.Config) (storage.Store, *database.DB, error)

// OpenDatabaseStore connects the configured backend and builds the store on it.
func OpenDatabaseStore(ctx context.Context, cfg *config.Config) (storage.Store, *database.DB, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.New(ctx, cfg.StoreBackend, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// Options wires the orchestrator. OpenStore defaults to OpenDatabaseStore.
// A nil Limiter is chosen from the rate limit backend setting.
type Options struct {
	Config    *config.Config
	OpenStore StoreOpener
	Radio     wifi.Radio
	Display   display.Display
	Restarter device.Restarter
	Bell      *device.Bell
	Verifier  session.Verifier
	Limiter   session.Limiter
}

// Orchestrator owns every handle it creates during boot and releases them in
// Shutdown.
type Orchestrator struct {
	cfg       *config.Config
	openStore StoreOpener
	radio     wifi.Radio
	disp      display.Display
	restarter device.Restarter
	bell      *device.Bell
	verifier  session.Verifier
	limiter   session.Limiter
	logger    *slog.Logger

	events chan Event

	mu        sync.Mutex
	store     storage.Store
	db        *database.DB
	bundle    *fsys.Bundle
	listing   fsys.Listing
	manager   *wifi.Manager
	srv       *server.Server
	uiTask    *ui.Task
	completed []Phase
	failed    *Phase
}

func New(opts Options) *Orchestrator {
	if opts.OpenStore == nil {
		opts.OpenStore = OpenDatabaseStore
	}
	return &Orchestrator{
		cfg:       opts.Config,
		openStore: opts.OpenStore,
		radio:     opts.Radio,
		disp:      opts.Display,
		restarter: opts.Restarter,
		bell:      opts.Bell,
		verifier:  opts.Verifier,
		limiter:   opts.Limiter,
		logger:    slog.Default().With("component", "app"),
		events:    make(chan Event, eventQueueDepth),
	}
}

// Run boots the device, then processes events until ctx is done. A failed
// phase skips the phases after it but does not stop the event loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Boot(ctx); err != nil {
		o.logger.Error("boot incomplete, running degraded", slog.String("err", err.Error()))
	}
	o.loop(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), o.cfg.ShutdownTimeout())
	defer cancel()
	return o.Shutdown(shutdownCtx)
}

// Boot runs the phases in order and returns the first failure.
func (o *Orchestrator) Boot(ctx context.Context) error {
	steps := []struct {
		phase Phase
		run   func(context.Context) error
	}{
		{PhaseStorage, o.initStorage},
		{PhaseFilesystem, o.mountFilesystem},
		{PhaseDisplay, o.initDisplay},
		{PhaseAssetListing, o.listAssets},
		{PhaseNetwork, o.startNetwork},
		{PhaseHTTPServer, o.startHTTP},
		{PhaseUITask, o.startUI},
		{PhaseSplash, o.showSplash},
	}

	for i, s := range steps {
		o.logger.Info("boot phase starting", slog.String("phase", s.phase.String()))
		if err := s.run(ctx); err != nil {
			metrics.BootPhase(s.phase.String(), "error")
			for _, skipped := range steps[i+1:] {
				metrics.BootPhase(skipped.phase.String(), "skipped")
			}
			o.mu.Lock()
			p := s.phase
			o.failed = &p
			o.mu.Unlock()
			o.logger.Error("boot phase failed",
				slog.String("phase", s.phase.String()),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("boot phase %s: %w", s.phase, err)
		}
		metrics.BootPhase(s.phase.String(), "ok")
		o.mu.Lock()
		o.completed = append(o.completed, s.phase)
		o.mu.Unlock()
		o.logger.Info("boot phase done", slog.String("phase", s.phase.String()))
	}
	return nil
}

func (o *Orchestrator) initStorage(ctx context.Context) error {
	store, db, err := o.openStore(ctx, o.cfg)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.store, o.db = store, db
	o.mu.Unlock()
	o.logger.Info("credential store ready", slog.String("backend", o.cfg.StoreBackend))
	return nil
}

func (o *Orchestrator) mountFilesystem(context.Context) error {
	b, err := fsys.Mount(o.cfg.WebRoot)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.bundle = b
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) initDisplay(ctx context.Context) error {
	return o.disp.Init(ctx)
}

func (o *Orchestrator) listAssets(context.Context) error {
	l := o.bundle.ListAssets()
	if !l.HasIndex {
		o.logger.Warn("bundle has no index page", slog.String("root", o.bundle.Root))
	}
	o.mu.Lock()
	o.listing = l
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) startNetwork(ctx context.Context) error {
	m := wifi.NewManager(wifi.ManagerOptions{
		Store:     o.store,
		Radio:     o.radio,
		Restarter: o.restarter,
		Defaults: wifi.Credentials{
			SSID:     o.cfg.APDefaultSSID,
			Password: o.cfg.APDefaultPassword,
		},
		DisconnectWipeThreshold: int(o.cfg.DisconnectWipeThreshold),
	})
	o.mu.Lock()
	o.manager = m
	o.mu.Unlock()
	return m.Start(ctx)
}

func (o *Orchestrator) startHTTP(context.Context) error {
	mode := o.manager.Mode()
	deps := server.Deps{
		Config:    o.cfg,
		Store:     o.store,
		Restarter: o.restarter,
		Network:   o.manager,
		Bell:      o.bell,
		Bundle:    o.bundle.FS,
	}
	if mode == wifi.ModeSTA {
		deps.Guard = session.NewGuard(session.Options{
			Verifier: o.verifier,
			Limiter:  o.loginLimiter(),
			TTL:      o.cfg.SessionTTL,
		})
	}

	srv, err := server.Start(":"+o.cfg.Port, server.Routes(mode, deps))
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.srv = srv
	o.mu.Unlock()

	o.manager.ServerStarted()
	o.logger.Info("control surface started", slog.String("mode", mode.String()), slog.String("addr", srv.Addr()))
	return nil
}

func (o *Orchestrator) loginLimiter() session.Limiter {
	if o.limiter != nil {
		return o.limiter
	}
	if o.cfg.RateLimitBackend == "redis" && o.db != nil && o.db.Redis != nil {
		return session.NewRedisLimiter(o.db.Redis, o.cfg.LoginWindow, o.cfg.LoginMaxAttempts)
	}
	return session.NewWindowLimiter(o.cfg.LoginWindow, o.cfg.LoginMaxAttempts, nil)
}

func (o *Orchestrator) startUI(ctx context.Context) error {
	t, err := ui.New(ui.Options{
		Display:        o.disp,
		QueueDepth:     int(o.cfg.UIQueueDepth),
		PollInterval:   o.cfg.UIPollInterval,
		EnqueueTimeout: o.cfg.UIEnqueueTimeout,
		ShutdownGrace:  o.cfg.UIShutdownGrace,
	})
	if err != nil {
		return err
	}
	if err := t.Start(ctx); err != nil {
		return err
	}
	o.mu.Lock()
	o.uiTask = t
	o.mu.Unlock()
	return nil
}

// showSplash holds the splash screen, then queues the setup screen. Enqueue
// failures are logged and do not fail the phase.
func (o *Orchestrator) showSplash(ctx context.Context) error {
	if err := o.uiTask.ShowSplash(o.cfg.SplashDuration); err != nil {
		o.logger.Warn("splash not queued", slog.String("err", err.Error()))
		return nil
	}

	timer := time.NewTimer(o.cfg.SplashDuration + splashMargin)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	results, err := o.uiTask.ShowWiFiSetup()
	if err != nil {
		o.logger.Warn("wifi setup screen not queued", slog.String("err", err.Error()))
		return nil
	}
	go o.forwardSetupResult(ctx, results)
	return nil
}

func (o *Orchestrator) forwardSetupResult(ctx context.Context, results <-chan display.SetupResult) {
	select {
	case <-ctx.Done():
	case r, ok := <-results:
		if !ok {
			return
		}
		if err := o.Post(Event{Kind: EventSetupResult, Setup: r}); err != nil {
			o.logger.Error("setup result dropped", slog.String("err", err.Error()))
		}
	}
}

// Post queues an event for the orchestrator loop without blocking.
func (o *Orchestrator) Post(ev Event) error {
	select {
	case o.events <- ev:
		return nil
	default:
		return fmt.Errorf("orchestrator event: %w", apperr.ErrQueueFull)
	}
}

func (o *Orchestrator) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-o.events:
			o.handle(ctx, ev)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventNoop:
	case EventSetupResult:
		o.handleSetupResult(ctx, ev.Setup)
	default:
		o.logger.Warn("unknown event", slog.Int("kind", int(ev.Kind)))
	}
}

func (o *Orchestrator) handleSetupResult(ctx context.Context, r display.SetupResult) {
	switch r.Outcome {
	case display.SetupConnected:
		o.mu.Lock()
		store := o.store
		o.mu.Unlock()

		creds := wifi.Credentials{SSID: r.SSID, Password: r.Password}
		if err := wifi.SaveCredentials(ctx, store, creds); err != nil {
			o.logger.Error("saving credentials from setup screen failed", slog.String("err", err.Error()))
			return
		}
		o.logger.Info("credentials saved from setup screen", slog.String("ssid", creds.SSID))
		o.restarter.Restart("wifi_setup")
	case display.SetupSkipped:
		o.logger.Info("wifi setup skipped")
	default:
		o.logger.Warn("wifi setup failed", slog.Any("err", r.Err))
	}
}

// Shutdown releases the handles created during boot in reverse order.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	uiTask, srv, db := o.uiTask, o.srv, o.db
	o.uiTask, o.srv, o.db = nil, nil, nil
	o.mu.Unlock()

	var errs []error
	if uiTask != nil {
		uiTask.Stop()
	}
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if db != nil {
		db.Close()
	}
	return errors.Join(errs...)
}

// Completed returns the phases that finished successfully, in order.
func (o *Orchestrator) Completed() []Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Phase(nil), o.completed...)
}

// Failed reports the phase that stopped the boot, if any.
func (o *Orchestrator) Failed() (Phase, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failed == nil {
		return 0, false
	}
	return *o.failed, true
}

func (o *Orchestrator) ServerAddr() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.srv == nil {
		return ""
	}
	return o.srv.Addr()
}

func (o *Orchestrator) Manager() *wifi.Manager {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.manager
}
