package wifi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"doorbell-core/apperr"
	"doorbell-core/device"
	"doorbell-core/metrics"
	"doorbell-core/storage"
)

// Stage tracks bring-up progress of the chosen mode.
type Stage int

const (
	StageInit Stage = iota
	StageRadioConfigured
	StageServerStarted
	StageRunning
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "INIT"
	case StageRadioConfigured:
		return "RADIO_CONFIGURED"
	case StageServerStarted:
		return "SERVER_STARTED"
	case StageRunning:
		return "RUNNING"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

const (
	apChannel        = 1
	apMaxConnections = 4
)

type ManagerOptions struct {
	Store     storage.Store
	Radio     Radio
	Restarter device.Restarter
	// Defaults is the setup access point identity used when nothing is saved.
	Defaults Credentials
	// DisconnectWipeThreshold is the number of station disconnects without an
	// intervening address that erases the saved credentials. Values below 1
	// are treated as 1.
	DisconnectWipeThreshold int
}

// Manager resolves the provisioning state and brings the radio up in AP or
// STA mode. It owns the station disconnect policy.
type Manager struct {
	store     storage.Store
	radio     Radio
	restarter device.Restarter
	resolver  *Resolver
	threshold int
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	mode        Mode
	stage       Stage
	creds       Credentials
	disconnects int
	wiped       bool
}

func NewManager(opts ManagerOptions) *Manager {
	threshold := opts.DisconnectWipeThreshold
	if threshold < 1 {
		threshold = 1
	}
	return &Manager{
		store:     opts.Store,
		radio:     opts.Radio,
		restarter: opts.Restarter,
		resolver:  NewResolver(opts.Store, opts.Defaults),
		threshold: threshold,
		logger:    slog.Default().With("component", "wifi"),
		state:     NotConfigured,
	}
}

// Start resolves the provisioning state and configures the radio. A
// NOT_CONFIGURED outcome or any radio failure is returned as an error.
func (m *Manager) Start(ctx context.Context) error {
	res, err := m.resolver.Resolve(ctx)

	m.mu.Lock()
	m.state = res.State
	m.creds = res.Credentials
	m.mu.Unlock()

	names := make([]string, len(allStates))
	for i, s := range allStates {
		names[i] = s.String()
	}
	metrics.ProvisioningState(res.State.String(), names)

	if err != nil {
		return err
	}

	switch res.State {
	case WaitingConfiguration:
		return m.startAP(ctx, res.Credentials)
	case Configured:
		return m.startSTA(ctx, res.Credentials)
	default:
		return fmt.Errorf("provisioning state %s: %w", res.State, apperr.ErrUnexpected)
	}
}

func (m *Manager) startAP(ctx context.Context, c Credentials) error {
	if err := m.radio.InitStack(ctx); err != nil {
		return err
	}
	if err := m.radio.CreateInterface(ctx, ModeAP); err != nil {
		return err
	}
	if err := m.radio.Init(ctx); err != nil {
		return err
	}
	if err := m.radio.SetMode(ctx, ModeAP); err != nil {
		return err
	}
	cfg := APConfig{
		SSID:           c.SSID,
		Password:       c.Password,
		Channel:        apChannel,
		MaxConnections: apMaxConnections,
		Auth:           authFor(c.Password),
	}
	if err := m.radio.ConfigureAP(ctx, cfg); err != nil {
		return err
	}
	if err := m.radio.Start(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.mode = ModeAP
	m.stage = StageRadioConfigured
	m.mu.Unlock()

	m.logger.Info("setup access point configured",
		slog.String("ssid", cfg.SSID),
		slog.String("auth", cfg.Auth.String()),
	)
	return nil
}

func (m *Manager) startSTA(ctx context.Context, c Credentials) error {
	if err := m.radio.InitStack(ctx); err != nil {
		return err
	}
	if err := m.radio.CreateInterface(ctx, ModeSTA); err != nil {
		return err
	}
	if err := m.radio.Init(ctx); err != nil {
		return err
	}
	if err := m.radio.OnEvent(EventGotIP, m.handleGotIP); err != nil {
		return err
	}
	if err := m.radio.OnEvent(EventDisconnected, m.handleDisconnected); err != nil {
		return err
	}
	if err := m.radio.SetMode(ctx, ModeSTA); err != nil {
		return err
	}
	cfg := STAConfig{
		SSID:          c.SSID,
		Password:      c.Password,
		AuthThreshold: authFor(c.Password),
	}
	if err := m.radio.ConfigureSTA(ctx, cfg); err != nil {
		return err
	}
	if err := m.radio.Start(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.mode = ModeSTA
	m.stage = StageRadioConfigured
	m.mu.Unlock()

	if err := m.radio.Connect(ctx); err != nil {
		return err
	}
	m.logger.Info("station configured", slog.String("ssid", cfg.SSID))
	return nil
}

// ServerStarted records that the HTTP surface for the current mode is
// listening. The access point is running from here on; a station waits for
// its first address.
func (m *Manager) ServerStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageRadioConfigured {
		return
	}
	m.stage = StageServerStarted
	if m.mode == ModeAP {
		m.stage = StageRunning
	}
}

func (m *Manager) handleGotIP(ev Event) {
	metrics.WiFiEvent(ev.Kind.String())

	m.mu.Lock()
	m.disconnects = 0
	if m.stage == StageServerStarted {
		m.stage = StageRunning
	}
	m.mu.Unlock()

	m.logger.Info("station got address", slog.String("ip", ev.IP.String()))
}

func (m *Manager) handleDisconnected(ev Event) {
	metrics.WiFiEvent(ev.Kind.String())

	m.mu.Lock()
	m.disconnects++
	n := m.disconnects
	trigger := n >= m.threshold && !m.wiped
	if trigger {
		m.wiped = true
	}
	m.mu.Unlock()

	m.logger.Warn("station disconnected",
		slog.String("reason", ev.Reason),
		slog.Int("count", n),
		slog.Int("threshold", m.threshold),
	)
	if !trigger {
		return
	}

	if err := ClearCredentials(context.Background(), m.store); err != nil {
		m.logger.Error("clearing credentials failed", slog.String("err", err.Error()))
	} else {
		m.logger.Info("saved credentials erased, restarting into setup mode")
	}
	m.restarter.Restart("station_disconnected")
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Manager) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// SSID is the network the radio was configured with: the setup access point
// name in AP mode, the joined network in STA mode.
func (m *Manager) SSID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.SSID
}
