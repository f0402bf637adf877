package wifi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"doorbell-core/apperr"
	"doorbell-core/storage"
)

// State is the provisioning state derived at boot. It is never persisted.
type State int

const (
	NotConfigured State = iota
	WaitingConfiguration
	Configured
)

var allStates = []State{NotConfigured, WaitingConfiguration, Configured}

func (s State) String() string {
	switch s {
	case NotConfigured:
		return "NOT_CONFIGURED"
	case WaitingConfiguration:
		return "WAITING_CONFIGURATION"
	case Configured:
		return "CONFIGURED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resolution is the outcome of reading the credential store at boot.
type Resolution struct {
	State       State
	Credentials Credentials
}

// Resolver reads saved credentials and derives the provisioning state.
type Resolver struct {
	store    storage.Store
	defaults Credentials
	logger   *slog.Logger
}

// NewResolver returns a Resolver that falls back to defaults (the setup
// access point identity) when nothing is saved.
func NewResolver(store storage.Store, defaults Credentials) *Resolver {
	return &Resolver{
		store:    store,
		defaults: defaults,
		logger:   slog.Default().With("component", "wifi"),
	}
}

// Resolve returns CONFIGURED with the saved record, WAITING_CONFIGURATION with
// the defaults when no record exists, or NOT_CONFIGURED together with an error
// wrapping apperr.ErrUnexpected for any other storage failure.
func (r *Resolver) Resolve(ctx context.Context) (Resolution, error) {
	h, err := r.store.Open(ctx, Namespace)
	if err != nil {
		return Resolution{State: NotConfigured}, fmt.Errorf("opening %s: %v: %w", Namespace, err, apperr.ErrUnexpected)
	}
	defer h.Close()

	ssid, err := h.GetString(ctx, keySSID)
	var pass string
	if err == nil {
		pass, err = h.GetString(ctx, keyPass)
	}

	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		r.logger.Info("no saved credentials, waiting for configuration")
		return Resolution{State: WaitingConfiguration, Credentials: r.defaults}, nil
	default:
		return Resolution{State: NotConfigured}, fmt.Errorf("reading credentials: %v: %w", err, apperr.ErrUnexpected)
	}

	if len(ssid) > MaxSSIDLength || len(pass) > MaxPasswordLength {
		return Resolution{State: NotConfigured}, fmt.Errorf("saved credentials exceed limits: %w: %w", apperr.ErrBufferTooSmall, apperr.ErrUnexpected)
	}
	if ssid == "" {
		r.logger.Warn("saved ssid is empty, waiting for configuration")
		return Resolution{State: WaitingConfiguration, Credentials: r.defaults}, nil
	}

	if v, err := h.GetString(ctx, keyVersion); err == nil && v != SchemaVersion {
		r.logger.Warn("unknown credential schema version", slog.String("version", v))
	}

	r.logger.Info("saved credentials found", slog.String("ssid", ssid))
	return Resolution{
		State:       Configured,
		Credentials: Credentials{SSID: ssid, Password: pass},
	}, nil
}
