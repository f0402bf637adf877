// Package wifi decides at boot whether the device provisions itself as an
// access point or joins a saved network, and owns the saved credentials.
package wifi

import (
	"context"
	"fmt"

	"doorbell-core/apperr"
	"doorbell-core/storage"
)

const (
	MaxSSIDLength     = 32
	MaxPasswordLength = 64

	Namespace = "wifi_manager"

	keySSID    = "ssid"
	keyPass    = "pass"
	keyVersion = "ver"

	// SchemaVersion is written next to the credentials. A record without it
	// predates versioning and is read as version 1.
	SchemaVersion = "1"
)

// Credentials is the saved network identity. An empty password means an
// open network.
type Credentials struct {
	SSID     string
	Password string
}

// Validate enforces the on-flash bounds. Oversized values are rejected.
func (c Credentials) Validate() error {
	if c.SSID == "" {
		return fmt.Errorf("ssid is empty: %w", apperr.ErrInvalidParam)
	}
	if len(c.SSID) > MaxSSIDLength {
		return fmt.Errorf("ssid longer than %d bytes: %w", MaxSSIDLength, apperr.ErrInvalidParam)
	}
	if len(c.Password) > MaxPasswordLength {
		return fmt.Errorf("password longer than %d bytes: %w", MaxPasswordLength, apperr.ErrInvalidParam)
	}
	return nil
}

func (c Credentials) Open() bool {
	return c.Password == ""
}

// SaveCredentials writes and commits c. The handle is closed on every path.
func SaveCredentials(ctx context.Context, store storage.Store, c Credentials) (err error) {
	if err := c.Validate(); err != nil {
		return err
	}

	h, err := store.Open(ctx, Namespace)
	if err != nil {
		return fmt.Errorf("opening %s: %w", Namespace, err)
	}
	defer func() {
		if cerr := h.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := h.SetString(ctx, keySSID, c.SSID); err != nil {
		return err
	}
	if err := h.SetString(ctx, keyPass, c.Password); err != nil {
		return err
	}
	if err := h.SetString(ctx, keyVersion, SchemaVersion); err != nil {
		return err
	}
	return h.Commit(ctx)
}

// ClearCredentials erases the saved record so the next boot enters setup mode.
func ClearCredentials(ctx context.Context, store storage.Store) (err error) {
	h, err := store.Open(ctx, Namespace)
	if err != nil {
		return fmt.Errorf("opening %s: %w", Namespace, err)
	}
	defer func() {
		if cerr := h.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	for _, k := range []string{keySSID, keyPass, keyVersion} {
		if err := h.Erase(ctx, k); err != nil {
			return err
		}
	}
	return h.Commit(ctx)
}
