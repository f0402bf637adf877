// Package storage is the durable namespace/key-value store backing WiFi
// credentials and device settings. A Handle stages writes until Commit,
// mirroring flash NVS semantics, and every backend shares that behaviour.
package storage

import (
	"context"
	"fmt"
	"sync"

	"doorbell-core/apperr"
)

// MaxNameLength bounds namespace and key names.
const MaxNameLength = 15

// Store opens namespaces. Implementations must be safe for concurrent use.
// Connections behind a Store are owned by the database package.
type Store interface {
	Open(ctx context.Context, namespace string) (Handle, error)
}

// Handle is an open namespace. Reads see staged writes; nothing reaches the
// backend until Commit. A Handle is not safe for concurrent use.
type Handle interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error
	GetBlob(ctx context.Context, key string) ([]byte, error)
	SetBlob(ctx context.Context, key string, value []byte) error
	Erase(ctx context.Context, key string) error
	Commit(ctx context.Context) error
	Close() error
}

// backend is the persistence contract each store implements.
type backend interface {
	get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	apply(ctx context.Context, namespace string, sets map[string][]byte, erases []string) error
}

type stagedHandle struct {
	mu        sync.Mutex
	b         backend
	namespace string
	sets      map[string][]byte
	erases    map[string]struct{}
	closed    bool
}

func openHandle(b backend, namespace string) (Handle, error) {
	if err := checkName(namespace); err != nil {
		return nil, fmt.Errorf("namespace %q: %w", namespace, err)
	}
	return &stagedHandle{
		b:         b,
		namespace: namespace,
		sets:      make(map[string][]byte),
		erases:    make(map[string]struct{}),
	}, nil
}

func checkName(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return apperr.ErrInvalidParam
	}
	return nil
}

func (h *stagedHandle) usable(key string) error {
	if h.closed {
		return fmt.Errorf("handle closed: %w", apperr.ErrInvalidParam)
	}
	if err := checkName(key); err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	return nil
}

func (h *stagedHandle) GetBlob(ctx context.Context, key string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.usable(key); err != nil {
		return nil, err
	}
	if v, ok := h.sets[key]; ok {
		return append([]byte(nil), v...), nil
	}
	if _, ok := h.erases[key]; ok {
		return nil, fmt.Errorf("%s/%s: %w", h.namespace, key, apperr.ErrNotFound)
	}

	v, ok, err := h.b.get(ctx, h.namespace, key)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", h.namespace, key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", h.namespace, key, apperr.ErrNotFound)
	}
	return v, nil
}

func (h *stagedHandle) GetString(ctx context.Context, key string) (string, error) {
	v, err := h.GetBlob(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (h *stagedHandle) SetBlob(_ context.Context, key string, value []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.usable(key); err != nil {
		return err
	}
	delete(h.erases, key)
	h.sets[key] = append([]byte(nil), value...)
	return nil
}

func (h *stagedHandle) SetString(ctx context.Context, key, value string) error {
	return h.SetBlob(ctx, key, []byte(value))
}

// Erase stages removal of key. Erasing a missing key is not an error.
func (h *stagedHandle) Erase(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.usable(key); err != nil {
		return err
	}
	delete(h.sets, key)
	h.erases[key] = struct{}{}
	return nil
}

func (h *stagedHandle) Commit(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("handle closed: %w", apperr.ErrInvalidParam)
	}
	if len(h.sets) == 0 && len(h.erases) == 0 {
		return nil
	}

	erases := make([]string, 0, len(h.erases))
	for k := range h.erases {
		erases = append(erases, k)
	}
	if err := h.b.apply(ctx, h.namespace, h.sets, erases); err != nil {
		return fmt.Errorf("commit %s: %w", h.namespace, err)
	}
	h.sets = make(map[string][]byte)
	h.erases = make(map[string]struct{})
	return nil
}

// Close discards uncommitted writes.
func (h *stagedHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("handle closed: %w", apperr.ErrInvalidParam)
	}
	h.closed = true
	h.sets = nil
	h.erases = nil
	return nil
}
