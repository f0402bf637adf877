// Package device wraps the board-level collaborators: the restart path and
// the bell relay.
package device

import (
	"log/slog"
	"sync"

	"doorbell-core/metrics"
)

// Restarter requests a full device restart. Implementations fire at most once.
type Restarter interface {
	Restart(reason string)
}

// RestartController records the first restart request and closes Requested.
// The serve command waits on Requested, shuts down, then re-executes the
// binary, which is how a restart re-runs provisioning from scratch.
type RestartController struct {
	once      sync.Once
	mu        sync.Mutex
	reason    string
	requested chan struct{}
	logger    *slog.Logger
}

func NewRestartController() *RestartController {
	return &RestartController{
		requested: make(chan struct{}),
		logger:    slog.Default().With("component", "device"),
	}
}

func (c *RestartController) Restart(reason string) {
	fired := false
	c.once.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()

		fired = true
		metrics.RestartRequested(reason)
		c.logger.Warn("restart requested", slog.String("reason", reason))
		close(c.requested)
	})
	if !fired {
		c.logger.Debug("restart already pending", slog.String("reason", reason))
	}
}

// Requested is closed once a restart has been requested.
func (c *RestartController) Requested() <-chan struct{} {
	return c.requested
}

func (c *RestartController) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}
