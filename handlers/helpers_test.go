package handlers

import (
	"sync"
	"testing"
	"time"

	"doorbell-core/session"

	"golang.org/x/crypto/bcrypt"
)

func newTestGuard(t *testing.T) *session.Guard {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	v, err := session.NewStaticVerifier("admin", "", string(hash), "admin")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	return session.NewGuard(session.Options{
		Verifier: v,
		Limiter:  session.NewWindowLimiter(time.Minute, 5, nil),
		TTL:      24 * time.Hour,
	})
}

type recordingRestarter struct {
	mu      sync.Mutex
	reasons []string
	fired   chan struct{}
}

func newRecordingRestarter() *recordingRestarter {
	return &recordingRestarter{fired: make(chan struct{}, 8)}
}

func (r *recordingRestarter) Restart(reason string) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
	r.fired <- struct{}{}
}
