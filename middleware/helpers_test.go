package middleware

import (
	"testing"
	"time"

	"doorbell-core/session"

	"golang.org/x/crypto/bcrypt"
)

func newTestGuard(t *testing.T, maxAttempts int64) *session.Guard {
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
		Limiter:  session.NewWindowLimiter(time.Minute, maxAttempts, nil),
		TTL:      time.Hour,
	})
}
