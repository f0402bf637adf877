package session

import (
	"context"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks a username/password pair and returns the user it names.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (User, error)
}

// StaticVerifier accepts a single configured account.
type StaticVerifier struct {
	user User
	hash []byte
}

// NewStaticVerifier builds a verifier for one account. When passwordHash is
// empty the plaintext password is hashed at startup.
func NewStaticVerifier(username, password, passwordHash, role string) (*StaticVerifier, error) {
	if username == "" || len(username) > MaxUsernameLength {
		return nil, fmt.Errorf("admin username must be 1..%d bytes", MaxUsernameLength)
	}
	if len(role) > MaxRoleLength {
		return nil, fmt.Errorf("admin role must be at most %d bytes", MaxRoleLength)
	}

	hash := []byte(passwordHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}

	return &StaticVerifier{
		user: User{Username: username, Role: role},
		hash: hash,
	}, nil
}

func (v *StaticVerifier) Verify(_ context.Context, username, password string) (User, error) {
	nameOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.user.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword(v.hash, []byte(password))
	if !nameOK || passErr != nil {
		return User{}, ErrInvalidCredentials
	}
	return v.user, nil
}
