package session

import "errors"

var (
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrMissingToken       = errors.New("missing Authorization Bearer token")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
