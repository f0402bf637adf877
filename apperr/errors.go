// Package apperr holds the error taxonomy shared by the boot sequence,
// the credential store and the tasks.
package apperr

import "errors"

var (
	ErrInvalidParam      = errors.New("invalid parameter")
	ErrNotFound          = errors.New("not found")
	ErrTaskCreateFailed  = errors.New("task create failed")
	ErrQueueCreateFailed = errors.New("queue create failed")
	ErrQueueFull         = errors.New("queue full")
	ErrBufferTooSmall    = errors.New("buffer too small")
	ErrUnexpected        = errors.New("unexpected error")
)
