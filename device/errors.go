package device

import "errors"

var ErrBellBusy = errors.New("bell is already ringing")
