package types

import "errors"

// ErrDecode is returned when persisted bytes cannot be decoded. Background
// jobs treat it as skip-and-log, never fatal.
var ErrDecode = errors.New("malformed encoding")
