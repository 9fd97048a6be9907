package db

import (
	"context"
	"errors"
	"net"
)

// ErrKeyNotFound is returned when a record hash does not exist.
var ErrKeyNotFound = errors.New("db: key not found")

// Op constants map to Redis command names for error context.
const (
	OpSearch  = "FT.SEARCH"
	OpHGetAll = "HGETALL"
	OpPing    = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a per-call deadline or network timeout.
// Timeouts are transient; anything else network-shaped means the store itself
// is unreachable.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsUnavailable reports whether err indicates the store cannot be reached
// (connection refused, client closed). Distinct from a per-call timeout.
func IsUnavailable(err error) bool {
	if err == nil || IsTimeout(err) {
		return false
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
