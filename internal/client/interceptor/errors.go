package interceptor

import (
	"errors"
	"fmt"
)

// ErrOffline is wrapped by NetworkError when no response was received.
var ErrOffline = errors.New("backend unreachable")

// NetworkError is returned for write requests the network could not carry.
// The caller decides whether to queue the write for later.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrOffline) match any NetworkError.
func (e *NetworkError) Is(target error) bool { return target == ErrOffline }
