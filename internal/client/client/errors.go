package client

import "errors"

var (
	// ErrUnavailable means the backend could not be reached or is failing;
	// the call may succeed later.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized means the backend refused our credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRejected means the backend refused the request itself.
	ErrRejected = errors.New("request rejected")
	// ErrUnknownTransport is returned by New for an unsupported transport.
	ErrUnknownTransport = errors.New("unknown sync transport")
)
