package client

import (
	"fmt"
	"time"
)

// New builds the Client for opts.Transport with a per-request timeout.
func New(opts Options, timeout time.Duration) (Client, error) {
	switch opts.Transport {
	case "", TransportHTTP:
		return NewHTTPClient(opts.Endpoint, opts.AuthToken, timeout), nil
	case TransportGRPC:
		c, err := NewGRPCClient(opts.Endpoint, opts.AuthToken, timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, opts.Transport)
	}
}
