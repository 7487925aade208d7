package client

import (
	"context"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

// Client is the sync boundary to the recommendation backend.
type Client interface {
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// SubmitTask delivers one queued write. Any acknowledgment is success;
	// the idempotency key lets the backend drop repeated deliveries.
	SubmitTask(ctx context.Context, idempotencyKey string, sub models.Submission) error
	Close() error
}

// Transport names accepted by New.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Options configures a Client.
type Options struct {
	Transport string
	// Endpoint is a base URL for HTTP or host:port for gRPC.
	Endpoint string
	// AuthToken, when set, is sent as a bearer token.
	AuthToken string
}
