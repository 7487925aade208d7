// Package client talks to the farm advisor backend for the sync queue.
//
// # Overview
//
// Client is the transport-agnostic contract: Ping and SubmitTask. Two
// implementations exist:
//
//   - HTTPClient posts JSON to {base}/api/sync/tasks with an Idempotency-Key
//     header and probes {base}/api/ping.
//   - GRPCClient issues unary calls on farmadvisor.sync.v1.SyncService using
//     well-known protobuf types (structpb.Struct, emptypb.Empty), with the
//     idempotency key and the optional bearer token added by a unary
//     interceptor as outgoing metadata.
//
// # Error Handling
//
// Failures are mapped to sentinel errors that callers match with errors.Is:
// ErrUnavailable (network errors, timeouts, 5xx, codes.Unavailable),
// ErrUnauthorized (401/403, codes.Unauthenticated/PermissionDenied) and
// ErrRejected (other 4xx, codes.InvalidArgument and similar). A duplicate
// delivery acknowledged by the backend (409 or codes.AlreadyExists) is
// reported as success.
package client
