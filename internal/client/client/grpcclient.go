package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of the sync service.
const (
	ServiceName      = "farmadvisor.sync.v1.SyncService"
	MethodPing       = "/" + ServiceName + "/Ping"
	MethodSubmitTask = "/" + ServiceName + "/SubmitTask"
)

// AuthMetadataKey carries the bearer token on gRPC calls.
const AuthMetadataKey = "authorization"

type idempotencyCtxKey struct{}

// WithIdempotencyKey attaches key to ctx so the interceptor can send it.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyCtxKey{}, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	k, _ := ctx.Value(idempotencyCtxKey{}).(string)
	return k
}

// GRPCClient implements Client over gRPC.
type GRPCClient struct {
	endpointURL string
	token       string
	timeout     time.Duration
	conn        *grpc.ClientConn
}

var _ Client = (*GRPCClient)(nil)

// NewGRPCClient dials endpointURL lazily; extra dial options are appended
// (tests pass a bufconn dialer).
func NewGRPCClient(endpointURL, token string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, token: token, timeout: timeout}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.metadataInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// metadataInterceptor copies the idempotency key from the context and the
// bearer token into outgoing metadata.
func (c *GRPCClient) metadataInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	if key := idempotencyKeyFrom(ctx); key != "" {
		md.Set(models.IdempotencyMetadataKey, key)
	}
	if c.token != "" {
		md.Set(AuthMetadataKey, "Bearer "+c.token)
	}

	return invoker(metadata.NewOutgoingContext(ctx, md), method, req, reply, cc, opts...)
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, MethodPing, &emptypb.Empty{}, resp); err != nil {
		return c.mapError(err)
	}

	if resp.GetFields()["status"].GetStringValue() != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *GRPCClient) SubmitTask(ctx context.Context, idempotencyKey string, sub models.Submission) error {
	req, err := submissionStruct(sub)
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	ctx = WithIdempotencyKey(ctx, idempotencyKey)

	if err := c.conn.Invoke(ctx, MethodSubmitTask, req, &emptypb.Empty{}); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return c.mapError(err)
	}
	return nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// submissionStruct converts a submission to the wire message. The JSON
// payload is carried as a structured value, not as an opaque string.
func submissionStruct(sub models.Submission) (*structpb.Struct, error) {
	var payload any
	if len(sub.Payload) > 0 {
		if err := json.Unmarshal(sub.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}

	s, err := structpb.NewStruct(map[string]any{
		"type":      sub.Type,
		"payload":   payload,
		"timestamp": sub.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	return s, nil
}

// SubmissionFromStruct is the inverse of the client encoding, used by
// servers implementing the sync service.
func SubmissionFromStruct(s *structpb.Struct) (models.Submission, error) {
	f := s.GetFields()

	payload, err := json.Marshal(f["payload"].AsInterface())
	if err != nil {
		return models.Submission{}, fmt.Errorf("encode payload: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, f["timestamp"].GetStringValue())
	if err != nil {
		return models.Submission{}, fmt.Errorf("parse timestamp: %w", err)
	}

	return models.Submission{
		Type:      f["type"].GetStringValue(),
		Payload:   payload,
		Timestamp: ts,
	}, nil
}

func (c *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return ErrUnavailable
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound, codes.OutOfRange, codes.Unimplemented:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
