package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/server/ledger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "OK"})
}

func (s *GRPCServer) SubmitTask(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	sub, err := client.SubmissionFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	key := idempotencyKeyFrom(ctx)
	err = s.ledger.Apply(ctx, key, sub)
	switch {
	case err == nil:
		s.logger.Info(ctx, "task applied", "type", sub.Type, "key", key)
		return &emptypb.Empty{}, nil
	case errors.Is(err, ledger.ErrDuplicate):
		return nil, status.Error(codes.AlreadyExists, "already applied")
	case errors.Is(err, ledger.ErrInvalid):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	default:
		s.logger.Error(ctx, "cannot apply task", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
}
