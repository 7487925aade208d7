// Package grpc serves the sync service over gRPC. Messages are the
// well-known structpb/emptypb types, so no generated stubs are needed.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"github.com/dmitrijs2005/farmadvisor/internal/server/ledger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// SyncServiceServer is the server API of the sync service.
type SyncServiceServer interface {
	Ping(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SubmitTask(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: client.ServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: pingHandler},
		{MethodName: "SubmitTask", Handler: submitTaskHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SyncServiceServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: client.MethodPing}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SyncServiceServer).Ping(ctx, req.(*emptypb.Empty))
	})
}

func submitTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SyncServiceServer).SubmitTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: client.MethodSubmitTask}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SyncServiceServer).SubmitTask(ctx, req.(*structpb.Struct))
	})
}

type GRPCServer struct {
	address string
	ledger  *ledger.Ledger
	logger  logging.Logger
	token   string
}

var _ SyncServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(address string, l logging.Logger, lg *ledger.Ledger, token string) *GRPCServer {
	if l == nil {
		l = logging.Nop()
	}
	return &GRPCServer{
		address: address,
		ledger:  lg,
		logger:  l.With("module", "grpc_server"),
		token:   token,
	}
}

// Run listens on the configured address until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.authInterceptor))
	srv.RegisterService(&serviceDesc, s)

	served := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-served:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())
	err := srv.Serve(lis)
	close(served)
	wg.Wait()
	return err
}
