// Package server exposes the evaluation engine over Connect (HTTP/JSON,
// gRPC and gRPC-Web on one port) and over a native gRPC listener.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/climb/engine"
)

var log = commonlog.GetLogger("climb.server")

// ClimbServer serves the EvaluationService for an engine.
type ClimbServer struct {
	evalSvc *EvalService
	mux     *http.ServeMux
	grpc    *grpc.Server
	http    *http.Server
}

// ServerOption configures a ClimbServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	handlerOpts []connect.HandlerOption
	grpcOpts    []grpc.ServerOption
}

// WithHandlerOptions adds Connect handler options (interceptors, limits).
func WithHandlerOptions(opts ...connect.HandlerOption) ServerOption {
	return func(c *serverConfig) { c.handlerOpts = append(c.handlerOpts, opts...) }
}

// WithGRPCOptions adds options for the native gRPC server.
func WithGRPCOptions(opts ...grpc.ServerOption) ServerOption {
	return func(c *serverConfig) { c.grpcOpts = append(c.grpcOpts, opts...) }
}

// New creates a ClimbServer around an engine.
func New(e *engine.Engine, opts ...ServerOption) *ClimbServer {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &ClimbServer{
		evalSvc: NewEvalService(e),
		mux:     http.NewServeMux(),
		grpc:    grpc.NewServer(cfg.grpcOpts...),
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Register Connect/gRPC service handlers
	s.mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(
		EvaluateProcedure, s.evalSvc.Evaluate, cfg.handlerOpts...,
	))
	s.mux.Handle(CompileProcedure, connect.NewUnaryHandler(
		CompileProcedure, s.evalSvc.Compile, cfg.handlerOpts...,
	))

	RegisterEvaluationServer(s.grpc, s.evalSvc)
	return s
}

// Handler returns the Connect handler. It accepts HTTP/2 without TLS so
// plain gRPC clients can use it too.
func (s *ClimbServer) Handler() http.Handler {
	return h2c.NewHandler(s.mux, &http2.Server{})
}

// GRPCServer returns the native gRPC server.
func (s *ClimbServer) GRPCServer() *grpc.Server {
	return s.grpc
}

// ListenAndServe starts the Connect server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *ClimbServer) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve serves Connect on lis until Stop is called. It returns nil after
// Stop, including when Stop ran first.
func (s *ClimbServer) Serve(lis net.Listener) error {
	log.Infof("climb server listening on %s", lis.Addr())
	log.Infof("  Connect (HTTP/JSON): http://%s%s", lis.Addr(), EvaluateProcedure)
	err := s.http.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeGRPC serves native gRPC on lis until Stop is called.
func (s *ClimbServer) ServeGRPC(lis net.Listener) error {
	log.Infof("climb gRPC server listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop shuts down both servers. A server that has not started yet will
// refuse to start afterwards.
func (s *ClimbServer) Stop(ctx context.Context) error {
	s.grpc.GracefulStop()
	return s.http.Shutdown(ctx)
}

// ---------------------------------------------------------------------------
// Native gRPC registration. The messages are protobuf well-known types, so
// the service descriptor is written out here rather than generated.
// ---------------------------------------------------------------------------

// EvaluationServer is the native gRPC service interface.
type EvaluationServer interface {
	EvaluateGRPC(context.Context, *structpb.ListValue) (*wrapperspb.Int64Value, error)
	CompileGRPC(context.Context, *structpb.ListValue) (*wrapperspb.StringValue, error)
}

// RegisterEvaluationServer registers srv with a gRPC server.
func RegisterEvaluationServer(r grpc.ServiceRegistrar, srv EvaluationServer) {
	r.RegisterService(&evaluationServiceDesc, srv)
}

var evaluationServiceDesc = grpc.ServiceDesc{
	ServiceName: EvaluationServiceName,
	HandlerType: (*EvaluationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateGRPCHandler},
		{MethodName: "Compile", Handler: compileGRPCHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "climb/v1/evaluation.proto",
}

func evaluateGRPCHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluationServer).EvaluateGRPC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EvaluateProcedure}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EvaluationServer).EvaluateGRPC(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}

func compileGRPCHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluationServer).CompileGRPC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CompileProcedure}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EvaluationServer).CompileGRPC(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}
