package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"connectrpc.com/connect"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/climb/compiler"
	"github.com/chazu/climb/engine"
	"github.com/chazu/climb/pkg/bytecode"
)

// Service and procedure names. Requests are a google.protobuf.ListValue of
// tokens: numbers and numeric strings are literals, other strings are
// operator symbols.
const (
	EvaluationServiceName = "climb.v1.EvaluationService"

	EvaluateProcedure = "/" + EvaluationServiceName + "/Evaluate"
	CompileProcedure  = "/" + EvaluationServiceName + "/Compile"
)

// EvalService implements the EvaluationService for both the Connect and
// the native gRPC transports.
type EvalService struct {
	engine *engine.Engine
}

// NewEvalService creates an EvalService.
func NewEvalService(e *engine.Engine) *EvalService {
	return &EvalService{engine: e}
}

// Evaluate compiles and executes a token list (Connect handler).
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[structpb.ListValue],
) (*connect.Response[wrapperspb.Int64Value], error) {
	result, err := s.evaluate(ctx, req.Msg)
	if err != nil {
		return nil, connect.NewError(errorCode(err), err)
	}
	return connect.NewResponse(wrapperspb.Int64(result)), nil
}

// Compile compiles a token list and returns its disassembly (Connect handler).
func (s *EvalService) Compile(
	ctx context.Context,
	req *connect.Request[structpb.ListValue],
) (*connect.Response[wrapperspb.StringValue], error) {
	listing, err := s.compile(ctx, req.Msg)
	if err != nil {
		return nil, connect.NewError(errorCode(err), err)
	}
	return connect.NewResponse(wrapperspb.String(listing)), nil
}

// EvaluateGRPC is Evaluate for the native gRPC server.
func (s *EvalService) EvaluateGRPC(ctx context.Context, in *structpb.ListValue) (*wrapperspb.Int64Value, error) {
	result, err := s.evaluate(ctx, in)
	if err != nil {
		return nil, status.Error(codes.Code(errorCode(err)), err.Error())
	}
	return wrapperspb.Int64(result), nil
}

// CompileGRPC is Compile for the native gRPC server.
func (s *EvalService) CompileGRPC(ctx context.Context, in *structpb.ListValue) (*wrapperspb.StringValue, error) {
	listing, err := s.compile(ctx, in)
	if err != nil {
		return nil, status.Error(codes.Code(errorCode(err)), err.Error())
	}
	return wrapperspb.String(listing), nil
}

func (s *EvalService) evaluate(ctx context.Context, list *structpb.ListValue) (int64, error) {
	tokens, err := tokensFromList(list)
	if err != nil {
		return 0, err
	}
	return s.engine.Evaluate(ctx, tokens)
}

func (s *EvalService) compile(ctx context.Context, list *structpb.ListValue) (string, error) {
	tokens, err := tokensFromList(list)
	if err != nil {
		return "", err
	}
	prog, err := s.engine.Compile(ctx, tokens)
	if err != nil {
		return "", err
	}
	return prog.Disassemble(), nil
}

// errBadToken marks a list element that is neither a number nor a string.
var errBadToken = errors.New("bad token")

// tokensFromList converts list elements to source words and classifies them.
func tokensFromList(list *structpb.ListValue) ([]compiler.Token, error) {
	values := list.GetValues()
	words := make([]string, len(values))
	for i, v := range values {
		switch k := v.GetKind().(type) {
		case *structpb.Value_NumberValue:
			n := k.NumberValue
			if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
				return nil, fmt.Errorf("%w: element %d: %v is not an int64", errBadToken, i, n)
			}
			words[i] = strconv.FormatInt(int64(n), 10)
		case *structpb.Value_StringValue:
			words[i] = k.StringValue
		default:
			return nil, fmt.Errorf("%w: element %d must be a number or a string", errBadToken, i)
		}
	}
	return compiler.ParseTokens(words)
}

// errorCode maps an evaluation error to a status code. Input and runtime
// errors are the caller's; anything else is ours.
func errorCode(err error) connect.Code {
	var cerr *compiler.Error
	switch {
	case errors.As(err, &cerr), errors.Is(err, errBadToken):
		return connect.CodeInvalidArgument
	case errors.Is(err, bytecode.ErrDivisionByZero), errors.Is(err, bytecode.ErrStackOverflow):
		return connect.CodeInvalidArgument
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	}
	return connect.CodeInternal
}
