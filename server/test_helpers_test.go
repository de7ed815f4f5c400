package server

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/climb/engine"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

// newTestEvalService creates an EvalService backed by an engine with an
// in-memory cache.
func newTestEvalService() *EvalService {
	return NewEvalService(engine.New(engine.WithMemoryStore()))
}

// ---------------------------------------------------------------------------
// Request builder helpers to reduce boilerplate in tests.
// ---------------------------------------------------------------------------

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

// tokenList builds a request list from Go values (numbers and strings).
func tokenList(t *testing.T, items ...any) *structpb.ListValue {
	t.Helper()
	list, err := structpb.NewList(items)
	if err != nil {
		t.Fatalf("NewList(%v): %v", items, err)
	}
	return list
}

func bg() context.Context {
	return context.Background()
}
