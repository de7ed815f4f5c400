package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrEndOfInput          = errors.New("unexpected end of input")
	ErrExpectedOperand     = errors.New("expected operand")
	ErrExpectedOperator    = errors.New("expected operator")
	ErrUnknownOperator     = errors.New("unknown operator")
	ErrInvalidBindingPower = errors.New("invalid binding power")
)

// Error is a compile error. Kind is one of the sentinel errors above, so
// callers match with errors.Is.
type Error struct {
	Kind error
	Pos  int    // index of the offending token, or the input length at end of input
	Word string // offending token or symbol, if any
}

func (e *Error) Error() string {
	if e.Word != "" {
		return fmt.Sprintf("compile error at token %d: %v: %q", e.Pos, e.Kind, e.Word)
	}
	return fmt.Sprintf("compile error at token %d: %v", e.Pos, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Kind
}
