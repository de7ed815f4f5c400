// Package compiler turns pre-tokenized arithmetic into bytecode programs
// using precedence climbing.
package compiler

import (
	"errors"

	"github.com/tliron/commonlog"

	"github.com/chazu/climb/pkg/bytecode"
)

var log = commonlog.GetLogger("climb.compiler")

// ---------------------------------------------------------------------------
// Parser: precedence climbing straight to bytecode
// ---------------------------------------------------------------------------

// parser holds the state of one compilation. No syntax tree is built;
// instructions are emitted as the input is consumed.
type parser struct {
	cur   *Cursor
	table Table
	prog  *bytecode.Program
}

// Compile translates a token sequence into a program using the given
// precedence table. The tokens are not modified. On error no program is
// returned.
//
// Operators of equal binding power associate to the left, and an operator
// is emitted after both of its operands, so the program is the postfix form
// of the input.
func Compile(tokens []Token, table Table) (*bytecode.Program, error) {
	p := &parser{
		cur:   NewCursor(tokens),
		table: table,
		prog:  bytecode.NewProgram(),
	}
	if err := p.parse(0); err != nil {
		log.Debugf("compile failed: %v", err)
		return nil, err
	}
	log.Debugf("compiled %d tokens to %d instructions", len(tokens), p.prog.Len())
	return p.prog, nil
}

// parse consumes one operand and then every following operator whose
// binding power is at least minBP, together with its right-hand side.
func (p *parser) parse(minBP int) error {
	tok, err := p.cur.Current()
	if err != nil {
		return err
	}
	if !tok.IsLiteral() {
		return &Error{Kind: ErrExpectedOperand, Pos: p.cur.Pos(), Word: tok.String()}
	}
	p.prog.EmitPush(tok.Value, p.cur.Pos())
	p.cur.Advance()

	for !p.cur.AtEnd() {
		tok, err := p.cur.Current()
		if err != nil {
			return err
		}
		pos := p.cur.Pos()
		if !tok.IsOperator() {
			return &Error{Kind: ErrExpectedOperator, Pos: pos, Word: tok.String()}
		}
		bp, err := p.table.BindingPower(tok.Op)
		if err != nil {
			return &Error{Kind: lookupKind(err), Pos: pos, Word: tok.String()}
		}
		if bp < minBP {
			return nil
		}
		p.cur.Advance()

		// bp+1 keeps operators of equal power out of the right operand.
		if err := p.parse(bp + 1); err != nil {
			return err
		}
		p.prog.EmitBinOp(tok.Op, pos)
	}
	return nil
}

// lookupKind maps a BindingPower failure to its sentinel. A non-positive
// power would let parse(0) stop before the end of input.
func lookupKind(err error) error {
	if errors.Is(err, ErrInvalidBindingPower) {
		return ErrInvalidBindingPower
	}
	return ErrUnknownOperator
}

// Evaluate compiles the tokens and executes the resulting program.
func Evaluate(tokens []Token, table Table) (int64, error) {
	prog, err := Compile(tokens, table)
	if err != nil {
		return 0, err
	}
	return bytecode.Execute(prog)
}
