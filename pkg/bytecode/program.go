package bytecode

import (
	"fmt"
	"strings"
)

// ProgramVersion is the current program format version.
// Increment when making incompatible changes to the format.
const ProgramVersion uint16 = 1

// NoPos marks an instruction that does not come from a source token.
const NoPos = -1

// Instruction is a single bytecode instruction.
// For OpPush only Value is meaningful; for OpBinOp only Operator is.
type Instruction struct {
	Op       Opcode   `cbor:"1,keyasint"`
	Value    int64    `cbor:"2,keyasint,omitempty"`
	Operator Operator `cbor:"3,keyasint,omitempty"`
	Pos      int      `cbor:"4,keyasint"` // Index of the originating token, or NoPos
}

// Push returns an OpPush instruction with no source position.
func Push(value int64) Instruction {
	return Instruction{Op: OpPush, Value: value, Pos: NoPos}
}

// BinOp returns an OpBinOp instruction with no source position.
func BinOp(op Operator) Instruction {
	return Instruction{Op: OpBinOp, Operator: op, Pos: NoPos}
}

// String renders the instruction as "PUSH 3" or "BINOP *".
func (i Instruction) String() string {
	switch i.Op {
	case OpPush:
		return fmt.Sprintf("PUSH %d", i.Value)
	case OpBinOp:
		return fmt.Sprintf("BINOP %s", i.Operator)
	}
	return i.Op.String()
}

// Same reports whether two instructions do the same thing, ignoring Pos.
func (i Instruction) Same(o Instruction) bool {
	if i.Op != o.Op {
		return false
	}
	switch i.Op {
	case OpPush:
		return i.Value == o.Value
	case OpBinOp:
		return i.Operator == o.Operator
	}
	return i == o
}

// Program is a compiled expression: an ordered instruction list that a VM
// executes left to right against an empty stack.
type Program struct {
	Version      uint16        `cbor:"1,keyasint"`
	Instructions []Instruction `cbor:"2,keyasint"`
}

// NewProgram creates an empty program with the current version.
func NewProgram() *Program {
	return &Program{
		Version:      ProgramVersion,
		Instructions: make([]Instruction, 0, 16),
	}
}

// Emit appends an instruction and returns its index.
func (p *Program) Emit(ins Instruction) int {
	p.Instructions = append(p.Instructions, ins)
	return len(p.Instructions) - 1
}

// EmitPush appends an OpPush for value, recording the token position.
func (p *Program) EmitPush(value int64, pos int) int {
	return p.Emit(Instruction{Op: OpPush, Value: value, Pos: pos})
}

// EmitBinOp appends an OpBinOp for op, recording the token position.
func (p *Program) EmitBinOp(op Operator, pos int) int {
	return p.Emit(Instruction{Op: OpBinOp, Operator: op, Pos: pos})
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// PushCount returns the number of OpPush instructions.
func (p *Program) PushCount() int {
	return p.count(OpPush)
}

// BinOpCount returns the number of OpBinOp instructions.
func (p *Program) BinOpCount() int {
	return p.count(OpBinOp)
}

func (p *Program) count(op Opcode) int {
	n := 0
	for _, ins := range p.Instructions {
		if ins.Op == op {
			n++
		}
	}
	return n
}

// Equal reports whether two programs contain the same instructions,
// ignoring source positions.
func (p *Program) Equal(o *Program) bool {
	if p == nil || o == nil {
		return p == o
	}
	if len(p.Instructions) != len(o.Instructions) {
		return false
	}
	for i := range p.Instructions {
		if !p.Instructions[i].Same(o.Instructions[i]) {
			return false
		}
	}
	return true
}

// String renders the program as "[PUSH 1, PUSH 2, BINOP +]".
func (p *Program) String() string {
	parts := make([]string, len(p.Instructions))
	for i, ins := range p.Instructions {
		parts[i] = ins.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// checkCodes verifies that every opcode and operator is defined.
func (p *Program) checkCodes() error {
	for i, ins := range p.Instructions {
		if !ins.Op.Valid() {
			return fmt.Errorf("%w: instruction %d: unknown opcode 0x%02X", ErrMalformedProgram, i, byte(ins.Op))
		}
		if ins.Op == OpBinOp && !ins.Operator.Valid() {
			return fmt.Errorf("%w: instruction %d: unknown operator %d", ErrMalformedProgram, i, byte(ins.Operator))
		}
	}
	return nil
}

// Validate checks, without executing, that the program never pops from a
// stack holding too few values and that it finishes with exactly one value.
// Programs produced by the compiler always validate.
func (p *Program) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil program", ErrMalformedProgram)
	}
	if err := p.checkCodes(); err != nil {
		return err
	}
	depth := 0
	for i, ins := range p.Instructions {
		info := GetOpcodeInfo(ins.Op)
		if depth < info.StackPop {
			return fmt.Errorf("%w: instruction %d (%s) needs %d operands, stack has %d",
				ErrMalformedProgram, i, ins, info.StackPop, depth)
		}
		depth += info.StackPush - info.StackPop
	}
	if depth != 1 {
		return fmt.Errorf("%w: final stack depth %d, want 1", ErrMalformedProgram, depth)
	}
	return nil
}

// MaxStackDepth returns the deepest the operand stack gets while running
// the program. Meaningful only for programs that validate.
func (p *Program) MaxStackDepth() int {
	depth, peak := 0, 0
	for _, ins := range p.Instructions {
		depth += ins.Op.StackEffect()
		if depth > peak {
			peak = depth
		}
	}
	return peak
}
