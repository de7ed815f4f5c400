package bytecode

import (
	"errors"
	"testing"
)

func TestNewProgram(t *testing.T) {
	p := NewProgram()

	if p.Version != ProgramVersion {
		t.Errorf("Version = %d, want %d", p.Version, ProgramVersion)
	}
	if p.Instructions == nil {
		t.Error("Instructions is nil")
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

func TestProgramEmit(t *testing.T) {
	p := NewProgram()

	if idx := p.EmitPush(1, 0); idx != 0 {
		t.Errorf("first EmitPush index = %d, want 0", idx)
	}
	if idx := p.EmitPush(2, 2); idx != 1 {
		t.Errorf("second EmitPush index = %d, want 1", idx)
	}
	if idx := p.EmitBinOp(Add, 1); idx != 2 {
		t.Errorf("EmitBinOp index = %d, want 2", idx)
	}

	want := Instruction{Op: OpBinOp, Operator: Add, Pos: 1}
	if p.Instructions[2] != want {
		t.Errorf("Instructions[2] = %+v, want %+v", p.Instructions[2], want)
	}
	if p.PushCount() != 2 || p.BinOpCount() != 1 {
		t.Errorf("counts = (%d, %d), want (2, 1)", p.PushCount(), p.BinOpCount())
	}
}

func TestProgramString(t *testing.T) {
	p := programOf(Push(1), Push(2), BinOp(Add), Push(3), BinOp(Sub))
	want := "[PUSH 1, PUSH 2, BINOP +, PUSH 3, BINOP -]"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestProgramEqualIgnoresPositions(t *testing.T) {
	a := NewProgram()
	a.EmitPush(1, 0)
	a.EmitPush(2, 2)
	a.EmitBinOp(Mul, 1)

	b := programOf(Push(1), Push(2), BinOp(Mul))
	if !a.Equal(b) {
		t.Errorf("%s should equal %s", a, b)
	}

	c := programOf(Push(1), Push(2), BinOp(Add))
	if a.Equal(c) {
		t.Errorf("%s should not equal %s", a, c)
	}
	if a.Equal(programOf(Push(1))) {
		t.Error("programs of different length should not be equal")
	}
	var nilProg *Program
	if a.Equal(nilProg) || !nilProg.Equal(nil) {
		t.Error("nil handling in Equal is wrong")
	}
}

func TestProgramValidate(t *testing.T) {
	valid := []*Program{
		programOf(Push(7)),
		programOf(Push(1), Push(2), BinOp(Add)),
		programOf(Push(1), Push(2), Push(3), BinOp(Mul), BinOp(Add), Push(4), BinOp(Add)),
	}
	for _, p := range valid {
		if err := p.Validate(); err != nil {
			t.Errorf("Validate(%s) = %v, want nil", p, err)
		}
	}

	invalid := []*Program{
		nil,
		NewProgram(),
		programOf(BinOp(Add)),
		programOf(Push(1), BinOp(Add)),
		programOf(Push(1), Push(2)),
		programOf(Push(1), Push(2), Instruction{Op: OpBinOp, Operator: 0}),
		programOf(Instruction{Op: 0x01}),
	}
	for _, p := range invalid {
		if err := p.Validate(); !errors.Is(err, ErrMalformedProgram) {
			t.Errorf("Validate(%v) = %v, want ErrMalformedProgram", p, err)
		}
	}
}

func TestProgramMaxStackDepth(t *testing.T) {
	tests := []struct {
		prog *Program
		want int
	}{
		{programOf(Push(1)), 1},
		{programOf(Push(1), Push(2), BinOp(Add), Push(3), BinOp(Sub)), 2},
		{programOf(Push(1), Push(2), Push(3), BinOp(Mul), BinOp(Add)), 3},
	}
	for _, tt := range tests {
		if got := tt.prog.MaxStackDepth(); got != tt.want {
			t.Errorf("MaxStackDepth(%s) = %d, want %d", tt.prog, got, tt.want)
		}
	}
}

func TestProgramHashStable(t *testing.T) {
	a := programOf(Push(1), Push(2), BinOp(Add))
	b := programOf(Push(1), Push(2), BinOp(Add))
	c := programOf(Push(1), Push(2), BinOp(Sub))

	ha, err := a.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hb, _ := b.Hash()
	hc, _ := c.Hash()
	if ha != hb {
		t.Error("identical programs hash differently")
	}
	if ha == hc {
		t.Error("different programs hash the same")
	}

	hex, err := a.HashHex()
	if err != nil {
		t.Fatalf("HashHex failed: %v", err)
	}
	if len(hex) != 64 {
		t.Errorf("HashHex length = %d, want 64", len(hex))
	}
}
