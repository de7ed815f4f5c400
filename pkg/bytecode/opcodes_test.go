package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	// Ensure every defined opcode has metadata
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if count := OpcodeCount(); count != 2 {
		t.Errorf("Expected 2 opcodes, got %d", count)
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpPush, "PUSH"},
		{OpBinOp, "BINOP"},
		{Opcode(0xEE), "UNKNOWN(0xEE)"},
	}

	for _, tt := range tests {
		got := tt.op.String()
		if got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestOpcodeStackEffect(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpPush, 1},
		{OpBinOp, -1},
	}

	for _, tt := range tests {
		if got := tt.op.StackEffect(); got != tt.want {
			t.Errorf("%s.StackEffect() = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestOpcodeValid(t *testing.T) {
	if !OpPush.Valid() || !OpBinOp.Valid() {
		t.Error("defined opcodes should be valid")
	}
	if Opcode(0).Valid() {
		t.Error("zero opcode should be invalid")
	}
}
