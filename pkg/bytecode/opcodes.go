package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Values are spaced by category so new opcodes can be added without
// renumbering, the same way the wire format leaves room for them.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpPush Opcode = 0x10 // Push literal: OpPush <value:varint>

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpBinOp Opcode = 0x50 // Pop right, pop left, push left op right: OpBinOp <operator:u8>
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name      string // Human-readable name
	StackPop  int    // How many values popped from stack
	StackPush int    // How many values pushed to stack
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpPush:  {"PUSH", 0, 1},
	OpBinOp: {"BINOP", 2, 1},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// StackEffect returns the net change in stack depth after executing op.
func (op Opcode) StackEffect() int {
	info := GetOpcodeInfo(op)
	return info.StackPush - info.StackPop
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
