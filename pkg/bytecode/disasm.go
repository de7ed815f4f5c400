package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; climb bytecode v%d\n", p.Version))
	sb.WriteString(fmt.Sprintf("; Instructions: %d (push %d, binop %d)\n",
		len(p.Instructions), p.PushCount(), p.BinOpCount()))
	if err := p.Validate(); err != nil {
		sb.WriteString(fmt.Sprintf("; INVALID: %v\n", err))
	} else {
		sb.WriteString(fmt.Sprintf("; Max stack: %d\n", p.MaxStackDepth()))
	}
	sb.WriteString("\n")

	sb.WriteString("; Code:\n")
	for _, line := range p.DisassembleToLines() {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// DisassembleInstruction returns a human-readable representation of the
// instruction at index i.
func (p *Program) DisassembleInstruction(i int) string {
	if i < 0 || i >= len(p.Instructions) {
		return "<end of code>"
	}
	ins := p.Instructions[i]
	text := ins.String()
	if ins.Pos >= 0 {
		return fmt.Sprintf("%-20s ; token %d", text, ins.Pos)
	}
	return text
}

// DisassembleToLines returns the disassembly as a slice of lines.
func (p *Program) DisassembleToLines() []string {
	lines := make([]string, 0, len(p.Instructions))
	for i := range p.Instructions {
		lines = append(lines, fmt.Sprintf("%04d  %s", i, p.DisassembleInstruction(i)))
	}
	return lines
}
