package compiler

import (
	"fmt"
	"sort"

	"github.com/chazu/climb/pkg/bytecode"
)

// Table maps operators to binding powers. Higher binds tighter; every
// power is positive so that parse(0) accepts any operator.
type Table map[bytecode.Operator]int

// DefaultTable returns + and - at 1, and *, / and % at 2.
func DefaultTable() Table {
	return Table{
		bytecode.Add: 1,
		bytecode.Sub: 1,
		bytecode.Mul: 2,
		bytecode.Div: 2,
		bytecode.Mod: 2,
	}
}

// NewTable builds a table from operator symbols, as found in climb.toml.
func NewTable(powers map[string]int) (Table, error) {
	t := make(Table, len(powers))
	for sym, bp := range powers {
		op, ok := bytecode.ParseOperator(sym)
		if !ok {
			return nil, &Error{Kind: ErrUnknownOperator, Pos: -1, Word: sym}
		}
		if bp <= 0 {
			return nil, fmt.Errorf("%w: %q has binding power %d, must be positive", ErrInvalidBindingPower, sym, bp)
		}
		t[op] = bp
	}
	return t, nil
}

// BindingPower returns the binding power of op. Powers must be positive.
func (t Table) BindingPower(op bytecode.Operator) (int, error) {
	bp, ok := t[op]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
	}
	if bp <= 0 {
		return 0, fmt.Errorf("%w: %s has %d", ErrInvalidBindingPower, op, bp)
	}
	return bp, nil
}

// Symbols returns the table's operator symbols in operator order.
func (t Table) Symbols() []string {
	ops := sortedOperators(t)
	syms := make([]string, len(ops))
	for i, op := range ops {
		syms[i] = op.Symbol()
	}
	return syms
}

// Powers returns the table keyed by operator symbol, the inverse of NewTable.
func (t Table) Powers() map[string]int {
	m := make(map[string]int, len(t))
	for op, bp := range t {
		m[op.Symbol()] = bp
	}
	return m
}

func sortedOperators(t Table) []bytecode.Operator {
	ops := make([]bytecode.Operator, 0, len(t))
	for op := range t {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Levels returns the number of distinct binding powers in the table.
// Parser recursion never exceeds Levels()+1 frames.
func (t Table) Levels() int {
	seen := make(map[int]struct{}, len(t))
	for _, bp := range t {
		seen[bp] = struct{}{}
	}
	return len(seen)
}
