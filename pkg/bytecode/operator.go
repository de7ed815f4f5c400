package bytecode

import (
	"fmt"
	"sort"
)

// Operator identifies a binary arithmetic operator.
// The set is closed; the zero value is not a valid operator.
type Operator byte

const (
	Add Operator = iota + 1 // left + right
	Sub                     // left - right
	Mul                     // left * right
	Div                     // left / right, truncated toward zero
	Mod                     // left % right, sign follows left
)

var operatorSymbols = map[Operator]string{
	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
	Mod: "%",
}

var symbolOperators = map[string]Operator{
	"+": Add,
	"-": Sub,
	"*": Mul,
	"/": Div,
	"%": Mod,
}

// ParseOperator returns the operator for a symbol such as "+".
func ParseOperator(symbol string) (Operator, bool) {
	op, ok := symbolOperators[symbol]
	return op, ok
}

// Symbol returns the operator's source symbol.
func (op Operator) Symbol() string {
	if s, ok := operatorSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("?%d", byte(op))
}

// String implements fmt.Stringer.
func (op Operator) String() string {
	return op.Symbol()
}

// Valid reports whether op is a member of the operator enumeration.
func (op Operator) Valid() bool {
	_, ok := operatorSymbols[op]
	return ok
}

// Apply computes left op right. Arithmetic wraps on int64 overflow.
// Division and remainder by zero return ErrDivisionByZero.
func (op Operator) Apply(left, right int64) (int64, error) {
	switch op {
	case Add:
		return left + right, nil
	case Sub:
		return left - right, nil
	case Mul:
		return left * right, nil
	case Div:
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return left / right, nil
	case Mod:
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return left % right, nil
	}
	return 0, fmt.Errorf("%w: unknown operator %d", ErrMalformedProgram, byte(op))
}

// AllOperators returns every defined operator in enumeration order.
func AllOperators() []Operator {
	ops := make([]Operator, 0, len(operatorSymbols))
	for op := range operatorSymbols {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}
