package bytecode

import (
	"errors"
	"fmt"
	"io"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("climb.vm")

var (
	// ErrMalformedProgram reports a program that underflows the stack, ends
	// with other than one value, or contains undefined codes.
	ErrMalformedProgram = errors.New("malformed program")
	// ErrDivisionByZero reports a zero right operand to / or %.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrStackOverflow reports a push beyond the configured stack limit.
	ErrStackOverflow = errors.New("stack overflow")
)

// RuntimeError locates a failure inside a running program.
type RuntimeError struct {
	IP          int         // Index of the failing instruction, or len(program) for end-of-run checks
	Instruction Instruction // The failing instruction (zero at end of run)
	Err         error       // One of the package sentinels
}

func (e *RuntimeError) Error() string {
	if e.Instruction.Op == 0 {
		return fmt.Sprintf("vm: end of program: %v", e.Err)
	}
	if e.Instruction.Pos >= 0 {
		return fmt.Sprintf("vm: ip %d (%s, token %d): %v", e.IP, e.Instruction, e.Instruction.Pos, e.Err)
	}
	return fmt.Sprintf("vm: ip %d (%s): %v", e.IP, e.Instruction, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// VM executes bytecode programs.
type VM struct {
	stack []int64 // Operand stack
	sp    int     // Stack pointer (number of live values)

	limit int       // Maximum stack depth, 0 for unbounded
	trace io.Writer // Per-instruction trace output, nil when off
}

// VMOption configures a VM.
type VMOption func(*VM)

// WithTrace writes one line per executed instruction to w.
func WithTrace(w io.Writer) VMOption {
	return func(vm *VM) { vm.trace = w }
}

// WithStackLimit bounds the operand stack. Zero means unbounded.
func WithStackLimit(n int) VMOption {
	return func(vm *VM) { vm.limit = n }
}

// NewVM creates a new VM instance.
func NewVM(opts ...VMOption) *VM {
	vm := &VM{
		stack: make([]int64, 0, 16),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Execute runs a program on a fresh VM and returns its result.
func Execute(p *Program) (int64, error) {
	return NewVM().Execute(p)
}

// Execute runs p against an empty stack and returns the single value left
// on it. The stack is reset on every call.
func (vm *VM) Execute(p *Program) (int64, error) {
	if p == nil {
		return 0, &RuntimeError{Err: fmt.Errorf("%w: nil program", ErrMalformedProgram)}
	}
	vm.stack = vm.stack[:0]
	vm.sp = 0

	result, err := vm.run(p)
	if err != nil {
		log.Debugf("execution failed: %v", err)
		return 0, err
	}
	return result, nil
}

// run is the main execution loop.
func (vm *VM) run(p *Program) (int64, error) {
	for ip, ins := range p.Instructions {
		switch ins.Op {
		case OpPush:
			if err := vm.push(ins.Value); err != nil {
				return 0, &RuntimeError{IP: ip, Instruction: ins, Err: err}
			}

		case OpBinOp:
			if vm.sp < 2 {
				return 0, &RuntimeError{IP: ip, Instruction: ins,
					Err: fmt.Errorf("%w: stack underflow (depth %d)", ErrMalformedProgram, vm.sp)}
			}
			// Right was pushed last, so it comes off first.
			right := vm.pop()
			left := vm.pop()
			v, err := ins.Operator.Apply(left, right)
			if err != nil {
				return 0, &RuntimeError{IP: ip, Instruction: ins, Err: err}
			}
			if err := vm.push(v); err != nil {
				return 0, &RuntimeError{IP: ip, Instruction: ins, Err: err}
			}

		default:
			return 0, &RuntimeError{IP: ip, Instruction: ins,
				Err: fmt.Errorf("%w: unknown opcode 0x%02X", ErrMalformedProgram, byte(ins.Op))}
		}

		if vm.trace != nil {
			fmt.Fprintf(vm.trace, "[%04d] %-16s stack=%v\n", ip, ins, vm.stack[:vm.sp])
		}
	}

	if vm.sp != 1 {
		return 0, &RuntimeError{IP: len(p.Instructions),
			Err: fmt.Errorf("%w: final stack depth %d, want 1", ErrMalformedProgram, vm.sp)}
	}
	return vm.pop(), nil
}

func (vm *VM) push(v int64) error {
	if vm.limit > 0 && vm.sp >= vm.limit {
		return fmt.Errorf("%w: limit %d", ErrStackOverflow, vm.limit)
	}
	vm.stack = append(vm.stack[:vm.sp], v)
	vm.sp++
	return nil
}

func (vm *VM) pop() int64 {
	vm.sp--
	return vm.stack[vm.sp]
}

// Depth returns the current stack depth. Zero after a completed Execute.
func (vm *VM) Depth() int {
	return vm.sp
}
