// Package bytecode provides the instruction set and the stack-based virtual
// machine for compiled arithmetic expressions.
//
// The instruction set is deliberately small:
//   - OpPush pushes an integer literal onto the operand stack
//   - OpBinOp pops two values, applies an Operator, and pushes the result
//
// Every binary operator shares OpBinOp; the operator travels with the
// instruction. The mapping from Operator to integer operation lives here
// (Operator.Apply) and is kept separate from the precedence table used by
// the compiler.
//
// # Architecture Overview
//
//   - Operator: closed enumeration of binary operators (+ - * / %)
//
//   - Program: an ordered list of Instructions produced by the compiler.
//     Programs can be statically validated (Validate) to prove that execution
//     never underflows the stack and leaves exactly one result.
//
//   - VM: executes a Program against a fresh operand stack and returns the
//     single value left on it. A VM may be reused, but not shared between
//     goroutines.
//
//   - Encodings: a compact binary "CLBC" format (Serialize/Deserialize) for
//     files and content hashing, and a canonical CBOR form
//     (MarshalProgram/UnmarshalProgram) for storage and transport.
//
//   - Disassembler: a human-readable listing of a Program.
package bytecode
