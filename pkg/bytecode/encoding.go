package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ProgramMagic is the leading 4 bytes of a serialized program: "CLBC"
// (CLimb ByteCode).
var ProgramMagic = []byte{'C', 'L', 'B', 'C'}

var (
	ErrInvalidMagic    = errors.New("invalid bytecode magic: expected CLBC")
	ErrVersionMismatch = errors.New("bytecode version mismatch")
	ErrTruncated       = errors.New("unexpected end of bytecode")
)

// headerLen is magic + version + instruction count.
const headerLen = 4 + 2 + 4

// Serialize encodes the program to bytes for storage/transport.
// Format:
//
//	[magic:4] [version:2] [count:4]
//	per instruction:
//	  [opcode:1] [pos+1:uvarint]
//	  OpPush:  [value:varint]
//	  OpBinOp: [operator:1]
//
// Multi-byte header fields are big-endian.
func (p *Program) Serialize() ([]byte, error) {
	if err := p.checkCodes(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, headerLen+len(p.Instructions)*4)
	buf = append(buf, ProgramMagic...)
	buf = binary.BigEndian.AppendUint16(buf, p.Version)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(p.Instructions)))

	for _, ins := range p.Instructions {
		buf = append(buf, byte(ins.Op))
		pos := ins.Pos + 1
		if pos < 0 {
			pos = 0
		}
		buf = binary.AppendUvarint(buf, uint64(pos))
		switch ins.Op {
		case OpPush:
			buf = binary.AppendVarint(buf, ins.Value)
		case OpBinOp:
			buf = append(buf, byte(ins.Operator))
		}
	}
	return buf, nil
}

// Deserialize decodes a program from bytes produced by Serialize.
func Deserialize(data []byte) (*Program, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrTruncated, headerLen, len(data))
	}
	if string(data[0:4]) != string(ProgramMagic) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[0:4])
	}

	p := &Program{Version: binary.BigEndian.Uint16(data[4:6])}
	if p.Version == 0 || p.Version > ProgramVersion {
		return nil, fmt.Errorf("%w: version %d, supported %d", ErrVersionMismatch, p.Version, ProgramVersion)
	}

	count := binary.BigEndian.Uint32(data[6:10])
	pos := headerLen

	// Every instruction takes at least 3 bytes, so a count larger than
	// that bound cannot be satisfied by the remaining data.
	if uint64(count)*3 > uint64(len(data)-pos) {
		return nil, fmt.Errorf("%w: %d instructions declared, %d bytes remain", ErrTruncated, count, len(data)-pos)
	}
	p.Instructions = make([]Instruction, 0, count)

	for i := uint32(0); i < count; i++ {
		if pos >= len(data) {
			return nil, fmt.Errorf("%w: reading opcode %d", ErrTruncated, i)
		}
		ins := Instruction{Op: Opcode(data[pos])}
		pos++

		tokPos, n := binary.Uvarint(data[pos:])
		if n <= 0 {
			return nil, fmt.Errorf("%w: reading position of instruction %d", ErrTruncated, i)
		}
		ins.Pos = int(tokPos) - 1
		pos += n

		switch ins.Op {
		case OpPush:
			v, n := binary.Varint(data[pos:])
			if n <= 0 {
				return nil, fmt.Errorf("%w: reading value of instruction %d", ErrTruncated, i)
			}
			ins.Value = v
			pos += n
		case OpBinOp:
			if pos >= len(data) {
				return nil, fmt.Errorf("%w: reading operator of instruction %d", ErrTruncated, i)
			}
			ins.Operator = Operator(data[pos])
			pos++
		default:
			return nil, fmt.Errorf("%w: instruction %d: unknown opcode 0x%02X", ErrMalformedProgram, i, byte(ins.Op))
		}
		p.Instructions = append(p.Instructions, ins)
	}

	if pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedProgram, len(data)-pos)
	}
	if err := p.checkCodes(); err != nil {
		return nil, err
	}
	return p, nil
}
