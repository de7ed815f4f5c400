package compiler

import (
	"crypto/sha256"
	"encoding/binary"
)

// cacheKeyVersion is the first byte of every cache key encoding.
// Bump it when the encoding changes so old cache entries stop matching.
const cacheKeyVersion = 0x01

// CacheKey returns a content hash of the token sequence and the binding
// powers it depends on. Two inputs with the same key compile to the same
// program.
//
// Encoding:
//   - version byte
//   - token count: uint32 big-endian
//   - per token: kind byte, then int64 big-endian (literal) or operator byte
//   - per operator in the table, ascending: operator byte, int64 big-endian power
func CacheKey(tokens []Token, table Table) [32]byte {
	buf := make([]byte, 0, 5+len(tokens)*9+len(table)*9)
	buf = append(buf, cacheKeyVersion)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(tokens)))
	for _, t := range tokens {
		buf = append(buf, byte(t.Kind))
		switch t.Kind {
		case TokenLiteral:
			buf = binary.BigEndian.AppendUint64(buf, uint64(t.Value))
		case TokenOperator:
			buf = append(buf, byte(t.Op))
		}
	}
	for _, op := range sortedOperators(table) {
		buf = append(buf, byte(op))
		buf = binary.BigEndian.AppendUint64(buf, uint64(int64(table[op])))
	}
	return sha256.Sum256(buf)
}
