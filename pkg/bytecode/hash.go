package bytecode

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes the SHA-256 content hash of the program.
//
// The hash is computed over the CLBC serialization, so two programs with
// the same instructions and token positions hash identically regardless
// of how they were built.
func (p *Program) Hash() ([32]byte, error) {
	data, err := p.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// HashHex returns the content hash as a lowercase hex string.
func (p *Program) HashHex() (string, error) {
	h, err := p.Hash()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}
