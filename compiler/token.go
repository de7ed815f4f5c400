package compiler

import (
	"fmt"
	"strconv"

	"github.com/chazu/climb/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Tokens for pre-split arithmetic input
// ---------------------------------------------------------------------------

// TokenKind distinguishes literal tokens from operator tokens.
type TokenKind int

const (
	TokenLiteral  TokenKind = iota + 1 // 42
	TokenOperator                      // +, -, *, /, %
)

var tokenKindNames = map[TokenKind]string{
	TokenLiteral:  "LITERAL",
	TokenOperator: "OPERATOR",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", k)
}

// Token is one element of the input sequence. Exactly one of Value (for
// literals) or Op (for operators) is meaningful.
type Token struct {
	Kind  TokenKind
	Value int64
	Op    bytecode.Operator
	Pos   int // index in the input sequence
}

// Lit returns a literal token.
func Lit(v int64) Token {
	return Token{Kind: TokenLiteral, Value: v}
}

// Sym returns an operator token.
func Sym(op bytecode.Operator) Token {
	return Token{Kind: TokenOperator, Op: op}
}

// IsLiteral reports whether the token is an integer literal.
func (t Token) IsLiteral() bool { return t.Kind == TokenLiteral }

// IsOperator reports whether the token is an operator.
func (t Token) IsOperator() bool { return t.Kind == TokenOperator }

func (t Token) String() string {
	switch t.Kind {
	case TokenLiteral:
		return strconv.FormatInt(t.Value, 10)
	case TokenOperator:
		return t.Op.Symbol()
	}
	return t.Kind.String()
}

// Tokens assigns positions to a token sequence built from Lit and Sym.
// The input slice is not modified.
func Tokens(ts ...Token) []Token {
	out := make([]Token, len(ts))
	for i, t := range ts {
		t.Pos = i
		out[i] = t
	}
	return out
}

// ParseTokens classifies already-split words: a word that parses as a
// base-10 int64 becomes a literal, a known operator symbol becomes an
// operator. Anything else fails with ErrUnknownOperator.
func ParseTokens(words []string) ([]Token, error) {
	tokens := make([]Token, 0, len(words))
	for i, w := range words {
		if v, err := strconv.ParseInt(w, 10, 64); err == nil {
			tokens = append(tokens, Token{Kind: TokenLiteral, Value: v, Pos: i})
			continue
		}
		op, ok := bytecode.ParseOperator(w)
		if !ok {
			return nil, &Error{Kind: ErrUnknownOperator, Pos: i, Word: w}
		}
		tokens = append(tokens, Token{Kind: TokenOperator, Op: op, Pos: i})
	}
	return tokens, nil
}

// Words renders tokens back to their source words.
func Words(tokens []Token) []string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.String()
	}
	return words
}
