package compiler

// Cursor is a read position over a token sequence. It is owned by a single
// parse and never modifies the tokens.
type Cursor struct {
	tokens []Token
	pos    int
}

// NewCursor returns a cursor at position 0.
func NewCursor(tokens []Token) *Cursor {
	return &Cursor{tokens: tokens}
}

// Current returns the token at the cursor, or an *Error wrapping
// ErrEndOfInput when the cursor is past the last token.
func (c *Cursor) Current() (Token, error) {
	if c.pos >= len(c.tokens) {
		return Token{}, &Error{Kind: ErrEndOfInput, Pos: c.pos}
	}
	return c.tokens[c.pos], nil
}

// Advance moves forward one position. Advancing past the end is allowed;
// Current then reports end of input.
func (c *Cursor) Advance() {
	c.pos++
}

// AtEnd reports whether every token has been consumed.
func (c *Cursor) AtEnd() bool {
	return c.pos >= len(c.tokens)
}

// Pos returns the current position.
func (c *Cursor) Pos() int {
	return c.pos
}
