package types

import "strconv"

// Position locates a character or token in formula source. All fields are
// zero-based; String prints one-based line and column.
type Position struct {
	Line   int // line offset
	Column int // column offset in runes within the line
	Offset int // byte offset from the start of the input
	Length int // length in bytes
}

// String returns "line:column", one-based.
func (p Position) String() string {
	return strconv.Itoa(p.Line+1) + ":" + strconv.Itoa(p.Column+1)
}

// End returns the byte offset just past the located text.
func (p Position) End() int {
	return p.Offset + p.Length
}

// Translate converts p, relative to a text that starts at base, into the
// position space of the text containing it.
func (p Position) Translate(base Position) Position {
	if p.Line == 0 {
		p.Column += base.Column
	}
	p.Line += base.Line
	p.Offset += base.Offset
	return p
}
