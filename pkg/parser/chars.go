package parser

import (
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/goformula/pkg/lookahead"
	"github.com/sandrolain/goformula/pkg/types"
)

const eof = -1

// Char is a source character with its position.
type Char struct {
	Rune rune
	Pos  types.Position
}

func (c Char) IsEOF() bool     { return c.Rune == eof }
func (c Char) IsDigit() bool   { return c.Rune >= '0' && c.Rune <= '9' }
func (c Char) IsLetter() bool  { return c.Rune >= 0 && unicode.IsLetter(c.Rune) }
func (c Char) IsNewline() bool { return c.Rune == '\n' }

func (c Char) IsWhitespace() bool {
	return c.Rune >= 0 && unicode.IsSpace(c.Rune)
}

func (c Char) IsBracket() bool {
	switch c.Rune {
	case '(', '[', '{', '}', ']', ')':
		return true
	}
	return false
}

// CharReader reads positioned characters from a string with lookahead.
type CharReader struct {
	input  string
	reader *lookahead.Reader[Char]
	line   int
	column int
	offset int
}

// NewCharReader creates a reader over input.
func NewCharReader(input string) *CharReader {
	r := &CharReader{}
	r.reader = lookahead.New(r.fetch, Char{Rune: eof})
	r.Reset(input)
	return r
}

// Reset restarts the reader on a new input.
func (r *CharReader) Reset(input string) {
	r.input = input
	r.line, r.column, r.offset = 0, 0, 0
	r.reader.SetEnd(Char{Rune: eof})
	r.reader.Reset(r.fetch)
}

func (r *CharReader) fetch() (Char, bool) {
	if r.offset >= len(r.input) {
		r.reader.SetEnd(Char{
			Rune: eof,
			Pos:  types.Position{Line: r.line, Column: r.column, Offset: r.offset},
		})
		return Char{}, false
	}
	ch, w := utf8.DecodeRuneInString(r.input[r.offset:])
	c := Char{
		Rune: ch,
		Pos:  types.Position{Line: r.line, Column: r.column, Offset: r.offset, Length: w},
	}
	r.offset += w
	if ch == '\n' {
		r.line++
		r.column = 0
	} else {
		r.column++
	}
	return c, true
}

// Current returns the character at the cursor.
func (r *CharReader) Current() Char { return r.reader.Current() }

// Next returns the character offset positions after the cursor.
func (r *CharReader) Next(offset int) Char { return r.reader.Next(offset) }

// Consume returns the character at the cursor and advances.
func (r *CharReader) Consume() Char { return r.reader.Consume() }

// ConsumeN advances by n characters.
func (r *CharReader) ConsumeN(n int) { r.reader.ConsumeN(n) }

// Offset returns the byte offset of the cursor.
func (r *CharReader) Offset() int { return r.Current().Pos.Offset }
