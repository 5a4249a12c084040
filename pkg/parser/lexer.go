package parser

import (
	"strings"

	"github.com/sandrolain/goformula/pkg/types"
)

// Lexer converts formula source into tokens.
//
// It reads positioned characters through a CharReader and never backs up:
// decisions that need more than one character use lookahead instead.
// Every token's Source covers the input from the end of the previous token,
// so the sources of all tokens up to and including TokenEOF add up to the
// whole input.
type Lexer struct {
	input string
	chars *CharReader
	multi bool // multi-statement mode: ';' is a symbol
	start int  // byte offset where the next token's source begins
	err   *types.Error
	done  bool
	end   Token // cached end-of-input token
	buf   strings.Builder
}

// NewLexer creates a new lexer from the provided input string. In
// multi-statement mode semicolons are symbols; otherwise they are rejected.
func NewLexer(input string, multiStatement bool) *Lexer {
	return &Lexer{
		input: input,
		chars: NewCharReader(input),
		multi: multiStatement,
	}
}

// Reset restarts the lexer on a new input.
func (l *Lexer) Reset(input string, multiStatement bool) {
	l.input = input
	l.chars.Reset(input)
	l.multi = multiStatement
	l.start = 0
	l.err = nil
	l.done = false
	l.end = Token{}
	l.buf.Reset()
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// Next returns the next token from the input. When the end of the input is
// reached, or after an error token, Next returns TokenEOF for all subsequent
// calls.
func (l *Lexer) Next() Token {
	if l.done {
		return l.eof()
	}

	l.skipTrivia()
	if l.err != nil {
		return l.error()
	}

	c := l.chars.Current()
	switch {
	case c.IsEOF():
		return l.eof()
	case c.Rune == ';' && !l.multi:
		return l.fail(types.ErrSemicolonReserved, "semicolon is reserved for multi-statement scripts", c.Pos)
	case l.numberStart():
		return l.scanNumber()
	case c.IsLetter() || c.Rune == '#' || c.Rune == '@':
		return l.scanIdentifier()
	case c.Rune == '"' || c.Rune == '\'':
		return l.scanString(c)
	case c.IsBracket():
		l.chars.Consume()
		return l.symbol(c)
	case c.Rune == '|' && l.chars.Next(1).Rune != '|':
		l.chars.Consume()
		return l.symbol(c)
	case isSymbol(c.Rune):
		n := 1
		if next := l.chars.Next(1); isSymbol(next.Rune) && mergesWith(c.Rune, next.Rune) {
			n = 2
		}
		l.chars.ConsumeN(n)
		return l.symbol(c)
	default:
		return l.fail(types.ErrInvalidCharacter, "invalid character in input", c.Pos)
	}
}

// skipTrivia skips whitespace, line comments and block comments.
func (l *Lexer) skipTrivia() {
	for {
		c := l.chars.Current()
		switch {
		case c.IsWhitespace():
			l.chars.Consume()
		case c.Rune == '/' && l.chars.Next(1).Rune == '/':
			l.chars.ConsumeN(2)
			for ch := l.chars.Current(); !ch.IsEOF() && !ch.IsNewline(); ch = l.chars.Current() {
				l.chars.Consume()
			}
		case c.Rune == '/' && l.chars.Next(1).Rune == '*':
			l.chars.ConsumeN(2)
			for {
				ch := l.chars.Current()
				if ch.IsEOF() {
					l.err = types.NewError(types.ErrCommentNotClosed, "unterminated block comment", c.Pos)
					return
				}
				if ch.Rune == '*' && l.chars.Next(1).Rune == '/' {
					l.chars.ConsumeN(2)
					break
				}
				l.chars.Consume()
			}
		default:
			return
		}
	}
}

// numberStart reports whether a numeric literal starts at the cursor: a
// digit, '.' and a digit, or '-' followed by either.
func (l *Lexer) numberStart() bool {
	c := l.chars.Current()
	i := 0
	if c.Rune == '-' {
		i = 1
		c = l.chars.Next(1)
	}
	if c.IsDigit() {
		return true
	}
	return c.Rune == '.' && l.chars.Next(i+1).IsDigit()
}

// scanNumber reads a numeric literal. Its type escalates from integer to
// decimal on '.' and to scientific on an exponent marker, and never demotes.
func (l *Lexer) scanNumber() Token {
	first := l.chars.Current()
	tt := TokenInteger
	l.buf.Reset()
	if first.Rune == '-' {
		l.buf.WriteRune(l.chars.Consume().Rune)
	}

Loop:
	for {
		c := l.chars.Current()
		switch {
		case c.IsDigit():
			l.buf.WriteRune(l.chars.Consume().Rune)
		case c.Rune == '_' && l.chars.Next(1).IsDigit():
			// Grouping separator: kept in the source, dropped from the value.
			l.chars.Consume()
		case c.Rune == '.':
			if tt != TokenInteger {
				return l.fail(types.ErrDecimalSeparators, "unexpected decimal separators", c.Pos)
			}
			tt = TokenDecimal
			l.buf.WriteRune(l.chars.Consume().Rune)
		case c.Rune == 'e' || c.Rune == 'E':
			n := 1
			if s := l.chars.Next(1).Rune; s == '+' || s == '-' {
				n = 2
			}
			if !l.chars.Next(n).IsDigit() {
				break Loop
			}
			if tt == TokenScientific {
				return l.fail(types.ErrScientificSeparators, "unexpected scientific notation separators", c.Pos)
			}
			tt = TokenScientific
			for range n {
				l.buf.WriteRune(l.chars.Consume().Rune)
			}
		default:
			break Loop
		}
	}
	return l.token(tt, first.Pos, l.buf.String())
}

// scanIdentifier reads a name. Identifiers start with a letter, '#' or '@'
// and continue with letters, digits, '_', ':' and '@'.
func (l *Lexer) scanIdentifier() Token {
	first := l.chars.Consume()
	for {
		c := l.chars.Current()
		if !(c.IsLetter() || c.IsDigit() || c.Rune == '_' || c.Rune == ':' || c.Rune == '@') {
			break
		}
		l.chars.Consume()
	}
	text := l.input[first.Pos.Offset:l.chars.Offset()]
	return l.token(TokenIdentifier, first.Pos, text)
}

// scanString reads a string literal delimited by quote. Double-quoted strings
// use '\' as escape character; single-quoted strings escape the delimiter by
// doubling it.
func (l *Lexer) scanString(quote Char) Token {
	l.chars.Consume()
	l.buf.Reset()
	for {
		c := l.chars.Current()
		switch {
		case c.IsEOF():
			return l.fail(types.ErrStringNotClosed, "unterminated string literal", quote.Pos)
		case c.Rune == quote.Rune:
			if quote.Rune == '\'' && l.chars.Next(1).Rune == '\'' {
				l.chars.ConsumeN(2)
				l.buf.WriteRune('\'')
				continue
			}
			l.chars.Consume()
			return l.token(TokenString, quote.Pos, l.buf.String())
		case c.Rune == '\\' && quote.Rune == '"':
			esc := l.chars.Next(1)
			switch esc.Rune {
			case '"', '\\':
				l.buf.WriteRune(esc.Rune)
			case 'n':
				l.buf.WriteByte('\n')
			case 'r':
				l.buf.WriteByte('\r')
			case eof:
				return l.fail(types.ErrStringNotClosed, "unterminated string literal", quote.Pos)
			default:
				return l.fail(types.ErrUnsupportedEscape, "unsupported escape sequence", c.Pos)
			}
			l.chars.ConsumeN(2)
		default:
			l.buf.WriteRune(l.chars.Consume().Rune)
		}
	}
}

// Helper methods

func (l *Lexer) symbol(first Char) Token {
	return l.token(TokenSymbol, first.Pos, l.input[first.Pos.Offset:l.chars.Offset()])
}

// token builds a token starting at pos and ending at the cursor.
func (l *Lexer) token(tt TokenType, pos types.Position, decoded string) Token {
	end := l.chars.Offset()
	pos.Length = end - pos.Offset
	t := Token{
		Type:    tt,
		Trigger: l.input[pos.Offset:end],
		Content: decoded,
		Source:  l.input[l.start:end],
		Pos:     pos,
	}
	l.start = end
	return t
}

func (l *Lexer) eof() Token {
	if l.done {
		return l.end
	}
	pos := l.chars.Current().Pos
	l.end = Token{
		Type:   TokenEOF,
		Source: l.input[l.start:pos.Offset],
		Pos:    pos,
	}
	l.start = pos.Offset
	l.done = true
	return l.end
}

func (l *Lexer) fail(code types.ErrorCode, message string, pos types.Position) Token {
	l.err = types.NewError(code, message, pos)
	return l.error()
}

func (l *Lexer) error() Token {
	l.end = Token{Type: TokenEOF, Pos: l.err.Position}
	l.done = true
	return Token{
		Type:    TokenError,
		Trigger: l.err.Message,
		Pos:     l.err.Position,
	}
}

// Tokenize returns every token of input, ending with TokenEOF.
func Tokenize(input string, multiStatement bool) ([]Token, error) {
	l := NewLexer(input, multiStatement)
	var tokens []Token
	for {
		t := l.Next()
		switch t.Type {
		case TokenError:
			return nil, l.Error()
		case TokenEOF:
			return append(tokens, t), nil
		}
		tokens = append(tokens, t)
	}
}
