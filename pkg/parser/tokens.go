package parser

import (
	"strconv"

	"github.com/sandrolain/goformula/pkg/types"
)

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdentifier // close, #count, ctx:close
	TokenString     // "text" or 'text'
	TokenInteger    // 42, 1_000, -3
	TokenDecimal    // 3.5, .5
	TokenScientific // 3e2, 1.5E-3

	TokenSymbol // + ** ( <= ...
)

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "(eof)"
	case TokenError:
		return "(error)"
	case TokenIdentifier:
		return "(identifier)"
	case TokenString:
		return "(string)"
	case TokenInteger:
		return "(integer)"
	case TokenDecimal:
		return "(decimal)"
	case TokenScientific:
		return "(scientific)"
	case TokenSymbol:
		return "(symbol)"
	default:
		return "(unknown)"
	}
}

// Token represents a lexical token.
type Token struct {
	Type TokenType
	// Trigger is the text matched against symbols and keywords: the symbol
	// itself, the identifier, or the literal as written.
	Trigger string
	// Content is the decoded value: unescaped string, number without
	// grouping underscores.
	Content string
	// Source is the verbatim input from the end of the previous token to the
	// end of this one, including skipped whitespace and comments.
	Source string
	// Pos locates the token itself, without the leading trivia.
	Pos types.Position
}

// IsNumber reports whether the token is a numeric literal.
func (t Token) IsNumber() bool {
	return t.Type == TokenInteger || t.Type == TokenDecimal || t.Type == TokenScientific
}

// Is reports whether the token is the given symbol.
func (t Token) Is(symbol string) bool {
	return t.Type == TokenSymbol && t.Trigger == symbol
}

// describe returns the token as shown in error messages.
func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return "string " + t.Trigger
	default:
		return strconv.Quote(t.Trigger)
	}
}

// isSymbol reports whether r may appear in a symbol token.
func isSymbol(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '%', '^', '!', '=', '<', '>', '&', '|',
		'?', ':', ',', '.', '~', '$', ';', '\\', '`':
		return true
	}
	return false
}

// mergesWith reports whether the symbols a and b form a single token.
func mergesWith(a, b rune) bool {
	switch {
	case a == '*' && b == '*', a == '&' && b == '&', a == '|' && b == '|':
		return true
	case a == ',' || a == ';':
		return false
	}
	return b == '=' || b == '>' || b == '<'
}
