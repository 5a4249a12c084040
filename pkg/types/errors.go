package types

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
)

// ErrorCode identifies the kind of a parse error.
type ErrorCode string

// Error codes. L01xx are lexical errors, S02xx syntactic errors.
const (
	// L01xx: lexical errors
	ErrInvalidCharacter     ErrorCode = "L0101"
	ErrStringNotClosed      ErrorCode = "L0102"
	ErrUnsupportedEscape    ErrorCode = "L0103"
	ErrCommentNotClosed     ErrorCode = "L0104"
	ErrDecimalSeparators    ErrorCode = "L0105"
	ErrScientificSeparators ErrorCode = "L0106"
	ErrSemicolonReserved    ErrorCode = "L0107"

	// S02xx: syntax errors
	ErrUnexpectedToken     ErrorCode = "S0201"
	ErrExpectedToken       ErrorCode = "S0202"
	ErrArgumentCount       ErrorCode = "S0203"
	ErrUndefinedFunction   ErrorCode = "S0204"
	ErrUndefinedVariable   ErrorCode = "S0205"
	ErrUndefinedOperator   ErrorCode = "S0206"
	ErrNamingConflict      ErrorCode = "S0207"
	ErrInvalidVariableName ErrorCode = "S0208"
	ErrEmptyExpression     ErrorCode = "S0209"
	ErrTooDeep             ErrorCode = "S0210"
)

var debugMode atomic.Bool

// SetDebug toggles process-wide diagnostic mode. When enabled, errors append
// the source text to their message and retain a stack trace. It never changes
// whether a parse succeeds.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// Debug reports whether diagnostic mode is enabled.
func Debug() bool {
	return debugMode.Load()
}

// Error is the single error kind produced while parsing a formula.
// A parse either returns a complete tree or one *Error; never both.
type Error struct {
	Code     ErrorCode
	Message  string
	Position Position
	// Source is the formula text. Only reported in debug mode.
	Source string
	// Trace is the stack captured when the error was created in debug mode.
	Trace []byte
	Err   error
}

// NewError creates a new parse error at pos.
func NewError(code ErrorCode, message string, pos Position) *Error {
	e := &Error{
		Code:     code,
		Message:  message,
		Position: pos,
	}
	if Debug() {
		e.Trace = debug.Stack()
	}
	return e
}

// Errorf is like NewError with a formatted message.
func Errorf(code ErrorCode, pos Position, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...), pos)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(" at ")
	b.WriteString(e.Position.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if Debug() && e.Source != "" {
		b.WriteString(" (in ")
		b.WriteString(fmt.Sprintf("%q", e.Source))
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
// This lets callers match on codes with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// WithSource attaches the formula text, reported in debug mode.
func (e *Error) WithSource(src string) *Error {
	e.Source = src
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Translate moves the error from the position space of a nested parse into
// that of the enclosing input, where the nested text started at base.
func (e *Error) Translate(base Position) *Error {
	e.Position = e.Position.Translate(base)
	return e
}

// Sentinel returns a value usable with errors.Is to match any error of the
// given code.
//
//	if errors.Is(err, types.Sentinel(types.ErrArgumentCount)) { ... }
func Sentinel(code ErrorCode) error {
	return &Error{Code: code}
}
