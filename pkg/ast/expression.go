package ast

import (
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// Expression is a parsed formula: its root node together with the source
// text and the context it was parsed in.
//
// An Expression is immutable and safe for concurrent use. The Eval, Index and
// Date helpers are convenient for one-off evaluation; hot loops should take
// the closures from Root once and call them directly.
type Expression struct {
	root    Node
	source  string
	context string
}

// NewExpression creates a new Expression.
func NewExpression(root Node, source, context string) *Expression {
	return &Expression{
		root:    root,
		source:  source,
		context: context,
	}
}

// Root returns the root node.
func (e *Expression) Root() Node { return e.root }

// Source returns the text the expression was parsed from.
func (e *Expression) Source() string { return e.source }

// Context returns the parse context.
func (e *Expression) Context() string { return e.context }

// String returns the canonical text of the tree, which can differ from
// Source in spacing, parentheses and folded constants.
func (e *Expression) String() string { return e.root.String() }

func (e *Expression) ValueType() types.ValueType { return e.root.ValueType() }
func (e *Expression) IsConstant() bool           { return e.root.IsConstant() }
func (e *Expression) Children() []Node           { return e.root.Children() }

// Simplify returns a new Expression over the simplified tree.
func (e *Expression) Simplify() *Expression {
	return NewExpression(e.root.Simplify(), e.source, e.context)
}

// Variables returns the host variables the expression depends on.
func (e *Expression) Variables() []string { return Variables(e.root) }

// Functions returns the host functions the expression calls.
func (e *Expression) Functions() []string { return Functions(e.root) }

// Static evaluation

func (e *Expression) EvalDouble() float64 { return e.root.Static().Double(types.NoKey{}) }
func (e *Expression) EvalInteger() int64  { return e.root.Static().Integer(types.NoKey{}) }
func (e *Expression) EvalBoolean() bool   { return e.root.Static().Boolean(types.NoKey{}) }
func (e *Expression) EvalNullBool() types.NullBool {
	return e.root.Static().NullBool(types.NoKey{})
}

// Integer index evaluation

func (e *Expression) IndexDouble(i int64) float64 { return e.root.Index().Double(i) }
func (e *Expression) IndexInteger(i int64) int64  { return e.root.Index().Integer(i) }
func (e *Expression) IndexBoolean(i int64) bool   { return e.root.Index().Boolean(i) }
func (e *Expression) IndexNullBool(i int64) types.NullBool {
	return e.root.Index().NullBool(i)
}

// Date evaluation

func (e *Expression) DateDouble(t time.Time) float64 { return e.root.Date().Double(t) }
func (e *Expression) DateInteger(t time.Time) int64  { return e.root.Date().Integer(t) }
func (e *Expression) DateBoolean(t time.Time) bool   { return e.root.Date().Boolean(t) }
func (e *Expression) DateNullBool(t time.Time) types.NullBool {
	return e.root.Date().NullBool(t)
}
