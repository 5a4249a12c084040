// Package ast defines the immutable expression tree produced by the parser.
//
// This package contains:
//   - Node: the interface every tree node implements
//   - Closures: the per key space evaluators built once per node
//   - Function and Variable: the descriptors a host supplies for names
//   - Constant, Text, Call, VarRef, Offset, Local and Script nodes
//   - Expression: a parsed root with its source text
//
// # Evaluation
//
// Nodes are never interpreted. Each node builds, lazily and once, a set of
// typed closures for each key space (static, integer index, date) and hands
// them to its parent, so evaluating a formula for many keys only calls
// prebuilt closures:
//
//	c := node.Index()
//	for i := int64(0); i < n; i++ {
//	    out[i] = c.Double(i)
//	}
//
// # Thread safety
//
// Nodes and their closures are immutable and safe for concurrent use,
// provided the host descriptors they call into are.
package ast

import (
	"fmt"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// Node is an immutable expression tree node.
type Node interface {
	// Children returns the direct sub-nodes.
	Children() []Node
	// ValueType returns the declared result type.
	ValueType() types.ValueType
	// IsConstant reports whether the node evaluates to a value known without
	// any key or host state.
	IsConstant() bool
	// Simplify returns the node with constant sub-trees folded.
	Simplify() Node
	// String returns the canonical formula text of the node.
	String() string

	Static() *Closures[types.NoKey]
	Index() *Closures[int64]
	Date() *Closures[time.Time]
}

// Arity is the accepted argument count of a function.
type Arity struct {
	Count    int
	Variadic bool // Count is a minimum
}

// Fixed returns an arity of exactly n arguments.
func Fixed(n int) Arity { return Arity{Count: n} }

// AtLeast returns a variadic arity of n or more arguments.
func AtLeast(n int) Arity { return Arity{Count: n, Variadic: true} }

// Accepts reports whether n arguments match the arity.
func (a Arity) Accepts(n int) bool {
	if a.Variadic {
		return n >= a.Count
	}
	return n == a.Count
}

func (a Arity) String() string {
	s := "s"
	if a.Count == 1 {
		s = ""
	}
	if a.Variadic {
		return fmt.Sprintf("at least %d argument%s", a.Count, s)
	}
	return fmt.Sprintf("%d argument%s", a.Count, s)
}

// Function describes a host function or operator.
//
// Operators are functions named after their symbol ("+", "**", "!") whose
// arity matches the operand count.
type Function interface {
	Name() string
	Arity() Arity
	ValueType() types.ValueType
	// Natural reports whether a call with these arguments depends only on
	// the arguments, which makes it eligible for constant folding.
	Natural(args []Node) bool

	// Closure factories. Each returns at least the closure of ValueType.
	Static(args []Node) Closures[types.NoKey]
	Index(args []Node) Closures[int64]
	Date(args []Node) Closures[time.Time]
}

// Variable describes a host variable.
type Variable interface {
	Name() string
	ValueType() types.ValueType
	// Natural reports whether the variable is a constant.
	Natural() bool

	Static() Closures[types.NoKey]
	Index() Closures[int64]
	Date() Closures[time.Time]
}

// PreviousKeyFunc returns the date key steps positions before t in the host's
// series, or false when there is none.
type PreviousKeyFunc func(t time.Time, steps int) (time.Time, bool)

// precedence is implemented by nodes printed with operator syntax.
type precedence interface {
	precedence() int
}

// maxPrecedence is the binding of atoms: literals, names and function calls.
const maxPrecedence = 1 << 10

// PrefixPrecedence is the binding power of prefix operators. It equals that of
// the power operators so that -x**2 means -(x**2).
const PrefixPrecedence = 70

func precedenceOf(n Node) int {
	if p, ok := n.(precedence); ok {
		return p.precedence()
	}
	return maxPrecedence
}
