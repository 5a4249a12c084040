package ast

import (
	"strings"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

type callKind uint8

const (
	callFunction callKind = iota
	callPrefix
	callInfix
)

// Call applies a host function or operator to argument nodes.
type Call struct {
	strategy
	fn    Function
	name  string
	args  []Node
	kind  callKind
	prec  int
	right bool
}

// NewCall returns a function call printed as name(a, b, ...). The name is the
// one written in the formula, which may carry a context qualifier.
func NewCall(fn Function, name string, args []Node) *Call {
	return newCall(&Call{fn: fn, name: name, args: args, kind: callFunction})
}

// NewPrefix returns a prefix operator call such as -x or !x.
func NewPrefix(fn Function, symbol string, operand Node) *Call {
	return newCall(&Call{
		fn:   fn,
		name: symbol,
		args: []Node{operand},
		kind: callPrefix,
		prec: PrefixPrecedence,
	})
}

// NewInfix returns a binary operator call with the binding power used to
// parse it, so that printing adds only the parentheses the grammar needs.
func NewInfix(fn Function, symbol string, prec int, rightAssoc bool, left, right Node) *Call {
	return newCall(&Call{
		fn:    fn,
		name:  symbol,
		args:  []Node{left, right},
		kind:  callInfix,
		prec:  prec,
		right: rightAssoc,
	})
}

func newCall(c *Call) *Call {
	fn, args := c.fn, c.args
	c.strategy = newStrategy(fn.ValueType(),
		func() Closures[types.NoKey] { return fn.Static(args) },
		func() Closures[int64] { return fn.Index(args) },
		func() Closures[time.Time] { return fn.Date(args) },
	)
	return c
}

// Function returns the called descriptor.
func (c *Call) Function() Function { return c.fn }

// Name returns the function name or operator symbol as written.
func (c *Call) Name() string { return c.name }

// Args returns the argument nodes.
func (c *Call) Args() []Node { return c.args }

func (c *Call) Children() []Node           { return c.args }
func (c *Call) ValueType() types.ValueType { return c.fn.ValueType() }
func (c *Call) IsConstant() bool           { return false }

// Simplify simplifies the arguments and folds the call into a constant when
// every argument is constant and the function is natural for them.
func (c *Call) Simplify() Node {
	return newSimplifier().simplify(c)
}

// rebuild returns the call over args, folded when possible.
func (c *Call) rebuild(args []Node) Node {
	constant := true
	for _, a := range args {
		if !a.IsConstant() {
			constant = false
			break
		}
	}
	s := newCall(&Call{
		fn:    c.fn,
		name:  c.name,
		args:  args,
		kind:  c.kind,
		prec:  c.prec,
		right: c.right,
	})
	if constant && c.fn.Natural(args) {
		return Fold(s)
	}
	return s
}

func (c *Call) precedence() int {
	if c.kind == callFunction {
		return maxPrecedence
	}
	return c.prec
}

func (c *Call) String() string {
	var b strings.Builder
	switch c.kind {
	case callPrefix:
		b.WriteString(c.name)
		writeOperand(&b, c.args[0], precedenceOf(c.args[0]) < c.prec)
	case callInfix:
		lp, rp := precedenceOf(c.args[0]), precedenceOf(c.args[1])
		writeOperand(&b, c.args[0], lp < c.prec || (c.right && lp == c.prec))
		b.WriteByte(' ')
		b.WriteString(c.name)
		b.WriteByte(' ')
		writeOperand(&b, c.args[1], rp < c.prec || (!c.right && rp == c.prec))
	default:
		b.WriteString(c.name)
		b.WriteByte('(')
		for i, a := range c.args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

func writeOperand(b *strings.Builder, n Node, paren bool) {
	if paren {
		b.WriteByte('(')
	}
	b.WriteString(n.String())
	if paren {
		b.WriteByte(')')
	}
}
