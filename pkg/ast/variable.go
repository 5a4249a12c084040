package ast

import (
	"math"
	"strconv"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// VarRef references a host variable.
type VarRef struct {
	strategy
	v    Variable
	name string
}

// NewVarRef returns a reference to v, printed as name.
func NewVarRef(v Variable, name string) *VarRef {
	return &VarRef{
		strategy: newStrategy(v.ValueType(), v.Static, v.Index, v.Date),
		v:        v,
		name:     name,
	}
}

// Variable returns the referenced descriptor.
func (r *VarRef) Variable() Variable { return r.v }

func (r *VarRef) Children() []Node           { return nil }
func (r *VarRef) ValueType() types.ValueType { return r.v.ValueType() }
func (r *VarRef) IsConstant() bool           { return false }
func (r *VarRef) String() string             { return r.name }

// Simplify folds natural variables into constants.
func (r *VarRef) Simplify() Node {
	if r.v.Natural() {
		return Fold(r)
	}
	return r
}

// Offset evaluates its child at a key shifted back by N: index k-N for
// integer keys, and the date N steps before for date keys. Static evaluation
// ignores the shift.
type Offset struct {
	strategy
	node Node
	n    int
	prev PreviousKeyFunc
}

// NewOffset returns node shifted back by n keys. prev locates earlier date
// keys; without it date evaluation always misses.
func NewOffset(node Node, n int, prev PreviousKeyFunc) *Offset {
	o := &Offset{node: node, n: n, prev: prev}
	o.strategy = strategy{
		static: node.Static,
		index:  lazy(node.ValueType(), o.index),
		date:   lazy(node.ValueType(), o.date),
	}
	return o
}

func (o *Offset) index() Closures[int64] {
	c, n := o.node.Index(), int64(o.n)
	return Closures[int64]{
		Double:   func(k int64) float64 { return c.Double(k - n) },
		Integer:  func(k int64) int64 { return c.Integer(k - n) },
		Boolean:  func(k int64) bool { return c.Boolean(k - n) },
		NullBool: func(k int64) types.NullBool { return c.NullBool(k - n) },
	}
}

func (o *Offset) date() Closures[time.Time] {
	c, n, prev := o.node.Date(), o.n, o.prev
	if prev == nil {
		return Closures[time.Time]{
			Double:   func(time.Time) float64 { return math.NaN() },
			Integer:  func(time.Time) int64 { return 0 },
			Boolean:  func(time.Time) bool { return false },
			NullBool: func(time.Time) types.NullBool { return types.Null },
		}
	}
	return Closures[time.Time]{
		Double: func(t time.Time) float64 {
			if p, ok := prev(t, n); ok {
				return c.Double(p)
			}
			return math.NaN()
		},
		Integer: func(t time.Time) int64 {
			if p, ok := prev(t, n); ok {
				return c.Integer(p)
			}
			return 0
		},
		Boolean: func(t time.Time) bool {
			if p, ok := prev(t, n); ok {
				return c.Boolean(p)
			}
			return false
		},
		NullBool: func(t time.Time) types.NullBool {
			if p, ok := prev(t, n); ok {
				return c.NullBool(p)
			}
			return types.Null
		},
	}
}

// Node returns the shifted node.
func (o *Offset) Node() Node { return o.node }

// N returns the shift.
func (o *Offset) N() int { return o.n }

func (o *Offset) Children() []Node           { return []Node{o.node} }
func (o *Offset) ValueType() types.ValueType { return o.node.ValueType() }
func (o *Offset) IsConstant() bool           { return o.node.IsConstant() }

// Simplify collapses an offset over a constant into the constant.
func (o *Offset) Simplify() Node {
	return newSimplifier().simplify(o)
}

func (o *Offset) rebuild(node Node) Node {
	if node.IsConstant() {
		return node
	}
	return NewOffset(node, o.n, o.prev)
}

func (o *Offset) String() string {
	s := o.node.String()
	if precedenceOf(o.node) < maxPrecedence {
		s = "(" + s + ")"
	}
	return s + "[" + strconv.Itoa(o.n) + "]"
}
