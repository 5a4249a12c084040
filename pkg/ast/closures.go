package ast

import (
	"sync"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// Closures holds the evaluators of one node for one key space, one per value
// type. They are built once per node and then invoked directly for every key,
// so evaluation never walks the tree or boxes values.
//
// A builder only has to provide the closure of its native value type;
// Complete derives the others with the standard coercions.
type Closures[K any] struct {
	Double   func(K) float64
	Integer  func(K) int64
	Boolean  func(K) bool
	NullBool func(K) types.NullBool
}

// Complete returns a copy of c where every missing closure is derived from the
// closure of the native value type. It panics if the native closure is nil.
func (c Closures[K]) Complete(native types.ValueType) *Closures[K] {
	switch native {
	case types.Double:
		d := c.Double
		if d == nil {
			panic("ast: missing double closure")
		}
		if c.Integer == nil {
			c.Integer = func(k K) int64 { return types.DoubleToInteger(d(k)) }
		}
		if c.Boolean == nil {
			c.Boolean = func(k K) bool { return types.DoubleToBool(d(k)) }
		}
		if c.NullBool == nil {
			c.NullBool = func(k K) types.NullBool { return types.DoubleToNullBool(d(k)) }
		}
	case types.Integer:
		i := c.Integer
		if i == nil {
			panic("ast: missing integer closure")
		}
		if c.Double == nil {
			c.Double = func(k K) float64 { return float64(i(k)) }
		}
		if c.Boolean == nil {
			c.Boolean = func(k K) bool { return types.IntegerToBool(i(k)) }
		}
		if c.NullBool == nil {
			c.NullBool = func(k K) types.NullBool { return types.IntegerToNullBool(i(k)) }
		}
	case types.Boolean:
		b := c.Boolean
		if b == nil {
			panic("ast: missing boolean closure")
		}
		if c.Double == nil {
			c.Double = func(k K) float64 { return types.BoolToDouble(b(k)) }
		}
		if c.Integer == nil {
			c.Integer = func(k K) int64 { return types.BoolToInteger(b(k)) }
		}
		if c.NullBool == nil {
			c.NullBool = func(k K) types.NullBool { return types.NullBoolOf(b(k)) }
		}
	case types.NullBoolean:
		n := c.NullBool
		if n == nil {
			panic("ast: missing nullable boolean closure")
		}
		if c.Double == nil {
			c.Double = func(k K) float64 { return types.NullBoolToDouble(n(k)) }
		}
		if c.Integer == nil {
			c.Integer = func(k K) int64 { return types.NullBoolToInteger(n(k)) }
		}
		if c.Boolean == nil {
			c.Boolean = func(k K) bool { return types.NullBoolToBool(n(k)) }
		}
	default:
		panic("ast: invalid value type " + native.String())
	}
	return &c
}

// Constants returns closures that ignore the key and return fixed values.
func Constants[K any](d float64, i int64, b bool, n types.NullBool) *Closures[K] {
	return &Closures[K]{
		Double:   func(K) float64 { return d },
		Integer:  func(K) int64 { return i },
		Boolean:  func(K) bool { return b },
		NullBool: func(K) types.NullBool { return n },
	}
}

// Space selects the closures of a node for one key space. The three key
// spaces are StaticSpace, IndexSpace and DateSpace.
type Space[K any] func(Node) *Closures[K]

// StaticSpace selects the closures evaluated without a key.
func StaticSpace(n Node) *Closures[types.NoKey] { return n.Static() }

// IndexSpace selects the closures keyed by an integer index.
func IndexSpace(n Node) *Closures[int64] { return n.Index() }

// DateSpace selects the closures keyed by a date/time.
func DateSpace(n Node) *Closures[time.Time] { return n.Date() }

// strategy builds and caches the closures of a node, once per key space.
// It is embedded by every node type.
type strategy struct {
	static func() *Closures[types.NoKey]
	index  func() *Closures[int64]
	date   func() *Closures[time.Time]
}

func newStrategy(
	vt types.ValueType,
	static func() Closures[types.NoKey],
	index func() Closures[int64],
	date func() Closures[time.Time],
) strategy {
	return strategy{
		static: lazy(vt, static),
		index:  lazy(vt, index),
		date:   lazy(vt, date),
	}
}

// sharedStrategy reuses the closures of another node, e.g. for aliases.
func sharedStrategy(n Node) strategy {
	return strategy{
		static: n.Static,
		index:  n.Index,
		date:   n.Date,
	}
}

func lazy[K any](vt types.ValueType, build func() Closures[K]) func() *Closures[K] {
	return sync.OnceValue(func() *Closures[K] {
		return build().Complete(vt)
	})
}

func (s *strategy) Static() *Closures[types.NoKey] { return s.static() }
func (s *strategy) Index() *Closures[int64]        { return s.index() }
func (s *strategy) Date() *Closures[time.Time]     { return s.date() }
