package ast

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// Constant is a literal or folded value.
type Constant struct {
	strategy
	vt types.ValueType
	d  float64
	i  int64
	b  bool
	n  types.NullBool
}

// NewDouble returns a double constant.
func NewDouble(v float64) *Constant {
	return newConstant(&Constant{
		vt: types.Double,
		d:  v,
		i:  types.DoubleToInteger(v),
		b:  types.DoubleToBool(v),
		n:  types.DoubleToNullBool(v),
	})
}

// NewInteger returns an integer constant.
func NewInteger(v int64) *Constant {
	return newConstant(&Constant{
		vt: types.Integer,
		d:  float64(v),
		i:  v,
		b:  types.IntegerToBool(v),
		n:  types.IntegerToNullBool(v),
	})
}

// NewBoolean returns a boolean constant.
func NewBoolean(v bool) *Constant {
	return newConstant(&Constant{
		vt: types.Boolean,
		d:  types.BoolToDouble(v),
		i:  types.BoolToInteger(v),
		b:  v,
		n:  types.NullBoolOf(v),
	})
}

// NewNullBool returns a nullable boolean constant.
func NewNullBool(v types.NullBool) *Constant {
	return newConstant(&Constant{
		vt: types.NullBoolean,
		d:  types.NullBoolToDouble(v),
		i:  types.NullBoolToInteger(v),
		b:  types.NullBoolToBool(v),
		n:  v,
	})
}

func newConstant(c *Constant) *Constant {
	c.strategy = strategy{
		static: sync.OnceValue(func() *Closures[types.NoKey] { return Constants[types.NoKey](c.d, c.i, c.b, c.n) }),
		index:  sync.OnceValue(func() *Closures[int64] { return Constants[int64](c.d, c.i, c.b, c.n) }),
		date:   sync.OnceValue(func() *Closures[time.Time] { return Constants[time.Time](c.d, c.i, c.b, c.n) }),
	}
	return c
}

// Fold evaluates n statically and returns the result as a constant of the
// same value type.
func Fold(n Node) *Constant {
	c := n.Static()
	var k types.NoKey
	switch n.ValueType() {
	case types.Integer:
		return NewInteger(c.Integer(k))
	case types.Boolean:
		return NewBoolean(c.Boolean(k))
	case types.NullBoolean:
		return NewNullBool(c.NullBool(k))
	default:
		return NewDouble(c.Double(k))
	}
}

func (c *Constant) Children() []Node           { return nil }
func (c *Constant) ValueType() types.ValueType { return c.vt }
func (c *Constant) IsConstant() bool           { return true }
func (c *Constant) Simplify() Node             { return c }

// Double returns the value as a double.
func (c *Constant) Double() float64 { return c.d }

// Integer returns the value as an integer.
func (c *Constant) Integer() int64 { return c.i }

// Boolean returns the value as a boolean.
func (c *Constant) Boolean() bool { return c.b }

// NullBool returns the value as a nullable boolean.
func (c *Constant) NullBool() types.NullBool { return c.n }

// String prints the constant so that it parses back to the same value.
// Booleans print as the names true, false and null, which hosts are
// expected to provide.
func (c *Constant) String() string {
	switch c.vt {
	case types.Integer:
		return strconv.FormatInt(c.i, 10)
	case types.Boolean:
		return strconv.FormatBool(c.b)
	case types.NullBoolean:
		return c.n.String()
	default:
		return FormatDouble(c.d)
	}
}

// FormatDouble formats a double as a formula literal. Integral values keep a
// decimal point so they parse back as doubles.
func FormatDouble(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// Text is a string literal. It evaluates to the number it spells, or NaN,
// and is mostly consumed by host functions at build time.
type Text struct {
	strategy
	value string
}

// NewText returns a string literal node.
func NewText(value string) *Text {
	t := &Text{value: value}
	d := math.NaN()
	if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		d = f
	}
	t.strategy = newStrategy(types.Double,
		func() Closures[types.NoKey] {
			return Closures[types.NoKey]{Double: func(types.NoKey) float64 { return d }}
		},
		func() Closures[int64] {
			return Closures[int64]{Double: func(int64) float64 { return d }}
		},
		func() Closures[time.Time] {
			return Closures[time.Time]{Double: func(time.Time) float64 { return d }}
		},
	)
	return t
}

// Value returns the decoded string.
func (t *Text) Value() string { return t.value }

func (t *Text) Children() []Node           { return nil }
func (t *Text) ValueType() types.ValueType { return types.Double }
func (t *Text) IsConstant() bool           { return true }
func (t *Text) Simplify() Node             { return t }

func (t *Text) String() string {
	var b strings.Builder
	b.Grow(len(t.value) + 2)
	b.WriteByte('"')
	for _, r := range t.value {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
