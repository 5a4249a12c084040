package functions

import (
	"time"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/types"
)

type variable[V Value] struct {
	name    string
	natural bool
	static  func() V
	index   func(int64) V
	date    func(time.Time) V
}

// Const returns a natural variable with a fixed value. References to it are
// folded into constants.
func Const[V Value](name string, v V) ast.Variable {
	get := func() V { return v }
	return &variable[V]{
		name:    name,
		natural: true,
		static:  get,
		index:   func(int64) V { return v },
		date:    func(time.Time) V { return v },
	}
}

// Var returns a variable evaluated by host functions, one per key space. A nil
// index or date function falls back to static.
func Var[V Value](name string, static func() V, index func(int64) V, date func(time.Time) V) ast.Variable {
	if index == nil {
		index = func(int64) V { return static() }
	}
	if date == nil {
		date = func(time.Time) V { return static() }
	}
	return &variable[V]{
		name:   name,
		static: static,
		index:  index,
		date:   date,
	}
}

func (v *variable[V]) Name() string               { return v.name }
func (v *variable[V]) ValueType() types.ValueType { return ValueTypeOf[V]() }
func (v *variable[V]) Natural() bool              { return v.natural }

func (v *variable[V]) Static() ast.Closures[types.NoKey] {
	get := v.static
	return closures(func(types.NoKey) V { return get() })
}

func (v *variable[V]) Index() ast.Closures[int64] {
	return closures(v.index)
}

func (v *variable[V]) Date() ast.Closures[time.Time] {
	return closures(v.date)
}
