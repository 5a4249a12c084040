// Package types defines the value model shared by every goformula package.
//
// This package contains:
//   - ValueType: the declared result type of an expression node
//   - NullBool: an allocation-free nullable boolean
//   - NoKey: the key of the static key space
//   - Coercions between the four value types
//   - Position and Error: source locations and the parse error kind
package types

import "math"

// ValueType is the declared result type of an expression node.
type ValueType uint8

const (
	Double ValueType = iota
	Integer
	Boolean
	NullBoolean
)

// String returns the name of the value type.
func (t ValueType) String() string {
	switch t {
	case Double:
		return "double"
	case Integer:
		return "integer"
	case Boolean:
		return "boolean"
	case NullBoolean:
		return "boolean-nullable"
	default:
		return "(unknown)"
	}
}

// NullBool is a boolean that may be null.
type NullBool uint8

const (
	Null NullBool = iota
	False
	True
)

// NullBoolOf converts a bool.
func NullBoolOf(b bool) NullBool {
	if b {
		return True
	}
	return False
}

// String returns "null", "false" or "true".
func (b NullBool) String() string {
	switch b {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "null"
	}
}

// NoKey is the key of the static key space: evaluation without a key.
type NoKey struct{}

// Coercions. Booleans map to 1/0; null maps to NaN as a double. Numbers are
// true when strictly positive, and NaN is null.

func BoolToDouble(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func BoolToInteger(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func NullBoolToDouble(b NullBool) float64 {
	switch b {
	case True:
		return 1
	case False:
		return 0
	default:
		return math.NaN()
	}
}

func NullBoolToInteger(b NullBool) int64 {
	if b == True {
		return 1
	}
	return 0
}

func NullBoolToBool(b NullBool) bool {
	return b == True
}

func DoubleToBool(d float64) bool {
	return d > 0
}

func DoubleToNullBool(d float64) NullBool {
	if math.IsNaN(d) {
		return Null
	}
	return NullBoolOf(d > 0)
}

// DoubleToInteger truncates toward zero. NaN and out-of-range values
// saturate: NaN becomes 0.
func DoubleToInteger(d float64) int64 {
	switch {
	case math.IsNaN(d):
		return 0
	case d >= math.MaxInt64:
		return math.MaxInt64
	case d <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(d)
	}
}

func IntegerToBool(i int64) bool {
	return i > 0
}

func IntegerToNullBool(i int64) NullBool {
	return NullBoolOf(i > 0)
}
