// Package extdatetime provides formula functions reading the evaluation key.
//
// Evaluated over dates, year() or weekday() return components of the date
// being evaluated; index() returns the index being evaluated. Without a
// matching key they return NaN. The functions are never folded.
//
//	if(weekday() == 1, close - close[1], nan)
package extdatetime

import (
	"math"
	"time"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns all key functions.
func All() []ast.Function {
	return []ast.Function{
		Year(),
		Month(),
		Day(),
		Weekday(),
		YearDay(),
		Hour(),
		Minute(),
		Unix(),
		Index(),
	}
}

// Year returns the year of the date key.
func Year() ast.Function {
	return dateFunc("year", func(t time.Time) int64 { return int64(t.Year()) })
}

// Month returns the month of the date key, 1 to 12.
func Month() ast.Function {
	return dateFunc("month", func(t time.Time) int64 { return int64(t.Month()) })
}

// Day returns the day of month of the date key.
func Day() ast.Function {
	return dateFunc("day", func(t time.Time) int64 { return int64(t.Day()) })
}

// Weekday returns the ISO weekday of the date key: 1 is Monday, 7 Sunday.
func Weekday() ast.Function {
	return dateFunc("weekday", func(t time.Time) int64 {
		if wd := t.Weekday(); wd != time.Sunday {
			return int64(wd)
		}
		return 7
	})
}

// YearDay returns the day of year of the date key, 1 to 366.
func YearDay() ast.Function {
	return dateFunc("yearday", func(t time.Time) int64 { return int64(t.YearDay()) })
}

// Hour returns the hour of the date key.
func Hour() ast.Function {
	return dateFunc("hour", func(t time.Time) int64 { return int64(t.Hour()) })
}

// Minute returns the minute of the date key.
func Minute() ast.Function {
	return dateFunc("minute", func(t time.Time) int64 { return int64(t.Minute()) })
}

// Unix returns the date key in seconds since the Unix epoch.
func Unix() ast.Function {
	return dateFunc("unix", func(t time.Time) int64 { return t.Unix() })
}

// Index returns the index key.
func Index() ast.Function {
	return &keyFunc{
		name:  "index",
		index: func(i int64) float64 { return float64(i) },
	}
}

func dateFunc(name string, f func(time.Time) int64) ast.Function {
	return &keyFunc{
		name: name,
		date: func(t time.Time) float64 { return float64(f(t)) },
	}
}

// keyFunc is a function without arguments whose value depends on the key.
// A nil evaluator yields NaN for its key space.
type keyFunc struct {
	name  string
	index func(int64) float64
	date  func(time.Time) float64
}

func (f *keyFunc) Name() string                 { return f.name }
func (f *keyFunc) Arity() ast.Arity             { return ast.Fixed(0) }
func (f *keyFunc) ValueType() types.ValueType   { return types.Double }
func (f *keyFunc) Natural(args []ast.Node) bool { return false }

func (f *keyFunc) Static([]ast.Node) ast.Closures[types.NoKey] {
	return ast.Closures[types.NoKey]{Double: func(types.NoKey) float64 { return math.NaN() }}
}

func (f *keyFunc) Index([]ast.Node) ast.Closures[int64] {
	if f.index == nil {
		return ast.Closures[int64]{Double: func(int64) float64 { return math.NaN() }}
	}
	return ast.Closures[int64]{Double: f.index}
}

func (f *keyFunc) Date([]ast.Node) ast.Closures[time.Time] {
	if f.date == nil {
		return ast.Closures[time.Time]{Double: func(time.Time) float64 { return math.NaN() }}
	}
	return ast.Closures[time.Time]{Double: f.date}
}
