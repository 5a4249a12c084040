// Package series provides in-memory numeric series as formula variables.
//
// A series maps integer indexes, and optionally date keys, to doubles.
// Registered as a variable it answers all three key spaces: the static value
// is the most recent point, index k is the k-th point and a date is looked up
// exactly. Previous implements ast.PreviousKeyFunc over the series' dates, so
// that offsets such as close[1] step back through the recorded points.
package series

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/functions"
)

// ErrLength is returned when times and values differ in length.
var ErrLength = errors.New("series: times and values differ in length")

// Series is an immutable sequence of points.
type Series struct {
	name   string
	times  []time.Time // ascending; nil for index-only series
	values []float64
}

// New creates an index-only series.
func New(name string, values []float64) *Series {
	return &Series{name: name, values: slices.Clone(values)}
}

// NewDated creates a series keyed by dates. Points are sorted by date;
// duplicate dates keep the last value given.
func NewDated(name string, times []time.Time, values []float64) (*Series, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times, %d values", ErrLength, len(times), len(values))
	}
	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return times[order[a]].Before(times[order[b]])
	})

	s := &Series{name: name}
	for _, i := range order {
		if n := len(s.times); n > 0 && s.times[n-1].Equal(times[i]) {
			s.values[n-1] = values[i]
			continue
		}
		s.times = append(s.times, times[i])
		s.values = append(s.values, values[i])
	}
	return s, nil
}

// Name returns the variable name of the series.
func (s *Series) Name() string { return s.name }

// Len returns the number of points.
func (s *Series) Len() int { return len(s.values) }

// Times returns the dates of the points, or nil for an index-only series.
func (s *Series) Times() []time.Time { return s.times }

// Last returns the most recent value, NaN when empty.
func (s *Series) Last() float64 {
	if len(s.values) == 0 {
		return math.NaN()
	}
	return s.values[len(s.values)-1]
}

// At returns the value at index i, NaN when out of range.
func (s *Series) At(i int64) float64 {
	if i < 0 || i >= int64(len(s.values)) {
		return math.NaN()
	}
	return s.values[i]
}

// AtTime returns the value recorded at t, NaN when there is none.
func (s *Series) AtTime(t time.Time) float64 {
	i, ok := s.search(t)
	if !ok {
		return math.NaN()
	}
	return s.values[i]
}

// Previous returns the date steps points before t. A t between two points
// counts the earlier one as the first step back, and has no point zero
// steps back.
func (s *Series) Previous(t time.Time, steps int) (time.Time, bool) {
	i, exact := s.search(t)
	if steps == 0 && !exact {
		return time.Time{}, false
	}
	j := i - steps
	if j < 0 || j >= len(s.times) {
		return time.Time{}, false
	}
	return s.times[j], true
}

// search returns the index of the first point at or after t and whether it
// is exactly at t.
func (s *Series) search(t time.Time) (int, bool) {
	i := sort.Search(len(s.times), func(i int) bool {
		return !s.times[i].Before(t)
	})
	return i, i < len(s.times) && s.times[i].Equal(t)
}

// Variable returns the series as a formula variable.
func (s *Series) Variable() ast.Variable {
	return functions.Var(s.name, s.Last, s.At, s.AtTime)
}

// Keys returns the union of the dates of several series, ascending. It is
// the natural domain for evaluating a formula over dated series.
func Keys(all ...*Series) []time.Time {
	var keys []time.Time
	for _, s := range all {
		keys = append(keys, s.times...)
	}
	slices.SortFunc(keys, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(keys, time.Time.Equal)
}

// Calendar merges the dates of several series into one previous-key
// provider.
func Calendar(all ...*Series) ast.PreviousKeyFunc {
	return (&Series{times: Keys(all...)}).Previous
}
