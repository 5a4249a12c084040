package series

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/itchyny/gojq"
)

// Query selects the points of a series from a JSON document with jq
// expressions. Values must yield numbers (or numeric strings); Times, when
// set, must yield as many RFC 3339 strings or Unix timestamps in seconds.
type Query struct {
	Name   string
	Values string
	Times  string
}

// FromJSON decodes data and extracts a series with q.
//
// Example:
//
//	s, err := series.FromJSON(ctx, data, series.Query{
//	    Name:   "close",
//	    Values: ".bars[].c",
//	    Times:  ".bars[].t",
//	})
func FromJSON(ctx context.Context, data []byte, q Query) (*Series, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode series %q: %w", q.Name, err)
	}

	raw, err := run(ctx, q.Values, doc)
	if err != nil {
		return nil, fmt.Errorf("series %q values: %w", q.Name, err)
	}
	values := make([]float64, len(raw))
	for i, v := range raw {
		if values[i], err = toFloat(v); err != nil {
			return nil, fmt.Errorf("series %q value %d: %w", q.Name, i, err)
		}
	}
	if q.Times == "" {
		return New(q.Name, values), nil
	}

	raw, err = run(ctx, q.Times, doc)
	if err != nil {
		return nil, fmt.Errorf("series %q times: %w", q.Name, err)
	}
	times := make([]time.Time, len(raw))
	for i, v := range raw {
		if times[i], err = toTime(v); err != nil {
			return nil, fmt.Errorf("series %q time %d: %w", q.Name, i, err)
		}
	}
	return NewDated(q.Name, times, values)
}

// run collects every output of a jq query.
func run(ctx context.Context, src string, doc any) ([]any, error) {
	query, err := gojq.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", src, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", src, err)
	}

	var out []any
	iter := code.RunWithContext(ctx, doc)
	for {
		v, ok := iter.Next()
		if !ok {
			return out, nil
		}
		if err, ok := v.(error); ok {
			return nil, err
		}
		out = append(out, v)
	}
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("not a number: %v", v)
}

func toTime(v any) (time.Time, error) {
	switch v := v.(type) {
	case string:
		return time.Parse(time.RFC3339, v)
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("not a time: %v", v)
}
