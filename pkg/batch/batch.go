// Package batch evaluates one JSON encoded request, the protocol of the
// WebAssembly entrypoints.
//
//	request:  {"formula": "a + a[1]", "series": {"a": [1, 2, 4]}, "from": 1, "to": 3}
//	response: {"values": [3, 6]}
//
// Without a range the formula is evaluated once and the response carries
// "result". NaN and infinities are encoded as null.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/ext"
	"github.com/sandrolain/goformula/pkg/series"
)

// Request is a formula and the series it reads.
type Request struct {
	Formula string               `json:"formula"`
	Script  bool                 `json:"script,omitempty"`
	Context string               `json:"context,omitempty"`
	Series  map[string][]float64 `json:"series,omitempty"`
	From    *int64               `json:"from,omitempty"`
	To      *int64               `json:"to,omitempty"`
}

// Response holds either a result, the values of a range, or an error.
type Response struct {
	Result *Number  `json:"result,omitempty"`
	Values []Number `json:"values,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Number is a float64 encoding NaN and infinities as null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

var errRange = errors.New("from and to must be given together")

// Decode parses a request.
func Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("invalid request JSON: %w", err)
	}
	return req, nil
}

// Run evaluates req with every built-in library. opts are applied after
// the request settings.
func Run(ctx context.Context, req Request, opts ...evaluator.EvalOption) Response {
	all := []evaluator.EvalOption{
		ext.WithAll(),
		evaluator.WithContext(req.Context),
		evaluator.WithMultiStatement(req.Script),
	}
	for _, name := range slices.Sorted(maps.Keys(req.Series)) {
		all = append(all, evaluator.WithVariables(series.New(name, req.Series[name]).Variable()))
	}
	ev := evaluator.New(append(all, opts...)...)

	if (req.From == nil) != (req.To == nil) {
		return Response{Error: errRange.Error()}
	}
	if req.From == nil {
		result, err := ev.Eval(ctx, req.Formula)
		if err != nil {
			return Response{Error: err.Error()}
		}
		n := Number(result)
		return Response{Result: &n}
	}

	expr, err := ev.Compile(req.Formula)
	if err != nil {
		return Response{Error: err.Error()}
	}
	values, err := ev.EvalRange(ctx, expr, *req.From, *req.To)
	if err != nil {
		return Response{Error: err.Error()}
	}
	out := make([]Number, len(values))
	for i, v := range values {
		out[i] = Number(v)
	}
	return Response{Values: out}
}
