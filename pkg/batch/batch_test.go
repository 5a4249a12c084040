package batch

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    string
	}{
		{"constant", `{"formula": "1 + 2"}`, `{"result":3}`},
		{"series last", `{"formula": "a * 2", "series": {"a": [1, 2, 4]}}`, `{"result":8}`},
		{"range", `{"formula": "a + a[1]", "series": {"a": [1, 2, 4]}, "from": 1, "to": 3}`, `{"values":[3,6]}`},
		{"nan as null", `{"formula": "a", "series": {"a": [1]}, "from": 0, "to": 2}`, `{"values":[1,null]}`},
		{"script", `{"formula": "var x = 2; x * x", "script": true}`, `{"result":4}`},
		{"nan result", `{"formula": "nan"}`, `{"result":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Decode([]byte(tt.request))
			if err != nil {
				t.Fatal(err)
			}
			out, err := json.Marshal(Run(context.Background(), req))
			if err != nil {
				t.Fatal(err)
			}
			if string(out) != tt.want {
				t.Errorf("got %s, want %s", out, tt.want)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		request string
		want    string
	}{
		{`{"formula": "1 +"}`, "S02"},
		{`{"formula": "a", "from": 0}`, "from and to"},
		{`{"formula": "1", "from": 3, "to": 1}`, "invalid range"},
		{`{"formula": "unknown(1)"}`, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			req, err := Decode([]byte(tt.request))
			if err != nil {
				t.Fatal(err)
			}
			resp := Run(context.Background(), req)
			if !strings.Contains(resp.Error, tt.want) {
				t.Errorf("Error = %q, want it to contain %q", resp.Error, tt.want)
			}
		})
	}

	if _, err := Decode([]byte(`{"formula": 1}`)); err == nil {
		t.Error("expected a decode error")
	}
}

func TestNumberNull(t *testing.T) {
	var n Number
	if err := json.Unmarshal([]byte("null"), &n); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(float64(n)) {
		t.Errorf("got %v, want NaN", n)
	}
	out, _ := json.Marshal([]Number{Number(math.Inf(1)), 1.5})
	if string(out) != "[null,1.5]" {
		t.Errorf("got %s", out)
	}
}
