package types

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestCoercions(t *testing.T) {
	if BoolToDouble(true) != 1 || BoolToDouble(false) != 0 {
		t.Error("bool -> double must be 1/0")
	}
	if !math.IsNaN(NullBoolToDouble(Null)) {
		t.Error("null -> double must be NaN")
	}
	if NullBoolToDouble(True) != 1 || NullBoolToDouble(False) != 0 {
		t.Error("nullable bool -> double must be 1/0")
	}
	if DoubleToNullBool(math.NaN()) != Null {
		t.Error("NaN -> nullable bool must be null")
	}

	tests := []struct {
		in   float64
		want bool
	}{
		{1, true},
		{0.5, true},
		{0, false},
		{-1, false},
		{math.NaN(), false},
		{math.Inf(1), true},
	}
	for _, tt := range tests {
		if got := DoubleToBool(tt.in); got != tt.want {
			t.Errorf("DoubleToBool(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if IntegerToBool(0) || !IntegerToBool(3) || IntegerToBool(-2) {
		t.Error("integer -> bool must follow the positive convention")
	}
	if BoolToInteger(true) != 1 || BoolToInteger(false) != 0 {
		t.Error("bool -> integer must be 1/0")
	}
	if DoubleToInteger(math.NaN()) != 0 || DoubleToInteger(-2.7) != -2 {
		t.Error("double -> integer must truncate and map NaN to 0")
	}
	if DoubleToInteger(math.Inf(1)) != math.MaxInt64 {
		t.Error("double -> integer must saturate")
	}
}

func TestPositionTranslate(t *testing.T) {
	base := Position{Line: 2, Column: 8, Offset: 30}

	got := Position{Line: 0, Column: 3, Offset: 3, Length: 1}.Translate(base)
	want := Position{Line: 2, Column: 11, Offset: 33, Length: 1}
	if got != want {
		t.Errorf("first line: got %+v, want %+v", got, want)
	}

	got = Position{Line: 1, Column: 3, Offset: 12}.Translate(base)
	want = Position{Line: 3, Column: 3, Offset: 42}
	if got != want {
		t.Errorf("later line: got %+v, want %+v", got, want)
	}
}

func TestErrorDebugMode(t *testing.T) {
	defer SetDebug(false)

	err := NewError(ErrInvalidCharacter, "invalid character in input", Position{Column: 4}).WithSource("1 + $")
	if strings.Contains(err.Error(), "1 + $") {
		t.Fatalf("source leaked outside debug mode: %s", err)
	}
	if err.Trace != nil {
		t.Fatal("trace captured outside debug mode")
	}

	SetDebug(true)
	err = NewError(ErrInvalidCharacter, "invalid character in input", Position{Column: 4}).WithSource("1 + $")
	if !strings.Contains(err.Error(), `"1 + $"`) {
		t.Fatalf("expected source in debug message, got %s", err)
	}
	if len(err.Trace) == 0 {
		t.Fatal("expected trace in debug mode")
	}
	if !strings.HasPrefix(err.Error(), "L0101 at 1:5: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestErrorSentinel(t *testing.T) {
	var err error = Errorf(ErrArgumentCount, Position{}, "function %q expects 2 arguments, got %d", "pow", 3)
	if !errors.Is(err, Sentinel(ErrArgumentCount)) {
		t.Fatal("expected errors.Is to match the code")
	}
	if errors.Is(err, Sentinel(ErrUnexpectedToken)) {
		t.Fatal("matched the wrong code")
	}
}
