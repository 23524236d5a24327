package formula

import (
	"math"
	"testing"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Number(10), "10"},
		{Number(2.5), "2.5"},
		{Number(-0.125), "-0.125"},
		{Number(1e21), "1000000000000000000000"},
		{Text("hello"), "hello"},
		{Text(""), ""},
		{Error("#ERROR"), "#ERROR"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValue_Operand(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want float64
	}{
		{"number", Number(3.5), 3.5},
		{"numeric text", Text("42"), 42},
		{"grouped text", Text("1,234.5"), 1234.5},
		{"padded text", Text(" 7 "), 7},
		{"word", Text("hello"), 0},
		{"empty", Text(""), 0},
		{"error", Error("#ERROR"), 0},
		{"infinite text", Text("Inf"), 0},
		{"nan number", Number(math.NaN()), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Operand(); got != tt.want {
				t.Fatalf("Operand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNumberRoundTripsThroughText(t *testing.T) {
	for _, f := range []float64{0.1 + 0.2, 1.0 / 3.0, 123456789.125, -42} {
		if ParseNumber(FormatNumber(f)) != f {
			t.Errorf("%v does not round trip", f)
		}
	}
}
