package formula

import (
	"errors"
	"testing"
)

func TestExprEngine_Evaluate(t *testing.T) {
	engine := NewExprEngine(8)

	tests := []struct {
		name     string
		body     string
		bindings map[string]float64
		want     string
	}{
		{"integer arithmetic", "1+2", nil, "3"},
		{"float result", "7/2", nil, "3.5"},
		{"bindings", "A1*2 + B1", map[string]float64{"A1": 2, "B1": 0.5}, "4.5"},
		{"precedence", "2+3*4", nil, "14"},
		{"power", "2^10", nil, "1024"},
		{"sum", "SUM(A1, B2, 3)", map[string]float64{"A1": 1, "B2": 2}, "6"},
		{"lowercase alias", "max(1, 9, 4)", nil, "9"},
		{"avg", "AVG(2, 4)", nil, "3"},
		{"min", "MIN(5, -1)", nil, "-1"},
		{"round digits", "ROUND(3.14159, 2)", nil, "3.14"},
		{"if", "IF(A1 > 1, 10, 20)", map[string]float64{"A1": 2}, "10"},
		{"comparison", "A1 == 3", map[string]float64{"A1": 3}, "TRUE"},
		{"string literal", `"note"`, nil, "note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(tt.body, tt.bindings)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.body, err)
			}
			if got.String() != tt.want {
				t.Fatalf("Evaluate(%q) = %q, want %q", tt.body, got.String(), tt.want)
			}
		})
	}
}

func TestExprEngine_Faults(t *testing.T) {
	engine := NewExprEngine(8)

	for _, body := range []string{
		"",
		"   ",
		"1 +",
		"(1",
		"NOPE(1)",
		"1/0",
		"1 % 0",
		"unknown + 1",
		"unknown",
		"SQRT(1, 2)",
		"[1, 2]",
	} {
		t.Run(body, func(t *testing.T) {
			_, err := engine.Evaluate(body, nil)
			if err == nil {
				t.Fatalf("expected fault for %q", body)
			}
			if !errors.Is(err, ErrEvaluation) {
				t.Fatalf("expected ErrEvaluation, got %v", err)
			}
			var fault *Fault
			if !errors.As(err, &fault) || fault.Body != body {
				t.Fatalf("expected *Fault for %q, got %T", body, err)
			}
		})
	}
}

func TestExprEngine_CachesPrograms(t *testing.T) {
	engine := NewExprEngine(2)

	for i := 0; i < 3; i++ {
		if _, err := engine.Evaluate("A1+1", map[string]float64{"A1": float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if engine.CachedPrograms() != 1 {
		t.Fatalf("expected 1 cached program, got %d", engine.CachedPrograms())
	}

	_, _ = engine.Evaluate("1+1", nil)
	_, _ = engine.Evaluate("2+2", nil)
	if engine.CachedPrograms() != 2 {
		t.Fatalf("expected cache bounded at 2, got %d", engine.CachedPrograms())
	}
}

func TestProgramCache_EvictsLeastRecent(t *testing.T) {
	c := newProgramCache(2)
	c.Put("a", nil)
	c.Put("b", nil)
	c.Get("a")
	c.Put("c", nil)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected 'b' to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected 'a' to survive")
	}
	if c.Len() != 2 {
		t.Fatalf("expected len 2, got %d", c.Len())
	}
}
