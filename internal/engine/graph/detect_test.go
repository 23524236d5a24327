package graph

import (
	"testing"

	"gridnote/internal/engine/eval"
	"gridnote/internal/engine/formula"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/sheet"
)

func TestDetectCycles(t *testing.T) {
	g := Build(buildStore(t, map[string]string{
		"A1": "=B1",
		"B1": "=C1",
		"C1": "=A1",
		"D1": "=D1",
		"E1": "=A1",
		"F1": "3",
	}))

	cycles := g.DetectCycles()
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %v", cycles)
	}

	sizes := map[int]bool{}
	for _, c := range cycles {
		sizes[len(c)] = true
	}
	if !sizes[1] || !sizes[3] {
		t.Fatalf("expected a self reference and a three-cycle, got %v", cycles)
	}
}

func TestDetectCycles_Acyclic(t *testing.T) {
	g := Build(buildStore(t, map[string]string{
		"A1": "1",
		"B1": "=A1",
		"C1": "=A1+B1",
	}))
	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Fatalf("expected no cycles, got %v", cycles)
	}
}

func TestDetectCycles_ReferenceOrder(t *testing.T) {
	g := Build(buildStore(t, map[string]string{"A1": "=B1", "B1": "=A1"}))

	cycles := g.DetectCycles()
	if len(cycles) != 1 || len(cycles[0]) != 2 {
		t.Fatalf("expected one two-cycle, got %v", cycles)
	}
	if cycles[0][0] != k(t, "B1") || cycles[0][1] != k(t, "A1") {
		t.Fatalf("expected B1 then A1, got %v", cycles[0])
	}
}

// A cell that closes two overlapping loops (S -> X -> Y -> S and S -> Y -> S)
// must be reported whichever cells the loops happen to occupy.
func TestDetectCycles_OverlappingLoops(t *testing.T) {
	orders := [][3]string{
		{"A1", "B1", "C1"},
		{"A1", "C1", "B1"},
		{"B1", "A1", "C1"},
		{"B1", "C1", "A1"},
		{"C1", "A1", "B1"},
		{"C1", "B1", "A1"},
	}
	for _, o := range orders {
		s, x, y := o[0], o[1], o[2]
		t.Run(s+x+y, func(t *testing.T) {
			store := buildStore(t, map[string]string{
				s: "=" + x + "+" + y,
				x: "=" + y,
				y: "=" + s,
			})

			cycles := Build(store).DetectCycles()
			if len(cycles) != 1 {
				t.Fatalf("expected one cycle component, got %v", cycles)
			}
			assertMembers(t, cycles[0], s, x, y)
			assertErrorMembers(t, store, cycles)
		})
	}
}

func TestDetectCycles_SeparateComponentsWithTail(t *testing.T) {
	store := buildStore(t, map[string]string{
		"A1": "=B1",
		"B1": "=A1+C1",
		"C1": "=D1",
		"D1": "=C1",
		"E1": "=E1+A1",
		"F1": "=A1",
	})

	cycles := Build(store).DetectCycles()
	if len(cycles) != 3 {
		t.Fatalf("expected 3 cycles, got %v", cycles)
	}
	for _, c := range cycles {
		for _, key := range c {
			if key == k(t, "F1") {
				t.Fatalf("F1 only reads a cycle, got %v", cycles)
			}
		}
	}
	assertErrorMembers(t, store, cycles)
}

func assertMembers(t *testing.T, cycle []grid.Key, refs ...string) {
	t.Helper()
	if len(cycle) != len(refs) {
		t.Fatalf("cycle %v, want members %v", cycle, refs)
	}
	in := make(map[grid.Key]bool, len(cycle))
	for _, key := range cycle {
		in[key] = true
	}
	for _, ref := range refs {
		if !in[k(t, ref)] {
			t.Fatalf("cycle %v is missing %s", cycle, ref)
		}
	}
}

// assertErrorMembers checks the report against what the evaluator shows:
// every reported cell, and no other formula cell, resolves to the error token.
func assertErrorMembers(t *testing.T, store sheet.Store, cycles [][]grid.Key) {
	t.Helper()
	reported := make(map[grid.Key]bool)
	for _, c := range cycles {
		for _, key := range c {
			reported[key] = true
		}
	}

	ev := eval.New(formula.NewExprEngine(16))
	pass := eval.NewPass()
	for _, cell := range store.Cells() {
		key := cell.Key()
		isError := ev.Evaluate(store, key, pass) == ev.ErrorToken()
		if isError != reported[key] {
			t.Fatalf("%s: error token %v, reported in cycle %v (cycles %v)", key, isError, reported[key], cycles)
		}
	}
}
