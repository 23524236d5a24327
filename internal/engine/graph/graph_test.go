// # internal/engine/graph/graph_test.go
package graph

import (
	"errors"
	"testing"

	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/sheet"
)

var testCodec = grid.NewCodec(grid.Symmetric(12))

func buildStore(t testing.TB, contents map[string]string) sheet.Store {
	t.Helper()
	cells := make([]sheet.Cell, 0, len(contents))
	for ref, content := range contents {
		x, y, ok := testCodec.RefToCoords(ref)
		if !ok {
			t.Fatalf("bad test ref %q", ref)
		}
		cells = append(cells, sheet.Cell{X: x, Y: y, Content: content})
	}
	return sheet.FromCells(testCodec, cells)
}

func k(t testing.TB, ref string) grid.Key {
	t.Helper()
	key, ok := testCodec.KeyForRef(ref)
	if !ok {
		t.Fatalf("bad test ref %q", ref)
	}
	return key
}

func keysOf(t testing.TB, refs ...string) []grid.Key {
	out := make([]grid.Key, len(refs))
	for i, r := range refs {
		out[i] = k(t, r)
	}
	return out
}

func sameSet(got map[grid.Key]struct{}, want []grid.Key) bool {
	if len(got) != len(want) {
		return false
	}
	for _, w := range want {
		if _, ok := got[w]; !ok {
			return false
		}
	}
	return true
}

func TestBuild_Edges(t *testing.T) {
	g := Build(buildStore(t, map[string]string{
		"A1": "2",
		"B1": "=A1*2",
		"C1": "=A1+A1+B1",
		"D1": "text A1",
	}))

	if got := g.Dependents(k(t, "A1")); len(got) != 2 {
		t.Fatalf("A1 dependents = %v", got)
	}
	if got := g.Dependencies(k(t, "C1")); len(got) != 2 {
		t.Fatalf("C1 dependencies = %v, want A1 and B1 once each", got)
	}
	if len(g.Dependencies(k(t, "D1"))) != 0 {
		t.Fatal("text cells do not reference anything")
	}
	if g.EdgeCount() != 3 {
		t.Fatalf("EdgeCount = %d, want 3", g.EdgeCount())
	}
}

func TestBuild_SkipsUnresolvableAndKeepsDangling(t *testing.T) {
	g := Build(buildStore(t, map[string]string{"A1": "=Z99+B5"}))

	if got := g.Dependencies(k(t, "A1")); len(got) != 1 || got[0] != k(t, "B5") {
		t.Fatalf("A1 dependencies = %v, want only B5", got)
	}
	if !g.HasNode(k(t, "B5")) {
		t.Fatal("in-bounds reference to an absent cell should get a node")
	}
	if got := g.Dependents(k(t, "B5")); len(got) != 1 || got[0] != k(t, "A1") {
		t.Fatalf("B5 dependents = %v", got)
	}
}

func TestAffected_Diamond(t *testing.T) {
	g := Build(buildStore(t, map[string]string{
		"A1": "2",
		"B1": "=A1*2",
		"C1": "=A1*3",
		"D1": "=B1+C1",
		"E1": "5",
	}))

	got := g.Affected([]grid.Key{k(t, "A1")})
	if !sameSet(got, keysOf(t, "A1", "B1", "C1", "D1")) {
		t.Fatalf("Affected(A1) = %v", got)
	}

	got = g.Affected([]grid.Key{k(t, "C1")})
	if !sameSet(got, keysOf(t, "C1", "D1")) {
		t.Fatalf("Affected(C1) = %v", got)
	}
}

func TestAffected_TerminatesOnCycles(t *testing.T) {
	g := Build(buildStore(t, map[string]string{"A1": "=B1", "B1": "=A1", "C1": "=C1"}))

	got := g.Affected([]grid.Key{k(t, "A1"), k(t, "C1")})
	if !sameSet(got, keysOf(t, "A1", "B1", "C1")) {
		t.Fatalf("Affected = %v", got)
	}
}

func TestAffected_UnknownKeyIsReflexive(t *testing.T) {
	g := Build(buildStore(t, nil))
	got := g.Affected([]grid.Key{"40,40"})
	if len(got) != 1 {
		t.Fatalf("expected the changed key itself, got %v", got)
	}
}

func TestImpact(t *testing.T) {
	g := Build(buildStore(t, map[string]string{
		"A1": "1",
		"B1": "=A1",
		"C1": "=B1",
		"D1": "=C1+A1",
	}))

	report, err := g.Impact(k(t, "A1"))
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if len(report.DirectDependents) != 2 {
		t.Fatalf("direct = %v, want B1 and D1", report.DirectDependents)
	}
	if len(report.TransitiveDependents) != 1 || report.TransitiveDependents[0] != k(t, "C1") {
		t.Fatalf("transitive = %v, want C1", report.TransitiveDependents)
	}
	chain := report.Chains[k(t, "C1")]
	if len(chain) != 3 || chain[0] != k(t, "C1") || chain[1] != k(t, "B1") || chain[2] != k(t, "A1") {
		t.Fatalf("chain for C1 = %v, want C1 B1 A1", chain)
	}

	_, err = g.Impact("99,99")
	if !errors.Is(err, ErrImpactTargetNotFound) {
		t.Fatalf("expected ErrImpactTargetNotFound, got %v", err)
	}
}

func TestFindReferenceChain(t *testing.T) {
	g := Build(buildStore(t, map[string]string{
		"A1": "=B1",
		"B1": "=C1",
		"C1": "1",
		"D1": "9",
	}))

	path, ok := g.FindReferenceChain(k(t, "A1"), k(t, "C1"))
	if !ok || len(path) != 3 || path[1] != k(t, "B1") {
		t.Fatalf("path = %v, ok = %v", path, ok)
	}
	if _, ok := g.FindReferenceChain(k(t, "C1"), k(t, "A1")); ok {
		t.Fatal("references are directed")
	}
	if _, ok := g.FindReferenceChain(k(t, "A1"), k(t, "D1")); ok {
		t.Fatal("unrelated cells have no chain")
	}
}
