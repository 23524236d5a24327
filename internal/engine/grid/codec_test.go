package grid

import "testing"

func TestColumnLabel(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}

	for _, tt := range tests {
		if got := ColumnLabel(tt.index); got != tt.want {
			t.Errorf("ColumnLabel(%d) = %q, want %q", tt.index, got, tt.want)
		}
		if got := ColumnIndex(tt.want); got != tt.index {
			t.Errorf("ColumnIndex(%q) = %d, want %d", tt.want, got, tt.index)
		}
	}

	if ColumnLabel(-1) != "" {
		t.Error("expected empty label for negative index")
	}
	if ColumnIndex("a") != -1 || ColumnIndex("") != -1 || ColumnIndex("A1") != -1 {
		t.Error("expected -1 for invalid labels")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	for _, pair := range [][2]int{{0, 0}, {-3, 7}, {12, -12}, {-100, -100}} {
		key := ToKey(pair[0], pair[1])
		x, y, ok := KeyToCoords(key)
		if !ok || x != pair[0] || y != pair[1] {
			t.Fatalf("KeyToCoords(%q) = (%d, %d, %v), want (%d, %d, true)", key, x, y, ok, pair[0], pair[1])
		}
	}

	if ToKey(1, 23) == ToKey(12, 3) {
		t.Fatal("keys must not collide")
	}

	for _, bad := range []Key{"", "1", "a,b", "1,", ",2"} {
		if _, _, ok := KeyToCoords(bad); ok {
			t.Errorf("KeyToCoords(%q) should fail", bad)
		}
	}
}

func TestCodec_CoordsToRef(t *testing.T) {
	codec := NewCodec(Symmetric(2))

	tests := []struct {
		x, y int
		want string
	}{
		{-2, 2, "A1"},
		{-1, 2, "B1"},
		{2, 2, "E1"},
		{-2, -2, "A5"},
		{0, 0, "C3"},
		{3, 0, ""},
		{0, -3, ""},
	}

	for _, tt := range tests {
		if got := codec.CoordsToRef(tt.x, tt.y); got != tt.want {
			t.Errorf("CoordsToRef(%d, %d) = %q, want %q", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestCodec_RoundTripAllCoordinates(t *testing.T) {
	codec := NewCodec(Symmetric(15))
	b := codec.Bounds()

	for y := b.Min; y <= b.Max; y++ {
		for x := b.Min; x <= b.Max; x++ {
			ref := codec.CoordsToRef(x, y)
			gx, gy, ok := codec.RefToCoords(ref)
			if !ok || gx != x || gy != y {
				t.Fatalf("round trip (%d, %d) -> %q -> (%d, %d, %v)", x, y, ref, gx, gy, ok)
			}
		}
	}
}

func TestCodec_LabelsAreMonotonic(t *testing.T) {
	codec := NewCodec(Symmetric(15))
	b := codec.Bounds()

	prevCol := -1
	for x := b.Min; x <= b.Max; x++ {
		ref := codec.CoordsToRef(x, 0)
		m := refPattern.FindStringSubmatch(ref)
		col := ColumnIndex(m[1])
		if col <= prevCol {
			t.Fatalf("column for x=%d (%s) not increasing", x, ref)
		}
		prevCol = col
	}

	prevRow := 0
	for y := b.Max; y >= b.Min; y-- {
		x, gy, _ := codec.RefToCoords(codec.CoordsToRef(0, y))
		if x != 0 || gy != y {
			t.Fatalf("unexpected decode for y=%d", y)
		}
		row := b.Max - y + 1
		if row <= prevRow {
			t.Fatalf("row for y=%d not increasing", y)
		}
		prevRow = row
	}
}

func TestCodec_RefToCoordsRejects(t *testing.T) {
	codec := NewCodec(Symmetric(2))

	for _, ref := range []string{"", "a1", "A0", "A01", "1A", "A", "1", "A1B", "F1", "A6", "ABCDEFGH1", " A1"} {
		if _, _, ok := codec.RefToCoords(ref); ok {
			t.Errorf("RefToCoords(%q) should be unresolvable", ref)
		}
	}

	key, ok := codec.KeyForRef("C3")
	if !ok || key != ToKey(0, 0) {
		t.Fatalf("KeyForRef(C3) = %q, %v", key, ok)
	}
	if codec.RefForKey(ToKey(0, 0)) != "C3" {
		t.Fatal("RefForKey should invert KeyForRef")
	}
	if codec.RefForKey("junk") != "" {
		t.Fatal("RefForKey should reject malformed keys")
	}
}

func TestCodec_InBounds(t *testing.T) {
	codec := NewCodec(Bounds{Min: -1, Max: 1})
	if !codec.InBounds(-1, 1) || !codec.InBounds(0, 0) {
		t.Fatal("expected corners and origin in bounds")
	}
	if codec.InBounds(2, 0) || codec.InBounds(0, -2) {
		t.Fatal("expected outside coordinates to be rejected")
	}
	if (Bounds{Min: 1, Max: 0}).Size() != 0 || Symmetric(-3).Size() != 7 {
		t.Fatal("unexpected bounds size")
	}
}
