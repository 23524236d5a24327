// # internal/engine/grid/codec.go
package grid

import (
	"regexp"
	"strconv"
	"strings"
)

// Key is the canonical "x,y" encoding of a coordinate. Cells are addressed by
// Key everywhere inside the engine; A1 references only exist at the boundary.
type Key string

// maxColumnLetters caps the letter part of a reference so decoding cannot
// overflow an int. Seven letters address more columns than any grid we build.
const maxColumnLetters = 7

var refPattern = regexp.MustCompile(`^([A-Z]+)([1-9][0-9]*)$`)

// Bounds is the inclusive coordinate range [Min, Max] shared by both axes.
type Bounds struct {
	Min int
	Max int
}

// Symmetric returns the bounds [-extent, extent].
func Symmetric(extent int) Bounds {
	if extent < 0 {
		extent = -extent
	}
	return Bounds{Min: -extent, Max: extent}
}

// Size is the number of coordinates along one axis.
func (b Bounds) Size() int {
	if b.Max < b.Min {
		return 0
	}
	return b.Max - b.Min + 1
}

// Codec maps between grid coordinates, Keys and A1-style references.
type Codec struct {
	bounds Bounds
}

func NewCodec(bounds Bounds) Codec {
	return Codec{bounds: bounds}
}

func (c Codec) Bounds() Bounds {
	return c.bounds
}

// ToKey encodes a coordinate pair. It is collision-free for every int pair.
func ToKey(x, y int) Key {
	return Key(strconv.Itoa(x) + "," + strconv.Itoa(y))
}

// KeyToCoords is the inverse of ToKey.
func KeyToCoords(key Key) (x, y int, ok bool) {
	xs, ys, found := strings.Cut(string(key), ",")
	if !found {
		return 0, 0, false
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return 0, 0, false
	}
	y, err = strconv.Atoi(ys)
	if err != nil {
		return 0, 0, false
	}
	return x, y, true
}

func (c Codec) InBounds(x, y int) bool {
	return x >= c.bounds.Min && x <= c.bounds.Max &&
		y >= c.bounds.Min && y <= c.bounds.Max
}

// CoordsToRef renders an in-bounds coordinate as an A1 label. Column A is the
// minimum x; row 1 is the maximum y. Out-of-bounds input yields "".
func (c Codec) CoordsToRef(x, y int) string {
	if !c.InBounds(x, y) {
		return ""
	}
	return ColumnLabel(x-c.bounds.Min) + strconv.Itoa(c.bounds.Max-y+1)
}

// RefToCoords parses an A1 label. Malformed labels and labels that fall
// outside the grid report ok=false; callers treat that as an unresolvable
// reference, not a failure.
func (c Codec) RefToCoords(ref string) (x, y int, ok bool) {
	m := refPattern.FindStringSubmatch(ref)
	if m == nil || len(m[1]) > maxColumnLetters {
		return 0, 0, false
	}
	col := ColumnIndex(m[1])
	if col < 0 {
		return 0, 0, false
	}
	row, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}

	x = c.bounds.Min + col
	y = c.bounds.Max - row + 1
	if !c.InBounds(x, y) {
		return 0, 0, false
	}
	return x, y, true
}

// KeyForRef resolves an A1 label straight to a Key.
func (c Codec) KeyForRef(ref string) (Key, bool) {
	x, y, ok := c.RefToCoords(ref)
	if !ok {
		return "", false
	}
	return ToKey(x, y), true
}

// RefForKey renders a Key as an A1 label, or "" when the key is malformed or
// out of bounds.
func (c Codec) RefForKey(key Key) string {
	x, y, ok := KeyToCoords(key)
	if !ok {
		return ""
	}
	return c.CoordsToRef(x, y)
}

// ColumnLabel converts a zero-based column index to bijective base-26
// letters: 0 -> A, 25 -> Z, 26 -> AA.
func ColumnLabel(index int) string {
	if index < 0 {
		return ""
	}
	var buf [16]byte
	i := len(buf)
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('A' + (n-1)%26)
	}
	return string(buf[i:])
}

// ColumnIndex is the inverse of ColumnLabel. It returns -1 for anything that
// is not a run of uppercase letters.
func ColumnIndex(label string) int {
	if label == "" || len(label) > maxColumnLetters {
		return -1
	}
	n := 0
	for i := 0; i < len(label); i++ {
		ch := label[i]
		if ch < 'A' || ch > 'Z' {
			return -1
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1
}
