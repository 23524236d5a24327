package formula

import (
	"regexp"
	"strings"

	"gridnote/internal/engine/grid"
)

// Sigil marks cell content as a formula.
const Sigil = "="

// referencePattern matches A1 tokens that stand alone; "XA1" or "A1B" inside a
// longer identifier do not match.
var referencePattern = regexp.MustCompile(`\b[A-Z]+[1-9][0-9]*\b`)

// IsFormula reports whether content is a formula. A bare sigil is plain text.
func IsFormula(content string) bool {
	return len(content) > len(Sigil) && strings.HasPrefix(content, Sigil)
}

// Body strips the sigil from formula content.
func Body(content string) string {
	return strings.TrimPrefix(content, Sigil)
}

// ExtractReferences returns the distinct A1 references in body in order of
// first occurrence. It does not check that they resolve.
func ExtractReferences(body string) []string {
	matches := referencePattern.FindAllString(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		refs = append(refs, m)
	}
	return refs
}

// Reference is an extracted A1 label together with where it points.
type Reference struct {
	Ref      string
	X        int
	Y        int
	Key      grid.Key
	Resolved bool
}

// ResolveReferences extracts the references of in-progress input and resolves
// each through codec. The editor uses it to highlight referenced cells while
// a formula is typed. Non-formula input has no references.
func ResolveReferences(input string, codec grid.Codec) []Reference {
	if !IsFormula(input) {
		return nil
	}

	refs := ExtractReferences(Body(input))
	out := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		r := Reference{Ref: ref}
		if x, y, ok := codec.RefToCoords(ref); ok {
			r.X, r.Y = x, y
			r.Key = grid.ToKey(x, y)
			r.Resolved = true
		}
		out = append(out, r)
	}
	return out
}
