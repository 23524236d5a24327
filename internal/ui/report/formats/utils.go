package formats

import (
	"fmt"
	"strings"
	"unicode"

	"gridnote/internal/core/ports"
)

// maxLabelContent truncates cell content shown inside diagram nodes.
const maxLabelContent = 24

// cellLabel renders "ref\ncontent\n= display" for formula cells and
// "ref\ndisplay" for everything else.
func cellLabel(c ports.CellView) string {
	parts := []string{c.Ref}
	if strings.HasPrefix(c.Content, "=") && len(c.Content) > 1 {
		parts = append(parts, truncate(c.Content, maxLabelContent))
		parts = append(parts, "= "+truncate(c.Display, maxLabelContent))
	} else if c.Display != "" {
		parts = append(parts, truncate(c.Display, maxLabelContent))
	}
	return strings.Join(parts, "\\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func sanitizeID(name string) string {
	if name == "" {
		return "c"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	first := rune(out[0])
	if unicode.IsDigit(first) {
		return "c_" + out
	}
	return out
}

func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// escapeTSV keeps one record per line.
func escapeTSV(s string) string {
	r := strings.NewReplacer("\t", "\\t", "\n", "\\n", "\r", "\\r")
	return r.Replace(s)
}

func joinInts(v []int) string {
	if len(v) == 0 {
		return ""
	}
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ",")
}
