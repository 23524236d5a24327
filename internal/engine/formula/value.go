package formula

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags a Value.
type Kind uint8

const (
	KindText Kind = iota
	KindNumber
	KindError
)

// Value is the result of evaluating one cell. Numbers stay numbers until the
// display boundary so chained formulas never round-trip through text.
type Value struct {
	Kind   Kind
	Number float64
	Text   string
}

func Number(f float64) Value {
	return Value{Kind: KindNumber, Number: f}
}

func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// Error carries the display token for a failed cell.
func Error(token string) Value {
	return Value{Kind: KindError, Text: token}
}

func (v Value) IsError() bool {
	return v.Kind == KindError
}

// String renders the value for display.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return FormatNumber(v.Number)
	default:
		return v.Text
	}
}

// Operand is the numeric contribution of v when a formula references it.
// Text is parsed after stripping grouping commas; errors, empty cells and
// anything that is not a finite number contribute 0.
func (v Value) Operand() float64 {
	switch v.Kind {
	case KindNumber:
		if isFinite(v.Number) {
			return v.Number
		}
		return 0
	case KindText:
		return ParseNumber(v.Text)
	default:
		return 0
	}
}

// ParseNumber parses display text as a number, treating "1,234.5" as 1234.5.
// Unparseable or non-finite input yields 0.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(f) {
		return 0
	}
	return f
}

func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
