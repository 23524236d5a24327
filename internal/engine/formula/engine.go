package formula

import (
	"errors"
	"fmt"
)

// Engine evaluates a formula body against numeric bindings for the references
// it contains. Implementations report every failure as an error; the caller
// turns it into the error token.
type Engine interface {
	Evaluate(body string, bindings map[string]float64) (Value, error)
}

var ErrEvaluation = errors.New("formula evaluation failed")

// Fault describes why a body could not be evaluated.
type Fault struct {
	Body   string
	Reason string
	Err    error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%v: %s: %s: %v", ErrEvaluation, f.Body, f.Reason, f.Err)
	}
	return fmt.Sprintf("%v: %s: %s", ErrEvaluation, f.Body, f.Reason)
}

func (f *Fault) Unwrap() error {
	return ErrEvaluation
}

func newFault(body, reason string, err error) *Fault {
	return &Fault{Body: body, Reason: reason, Err: err}
}
