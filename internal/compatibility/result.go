package compatibility

import "fmt"

// Result is the outcome of a structural compatibility check.
type Result struct {
	IsCompatible bool     `json:"is_compatible"`
	Messages     []string `json:"messages,omitempty"`
}

// NewCompatibleResult returns a Result reporting compatibility.
func NewCompatibleResult() *Result {
	return &Result{IsCompatible: true}
}

// NewIncompatibleResult returns a Result carrying one or more reasons.
func NewIncompatibleResult(messages ...string) *Result {
	return &Result{IsCompatible: false, Messages: messages}
}

// AddMessage records an incompatibility reason and marks the result
// incompatible.
func (r *Result) AddMessage(format string, args ...interface{}) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
	r.IsCompatible = false
}

// Merge folds another result's incompatibility and messages into r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	if !other.IsCompatible {
		r.IsCompatible = false
		r.Messages = append(r.Messages, other.Messages...)
	}
}
