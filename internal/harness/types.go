package harness

import (
	"github.com/Mootikins/crucible-sub016/internal/store"
)

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name    string `json:"name"`
	Backend string `json:"backend"`
	Dialect string `json:"dialect,omitempty"`

	// Error is the failure kind; Message is its text.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	Text     string         `json:"text,omitempty"`
	Bindings map[string]any `json:"bindings,omitempty"`

	// Rows is set only for cases executed against the store.
	Rows *store.Rows `json:"rows,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Cases holds one result per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Case returns the result of the named case.
func (r *Result) Case(name string) (*CaseResult, bool) {
	for i := range r.Cases {
		if r.Cases[i].Name == name {
			return &r.Cases[i], true
		}
	}
	return nil, false
}
