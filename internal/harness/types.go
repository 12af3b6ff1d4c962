package harness

import "fmt"

// TraceEvent is one executed boundary call: the request fields that were
// sent and the status (plus rendered output for value reads) that came
// back. The implicit init and shutdown appear as events too, so a trace
// is the complete session.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Op       string `json:"op"`
	Name     string `json:"name,omitempty"`
	Access   string `json:"access,omitempty"`
	Type     string `json:"type,omitempty"`
	Literal  string `json:"literal,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
	Status   int64  `json:"status"`
	Output   string `json:"output,omitempty"`
}

// Result is the outcome of one scenario run.
type Result struct {
	// Scenario names the scenario that produced this result.
	Scenario string `json:"scenario"`

	// Session carries the scenario's fixed session token, if any.
	Session string `json:"session,omitempty"`

	// Pass is true when every expectation and check held.
	Pass bool `json:"pass"`

	// Trace lists every call in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or check.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result to accumulate into.
func NewResult(scenario, session string) *Result {
	return &Result{
		Scenario: scenario,
		Session:  session,
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError records a failure message and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
