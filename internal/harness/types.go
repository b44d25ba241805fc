package harness

import "github.com/PrimaryFunction/Arkos/internal/testutil"

// OutcomeOK is the outcome of a step that returned no error.
const OutcomeOK = "OK"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64           `json:"seq"`
	Op      string          `json:"op"`
	User    string          `json:"user,omitempty"`
	Key     string          `json:"key,omitempty"`
	Outcome string          `json:"outcome"`
	Result  any             `json:"result,omitempty"`
	Calls   []testutil.Call `json:"calls,omitempty"`
}

// RelayResult is the trace result of a successful relay step.
type RelayResult struct {
	RelayID       string `json:"relay_id"`
	ChannelID     string `json:"channel_id"`
	HostChannelID string `json:"host_channel_id"`
}

// DeleteResult is the trace result of a delete step.
type DeleteResult struct {
	GrantsRemoved int64 `json:"grants_removed"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
