package harness

// TraceEvent records one operation observed during scenario replay.
type TraceEvent struct {
	Type    string `json:"type"` // "declare", "set", "delete", "form", "sweep", "compact", "abandon"
	Run     int    `json:"run"`
	Key     string `json:"key,omitempty"`
	ID      string `json:"id,omitempty"`
	Control string `json:"control,omitempty"`
	Value   any    `json:"value,omitempty"`
	Changed bool   `json:"changed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunSnapshot captures the session after one run completed.
type RunSnapshot struct {
	// Run is the 1-based run number.
	Run int `json:"run"`

	// Wire is the outgoing widget snapshot taken before compaction, in
	// declaration order.
	Wire []WireValue `json:"wire"`

	// State is the caller-visible state after the run.
	State map[string]any `json:"state"`
}

// WireValue is one widget value in the outgoing snapshot.
type WireValue struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// Result is the outcome of a scenario replay.
type Result struct {
	// Pass indicates overall success: every expect clause matched.
	Pass bool `json:"pass"`

	// Trace contains every operation in execution order.
	Trace []TraceEvent `json:"trace"`

	// Runs contains per-run session snapshots.
	Runs []RunSnapshot `json:"runs"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Runs:   []RunSnapshot{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
