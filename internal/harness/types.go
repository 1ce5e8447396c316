package harness

// Trace entry types.
const (
	EntryOp    = "op"
	EntryEvent = "event"
)

// TraceEvent is one entry of a scenario trace: either an operation as
// submitted (Type "op") or an event the engine committed (Type "event").
//
// Addresses are rendered by alias and amounts in whole units, so traces are
// stable across runs and readable in golden files.
type TraceEvent struct {
	Type string `json:"type"`
	Step int    `json:"step"`

	// Op entries.
	Op    string            `json:"op,omitempty"`
	From  string            `json:"from,omitempty"`
	Args  map[string]string `json:"args,omitempty"`
	Error string            `json:"error,omitempty"` // error code, empty on success

	// Event entries.
	Seq    int64                  `json:"seq,omitempty"`
	Kind   string                 `json:"kind,omitempty"`
	Asset  string                 `json:"asset,omitempty"` // empty for vault and ownership events
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success: every step outcome matched its
	// expect clause and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every traced op and the events it committed, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOpTrace adds a submitted operation to the trace.
func (r *Result) AddOpTrace(step int, op, from string, args map[string]string, code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:  EntryOp,
		Step:  step,
		Op:    op,
		From:  from,
		Args:  args,
		Error: code,
	})
}

// AddEventTrace adds a committed event to the trace.
func (r *Result) AddEventTrace(step int, seq int64, kind, asset string, fields map[string]interface{}) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EntryEvent,
		Step:   step,
		Seq:    seq,
		Kind:   kind,
		Asset:  asset,
		Fields: fields,
	})
}

// Events returns the event entries of the trace in order.
func (r *Result) Events() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EntryEvent {
			out = append(out, e)
		}
	}
	return out
}
