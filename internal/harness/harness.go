// Package harness replays session scenarios: scripted sequences of runs
// with client widget events, declarations, and direct writes, producing
// a deterministic trace and per-run snapshots for golden comparison.
package harness

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lucidrun/lucid/internal/catalog"
	"github.com/lucidrun/lucid/internal/state"
	"github.com/lucidrun/lucid/internal/testutil"
	"github.com/lucidrun/lucid/internal/wire"
)

// Harness replays scenarios against a fresh session per run sequence.
// Deterministic widget identifiers keep traces reproducible.
type Harness struct {
	catalog *catalog.Catalog
	idgen   state.IDGenerator
	logger  *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger replaces the default discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// WithIDGenerator replaces the default fixed generator. Golden scenarios
// rely on the default; production replay can use UUIDv7.
func WithIDGenerator(gen state.IDGenerator) Option {
	return func(h *Harness) { h.idgen = gen }
}

// New creates a harness over the given control catalog.
func New(cat *catalog.Catalog, opts ...Option) *Harness {
	h := &Harness{
		catalog: cat,
		idgen:   testutil.NewFixedIDGenerator("w"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with the built-in catalog.
func Run(scenario *Scenario) (*Result, error) {
	cat, err := catalog.LoadBuiltin()
	if err != nil {
		return nil, err
	}
	return New(cat).Run(scenario)
}

// Run replays every run of the scenario against one fresh session.
//
// Per run: widget events are applied, steps executed, then (unless the
// run is abandoned) stale widget state is swept, the outgoing wire
// snapshot captured, and pending layers compacted. Expect clauses are
// evaluated after each run.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	session := state.NewSafeSessionState(state.NewSessionState())
	result := NewResult()

	for i, run := range scenario.Runs {
		if err := h.executeRun(session, i+1, &run, result); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
	}

	return result, nil
}

func (h *Harness) executeRun(session *state.SafeSessionState, n int, run *RunSpec, result *Result) error {
	session.BeginRun()

	for i, ev := range run.Events {
		ws, err := wire.New(ev.ID, ev.Kind, normalizeValue(ev.Value))
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		session.SetWidgetFromWire(ws)
	}

	activeIDs := make(map[string]struct{})
	changedByKey := make(map[string]bool)

	for i, step := range run.Steps {
		switch {
		case step.Declare != nil:
			if err := h.executeDeclare(session, n, step.Declare, activeIDs, changedByKey, result); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		case step.Set != nil:
			ev := TraceEvent{Type: "set", Run: n, Key: step.Set.Key, Value: jsonify(normalizeValue(step.Set.Value))}
			if err := session.Set(step.Set.Key, normalizeValue(step.Set.Value)); err != nil {
				ev.Error = err.Error()
				ev.Value = nil
			}
			result.addTrace(ev)
		case step.Delete != "":
			ev := TraceEvent{Type: "delete", Run: n, Key: step.Delete}
			if err := session.Delete(step.Delete); err != nil {
				ev.Error = err.Error()
			}
			result.addTrace(ev)
		case step.Form != "":
			session.RegisterForm(step.Form)
			result.addTrace(TraceEvent{Type: "form", Run: n, ID: step.Form})
		}
	}

	var wireList []wire.WidgetState
	var err error
	if run.Abandon {
		result.addTrace(TraceEvent{Type: "abandon", Run: n})
	} else {
		var fragments map[string]struct{}
		if run.Fragments != nil {
			fragments = testutil.IDSet(*run.Fragments...)
		}
		session.RemoveStaleWidgets(activeIDs, fragments)
		result.addTrace(TraceEvent{Type: "sweep", Run: n})

		wireList, err = session.AsWireList()
		if err != nil {
			return err
		}

		session.Compact()
		result.addTrace(TraceEvent{Type: "compact", Run: n})
	}

	snapshot := RunSnapshot{Run: n, Wire: wireValues(wireList), State: jsonifyMap(session.FilteredState())}
	result.Runs = append(result.Runs, snapshot)

	if run.Expect != nil {
		h.evaluateExpect(n, run.Expect, snapshot, changedByKey, result)
	}

	h.logger.Info("run completed",
		"run", n,
		"widgets", len(wireList),
		"keys", len(snapshot.State),
		"abandoned", run.Abandon,
	)
	return nil
}

func (h *Harness) executeDeclare(session *state.SafeSessionState, n int, step *DeclareStep, activeIDs map[string]struct{}, changedByKey map[string]bool, result *Result) error {
	ctrl, ok := h.catalog.Lookup(step.Control)
	if !ok {
		return fmt.Errorf("unknown control %q", step.Control)
	}

	id := step.ID
	if id == "" {
		id = state.GeneratedWidgetID(h.idgen, step.Key)
	}

	meta := ctrl.Metadata(id, step.Fragment)
	res, err := session.RegisterWidget(meta, step.Key)
	if err != nil {
		return fmt.Errorf("declare %s: %w", step.Control, err)
	}
	activeIDs[id] = struct{}{}

	key := step.Key
	if key == "" {
		key = id
	}
	changedByKey[key] = res.ValueChanged

	result.addTrace(TraceEvent{
		Type:    "declare",
		Run:     n,
		Key:     step.Key,
		ID:      id,
		Control: step.Control,
		Value:   jsonify(res.Value),
		Changed: res.ValueChanged,
	})

	h.logger.Info("control declared",
		"run", n,
		"control", step.Control,
		"id", id,
		"key", step.Key,
		"changed", res.ValueChanged,
	)
	return nil
}

// evaluateExpect checks an expect clause against the run snapshot.
// Values compare by canonical JSON so YAML ints match stored int64s.
func (h *Harness) evaluateExpect(n int, expect *ExpectClause, snapshot RunSnapshot, changedByKey map[string]bool, result *Result) {
	for key, want := range expect.State {
		got, ok := snapshot.State[key]
		if !ok {
			result.AddError(fmt.Sprintf("run %d: expected key %q not present", n, key))
			continue
		}
		wantJSON, err := wire.MarshalCanonical(jsonify(normalizeValue(want)))
		if err != nil {
			result.AddError(fmt.Sprintf("run %d: key %q: %v", n, key, err))
			continue
		}
		gotJSON, err := wire.MarshalCanonical(got)
		if err != nil {
			result.AddError(fmt.Sprintf("run %d: key %q: %v", n, key, err))
			continue
		}
		if string(wantJSON) != string(gotJSON) {
			result.AddError(fmt.Sprintf("run %d: key %q: expected %s, got %s", n, key, wantJSON, gotJSON))
		}
	}

	for key, want := range expect.Changed {
		got, ok := changedByKey[key]
		if !ok {
			result.AddError(fmt.Sprintf("run %d: key %q was not declared this run", n, key))
			continue
		}
		if got != want {
			result.AddError(fmt.Sprintf("run %d: key %q: expected changed=%v, got %v", n, key, want, got))
		}
	}
}

func wireValues(list []wire.WidgetState) []WireValue {
	out := make([]WireValue, 0, len(list))
	for _, ws := range list {
		payload, err := ws.Payload()
		if err != nil {
			payload = nil
		}
		out = append(out, WireValue{ID: ws.ID, Kind: string(ws.Kind), Value: jsonify(payload)})
	}
	return out
}

// normalizeValue converts YAML-parsed values into the store's value
// domain: ints widen to int64, containers recurse.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

// jsonify converts a stored value into the canonical JSON value domain:
// times become RFC 3339 strings, bytes become base64.
func jsonify(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case int:
		return int64(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = jsonify(e)
		}
		return out
	case []int64:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = e
		}
		return out
	case []float64:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = e
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = jsonify(e)
		}
		return out
	default:
		return v
	}
}

func jsonifyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = jsonify(v)
	}
	return out
}
