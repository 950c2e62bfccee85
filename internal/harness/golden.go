package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/lucidrun/lucid/internal/wire"
)

// Snapshot captures a full scenario replay for golden comparison. All
// fields use canonical JSON serialization so byte comparison is
// deterministic.
type Snapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Runs         []RunSnapshot
}

// toCanonicalMap converts the snapshot to plain maps for the canonical
// marshaller, dropping zero-valued optional fields.
func (s *Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"run":  int64(event.Run),
		}
		if event.Key != "" {
			eventMap["key"] = event.Key
		}
		if event.ID != "" {
			eventMap["id"] = event.ID
		}
		if event.Control != "" {
			eventMap["control"] = event.Control
		}
		if event.Value != nil {
			eventMap["value"] = event.Value
		}
		if event.Type == "declare" {
			eventMap["changed"] = event.Changed
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		traceList[i] = eventMap
	}

	runList := make([]any, len(s.Runs))
	for i, run := range s.Runs {
		wireList := make([]any, len(run.Wire))
		for j, wv := range run.Wire {
			wireList[j] = map[string]any{
				"id":    wv.ID,
				"kind":  wv.Kind,
				"value": wv.Value,
			}
		}
		stateMap := make(map[string]any, len(run.State))
		for k, v := range run.State {
			stateMap[k] = v
		}
		runList[i] = map[string]any{
			"run":   int64(run.Run),
			"wire":  wireList,
			"state": stateMap,
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"runs":          runList,
	}
}

// RunWithGolden replays a scenario and compares the snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, h *Harness, scenario *Scenario) error {
	t.Helper()

	result, err := h.Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-obtained result against the golden
// file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Runs:         result.Runs,
	}

	data, err := wire.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
