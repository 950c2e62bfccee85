package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lucidrun/lucid/internal/wire"
)

// Scenario defines a session replay: a sequence of script runs with
// client-delivered widget events, declaration and write steps, and
// optional expectations on the reconciled state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Runs are executed in order against one session.
	Runs []RunSpec `yaml:"runs"`
}

// RunSpec is one script run.
type RunSpec struct {
	// Fragments lists the partial-rerun scopes that executed. Absent
	// means a full rerun; present but empty means a fragment run that
	// executed no scope.
	Fragments *[]string `yaml:"fragments,omitempty"`

	// Events is the widget state delivered by the client ahead of the
	// run.
	Events []EventSpec `yaml:"events,omitempty"`

	// Steps is the script body: declarations and state operations.
	Steps []Step `yaml:"steps"`

	// Abandon marks a run that failed partway: the staleness sweep and
	// compaction are skipped, leaving pending layers in place.
	Abandon bool `yaml:"abandon,omitempty"`

	// Expect validates the state after the run completes.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// EventSpec is one client-delivered widget value.
type EventSpec struct {
	ID    string    `yaml:"id"`
	Kind  wire.Kind `yaml:"kind"`
	Value any       `yaml:"value"`
}

// Step is one script operation. Exactly one of the operation fields is
// set.
type Step struct {
	// Declare registers a control from the catalog.
	Declare *DeclareStep `yaml:"declare,omitempty"`

	// Set records a direct write.
	Set *SetStep `yaml:"set,omitempty"`

	// Delete removes a key from the session.
	Delete string `yaml:"delete,omitempty"`

	// Form declares a form container, write-protecting its identifier.
	Form string `yaml:"form,omitempty"`
}

// DeclareStep registers one control instance.
type DeclareStep struct {
	// Control names a catalog entry.
	Control string `yaml:"control"`

	// Key is the caller key. Empty declares an orphan widget.
	Key string `yaml:"key,omitempty"`

	// ID fixes the widget identifier. Empty mints a generated one.
	ID string `yaml:"id,omitempty"`

	// Fragment scopes the control to a partial-rerun scope.
	Fragment string `yaml:"fragment,omitempty"`
}

// SetStep records a direct write.
type SetStep struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// ExpectClause validates state after a run.
type ExpectClause struct {
	// State contains expected key/value pairs. Subset match against the
	// caller-visible state; only specified keys are validated.
	State map[string]any `yaml:"state,omitempty"`

	// Changed contains expected push-needed flags by declared key.
	Changed map[string]bool `yaml:"changed,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Returns an error
// if the file doesn't exist, is malformed, contains unknown fields
// (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	for i, run := range s.Runs {
		for j, ev := range run.Events {
			if ev.ID == "" {
				return fmt.Errorf("runs[%d].events[%d]: id is required", i, j)
			}
			if !ev.Kind.Valid() {
				return fmt.Errorf("runs[%d].events[%d]: unsupported value kind %q", i, j, ev.Kind)
			}
		}
		for j, step := range run.Steps {
			if err := validateStep(i, j, &step); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateStep checks that a step names exactly one operation.
func validateStep(run, index int, s *Step) error {
	ops := 0
	if s.Declare != nil {
		ops++
		if s.Declare.Control == "" {
			return fmt.Errorf("runs[%d].steps[%d].declare: control is required", run, index)
		}
	}
	if s.Set != nil {
		ops++
		if s.Set.Key == "" {
			return fmt.Errorf("runs[%d].steps[%d].set: key is required", run, index)
		}
	}
	if s.Delete != "" {
		ops++
	}
	if s.Form != "" {
		ops++
	}
	if ops != 1 {
		return fmt.Errorf("runs[%d].steps[%d]: exactly one of declare, set, delete, form is required", run, index)
	}
	return nil
}
