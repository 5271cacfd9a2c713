package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a concrete simulation of a built-in application: initial
// resource values, a schedule of activations, and assertions over the
// resulting trace and final state.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// App is the built-in application whose task bodies run.
	App string `yaml:"app"`

	// Spec optionally replaces the application's declaration with the CUE
	// package in this directory, relative to the scenario file.
	Spec string `yaml:"spec,omitempty"`

	// Values overrides initial resource values by name.
	Values map[string]uint32 `yaml:"values,omitempty"`

	// MaxCycles bounds the run. Zero uses the harness default.
	MaxCycles int64 `yaml:"max_cycles,omitempty"`

	// Schedule injects activations at cycle times.
	Schedule []ScheduleStep `yaml:"schedule"`

	Assertions []Assertion `yaml:"assertions"`
}

// ScheduleStep activates Task when the cycle counter reaches At.
type ScheduleStep struct {
	At   int64  `yaml:"at"`
	Task string `yaml:"task"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of trace_order, preempts, never_concurrent, final_value
	// and max_threshold.
	Type string `yaml:"type"`

	// Events are trace events in "kind task [resource]" form that must
	// appear in this order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Task preempts Preempted at least once (preempts).
	Task      string `yaml:"task,omitempty"`
	Preempted string `yaml:"preempted,omitempty"`

	// Tasks are never active at the same time (never_concurrent).
	Tasks []string `yaml:"tasks,omitempty"`

	// Resource is the resource of final_value, or the resource whose
	// claims never overlap (never_concurrent).
	Resource string `yaml:"resource,omitempty"`

	// Value is the expected final value (final_value) or the highest
	// allowed level (max_threshold).
	Value *uint32 `yaml:"value,omitempty"`
}

// Assertion types.
const (
	AssertTraceOrder      = "trace_order"
	AssertPreempts        = "preempts"
	AssertNeverConcurrent = "never_concurrent"
	AssertFinalValue      = "final_value"
	AssertMaxThreshold    = "max_threshold"
)

// LoadScenario reads a scenario file. Unknown fields are rejected. A
// relative Spec is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Spec != "" && !filepath.IsAbs(s.Spec) {
		s.Spec = filepath.Join(filepath.Dir(path), s.Spec)
	}
	return s, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.App == "" {
		return fmt.Errorf("app is required")
	}
	if len(s.Schedule) == 0 {
		return fmt.Errorf("schedule list is required and must be non-empty")
	}
	if s.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be non-negative")
	}
	for i, step := range s.Schedule {
		if step.Task == "" {
			return fmt.Errorf("schedule[%d]: task is required", i)
		}
		if step.At < 0 {
			return fmt.Errorf("schedule[%d]: at must be non-negative", i)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertPreempts:
		if a.Task == "" || a.Preempted == "" {
			return fmt.Errorf("assertions[%d]: task and preempted are required for preempts", index)
		}
	case AssertNeverConcurrent:
		if a.Resource == "" && len(a.Tasks) < 2 {
			return fmt.Errorf("assertions[%d]: resource or at least two tasks are required for never_concurrent", index)
		}
	case AssertFinalValue:
		if a.Resource == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: resource and value are required for final_value", index)
		}
	case AssertMaxThreshold:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for max_threshold", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
