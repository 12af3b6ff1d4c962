package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted session against the boundary: an ordered list
// of calls with optional per-call expectations, plus end-state checks.
// The runner boots a fresh runtime per scenario, so scenarios never see
// each other's state.
type Scenario struct {
	// Name uniquely identifies the scenario; it is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Limit caps the runtime's allocation ledger. Absent means
	// unlimited; an explicit 0 admits nothing, so even init fails.
	Limit *int64 `yaml:"limit,omitempty"`

	// Session is an optional fixed session token, embedded in the
	// trace snapshot so golden files stay byte-identical.
	Session string `yaml:"session,omitempty"`

	// Steps are the boundary calls, executed in order between the
	// implicit init and shutdown.
	Steps []Step `yaml:"steps"`

	// Checks run against the end state: the live store just before
	// shutdown, the ledger just after.
	Checks []Check `yaml:"checks,omitempty"`
}

// Step is one boundary call. Which fields matter depends on op:
//
//	make      name, access, type, literal
//	mod       name, type, literal
//	bind      name, access, value
//	remove    name
//	get_type  name
//	get_value name, capacity
type Step struct {
	Op      string `yaml:"op"`
	Name    string `yaml:"name,omitempty"`
	Access  string `yaml:"access,omitempty"`
	Type    string `yaml:"type,omitempty"`
	Literal string `yaml:"literal,omitempty"`

	// Capacity sizes the caller buffer for get_value.
	Capacity int `yaml:"capacity,omitempty"`

	// Value is the composite tree a bind step constructs.
	Value any `yaml:"value,omitempty"`

	// Expect validates the call's outcome. Nil means the outcome is
	// recorded in the trace but not judged.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect pins a step's status and, for get_value, its rendered output.
type Expect struct {
	Status *int64  `yaml:"status,omitempty"`
	Output *string `yaml:"output,omitempty"`
}

// Check is one end-state validation.
type Check struct {
	Check string `yaml:"check"`

	// Name selects the variable for type_is and renders_as.
	Name string `yaml:"name,omitempty"`

	// Count is the expected variable count for store_count.
	Count *int `yaml:"count,omitempty"`

	// Type is the expected kind name for type_is.
	Type string `yaml:"type,omitempty"`

	// Output is the expected rendering for renders_as.
	Output string `yaml:"output,omitempty"`
}

// Step op names.
const (
	StepMake     = "make"
	StepMod      = "mod"
	StepBind     = "bind"
	StepRemove   = "remove"
	StepGetType  = "get_type"
	StepGetValue = "get_value"
)

// Check type names.
const (
	CheckNoLeak     = "no_leak"
	CheckStoreCount = "store_count"
	CheckTypeIs     = "type_is"
	CheckRendersAs  = "renders_as"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping a step.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and per-op argument shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Limit != nil && *s.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, check := range s.Checks {
		if err := validateCheck(i, &check); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	switch step.Op {
	case StepMake:
		if step.Name == "" || step.Access == "" || step.Type == "" {
			return fmt.Errorf("steps[%d]: make requires name, access and type", index)
		}
	case StepMod:
		if step.Name == "" || step.Type == "" {
			return fmt.Errorf("steps[%d]: mod requires name and type", index)
		}
	case StepBind:
		if step.Name == "" || step.Access == "" {
			return fmt.Errorf("steps[%d]: bind requires name and access", index)
		}
		if step.Value == nil {
			return fmt.Errorf("steps[%d]: bind requires value", index)
		}
	case StepRemove, StepGetType:
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: %s requires name", index, step.Op)
		}
	case StepGetValue:
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: get_value requires name", index)
		}
		if step.Capacity <= 0 {
			return fmt.Errorf("steps[%d]: get_value requires a positive capacity", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Expect != nil && step.Expect.Status == nil && step.Expect.Output == nil {
		return fmt.Errorf("steps[%d]: expect must set status or output", index)
	}
	if step.Expect != nil && step.Expect.Output != nil && step.Op != StepGetValue {
		return fmt.Errorf("steps[%d]: expect.output only applies to get_value", index)
	}
	return nil
}

func validateCheck(index int, check *Check) error {
	switch check.Check {
	case CheckNoLeak:
		// No arguments.
	case CheckStoreCount:
		if check.Count == nil {
			return fmt.Errorf("checks[%d]: store_count requires count", index)
		}
	case CheckTypeIs:
		if check.Name == "" || check.Type == "" {
			return fmt.Errorf("checks[%d]: type_is requires name and type", index)
		}
	case CheckRendersAs:
		if check.Name == "" {
			return fmt.Errorf("checks[%d]: renders_as requires name", index)
		}
	case "":
		return fmt.Errorf("checks[%d]: check is required", index)
	default:
		return fmt.Errorf("checks[%d]: unknown check %q", index, check.Check)
	}
	return nil
}
