package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tokensale/internal/config"
	"github.com/roach88/tokensale/internal/engine"
)

// Scenario defines a conformance test scenario: a deployment, a sequence
// of operations with their expected outcomes, and assertions over the
// resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides fields of config.Default().
	Config *config.Config `yaml:"config,omitempty"`

	// Setup runs before the traced steps. Every setup step must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps are the traced operations.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one engine operation.
type Step struct {
	// Op is the operation name (engine.OpCreate, engine.OpBuy, ...).
	Op string `yaml:"op"`

	// From is the calling account.
	From string `yaml:"from"`

	// Args holds the operation arguments as strings.
	Args map[string]string `yaml:"args,omitempty"`

	// As names the asset created by a create step.
	As string `yaml:"as,omitempty"`

	// Expect checks the outcome. Nil means the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected engine error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Events lists the event kinds the step must emit, in order.
	// Only checked when set.
	Events []string `yaml:"events,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event of Kind whose fields include Fields
	// - "trace_order": Kinds appear in order
	// - "trace_count": Kind appears exactly Count times
	// - "final_state": query Table and verify expected values
	// - "invariants": ledger invariants and store replay agree
	Type string `yaml:"type"`

	// Kind is the event kind (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Fields are expected rendered event fields (trace_contains).
	// Subset match.
	Fields map[string]interface{} `yaml:"fields,omitempty"`

	// Kinds is the expected event order (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the store table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (final_state).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (final_state). Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertInvariants    = "invariants"
)

// knownOps lists the operations a step may name.
var knownOps = map[string]bool{
	engine.OpCreate:            true,
	engine.OpBuy:               true,
	engine.OpDeposit:           true,
	engine.OpWithdraw:          true,
	engine.OpTransfer:          true,
	engine.OpTransferOwnership: true,
}

// requiredArgs lists the arguments each operation needs.
var requiredArgs = map[string][]string{
	engine.OpCreate:            {"name", "symbol"},
	engine.OpBuy:               {"asset", "amount"},
	engine.OpDeposit:           {"asset"},
	engine.OpWithdraw:          {"amount"},
	engine.OpTransfer:          {"asset", "to", "amount"},
	engine.OpTransferOwnership: {"to"},
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
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

// validateScenario checks that required fields are present and valid.
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
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil && step.Expect.Error != "" {
			return fmt.Errorf("setup[%d]: setup steps cannot expect an error", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(fmt.Sprintf("steps[%d]", i), step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where string, step Step) error {
	if !knownOps[step.Op] {
		return fmt.Errorf("%s: unknown op %q", where, step.Op)
	}
	if step.From == "" {
		return fmt.Errorf("%s: from is required", where)
	}
	for _, arg := range requiredArgs[step.Op] {
		if step.Args[arg] == "" {
			return fmt.Errorf("%s: %s requires arg %q", where, step.Op, arg)
		}
	}
	if step.As != "" && step.Op != engine.OpCreate {
		return fmt.Errorf("%s: as is only valid on %s", where, engine.OpCreate)
	}
	if step.Expect != nil && step.Expect.Error != "" && !isErrorCode(step.Expect.Error) {
		return fmt.Errorf("%s: unknown error code %q", where, step.Expect.Error)
	}
	return nil
}

func isErrorCode(code string) bool {
	for _, c := range engine.Codes() {
		if string(c) == code {
			return true
		}
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertInvariants:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
