package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tokensale/internal/ir"
)

// TraceSnapshot is the golden file layout: the scenario name and its full
// trace.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// canonical lowers an entry to the plain maps ir.MarshalCanonical accepts.
// Optional keys are left out rather than written empty.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{"type": e.Type, "step": e.Step}
	switch e.Type {
	case EntryOp:
		m["op"] = e.Op
		m["from"] = e.From
		if len(e.Args) > 0 {
			args := make(map[string]any, len(e.Args))
			for k, v := range e.Args {
				args[k] = v
			}
			m["args"] = args
		}
		if e.Error != "" {
			m["error"] = e.Error
		}
	case EntryEvent:
		m["seq"] = e.Seq
		m["kind"] = e.Kind
		if e.Asset != "" {
			m["asset"] = e.Asset
		}
		fields := e.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		m["fields"] = fields
	}
	return m
}

// MarshalTrace renders a scenario's trace as canonical JSON, the golden
// file format.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	entries := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		entries[i] = e.canonical()
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         entries,
	})
}

// RunWithGolden runs scenario and checks its trace against
// testdata/golden/<name>.golden. Pass -update to rewrite the file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden checks an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}
	goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenarioName, data)
	return nil
}
