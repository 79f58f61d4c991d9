package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/Mootikins/crucible-sub016/internal/ir"
)

// Snapshot captures everything a scenario produced. It serializes to
// canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Cases        []CaseResult `json:"cases"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization. This is required because ir.MarshalCanonical only handles
// IR types and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	cases := make([]any, len(s.Cases))
	for i, cr := range s.Cases {
		m := map[string]any{
			"name":    cr.Name,
			"backend": cr.Backend,
		}
		if cr.Dialect != "" {
			m["dialect"] = cr.Dialect
		}
		if cr.Error != "" {
			m["error"] = cr.Error
			m["message"] = cr.Message
		}
		if cr.Text != "" {
			m["text"] = cr.Text
		}
		if len(cr.Bindings) > 0 {
			m["bindings"] = cr.Bindings
		}
		if cr.Rows != nil {
			columns := make([]any, len(cr.Rows.Columns))
			for j, c := range cr.Rows.Columns {
				columns[j] = c
			}
			m["columns"] = columns
			m["rows"] = rowsValue(&cr)
		}
		cases[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"cases":         cases,
	}
}

// Marshal returns the snapshot's canonical JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass; returns an error if
// scenario execution fails. Test failure (via goldie) occurs if the
// snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Cases: result.Cases}
	data, err := snapshot.Marshal()
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
