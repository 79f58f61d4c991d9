package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/compiler"
	"github.com/Mootikins/crucible-sub016/internal/store"
)

// Scenario is a conformance scenario: a note graph, queries run against it,
// and assertions over the results.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an optional CUE configuration file. Relative paths are
	// resolved against the scenario file's directory by LoadScenario.
	Config string `yaml:"config,omitempty"`

	// Graph is loaded into a fresh in-memory store before the cases run.
	Graph Graph `yaml:"graph"`

	// Cases are compiled and, for the sqlite backend, executed in order.
	Cases []Case `yaml:"cases"`

	// Assertions validate case results after all cases have run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Graph is the notes and edges a scenario runs against.
type Graph struct {
	Notes []store.Note `yaml:"notes"`
	Edges []store.Edge `yaml:"edges,omitempty"`
}

// Case is one query.
type Case struct {
	// Name identifies the case within the scenario.
	Name string `yaml:"name"`

	// Query is the query text, in any dialect.
	Query string `yaml:"query"`

	// Backend selects the renderer. Defaults to the configured backend.
	Backend string `yaml:"backend,omitempty"`

	// Params supplies values for $name placeholders.
	Params map[string]any `yaml:"params,omitempty"`

	// CompileOnly skips execution of sqlite cases, for configurations
	// whose schema differs from the store's.
	CompileOnly bool `yaml:"compile_only,omitempty"`

	// Expect checks the compile outcome. If nil, the case must compile.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected compile outcome.
type ExpectClause struct {
	// Dialect is the dialect expected to accept the query.
	Dialect string `yaml:"dialect,omitempty"`

	// Error is the expected failure kind: syntax, unrecognized,
	// unsupported, render or execute. Empty means the case must succeed.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates one or more case results.
type Assertion struct {
	// Type specifies the assertion type:
	// - "paths": the path column equals Paths, in result order
	// - "row_count": the case returned exactly Count rows
	// - "text_contains": the rendered text contains Text
	// - "same_rows": every case in Cases returned identical rows
	Type string `yaml:"type"`

	// Case names the case under test (all types but same_rows).
	Case string `yaml:"case,omitempty"`

	// Paths are the expected path values (used by paths).
	Paths []string `yaml:"paths,omitempty"`

	// Count is the expected number of rows (used by row_count).
	Count int `yaml:"count,omitempty"`

	// Text is the expected substring (used by text_contains).
	Text string `yaml:"text,omitempty"`

	// Cases lists the cases compared by same_rows.
	Cases []string `yaml:"cases,omitempty"`
}

// Assertion type constants.
const (
	AssertPaths        = "paths"
	AssertRowCount     = "row_count"
	AssertTextContains = "text_contains"
	AssertSameRows     = "same_rows"
)

// KindExecute marks a case that compiled but failed against the store.
const KindExecute compiler.Kind = "execute"

var errorKinds = []compiler.Kind{
	compiler.KindSyntax,
	compiler.KindUnrecognized,
	compiler.KindUnsupported,
	compiler.KindRender,
	KindExecute,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Config paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
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
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for i, n := range s.Graph.Notes {
		if n.Path == "" {
			return fmt.Errorf("graph.notes[%d]: path is required", i)
		}
	}
	for i, e := range s.Graph.Edges {
		if e.Source == "" || e.Target == "" || e.Type == "" {
			return fmt.Errorf("graph.edges[%d]: source, target and type are required", i)
		}
	}

	names := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate name %q", i, c.Name)
		}
		names[c.Name] = true
		if c.Query == "" {
			return fmt.Errorf("cases[%d]: query is required", i)
		}
		if c.Backend != "" {
			if _, err := backend.ParseBackend(c.Backend); err != nil {
				return fmt.Errorf("cases[%d]: %w", i, err)
			}
		}
		if c.Expect != nil && c.Expect.Error != "" && !validKind(c.Expect.Error) {
			return fmt.Errorf("cases[%d].expect: unknown error kind %q", i, c.Expect.Error)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, names); err != nil {
			return err
		}
	}
	return nil
}

func validKind(k string) bool {
	for _, kind := range errorKinds {
		if string(kind) == k {
			return true
		}
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, cases map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPaths, AssertRowCount, AssertTextContains:
		if a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for %s", index, a.Type)
		}
		if !cases[a.Case] {
			return fmt.Errorf("assertions[%d]: unknown case %q", index, a.Case)
		}
		if a.Type == AssertRowCount && a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
		if a.Type == AssertTextContains && a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for text_contains", index)
		}
	case AssertSameRows:
		if len(a.Cases) < 2 {
			return fmt.Errorf("assertions[%d]: same_rows needs at least two cases", index)
		}
		for _, name := range a.Cases {
			if !cases[name] {
				return fmt.Errorf("assertions[%d]: unknown case %q", index, name)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
