// Package harness runs query conformance scenarios.
//
// A scenario loads a small note graph into an in-memory store, compiles
// each case's query, executes sqlite cases against the store, and checks
// the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config: eav.cue            # optional, relative to the scenario file
//	graph:
//	  notes:
//	    - { path: index.md, title: Index }
//	    - { path: a.md, title: A, kind: person }
//	  edges:
//	    - { source: index.md, target: a.md, type: wikilink }
//	cases:
//	  - name: outlinks
//	    query: SELECT outlinks FROM 'Index'
//	    expect: { dialect: sql-sugar }
//	  - name: deep
//	    query: MATCH (a)-[:wikilink*2..4]->(b) RETURN b
//	    backend: surrealdb
//	    expect: { error: unsupported }
//	assertions:
//	  - type: paths
//	    case: outlinks
//	    paths: [a.md]
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - paths: the path column equals the list, in result order
//   - row_count: the case returned exactly N rows
//   - text_contains: the rendered query text contains a substring
//   - same_rows: several cases returned identical rows
//
// # Deterministic Testing
//
// Each scenario runs in its own in-memory SQLite database, and the store
// sorts result rows by canonical JSON, so snapshots are byte-identical
// across runs and can be compared against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/links.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
