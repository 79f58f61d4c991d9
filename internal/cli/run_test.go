package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mootikins/crucible-sub016/internal/store"
	"github.com/Mootikins/crucible-sub016/internal/testutil"
)

const graphYAML = `notes:
  - {path: index.md, title: Index}
  - {path: a.md, title: A}
  - {path: b.md, title: B, kind: person}
edges:
  - {source: index.md, target: a.md, type: wikilink}
  - {source: index.md, target: b.md, type: wikilink}
  - {source: a.md, target: b.md, type: embed}
`

// loadedDB writes graphYAML into a fresh database with the load command.
func loadedDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	graphFile := filepath.Join(dir, "graph.yaml")
	db := filepath.Join(dir, "notes.db")
	require.NoError(t, os.WriteFile(graphFile, []byte(graphYAML), 0o644))

	_, err := execute(t, NewLoadCommand(jsonOpts()), "--db", db, graphFile)
	require.NoError(t, err)
	return db
}

func TestLoadCommand(t *testing.T) {
	dir := t.TempDir()
	graphFile := filepath.Join(dir, "graph.yaml")
	db := filepath.Join(dir, "notes.db")
	require.NoError(t, os.WriteFile(graphFile, []byte(graphYAML), 0o644))

	out, err := execute(t, NewLoadCommand(jsonOpts()), "--db", db, graphFile)
	require.NoError(t, err)

	data, resp := decode[LoadOutput](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, LoadOutput{DB: db, Notes: 3, Edges: 3}, data)

	s, err := store.Open(db)
	require.NoError(t, err)
	defer s.Close()
	notes, err := s.CountNotes(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, notes)
	edges, err := s.CountEdges(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, edges)
}

func TestLoadCommand_Text(t *testing.T) {
	dir := t.TempDir()
	graphFile := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(graphFile, []byte(graphYAML), 0o644))

	out, err := execute(t, NewLoadCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(dir, "n.db"), graphFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 3 note(s), 3 edge(s)")
}

func TestLoadCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	unknownField := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(unknownField, []byte("notes:\n  - {path: a.md, title: A, color: red}\n"), 0o644))
	danglingEdge := filepath.Join(dir, "edge.yaml")
	require.NoError(t, os.WriteFile(danglingEdge, []byte("edges:\n  - {source: a.md, type: wikilink}\n"), 0o644))

	tests := []struct {
		name string
		file string
		code string
	}{
		{"missing file", filepath.Join(dir, "missing.yaml"), ErrCodeNotFound},
		{"unknown field", unknownField, ErrCodeGeneric},
		{"invalid edge", danglingEdge, ErrCodeWriteFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewLoadCommand(jsonOpts()), "--db", filepath.Join(dir, "n.db"), tt.file)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			_, resp := decode[any](t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestLoadCommand_RequiresDB(t *testing.T) {
	_, err := execute(t, NewLoadCommand(jsonOpts()), "graph.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestRunCommand_JSON(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, NewRunCommand(jsonOpts()), "--db", db,
		"MATCH (n {path:'index.md'})-[:wikilink]->(m) RETURN m.path AS path, m.title AS title")
	require.NoError(t, err)

	data, resp := decode[RunOutput](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cypher", data.Dialect)
	assert.Equal(t, []string{"path", "title"}, data.Columns)
	assert.Equal(t, [][]any{{"a.md", "A"}, {"b.md", "B"}}, data.Rows)
}

func TestRunCommand_Text(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "--db", db,
		"MATCH (n) WHERE n.path STARTS WITH 'a' RETURN n.path AS path, n.kind AS kind")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3, out)
	assert.Equal(t, []string{"path", "kind"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"a.md", "NULL"}, strings.Fields(lines[1]))
	assert.Equal(t, "(1 row(s))", lines[2])
}

func TestRunCommand_Params(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, NewRunCommand(jsonOpts()), "--db", db,
		"--param", "title=Index",
		"MATCH (n) WHERE n.title = $title RETURN n.path AS path")
	require.NoError(t, err)

	data, _ := decode[RunOutput](t, out)
	assert.Equal(t, [][]any{{"index.md"}}, data.Rows)
}

func TestRunCommand_Sugar(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, NewRunCommand(jsonOpts()), "--db", db, "SELECT outlinks FROM 'Index'")
	require.NoError(t, err)

	data, _ := decode[RunOutput](t, out)
	assert.Equal(t, "sql-sugar", data.Dialect)
	require.Contains(t, data.Columns, "path")
}

func TestRunCommand_Errors(t *testing.T) {
	db := loadedDB(t)

	tests := []struct {
		name     string
		args     []string
		code     string
		exitCode int
	}{
		{"missing db", []string{"--db", filepath.Join(t.TempDir(), "none.db"), "MATCH (n) RETURN n"}, ErrCodeNotFound, ExitCommandError},
		{"bad param", []string{"--db", db, "--param", "title", "MATCH (n) RETURN n"}, ErrCodeGeneric, ExitCommandError},
		{"missing param", []string{"--db", db, "MATCH (n) WHERE n.title = $title RETURN n"}, ErrCodeExecution, ExitFailure},
		{"unknown param", []string{"--db", db, "--param", "x=1", "MATCH (n) RETURN n"}, ErrCodeExecution, ExitFailure},
		{"syntax", []string{"--db", db, "MATCH (a)-[:x]->(a)"}, ErrCodeSyntax, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewRunCommand(jsonOpts()), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))

			_, resp := decode[any](t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRunCommand_ChainDepth(t *testing.T) {
	db := filepath.Join(t.TempDir(), "chain.db")
	s, err := store.Open(db)
	require.NoError(t, err)
	testutil.Chain(5).Load(t, s)
	require.NoError(t, s.Close())

	out, err := execute(t, NewRunCommand(jsonOpts()), "--db", db,
		"MATCH (a {path:'n0.md'})-[:wikilink*2..3]->(b) RETURN b.path AS path")
	require.NoError(t, err)

	data, _ := decode[RunOutput](t, out)
	assert.Equal(t, [][]any{{"n2.md"}, {"n3.md"}}, data.Rows)
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"title=Index", "$depth=3", "draft=false", "note=a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"title": "Index",
		"depth": int64(3),
		"draft": false,
		"note":  "a=b",
		"empty": "",
	}, params)

	params, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)

	_, err = parseParams([]string{"=x"})
	assert.ErrorContains(t, err, "want name=value")

	_, err = parseParams([]string{"a=1", "a=2"})
	assert.ErrorContains(t, err, "given twice")
}
