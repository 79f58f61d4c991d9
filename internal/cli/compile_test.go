package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outlinksQuery = "MATCH (n {path:'index.md'})-[:wikilink]->(m) RETURN m.path AS path"

func TestCompileCommand_JSON(t *testing.T) {
	out, err := execute(t, NewCompileCommand(jsonOpts()), outlinksQuery)
	require.NoError(t, err)

	data, resp := decode[CompileOutput](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.Equal(t, "cypher", data.Dialect)
	assert.Equal(t, []string{"cypher"}, data.Attempted)
	assert.Equal(t, "sqlite", data.Backend)
	assert.Contains(t, data.Text, `JOIN "edges"`)
	assert.NotContains(t, data.Text, "index.md", "literals are bound, not inlined")
	assert.Equal(t, "index.md", data.Bindings["n_path_0"])
	assert.Equal(t, "wikilink", data.Bindings["e0_type_0"])
	assert.Empty(t, data.Parameters)
	assert.Len(t, data.Fingerprint, 64)
}

func TestCompileCommand_Text(t *testing.T) {
	opts := &RootOptions{Format: "text"}
	out, err := execute(t, NewCompileCommand(opts), "MATCH (n) WHERE n.title = $title RETURN n.path AS path")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "-- dialect: cypher, backend: sqlite\n"), out)
	assert.Contains(t, out, "Parameters: $title")
}

func TestCompileCommand_Deterministic(t *testing.T) {
	first, err := execute(t, NewCompileCommand(jsonOpts()), outlinksQuery)
	require.NoError(t, err)
	second, err := execute(t, NewCompileCommand(jsonOpts()), outlinksQuery)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompileCommand_Backend(t *testing.T) {
	out, err := execute(t, NewCompileCommand(jsonOpts()), "--backend", "surrealdb", "MATCH (a {title:'Index'})-[:wikilink]->(b) RETURN b")
	require.NoError(t, err)

	data, _ := decode[CompileOutput](t, out)
	assert.Equal(t, "surrealdb", data.Backend)
	assert.Equal(t, "SELECT * FROM notes WHERE count(<-\u27e8wikilink\u27e9<-(notes WHERE title = $a_title_0)) > 0", data.Text)
	assert.Equal(t, "Index", data.Bindings["a_title_0"])
}

func TestCompileCommand_Stdin(t *testing.T) {
	cmd := NewCompileCommand(jsonOpts())
	cmd.SetIn(strings.NewReader("SELECT outlinks FROM 'Index'\n"))
	out, err := execute(t, cmd, "-")
	require.NoError(t, err)

	data, _ := decode[CompileOutput](t, out)
	assert.Equal(t, "sql-sugar", data.Dialect)
}

func TestCompileCommand_FileAndOutput(t *testing.T) {
	dir := t.TempDir()
	queryFile := filepath.Join(dir, "q.txt")
	outFile := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(queryFile, []byte(outlinksQuery), 0o644))

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), "--file", queryFile, "--output", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote query text to "+outFile)

	written, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(written), "SELECT"))
	assert.True(t, strings.HasSuffix(string(written), "\n"))
}

func TestCompileCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	badConfig := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(badConfig, []byte("bogus_field: 1\n"), 0o644))

	tests := []struct {
		name     string
		config   string
		args     []string
		code     string
		exitCode int
		kind     string
	}{
		{"syntax", "", []string{"MATCH (a)-[:x]->(a)"}, ErrCodeSyntax, ExitFailure, "syntax"},
		{"unrecognized", "", []string{"DELETE everything"}, ErrCodeUnrecognized, ExitFailure, "unrecognized"},
		{"unsupported", "", []string{"--backend", "surrealdb", "MATCH (a)-[:wikilink*2..4]->(b) RETURN b"}, ErrCodeUnsupported, ExitFailure, "unsupported"},
		{"no query", "", nil, ErrCodeNotFound, ExitCommandError, ""},
		{"missing file", "", []string{"--file", filepath.Join(dir, "missing.txt")}, ErrCodeNotFound, ExitCommandError, ""},
		{"unknown backend", "", []string{"--backend", "neo4j", "MATCH (n) RETURN n"}, ErrCodeGeneric, ExitCommandError, ""},
		{"invalid config", badConfig, []string{"MATCH (n) RETURN n"}, ErrCodeConfig, ExitCommandError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := jsonOpts()
			opts.Config = tt.config
			out, err := execute(t, NewCompileCommand(opts), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.True(t, IsReported(err))

			details, resp := decode[any](t, out)
			assert.Nil(t, details)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.kind != "" {
				assert.Equal(t, map[string]any{"kind": tt.kind}, resp.Error.Details)
			}
		})
	}
}

func TestCompileCommand_ConfigBackend(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "c.cue")
	require.NoError(t, os.WriteFile(cfgFile, []byte("backend: \"surrealdb\"\n"), 0o644))

	opts := jsonOpts()
	opts.Config = cfgFile
	out, err := execute(t, NewCompileCommand(opts), "MATCH (n) RETURN n")
	require.NoError(t, err)

	data, _ := decode[CompileOutput](t, out)
	assert.Equal(t, "surrealdb", data.Backend)
}

func TestReadQuery(t *testing.T) {
	q, err := readQuery([]string{"  MATCH (n) RETURN n \n"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n) RETURN n", q)

	_, err = readQuery([]string{"x"}, "q.txt", nil)
	assert.ErrorContains(t, err, "not both")

	_, err = readQuery(nil, "", nil)
	assert.ErrorContains(t, err, "no query given")
}
