package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mootikins/crucible-sub016/internal/testutil"
)

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func jsonOpts() *RootOptions {
	return &RootOptions{Format: "json", IDGenerator: testutil.NewFixedIDGenerator("trace-1")}
}

// decode unmarshals a CLI response whose data has type T.
func decode[T any](t *testing.T, out string) (T, CLIResponse) {
	t.Helper()
	var envelope struct {
		CLIResponse
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &envelope), out)
	return envelope.Data, envelope.CLIResponse
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "graphq", cmd.Use)
	assert.Contains(t, cmd.Long, "SurrealQL")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "dialects", "load", "run", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	for name, short := range map[string]string{"output": "o", "backend": "b", "file": "f"} {
		flag := compileCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, short, flag.Shorthand)
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	dbFlag := runCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	// --db is required, so default is empty
	assert.Equal(t, "", dbFlag.DefValue)

	paramFlag := runCmd.Flags().Lookup("param")
	require.NotNil(t, paramFlag)
	assert.Equal(t, "p", paramFlag.Shorthand)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	_, err := execute(t, cmd, "--format", "invalid", "compile", "MATCH (n) RETURN n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.False(t, IsReported(err))
}

func TestVerboseLogsToStderr(t *testing.T) {
	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"-v", "--format", "json", "compile", "MATCH (n) RETURN n"})

	require.NoError(t, cmd.Execute())

	out, resp := decode[CompileOutput](t, stdout.String())
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cypher", out.Dialect)
	assert.Len(t, resp.TraceID, 36)
	assert.Contains(t, stderr.String(), "compiled query")
	assert.Contains(t, stderr.String(), "level=DEBUG")
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "version nibble")
}
