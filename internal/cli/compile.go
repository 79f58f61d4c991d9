package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/compiler"
	"github.com/Mootikins/crucible-sub016/internal/config"
	"github.com/Mootikins/crucible-sub016/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	File    string // read the query from a file, "-" for stdin
	Backend string // overrides the configured backend
	Output  string // output file path
}

// CompileOutput is the JSON payload of a successful compile.
type CompileOutput struct {
	Dialect     string         `json:"dialect"`
	Attempted   []string       `json:"attempted"`
	Backend     string         `json:"backend"`
	Text        string         `json:"text"`
	Bindings    map[string]any `json:"bindings"`
	Parameters  []string       `json:"parameters"`
	Fingerprint string         `json:"fingerprint"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [query]",
		Short: "Compile a graph query to backend query text",
		Long: `Compile a graph query written in any supported dialect to SQLite SQL or
SurrealQL. The dialect is detected; the rendered text and its parameter
bindings are printed.

The query is read from the argument, from --file, or from stdin when the
argument is "-".`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")
	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", "", "target backend (sqlite|surrealdb)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the rendered text to a file")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		TraceID:   opts.traceID(),
	}

	query, err := readQuery(args, opts.File, cmd.InOrStdin())
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, err)
	}

	cfg, b, err := resolveBackend(opts.RootOptions, opts.Backend)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrorCode(err), err)
	}
	c, err := opts.newCompiler(cfg)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, err)
	}

	formatter.VerboseLog("Compiling for %s", b)
	result, err := c.Compile(query, b, cfg.BackendConfig(b))
	if err != nil {
		return outputCompileError(formatter, err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(result.Rendered.Text+"\n"), 0o644); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Errorf("writing output file: %w", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// readQuery returns the query from args, file, or stdin.
func readQuery(args []string, file string, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("pass the query as an argument or with --file, not both")
	case file == "-" || (file == "" && len(args) == 1 && args[0] == "-"):
		data, err = io.ReadAll(stdin)
	case file != "":
		data, err = os.ReadFile(file)
	case len(args) == 1:
		data = []byte(args[0])
	default:
		return "", fmt.Errorf("no query given")
	}
	if err != nil {
		return "", fmt.Errorf("reading query: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// resolveBackend loads the configuration and picks the backend, preferring
// name over the configured one.
func resolveBackend(opts *RootOptions, name string) (*config.Config, backend.Backend, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		return cfg, cfg.Backend, nil
	}
	b, err := backend.ParseBackend(name)
	if err != nil {
		return nil, "", err
	}
	return cfg, b, nil
}

func newCompileOutput(b backend.Backend, result *compiler.Result) CompileOutput {
	attempted := make([]string, len(result.Attempted))
	for i, d := range result.Attempted {
		attempted[i] = string(d)
	}
	params := result.Rendered.Parameters
	if params == nil {
		params = []string{}
	}
	return CompileOutput{
		Dialect:     string(result.Dialect),
		Attempted:   attempted,
		Backend:     string(b),
		Text:        result.Rendered.Text,
		Bindings:    result.Rendered.Bindings,
		Parameters:  params,
		Fingerprint: result.Fingerprint,
	}
}

// outputCompileSuccess prints the rendered text and bindings.
func outputCompileSuccess(formatter *OutputFormatter, result *compiler.Result, outputFile string) error {
	out := newCompileOutput(result.Rendered.Backend, result)
	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "-- dialect: %s, backend: %s\n", out.Dialect, out.Backend)
	fmt.Fprintln(w, out.Text)
	if len(out.Bindings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Bindings:")
		for _, k := range ir.SortedKeys(out.Bindings) {
			fmt.Fprintf(w, "  %s = %#v\n", k, out.Bindings[k])
		}
	}
	if len(out.Parameters) > 0 {
		fmt.Fprintf(w, "\nParameters: $%s\n", strings.Join(out.Parameters, ", $"))
	}
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote query text to %s\n", outputFile)
	}
	return nil
}

// outputCompileError reports a rejected query. Rejections exit with
// ExitFailure; the error code names the failure kind.
func outputCompileError(formatter *OutputFormatter, err error) error {
	details := map[string]any{"kind": string(compiler.KindOf(err))}
	return formatter.report(ExitFailure, ErrorCode(err), err, details)
}
