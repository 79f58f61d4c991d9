package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DB     string   // database path
	File   string   // read the query from a file, "-" for stdin
	Params []string // key=value pairs
}

// RunOutput is the JSON payload of a successful run.
type RunOutput struct {
	Dialect     string   `json:"dialect"`
	Fingerprint string   `json:"fingerprint"`
	Columns     []string `json:"columns"`
	Rows        [][]any  `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Compile a query and run it against a notes database",
		Long: `Compile a graph query for SQLite and execute it against a notes database.
Rows are printed sorted, so output is deterministic.

Values for $name placeholders are passed with --param name=value. Values
that parse as integers are bound as integers, true and false as booleans,
anything else as a string.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database path (required)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "parameter value as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRun(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		TraceID:   opts.traceID(),
	}

	query, err := readQuery(args, opts.File, cmd.InOrStdin())
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, err)
	}
	params, err := parseParams(opts.Params)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}
	if _, err := os.Stat(opts.DB); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("database not found: %s", opts.DB))
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrorCode(err), err)
	}
	c, err := opts.newCompiler(cfg)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, err)
	}

	result, err := c.Compile(query, backend.SQLite, cfg.BackendConfig(backend.SQLite))
	if err != nil {
		return outputCompileError(formatter, err)
	}
	formatter.VerboseLog("Compiled %s query:\n%s", result.Dialect, result.Rendered.Text)

	s, err := store.Open(opts.DB)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}
	defer s.Close()

	rows, err := s.Execute(cmd.Context(), result.Rendered, params)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeExecution, err)
	}
	opts.Logger().Debug("query executed", "dialect", result.Dialect, "rows", len(rows.Values))

	if formatter.Format == "json" {
		return formatter.Success(RunOutput{
			Dialect:     string(result.Dialect),
			Fingerprint: result.Fingerprint,
			Columns:     rows.Columns,
			Rows:        rows.Values,
		})
	}
	return outputRows(formatter, rows)
}

// parseParams parses name=value pairs. A leading $ on the name is dropped.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimPrefix(name, "$")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: want name=value", pair)
		}
		if _, dup := params[name]; dup {
			return nil, fmt.Errorf("parameter %q given twice", name)
		}
		params[name] = paramValue(value)
	}
	return params, nil
}

func paramValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// outputRows prints rows as an aligned table followed by a row count.
func outputRows(formatter *OutputFormatter, rows *store.Rows) error {
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rows.Columns, "\t"))
	for _, row := range rows.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "(%d row(s))\n", len(rows.Values))
	return nil
}
