package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Mootikins/crucible-sub016/internal/compiler"
	"github.com/Mootikins/crucible-sub016/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // CUE config file, empty for defaults

	// IDGenerator produces trace IDs for JSON responses (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator TraceIDGenerator

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the graphq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "graphq",
		Short: "graphq - graph queries over a notes database",
		Long: `Compile graph queries written in Cypher, SQL/PGQ patterns, SQL shorthand
or pipelines into SQLite SQL or SurrealQL, and run them against a notes
database.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.setupLogger(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "CUE configuration file")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewDialectsCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// setupLogger installs a text handler on w at Info, or Debug with --verbose.
func (o *RootOptions) setupLogger(w io.Writer) {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)
}

// Logger returns the command logger. Commands built without the root
// command log to io.Discard.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// loadConfig returns the --config file's configuration, or the defaults.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.Config == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, err
	}
	o.Logger().Debug("config loaded", "path", o.Config, "backend", cfg.Backend)
	return cfg, nil
}

// newCompiler builds a compiler from cfg's priorities and limits.
func (o *RootOptions) newCompiler(cfg *config.Config) (*compiler.Compiler, error) {
	return compiler.New(
		compiler.WithPriorities(cfg.Priorities()),
		compiler.WithLimits(cfg.Limits),
		compiler.WithLogger(o.Logger()),
	)
}

// traceID returns a new trace ID.
func (o *RootOptions) traceID() string {
	if o.IDGenerator == nil {
		o.IDGenerator = UUIDv7Generator{}
	}
	return o.IDGenerator.Generate()
}
