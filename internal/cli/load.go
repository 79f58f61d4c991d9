package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Mootikins/crucible-sub016/internal/harness"
	"github.com/Mootikins/crucible-sub016/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	DB string // database path
}

// LoadOutput is the JSON payload of a successful load.
type LoadOutput struct {
	DB    string `json:"db"`
	Notes int    `json:"notes"`
	Edges int    `json:"edges"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <graph.yaml>",
		Short: "Load notes and edges into a database",
		Long: `Load a YAML note graph into a SQLite notes database, creating it if needed.
Existing notes with the same path are replaced; existing edges are kept.

The file has the shape of a scenario's graph section:

  notes:
    - {path: index.md, title: Index}
    - {path: a.md, title: A}
  edges:
    - {source: index.md, target: a.md, type: wikilink}`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database path (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		TraceID:   opts.traceID(),
	}

	graph, err := readGraph(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, err)
		}
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}

	s, err := store.Open(opts.DB)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}
	defer s.Close()

	if err := s.PutGraph(cmd.Context(), graph.Notes, graph.Edges); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWriteFailed, err)
	}
	opts.Logger().Info("graph loaded", "db", opts.DB, "notes", len(graph.Notes), "edges", len(graph.Edges))

	out := LoadOutput{DB: opts.DB, Notes: len(graph.Notes), Edges: len(graph.Edges)}
	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	fmt.Fprintf(formatter.Writer, "\u2713 Loaded %d note(s), %d edge(s) into %s\n", out.Notes, out.Edges, out.DB)
	return nil
}

// readGraph decodes a YAML graph file, rejecting unknown fields.
func readGraph(path string) (*harness.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	var g harness.Graph
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse graph %s: %w", path, err)
	}
	return &g, nil
}
