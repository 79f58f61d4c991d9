package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/compiler"
	"github.com/Mootikins/crucible-sub016/internal/config"
	"github.com/Mootikins/crucible-sub016/internal/store"
)

// Harness is the test execution engine. It holds the store and compiler
// one scenario runs against.
type Harness struct {
	store    *store.Store
	compiler *compiler.Compiler
	config   *config.Config
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger. Run discards logs by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and load the graph
// 2. Load the scenario's configuration and build a compiler from it
// 3. Compile each case; execute sqlite cases against the store
// 4. Check expect clauses, then evaluate assertions
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.PutGraph(ctx, scenario.Graph.Notes, scenario.Graph.Edges); err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}

	h.config = config.Default()
	if scenario.Config != "" {
		if h.config, err = config.Load(scenario.Config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	h.compiler, err = compiler.New(
		compiler.WithPriorities(h.config.Priorities()),
		compiler.WithLimits(h.config.Limits),
		compiler.WithLogger(h.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build compiler: %w", err)
	}

	result := NewResult()
	for _, c := range scenario.Cases {
		cr := h.runCase(ctx, c)
		h.logger.Debug("case finished",
			"scenario", scenario.Name,
			"case", c.Name,
			"dialect", cr.Dialect,
			"error", cr.Error,
		)
		result.Cases = append(result.Cases, cr)
		for _, msg := range checkExpect(c, cr) {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// runCase compiles one case and, for the sqlite backend, executes it.
func (h *Harness) runCase(ctx context.Context, c Case) CaseResult {
	b := h.config.Backend
	if c.Backend != "" {
		// Validated by LoadScenario.
		b, _ = backend.ParseBackend(c.Backend)
	}
	cr := CaseResult{Name: c.Name, Backend: string(b)}

	res, err := h.compiler.Compile(c.Query, b, h.config.BackendConfig(b))
	if err != nil {
		cr.Error = string(compiler.KindOf(err))
		cr.Message = err.Error()
		return cr
	}
	cr.Dialect = string(res.Dialect)
	cr.Text = res.Rendered.Text
	cr.Bindings = res.Rendered.Bindings

	if b != backend.SQLite || c.CompileOnly {
		return cr
	}
	rows, err := h.store.Execute(ctx, res.Rendered, c.Params)
	if err != nil {
		cr.Error = string(KindExecute)
		cr.Message = err.Error()
		return cr
	}
	cr.Rows = rows
	return cr
}

// checkExpect compares a case result with the case's expect clause.
func checkExpect(c Case, cr CaseResult) []string {
	var errs []string
	want := ExpectClause{}
	if c.Expect != nil {
		want = *c.Expect
	}

	if cr.Error != want.Error {
		switch {
		case want.Error == "":
			errs = append(errs, fmt.Sprintf("case %s: unexpected %s error: %s", c.Name, cr.Error, cr.Message))
		case cr.Error == "":
			errs = append(errs, fmt.Sprintf("case %s: expected %s error, query succeeded", c.Name, want.Error))
		default:
			errs = append(errs, fmt.Sprintf("case %s: expected %s error, got %s: %s", c.Name, want.Error, cr.Error, cr.Message))
		}
	}
	if want.Dialect != "" && cr.Dialect != want.Dialect {
		errs = append(errs, fmt.Sprintf("case %s: dialect = %q, want %q", c.Name, cr.Dialect, want.Dialect))
	}
	return errs
}
