// Package compiler composes dispatch and rendering: query text in any
// registered dialect goes in, backend query text and bindings come out.
//
//	text ──► syntax.Dispatcher ──► *queryir.Query ──► backend.Renderer ──► Rendered
//
// A Compiler holds no mutable state after New and is safe for concurrent
// use.
package compiler

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
	"github.com/Mootikins/crucible-sub016/internal/querysql"
	"github.com/Mootikins/crucible-sub016/internal/querysurreal"
	"github.com/Mootikins/crucible-sub016/internal/syntax"
	"github.com/Mootikins/crucible-sub016/internal/syntax/cypher"
	"github.com/Mootikins/crucible-sub016/internal/syntax/pgq"
	"github.com/Mootikins/crucible-sub016/internal/syntax/pipeline"
	"github.com/Mootikins/crucible-sub016/internal/syntax/sugar"
)

// Stage names the step of Compile that failed.
type Stage string

const (
	StageParse  Stage = "parse"
	StageRender Stage = "render"
)

// CompileError wraps a parse or render failure. The underlying error is one
// of *syntax.SyntaxError, *syntax.UnrecognizedQueryError,
// *backend.UnsupportedFeatureError or *backend.RenderError.
type CompileError struct {
	Stage   Stage
	Backend backend.Backend // empty for parse failures
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Result is a compiled query.
type Result struct {
	Dialect     syntax.Dialect
	Attempted   []syntax.Dialect
	Query       *queryir.Query
	Rendered    *backend.Rendered
	Fingerprint string // stable hash of backend, text and bindings
}

// DialectInfo describes a registered dialect.
type DialectInfo struct {
	Dialect      syntax.Dialect
	Priority     int
	Capabilities syntax.Capabilities
}

type options struct {
	priorities syntax.PriorityTable
	limits     syntax.Limits
	logger     *slog.Logger
	parsers    []syntax.Parser
	renderers  []backend.Renderer
}

// Option configures a Compiler.
type Option func(*options)

// WithPriorities overrides dispatch priorities.
func WithPriorities(t syntax.PriorityTable) Option {
	return func(o *options) { o.priorities = t }
}

// WithLimits sets the limits the default parsers enforce.
func WithLimits(l syntax.Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithParsers replaces the default parsers.
func WithParsers(parsers ...syntax.Parser) Option {
	return func(o *options) { o.parsers = parsers }
}

// WithRenderers replaces the default renderers.
func WithRenderers(renderers ...backend.Renderer) Option {
	return func(o *options) { o.renderers = renderers }
}

// Compiler parses and renders queries.
type Compiler struct {
	dispatcher *syntax.Dispatcher
	renderers  map[backend.Backend]backend.Renderer
	logger     *slog.Logger
}

// New creates a Compiler with the four built-in dialects and both
// backends unless options replace them.
func New(opts ...Option) (*Compiler, error) {
	o := options{
		priorities: syntax.DefaultPriorities(),
		limits:     syntax.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.parsers == nil {
		o.parsers = []syntax.Parser{
			cypher.New(o.limits),
			pgq.New(o.limits),
			sugar.New(o.limits),
			pipeline.New(o.limits),
		}
	}
	if o.renderers == nil {
		o.renderers = []backend.Renderer{querysql.New(), querysurreal.New()}
	}

	dispatcher, err := syntax.NewDispatcher(o.priorities, o.parsers...)
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	renderers := make(map[backend.Backend]backend.Renderer, len(o.renderers))
	for _, r := range o.renderers {
		if r == nil {
			return nil, fmt.Errorf("nil renderer")
		}
		if _, dup := renderers[r.Backend()]; dup {
			return nil, fmt.Errorf("backend %s registered twice", r.Backend())
		}
		renderers[r.Backend()] = r
	}

	return &Compiler{
		dispatcher: dispatcher,
		renderers:  renderers,
		logger:     o.logger,
	}, nil
}

var defaultCompiler = sync.OnceValue(func() *Compiler {
	c, err := New()
	if err != nil {
		panic(fmt.Sprintf("default compiler: %v", err))
	}
	return c
})

// Compile compiles text with the default compiler.
func Compile(text string, b backend.Backend, cfg backend.Config) (*Result, error) {
	return defaultCompiler().Compile(text, b, cfg)
}

// Parse dispatches text to the highest-priority applicable parser.
func (c *Compiler) Parse(text string) (*syntax.Dispatch, error) {
	d, err := c.dispatcher.Dispatch(text)
	if err != nil {
		c.logger.Debug("parse failed", "error", err)
		return nil, &CompileError{Stage: StageParse, Err: err}
	}
	return d, nil
}

// Render lowers an already-parsed query for b.
func (c *Compiler) Render(q *queryir.Query, b backend.Backend, cfg backend.Config) (*backend.Rendered, error) {
	r, ok := c.renderers[b]
	if !ok {
		return nil, &CompileError{Stage: StageRender, Backend: b,
			Err: &backend.RenderError{Backend: b, Reason: "no renderer registered"}}
	}
	rendered, err := r.Render(q, cfg)
	if err != nil {
		c.logger.Debug("render failed", "backend", b, "error", err)
		return nil, &CompileError{Stage: StageRender, Backend: b, Err: err}
	}
	return rendered, nil
}

// Compile parses text and renders it for b.
func (c *Compiler) Compile(text string, b backend.Backend, cfg backend.Config) (*Result, error) {
	d, err := c.Parse(text)
	if err != nil {
		return nil, err
	}
	rendered, err := c.Render(d.Query, b, cfg)
	if err != nil {
		return nil, err
	}
	fp, err := ir.Fingerprint(string(b), rendered.Text, rendered.Bindings)
	if err != nil {
		return nil, &CompileError{Stage: StageRender, Backend: b, Err: err}
	}

	c.logger.Debug("compiled query",
		"dialect", d.Dialect,
		"backend", b,
		"hops", len(d.Query.Hops()),
		"fingerprint", fp,
	)
	return &Result{
		Dialect:     d.Dialect,
		Attempted:   d.Attempted,
		Query:       d.Query,
		Rendered:    rendered,
		Fingerprint: fp,
	}, nil
}

// Dialects describes the registered dialects in dispatch order.
func (c *Compiler) Dialects() []DialectInfo {
	parsers := c.dispatcher.Parsers()
	priorities := c.dispatcher.Priorities()
	infos := make([]DialectInfo, len(parsers))
	for i, p := range parsers {
		infos[i] = DialectInfo{
			Dialect:      p.Dialect(),
			Priority:     priorities[i],
			Capabilities: p.Capabilities(),
		}
	}
	return infos
}

// Backends returns the registered backends, sorted by name.
func (c *Compiler) Backends() []backend.Backend {
	bs := make([]backend.Backend, 0, len(c.renderers))
	for b := range c.renderers {
		bs = append(bs, b)
	}
	slices.Sort(bs)
	return bs
}

// Capabilities returns the capabilities of b's renderer.
func (c *Compiler) Capabilities(b backend.Backend) (backend.Capabilities, bool) {
	r, ok := c.renderers[b]
	if !ok {
		return backend.Capabilities{}, false
	}
	return r.Capabilities(), true
}
