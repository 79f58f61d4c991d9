// Package config loads graphq configuration from CUE files.
//
// A file is unified with an embedded schema that supplies defaults and
// rejects unknown fields, then decoded into Config:
//
//	backend: "sqlite"
//	sqlite: { preset: "eav", max_depth: 6 }
//	dialects: { cypher: 70 }
//	limits: { max_hops: 16 }
package config

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/syntax"
)

//go:embed schema.cue
var schemaSource string

// Config is a resolved configuration.
type Config struct {
	Backend   backend.Backend
	SQLite    backend.Config
	SurrealDB backend.Config
	// Dialects overrides dispatch priorities. Dialects not listed keep
	// their defaults.
	Dialects map[syntax.Dialect]int
	Limits   syntax.Limits
}

// LoadError reports an invalid configuration file. Line and Column are
// zero when CUE reported no position.
type LoadError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

type rawSchema struct {
	Preset         string   `json:"preset"`
	NotesTable     string   `json:"notes_table"`
	EdgesTable     string   `json:"edges_table"`
	IDColumn       string   `json:"id_column"`
	PathColumn     string   `json:"path_column"`
	TitleColumn    string   `json:"title_column"`
	SourceColumn   string   `json:"source_column"`
	TargetColumn   string   `json:"target_column"`
	TypeColumn     string   `json:"type_column"`
	LabelColumn    string   `json:"label_column"`
	ImplicitLabels []string `json:"implicit_labels"`
	MaxDepth       int      `json:"max_depth"`
}

type rawConfig struct {
	Backend   string         `json:"backend"`
	SQLite    rawSchema      `json:"sqlite"`
	SurrealDB rawSchema      `json:"surrealdb"`
	Dialects  map[string]int `json:"dialects"`
	Limits    struct {
		MaxInputBytes int `json:"max_input_bytes"`
		MaxHops       int `json:"max_hops"`
	} `json:"limits"`
}

// Load reads and resolves the CUE file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse resolves CUE source. filename is used in error positions.
func Parse(filename string, data []byte) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, loadError(filename, err)
	}
	v = schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, loadError(filename, err)
	}

	var raw rawConfig
	if err := v.Decode(&raw); err != nil {
		return nil, loadError(filename, err)
	}
	cfg, err := raw.resolve()
	if err != nil {
		return nil, &LoadError{File: filename, Message: err.Error()}
	}
	return cfg, nil
}

// Default returns the configuration an empty file resolves to.
func Default() *Config {
	cfg, err := Parse("default.cue", nil)
	if err != nil {
		panic(fmt.Sprintf("embedded config schema: %v", err))
	}
	return cfg
}

// BackendConfig returns the schema configuration for b.
func (c *Config) BackendConfig(b backend.Backend) backend.Config {
	if b == backend.SurrealDB {
		return c.SurrealDB
	}
	return c.SQLite
}

// Priorities returns the dispatch priority table with overrides applied.
func (c *Config) Priorities() syntax.PriorityTable {
	table := syntax.DefaultPriorities()
	dialects := make([]syntax.Dialect, 0, len(c.Dialects))
	for d := range c.Dialects {
		dialects = append(dialects, d)
	}
	slices.Sort(dialects)
	for _, d := range dialects {
		table = table.With(d, c.Dialects[d])
	}
	return table
}

func (r rawConfig) resolve() (*Config, error) {
	b, err := backend.ParseBackend(r.Backend)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Backend:   b,
		SQLite:    r.SQLite.resolve(),
		SurrealDB: r.SurrealDB.resolve(),
		Dialects:  map[syntax.Dialect]int{},
		Limits: syntax.Limits{
			MaxInputBytes: r.Limits.MaxInputBytes,
			MaxHops:       r.Limits.MaxHops,
		},
	}
	for name, prio := range r.Dialects {
		d, err := syntax.ParseDialect(name)
		if err != nil {
			return nil, err
		}
		cfg.Dialects[d] = prio
	}
	for _, bc := range []struct {
		name string
		cfg  backend.Config
	}{{"sqlite", cfg.SQLite}, {"surrealdb", cfg.SurrealDB}} {
		if err := bc.cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", bc.name, err)
		}
	}
	return cfg, nil
}

func (s rawSchema) resolve() backend.Config {
	cfg := backend.DefaultConfig()
	if s.Preset == "eav" {
		cfg = backend.EAVConfig()
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.NotesTable, s.NotesTable)
	set(&cfg.EdgesTable, s.EdgesTable)
	set(&cfg.IDColumn, s.IDColumn)
	set(&cfg.PathColumn, s.PathColumn)
	set(&cfg.TitleColumn, s.TitleColumn)
	set(&cfg.SourceColumn, s.SourceColumn)
	set(&cfg.TargetColumn, s.TargetColumn)
	set(&cfg.TypeColumn, s.TypeColumn)
	set(&cfg.LabelColumn, s.LabelColumn)
	if s.ImplicitLabels != nil {
		cfg.ImplicitLabels = s.ImplicitLabels
	}
	cfg.MaxDepth = s.MaxDepth
	return cfg
}

// loadError converts a CUE error to a *LoadError positioned at its first
// reported location.
func loadError(filename string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{File: filename, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{File: filename, Message: first.Error()}
	for _, pos := range errors.Positions(first) {
		if pos.Filename() == filename {
			le.Line = pos.Line()
			le.Column = pos.Column()
			break
		}
	}
	return le
}
