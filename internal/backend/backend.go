// Package backend defines the contract shared by the query renderers:
// the target Backend, the schema Config a renderer targets, the Rendered
// output, and the errors a renderer may return.
//
// A renderer lowers a *queryir.Query to query text plus a binding map.
// Literal values never appear in the text. Rendering is deterministic: the
// same Query and Config always produce byte-identical text.
package backend

import (
	"fmt"
	"slices"

	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

// Backend names one target query language. The set is closed.
type Backend string

const (
	SQLite    Backend = "sqlite"
	SurrealDB Backend = "surrealdb"
)

var backends = []Backend{SQLite, SurrealDB}

// Backends returns every backend in registration order.
func Backends() []Backend { return slices.Clone(backends) }

// ParseBackend resolves a backend name.
func ParseBackend(name string) (Backend, error) {
	for _, b := range backends {
		if string(b) == name {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q", name)
}

// Renderer lowers queries for one backend. Implementations are stateless
// and safe for concurrent use.
type Renderer interface {
	Backend() Backend
	Capabilities() Capabilities
	Render(q *queryir.Query, cfg Config) (*Rendered, error)
}

// Rendered is query text plus its parameter bindings.
type Rendered struct {
	Backend Backend
	Text    string
	// Bindings maps placeholder names to driver-native values (string,
	// int64, bool).
	Bindings map[string]any
	// Parameters lists the caller-supplied $name placeholders, sorted.
	Parameters []string
}

// Args merges caller-supplied parameter values into the bindings. Every
// declared parameter must be supplied; unknown names are rejected.
func (r *Rendered) Args(params map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(r.Bindings)+len(r.Parameters))
	for k, v := range r.Bindings {
		args[k] = v
	}
	for _, name := range r.Parameters {
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("missing value for parameter $%s", name)
		}
		args[name] = v
	}
	for name := range params {
		if !slices.Contains(r.Parameters, name) {
			return nil, fmt.Errorf("query has no parameter $%s", name)
		}
	}
	return args, nil
}

// Capabilities declares what a backend's query language can express.
type Capabilities struct {
	VariableLength bool
	OutputNames    bool
	MaxHops        int // 0 = unlimited
	EdgeFilters    bool
}

// Check returns an *UnsupportedFeatureError naming the first feature of q
// that caps cannot express.
func Check(b Backend, caps Capabilities, q *queryir.Query) error {
	fs := queryir.Features(q)
	switch {
	case fs.Quantified && !caps.VariableLength:
		return &UnsupportedFeatureError{Backend: b, Feature: "variable-length paths",
			Detail: "only single-hop edges can be rendered"}
	case caps.MaxHops > 0 && fs.Hops > caps.MaxHops:
		return &UnsupportedFeatureError{Backend: b, Feature: "multi-hop paths",
			Detail: fmt.Sprintf("query has %d hops, at most %d supported", fs.Hops, caps.MaxHops)}
	case fs.OutputNames && !caps.OutputNames:
		return &UnsupportedFeatureError{Backend: b, Feature: "output names",
			Detail: "projections cannot be renamed with AS"}
	case fs.EdgeAliasRefs && !caps.EdgeFilters:
		return &UnsupportedFeatureError{Backend: b, Feature: "edge alias references",
			Detail: "filters and projections may only name node aliases"}
	}
	return nil
}

// UnsupportedFeatureError reports a query construct the backend cannot
// express. Renderers return it instead of degrading the query.
type UnsupportedFeatureError struct {
	Backend Backend
	Feature string
	Detail  string
}

func (e *UnsupportedFeatureError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s does not support %s", e.Backend, e.Feature)
	}
	return fmt.Sprintf("%s does not support %s: %s", e.Backend, e.Feature, e.Detail)
}

// RenderError reports a query or configuration that cannot be rendered for
// reasons other than a missing backend feature.
type RenderError struct {
	Backend Backend
	Reason  string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Backend, e.Reason)
}

// Errorf builds a *RenderError.
func Errorf(b Backend, format string, args ...any) *RenderError {
	return &RenderError{Backend: b, Reason: fmt.Sprintf(format, args...)}
}
