package backend

import (
	"fmt"
	"slices"

	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

// Aliases holds the SQL-level name of every node and edge in a query.
type Aliases struct {
	Nodes []string // index 0 is the anchor
	Edges []string // index i is the edge of hop i
}

// AssignAliases keeps user aliases and names anonymous nodes n{i} and
// anonymous edges e{i}. A generated name that collides with a user alias
// gets a numeric suffix.
func AssignAliases(q *queryir.Query) Aliases {
	taken := map[string]bool{}
	nodes := q.Nodes()
	hops := q.Hops()
	for _, n := range nodes {
		if n.Alias != "" {
			taken[n.Alias] = true
		}
	}
	for _, h := range hops {
		if h.Edge.Alias != "" {
			taken[h.Edge.Alias] = true
		}
	}

	fresh := func(base string) string {
		name := base
		for k := 1; taken[name]; k++ {
			name = fmt.Sprintf("%s_%d", base, k)
		}
		taken[name] = true
		return name
	}

	a := Aliases{Nodes: make([]string, len(nodes)), Edges: make([]string, len(hops))}
	for i, n := range nodes {
		if n.Alias != "" {
			a.Nodes[i] = n.Alias
		} else {
			a.Nodes[i] = fresh(fmt.Sprintf("n%d", i))
		}
	}
	for i, h := range hops {
		if h.Edge.Alias != "" {
			a.Edges[i] = h.Edge.Alias
		} else {
			a.Edges[i] = fresh(fmt.Sprintf("e%d", i))
		}
	}
	return a
}

// Binder collects parameter bindings. Keys are alias_property_index, where
// index counts earlier bindings of the same alias and property, so keys
// depend only on query structure.
type Binder struct {
	backend  Backend
	prefix   string // ":" or "$"
	bindings map[string]any
	counts   map[string]int
	params   map[string]bool
}

// NewBinder returns a binder emitting placeholders with prefix.
func NewBinder(b Backend, prefix string) *Binder {
	return &Binder{
		backend:  b,
		prefix:   prefix,
		bindings: map[string]any{},
		counts:   map[string]int{},
		params:   map[string]bool{},
	}
}

// Bind records v and returns its placeholder. Parameters are not bound;
// their placeholder is the parameter name itself.
func (b *Binder) Bind(alias, property string, v ir.IRValue) (string, error) {
	if p, ok := v.(ir.IRParam); ok {
		b.params[string(p)] = true
		return b.prefix + string(p), nil
	}
	native, err := ir.ToNative(v)
	if err != nil {
		return "", Errorf(b.backend, "bind %s.%s: %v", alias, property, err)
	}
	return b.BindNative(alias, property, native), nil
}

// BindNative records a driver-native value and returns its placeholder.
func (b *Binder) BindNative(alias, property string, v any) string {
	base := alias + "_" + property
	key := fmt.Sprintf("%s_%d", base, b.counts[base])
	b.counts[base]++
	// a_b + c and a + b_c share a base; skip indexes already taken.
	for _, taken := b.bindings[key]; taken; _, taken = b.bindings[key] {
		key = fmt.Sprintf("%s_%d", base, b.counts[base])
		b.counts[base]++
	}
	b.bindings[key] = v
	return b.prefix + key
}

// Finish returns the bindings and the sorted parameter names. A parameter
// whose name equals a generated key is an error, since both would share one
// placeholder.
func (b *Binder) Finish() (map[string]any, []string, error) {
	params := make([]string, 0, len(b.params))
	for name := range b.params {
		if _, clash := b.bindings[name]; clash {
			return nil, nil, Errorf(b.backend, "parameter $%s collides with a generated binding", name)
		}
		params = append(params, name)
	}
	slices.Sort(params)
	return b.bindings, params, nil
}
