// Package testutil builds small note graphs and deterministic helpers for
// tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Mootikins/crucible-sub016/internal/store"
)

// Edge types used by fixtures.
const (
	Wikilink = "wikilink"
	Tagged   = "tagged_with"
)

// Graph is a fixture of notes and edges. Builder methods return the graph
// for chaining.
type Graph struct {
	Notes []store.Note
	Edges []store.Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Note adds a note titled title at path.
func (g *Graph) Note(path, title string) *Graph {
	return g.With(store.Note{Path: path, Title: title})
}

// With adds a fully specified note.
func (g *Graph) With(n store.Note) *Graph {
	g.Notes = append(g.Notes, n)
	return g
}

// Link adds a wikilink edge.
func (g *Graph) Link(source, target string) *Graph {
	return g.Edge(source, target, Wikilink)
}

// Tag adds a tagged_with edge from source to the note tags/<tag>.md.
func (g *Graph) Tag(source, tag string) *Graph {
	return g.Edge(source, "tags/"+tag+".md", Tagged)
}

// Edge adds an edge of any type.
func (g *Graph) Edge(source, target, typ string) *Graph {
	g.Edges = append(g.Edges, store.Edge{Source: source, Target: target, Type: typ})
	return g
}

// NotePath returns the path of the i-th generated note.
func NotePath(i int) string { return fmt.Sprintf("n%d.md", i) }

// NoteTitle returns the title of the i-th generated note.
func NoteTitle(i int) string { return fmt.Sprintf("N%d", i) }

// Chain returns n notes N0 -> N1 -> ... -> N(n-1) joined by wikilinks.
func Chain(n int) *Graph {
	g := NewGraph()
	for i := range n {
		g.Note(NotePath(i), NoteTitle(i))
		if i > 0 {
			g.Link(NotePath(i-1), NotePath(i))
		}
	}
	return g
}

// Cycle returns Chain(n) plus a link from the last note back to N0.
func Cycle(n int) *Graph {
	g := Chain(n)
	if n > 0 {
		g.Link(NotePath(n-1), NotePath(0))
	}
	return g
}

// Load writes the graph into s.
func (g *Graph) Load(t testing.TB, s *store.Store) {
	t.Helper()
	if err := s.PutGraph(context.Background(), g.Notes, g.Edges); err != nil {
		t.Fatalf("load graph: %v", err)
	}
}

// OpenStore opens an in-memory store loaded with g. It is closed when the
// test ends.
func OpenStore(t testing.TB, g *Graph) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if g != nil {
		g.Load(t, s)
	}
	return s
}
