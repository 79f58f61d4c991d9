package querysurreal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

func mustBuild(t *testing.T, b *queryir.Builder) *queryir.Query {
	t.Helper()
	q, err := b.Build()
	require.NoError(t, err)
	return q
}

func render(t *testing.T, q *queryir.Query) *backend.Rendered {
	t.Helper()
	r, err := New().Render(q, backend.DefaultConfig())
	require.NoError(t, err)
	return r
}

func TestRender_Lookup(t *testing.T) {
	q := mustBuild(t, queryir.NewBuilder(queryir.ByTitle("Index"), queryir.Node("")))

	r := render(t, q)
	assert.Equal(t, backend.SurrealDB, r.Backend)
	assert.Equal(t, "SELECT * FROM notes WHERE title = $n0_title_0", r.Text)
	assert.Equal(t, map[string]any{"n0_title_0": "Index"}, r.Bindings)
}

func TestRender_All(t *testing.T) {
	r := render(t, mustBuild(t, queryir.NewBuilder(queryir.All(), queryir.Node("n"))))
	assert.Equal(t, "SELECT * FROM notes", r.Text)
	assert.Empty(t, r.Bindings)
}

func TestRender_OneHop(t *testing.T) {
	tests := []struct {
		name string
		dir  queryir.Direction
		typ  string
		want string
	}{
		{
			name: "out",
			dir:  queryir.Out,
			typ:  "wikilink",
			want: "SELECT * FROM notes WHERE count(<-\u27e8wikilink\u27e9<-(notes WHERE title = $a_title_0)) > 0",
		},
		{
			name: "in",
			dir:  queryir.In,
			typ:  "wikilink",
			want: "SELECT * FROM notes WHERE count(->\u27e8wikilink\u27e9->(notes WHERE title = $a_title_0)) > 0",
		},
		{
			name: "both untyped",
			dir:  queryir.Both,
			want: "SELECT * FROM notes WHERE (count(<-?<-(notes WHERE title = $a_title_0)) > 0" +
				" OR count(->?->(notes WHERE title = $a_title_0)) > 0)",
		},
		{
			name: "undirected",
			dir:  queryir.Undirected,
			typ:  "tagged_with",
			want: "SELECT * FROM notes WHERE (count(<-\u27e8tagged_with\u27e9<-(notes WHERE title = $a_title_0)) > 0" +
				" OR count(->\u27e8tagged_with\u27e9->(notes WHERE title = $a_title_0)) > 0)",
		},
		{
			name: "keyword type",
			dir:  queryir.Out,
			typ:  "from",
			want: "SELECT * FROM notes WHERE count(<-\u27e8from\u27e9<-(notes WHERE title = $a_title_0)) > 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mustBuild(t, queryir.NewBuilder(queryir.ByTitle("Index"), queryir.Node("a")).
				Hop(queryir.Edge(tt.typ, tt.dir), queryir.Node("b")))

			r := render(t, q)
			assert.Equal(t, tt.want, r.Text)
			assert.Equal(t, map[string]any{"a_title_0": "Index"}, r.Bindings)
		})
	}
}

func TestRender_FilterPlacement(t *testing.T) {
	q := mustBuild(t, queryir.NewBuilder(queryir.All(), queryir.Node("a")).
		Hop(queryir.Edge("wikilink", queryir.Out), queryir.Node("b", queryir.Prop("folder", ir.IRString("Projects")))).
		Where(
			queryir.Filter{Alias: "a", Property: "title", Op: queryir.OpStartsWith, Value: ir.IRString("Daily")},
			queryir.Filter{Alias: "b", Property: "title", Op: queryir.OpContains, Value: ir.NewIRParam("q")},
			queryir.Filter{Alias: "b", Property: "archived", Op: queryir.OpNe, Value: ir.IRBool(true)},
		).
		Return(queryir.Projection{Alias: "b", Property: "title"}, queryir.Projection{Alias: "b", Property: "path"}))

	r := render(t, q)
	assert.Equal(t, "SELECT title, path FROM notes"+
		" WHERE count(<-\u27e8wikilink\u27e9<-(notes WHERE string::starts_with(title, $a_title_0))) > 0"+
		" AND folder = $b_folder_0"+
		" AND string::contains(title, $q)"+
		" AND archived != $b_archived_0", r.Text)
	assert.Equal(t, map[string]any{
		"a_title_0":    "Daily",
		"b_folder_0":   "Projects",
		"b_archived_0": true,
	}, r.Bindings)
	assert.Equal(t, []string{"q"}, r.Parameters)
}

func TestRender_NoAnchorConditions(t *testing.T) {
	q := mustBuild(t, queryir.NewBuilder(queryir.All(), queryir.Node("a")).
		Hop(queryir.Edge("wikilink", queryir.In), queryir.Node("b")))

	r := render(t, q)
	assert.Equal(t, "SELECT * FROM notes WHERE count(->\u27e8wikilink\u27e9->notes) > 0", r.Text)
}

func TestRender_NullChecks(t *testing.T) {
	q := mustBuild(t, queryir.NewBuilder(queryir.All(), queryir.Node("n", queryir.Prop("folder", ir.IRNull{}))).
		Where(queryir.Filter{Alias: "n", Property: "title", Op: queryir.OpNe, Value: ir.IRNull{}},
			queryir.Filter{Alias: "n", Property: "path", Op: queryir.OpEndsWith, Value: ir.IRString(".md")}))

	r := render(t, q)
	assert.Equal(t, "SELECT * FROM notes WHERE folder IS NONE AND title IS NOT NONE AND string::ends_with(path, $n_path_0)", r.Text)
	assert.Equal(t, map[string]any{"n_path_0": ".md"}, r.Bindings)
}

func TestRender_Unsupported(t *testing.T) {
	tests := []struct {
		name    string
		q       *queryir.Builder
		feature string
	}{
		{
			name: "variable length",
			q: queryir.NewBuilder(queryir.All(), queryir.Node("a")).
				Hop(queryir.EdgePattern{Direction: queryir.Out, Quantifier: queryir.OneOrMore{}}, queryir.Node("b")),
			feature: "variable-length paths",
		},
		{
			name: "two hops",
			q: queryir.NewBuilder(queryir.All(), queryir.Node("a")).
				Hop(queryir.Edge("", queryir.Out), queryir.Node("b")).
				Hop(queryir.Edge("", queryir.Out), queryir.Node("c")),
			feature: "multi-hop paths",
		},
		{
			name: "output names",
			q: queryir.NewBuilder(queryir.All(), queryir.Node("a")).
				Return(queryir.Projection{Alias: "a", Property: "title", Name: "t"}),
			feature: "output names",
		},
		{
			name: "edge filter",
			q: queryir.NewBuilder(queryir.All(), queryir.Node("a")).
				Hop(queryir.EdgePattern{Alias: "r", Direction: queryir.Out}, queryir.Node("b")).
				Where(queryir.Filter{Alias: "r", Property: "type", Op: queryir.OpEq, Value: ir.IRString("x")}),
			feature: "edge alias references",
		},
		{
			name: "anchor projection",
			q: queryir.NewBuilder(queryir.All(), queryir.Node("a")).
				Hop(queryir.Edge("", queryir.Out), queryir.Node("b")).
				Return(queryir.Projection{Alias: "a"}),
			feature: "projection of a",
		},
		{
			name:    "unknown label",
			q:       queryir.NewBuilder(queryir.All(), queryir.NodePattern{Alias: "a", Label: "Person"}),
			feature: "label Person",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Render(mustBuild(t, tt.q), backend.DefaultConfig())
			var uerr *backend.UnsupportedFeatureError
			require.True(t, errors.As(err, &uerr), "got %v", err)
			assert.Equal(t, backend.SurrealDB, uerr.Backend)
			assert.Equal(t, tt.feature, uerr.Feature)
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	q := mustBuild(t, queryir.NewBuilder(queryir.ByTitle("Index"), queryir.Node("a")).
		Hop(queryir.Edge("wikilink", queryir.Out), queryir.Node("b")).
		Where(queryir.Filter{Alias: "b", Property: "folder", Op: queryir.OpEq, Value: ir.IRString("Projects")}))

	first := render(t, q)
	for range 10 {
		assert.Equal(t, first, render(t, q))
	}
}
