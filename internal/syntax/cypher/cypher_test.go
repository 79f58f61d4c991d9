package cypher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
	"github.com/Mootikins/crucible-sub016/internal/syntax"
)

func mustParse(t *testing.T, text string) *queryir.Query {
	t.Helper()
	out := New(syntax.DefaultLimits()).TryParse(text)
	require.Equal(t, syntax.StatusMatched, out.Status, "error: %v", out.Err)
	return out.Query
}

func mustFail(t *testing.T, text string) *syntax.SyntaxError {
	t.Helper()
	out := New(syntax.DefaultLimits()).TryParse(text)
	require.Equal(t, syntax.StatusSyntaxError, out.Status)
	require.NotNil(t, out.Err)
	assert.Equal(t, syntax.Cypher, out.Err.Dialect)
	return out.Err
}

func TestParser_Contract(t *testing.T) {
	p := New(syntax.DefaultLimits())
	assert.Equal(t, syntax.Cypher, p.Dialect())
	assert.Equal(t, 55, p.Priority())
	caps := p.Capabilities()
	assert.True(t, caps.Quantifiers)
	assert.True(t, caps.Parameters)
	assert.Equal(t, queryir.AllOps, caps.FilterOps)
}

func TestTryParse_NotApplicable(t *testing.T) {
	p := New(syntax.DefaultLimits())
	for _, text := range []string{
		"",
		"SELECT outlinks FROM 'Index'",
		`find("Index") -> wikilink`,
		"GRAPH_TABLE (MATCH (a))",
		"matches (a)",
	} {
		assert.Equal(t, syntax.StatusNotApplicable, p.TryParse(text).Status, text)
	}
}

func TestTryParse_EndToEndExample(t *testing.T) {
	q := mustParse(t, "MATCH (n {path:'index.md'})-[:LINKS_TO]->(m) RETURN m.title")

	assert.Equal(t, queryir.ByPath("index.md"), q.Source())
	assert.Empty(t, q.Start().Properties, "anchor property is lifted into the source")
	hops := q.Hops()
	require.Len(t, hops, 1)
	assert.Equal(t, "LINKS_TO", hops[0].Edge.Type)
	assert.Equal(t, queryir.Out, hops[0].Edge.Direction)
	assert.Nil(t, hops[0].Edge.Quantifier)
	assert.Equal(t, []queryir.Projection{{Alias: "m", Property: "title"}}, q.Projections())
}

func TestTryParse_SpecExample(t *testing.T) {
	q := mustParse(t, "MATCH (n {path: 'index.md'})-[:LINKS_TO*1..3]->(m) WHERE m.folder = 'Projects' RETURN m.path, m.title AS name")

	assert.Equal(t, queryir.Range{Min: 1, Max: 3}, q.Hops()[0].Edge.Quantifier)
	assert.Equal(t, []queryir.Filter{
		{Alias: "m", Property: "folder", Op: queryir.OpEq, Value: ir.IRString("Projects")},
	}, q.Filters())
	assert.Equal(t, []queryir.Projection{
		{Alias: "m", Property: "path"},
		{Alias: "m", Property: "title", Name: "name"},
	}, q.Projections())
}

func TestTryParse_AnchorLifting(t *testing.T) {
	tests := []struct {
		text  string
		want  queryir.Source
		props int
	}{
		{"MATCH (n:Note {title: 'Index'})", queryir.ByTitle("Index"), 0},
		{"MATCH (n {id: 'abc', folder: 'x'})", queryir.ByID("abc"), 1},
		{"MATCH (n {title: 'A', path: 'a.md'})", queryir.ByTitle("A"), 1},
		{"MATCH (n {title: $t})", queryir.All(), 1},
		{"MATCH (n {folder: 'x'})", queryir.All(), 1},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := mustParse(t, tt.text)
			assert.Equal(t, tt.want, q.Source())
			assert.Len(t, q.Start().Properties, tt.props)
		})
	}
}

func TestTryParse_OnlyAnchorIsLifted(t *testing.T) {
	q := mustParse(t, "MATCH (a)-[:wikilink]->(b {title: 'Target'})")
	assert.Equal(t, queryir.All(), q.Source())
	assert.Equal(t, []queryir.Property{queryir.Prop("title", ir.IRString("Target"))}, q.Final().Properties)
}

func TestTryParse_Directions(t *testing.T) {
	tests := []struct {
		text string
		want queryir.Direction
	}{
		{"MATCH (a)-[:T]->(b)", queryir.Out},
		{"MATCH (a)<-[:T]-(b)", queryir.In},
		{"MATCH (a)<-[:T]->(b)", queryir.Both},
		{"MATCH (a)-[:T]-(b)", queryir.Undirected},
		{"MATCH (a)-->(b)", queryir.Out},
		{"MATCH (a)<--(b)", queryir.In},
		{"MATCH (a)<-->(b)", queryir.Both},
		{"MATCH (a)--(b)", queryir.Undirected},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := mustParse(t, tt.text)
			assert.Equal(t, tt.want, q.Hops()[0].Edge.Direction)
		})
	}
}

func TestTryParse_Quantifiers(t *testing.T) {
	tests := []struct {
		text string
		want queryir.Quantifier
	}{
		{"MATCH (a)-[:T]->(b)", nil},
		{"MATCH (a)-[:T*]->(b)", queryir.ZeroOrMore{}},
		{"MATCH (a)-[:T+]->(b)", queryir.OneOrMore{}},
		{"MATCH (a)-[:T*3]->(b)", queryir.Exactly{N: 3}},
		{"MATCH (a)-[:T*1..3]->(b)", queryir.Range{Min: 1, Max: 3}},
		{"MATCH (a)-[:T*..4]->(b)", queryir.Range{Min: 0, Max: 4}},
		{"MATCH (a)-[:T*2..]->(b)", queryir.AtLeast{Min: 2}},
		{"MATCH (a)-[*]->(b)", queryir.ZeroOrMore{}},
		{"MATCH (a)-[r*2]->(b)", queryir.Exactly{N: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := mustParse(t, tt.text)
			assert.Equal(t, tt.want, q.Hops()[0].Edge.Quantifier)
		})
	}
}

func TestTryParse_Conditions(t *testing.T) {
	tests := []struct {
		cond string
		want queryir.Filter
	}{
		{"n.title = 'A'", queryir.Filter{Alias: "n", Property: "title", Op: queryir.OpEq, Value: ir.IRString("A")}},
		{"n.title != 'A'", queryir.Filter{Alias: "n", Property: "title", Op: queryir.OpNe, Value: ir.IRString("A")}},
		{"n.title <> 'A'", queryir.Filter{Alias: "n", Property: "title", Op: queryir.OpNe, Value: ir.IRString("A")}},
		{"n.title CONTAINS 'API'", queryir.Filter{Alias: "n", Property: "title", Op: queryir.OpContains, Value: ir.IRString("API")}},
		{"n.path STARTS WITH 'docs/'", queryir.Filter{Alias: "n", Property: "path", Op: queryir.OpStartsWith, Value: ir.IRString("docs/")}},
		{"n.path ends with '.md'", queryir.Filter{Alias: "n", Property: "path", Op: queryir.OpEndsWith, Value: ir.IRString(".md")}},
		{"n.priority = -5", queryir.Filter{Alias: "n", Property: "priority", Op: queryir.OpEq, Value: ir.IRInt(-5)}},
		{"n.done = true", queryir.Filter{Alias: "n", Property: "done", Op: queryir.OpEq, Value: ir.IRBool(true)}},
		{"n.folder IS NULL", queryir.Filter{Alias: "n", Property: "folder", Op: queryir.OpEq, Value: ir.IRNull{}}},
		{"n.folder IS NOT NULL", queryir.Filter{Alias: "n", Property: "folder", Op: queryir.OpNe, Value: ir.IRNull{}}},
		{"n.title = $title", queryir.Filter{Alias: "n", Property: "title", Op: queryir.OpEq, Value: ir.IRParam("title")}},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			q := mustParse(t, "MATCH (n:Note) WHERE "+tt.cond+" RETURN n")
			assert.Equal(t, []queryir.Filter{tt.want}, q.Filters())
		})
	}
}

func TestTryParse_MultipleConditions(t *testing.T) {
	q := mustParse(t, "MATCH (a)-[:wikilink]->(b) WHERE a.title = 'X' AND b.folder = 'Y' AND b.path CONTAINS 'z'")
	assert.Len(t, q.Filters(), 3)
}

func TestTryParse_ReturnStarAndWholeNode(t *testing.T) {
	q := mustParse(t, "MATCH (n) RETURN *")
	assert.Empty(t, q.Projections())

	q = mustParse(t, "MATCH (n) RETURN n")
	assert.Equal(t, []queryir.Projection{{Alias: "n"}}, q.Projections())
}

func TestTryParse_Parameters(t *testing.T) {
	q := mustParse(t, "MATCH (n {path: $path})-[:wikilink]->(m) WHERE m.folder = $folder RETURN m.title")
	assert.Equal(t, []string{"folder", "path"}, q.Params())
}

func TestTryParse_CaseInsensitiveKeywords(t *testing.T) {
	q := mustParse(t, "match (n:Note) where n.title contains 'x' return n.title as t")
	assert.Len(t, q.Filters(), 1)
	assert.Equal(t, "t", q.Projections()[0].Name)
}

func TestTryParse_UnsupportedFeatures(t *testing.T) {
	tests := []struct {
		text    string
		feature string
	}{
		{"MATCH (n) WHERE n.a = 'x' OR n.b = 'y'", "OR is not supported"},
		{"MATCH (n) RETURN n ORDER BY n.title", "ORDER BY is not supported"},
		{"MATCH (n) RETURN n LIMIT 5", "LIMIT is not supported"},
		{"MATCH (n) RETURN n SKIP 5", "SKIP is not supported"},
		{"MATCH (n) WITH n RETURN n", "WITH is not supported"},
		{"MATCH (n) RETURN n UNION MATCH (m) RETURN m", "UNION is not supported"},
		{"MATCH (n) DELETE n", "DELETE is not supported"},
		{"MATCH (n) SET n.x = 1", "SET is not supported"},
		{"CREATE (n:Note)", "CREATE is not supported"},
		{"MERGE (n:Note)", "MERGE is not supported"},
		{"OPTIONAL MATCH (n)", "OPTIONAL MATCH is not supported"},
		{"MATCH (n) RETURN DISTINCT n", "DISTINCT is not supported"},
		{"MATCH (a), (b)", "comma-separated patterns is not supported"},
		{"MATCH (n) RETURN count(n)", "function calls"},
		{"MATCH (n) WHERE NOT n.a = 'x'", "NOT is not supported"},
		{"MATCH (n) WHERE n.score = 2.5", "floating-point literals is not supported"},
		{"MATCH (a)-[:A|B]->(b)", "edge type alternatives"},
		{"MATCH (a)-[:T {w: 1}]->(b)", "edge property constraints"},
		{"MATCH (n) WHERE n.x > 1", "ordering comparison"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			err := mustFail(t, tt.text)
			assert.Contains(t, err.Reason, tt.feature)
		})
	}
}

func TestTryParse_Malformed(t *testing.T) {
	for _, text := range []string{
		"MATCH n RETURN n",
		"MATCH (n",
		"MATCH (a)-[:T]>(b)",
		"MATCH (n) WHERE n.title",
		"MATCH (n) WHERE n.title = 'unterminated",
		"MATCH (n) WHERE n.count = 9223372036854775808",
		"MATCH (a)-[:T*3..1]->(b)",
	} {
		t.Run(text, func(t *testing.T) {
			mustFail(t, text)
		})
	}
}

func TestTryParse_ErrorPosition(t *testing.T) {
	err := mustFail(t, "MATCH (n)\nRETURN n ORDER BY n.title")
	assert.Equal(t, 2, err.Line)
	assert.Equal(t, 10, err.Column)
}

func TestTryParse_DanglingReference(t *testing.T) {
	err := mustFail(t, "MATCH (a)-[:wikilink]->(b) WHERE c.title = 'x'")
	var dangling *queryir.DanglingReferenceError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, "c", dangling.Alias)

	err = mustFail(t, "MATCH (a) RETURN z.title")
	require.True(t, errors.As(err, &dangling))
}

func TestTryParse_DuplicateAlias(t *testing.T) {
	err := mustFail(t, "MATCH (n)-[:wikilink]->(n)")
	var dup *queryir.DuplicateAliasError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "n", dup.Alias)
}

func TestTryParse_HopLimit(t *testing.T) {
	limits := syntax.Limits{MaxInputBytes: 1 << 10, MaxHops: 2}
	out := New(limits).TryParse("MATCH (a)-->(b)-->(c)-->(d)")
	require.Equal(t, syntax.StatusSyntaxError, out.Status)
	assert.Contains(t, out.Err.Reason, "limit is 2")
}

func TestTryParse_InputLimit(t *testing.T) {
	limits := syntax.Limits{MaxInputBytes: 8, MaxHops: 2}
	out := New(limits).TryParse("MATCH (a)-->(b)")
	require.Equal(t, syntax.StatusSyntaxError, out.Status)
	assert.Contains(t, out.Err.Reason, "limit is 8")
}
