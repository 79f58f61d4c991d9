package sugar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mootikins/crucible-sub016/internal/queryir"
	"github.com/Mootikins/crucible-sub016/internal/syntax"
)

func parse(text string) syntax.Outcome {
	return New(syntax.DefaultLimits()).TryParse(text)
}

func mustParse(t *testing.T, text string) *queryir.Query {
	t.Helper()
	out := parse(text)
	require.Equal(t, syntax.StatusMatched, out.Status, "error: %v", out.Err)
	return out.Query
}

func TestParser_Contract(t *testing.T) {
	p := New(syntax.DefaultLimits())
	assert.Equal(t, syntax.Sugar, p.Dialect())
	assert.Equal(t, 40, p.Priority())
	assert.Equal(t, queryir.Directions(queryir.Out), p.Capabilities().Directions)
	assert.False(t, p.Capabilities().PropertyConstraints)
}

func TestTryParse_Shapes(t *testing.T) {
	tests := []struct {
		text     string
		source   queryir.Source
		hops     int
		edgeType string
	}{
		{"SELECT outlinks FROM 'Index'", queryir.ByTitle("Index"), 1, WikilinkEdge},
		{"SELECT tags FROM 'Index'", queryir.ByTitle("Index"), 1, TagEdge},
		{"SELECT links FROM PATH 'a/b.md'", queryir.ByPath("a/b.md"), 1, ""},
		{"SELECT * FROM 'Index'", queryir.ByTitle("Index"), 0, ""},
		{"SELECT note FROM ID 'abc'", queryir.ByID("abc"), 0, ""},
		{"select outlinks from title \"Index\"", queryir.ByTitle("Index"), 1, WikilinkEdge},
		{"SELECT outlinks FROM 'Index' DEPTH 3", queryir.ByTitle("Index"), 3, WikilinkEdge},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := mustParse(t, tt.text)
			assert.Equal(t, tt.source, q.Source())
			hops := q.Hops()
			require.Len(t, hops, tt.hops)
			for _, h := range hops {
				assert.Equal(t, tt.edgeType, h.Edge.Type)
				assert.Equal(t, queryir.Out, h.Edge.Direction)
				assert.Nil(t, h.Edge.Quantifier, "DEPTH expands to fixed hops")
			}
			assert.Empty(t, q.Filters())
			assert.Empty(t, q.Projections())
		})
	}
}

func TestTryParse_NotApplicable(t *testing.T) {
	for _, text := range []string{
		"",
		"SELECT title FROM notes",
		"SELECT 'outlinks' FROM 'x'",
		"SELECT * FROM GRAPH_TABLE (MATCH (a))",
		"MATCH (a)",
		`find("Index")`,
	} {
		assert.Equal(t, syntax.StatusNotApplicable, parse(text).Status, text)
	}
}

func TestTryParse_Errors(t *testing.T) {
	tests := []struct {
		text   string
		reason string
	}{
		{"SELECT outlinks 'Index'", "expected FROM"},
		{"SELECT outlinks FROM Index", "expected a quoted anchor"},
		{"SELECT outlinks FROM ''", "must not be empty"},
		{"SELECT note FROM 'Index' DEPTH 2", "DEPTH does not apply"},
		{"SELECT outlinks FROM 'Index' DEPTH 0", "out of range"},
		{"SELECT outlinks FROM 'Index' DEPTH 99", "out of range"},
		{"SELECT outlinks FROM 'Index' WHERE x", "WHERE is not supported"},
		{"SELECT outlinks FROM 'Index' LIMIT 3", "LIMIT is not supported"},
		{"SELECT outlinks FROM 'Index' extra", "unexpected"},
		{"SELECT outlinks FROM 'Index", "missing closing quote"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			out := parse(tt.text)
			require.Equal(t, syntax.StatusSyntaxError, out.Status)
			assert.Equal(t, syntax.Sugar, out.Err.Dialect)
			assert.Contains(t, out.Err.Reason, tt.reason)
		})
	}
}
