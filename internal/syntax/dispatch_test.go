package syntax

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mootikins/crucible-sub016/internal/ir"
	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

// fakeParser accepts inputs starting with prefix. Inputs containing "!" are
// syntax errors.
type fakeParser struct {
	dialect  Dialect
	priority int
	prefix   string
	calls    *[]Dialect
}

func (p fakeParser) Dialect() Dialect           { return p.dialect }
func (p fakeParser) Priority() int              { return p.priority }
func (p fakeParser) Capabilities() Capabilities { return Capabilities{} }

func (p fakeParser) TryParse(text string) Outcome {
	if p.calls != nil {
		*p.calls = append(*p.calls, p.dialect)
	}
	if !strings.HasPrefix(text, p.prefix) {
		return NotApplicable()
	}
	if strings.Contains(text, "!") {
		return Failed(&SyntaxError{Dialect: p.dialect, Reason: "bang"})
	}
	q, err := queryir.NewBuilder(queryir.ByTitle(string(p.dialect)), queryir.Node("n")).Build()
	if err != nil {
		return Failed(NewSyntaxError(p.dialect, err))
	}
	return Matched(q)
}

func newTestDispatcher(t *testing.T, table PriorityTable, calls *[]Dialect) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(table,
		fakeParser{dialect: Cypher, priority: 55, prefix: "MATCH", calls: calls},
		fakeParser{dialect: PGQ, priority: 50, prefix: "MATCH", calls: calls},
		fakeParser{dialect: Sugar, priority: 40, prefix: "SELECT", calls: calls},
		fakeParser{dialect: Pipeline, priority: 30, prefix: "find", calls: calls},
	)
	require.NoError(t, err)
	return d
}

func TestDispatcher_DefaultOrder(t *testing.T) {
	d := newTestDispatcher(t, DefaultPriorities(), nil)
	assert.Equal(t, []Dialect{Cypher, PGQ, Sugar, Pipeline}, d.Order())
	assert.Equal(t, []int{55, 50, 40, 30}, d.Priorities())
}

func TestDispatcher_HighestPriorityWins(t *testing.T) {
	d := newTestDispatcher(t, DefaultPriorities(), nil)

	res, err := d.Dispatch("MATCH (n)")
	require.NoError(t, err)
	assert.Equal(t, Cypher, res.Dialect)
	assert.Equal(t, []Dialect{Cypher}, res.Attempted)
}

func TestDispatcher_PriorityOverride(t *testing.T) {
	d := newTestDispatcher(t, DefaultPriorities().With(PGQ, 60), nil)

	res, err := d.Dispatch("MATCH (n)")
	require.NoError(t, err)
	assert.Equal(t, PGQ, res.Dialect)
}

func TestDispatcher_TiesKeepRegistrationOrder(t *testing.T) {
	table := DefaultPriorities().With(Pipeline, 55).With(PGQ, 55)
	d := newTestDispatcher(t, table, nil)
	assert.Equal(t, []Dialect{Cypher, PGQ, Pipeline, Sugar}, d.Order())
}

func TestDispatcher_ExtremePriorities(t *testing.T) {
	table := DefaultPriorities().With(Pipeline, math.MaxInt).With(Sugar, math.MinInt)
	d := newTestDispatcher(t, table, nil)
	assert.Equal(t, []Dialect{Pipeline, Cypher, PGQ, Sugar}, d.Order())
	assert.Equal(t, []int{math.MaxInt, 55, 50, math.MinInt}, d.Priorities())
}

func TestDispatcher_NotApplicableFallsThrough(t *testing.T) {
	var calls []Dialect
	d := newTestDispatcher(t, DefaultPriorities(), &calls)

	res, err := d.Dispatch(`find("x")`)
	require.NoError(t, err)
	assert.Equal(t, Pipeline, res.Dialect)
	assert.Equal(t, []Dialect{Cypher, PGQ, Sugar, Pipeline}, calls)
}

func TestDispatcher_SyntaxErrorStops(t *testing.T) {
	var calls []Dialect
	d := newTestDispatcher(t, DefaultPriorities(), &calls)

	_, err := d.Dispatch("MATCH !")
	var serr *SyntaxError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, Cypher, serr.Dialect)
	// pgq also claims MATCH but must not be consulted.
	assert.Equal(t, []Dialect{Cypher}, calls)
}

func TestDispatcher_Unrecognized(t *testing.T) {
	d := newTestDispatcher(t, DefaultPriorities(), nil)

	_, err := d.Dispatch("DELETE everything")
	var uerr *UnrecognizedQueryError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, []Dialect{Cypher, PGQ, Sugar, Pipeline}, uerr.Attempted)
	assert.Contains(t, err.Error(), "tried cypher, pgq, sql-sugar, pipeline")
}

func TestDispatcher_EmptyInputIsUnrecognized(t *testing.T) {
	d := newTestDispatcher(t, DefaultPriorities(), nil)

	_, err := d.Dispatch("")
	var uerr *UnrecognizedQueryError
	assert.True(t, errors.As(err, &uerr))
}

func TestNewDispatcher_RejectsDuplicates(t *testing.T) {
	_, err := NewDispatcher(DefaultPriorities(),
		fakeParser{dialect: Cypher, prefix: "MATCH"},
		fakeParser{dialect: Cypher, prefix: "MATCH"},
	)
	assert.Error(t, err)
}

func TestPriorityTable_WithDoesNotMutate(t *testing.T) {
	base := DefaultPriorities()
	_ = base.With(Cypher, 1)

	p, ok := base.Lookup(Cypher)
	require.True(t, ok)
	assert.Equal(t, 55, p)

	var empty PriorityTable
	p, ok = empty.With(Sugar, 7).Lookup(Sugar)
	require.True(t, ok)
	assert.Equal(t, 7, p)
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("sql-sugar")
	require.NoError(t, err)
	assert.Equal(t, Sugar, d)

	_, err = ParseDialect("gremlin")
	assert.Error(t, err)
}

func TestCheckCapabilities(t *testing.T) {
	q, err := queryir.NewBuilder(queryir.All(), queryir.Node("a")).
		Hop(queryir.EdgePattern{Type: "wikilink", Direction: queryir.In, Quantifier: queryir.OneOrMore{}}, queryir.Node("b")).
		Where(queryir.Filter{Alias: "b", Property: "folder", Op: queryir.OpEq, Value: ir.IRInt(1)}).
		Build()
	require.NoError(t, err)

	full := Capabilities{
		Directions:   queryir.AllDirections,
		Quantifiers:  true,
		FilterOps:    queryir.AllOps,
		LiteralKinds: ir.Kinds(ir.KindString, ir.KindInt),
	}
	assert.NoError(t, CheckCapabilities(full, q))

	tests := []struct {
		name    string
		mutate  func(c *Capabilities)
		feature string
	}{
		{"direction", func(c *Capabilities) { c.Directions = queryir.Directions(queryir.Out) }, "direction in"},
		{"quantifier", func(c *Capabilities) { c.Quantifiers = false }, "quantified edges"},
		{"filters", func(c *Capabilities) { c.FilterOps = 0 }, "filter operator ="},
		{"literal kind", func(c *Capabilities) { c.LiteralKinds = ir.Kinds(ir.KindString) }, "int literals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := full
			tt.mutate(&caps)
			err := CheckCapabilities(caps, q)
			var cerr *CapabilityError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.feature, cerr.Feature)
		})
	}
}

func TestFinish_WrapsValidationErrors(t *testing.T) {
	b := queryir.NewBuilder(queryir.All(), queryir.Node("n")).
		Hop(queryir.Edge("", queryir.Out), queryir.Node("n"))

	out := Finish(Cypher, Capabilities{Directions: queryir.AllDirections}, DefaultLimits(), b)
	require.Equal(t, StatusSyntaxError, out.Status)

	var dup *queryir.DuplicateAliasError
	assert.True(t, errors.As(out.Err, &dup))
	assert.Equal(t, Cypher, out.Err.Dialect)
}

func TestFinish_EnforcesLimits(t *testing.T) {
	b := queryir.NewBuilder(queryir.All(), queryir.Node("a")).
		Hop(queryir.EdgePattern{Direction: queryir.Out, Quantifier: queryir.Range{Min: 1, Max: 100}}, queryir.Node("b"))
	caps := Capabilities{Directions: queryir.AllDirections, Quantifiers: true}

	out := Finish(Cypher, caps, DefaultLimits(), b)
	require.Equal(t, StatusSyntaxError, out.Status)
	assert.Contains(t, out.Err.Reason, "exceeds the hop limit 32")
}
