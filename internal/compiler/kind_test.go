package compiler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mootikins/crucible-sub016/internal/backend"
)

func TestKindOf(t *testing.T) {
	c := newCompiler(t)
	shallow := backend.DefaultConfig()
	shallow.MaxDepth = 5

	tests := []struct {
		name    string
		query   string
		backend backend.Backend
		cfg     backend.Config
		want    Kind
	}{
		{"ok", "MATCH (a) RETURN a", backend.SQLite, backend.DefaultConfig(), KindNone},
		{"syntax", "MATCH (a)-[:x]->(a)", backend.SQLite, backend.DefaultConfig(), KindSyntax},
		{"unrecognized", "DELETE everything", backend.SQLite, backend.DefaultConfig(), KindUnrecognized},
		{"unsupported", "MATCH (a)-[:wikilink*2..4]->(b)", backend.SurrealDB, backend.DefaultConfig(), KindUnsupported},
		{"render", "MATCH (a)-[:wikilink*20..]->(b)", backend.SQLite, shallow, KindRender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile(tt.query, tt.backend, tt.cfg)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}

	assert.Equal(t, KindOther, KindOf(errors.New("boom")))
	assert.Equal(t, KindRender, KindOf(fmt.Errorf("wrapped: %w", &backend.RenderError{Backend: backend.SQLite, Reason: "x"})))
}
