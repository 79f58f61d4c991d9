package backend

import (
	"fmt"
	"slices"

	"github.com/Mootikins/crucible-sub016/internal/queryir"
)

// Config names the schema a renderer targets.
type Config struct {
	NotesTable   string
	EdgesTable   string
	IDColumn     string // identity of a note; edges reference it
	PathColumn   string // matched by path anchors and the path property
	TitleColumn  string
	SourceColumn string
	TargetColumn string
	TypeColumn   string
	// LabelColumn, when set, holds a node's label. When empty only the
	// ImplicitLabels can be matched and they add no condition.
	LabelColumn    string
	ImplicitLabels []string
	// MaxDepth bounds ZeroOrMore, OneOrMore and AtLeast quantifiers.
	MaxDepth int
}

// DefaultConfig targets the notes/edges schema:
//
//	notes(path PRIMARY KEY, title, content, folder, file_hash)
//	edges(source, target, type, PRIMARY KEY (source, target, type))
func DefaultConfig() Config {
	return Config{
		NotesTable:     "notes",
		EdgesTable:     "edges",
		IDColumn:       "path",
		PathColumn:     "path",
		TitleColumn:    "title",
		SourceColumn:   "source",
		TargetColumn:   "target",
		TypeColumn:     "type",
		ImplicitLabels: []string{"Note"},
		MaxDepth:       10,
	}
}

// EAVConfig targets the entity/relation schema:
//
//	entities(id, title, ...)  -- id holds the note path
//	relations(from_entity_id, to_entity_id, relation_type)
func EAVConfig() Config {
	cfg := DefaultConfig()
	cfg.NotesTable = "entities"
	cfg.EdgesTable = "relations"
	cfg.IDColumn = "id"
	cfg.PathColumn = "id"
	cfg.SourceColumn = "from_entity_id"
	cfg.TargetColumn = "to_entity_id"
	cfg.TypeColumn = "relation_type"
	return cfg
}

// Validate checks that every table and column name is an identifier, since
// they are written into query text verbatim.
func (c Config) Validate() error {
	names := []struct {
		field, value string
		required     bool
	}{
		{"notes table", c.NotesTable, true},
		{"edges table", c.EdgesTable, true},
		{"id column", c.IDColumn, true},
		{"path column", c.PathColumn, true},
		{"title column", c.TitleColumn, true},
		{"source column", c.SourceColumn, true},
		{"target column", c.TargetColumn, true},
		{"type column", c.TypeColumn, true},
		{"label column", c.LabelColumn, false},
	}
	for _, n := range names {
		if n.value == "" && !n.required {
			continue
		}
		if !queryir.IsIdentifier(n.value) {
			return fmt.Errorf("%s %q is not an identifier", n.field, n.value)
		}
	}
	for _, l := range c.ImplicitLabels {
		if !queryir.IsIdentifier(l) {
			return fmt.Errorf("implicit label %q is not an identifier", l)
		}
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth %d is negative", c.MaxDepth)
	}
	return nil
}

// Column maps a query property to a column: "id" is the identity column,
// "path" the path column, "title" the title column, anything else is used
// as written.
func (c Config) Column(property string) string {
	switch property {
	case "id":
		return c.IDColumn
	case "path":
		return c.PathColumn
	case "title":
		return c.TitleColumn
	default:
		return property
	}
}

// EdgeColumn maps an edge property to a column of the edges table.
func (c Config) EdgeColumn(property string) string {
	switch property {
	case "source":
		return c.SourceColumn
	case "target":
		return c.TargetColumn
	case "type":
		return c.TypeColumn
	default:
		return property
	}
}

// SourceColumnFor returns the column a Source constrains.
func (c Config) SourceColumnFor(kind queryir.SourceKind) string {
	switch kind {
	case queryir.SourceTitle:
		return c.TitleColumn
	case queryir.SourceID:
		return c.IDColumn
	case queryir.SourcePath:
		return c.PathColumn
	default:
		return ""
	}
}

// LabelFilter resolves a node label. It returns the column to filter on, or
// "" when the label needs no condition.
func (c Config) LabelFilter(b Backend, label string) (string, error) {
	if label == "" {
		return "", nil
	}
	if c.LabelColumn != "" {
		return c.LabelColumn, nil
	}
	if slices.Contains(c.ImplicitLabels, label) {
		return "", nil
	}
	return "", &UnsupportedFeatureError{
		Backend: b,
		Feature: "label " + label,
		Detail:  "no label column is configured",
	}
}
