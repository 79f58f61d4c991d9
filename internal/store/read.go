package store

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/ir"
)

// Rows is the result of executing a rendered query.
type Rows struct {
	Columns []string `json:"columns"`
	Values  [][]any  `json:"rows"`
}

// Column returns the values of the first column named name.
func (r *Rows) Column(name string) []any {
	i := slices.Index(r.Columns, name)
	if i < 0 {
		return nil
	}
	out := make([]any, len(r.Values))
	for j, row := range r.Values {
		out[j] = row[i]
	}
	return out
}

// Strings returns the values of column name as strings. NULL becomes "".
func (r *Rows) Strings(name string) []string {
	col := r.Column(name)
	out := make([]string, len(col))
	for i, v := range col {
		if v != nil {
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

// Execute runs a query rendered for SQLite. Generated bindings and params
// are passed as named arguments.
//
// Rows are sorted by their canonical JSON encoding so results are
// deterministic.
func (s *Store) Execute(ctx context.Context, r *backend.Rendered, params map[string]any) (*Rows, error) {
	if r.Backend != backend.SQLite {
		return nil, fmt.Errorf("execute: store runs %s queries, got %s", backend.SQLite, r.Backend)
	}
	args, err := r.Args(params)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	named := make([]any, 0, len(args))
	for _, k := range ir.SortedKeys(args) {
		named = append(named, sql.Named(k, args[k]))
	}

	rows, err := s.db.QueryContext(ctx, r.Text, named...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	out := &Rows{Columns: cols, Values: [][]any{}}
	keys := [][]byte{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("execute: scan: %w", err)
		}
		for i, v := range vals {
			vals[i] = normalizeValue(v)
		}
		key, err := ir.MarshalCanonical(vals)
		if err != nil {
			return nil, fmt.Errorf("execute: %w", err)
		}
		out.Values = append(out.Values, vals)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	order := make([]int, len(out.Values))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return bytes.Compare(keys[a], keys[b]) })
	sorted := make([][]any, len(order))
	for i, j := range order {
		sorted[i] = out.Values[j]
	}
	out.Values = sorted
	return out, nil
}

// normalizeValue maps driver values onto canonical JSON types.
func normalizeValue(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case nil, string, int64, bool:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// CountNotes returns the number of notes.
func (s *Store) CountNotes(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return n, nil
}

// CountEdges returns the number of edges.
func (s *Store) CountEdges(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&n); err != nil {
		return 0, fmt.Errorf("count edges: %w", err)
	}
	return n, nil
}
