package store

import (
	"context"
	"database/sql"
	"fmt"
	"path"
)

// Note is one row of the notes table.
type Note struct {
	Path     string `json:"path" yaml:"path"`
	Title    string `json:"title" yaml:"title"`
	Content  string `json:"content,omitempty" yaml:"content,omitempty"`
	Folder   string `json:"folder,omitempty" yaml:"folder,omitempty"`
	FileHash string `json:"file_hash,omitempty" yaml:"file_hash,omitempty"`
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Edge is one row of the edges table.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Type   string `json:"type" yaml:"type"`
}

// folderOf returns the directory of a note path, "" at the vault root.
func folderOf(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PutNote inserts or replaces a note. An empty Folder is derived from Path.
func (s *Store) PutNote(ctx context.Context, n Note) error {
	return putNote(ctx, s.db, n)
}

// PutEdge inserts an edge. Uses ON CONFLICT DO NOTHING for idempotency -
// duplicate edges are silently ignored.
func (s *Store) PutEdge(ctx context.Context, e Edge) error {
	return putEdge(ctx, s.db, e)
}

// PutGraph writes notes and edges in one transaction.
func (s *Store) PutGraph(ctx context.Context, notes []Note, edges []Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put graph: %w", err)
	}
	defer tx.Rollback()

	for _, n := range notes {
		if err := putNote(ctx, tx, n); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := putEdge(ctx, tx, e); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put graph: %w", err)
	}
	return nil
}

func putNote(ctx context.Context, db execer, n Note) error {
	if n.Path == "" {
		return fmt.Errorf("put note: path is required")
	}
	folder := n.Folder
	if folder == "" {
		folder = folderOf(n.Path)
	}
	var kind any
	if n.Kind != "" {
		kind = n.Kind
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO notes (path, title, content, folder, file_hash, kind)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			folder = excluded.folder,
			file_hash = excluded.file_hash,
			kind = excluded.kind
	`, n.Path, n.Title, n.Content, folder, n.FileHash, kind)
	if err != nil {
		return fmt.Errorf("put note %s: %w", n.Path, err)
	}
	return nil
}

func putEdge(ctx context.Context, db execer, e Edge) error {
	if e.Source == "" || e.Target == "" || e.Type == "" {
		return fmt.Errorf("put edge: source, target and type are required")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO edges (source, target, type)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, e.Source, e.Target, e.Type)
	if err != nil {
		return fmt.Errorf("put edge %s -> %s: %w", e.Source, e.Target, err)
	}
	return nil
}
