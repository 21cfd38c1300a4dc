package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS fragments (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	source      TEXT NOT NULL,
	content     TEXT NOT NULL,
	kind        TEXT NOT NULL DEFAULT '',
	path        TEXT NOT NULL DEFAULT '',
	tags_json   TEXT NOT NULL DEFAULT '[]',
	created_at  INTEGER NOT NULL DEFAULT 0,
	has_meta    INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore is a Sink backed by a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Sink = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the store at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append implements Sink.
func (s *SQLiteStore) Append(ctx context.Context, f Fragment) error {
	var (
		kind, path string
		tags       = []byte("[]")
		createdAt  int64
		hasMeta    int
	)
	if f.Metadata != nil {
		hasMeta = 1
		kind, path = f.Metadata.Kind, f.Metadata.Path
		createdAt = f.Metadata.Timestamp.UnixNano()
		if len(f.Metadata.Tags) > 0 {
			encoded, err := json.Marshal(f.Metadata.Tags)
			if err != nil {
				return fmt.Errorf("encode tags: %w", err)
			}
			tags = encoded
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fragments (id, source, content, kind, path, tags_json, created_at, has_meta)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Source, f.Content, kind, path, string(tags), createdAt, hasMeta)
	if err != nil {
		return fmt.Errorf("insert fragment: %w", err)
	}
	return nil
}

// Snapshot implements Sink.
func (s *SQLiteStore) Snapshot(ctx context.Context) ([]Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, content, kind, path, tags_json, created_at, has_meta
		 FROM fragments ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list fragments: %w", err)
	}
	defer rows.Close()

	var out []Fragment
	for rows.Next() {
		var (
			f                Fragment
			kind, path, tags string
			createdAt        int64
			hasMeta          int
		)
		if err := rows.Scan(&f.ID, &f.Source, &f.Content, &kind, &path, &tags, &createdAt, &hasMeta); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		if hasMeta == 1 {
			meta := &Metadata{Kind: kind, Path: path, Timestamp: time.Unix(0, createdAt).UTC()}
			if err := json.Unmarshal([]byte(tags), &meta.Tags); err != nil {
				return nil, fmt.Errorf("decode tags for %s: %w", f.ID, err)
			}
			if len(meta.Tags) == 0 {
				meta.Tags = nil
			}
			f.Metadata = meta
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Clear implements Sink.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fragments`); err != nil {
		return fmt.Errorf("clear fragments: %w", err)
	}
	return nil
}
