// Package catalog records completed cache builds in a SQLite database:
// which artifact was built, by which session, over how many points and how
// long it took. It is write-mostly bookkeeping for long grid builds and is
// never consulted on the query path.
package catalog

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Catalog wraps the build-catalog database.
type Catalog struct {
	*sql.DB
}

// BuildRecord describes one completed build.
type BuildRecord struct {
	ID          int64
	SessionID   string
	Kind        string // "projection", "snr_grid" or "detection_grid"
	Fingerprint string
	Points      int
	Workers     int
	BuiltAt     time.Time
	Duration    time.Duration
	Artifact    string
}

// Open opens (creating if necessary) the catalog at path and ensures the
// schema exists.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: init schema: %w", err)
	}
	return &Catalog{db}, nil
}

// RecordBuild inserts one build row.
func (c *Catalog) RecordBuild(r BuildRecord) error {
	const stmt = `INSERT INTO grid_builds
		(session_id, kind, fingerprint, points, workers, built_unix_nanos, duration_nanos, artifact_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := c.Exec(stmt,
		r.SessionID, r.Kind, r.Fingerprint, r.Points, r.Workers,
		r.BuiltAt.UnixNano(), r.Duration.Nanoseconds(), r.Artifact)
	if err != nil {
		return fmt.Errorf("catalog: record build %s: %w", r.Fingerprint, err)
	}
	return nil
}

// ListBuilds returns recorded builds, newest first. An empty kind returns
// all kinds.
func (c *Catalog) ListBuilds(kind string) ([]BuildRecord, error) {
	query := `SELECT build_id, session_id, kind, fingerprint, points, workers,
		built_unix_nanos, duration_nanos, artifact_path
		FROM grid_builds`
	args := []interface{}{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY build_id DESC"

	rows, err := c.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list builds: %w", err)
	}
	defer rows.Close()

	var out []BuildRecord
	for rows.Next() {
		var r BuildRecord
		var builtNanos, durationNanos int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Kind, &r.Fingerprint, &r.Points,
			&r.Workers, &builtNanos, &durationNanos, &r.Artifact); err != nil {
			return nil, fmt.Errorf("catalog: scan build row: %w", err)
		}
		r.BuiltAt = time.Unix(0, builtNanos)
		r.Duration = time.Duration(durationNanos)
		out = append(out, r)
	}
	return out, rows.Err()
}
