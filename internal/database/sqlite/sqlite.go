// Package sqlite implements database.Store on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Store implements database.Store using modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

var _ database.Store = (*Store)(nil)

const migration = `
CREATE TABLE IF NOT EXISTS identities (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	gender      TEXT NOT NULL DEFAULT '',
	class_tags  TEXT NOT NULL DEFAULT '[]',
	embedding   TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance_facts (
	id          TEXT PRIMARY KEY,
	identity_id INTEGER NOT NULL REFERENCES identities(id),
	date        TEXT NOT NULL,
	period      TEXT NOT NULL,
	class_tag   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	recorded_by TEXT NOT NULL DEFAULT '',
	UNIQUE (identity_id, date, period, class_tag)
);

CREATE TABLE IF NOT EXISTS leave_requests (
	id          TEXT PRIMARY KEY,
	identity_id INTEGER NOT NULL REFERENCES identities(id),
	date        TEXT NOT NULL,
	period      TEXT NOT NULL,
	class_tag   TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	note        TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	UNIQUE (identity_id, date, period, class_tag)
);

CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance_facts(date);
CREATE INDEX IF NOT EXISTS idx_attendance_class ON attendance_facts(class_tag);
CREATE INDEX IF NOT EXISTS idx_leave_date ON leave_requests(date);
`

// Open opens a SQLite database at the given path, configures WAL mode and
// creates the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer keeps read-check-write statements serialized.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}

	if _, err := db.ExecContext(ctx, migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: parse time %q", s)
	}
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := database.ParseDate(s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: parse date %q", s)
	}
	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal class tags")
	}
	return string(b), nil
}

// rangeWhere builds the WHERE clause for a range filter.
func rangeWhere(filter database.RangeFilter, withStatus bool) (string, []any) {
	var conds []string
	var args []any
	if !filter.Start.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, database.FormatDate(filter.Start))
	}
	if !filter.End.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, database.FormatDate(filter.End))
	}
	if filter.ClassTag != "" {
		conds = append(conds, "class_tag = ?")
		args = append(args, filter.ClassTag)
	}
	if filter.IdentityID != 0 {
		conds = append(conds, "identity_id = ?")
		args = append(args, filter.IdentityID)
	}
	if withStatus && filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scannable interface {
	Scan(dest ...any) error
}
