// Package activity provides a SQLite-backed record of note-creation activity,
// aggregated per local calendar day for the contribution view.
package activity

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/norholm/laguz/internal/models"
)

// Recorder defines the activity operations consumers depend on.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Recorder interface {
	Record(at time.Time) error
	Contribution() (models.Contribution, error)
	Close() error
}

// Verify *DB satisfies Recorder at compile time.
var _ Recorder = (*DB)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS activity (
	day   TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
);
`

// DB wraps a sql.DB with activity-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("activity: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("activity: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("activity: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record bumps the counter for the local calendar day containing at.
func (db *DB) Record(at time.Time) error {
	day := at.Local().Format("2006-01-02")
	_, err := db.conn.Exec(`
		INSERT INTO activity (day, count) VALUES (?, 1)
		ON CONFLICT(day) DO UPDATE SET count = count + 1
	`, day)
	if err != nil {
		return fmt.Errorf("activity: record %s: %w", day, err)
	}
	return nil
}

// Contribution returns the full per-day aggregate and its total.
func (db *DB) Contribution() (models.Contribution, error) {
	rows, err := db.conn.Query(`SELECT day, count FROM activity`)
	if err != nil {
		return models.Contribution{}, fmt.Errorf("activity: query: %w", err)
	}
	defer rows.Close()

	c := models.Contribution{Days: map[string]int{}}
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return models.Contribution{}, fmt.Errorf("activity: scan: %w", err)
		}
		c.Days[day] = count
		c.Total += count
	}
	if err := rows.Err(); err != nil {
		return models.Contribution{}, fmt.Errorf("activity: rows: %w", err)
	}
	return c, nil
}
