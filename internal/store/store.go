// Package store persists assessment reports locally so later runs can be
// diffed against earlier ones.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"db-ready/internal/report"
)

// Entry is one saved assessment, listed without its full payload.
type Entry struct {
	ID          int64     `json:"id"`
	Connection  string    `json:"connection"`
	Platform    string    `json:"platform"`
	GeneratedAt time.Time `json:"generated_at"`
	ChecksRun   int       `json:"checks_run"`
	Failed      int       `json:"failed_checks"`
}

// Store keeps reports in a single SQLite file under the user's home
// directory by default.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the standard history location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".db-ready", "assessments.db"), nil
}

// Open creates the history database and its schema if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS assessments (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			connection    TEXT NOT NULL,
			platform      TEXT NOT NULL,
			generated_at  TEXT NOT NULL,
			checks_run    INTEGER NOT NULL,
			failed_checks INTEGER NOT NULL,
			payload       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_assessments_connection
			ON assessments(connection, generated_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Sanitize strips credentials from a connection string so the stored key
// never leaks a password. Unparseable strings are stored as opaque hosts.
func Sanitize(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Host != "" {
		if u.User != nil {
			u.User = url.User(u.User.Username())
		}
		return u.String()
	}
	// driver-style DSNs: user:pass@tcp(host)/db
	if at := strings.LastIndex(dsn, "@"); at >= 0 {
		head := dsn[:at]
		if colon := strings.Index(head, ":"); colon >= 0 {
			return head[:colon] + "@" + dsn[at+1:]
		}
	}
	return dsn
}

// Save persists a report and returns its id.
func (s *Store) Save(rep *report.Report) (int64, error) {
	payload, err := json.Marshal(rep)
	if err != nil {
		return 0, fmt.Errorf("encoding report: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO assessments (connection, platform, generated_at, checks_run, failed_checks, payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rep.Environment.Connection, rep.Environment.Platform,
		rep.GeneratedAt.Format(time.RFC3339), rep.ChecksRun, rep.FailedChecks, string(payload))
	if err != nil {
		return 0, fmt.Errorf("saving report: %w", err)
	}
	return res.LastInsertId()
}

// Get loads one saved report by id.
func (s *Store) Get(id int64) (*report.Report, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM assessments WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no assessment with id %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading assessment %d: %w", id, err)
	}
	return decode(payload)
}

// Latest returns the most recent report for a connection, or nil when the
// connection has no history.
func (s *Store) Latest(connection string) (*report.Report, error) {
	return s.nth(connection, 0)
}

// Previous returns the second most recent report for a connection, the one
// a fresh run is usually diffed against.
func (s *Store) Previous(connection string) (*report.Report, error) {
	return s.nth(connection, 1)
}

func (s *Store) nth(connection string, offset int) (*report.Report, error) {
	var payload string
	err := s.db.QueryRow(`
		SELECT payload FROM assessments
		WHERE connection = ?
		ORDER BY generated_at DESC, id DESC
		LIMIT 1 OFFSET ?`, connection, offset).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", connection, err)
	}
	return decode(payload)
}

// List returns recent entries, newest first, optionally filtered by
// connection. A non-positive limit returns everything.
func (s *Store) List(connection string, limit int) ([]Entry, error) {
	q := `SELECT id, connection, platform, generated_at, checks_run, failed_checks
		FROM assessments`
	var args []any
	if connection != "" {
		q += ` WHERE connection = ?`
		args = append(args, connection)
	}
	q += ` ORDER BY generated_at DESC, id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.Connection, &e.Platform, &ts, &e.ChecksRun, &e.Failed); err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.GeneratedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func decode(payload string) (*report.Report, error) {
	var rep report.Report
	if err := json.Unmarshal([]byte(payload), &rep); err != nil {
		return nil, fmt.Errorf("decoding stored report: %w", err)
	}
	return &rep, nil
}
