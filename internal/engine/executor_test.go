package engine_test

import (
	"context"
	"database/sql"
	"math"
	"testing"

	_ "modernc.org/sqlite"

	"db-ready/internal/catalog"
	"db-ready/internal/engine"
)

func approx(got *float64, want float64) bool {
	return got != nil && math.Abs(*got-want) < 1e-9
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	// :memory: is per-connection; pin the pool to one
	db.SetMaxOpenConns(1)

	// shared fixture: 10 rows, 2 null emails, 1 duplicate id value
	stmts := []string{
		`CREATE TABLE users (id INTEGER, email TEXT)`,
		`INSERT INTO users (id, email) VALUES
			(1, 'a@x.com'), (2, 'b@x.com'), (3, 'c@x.com'), (4, 'd@x.com'),
			(5, 'e@x.com'), (6, 'f@x.com'), (7, 'g@x.com'), (8, 'h@x.com'),
			(8, NULL), (9, NULL)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

func TestRunMeasuresValues(t *testing.T) {
	db := openTestDB(t)
	exec := engine.NewExecutor(db)
	exec.Concurrency = 1

	checks := []catalog.Check{
		{
			Requirement: catalog.ReqNullRate,
			Target:      "main.users.email",
			Query:       `SELECT CAST(SUM(CASE WHEN email IS NULL THEN 1 ELSE 0 END) AS REAL) / COUNT(*) AS measured_value FROM users`,
		},
		{
			Requirement: catalog.ReqDuplicateRate,
			Target:      "main.users.id",
			Query:       `SELECT 1.0 - CAST(COUNT(DISTINCT id) AS REAL) / COUNT(id) AS measured_value FROM users`,
		},
	}
	ms, err := exec.Run(context.Background(), checks)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 {
		t.Fatalf("Expected 2 measurements, got %d", len(ms))
	}

	// sorted by target: duplicate_rate (id) before null_rate (email)
	if ms[0].Check.Target != "main.users.email" {
		t.Errorf("Expected sorted order, got %s first", ms[0].Check.Target)
	}
	if !approx(ms[0].Value, 0.2) {
		t.Errorf("Expected null rate 0.2, got %v", ms[0].Value)
	}
	if !approx(ms[1].Value, 0.1) {
		t.Errorf("Expected duplicate rate 0.1, got %v", ms[1].Value)
	}
}

func TestRunDegradesToUnmeasured(t *testing.T) {
	db := openTestDB(t)
	exec := engine.NewExecutor(db)

	checks := []catalog.Check{
		{
			Requirement: catalog.ReqMaxStalenessHours,
			Target:      "main.users.updated_at",
			Query:       `SELECT no_such_column AS measured_value FROM users`,
		},
		{
			Requirement: catalog.ReqNullRate,
			Target:      "main.users.email",
			Query:       `SELECT NULL AS measured_value FROM users LIMIT 1`,
		},
	}
	ms, err := exec.Run(context.Background(), checks)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range ms {
		if m.Value != nil {
			t.Errorf("Expected unmeasured result for %s", m.Check.Target)
		}
		if m.Reason == "" {
			t.Errorf("Expected a reason for %s", m.Check.Target)
		}
	}
}

func TestRunRejectsMutatingCheckWithoutAbortingBatch(t *testing.T) {
	db := openTestDB(t)
	exec := engine.NewExecutor(db)
	exec.Concurrency = 1

	checks := []catalog.Check{
		{
			Requirement: catalog.ReqNullRate,
			Target:      "main.users.email",
			Query:       `SELECT CAST(SUM(CASE WHEN email IS NULL THEN 1 ELSE 0 END) AS REAL) / COUNT(*) AS measured_value FROM users`,
		},
		{Requirement: catalog.ReqDuplicateRate, Target: "main.users.id", Query: `DELETE FROM users`},
	}
	ms, err := exec.Run(context.Background(), checks)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 {
		t.Fatalf("Expected 2 measurements, got %d", len(ms))
	}
	if !approx(ms[0].Value, 0.2) {
		t.Errorf("Expected the valid check to still measure 0.2, got %v", ms[0].Value)
	}
	if !ms[1].ConfigError || ms[1].Value != nil {
		t.Errorf("Expected the mutating check recorded as a configuration error, got %+v", ms[1])
	}
	if ms[1].Reason == "" {
		t.Error("Expected a reason on the rejected check")
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("Expected table untouched, got %d rows", n)
	}
}

func TestRunConcurrent(t *testing.T) {
	db := openTestDB(t)
	exec := engine.NewExecutor(db)
	exec.Concurrency = 4

	var checks []catalog.Check
	for i := 0; i < 20; i++ {
		checks = append(checks, catalog.Check{
			Requirement: catalog.ReqNullRate,
			Target:      "main.users.email",
			Query:       `SELECT 0.5 AS measured_value`,
		})
	}
	seen := 0
	exec.Progress = func(done, total int) { seen = done }

	ms, err := exec.Run(context.Background(), checks)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 20 || seen != 20 {
		t.Errorf("Expected 20 measurements and progress ticks, got %d and %d", len(ms), seen)
	}
}
