package inventory_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"db-ready/internal/inventory"
	"db-ready/internal/overlay"
)

func sqliteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	return db
}

func has(list []string, tag string) bool {
	for _, t := range list {
		if t == tag {
			return true
		}
	}
	return false
}

func TestResolveCapabilitiesBaseline(t *testing.T) {
	db := sqliteDB(t)
	inv := &inventory.Inventory{}

	inventory.ResolveCapabilities(context.Background(), db, pg(), inv, nil)

	if !has(inv.Available, inventory.CapAnsiSQL) || !has(inv.Available, inventory.CapInfoSchema) {
		t.Errorf("Expected baseline capabilities, got %v", inv.Available)
	}
	if !has(inv.Available, "postgres") {
		t.Errorf("Expected the platform tag, got %v", inv.Available)
	}
	// nothing to probe against, so optional tags land in unavailable
	if !has(inv.Unavailable, inventory.CapIceberg) || !has(inv.Unavailable, inventory.CapOtel) {
		t.Errorf("Expected optional capabilities unavailable, got %v", inv.Unavailable)
	}
}

func TestResolveCapabilitiesDeclarationBeatsProbe(t *testing.T) {
	db := sqliteDB(t)
	inv := &inventory.Inventory{}
	ovl := &overlay.Context{Capabilities: map[string]bool{
		inventory.CapIceberg: true,
		inventory.CapOtel:    false,
	}}

	inventory.ResolveCapabilities(context.Background(), db, pg(), inv, ovl)

	if !has(inv.Available, inventory.CapIceberg) {
		t.Errorf("Declared capability must be available without probing, got %v", inv.Available)
	}
	if !has(inv.Unavailable, inventory.CapOtel) {
		t.Errorf("Declared-off capability must be unavailable, got %v", inv.Unavailable)
	}
}

func TestResolveCapabilitiesOtelProbe(t *testing.T) {
	db := sqliteDB(t)
	if _, err := db.Exec(`CREATE TABLE otel_traces (trace_id TEXT, status_code TEXT)`); err != nil {
		t.Fatal(err)
	}
	inv := &inventory.Inventory{}

	inventory.ResolveCapabilities(context.Background(), db, pg(), inv, nil)

	if !has(inv.Available, inventory.CapOtel) {
		t.Errorf("Expected otel probe to succeed against the landed table, got %v", inv.Unavailable)
	}
}
