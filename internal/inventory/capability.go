package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"db-ready/internal/overlay"
	"db-ready/internal/platform"
)

// Capability tags. Baseline tags are always available on SQL sources; the
// optional ones gate checks that need infrastructure beyond the database
// itself.
const (
	CapAnsiSQL    = "ansi-sql"
	CapInfoSchema = "information-schema"
	CapIceberg    = "iceberg" // versioned table format metadata
	CapOtel       = "otel"    // pipeline traces landed in the warehouse
)

// OptionalCapabilities lists the probe-gated tags in resolution order.
var OptionalCapabilities = []string{CapIceberg, CapOtel}

// ResolveCapabilities fills the inventory's available/unavailable tag sets.
// Baseline tags and the detected platform tag need no probe. Optional tags
// are probed with a cheap metadata query unless the overlay declares them
// one way or the other; declarations always win because probes can
// false-negative on permission errors.
func ResolveCapabilities(ctx context.Context, db *sql.DB, p *platform.Platform, inv *Inventory, ovl *overlay.Context) {
	inv.Available = append(inv.Available, CapAnsiSQL, CapInfoSchema)
	if p.Name != "generic" {
		inv.Available = append(inv.Available, p.Name)
	}

	for _, tag := range OptionalCapabilities {
		if ovl != nil {
			if declared, ok := ovl.DeclaredCapability(tag); ok {
				if declared {
					inv.Available = append(inv.Available, tag)
				} else {
					inv.Unavailable = append(inv.Unavailable, tag)
				}
				continue
			}
		}
		if probeCapability(ctx, db, p, inv, tag) {
			inv.Available = append(inv.Available, tag)
		} else {
			inv.Unavailable = append(inv.Unavailable, tag)
		}
	}
}

func probeCapability(ctx context.Context, db *sql.DB, p *platform.Platform, inv *Inventory, tag string) bool {
	switch tag {
	case CapIceberg:
		// Metadata tables hang off a discovered table; with nothing
		// discovered there is nothing to probe.
		if len(inv.Tables) == 0 {
			return false
		}
		t := inv.Tables[0]
		q := fmt.Sprintf("SELECT 1 FROM %s", p.Qualify(t.Schema, t.Name+"$snapshots"))
		if p.WrapLimit != nil {
			q = p.WrapLimit(q, 1)
		}
		return probeSucceeds(ctx, db, q)
	case CapOtel:
		q := "SELECT 1 FROM otel_traces"
		if p.WrapLimit != nil {
			q = p.WrapLimit(q, 1)
		}
		return probeSucceeds(ctx, db, q)
	}
	return false
}

func probeSucceeds(ctx context.Context, db *sql.DB, query string) bool {
	var one sql.NullInt64
	err := db.QueryRowContext(ctx, query).Scan(&one)
	return err == nil || err == sql.ErrNoRows
}
