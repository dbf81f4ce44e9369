package overlay_test

import (
	"os"
	"path/filepath"
	"testing"

	"db-ready/internal/overlay"
)

func TestLoadMissingPathIsEmptyContext(t *testing.T) {
	ctx, err := overlay.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if ctx.IsTableExcluded("public", "users") {
		t.Error("Empty context must exclude nothing")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.yaml")
	content := `
excluded_schemas: [staging]
excluded_tables: [public.audit_log]
excluded_columns: [public.users.legacy_code]
nullable_by_design: [public.users.middle_name]
false_positive_pii: [public.products.description]
confirmed_keys: [public.users.email]
not_keys: [public.events.session_id]
freshness_slas:
  public.monthly_rollup: 720
accepted_failures: ["null_rate|public.users.bio"]
capabilities:
  iceberg: true
overrides:
  - target: public.users.email
    requirement: null_rate
    l1: 0.5
    reason: partial backfill
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, err := overlay.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !ctx.IsTableExcluded("staging", "anything") {
		t.Error("Expected schema exclusion to apply to every table in it")
	}
	if !ctx.IsTableExcluded("public", "audit_log") {
		t.Error("Expected table exclusion")
	}
	if !ctx.IsColumnExcluded("public", "users", "legacy_code") {
		t.Error("Expected column exclusion")
	}
	if !ctx.IsColumnExcluded("public", "audit_log", "any") {
		t.Error("Columns of an excluded table are excluded too")
	}
	if !ctx.IsNullableByDesign("public", "users", "middle_name") {
		t.Error("Expected nullable-by-design entry")
	}
	if !ctx.IsFalsePositivePII("public", "products", "description") {
		t.Error("Expected false-positive PII entry")
	}
	if !ctx.IsConfirmedKey("public", "users", "email") || !ctx.IsNotKey("public", "events", "session_id") {
		t.Error("Expected key overrides")
	}

	if sla, ok := ctx.FreshnessSLA("public", "monthly_rollup"); !ok || sla != 720 {
		t.Errorf("Expected 720h SLA, got %v %v", sla, ok)
	}
	if !ctx.IsFailureAccepted("null_rate", "public.users.bio") {
		t.Error("Expected accepted failure")
	}
	if v, ok := ctx.DeclaredCapability("iceberg"); !ok || !v {
		t.Error("Expected declared iceberg capability")
	}

	ov := ctx.OverrideFor("null_rate", "public.users.email")
	if ov == nil || ov.L1 == nil || *ov.L1 != 0.5 || ov.Reason != "partial backfill" {
		t.Errorf("Expected parsed override, got %+v", ov)
	}
	if ov.L2 != nil {
		t.Error("Unset override tiers must stay nil")
	}
}

func TestInclusionModeExcludesEverythingElse(t *testing.T) {
	ctx := &overlay.Context{IncludedTables: []string{"public.users"}}

	if ctx.IsTableExcluded("public", "users") {
		t.Error("Included table must not be excluded")
	}
	if !ctx.IsTableExcluded("public", "orders") {
		t.Error("Tables outside the inclusion list are excluded")
	}
}

func TestMatchingIsCaseInsensitive(t *testing.T) {
	ctx := &overlay.Context{ExcludedTables: []string{"PUBLIC.Audit_Log"}}
	if !ctx.IsTableExcluded("public", "audit_log") {
		t.Error("Expected case-insensitive matching")
	}
}
