package catalog_test

import (
	"strings"
	"testing"

	"db-ready/internal/catalog"
	"db-ready/internal/inventory"
	"db-ready/internal/overlay"
	"db-ready/internal/platform"
)

func pgPlatform() *platform.Platform {
	return platform.NewBuiltinRegistry().Get("postgres")
}

func sampleInventory() *inventory.Inventory {
	small := int64(4)
	big := int64(5000)
	users := &inventory.Table{
		Schema: "public",
		Name:   "users",
		Kind:   "BASE TABLE",
		Columns: []*inventory.Column{
			{Name: "id", DataType: "bigint", Numeric: true, CandidateKey: true},
			{Name: "email", DataType: "varchar", String: true, DistinctValues: &big},
			{Name: "status", DataType: "varchar", String: true, DistinctValues: &small},
			{Name: "created_at", DataType: "timestamp", Timestamp: true},
		},
	}
	orders := &inventory.Table{
		Schema: "public",
		Name:   "orders",
		Kind:   "BASE TABLE",
		Columns: []*inventory.Column{
			{Name: "id", DataType: "bigint", Numeric: true, CandidateKey: true},
			{Name: "customer_id", DataType: "bigint", Numeric: true, CandidateKey: true},
			{Name: "amount", DataType: "numeric", Numeric: true},
		},
	}
	return &inventory.Inventory{
		Tables:    []*inventory.Table{users, orders},
		Platform:  "postgres",
		Available: []string{"ansi-sql", "information-schema"},
	}
}

func countByReq(checks []catalog.Check) map[catalog.Requirement]int {
	m := map[catalog.Requirement]int{}
	for _, c := range checks {
		m[c.Requirement]++
	}
	return m
}

func TestGenerateColumnRules(t *testing.T) {
	gen := catalog.NewGenerator(pgPlatform())
	checks, _, _ := gen.Generate(sampleInventory(), nil)
	byReq := countByReq(checks)

	if byReq[catalog.ReqNullRate] != 7 {
		t.Errorf("Expected null_rate on all 7 columns, got %d", byReq[catalog.ReqNullRate])
	}
	// two string columns
	if byReq[catalog.ReqPIIPatternRate] != 2 || byReq[catalog.ReqFormatConsistency] != 2 {
		t.Errorf("Expected string rules on 2 columns, got pii=%d format=%d",
			byReq[catalog.ReqPIIPatternRate], byReq[catalog.ReqFormatConsistency])
	}
	// enum rule only fires for the low-cardinality status column
	if byReq[catalog.ReqEnumConsistency] != 1 {
		t.Errorf("Expected 1 enum_consistency check, got %d", byReq[catalog.ReqEnumConsistency])
	}
	// three candidate keys
	if byReq[catalog.ReqDuplicateRate] != 3 {
		t.Errorf("Expected 3 duplicate_rate checks, got %d", byReq[catalog.ReqDuplicateRate])
	}
	// one timestamp column
	if byReq[catalog.ReqMaxStalenessHours] != 1 {
		t.Errorf("Expected 1 staleness check, got %d", byReq[catalog.ReqMaxStalenessHours])
	}
	// four numeric columns
	if byReq[catalog.ReqValueDistribution] != 4 || byReq[catalog.ReqZeroNegativeRate] != 4 {
		t.Errorf("Expected numeric rules on 4 columns, got dist=%d zero=%d",
			byReq[catalog.ReqValueDistribution], byReq[catalog.ReqZeroNegativeRate])
	}
}

func TestGenerateTableAndDatabaseRules(t *testing.T) {
	gen := catalog.NewGenerator(pgPlatform())
	checks, _, _ := gen.Generate(sampleInventory(), nil)
	byReq := countByReq(checks)

	if byReq[catalog.ReqColumnCommentCoverage] != 2 {
		t.Errorf("Expected comment coverage per table, got %d", byReq[catalog.ReqColumnCommentCoverage])
	}
	// only orders has an uncovered *_id column
	if byReq[catalog.ReqForeignKeyCoverage] != 1 {
		t.Errorf("Expected 1 foreign_key_coverage check, got %d", byReq[catalog.ReqForeignKeyCoverage])
	}
	for _, req := range []catalog.Requirement{
		catalog.ReqTableCommentCoverage,
		catalog.ReqTimestampColumnCoverage,
		catalog.ReqConstraintCoverage,
		catalog.ReqRBACCoverage,
	} {
		if byReq[req] != 1 {
			t.Errorf("Expected one database-level %s check, got %d", req, byReq[req])
		}
	}
}

func TestGenerateGatesUnavailableCapabilities(t *testing.T) {
	gen := catalog.NewGenerator(pgPlatform())
	checks, gaps, _ := gen.Generate(sampleInventory(), nil)

	for _, c := range checks {
		if c.Requires == "iceberg" || c.Requires == "otel" {
			t.Errorf("Check %s requires unavailable capability %s", c.Requirement, c.Requires)
		}
	}

	wantGaps := map[catalog.Requirement]bool{
		catalog.ReqSnapshotFreshness: false,
		catalog.ReqPipelineErrorRate: false,
	}
	for _, g := range gaps {
		if _, ok := wantGaps[g.Requirement]; ok {
			wantGaps[g.Requirement] = true
		}
	}
	for req, seen := range wantGaps {
		if !seen {
			t.Errorf("Expected a gap for %s", req)
		}
	}
}

func TestGenerateHonorsOverlayExclusions(t *testing.T) {
	ovl := &overlay.Context{
		ExcludedTables:   []string{"public.orders"},
		ExcludedColumns:  []string{"public.users.email"},
		FalsePositivePII: []string{"public.users.status"},
	}
	gen := catalog.NewGenerator(pgPlatform())
	checks, _, audit := gen.Generate(sampleInventory(), ovl)

	for _, c := range checks {
		if c.Table == "orders" {
			t.Errorf("Excluded table still produced check %s", c.Requirement)
		}
		if c.Column == "email" {
			t.Errorf("Excluded column still produced check %s", c.Requirement)
		}
		if c.Requirement == catalog.ReqPIIPatternRate && c.Column == "status" {
			t.Error("False-positive PII column still produced a PII check")
		}
	}
	if len(audit) == 0 {
		t.Error("Expected exclusion audit entries")
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	gen := catalog.NewGenerator(pgPlatform())
	first, _, _ := gen.Generate(sampleInventory(), nil)
	second, _, _ := gen.Generate(sampleInventory(), nil)

	if len(first) != len(second) {
		t.Fatalf("Expected identical check counts, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Target != second[i].Target || first[i].Requirement != second[i].Requirement {
			t.Errorf("Check %d differs between runs: %s/%s vs %s/%s",
				i, first[i].Target, first[i].Requirement, second[i].Target, second[i].Requirement)
		}
	}
}

func TestIndexCoverageProvider(t *testing.T) {
	gen := catalog.NewGenerator(pgPlatform(), catalog.IndexCoverageProvider)
	checks, _, _ := gen.Generate(sampleInventory(), nil)

	found := false
	for _, c := range checks {
		if c.Requirement == catalog.ReqIndexCoverage {
			found = true
			if !strings.Contains(c.Query, "pg_indexes") {
				t.Errorf("Expected a pg_indexes query, got %s", c.Query)
			}
		}
	}
	if !found {
		t.Error("Expected index_coverage from the provider")
	}
}
