package report_test

import (
	"strings"
	"testing"

	"db-ready/internal/catalog"
	"db-ready/internal/report"
)

func TestMarkdownRendersTiersAndFailures(t *testing.T) {
	score := 0.96
	rep := baseReport(
		result(catalog.ReqNullRate, "public.users.email", 0.5, report.VerdictFail, report.VerdictFail, report.VerdictFail),
	)
	rep.Results[0].Thresholds = map[report.Tier]*float64{report.TierL1: fv(0.10)}
	rep.Results[0].Direction = "max"
	rep.Tiers = []*report.TierScore{
		{Tier: report.TierL1, Score: &score, Passed: 24, Measured: 25},
		{Tier: report.TierL2},
		{Tier: report.TierL3},
	}
	rep.Gaps = []catalog.Gap{
		{Factor: catalog.FactorCorrelated, Requirement: catalog.ReqSnapshotFreshness, Reason: "capability \"iceberg\" is not available on this source"},
	}

	md := rep.Markdown()

	if !strings.Contains(md, "READY") {
		t.Errorf("Expected readiness band, got:\n%s", md)
	}
	if !strings.Contains(md, "not assessed") {
		t.Errorf("Expected not-assessed tiers, got:\n%s", md)
	}
	if !strings.Contains(md, "Failing Checks (1)") {
		t.Errorf("Expected failing checks section, got:\n%s", md)
	}
	if !strings.Contains(md, "Not Assessed") || !strings.Contains(md, "snapshot_freshness") {
		t.Errorf("Expected gaps section, got:\n%s", md)
	}
}

func TestMarkdownRendersEnvironmentAndConfigErrors(t *testing.T) {
	broken := result(catalog.ReqDuplicateRate, "public.users.id", 0, report.VerdictSkip, report.VerdictSkip, report.VerdictSkip)
	broken.MeasuredValue = nil
	broken.Unmeasured = true
	broken.ConfigError = true
	broken.Reason = "configuration error: query rejected by read-only validation: blocked keyword DELETE"

	rep := baseReport(broken)
	rep.Environment.Capabilities = []string{"ansi-sql", "information-schema", "postgres"}
	rep.Environment.Unavailable = []string{"iceberg", "otel"}
	rep.Environment.PermissionGaps = []string{"schema restricted could not be enumerated: permission denied"}

	md := rep.Markdown()

	if !strings.Contains(md, "Capabilities: ansi-sql, information-schema, postgres") {
		t.Errorf("Expected capability list, got:\n%s", md)
	}
	if !strings.Contains(md, "Unavailable: iceberg, otel") {
		t.Errorf("Expected unavailable list, got:\n%s", md)
	}
	if !strings.Contains(md, "Permission gap: schema restricted") {
		t.Errorf("Expected permission gap line, got:\n%s", md)
	}
	if !strings.Contains(md, "Configuration Errors (1)") || !strings.Contains(md, "blocked keyword DELETE") {
		t.Errorf("Expected configuration errors section, got:\n%s", md)
	}
}

func TestBandBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{1.0, "READY"},
		{0.95, "READY"},
		{0.80, "NEARLY READY"},
		{0.50, "NEEDS WORK"},
		{0.49, "NOT READY"},
	}
	for _, c := range cases {
		rep := baseReport()
		rep.Tiers = []*report.TierScore{{Tier: report.TierL1, Score: fv(c.score), Measured: 1}}
		md := rep.Markdown()
		if !strings.Contains(md, c.want) {
			t.Errorf("Score %.2f: expected band %s in:\n%s", c.score, c.want, md)
		}
	}
}
