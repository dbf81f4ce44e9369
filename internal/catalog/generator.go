package catalog

import (
	"fmt"
	"strings"

	"db-ready/internal/inventory"
	"db-ready/internal/overlay"
	"db-ready/internal/platform"
)

// TargetType says what a check measures.
type TargetType string

const (
	TargetColumn   TargetType = "column"
	TargetTable    TargetType = "table"
	TargetDatabase TargetType = "database"
)

// Check is one generated unit of measurement, ready for execution. Checks
// are rebuilt from the inventory every run and never persisted on their own.
type Check struct {
	Requirement Requirement `json:"requirement"`
	Factor      Factor      `json:"factor"`
	TargetType  TargetType  `json:"target_type"`
	Target      string      `json:"target"` // schema.table[.column] or "database"
	Schema      string      `json:"schema,omitempty"`
	Table       string      `json:"table,omitempty"`
	Column      string      `json:"column,omitempty"`
	Query       string      `json:"query"`
	Requires    string      `json:"requires"` // capability tag
	Platform    string      `json:"platform"` // provenance
	Description string      `json:"description,omitempty"`
}

// Gap records a requirement that could not be generated this run.
type Gap struct {
	Factor      Factor      `json:"factor"`
	Requirement Requirement `json:"requirement,omitempty"`
	Reason      string      `json:"reason"`
}

// ExtraProvider contributes platform-native checks after the baseline
// rules. Providers receive the full inventory and return only checks whose
// requirement keys are part of the closed requirement set.
type ExtraProvider func(b *Builder, inv *inventory.Inventory) []Check

// Generator maps an inventory to the run's check list. It holds no state
// between runs; generating twice from the same inventory yields the same
// check set.
type Generator struct {
	platform *platform.Platform
	builder  *Builder
	extras   []ExtraProvider

	// MaxEnumCardinality bounds the small-cardinality rule: string columns
	// with at most this many sampled distinct values get the enum
	// consistency check.
	MaxEnumCardinality int64
}

func NewGenerator(p *platform.Platform, extras ...ExtraProvider) *Generator {
	return &Generator{
		platform:           p,
		builder:            NewBuilder(p),
		extras:             extras,
		MaxEnumCardinality: 20,
	}
}

// Generate produces every applicable check for the inventory, honoring
// overlay exclusions and capability availability. Checks whose capability
// tag is unavailable are returned as gaps instead, alongside an audit
// trail of overlay exclusions that fired.
func (g *Generator) Generate(inv *inventory.Inventory, ovl *overlay.Context) ([]Check, []Gap, []overlay.Applied) {
	if ovl == nil {
		ovl = &overlay.Context{}
	}

	var raw []Check
	raw = append(raw, g.databaseChecks(inv)...)
	for _, t := range inv.Tables {
		raw = append(raw, g.tableChecks(t)...)
		for _, c := range t.Columns {
			raw = append(raw, g.columnChecks(t, c)...)
		}
	}
	for _, extra := range g.extras {
		raw = append(raw, extra(g.builder, inv)...)
	}

	var checks []Check
	var gaps []Gap
	var audit []overlay.Applied
	seenGap := make(map[Requirement]bool)

	for _, ch := range raw {
		if excluded, entry := g.excludedByOverlay(ch, ovl); excluded {
			audit = append(audit, entry)
			continue
		}
		if !inv.HasCapability(ch.Requires) {
			if !seenGap[ch.Requirement] {
				seenGap[ch.Requirement] = true
				gaps = append(gaps, Gap{
					Factor:      ch.Factor,
					Requirement: ch.Requirement,
					Reason:      fmt.Sprintf("capability %q is not available on this source", ch.Requires),
				})
			}
			continue
		}
		checks = append(checks, ch)
	}

	for _, gap := range inv.PermissionGaps {
		gaps = append(gaps, Gap{Factor: FactorCompliant, Reason: gap})
	}

	return checks, gaps, audit
}

func (g *Generator) excludedByOverlay(ch Check, ovl *overlay.Context) (bool, overlay.Applied) {
	switch ch.TargetType {
	case TargetColumn:
		if ovl.IsColumnExcluded(ch.Schema, ch.Table, ch.Column) {
			return true, overlay.Applied{Kind: "exclusion", Target: ch.Target, Requirement: string(ch.Requirement)}
		}
		if ch.Requirement == ReqPIIPatternRate && ovl.IsFalsePositivePII(ch.Schema, ch.Table, ch.Column) {
			return true, overlay.Applied{
				Kind: "exclusion", Target: ch.Target, Requirement: string(ch.Requirement),
				Detail: "confirmed not PII",
			}
		}
	case TargetTable:
		if ovl.IsTableExcluded(ch.Schema, ch.Table) {
			return true, overlay.Applied{Kind: "exclusion", Target: ch.Target, Requirement: string(ch.Requirement)}
		}
	}
	return false, overlay.Applied{}
}

func (g *Generator) check(req Requirement, tt TargetType, target, schema, table, column, query, description string) Check {
	return Check{
		Requirement: req,
		Factor:      req.Factor(),
		TargetType:  tt,
		Target:      target,
		Schema:      schema,
		Table:       table,
		Column:      column,
		Query:       query,
		Requires:    req.Requires(),
		Platform:    g.platform.Name,
		Description: description,
	}
}

func (g *Generator) databaseChecks(inv *inventory.Inventory) []Check {
	b := g.builder
	checks := []Check{
		g.check(ReqTableCommentCoverage, TargetDatabase, "database", "", "", "",
			b.TableCommentCoverage(), "share of tables with a description"),
		g.check(ReqTimestampColumnCoverage, TargetDatabase, "database", "", "", "",
			b.TimestampColumnCoverage(), "share of tables with at least one timestamp column"),
		g.check(ReqConstraintCoverage, TargetDatabase, "database", "", "", "",
			b.ConstraintCoverage(), "share of tables with a primary key or unique constraint"),
		g.check(ReqRBACCoverage, TargetDatabase, "database", "", "", "",
			b.RBACCoverage(), "share of tables with grants beyond PUBLIC"),
		g.check(ReqPipelineErrorRate, TargetDatabase, "database", "", "", "",
			b.PipelineErrorRate(), "error share of landed pipeline traces"),
	}
	return checks
}

// IndexCoverageProvider adds the index coverage check on platforms whose
// catalog exposes index metadata. Wire it into NewGenerator for postgres
// and mysql sources.
func IndexCoverageProvider(b *Builder, inv *inventory.Inventory) []Check {
	q := b.IndexCoverage()
	if q == "" {
		return nil
	}
	return []Check{{
		Requirement: ReqIndexCoverage,
		Factor:      ReqIndexCoverage.Factor(),
		TargetType:  TargetDatabase,
		Target:      "database",
		Query:       q,
		Requires:    ReqIndexCoverage.Requires(),
		Platform:    inv.Platform,
		Description: "share of tables with at least one index",
	}}
}

func (g *Generator) tableChecks(t *inventory.Table) []Check {
	b := g.builder
	target := t.FQN()
	checks := []Check{
		g.check(ReqColumnCommentCoverage, TargetTable, target, t.Schema, t.Name, "",
			b.ColumnCommentCoverage(t), "share of columns with a description"),
		g.check(ReqNamingConsistency, TargetTable, target, t.Schema, t.Name, "",
			b.NamingConsistency(t), "share of columns following the dominant naming convention"),
		g.check(ReqAICompatibleTypeRate, TargetTable, target, t.Schema, t.Name, "",
			b.AICompatibleTypeRate(t), "share of columns using model-friendly types"),
		g.check(ReqPIIColumnNameRate, TargetTable, target, t.Schema, t.Name, "",
			b.PIIColumnNameRate(t), "share of columns with PII-suggestive names"),
	}

	// Foreign-key coverage only applies when the table has reference-like
	// columns that lack a declared constraint.
	if g.hasUncoveredReferenceColumns(t) {
		checks = append(checks, g.check(ReqForeignKeyCoverage, TargetTable, target, t.Schema, t.Name, "",
			b.ForeignKeyCoverage(t), "share of *_id columns backed by a foreign key"))
	}

	checks = append(checks, g.check(ReqSnapshotFreshness, TargetTable, target, t.Schema, t.Name, "",
		b.SnapshotFreshness(t), "hours since the last storage snapshot"))

	return checks
}

func (g *Generator) hasUncoveredReferenceColumns(t *inventory.Table) bool {
	for _, c := range t.Columns {
		name := strings.ToLower(c.Name)
		if name != "id" && strings.HasSuffix(name, "_id") && !t.HasForeignKeyOn(c.Name) {
			return true
		}
	}
	return false
}

func (g *Generator) columnChecks(t *inventory.Table, c *inventory.Column) []Check {
	b := g.builder
	target := t.FQN() + "." + c.Name
	checks := []Check{
		g.check(ReqNullRate, TargetColumn, target, t.Schema, t.Name, c.Name,
			b.NullRate(t, c), "null share"),
	}

	if c.String {
		checks = append(checks,
			g.check(ReqPIIPatternRate, TargetColumn, target, t.Schema, t.Name, c.Name,
				b.PIIPatternRate(t, c), "share of values matching PII shapes"),
			g.check(ReqTypeConsistency, TargetColumn, target, t.Schema, t.Name, c.Name,
				b.TypeConsistency(t, c), "dominant-type share for mixed-content detection"),
			g.check(ReqFormatConsistency, TargetColumn, target, t.Schema, t.Name, c.Name,
				b.FormatConsistency(t, c), "share of values following the dominant format"),
		)
		if c.DistinctValues != nil && *c.DistinctValues <= g.MaxEnumCardinality {
			checks = append(checks, g.check(ReqEnumConsistency, TargetColumn, target, t.Schema, t.Name, c.Name,
				b.EnumConsistency(t, c), "label-variant share for enum-like column"))
		}
	}

	if c.Numeric {
		checks = append(checks,
			g.check(ReqValueDistribution, TargetColumn, target, t.Schema, t.Name, c.Name,
				b.ValueDistribution(t, c), "value spread in standard deviations"),
			g.check(ReqZeroNegativeRate, TargetColumn, target, t.Schema, t.Name, c.Name,
				b.ZeroNegativeRate(t, c), "share of zero or negative values"),
		)
	}

	if c.CandidateKey {
		checks = append(checks, g.check(ReqDuplicateRate, TargetColumn, target, t.Schema, t.Name, c.Name,
			b.DuplicateRate(t, c), "duplicate share for candidate key"))
	}

	if c.Timestamp {
		checks = append(checks, g.check(ReqMaxStalenessHours, TargetColumn, target, t.Schema, t.Name, c.Name,
			b.StalenessHours(t, c), "hours since the most recent value"))
	}

	return checks
}
