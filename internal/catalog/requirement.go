// Package catalog maps inventory facts to the concrete set of checks a run
// will execute, and owns the requirement vocabulary both the generator and
// the scoring engine share.
package catalog

import (
	"fmt"
	"sort"
)

// Factor is a named category of readiness requirement.
type Factor string

const (
	FactorClean      Factor = "clean"
	FactorContextual Factor = "contextual"
	FactorConsumable Factor = "consumable"
	FactorCurrent    Factor = "current"
	FactorCorrelated Factor = "correlated"
	FactorCompliant  Factor = "compliant"
)

// Factors lists every factor in report order.
var Factors = []Factor{
	FactorClean, FactorContextual, FactorConsumable,
	FactorCurrent, FactorCorrelated, FactorCompliant,
}

// Direction states which way a measurement is good.
type Direction int

const (
	// DirectionMax: lower is better; a value passes when <= threshold.
	DirectionMax Direction = iota
	// DirectionMin: higher is better; a value passes when >= threshold.
	DirectionMin
)

func (d Direction) String() string {
	if d == DirectionMin {
		return "min"
	}
	return "max"
}

// Requirement is a stable key for one measurable check. The set below is
// closed: the generator can only emit these keys and the scorer evaluates
// exactly these keys, so the two cannot drift apart.
type Requirement string

const (
	// Column-level.
	ReqNullRate          Requirement = "null_rate"
	ReqPIIPatternRate    Requirement = "pii_pattern_rate"
	ReqTypeConsistency   Requirement = "type_consistency"
	ReqFormatConsistency Requirement = "format_consistency"
	ReqEnumConsistency   Requirement = "enum_consistency"
	ReqValueDistribution Requirement = "value_distribution"
	ReqZeroNegativeRate  Requirement = "zero_negative_rate"
	ReqDuplicateRate     Requirement = "duplicate_rate"
	ReqMaxStalenessHours Requirement = "max_staleness_hours"

	// Table-level.
	ReqColumnCommentCoverage Requirement = "column_comment_coverage"
	ReqNamingConsistency     Requirement = "naming_consistency"
	ReqForeignKeyCoverage    Requirement = "foreign_key_coverage"
	ReqAICompatibleTypeRate  Requirement = "ai_compatible_type_rate"
	ReqPIIColumnNameRate     Requirement = "pii_column_name_rate"
	ReqSnapshotFreshness     Requirement = "snapshot_freshness_hours"

	// Database-level.
	ReqTableCommentCoverage    Requirement = "table_comment_coverage"
	ReqTimestampColumnCoverage Requirement = "timestamp_column_coverage"
	ReqConstraintCoverage      Requirement = "constraint_coverage"
	ReqIndexCoverage           Requirement = "index_coverage"
	ReqRBACCoverage            Requirement = "rbac_coverage"
	ReqPipelineErrorRate       Requirement = "pipeline_error_rate"
)

// Triple is one default threshold set: three cutoffs, one per workload tier.
type Triple struct {
	L1, L2, L3 float64
}

type spec struct {
	factor    Factor
	direction Direction
	defaults  Triple
	requires  string // capability tag
}

// The requirement table. Tier cutoffs tighten monotonically under each
// key's direction; LoadThresholds validates the same property for user
// overrides.
var specs = map[Requirement]spec{
	ReqNullRate:          {FactorClean, DirectionMax, Triple{0.10, 0.05, 0.01}, "ansi-sql"},
	ReqPIIPatternRate:    {FactorClean, DirectionMax, Triple{0.05, 0.01, 0.0}, "ansi-sql"},
	ReqTypeConsistency:   {FactorClean, DirectionMin, Triple{0.90, 0.95, 0.99}, "ansi-sql"},
	ReqFormatConsistency: {FactorClean, DirectionMin, Triple{0.85, 0.95, 0.99}, "ansi-sql"},
	ReqEnumConsistency:   {FactorClean, DirectionMin, Triple{0.90, 0.95, 0.99}, "ansi-sql"},
	ReqValueDistribution: {FactorClean, DirectionMax, Triple{6.0, 4.0, 3.0}, "ansi-sql"},
	ReqZeroNegativeRate:  {FactorClean, DirectionMax, Triple{0.50, 0.30, 0.10}, "ansi-sql"},
	ReqDuplicateRate:     {FactorClean, DirectionMax, Triple{0.05, 0.01, 0.0}, "ansi-sql"},
	ReqMaxStalenessHours: {FactorCurrent, DirectionMax, Triple{168, 48, 24}, "ansi-sql"},

	ReqColumnCommentCoverage: {FactorContextual, DirectionMin, Triple{0.30, 0.60, 0.90}, "information-schema"},
	ReqNamingConsistency:     {FactorContextual, DirectionMin, Triple{0.70, 0.85, 0.95}, "information-schema"},
	ReqForeignKeyCoverage:    {FactorContextual, DirectionMin, Triple{0.50, 0.75, 0.90}, "information-schema"},
	ReqAICompatibleTypeRate:  {FactorConsumable, DirectionMin, Triple{0.80, 0.90, 0.95}, "information-schema"},
	ReqPIIColumnNameRate:     {FactorCompliant, DirectionMax, Triple{0.30, 0.20, 0.10}, "information-schema"},
	ReqSnapshotFreshness:     {FactorCorrelated, DirectionMax, Triple{336, 168, 48}, "iceberg"},

	ReqTableCommentCoverage:    {FactorContextual, DirectionMin, Triple{0.30, 0.60, 0.90}, "information-schema"},
	ReqTimestampColumnCoverage: {FactorCurrent, DirectionMin, Triple{0.50, 0.75, 0.90}, "information-schema"},
	ReqConstraintCoverage:      {FactorCorrelated, DirectionMin, Triple{0.50, 0.80, 0.95}, "information-schema"},
	ReqIndexCoverage:           {FactorCorrelated, DirectionMin, Triple{0.50, 0.75, 0.90}, "information-schema"},
	ReqRBACCoverage:            {FactorCompliant, DirectionMin, Triple{0.30, 0.60, 0.90}, "information-schema"},
	ReqPipelineErrorRate:       {FactorCurrent, DirectionMax, Triple{0.05, 0.01, 0.0}, "otel"},
}

// Requirements lists every known key in stable (sorted) order.
func Requirements() []Requirement {
	keys := make([]Requirement, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (r Requirement) Known() bool {
	_, ok := specs[r]
	return ok
}

func (r Requirement) Factor() Factor {
	return specs[r].factor
}

func (r Requirement) Direction() Direction {
	return specs[r].direction
}

func (r Requirement) Defaults() Triple {
	return specs[r].defaults
}

// Requires returns the capability tag a check with this requirement needs.
func (r Requirement) Requires() string {
	return specs[r].requires
}

// Validate verifies the built-in table's tier monotonicity. It runs from
// config loading so a broken edit fails the first run, not a scoring pass.
func ValidateDefaults() error {
	for key, s := range specs {
		if err := checkMonotonic(key, s.direction, s.defaults); err != nil {
			return err
		}
	}
	return nil
}

func checkMonotonic(key Requirement, dir Direction, t Triple) error {
	ok := true
	if dir == DirectionMax {
		ok = t.L1 >= t.L2 && t.L2 >= t.L3
	} else {
		ok = t.L1 <= t.L2 && t.L2 <= t.L3
	}
	if !ok {
		return fmt.Errorf("thresholds for %s are not monotonically strict (%v, direction %s)", key, t, dir)
	}
	return nil
}
