package report

import (
	"time"

	"db-ready/internal/catalog"
	"db-ready/internal/overlay"
)

// Tier names the three readiness levels. L1 is baseline hygiene, L2 is
// production analytics grade, L3 is AI-training grade.
type Tier string

const (
	TierL1 Tier = "L1"
	TierL2 Tier = "L2"
	TierL3 Tier = "L3"
)

var Tiers = []Tier{TierL1, TierL2, TierL3}

// Verdict is the per-tier outcome of a single check.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
	// VerdictSkip marks a tier that was not scored for this check, either
	// because the value could not be measured or a contextual override
	// removed the tier. Skips never count against a score.
	VerdictSkip Verdict = "skip"
)

// Result is the scored outcome of one executed check.
type Result struct {
	Requirement catalog.Requirement `json:"requirement"`
	Factor      catalog.Factor      `json:"factor"`
	TargetType  catalog.TargetType  `json:"target_type"`
	Target      string              `json:"target"`

	// MeasuredValue is nil when the check ran but produced no measurable
	// value. Reason explains why. ConfigError marks a check whose query
	// was rejected by read-only validation and never executed.
	MeasuredValue *float64 `json:"measured_value"`
	Unmeasured    bool     `json:"unmeasured,omitempty"`
	ConfigError   bool     `json:"config_error,omitempty"`
	Reason        string   `json:"reason,omitempty"`

	// Thresholds holds the effective per-tier bounds after overrides. A
	// nil entry means the tier does not apply to this result.
	Thresholds map[Tier]*float64 `json:"thresholds"`
	Direction  string            `json:"direction"`

	Verdicts   map[Tier]Verdict `json:"verdicts"`
	Annotation string           `json:"annotation,omitempty"`
	DurationMS int64            `json:"duration_ms,omitempty"`
}

// Measured reports whether the result carries a usable value.
func (r *Result) Measured() bool {
	return !r.Unmeasured && r.MeasuredValue != nil
}

// FactorScore aggregates one readiness factor at one tier. Score is nil
// when nothing under the factor was measured at that tier.
type FactorScore struct {
	Factor   catalog.Factor `json:"factor"`
	Score    *float64       `json:"score"`
	Passed   int            `json:"passed"`
	Measured int            `json:"measured"`
	Skipped  int            `json:"skipped"`
}

// TierScore is the tier-wide roll-up across all factors.
type TierScore struct {
	Tier     Tier           `json:"tier"`
	Score    *float64       `json:"score"`
	Factors  []*FactorScore `json:"factors"`
	Passed   int            `json:"passed"`
	Measured int            `json:"measured"`
}

// Environment captures where and how an assessment ran.
type Environment struct {
	Platform   string   `json:"platform"`
	Version    string   `json:"version,omitempty"`
	Connection string   `json:"connection"` // sanitized, no credentials
	Schemas    []string `json:"schemas,omitempty"`
	Tables     int      `json:"tables"`
	Columns    int      `json:"columns"`

	// Resolved capability tags and any schemas discovery could not read.
	Capabilities   []string `json:"capabilities,omitempty"`
	Unavailable    []string `json:"unavailable,omitempty"`
	PermissionGaps []string `json:"permission_gaps,omitempty"`
}

// Report is the full output of one assessment run.
type Report struct {
	GeneratedAt    time.Time         `json:"generated_at"`
	Environment    Environment       `json:"environment"`
	Tiers          []*TierScore      `json:"tiers"`
	Results        []*Result         `json:"results"`
	Gaps           []catalog.Gap     `json:"gaps,omitempty"`
	ContextApplied []overlay.Applied `json:"context_applied,omitempty"`
	ChecksRun      int               `json:"checks_run"`
	FailedChecks   int               `json:"failed_checks"`
}

// TierScoreFor returns the roll-up for a tier, or nil if absent.
func (r *Report) TierScoreFor(t Tier) *TierScore {
	for _, ts := range r.Tiers {
		if ts.Tier == t {
			return ts
		}
	}
	return nil
}

// ResultFor returns the result keyed by target and requirement, or nil.
func (r *Report) ResultFor(target string, req catalog.Requirement) *Result {
	for _, res := range r.Results {
		if res.Target == target && res.Requirement == req {
			return res
		}
	}
	return nil
}
