package engine

import (
	"fmt"
	"time"

	"db-ready/internal/catalog"
	"db-ready/internal/overlay"
	"db-ready/internal/report"
)

// Score turns raw measurements into a tiered readiness report. Contextual
// knowledge is applied here, after measurement, so the measured values in
// the report always reflect what the database actually contains.
func Score(ms []Measurement, cfg catalog.Config, ovl *overlay.Context, env report.Environment, gaps []catalog.Gap, audit []overlay.Applied) *report.Report {
	if ovl == nil {
		ovl = &overlay.Context{}
	}

	rep := &report.Report{
		GeneratedAt:    time.Now().UTC(),
		Environment:    env,
		Gaps:           gaps,
		ContextApplied: audit,
		ChecksRun:      len(ms),
	}

	for i := range ms {
		res := scoreOne(&ms[i], cfg, ovl, rep)
		rep.Results = append(rep.Results, res)
		if res.Verdicts[report.TierL1] == report.VerdictFail {
			rep.FailedChecks++
		}
	}

	for _, tier := range report.Tiers {
		rep.Tiers = append(rep.Tiers, rollUp(tier, rep.Results))
	}
	return rep
}

func scoreOne(m *Measurement, cfg catalog.Config, ovl *overlay.Context, rep *report.Report) *report.Result {
	ch := m.Check
	th := cfg.For(ch.Requirement)
	res := &report.Result{
		Requirement:   ch.Requirement,
		Factor:        ch.Factor,
		TargetType:    ch.TargetType,
		Target:        ch.Target,
		MeasuredValue: m.Value,
		Direction:     th.Direction.String(),
		Verdicts:      map[report.Tier]report.Verdict{},
		DurationMS:    m.Duration.Milliseconds(),
	}

	tiers := map[report.Tier]*float64{
		report.TierL1: th.L1,
		report.TierL2: th.L2,
		report.TierL3: th.L3,
	}
	applyContext(&ch, tiers, res, ovl, rep)
	res.Thresholds = tiers

	if m.Value == nil {
		res.Unmeasured = true
		res.ConfigError = m.ConfigError
		res.Reason = m.Reason
		for _, tier := range report.Tiers {
			res.Verdicts[tier] = report.VerdictSkip
		}
		return res
	}

	failed := false
	for _, tier := range report.Tiers {
		bound := tiers[tier]
		if bound == nil {
			res.Verdicts[tier] = report.VerdictSkip
			continue
		}
		if passes(th.Direction, *m.Value, *bound) {
			res.Verdicts[tier] = report.VerdictPass
		} else {
			res.Verdicts[tier] = report.VerdictFail
			failed = true
		}
	}

	if failed && ovl.IsFailureAccepted(string(ch.Requirement), ch.Target) {
		res.Annotation = "previously accepted"
		rep.ContextApplied = append(rep.ContextApplied, overlay.Applied{
			Kind: "acceptance", Target: ch.Target, Requirement: string(ch.Requirement),
		})
	}
	return res
}

// passes is boundary-inclusive in both directions: a value sitting exactly
// on the cutoff meets the tier.
func passes(dir catalog.Direction, value, bound float64) bool {
	if dir == catalog.DirectionMax {
		return value <= bound
	}
	return value >= bound
}

// applyContext rewrites the per-tier cutoffs from the overlay before the
// verdicts are computed.
func applyContext(ch *catalog.Check, tiers map[report.Tier]*float64, res *report.Result, ovl *overlay.Context, rep *report.Report) {
	note := func(kind, detail string) {
		rep.ContextApplied = append(rep.ContextApplied, overlay.Applied{
			Kind: kind, Target: ch.Target, Requirement: string(ch.Requirement), Detail: detail,
		})
	}

	if ch.Requirement == catalog.ReqNullRate && ovl.IsNullableByDesign(ch.Schema, ch.Table, ch.Column) {
		one, half := 1.0, 0.50
		tiers[report.TierL1] = &one
		tiers[report.TierL2] = &one
		tiers[report.TierL3] = &half
		res.Annotation = "nullable by design"
		note("override", "nullable by design")
	}

	if ch.Requirement == catalog.ReqPIIPatternRate && ovl.IsConfirmedPII(ch.Schema, ch.Table, ch.Column) {
		res.Annotation = "confirmed PII"
		note("annotation", "confirmed PII")
	}

	if ch.Requirement == catalog.ReqMaxStalenessHours {
		if sla, ok := ovl.FreshnessSLA(ch.Schema, ch.Table); ok {
			v := sla
			for _, tier := range report.Tiers {
				bound := v
				tiers[tier] = &bound
			}
			res.Annotation = fmt.Sprintf("freshness SLA %gh", sla)
			note("override", res.Annotation)
		}
	}

	if ov := ovl.OverrideFor(string(ch.Requirement), ch.Target); ov != nil {
		if ov.L1 != nil {
			tiers[report.TierL1] = ov.L1
		}
		if ov.L2 != nil {
			tiers[report.TierL2] = ov.L2
		}
		if ov.L3 != nil {
			tiers[report.TierL3] = ov.L3
		}
		if ov.Reason != "" {
			res.Annotation = ov.Reason
		}
		note("override", ov.Reason)
	}
}

// rollUp aggregates one tier across all results. Skipped checks never
// count toward the denominator; a factor with nothing measured scores nil,
// and the tier itself scores nil when no check was measured at all.
func rollUp(tier report.Tier, results []*report.Result) *report.TierScore {
	ts := &report.TierScore{Tier: tier}
	byFactor := make(map[catalog.Factor]*report.FactorScore, len(catalog.Factors))
	for _, f := range catalog.Factors {
		fs := &report.FactorScore{Factor: f}
		byFactor[f] = fs
		ts.Factors = append(ts.Factors, fs)
	}

	for _, res := range results {
		fs := byFactor[res.Factor]
		if fs == nil {
			continue
		}
		switch res.Verdicts[tier] {
		case report.VerdictPass:
			fs.Passed++
			fs.Measured++
		case report.VerdictFail:
			fs.Measured++
		case report.VerdictSkip:
			fs.Skipped++
		}
	}

	for _, fs := range ts.Factors {
		ts.Passed += fs.Passed
		ts.Measured += fs.Measured
		if fs.Measured > 0 {
			score := float64(fs.Passed) / float64(fs.Measured)
			fs.Score = &score
		}
	}
	if ts.Measured > 0 {
		score := float64(ts.Passed) / float64(ts.Measured)
		ts.Score = &score
	}
	return ts
}
