package report

import (
	"fmt"
	"sort"
	"time"

	"db-ready/internal/catalog"
)

// Change is one requirement whose outcome moved between two reports.
type Change struct {
	Target      string              `json:"target"`
	Requirement catalog.Requirement `json:"requirement"`
	Before      *float64            `json:"before"`
	After       *float64            `json:"after"`
	// TierFlips lists tiers whose verdict changed, as "L2: fail -> pass".
	TierFlips []string `json:"tier_flips,omitempty"`
}

// ScoreDelta is one tier's score movement between the two runs. Delta is
// nil when either side was not assessed.
type ScoreDelta struct {
	Tier   Tier     `json:"tier"`
	Before *float64 `json:"before"`
	After  *float64 `json:"after"`
	Delta  *float64 `json:"delta"`
}

// FactorDelta carries one factor's per-tier score movement.
type FactorDelta struct {
	Factor catalog.Factor `json:"factor"`
	Tiers  []ScoreDelta   `json:"tiers"`
}

// Delta compares two assessment runs of the same database.
type Delta struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// Scores holds the overall per-tier movement, Factors the same broken
	// down by readiness factor.
	Scores  []ScoreDelta  `json:"scores,omitempty"`
	Factors []FactorDelta `json:"factors,omitempty"`

	Improvements []Change `json:"improvements,omitempty"`
	Regressions  []Change `json:"regressions,omitempty"`
	Added        []Change `json:"added,omitempty"`
	Removed      []Change `json:"removed,omitempty"`

	// Warnings carries non-fatal comparison caveats, such as the two runs
	// pointing at different connections.
	Warnings []string `json:"warnings,omitempty"`
}

// Changed reports whether anything moved between the two runs.
func (d *Delta) Changed() bool {
	return len(d.Improvements)+len(d.Regressions)+len(d.Added)+len(d.Removed) > 0
}

// Diff compares an older report against a newer one. Results are keyed by
// target and requirement; a result present on one side only is reported
// as added or removed, never as a regression. Comparing runs from
// different connections is allowed but flagged.
func Diff(before, after *Report) *Delta {
	d := &Delta{From: before.GeneratedAt, To: after.GeneratedAt}

	if before.Environment.Connection != after.Environment.Connection {
		d.Warnings = append(d.Warnings, fmt.Sprintf(
			"comparing different connections: %s vs %s",
			before.Environment.Connection, after.Environment.Connection))
	}
	if before.Environment.Platform != after.Environment.Platform {
		d.Warnings = append(d.Warnings, fmt.Sprintf(
			"comparing different platforms: %s vs %s",
			before.Environment.Platform, after.Environment.Platform))
	}

	d.Scores, d.Factors = scoreDeltas(before, after)

	type key struct {
		target string
		req    catalog.Requirement
	}
	old := make(map[key]*Result, len(before.Results))
	for _, r := range before.Results {
		old[key{r.Target, r.Requirement}] = r
	}

	seen := make(map[key]bool, len(after.Results))
	for _, r := range after.Results {
		k := key{r.Target, r.Requirement}
		seen[k] = true
		prev, ok := old[k]
		if !ok {
			d.Added = append(d.Added, Change{Target: r.Target, Requirement: r.Requirement, After: r.MeasuredValue})
			continue
		}
		flips, direction := compareVerdicts(prev, r)
		if len(flips) == 0 {
			continue
		}
		ch := Change{
			Target:      r.Target,
			Requirement: r.Requirement,
			Before:      prev.MeasuredValue,
			After:       r.MeasuredValue,
			TierFlips:   flips,
		}
		if direction > 0 {
			d.Improvements = append(d.Improvements, ch)
		} else {
			d.Regressions = append(d.Regressions, ch)
		}
	}

	for k, r := range old {
		if !seen[k] {
			d.Removed = append(d.Removed, Change{Target: r.Target, Requirement: r.Requirement, Before: r.MeasuredValue})
		}
	}

	sortChanges(d.Improvements)
	sortChanges(d.Regressions)
	sortChanges(d.Added)
	sortChanges(d.Removed)
	return d
}

// scoreDeltas computes the per-tier score movement, overall and per
// factor. A factor contributes only when both runs scored it.
func scoreDeltas(before, after *Report) ([]ScoreDelta, []FactorDelta) {
	var overall []ScoreDelta
	for _, tier := range Tiers {
		b, a := before.TierScoreFor(tier), after.TierScoreFor(tier)
		if b == nil && a == nil {
			continue
		}
		sd := ScoreDelta{Tier: tier}
		if b != nil {
			sd.Before = b.Score
		}
		if a != nil {
			sd.After = a.Score
		}
		sd.Delta = scoreDiff(sd.Before, sd.After)
		overall = append(overall, sd)
	}

	var factors []FactorDelta
	for _, tier := range Tiers {
		a := after.TierScoreFor(tier)
		if a == nil {
			continue
		}
		for _, fs := range a.Factors {
			fd := FactorDelta{Factor: fs.Factor}
			for _, t := range Tiers {
				sd := ScoreDelta{Tier: t}
				if bf := factorScoreFor(before, t, fs.Factor); bf != nil {
					sd.Before = bf.Score
				}
				if af := factorScoreFor(after, t, fs.Factor); af != nil {
					sd.After = af.Score
				}
				sd.Delta = scoreDiff(sd.Before, sd.After)
				fd.Tiers = append(fd.Tiers, sd)
			}
			factors = append(factors, fd)
		}
		break
	}
	return overall, factors
}

func factorScoreFor(r *Report, tier Tier, f catalog.Factor) *FactorScore {
	ts := r.TierScoreFor(tier)
	if ts == nil {
		return nil
	}
	for _, fs := range ts.Factors {
		if fs.Factor == f {
			return fs
		}
	}
	return nil
}

func scoreDiff(before, after *float64) *float64 {
	if before == nil || after == nil {
		return nil
	}
	d := *after - *before
	return &d
}

// compareVerdicts returns the per-tier flips and the net direction: positive
// when the highest-tier movement is fail to pass, negative for the reverse.
// Skips on either side do not count as movement.
func compareVerdicts(before, after *Result) ([]string, int) {
	var flips []string
	direction := 0
	for _, tier := range Tiers {
		b, a := before.Verdicts[tier], after.Verdicts[tier]
		if b == a || b == VerdictSkip || a == VerdictSkip {
			continue
		}
		flips = append(flips, fmt.Sprintf("%s: %s -> %s", tier, b, a))
		if a == VerdictPass {
			direction = 1
		} else {
			direction = -1
		}
	}
	return flips, direction
}

func sortChanges(cs []Change) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Target != cs[j].Target {
			return cs[i].Target < cs[j].Target
		}
		return cs[i].Requirement < cs[j].Requirement
	})
}
