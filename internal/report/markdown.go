package report

import (
	"fmt"
	"strings"
)

const maxListedFailures = 50

// Markdown renders the report for humans. JSON output stays the machine
// format; this rendering is lossy on purpose.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# AI Readiness Assessment\n\n")
	fmt.Fprintf(&b, "- Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Platform: %s\n", r.Environment.Platform)
	if r.Environment.Version != "" {
		fmt.Fprintf(&b, "- Version: %s\n", r.Environment.Version)
	}
	fmt.Fprintf(&b, "- Connection: %s\n", r.Environment.Connection)
	fmt.Fprintf(&b, "- Scope: %d tables, %d columns, %d checks\n", r.Environment.Tables, r.Environment.Columns, r.ChecksRun)
	if len(r.Environment.Capabilities) > 0 {
		fmt.Fprintf(&b, "- Capabilities: %s\n", strings.Join(r.Environment.Capabilities, ", "))
	}
	if len(r.Environment.Unavailable) > 0 {
		fmt.Fprintf(&b, "- Unavailable: %s\n", strings.Join(r.Environment.Unavailable, ", "))
	}
	for _, gap := range r.Environment.PermissionGaps {
		fmt.Fprintf(&b, "- Permission gap: %s\n", gap)
	}
	b.WriteByte('\n')

	b.WriteString("## Tier Scores\n\n")
	b.WriteString("| Tier | Score | Verdict | Passed / Measured |\n")
	b.WriteString("|------|-------|---------|-------------------|\n")
	for _, ts := range r.Tiers {
		fmt.Fprintf(&b, "| %s | %s | %s | %d / %d |\n",
			ts.Tier, scoreCell(ts.Score), band(ts.Score), ts.Passed, ts.Measured)
	}
	b.WriteString("\n## Factor Breakdown\n\n")
	b.WriteString("| Factor | L1 | L2 | L3 |\n")
	b.WriteString("|--------|----|----|----|\n")
	if len(r.Tiers) == 3 {
		for i, fs := range r.Tiers[0].Factors {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", fs.Factor,
				scoreCell(fs.Score),
				scoreCell(r.Tiers[1].Factors[i].Score),
				scoreCell(r.Tiers[2].Factors[i].Score))
		}
	}

	failures := r.failures()
	if len(failures) > 0 {
		fmt.Fprintf(&b, "\n## Failing Checks (%d)\n\n", len(failures))
		listed := failures
		if len(listed) > maxListedFailures {
			listed = listed[:maxListedFailures]
		}
		for _, res := range listed {
			fmt.Fprintf(&b, "- `%s` %s: measured %s, needs %s", res.Target, res.Requirement,
				valueCell(res.MeasuredValue), boundCell(res))
			if res.Annotation != "" {
				fmt.Fprintf(&b, " (%s)", res.Annotation)
			}
			b.WriteByte('\n')
		}
		if len(failures) > maxListedFailures {
			fmt.Fprintf(&b, "- ... and %d more\n", len(failures)-maxListedFailures)
		}
	}

	var broken []*Result
	for _, res := range r.Results {
		if res.ConfigError {
			broken = append(broken, res)
		}
	}
	if len(broken) > 0 {
		fmt.Fprintf(&b, "\n## Configuration Errors (%d)\n\n", len(broken))
		for _, res := range broken {
			fmt.Fprintf(&b, "- `%s` %s: %s\n", res.Target, res.Requirement, res.Reason)
		}
	}

	if len(r.Gaps) > 0 {
		b.WriteString("\n## Not Assessed\n\n")
		for _, gap := range r.Gaps {
			if gap.Requirement != "" {
				fmt.Fprintf(&b, "- %s (%s): %s\n", gap.Requirement, gap.Factor, gap.Reason)
			} else {
				fmt.Fprintf(&b, "- %s: %s\n", gap.Factor, gap.Reason)
			}
		}
	}

	if len(r.ContextApplied) > 0 {
		b.WriteString("\n## Context Applied\n\n")
		for _, a := range r.ContextApplied {
			fmt.Fprintf(&b, "- %s on `%s`", a.Kind, a.Target)
			if a.Requirement != "" {
				fmt.Fprintf(&b, " / %s", a.Requirement)
			}
			if a.Detail != "" {
				fmt.Fprintf(&b, ": %s", a.Detail)
			}
			b.WriteByte('\n')
		}
	}

	return b.String()
}

func (r *Report) failures() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if res.Verdicts[TierL1] == VerdictFail {
			out = append(out, res)
		}
	}
	return out
}

// Markdown renders a run-over-run comparison.
func (d *Delta) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Assessment Diff\n\n")
	fmt.Fprintf(&b, "- From: %s\n", d.From.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- To:   %s\n\n", d.To.Format("2006-01-02 15:04:05 UTC"))

	for _, w := range d.Warnings {
		fmt.Fprintf(&b, "> Warning: %s\n\n", w)
	}

	if len(d.Scores) > 0 {
		b.WriteString("## Scores\n\n")
		b.WriteString("| Tier | Before | After | Delta |\n")
		b.WriteString("|------|--------|-------|-------|\n")
		for _, s := range d.Scores {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				s.Tier, scoreCell(s.Before), scoreCell(s.After), deltaCell(s.Delta))
		}
		b.WriteByte('\n')
	}
	if len(d.Factors) > 0 {
		b.WriteString("## Factor Deltas\n\n")
		b.WriteString("| Factor | L1 | L2 | L3 |\n")
		b.WriteString("|--------|----|----|----|\n")
		for _, fd := range d.Factors {
			cells := make([]string, len(fd.Tiers))
			for i, sd := range fd.Tiers {
				cells[i] = deltaCell(sd.Delta)
			}
			fmt.Fprintf(&b, "| %s | %s |\n", fd.Factor, strings.Join(cells, " | "))
		}
		b.WriteByte('\n')
	}

	if !d.Changed() {
		b.WriteString("No check-level changes.\n")
		return b.String()
	}

	section := func(title string, cs []Change, arrow bool) {
		if len(cs) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s (%d)\n\n", title, len(cs))
		for _, c := range cs {
			fmt.Fprintf(&b, "- `%s` %s", c.Target, c.Requirement)
			if arrow {
				fmt.Fprintf(&b, ": %s -> %s", valueCell(c.Before), valueCell(c.After))
				if len(c.TierFlips) > 0 {
					fmt.Fprintf(&b, " [%s]", strings.Join(c.TierFlips, ", "))
				}
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	section("Improvements", d.Improvements, true)
	section("Regressions", d.Regressions, true)
	section("New Checks", d.Added, false)
	section("Removed Checks", d.Removed, false)
	return b.String()
}

func scoreCell(s *float64) string {
	if s == nil {
		return "not assessed"
	}
	return fmt.Sprintf("%.0f%%", *s*100)
}

func deltaCell(d *float64) string {
	if d == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.0f%%", *d*100)
}

func valueCell(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", *v)
}

func boundCell(res *Result) string {
	bound := res.Thresholds[TierL1]
	if bound == nil {
		return "n/a"
	}
	op := "<="
	if res.Direction == "min" {
		op = ">="
	}
	return fmt.Sprintf("%s %.4g", op, *bound)
}

func band(s *float64) string {
	switch {
	case s == nil:
		return "not assessed"
	case *s >= 0.95:
		return "READY"
	case *s >= 0.80:
		return "NEARLY READY"
	case *s >= 0.50:
		return "NEEDS WORK"
	default:
		return "NOT READY"
	}
}
