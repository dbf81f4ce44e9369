// Package overlay holds user-supplied context that adjusts an assessment:
// scope exclusions, threshold relaxations, and accepted failures. The core
// never writes this document; it is authored by the user (or a surrounding
// interview tool) and read once per run.
package overlay

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Override replaces the default thresholds for one requirement on one
// target. Absent tiers keep their defaults; an explicitly null tier in the
// document disables that tier (it will report skip).
type Override struct {
	Target      string   `yaml:"target"`      // schema.table[.column], or "database"
	Requirement string   `yaml:"requirement"` // requirement key
	L1          *float64 `yaml:"l1"`
	L2          *float64 `yaml:"l2"`
	L3          *float64 `yaml:"l3"`
	Reason      string   `yaml:"reason"`
}

// Context is the full overlay document. Every field defaults to empty so
// an assessment works with no document at all.
type Context struct {
	// Scope. IncludedTables, when non-empty, switches to inclusion-first
	// scoping; exclusions still apply on top.
	IncludedTables  []string `yaml:"included_tables"`  // schema.table
	ExcludedSchemas []string `yaml:"excluded_schemas"` // schema
	ExcludedTables  []string `yaml:"excluded_tables"`  // schema.table
	ExcludedColumns []string `yaml:"excluded_columns"` // schema.table.column

	// Column knowledge.
	NullableByDesign []string `yaml:"nullable_by_design"` // schema.table.column
	FalsePositivePII []string `yaml:"false_positive_pii"` // schema.table.column
	ConfirmedPII     []string `yaml:"confirmed_pii"`      // schema.table.column
	ConfirmedKeys    []string `yaml:"confirmed_keys"`     // schema.table.column
	NotKeys          []string `yaml:"not_keys"`           // schema.table.column

	// Per-table freshness SLA in hours, replacing staleness defaults.
	FreshnessSLAs map[string]float64 `yaml:"freshness_slas"` // schema.table -> hours

	// Explicit threshold relaxations.
	Overrides []Override `yaml:"overrides"`

	// Failures triaged and accepted earlier, as "requirement|target".
	// Acceptance annotates the result but never alters scoring.
	AcceptedFailures []string `yaml:"accepted_failures"`

	// Declared capability availability, e.g. {iceberg: true, otel: false}.
	// A declaration always beats probing.
	Capabilities map[string]bool `yaml:"capabilities"`
}

// Load reads an overlay document. A missing path yields an empty Context so
// callers do not special-case "no overlay".
func Load(path string) (*Context, error) {
	if path == "" {
		return &Context{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Context{}, nil
		}
		return nil, fmt.Errorf("reading context file: %w", err)
	}
	var ctx Context
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}
	return &ctx, nil
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func fqn(parts ...string) string {
	return strings.Join(parts, ".")
}

// IsTableExcluded applies inclusion-first scoping, then schema and table
// exclusions. Exclusions win even in inclusion mode.
func (c *Context) IsTableExcluded(schema, table string) bool {
	if len(c.IncludedTables) > 0 && !containsFold(c.IncludedTables, fqn(schema, table)) {
		return true
	}
	if containsFold(c.ExcludedSchemas, schema) {
		return true
	}
	return containsFold(c.ExcludedTables, fqn(schema, table))
}

func (c *Context) IsColumnExcluded(schema, table, column string) bool {
	if c.IsTableExcluded(schema, table) {
		return true
	}
	return containsFold(c.ExcludedColumns, fqn(schema, table, column))
}

func (c *Context) IsNullableByDesign(schema, table, column string) bool {
	return containsFold(c.NullableByDesign, fqn(schema, table, column))
}

func (c *Context) IsFalsePositivePII(schema, table, column string) bool {
	return containsFold(c.FalsePositivePII, fqn(schema, table, column))
}

func (c *Context) IsConfirmedPII(schema, table, column string) bool {
	return containsFold(c.ConfirmedPII, fqn(schema, table, column))
}

func (c *Context) IsConfirmedKey(schema, table, column string) bool {
	return containsFold(c.ConfirmedKeys, fqn(schema, table, column))
}

func (c *Context) IsNotKey(schema, table, column string) bool {
	return containsFold(c.NotKeys, fqn(schema, table, column))
}

// FreshnessSLA returns the user's staleness bound for a table in hours,
// or false when none is set.
func (c *Context) FreshnessSLA(schema, table string) (float64, bool) {
	key := fqn(schema, table)
	if v, ok := c.FreshnessSLAs[key]; ok {
		return v, true
	}
	for k, v := range c.FreshnessSLAs {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return 0, false
}

// OverrideFor returns the explicit threshold override for a requirement on
// a target, or nil.
func (c *Context) OverrideFor(requirement, target string) *Override {
	for i := range c.Overrides {
		o := &c.Overrides[i]
		if strings.EqualFold(o.Requirement, requirement) && strings.EqualFold(o.Target, target) {
			return o
		}
	}
	return nil
}

func (c *Context) IsFailureAccepted(requirement, target string) bool {
	return containsFold(c.AcceptedFailures, requirement+"|"+target)
}

// DeclaredCapability reports the user's declaration for a capability tag.
// The second return is false when the user said nothing about it.
func (c *Context) DeclaredCapability(tag string) (bool, bool) {
	v, ok := c.Capabilities[tag]
	return v, ok
}

// Applied is one audit entry describing an overlay effect that fired.
type Applied struct {
	Kind        string `json:"kind"` // "exclusion", "override", "acceptance", "key_override", "capability"
	Target      string `json:"target"`
	Requirement string `json:"requirement,omitempty"`
	Detail      string `json:"detail,omitempty"`
}
