package inventory

import (
	"strings"

	"db-ready/internal/overlay"
	"db-ready/internal/platform"
)

// Column is one discovered column with its derived classification flags.
// Flags are computed once during discovery and never mutated afterwards.
type Column struct {
	Name        string
	DataType    string
	Nullable    bool
	Default     string
	Ordinal     int
	Description string

	Numeric      bool
	String       bool
	Timestamp    bool
	CandidateKey bool

	// DistinctValues is a sampled cardinality for string columns, used by
	// the generator's small-cardinality rules. Nil when the probe was
	// skipped or failed.
	DistinctValues *int64
}

func (c *Column) HasDescription() bool {
	return strings.TrimSpace(c.Description) != ""
}

// Constraint is one declared table constraint and the columns it covers.
type Constraint struct {
	Type    string // "PRIMARY KEY", "UNIQUE", "FOREIGN KEY"
	Columns []string
}

// Table is one discovered table or view with its columns and constraints.
type Table struct {
	Catalog     string
	Schema      string
	Name        string
	Kind        string // "BASE TABLE" or "VIEW"
	Columns     []*Column
	Constraints []Constraint
}

// FQN returns the schema-qualified name used as a check target.
func (t *Table) FQN() string {
	return t.Schema + "." + t.Name
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// hasKeyConstraint reports whether a PRIMARY KEY or UNIQUE constraint covers
// exactly the given column. Multi-column constraints do not make any single
// member column a candidate key on its own.
func (t *Table) hasKeyConstraint(column string) bool {
	for _, con := range t.Constraints {
		if con.Type != "PRIMARY KEY" && con.Type != "UNIQUE" {
			continue
		}
		if len(con.Columns) == 1 && strings.EqualFold(con.Columns[0], column) {
			return true
		}
	}
	return false
}

// hasForeignKeyOn reports whether a declared FOREIGN KEY constraint covers
// the given column.
func (t *Table) HasForeignKeyOn(column string) bool {
	for _, con := range t.Constraints {
		if con.Type != "FOREIGN KEY" {
			continue
		}
		for _, c := range con.Columns {
			if strings.EqualFold(c, column) {
				return true
			}
		}
	}
	return false
}

// Inventory is everything one run discovered: the tables in scope, the
// resolved platform identity, and capability availability. Built once,
// read-only afterwards.
type Inventory struct {
	Tables         []*Table
	Platform       string
	Available      []string // capability tags usable this run
	Unavailable    []string // optional tags that probed negative
	PermissionGaps []string // schemas or objects that could not be enumerated
}

func (inv *Inventory) HasCapability(tag string) bool {
	for _, t := range inv.Available {
		if t == tag {
			return true
		}
	}
	return false
}

func (inv *Inventory) ColumnCount() int {
	n := 0
	for _, t := range inv.Tables {
		n += len(t.Columns)
	}
	return n
}

// keyLikeName is the documented name heuristic for candidate keys: a column
// named exactly "id" or ending in "_id" is presumed unique. It can be wrong
// for columns that are merely named that way; the overlay's confirmed_keys /
// not_keys entries are the escape hatch.
func keyLikeName(name string) bool {
	n := strings.ToLower(name)
	return n == "id" || strings.HasSuffix(n, "_id")
}

// Classify fills the derived flags of every column in the table.
func Classify(p *platform.Platform, t *Table, ctx *overlay.Context) {
	for _, c := range t.Columns {
		classify(p, t, c, ctx)
	}
}

// classify fills a column's derived flags. Constraints are authoritative for
// candidate keys; the name heuristic only applies when no constraint covers
// the column. Overlay key overrides are applied last and win over both.
func classify(p *platform.Platform, t *Table, c *Column, ctx *overlay.Context) {
	c.Numeric = p.IsNumericType(c.DataType)
	c.String = p.IsStringType(c.DataType)
	c.Timestamp = p.IsTimestampType(c.DataType)

	if t.hasKeyConstraint(c.Name) {
		c.CandidateKey = true
	} else {
		c.CandidateKey = keyLikeName(c.Name)
	}

	if ctx != nil {
		if ctx.IsConfirmedKey(t.Schema, t.Name, c.Name) {
			c.CandidateKey = true
		}
		if ctx.IsNotKey(t.Schema, t.Name, c.Name) {
			c.CandidateKey = false
		}
	}
}
