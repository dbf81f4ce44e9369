package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"db-ready/internal/overlay"
	"db-ready/internal/platform"
)

// Options controls a discovery pass.
type Options struct {
	// Schemas to assess. Empty means the platform's default schema.
	Schemas []string

	// CardinalitySample bounds the sampled distinct-count probe on string
	// columns. Zero disables the probe entirely (DistinctValues stays nil
	// and small-cardinality rules do not fire).
	CardinalitySample int
}

// Discover enumerates tables, columns, and constraints for every in-scope
// schema and classifies each column. A schema that cannot be enumerated is
// recorded as a permissions gap; discovery continues with the rest.
func Discover(ctx context.Context, db *sql.DB, p *platform.Platform, ovl *overlay.Context, opts Options) (*Inventory, error) {
	inv := &Inventory{Platform: p.Name}
	if ovl == nil {
		ovl = &overlay.Context{}
	}

	schemas := opts.Schemas
	if len(schemas) == 0 {
		if p.DefaultSchema == "" {
			return nil, fmt.Errorf("no schemas specified and platform %q has no default", p.Name)
		}
		schemas = []string{p.DefaultSchema}
	}

	for _, schema := range schemas {
		if p.IsSystemSchema(schema) || containsFold(ovl.ExcludedSchemas, schema) {
			continue
		}
		tables, err := discoverSchema(ctx, db, p, ovl, schema)
		if err != nil {
			// Permission failures downgrade coverage, they do not abort.
			inv.PermissionGaps = append(inv.PermissionGaps,
				fmt.Sprintf("schema %s could not be enumerated: %v", schema, err))
			log.Printf("Warning: skipping schema %s: %v", schema, err)
			continue
		}
		inv.Tables = append(inv.Tables, tables...)
	}

	if opts.CardinalitySample > 0 && p.WrapLimit != nil {
		probeCardinality(ctx, db, p, inv, opts.CardinalitySample)
	}

	return inv, nil
}

func discoverSchema(ctx context.Context, db *sql.DB, p *platform.Platform, ovl *overlay.Context, schema string) ([]*Table, error) {
	rows, err := db.QueryContext(ctx, p.TablesQuery, schema)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	defer rows.Close()

	tableMap := make(map[string]*Table)
	var tables []*Table
	for rows.Next() {
		var catalog, tschema, name, kind sql.NullString
		if err := rows.Scan(&catalog, &tschema, &name, &kind); err != nil {
			return nil, fmt.Errorf("scanning table row: %w", err)
		}
		if !name.Valid {
			continue
		}
		if ovl.IsTableExcluded(schema, name.String) {
			continue
		}
		t := &Table{
			Catalog: catalog.String,
			Schema:  schema,
			Name:    name.String,
			Kind:    kind.String,
		}
		tableMap[strings.ToUpper(t.Name)] = t
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}

	if err := fetchColumns(ctx, db, p, schema, tableMap, ovl); err != nil {
		return nil, err
	}

	// Constraints may be unreadable with a restricted role. Classification
	// falls back to the name heuristic in that case.
	if err := fetchConstraints(ctx, db, p, schema, tableMap); err != nil {
		log.Printf("Warning: constraints unavailable for %s: %v", schema, err)
	}

	for _, t := range tables {
		Classify(p, t, ovl)
	}
	return tables, nil
}

func fetchColumns(ctx context.Context, db *sql.DB, p *platform.Platform, schema string, tableMap map[string]*Table, ovl *overlay.Context) error {
	rows, err := db.QueryContext(ctx, p.ColumnsQuery, schema)
	if err != nil {
		return fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tName, cName, dType, isNull, cDefault, description sql.NullString
		var ordinal sql.NullInt64
		if err := rows.Scan(&tName, &cName, &dType, &isNull, &cDefault, &ordinal, &description); err != nil {
			return fmt.Errorf("scanning column row (table %s): %w", tName.String, err)
		}
		if !tName.Valid || !cName.Valid {
			continue
		}
		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}
		if ovl.IsColumnExcluded(t.Schema, t.Name, cName.String) {
			continue
		}
		t.Columns = append(t.Columns, &Column{
			Name:        cName.String,
			DataType:    dType.String,
			Nullable:    strings.EqualFold(isNull.String, "YES"),
			Default:     cDefault.String,
			Ordinal:     int(ordinal.Int64),
			Description: description.String,
		})
	}
	return rows.Err()
}

func fetchConstraints(ctx context.Context, db *sql.DB, p *platform.Platform, schema string, tableMap map[string]*Table) error {
	rows, err := db.QueryContext(ctx, p.ConstraintsQuery, schema)
	if err != nil {
		return fmt.Errorf("querying constraints: %w", err)
	}
	defer rows.Close()

	// Rows arrive one per (constraint, column); group them back so a
	// composite key is one constraint covering several columns.
	type conKey struct {
		table string
		name  string
	}
	grouped := make(map[conKey]*Constraint)
	owner := make(map[conKey]*Table)
	var order []conKey
	for rows.Next() {
		var tName, conName, conType, cName sql.NullString
		if err := rows.Scan(&tName, &conName, &conType, &cName); err != nil {
			return fmt.Errorf("scanning constraint row: %w", err)
		}
		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok || !conType.Valid || !cName.Valid {
			continue
		}
		key := conKey{table: t.Name, name: conName.String}
		if con, ok := grouped[key]; ok {
			con.Columns = append(con.Columns, cName.String)
			continue
		}
		grouped[key] = &Constraint{
			Type:    strings.ToUpper(conType.String),
			Columns: []string{cName.String},
		}
		owner[key] = t
		order = append(order, key)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, key := range order {
		t := owner[key]
		t.Constraints = append(t.Constraints, *grouped[key])
	}
	return nil
}

// probeCardinality samples distinct counts for string columns so the
// generator can apply its small-cardinality rules. A failed probe leaves
// DistinctValues nil; the dependent checks simply do not fire.
func probeCardinality(ctx context.Context, db *sql.DB, p *platform.Platform, inv *Inventory, sample int) {
	for _, t := range inv.Tables {
		for _, c := range t.Columns {
			if !c.String {
				continue
			}
			inner := fmt.Sprintf("SELECT %s AS v FROM %s", p.QuoteIdent(c.Name), p.Qualify(t.Schema, t.Name))
			q := fmt.Sprintf("SELECT COUNT(DISTINCT v) FROM (%s) sampled", p.WrapLimit(inner, sample))
			var n sql.NullInt64
			if err := db.QueryRowContext(ctx, q).Scan(&n); err != nil || !n.Valid {
				continue
			}
			v := n.Int64
			c.DistinctValues = &v
		}
	}
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
