package catalog

import (
	"fmt"
	"strings"

	"db-ready/internal/inventory"
	"db-ready/internal/platform"
)

// Builder renders the measurement query for one requirement against one
// target. Every query yields a single row with one column aliased
// measured_value; identifiers are quoted with the platform quote character
// and string literals are escaped, so discovered names cannot break out of
// their context.
type Builder struct {
	p *platform.Platform
}

func NewBuilder(p *platform.Platform) *Builder {
	return &Builder{p: p}
}

// lit renders a SQL string literal with embedded quotes doubled.
func lit(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (b *Builder) table(t *inventory.Table) string {
	return b.p.Qualify(t.Schema, t.Name)
}

func (b *Builder) ratio(numerator, denominator string) string {
	return fmt.Sprintf("CAST(%s AS %s) / NULLIF(%s, 0)", numerator, b.p.CastFloat, denominator)
}

// systemSchemaFilter renders the NOT IN list excluding platform schemas
// from database-wide information_schema scans.
func (b *Builder) systemSchemaFilter(column string) string {
	schemas := b.p.SystemSchemas
	if len(schemas) == 0 {
		schemas = []string{"information_schema"}
	}
	quoted := make([]string, len(schemas))
	for i, s := range schemas {
		quoted[i] = lit(s)
	}
	return fmt.Sprintf("%s NOT IN (%s)", column, strings.Join(quoted, ", "))
}

// ---------------------------------------------------------------------
// Column-level queries
// ---------------------------------------------------------------------

func (b *Builder) NullRate(t *inventory.Table, c *inventory.Column) string {
	col := b.p.QuoteIdent(c.Name)
	return fmt.Sprintf(
		"SELECT %s AS measured_value FROM %s",
		b.ratio(fmt.Sprintf("COUNT(*) - COUNT(%s)", col), "COUNT(*)"),
		b.table(t))
}

func (b *Builder) PIIPatternRate(t *inventory.Table, c *inventory.Column) string {
	col := b.p.QuoteIdent(c.Name)
	// LIKE-based shapes keep this portable: emails, SSN-like, phone-like.
	hit := fmt.Sprintf(
		"CASE WHEN %[1]s LIKE '%%@%%.%%' OR %[1]s LIKE '___-__-____' OR %[1]s LIKE '___-___-____' THEN 1 ELSE 0 END",
		col)
	return fmt.Sprintf(
		"SELECT %s AS measured_value FROM %s",
		b.ratio("SUM("+hit+")", fmt.Sprintf("COUNT(%s)", col)),
		b.table(t))
}

// TypeConsistency measures the share of non-null values on the dominant
// side of the numeric-looking / not-numeric-looking split. A column holding
// both "42" and "pending" scores below 1.0.
func (b *Builder) TypeConsistency(t *inventory.Table, c *inventory.Column) string {
	col := b.p.QuoteIdent(c.Name)
	numericish := fmt.Sprintf("CASE WHEN %s THEN 1 ELSE 0 END", b.p.NumericLikeExpr(col))
	dominant := fmt.Sprintf(
		"CASE WHEN SUM(%[1]s) > COUNT(%[2]s) - SUM(%[1]s) THEN SUM(%[1]s) ELSE COUNT(%[2]s) - SUM(%[1]s) END",
		numericish, col)
	return fmt.Sprintf(`SELECT CASE
    WHEN COUNT(%[1]s) = 0 THEN NULL
    ELSE %[2]s
END AS measured_value FROM %[3]s`,
		col,
		b.ratio(dominant, fmt.Sprintf("COUNT(%s)", col)),
		b.table(t))
}

// FormatConsistency measures the share of values following the dominant
// case convention (all-lower, all-upper, or mixed).
func (b *Builder) FormatConsistency(t *inventory.Table, c *inventory.Column) string {
	col := b.p.QuoteIdent(c.Name)
	bucket := fmt.Sprintf(
		"CASE WHEN %[1]s = LOWER(%[1]s) THEN 'lower' WHEN %[1]s = UPPER(%[1]s) THEN 'upper' ELSE 'mixed' END",
		col)
	return fmt.Sprintf(`SELECT %s AS measured_value FROM (
    SELECT %s AS fmt, COUNT(*) AS cnt
    FROM %s
    WHERE %s IS NOT NULL
    GROUP BY %s
) fmt_counts`,
		b.ratio("MAX(cnt)", "SUM(cnt)"),
		bucket, b.table(t), col, bucket)
}

// EnumConsistency compares the raw distinct count against the distinct
// count after case and whitespace normalization: label sets with variants
// like "Active"/"active " score below 1.0.
func (b *Builder) EnumConsistency(t *inventory.Table, c *inventory.Column) string {
	col := b.p.QuoteIdent(c.Name)
	return fmt.Sprintf(
		"SELECT %s AS measured_value FROM %s WHERE %s IS NOT NULL",
		b.ratio(
			fmt.Sprintf("COUNT(DISTINCT LOWER(TRIM(%s)))", col),
			fmt.Sprintf("COUNT(DISTINCT %s)", col)),
		b.table(t), col)
}

// ValueDistribution measures spread as range over standard deviation; a
// large ratio flags heavy outliers.
func (b *Builder) ValueDistribution(t *inventory.Table, c *inventory.Column) string {
	col := b.p.QuoteIdent(c.Name)
	return fmt.Sprintf(
		"SELECT CAST(MAX(%[1]s) - MIN(%[1]s) AS %[2]s) / NULLIF(%[3]s(%[1]s), 0) AS measured_value FROM %[4]s",
		col, b.p.CastFloat, b.p.StddevFunc(), b.table(t))
}

func (b *Builder) ZeroNegativeRate(t *inventory.Table, c *inventory.Column) string {
	col := b.p.QuoteIdent(c.Name)
	return fmt.Sprintf(
		"SELECT %s AS measured_value FROM %s",
		b.ratio(
			fmt.Sprintf("SUM(CASE WHEN %s <= 0 THEN 1 ELSE 0 END)", col),
			fmt.Sprintf("COUNT(%s)", col)),
		b.table(t))
}

func (b *Builder) DuplicateRate(t *inventory.Table, c *inventory.Column) string {
	col := b.p.QuoteIdent(c.Name)
	return fmt.Sprintf(
		"SELECT 1.0 - (%s) AS measured_value FROM %s",
		b.ratio(fmt.Sprintf("COUNT(DISTINCT %s)", col), fmt.Sprintf("COUNT(%s)", col)),
		b.table(t))
}

func (b *Builder) StalenessHours(t *inventory.Table, c *inventory.Column) string {
	col := b.p.QuoteIdent(c.Name)
	return fmt.Sprintf(
		"SELECT %s AS measured_value FROM %s WHERE %s IS NOT NULL",
		b.p.HoursSinceExpr(fmt.Sprintf("MAX(%s)", col)), b.table(t), col)
}

// ---------------------------------------------------------------------
// Table-level queries
// ---------------------------------------------------------------------

// ColumnCommentCoverage reads the platform's comment store directly; the
// ANSI fallback assumes an information_schema comment column (DuckDB,
// Snowflake), and a source without one records a measurement gap.
func (b *Builder) ColumnCommentCoverage(t *inventory.Table) string {
	switch b.p.Name {
	case "postgres":
		return fmt.Sprintf(`SELECT %s AS measured_value
FROM information_schema.columns c
LEFT JOIN pg_catalog.pg_statio_all_tables st
    ON st.schemaname = c.table_schema AND st.relname = c.table_name
LEFT JOIN pg_catalog.pg_description d
    ON d.objoid = st.relid AND d.objsubid = c.ordinal_position
WHERE c.table_schema = %s AND c.table_name = %s`,
			b.ratio("SUM(CASE WHEN d.description IS NOT NULL AND d.description != '' THEN 1 ELSE 0 END)", "COUNT(*)"),
			lit(t.Schema), lit(t.Name))
	case "mysql":
		return fmt.Sprintf(`SELECT %s AS measured_value
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = %s AND TABLE_NAME = %s`,
			b.ratio("SUM(CASE WHEN COLUMN_COMMENT IS NOT NULL AND COLUMN_COMMENT != '' THEN 1 ELSE 0 END)", "COUNT(*)"),
			lit(t.Schema), lit(t.Name))
	case "sqlserver":
		return fmt.Sprintf(`SELECT %s AS measured_value
FROM INFORMATION_SCHEMA.COLUMNS c
LEFT JOIN sys.extended_properties ep
    ON ep.major_id = OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME)
   AND ep.minor_id = c.ORDINAL_POSITION AND ep.name = 'MS_Description'
WHERE c.TABLE_SCHEMA = %s AND c.TABLE_NAME = %s`,
			b.ratio("SUM(CASE WHEN ep.value IS NOT NULL THEN 1 ELSE 0 END)", "COUNT(*)"),
			lit(t.Schema), lit(t.Name))
	case "oracle":
		return fmt.Sprintf(`SELECT %s AS measured_value
FROM ALL_COL_COMMENTS
WHERE OWNER = %s AND TABLE_NAME = %s`,
			b.ratio("SUM(CASE WHEN COMMENTS IS NOT NULL THEN 1 ELSE 0 END)", "COUNT(*)"),
			lit(t.Schema), lit(t.Name))
	}
	return fmt.Sprintf(`SELECT %s AS measured_value
FROM information_schema.columns
WHERE table_schema = %s AND table_name = %s`,
		b.ratio("SUM(CASE WHEN comment IS NOT NULL AND comment != '' THEN 1 ELSE 0 END)", "COUNT(*)"),
		lit(t.Schema), lit(t.Name))
}

// NamingConsistency measures the share of columns following the table's
// dominant naming convention.
func (b *Builder) NamingConsistency(t *inventory.Table) string {
	bucket := `CASE
        WHEN column_name = LOWER(column_name) THEN 'lower'
        WHEN column_name = UPPER(column_name) THEN 'upper'
        ELSE 'mixed'
    END`
	return fmt.Sprintf(`SELECT %s AS measured_value FROM (
    SELECT %s AS convention, COUNT(*) AS cnt
    FROM information_schema.columns
    WHERE table_schema = %s AND table_name = %s
    GROUP BY %s
) conventions`,
		b.ratio("MAX(cnt)", "SUM(cnt)"),
		bucket, lit(t.Schema), lit(t.Name), bucket)
}

func (b *Builder) ForeignKeyCoverage(t *inventory.Table) string {
	return fmt.Sprintf(`SELECT %s AS measured_value
FROM information_schema.columns c
LEFT JOIN information_schema.key_column_usage kcu
    ON c.table_schema = kcu.table_schema AND c.table_name = kcu.table_name
   AND c.column_name = kcu.column_name
LEFT JOIN information_schema.table_constraints tc
    ON kcu.constraint_name = tc.constraint_name
   AND kcu.table_schema = tc.table_schema
   AND tc.constraint_type = 'FOREIGN KEY'
WHERE c.table_schema = %s AND c.table_name = %s
  AND c.column_name LIKE '%%\_id' ESCAPE '\' AND c.column_name != 'id'`,
		b.ratio("SUM(CASE WHEN tc.constraint_type = 'FOREIGN KEY' THEN 1 ELSE 0 END)", "COUNT(*)"),
		lit(t.Schema), lit(t.Name))
}

func (b *Builder) AICompatibleTypeRate(t *inventory.Table) string {
	compatible := "'int','integer','bigint','smallint','tinyint','float','double'," +
		"'double precision','decimal','numeric','real','number','varchar','char'," +
		"'text','string','nvarchar','character varying','boolean','bool','timestamp'," +
		"'datetime','date','timestamptz','timestamp with time zone','json','jsonb'," +
		"'variant','array','object','vector'"
	return fmt.Sprintf(`SELECT %s AS measured_value
FROM information_schema.columns
WHERE table_schema = %s AND table_name = %s`,
		b.ratio(fmt.Sprintf("SUM(CASE WHEN LOWER(data_type) IN (%s) THEN 1 ELSE 0 END)", compatible), "COUNT(*)"),
		lit(t.Schema), lit(t.Name))
}

func (b *Builder) PIIColumnNameRate(t *inventory.Table) string {
	piiNames := []string{
		"%ssn%", "%email%", "%phone%", "%address%", "%birth%", "%passport%",
		"%salary%", "%credit_card%", "%first_name%", "%last_name%",
		"%full_name%", "%social_security%",
	}
	conds := make([]string, len(piiNames))
	for i, pat := range piiNames {
		conds[i] = fmt.Sprintf("LOWER(column_name) LIKE %s", lit(pat))
	}
	return fmt.Sprintf(`SELECT %s AS measured_value
FROM information_schema.columns
WHERE table_schema = %s AND table_name = %s`,
		b.ratio(fmt.Sprintf("SUM(CASE WHEN %s THEN 1 ELSE 0 END)", strings.Join(conds, "\n          OR ")), "COUNT(*)"),
		lit(t.Schema), lit(t.Name))
}

// SnapshotFreshness reads the table's versioned-storage metadata table.
func (b *Builder) SnapshotFreshness(t *inventory.Table) string {
	return fmt.Sprintf(
		"SELECT %s AS measured_value FROM %s",
		b.p.HoursSinceExpr("MAX(committed_at)"),
		b.p.Qualify(t.Schema, t.Name+"$snapshots"))
}

// ---------------------------------------------------------------------
// Database-level queries
// ---------------------------------------------------------------------

func (b *Builder) TableCommentCoverage() string {
	switch b.p.Name {
	case "postgres":
		return fmt.Sprintf(`SELECT %s AS measured_value
FROM pg_catalog.pg_stat_user_tables st
LEFT JOIN pg_catalog.pg_description d ON d.objoid = st.relid AND d.objsubid = 0`,
			b.ratio("SUM(CASE WHEN d.description IS NOT NULL AND d.description != '' THEN 1 ELSE 0 END)", "COUNT(*)"))
	case "mysql":
		return fmt.Sprintf(`SELECT %s AS measured_value
FROM information_schema.TABLES
WHERE %s AND TABLE_TYPE = 'BASE TABLE'`,
			b.ratio("SUM(CASE WHEN TABLE_COMMENT IS NOT NULL AND TABLE_COMMENT != '' THEN 1 ELSE 0 END)", "COUNT(*)"),
			b.systemSchemaFilter("TABLE_SCHEMA"))
	case "oracle":
		return fmt.Sprintf(`SELECT %s AS measured_value
FROM ALL_TAB_COMMENTS
WHERE %s`,
			b.ratio("SUM(CASE WHEN COMMENTS IS NOT NULL THEN 1 ELSE 0 END)", "COUNT(*)"),
			b.systemSchemaFilter("OWNER"))
	}
	return fmt.Sprintf(`SELECT %s AS measured_value
FROM information_schema.tables t
WHERE %s AND t.table_type IN ('BASE TABLE', 'TABLE', 'VIEW')`,
		b.ratio("SUM(CASE WHEN t.comment IS NOT NULL AND t.comment != '' THEN 1 ELSE 0 END)", "COUNT(*)"),
		b.systemSchemaFilter("t.table_schema"))
}

func (b *Builder) TimestampColumnCoverage() string {
	tsTypes := "'timestamp','datetime','datetime2','date','timestamptz'," +
		"'timestamp with time zone','timestamp without time zone','smalldatetime'"
	return fmt.Sprintf(`SELECT %s AS measured_value
FROM information_schema.columns c
JOIN information_schema.tables t
    ON c.table_schema = t.table_schema AND c.table_name = t.table_name
WHERE %s AND t.table_type IN ('BASE TABLE', 'TABLE')`,
		b.ratio(
			fmt.Sprintf("COUNT(DISTINCT CASE WHEN LOWER(c.data_type) IN (%s) THEN c.table_name END)", tsTypes),
			"COUNT(DISTINCT c.table_name)"),
		b.systemSchemaFilter("c.table_schema"))
}

func (b *Builder) ConstraintCoverage() string {
	return fmt.Sprintf(`SELECT CAST(COUNT(DISTINCT tc.table_name) AS %s) / NULLIF(
    (SELECT COUNT(*) FROM information_schema.tables
     WHERE %s AND table_type IN ('BASE TABLE', 'TABLE')), 0) AS measured_value
FROM information_schema.table_constraints tc
WHERE tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE') AND %s`,
		b.p.CastFloat,
		b.systemSchemaFilter("table_schema"),
		b.systemSchemaFilter("tc.table_schema"))
}

func (b *Builder) RBACCoverage() string {
	return fmt.Sprintf(`SELECT CAST(COUNT(DISTINCT tp.table_name) AS %s) / NULLIF(
    (SELECT COUNT(*) FROM information_schema.tables
     WHERE %s AND table_type IN ('BASE TABLE', 'TABLE')), 0) AS measured_value
FROM information_schema.table_privileges tp
WHERE tp.grantee NOT IN ('PUBLIC', 'public') AND %s`,
		b.p.CastFloat,
		b.systemSchemaFilter("table_schema"),
		b.systemSchemaFilter("tp.table_schema"))
}

// IndexCoverage is platform-native; only the platforms with a known index
// catalog render a query, others return "".
func (b *Builder) IndexCoverage() string {
	switch b.p.Name {
	case "postgres":
		return fmt.Sprintf(`SELECT CAST(COUNT(DISTINCT i.tablename) AS %s) / NULLIF(
    (SELECT COUNT(*) FROM pg_catalog.pg_tables WHERE %s), 0) AS measured_value
FROM pg_catalog.pg_indexes i
WHERE %s`,
			b.p.CastFloat,
			b.systemSchemaFilter("schemaname"),
			b.systemSchemaFilter("i.schemaname"))
	case "mysql":
		return fmt.Sprintf(`SELECT CAST(COUNT(DISTINCT s.TABLE_NAME) AS %s) / NULLIF(
    (SELECT COUNT(*) FROM information_schema.TABLES
     WHERE %s AND TABLE_TYPE = 'BASE TABLE'), 0) AS measured_value
FROM information_schema.STATISTICS s
WHERE %s`,
			b.p.CastFloat,
			b.systemSchemaFilter("TABLE_SCHEMA"),
			b.systemSchemaFilter("s.TABLE_SCHEMA"))
	}
	return ""
}

func (b *Builder) PipelineErrorRate() string {
	return fmt.Sprintf(
		"SELECT %s AS measured_value FROM otel_traces",
		b.ratio("SUM(CASE WHEN status_code = 'ERROR' THEN 1 ELSE 0 END)", "COUNT(*)"))
}
