package platform

import (
	"context"
	"database/sql"
	"strings"
)

// Base type-name sets shared by every platform. Platforms extend these via
// their Extra*Types fields; classification matches the declared type with
// any "(...)" size suffix stripped, case-insensitively.
var (
	BaseNumericTypes = []string{
		"int", "integer", "bigint", "smallint", "tinyint", "mediumint",
		"float", "double", "double precision", "decimal", "numeric",
		"real", "number", "money",
	}
	BaseStringTypes = []string{
		"varchar", "char", "text", "string", "nvarchar", "nchar",
		"character varying", "character", "clob", "varchar2", "nvarchar2",
	}
	BaseTimestampTypes = []string{
		"timestamp", "datetime", "datetime2", "date", "timestamptz",
		"timestamp with time zone", "timestamp without time zone",
		"timestamp with local time zone",
	}
)

// Platform is the declarative description of one supported data source.
// Everything dialect-specific lives here: how to connect, how to recognize
// the platform, how to quote identifiers, which metadata queries to run,
// and which extra type names count as numeric/string/timestamp.
type Platform struct {
	Name    string   // "postgres", "mysql", "sqlserver", "oracle", "generic"
	Driver  string   // database/sql driver name
	Schemes []string // DSN URL schemes that select this platform

	// Connect opens a *sql.DB for this platform. Nil means sql.Open(Driver, dsn).
	Connect func(dsn string) (*sql.DB, error)

	// DetectQuery is a cheap probe; the platform matches when the probe
	// succeeds and its first column contains DetectMatch (case-insensitive).
	// An empty DetectMatch means succeeding is enough. DetectFunc, when set,
	// replaces the SQL probe entirely.
	DetectQuery string
	DetectMatch string
	DetectFunc  func(ctx context.Context, db *sql.DB) bool

	Quote     string // identifier quote character
	CastFloat string // type name for CAST(... AS <float>)

	// ReadOnlySQL is executed once after connecting, where the platform
	// supports a session-level read-only setting. Best effort.
	ReadOnlySQL string

	// Metadata queries. Each takes the schema name as its single bind
	// parameter, in the placeholder style of the platform's driver.
	TablesQuery      string // -> table_catalog, table_schema, table_name, table_type
	ColumnsQuery     string // -> table_name, column_name, data_type, is_nullable, column_default, ordinal_position, description
	ConstraintsQuery string // -> table_name, constraint_name, constraint_type, column_name

	SystemSchemas []string // always excluded from discovery

	ExtraNumericTypes   []string
	ExtraStringTypes    []string
	ExtraTimestampTypes []string

	// WrapLimit turns a query into one returning at most n rows.
	// Nil means no sampling support; cardinality probes are skipped.
	WrapLimit func(query string, n int) string

	// Stddev is the aggregate function name for standard deviation.
	Stddev string

	// HoursSince renders a SQL expression for hours elapsed between the
	// given timestamp expression and now. Nil falls back to the ANSI
	// EXTRACT(EPOCH ...) form.
	HoursSince func(expr string) string

	// NumericLike renders a boolean SQL expression that is true when the
	// string column expression holds a numeric-looking value. Nil falls
	// back to ANSI SIMILAR TO.
	NumericLike func(expr string) string

	DefaultSchema    string // used when no schema list is supplied
	ConnectionFormat string // example DSN for help text
}

// StddevFunc returns the platform's standard-deviation aggregate.
func (p *Platform) StddevFunc() string {
	if p.Stddev != "" {
		return p.Stddev
	}
	return "STDDEV"
}

// HoursSinceExpr renders hours elapsed since the given timestamp expression.
func (p *Platform) HoursSinceExpr(expr string) string {
	if p.HoursSince != nil {
		return p.HoursSince(expr)
	}
	return "EXTRACT(EPOCH FROM (CURRENT_TIMESTAMP - " + expr + ")) / 3600.0"
}

// NumericLikeExpr renders the numeric-looking-value predicate.
func (p *Platform) NumericLikeExpr(expr string) string {
	if p.NumericLike != nil {
		return p.NumericLike(expr)
	}
	return expr + ` SIMILAR TO '-?[0-9]+(\.[0-9]*)?'`
}

// Open connects using the platform's factory or plain sql.Open, then applies
// the session read-only setting when one is defined.
func (p *Platform) Open(dsn string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	if p.Connect != nil {
		db, err = p.Connect(dsn)
	} else {
		db, err = sql.Open(p.Driver, dsn)
	}
	if err != nil {
		return nil, err
	}
	if p.ReadOnlySQL != "" {
		// Not every role may change the session; the executor's statement
		// validation still holds, so a failure here is not fatal.
		_, _ = db.Exec(p.ReadOnlySQL)
	}
	return db, nil
}

// QuoteIdent quotes a single identifier with the platform quote character.
// Embedded quote characters are doubled, so identifiers discovered from the
// catalog cannot break out of their quoting when substituted into a query.
func (p *Platform) QuoteIdent(ident string) string {
	return p.Quote + strings.ReplaceAll(ident, p.Quote, p.Quote+p.Quote) + p.Quote
}

// Qualify quotes and joins identifier parts: Qualify("s", "t") -> "s"."t".
func (p *Platform) Qualify(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = p.QuoteIdent(part)
	}
	return strings.Join(quoted, ".")
}

// IsSystemSchema reports whether the schema is platform housekeeping and
// must never be assessed.
func (p *Platform) IsSystemSchema(schema string) bool {
	for _, s := range p.SystemSchemas {
		if strings.EqualFold(s, schema) {
			return true
		}
	}
	return false
}

func matchesTypeSet(dataType string, set []string) bool {
	base := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.Index(base, "("); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	for _, t := range set {
		if base == t {
			return true
		}
	}
	return false
}

// IsNumericType classifies a declared type against the base set plus this
// platform's additions.
func (p *Platform) IsNumericType(dataType string) bool {
	return matchesTypeSet(dataType, BaseNumericTypes) ||
		matchesTypeSet(dataType, lowered(p.ExtraNumericTypes))
}

func (p *Platform) IsStringType(dataType string) bool {
	return matchesTypeSet(dataType, BaseStringTypes) ||
		matchesTypeSet(dataType, lowered(p.ExtraStringTypes))
}

func (p *Platform) IsTimestampType(dataType string) bool {
	return matchesTypeSet(dataType, BaseTimestampTypes) ||
		matchesTypeSet(dataType, lowered(p.ExtraTimestampTypes))
}

func lowered(set []string) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Registry holds the registered platforms in insertion order. It is built
// explicitly at process start and passed into the components that need it;
// there is no ambient global registry.
type Registry struct {
	platforms []*Platform
	byName    map[string]*Platform
	byScheme  map[string]*Platform
}

func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]*Platform),
		byScheme: make(map[string]*Platform),
	}
}

// Register appends a platform. Detection walks platforms in registration
// order and the first matching probe wins, so callers register the most
// specific probes first.
func (r *Registry) Register(p *Platform) {
	r.platforms = append(r.platforms, p)
	r.byName[p.Name] = p
	for _, scheme := range p.Schemes {
		r.byScheme[strings.ToLower(scheme)] = p
	}
}

func (r *Registry) Get(name string) *Platform {
	return r.byName[name]
}

// ByScheme resolves a platform from a DSN's URL scheme, or nil.
func (r *Registry) ByScheme(dsn string) *Platform {
	i := strings.Index(dsn, "://")
	if i < 0 {
		return nil
	}
	return r.byScheme[strings.ToLower(dsn[:i])]
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.platforms))
	for _, p := range r.platforms {
		names = append(names, p.Name)
	}
	return names
}

// Detect probes the connected source against each registered platform in
// order and returns the first match, or the generic fallback when none
// matches. Probe failures are treated as non-matches, never as errors.
func (r *Registry) Detect(ctx context.Context, db *sql.DB) *Platform {
	for _, p := range r.platforms {
		if p.DetectFunc != nil {
			if p.DetectFunc(ctx, db) {
				return p
			}
			continue
		}
		if p.DetectQuery == "" {
			continue
		}
		var probe sql.NullString
		if err := db.QueryRowContext(ctx, p.DetectQuery).Scan(&probe); err != nil {
			continue
		}
		if p.DetectMatch == "" ||
			strings.Contains(strings.ToLower(probe.String), strings.ToLower(p.DetectMatch)) {
			return p
		}
	}
	return Generic()
}
