package catalog_test

import (
	"strings"
	"testing"

	"db-ready/internal/catalog"
	"db-ready/internal/inventory"
	"db-ready/internal/platform"
)

func testTable() (*inventory.Table, *inventory.Column) {
	col := &inventory.Column{Name: "email", DataType: "varchar", String: true}
	return &inventory.Table{Schema: "public", Name: "users", Columns: []*inventory.Column{col}}, col
}

func TestNullRateQuotesIdentifiers(t *testing.T) {
	tbl, col := testTable()
	q := catalog.NewBuilder(pgPlatform()).NullRate(tbl, col)

	if !strings.Contains(q, `"public"."users"`) {
		t.Errorf("Expected quoted table name, got %s", q)
	}
	if !strings.Contains(q, `"email"`) {
		t.Errorf("Expected quoted column name, got %s", q)
	}
	if !strings.Contains(q, "measured_value") {
		t.Errorf("Expected measured_value alias, got %s", q)
	}
}

func TestQuoteDoublingSurvivesHostileNames(t *testing.T) {
	col := &inventory.Column{Name: `e"m"ail`, DataType: "varchar"}
	tbl := &inventory.Table{Schema: "public", Name: `us"ers`, Columns: []*inventory.Column{col}}
	q := catalog.NewBuilder(pgPlatform()).NullRate(tbl, col)

	if !strings.Contains(q, `"us""ers"`) || !strings.Contains(q, `"e""m""ail"`) {
		t.Errorf("Expected doubled quotes in identifiers, got %s", q)
	}
}

func TestStalenessUsesPlatformClock(t *testing.T) {
	tbl, _ := testTable()
	col := &inventory.Column{Name: "updated_at", DataType: "timestamp", Timestamp: true}

	reg := platform.NewBuiltinRegistry()
	pgQ := catalog.NewBuilder(reg.Get("postgres")).StalenessHours(tbl, col)
	if !strings.Contains(pgQ, "EXTRACT(EPOCH") {
		t.Errorf("Expected EXTRACT(EPOCH ...) on postgres, got %s", pgQ)
	}
	myQ := catalog.NewBuilder(reg.Get("mysql")).StalenessHours(tbl, col)
	if !strings.Contains(myQ, "TIMESTAMPDIFF") {
		t.Errorf("Expected TIMESTAMPDIFF on mysql, got %s", myQ)
	}
	msQ := catalog.NewBuilder(reg.Get("sqlserver")).StalenessHours(tbl, col)
	if !strings.Contains(msQ, "DATEDIFF") {
		t.Errorf("Expected DATEDIFF on sqlserver, got %s", msQ)
	}
}

func TestValueDistributionUsesPlatformStddev(t *testing.T) {
	tbl, _ := testTable()
	col := &inventory.Column{Name: "amount", DataType: "numeric", Numeric: true}

	reg := platform.NewBuiltinRegistry()
	if q := catalog.NewBuilder(reg.Get("sqlserver")).ValueDistribution(tbl, col); !strings.Contains(q, "STDEV(") {
		t.Errorf("Expected STDEV on sqlserver, got %s", q)
	}
	if q := catalog.NewBuilder(reg.Get("postgres")).ValueDistribution(tbl, col); !strings.Contains(q, "STDDEV(") {
		t.Errorf("Expected STDDEV on postgres, got %s", q)
	}
}

func TestCommentCoverageIsPlatformSpecific(t *testing.T) {
	tbl, _ := testTable()
	reg := platform.NewBuiltinRegistry()

	if q := catalog.NewBuilder(reg.Get("postgres")).ColumnCommentCoverage(tbl); !strings.Contains(q, "pg_description") {
		t.Errorf("Expected pg_catalog comment source, got %s", q)
	}
	if q := catalog.NewBuilder(reg.Get("mysql")).ColumnCommentCoverage(tbl); !strings.Contains(q, "COLUMN_COMMENT") {
		t.Errorf("Expected COLUMN_COMMENT on mysql, got %s", q)
	}
	if q := catalog.NewBuilder(reg.Get("sqlserver")).ColumnCommentCoverage(tbl); !strings.Contains(q, "extended_properties") {
		t.Errorf("Expected extended_properties on sqlserver, got %s", q)
	}
	if q := catalog.NewBuilder(reg.Get("oracle")).ColumnCommentCoverage(tbl); !strings.Contains(q, "ALL_COL_COMMENTS") {
		t.Errorf("Expected ALL_COL_COMMENTS on oracle, got %s", q)
	}
}

func TestIndexCoverageOnlyWhereCatalogSupportsIt(t *testing.T) {
	reg := platform.NewBuiltinRegistry()
	if q := catalog.NewBuilder(reg.Get("postgres")).IndexCoverage(); q == "" {
		t.Error("Expected an index coverage query on postgres")
	}
	if q := catalog.NewBuilder(reg.Get("oracle")).IndexCoverage(); q != "" {
		t.Errorf("Expected no index coverage query on oracle, got %s", q)
	}
}
