package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"db-ready/internal/catalog"
)

// Measurement is the raw outcome of running one check, before scoring.
type Measurement struct {
	Check    catalog.Check
	Value    *float64
	Reason   string // set when Value is nil
	Duration time.Duration

	// ConfigError marks a check whose query failed read-only validation.
	// The query was never executed; the check definition itself is broken.
	ConfigError bool
}

// Executor runs generated checks against one connection. Every query is
// validated as read-only before it touches the database; a query that
// fails validation is never executed and comes back as a configuration
// error for that one check while the rest of the batch proceeds.
type Executor struct {
	db *sql.DB

	// Concurrency bounds the worker pool. Zero means sequential.
	Concurrency int
	// CheckTimeout bounds each individual query. Zero means no per-check
	// deadline beyond the run context.
	CheckTimeout time.Duration
	// Progress, when set, is called once per finished check.
	Progress func(done, total int)
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db, Concurrency: 4, CheckTimeout: 30 * time.Second}
}

// Run executes all checks and returns one measurement per check, ordered
// by target then requirement. Individual query failures degrade to
// unmeasured results and read-only violations to configuration errors;
// only context cancellation fails the run.
func (e *Executor) Run(ctx context.Context, checks []catalog.Check) ([]Measurement, error) {
	measurements := make([]Measurement, len(checks))
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	if e.Concurrency > 1 {
		g.SetLimit(e.Concurrency)
	} else {
		g.SetLimit(1)
	}

	var mu sync.Mutex

	for i, ch := range checks {
		i, ch := i, ch
		g.Go(func() error {
			m := e.runOne(gctx, ch)
			measurements[i] = m
			if e.Progress != nil {
				mu.Lock()
				done++
				e.Progress(done, len(checks))
				mu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(measurements, func(a, b int) bool {
		if measurements[a].Check.Target != measurements[b].Check.Target {
			return measurements[a].Check.Target < measurements[b].Check.Target
		}
		return measurements[a].Check.Requirement < measurements[b].Check.Requirement
	})
	return measurements, nil
}

func (e *Executor) runOne(ctx context.Context, ch catalog.Check) Measurement {
	if err := ValidateReadOnly(ch.Query); err != nil {
		log.Printf("CONFIGURATION ERROR: check %s %s: %v (never executed)", ch.Target, ch.Requirement, err)
		return Measurement{
			Check:       ch,
			Reason:      fmt.Sprintf("configuration error: %v", err),
			ConfigError: true,
		}
	}

	if e.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.CheckTimeout)
		defer cancel()
	}

	start := time.Now()
	value, reason := e.query(ctx, ch.Query)
	m := Measurement{Check: ch, Value: value, Reason: reason, Duration: time.Since(start)}
	if reason != "" {
		log.Printf("check %s %s: %s", ch.Target, ch.Requirement, reason)
	}
	return m
}

// query runs a single-row measurement query. The measured value is the
// column named measured_value when present, otherwise the first column.
func (e *Executor) query(ctx context.Context, q string) (*float64, string) {
	rows, err := e.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Sprintf("query failed: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Sprintf("reading columns: %v", err)
	}
	idx := 0
	for i, name := range cols {
		if name == "measured_value" || name == "MEASURED_VALUE" {
			idx = i
			break
		}
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Sprintf("reading row: %v", err)
		}
		return nil, "query returned no rows"
	}

	dest := make([]any, len(cols))
	var v sql.NullFloat64
	for i := range dest {
		if i == idx {
			dest[i] = &v
		} else {
			dest[i] = new(sql.RawBytes)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Sprintf("scanning row: %v", err)
	}
	if !v.Valid {
		return nil, "measurement is NULL"
	}
	val := v.Float64
	return &val, ""
}
