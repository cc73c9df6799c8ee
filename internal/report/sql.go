package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"rxreport/internal/metrics"
	"rxreport/internal/rollup"
	"rxreport/internal/storage"
)

// DefaultTablePrefix prefixes every table the SQL sink writes.
const DefaultTablePrefix = "rx_"

// Table suffixes written by SQLSink.
const (
	TableRuns          = "runs"
	TableObservations  = "observations"
	TableMaster        = "master"
	TableZones         = "zones"
	TableNodeBreakdown = "node_breakdown"
	TableNodeBrands    = "node_brands"
	TableWide          = "wide"
)

// SQLConfig configures the database sink.
type SQLConfig struct {
	Storage         storage.Config
	TablePrefix     string
	AutoCreateTable bool
	BatchSize       int
}

// SQLSink appends every report table to a database. Each row carries the
// run id and period label so runs can share tables.
type SQLSink struct {
	cfg  SQLConfig
	repo storage.Repository
}

// NewSQLSink opens the configured backend.
func NewSQLSink(ctx context.Context, cfg SQLConfig) (*SQLSink, error) {
	if cfg.TablePrefix == "" {
		cfg.TablePrefix = DefaultTablePrefix
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5000
	}
	repo, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return &SQLSink{cfg: cfg, repo: repo}, nil
}

func (s *SQLSink) Name() string { return "sql:" + s.cfg.Storage.Kind }

func (s *SQLSink) Close() error {
	s.repo.Close()
	return nil
}

// Table returns the full table name for suffix.
func (s *SQLSink) Table(suffix string) string { return s.cfg.TablePrefix + suffix }

var runColumns = []column{
	{"Run", "run_id", storage.Text},
	{"Period", "period_label", storage.Text},
}

// Write loads r into the sink's tables, one table at a time.
func (s *SQLSink) Write(ctx context.Context, r *Report) error {
	tables := []struct {
		suffix string
		g      grid
	}{
		{TableRuns, runGrid(r)},
		{TableObservations, observationGrid(r.Selected)},
		{TableMaster, rollupGrid(r.Master)},
		{TableZones, rollupGrid(r.Zones)},
		{TableNodeBreakdown, nodeGrid(r.NodeKeys, r.BreakdownKeys, r.Nodes, breakdownOf)},
		{TableNodeBrands, nodeGrid(r.NodeKeys, brandKeys(r), r.Nodes, brandsOf)},
	}
	if r.Wide != nil {
		tables = append(tables, struct {
			suffix string
			g      grid
		}{TableWide, wideGrid(r.Wide, r.Slots)})
	}

	for _, t := range tables {
		name := s.Table(t.suffix)
		g := t.g
		if t.suffix != TableRuns {
			g = stamp(g, r.RunID, r.Label)
		}
		n, err := s.load(ctx, r.Job, name, g)
		if err != nil {
			return fmt.Errorf("sql: %s: %w", name, err)
		}
		metrics.RecordRow(r.Job, metrics.KindStoredRows, n)
	}
	return nil
}

func (s *SQLSink) load(ctx context.Context, job, table string, g grid) (int64, error) {
	def := storage.TableDef{Name: table}
	for _, c := range g.Columns {
		def.Columns = append(def.Columns, storage.Column{Name: c.Name, Type: c.Type})
	}
	if err := def.Validate(); err != nil {
		return 0, err
	}
	if s.cfg.AutoCreateTable {
		if err := s.repo.EnsureTable(ctx, def); err != nil {
			return 0, err
		}
	}

	start := time.Now()
	cols := def.ColumnNames()
	var batches int64
	n, err := storage.LoadBatches(ctx, cols, g.Rows, s.cfg.BatchSize,
		func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
			batches++
			return s.repo.CopyFrom(ctx, table, columns, rows)
		})
	metrics.RecordBatches(job, batches)
	if err != nil {
		return n, err
	}
	log.Printf("sql: table=%s rows=%d batches=%d elapsed=%s", table, n, batches, time.Since(start).Truncate(time.Millisecond))
	return n, nil
}

func breakdownOf(n rollup.Node) rollup.Table { return n.Breakdown }
func brandsOf(n rollup.Node) rollup.Table    { return n.Brands }

func brandKeys(r *Report) []rollup.Key { return rollup.WithBrand(r.BreakdownKeys) }

// stamp prepends the run columns to every row of g.
func stamp(g grid, runID, label string) grid {
	out := grid{Columns: append(append([]column(nil), runColumns...), g.Columns...)}
	out.Rows = make([][]any, len(g.Rows))
	for i, row := range g.Rows {
		out.Rows[i] = append([]any{runID, label}, row...)
	}
	return out
}

// runGrid is the single row describing the run itself.
func runGrid(r *Report) grid {
	g := grid{Columns: append(append([]column(nil), runColumns...),
		column{"Job", "job", storage.Text},
		column{"Source", "source", storage.Text},
		column{"Policy", "policy", storage.Text},
		column{"Slots", "slots", storage.Integer},
		column{"Created", "created_at", storage.Text},
	)}
	g.Columns = append(g.Columns, aggregateColumns...)
	row := []any{
		r.RunID, r.Label, r.Job, r.Source, r.Policy, int64(len(r.Slots)),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
	g.Rows = [][]any{append(row, aggregateValues(r.Totals)...)}
	return g
}
