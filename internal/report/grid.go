package report

import (
	"strconv"

	"rxreport/internal/observation"
	"rxreport/internal/rollup"
	"rxreport/internal/selection"
	"rxreport/internal/slots"
	"rxreport/internal/storage"
)

// column is one output column. Label is the workbook header, Name the SQL
// column.
type column struct {
	Label string
	Name  string
	Type  storage.ColumnType
}

// grid is a rendered table shared by every sink.
type grid struct {
	Columns []column
	Rows    [][]any
}

func (g grid) labels() []string {
	out := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		out[i] = c.Label
	}
	return out
}

var hierarchyColumns = []column{
	{"ZBM Code", "zone_code", storage.Text},
	{"ZBM Name", "zone_name", storage.Text},
	{"ABM Code", "area_code", storage.Text},
	{"ABM Name", "area_name", storage.Text},
	{"TBM Code", "territory_code", storage.Text},
	{"TBM Name", "rep_name", storage.Text},
	{"Dr Code", "account_code", storage.Text},
}

func hierarchyValues(h observation.Hierarchy, account string) []any {
	return []any{h.ZoneCode, h.ZoneName, h.AreaCode, h.AreaName, h.TerritoryCode, h.RepName, account}
}

// observationGrid is the long "All Data" view.
func observationGrid(obs []observation.Observation) grid {
	g := grid{Columns: append(append([]column(nil), hierarchyColumns...),
		column{"Slot", "slot", storage.Integer},
		column{"Brand", "brand", storage.Text},
		column{"Rx", "rx", storage.Real},
		column{"Line", "source_line", storage.Integer},
	)}
	g.Rows = make([][]any, len(obs))
	for i := range obs {
		o := &obs[i]
		g.Rows[i] = append(hierarchyValues(o.Hierarchy, o.AccountCode),
			int64(o.Slot), o.Brand, o.Metric, int64(o.Line))
	}
	return g
}

var aggregateColumns = []column{
	{"Total Rows", "observations", storage.Integer},
	{"Total Rx", "total_rx", storage.Real},
	{"Mean Rx", "mean_rx", storage.Real},
	{"Max Rx", "max_rx", storage.Real},
	{"Unique Doctors", "unique_doctors", storage.Integer},
	{"Unique Brands", "unique_brands", storage.Integer},
	{"Unique TBM", "unique_territories", storage.Integer},
	{"Unique ABM", "unique_areas", storage.Integer},
}

func aggregateValues(r rollup.Row) []any {
	return []any{
		int64(r.Observations), r.SumMetric, r.MeanMetric, r.MaxMetric,
		int64(r.DistinctAccounts), int64(r.DistinctBrands),
		int64(r.DistinctTerritories), int64(r.DistinctAreas),
	}
}

func keyColumns(keys []rollup.Key, namePrefix string) []column {
	out := make([]column, len(keys))
	for i, k := range keys {
		out[i] = column{k.Label(), namePrefix + string(k), storage.Text}
	}
	return out
}

// rollupGrid renders a grouped table: key columns then aggregates.
func rollupGrid(t rollup.Table) grid {
	g := grid{Columns: append(keyColumns(t.Keys, ""), aggregateColumns...)}
	g.Rows = make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, 0, len(g.Columns))
		for _, v := range r.Key {
			row = append(row, v)
		}
		g.Rows[i] = append(row, aggregateValues(r)...)
	}
	return g
}

// nodeGrid concatenates one table per node, prefixing each row with the
// node key so rows stay attributable once flattened. inner are the keys of
// the per-node table part returns.
func nodeGrid(nodeKeys, inner []rollup.Key, nodes []rollup.Node, part func(rollup.Node) rollup.Table) grid {
	g := grid{Columns: append(keyColumns(nodeKeys, "node_"), rollupGrid(rollup.Table{Keys: inner}).Columns...)}
	for _, n := range nodes {
		for _, row := range rollupGrid(part(n)).Rows {
			out := make([]any, 0, len(n.Key)+len(row))
			for _, v := range n.Key {
				out = append(out, v)
			}
			g.Rows = append(g.Rows, append(out, row...))
		}
	}
	return g
}

// wideGrid renders one row per account with a brand/rx column pair per slot.
func wideGrid(rows []selection.WideRow, found []slots.Slot) grid {
	g := grid{Columns: append([]column(nil), hierarchyColumns...)}
	for _, s := range found {
		i := strconv.Itoa(s.Index)
		g.Columns = append(g.Columns,
			column{s.BrandColumn, "brand_" + i, storage.Text},
			column{s.MetricColumn, "rx_" + i, storage.Real},
		)
	}
	g.Rows = make([][]any, len(rows))
	for i, r := range rows {
		row := hierarchyValues(r.Hierarchy, r.AccountCode)
		for _, c := range r.Cells {
			if c.Present {
				row = append(row, c.Brand, c.Metric)
			} else {
				row = append(row, nil, nil)
			}
		}
		g.Rows[i] = row
	}
	return g
}

// combinedGap is the number of blank columns between two period blocks.
const combinedGap = 10

// combinedRows lays each report's wide table side by side. title holds each
// report's label above the first column of its block, header the column
// labels. rows are padded to the longest block; cells outside a block are
// nil.
func combinedRows(reports []*Report) (title, header []any, rows [][]any) {
	grids := make([]grid, len(reports))
	offsets := make([]int, len(reports))
	width, depth := 0, 0
	for i, r := range reports {
		wide := r.Wide
		if wide == nil {
			wide = selection.Widen(r.Selected, r.Slots)
		}
		grids[i] = wideGrid(wide, r.Slots)
		if i > 0 {
			width += combinedGap
		}
		offsets[i] = width
		width += len(grids[i].Columns)
		depth = max(depth, len(grids[i].Rows))
	}

	title = make([]any, width)
	header = make([]any, width)
	rows = make([][]any, depth)
	for i := range rows {
		rows[i] = make([]any, width)
	}
	for i, g := range grids {
		off := offsets[i]
		title[off] = reports[i].Label
		if reports[i].Label == "" {
			title[off] = "Part " + strconv.Itoa(i+1)
		}
		for j, l := range g.labels() {
			header[off+j] = l
		}
		for ri, row := range g.Rows {
			copy(rows[ri][off:], row)
		}
	}
	return title, header, rows
}
