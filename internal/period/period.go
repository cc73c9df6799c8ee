// Package period partitions raw records by calendar month of a date column so
// each month can be reported on its own.
package period

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"rxreport/internal/schema"
	"rxreport/pkg/records"
)

// LabelLayout formats month labels ("2024-09").
const LabelLayout = "2006-01"

const dateField schema.Field = "Date"

// Month is one calendar month of records, in source order.
type Month struct {
	Label string
	Table *records.Table
}

// Result is the outcome of Split.
type Result struct {
	// Column is the header the dates were read from.
	Column string
	// Months are ordered by Label ascending.
	Months []Month
	// Unparsed counts rows whose date cell was empty or did not match the
	// layout. They belong to no month.
	Unparsed int
	// FirstUnparsedLine is the source line of the first unparsed row, or 0.
	FirstUnparsedLine int
}

// Split groups tbl's records by month. columns are candidate date headers in
// priority order, matched the same way as hierarchy headers. A table without
// any of them is a *schema.SchemaError.
func Split(tbl *records.Table, columns []string, layout string) (Result, error) {
	if strings.TrimSpace(layout) == "" {
		return Result{}, fmt.Errorf("period: layout must not be empty")
	}
	m, err := schema.ResolveFields(tbl.Columns, schema.Synonyms{dateField: columns}, []schema.Field{dateField})
	if err != nil {
		return Result{}, err
	}
	col := m.Column(dateField)

	res := Result{Column: col}
	byLabel := map[string]*records.Table{}
	for i, rec := range tbl.Records {
		cell := strings.TrimSpace(rec[col])
		t, err := time.Parse(layout, cell)
		if cell == "" || err != nil {
			if res.Unparsed == 0 {
				res.FirstUnparsedLine = tbl.Line(i)
			}
			res.Unparsed++
			continue
		}
		label := t.Format(LabelLayout)
		mt, ok := byLabel[label]
		if !ok {
			mt = &records.Table{Columns: tbl.Columns}
			byLabel[label] = mt
		}
		mt.Records = append(mt.Records, rec)
		mt.Lines = append(mt.Lines, tbl.Line(i))
	}

	res.Months = make([]Month, 0, len(byLabel))
	for label, mt := range byLabel {
		res.Months = append(res.Months, Month{Label: label, Table: mt})
	}
	sort.Slice(res.Months, func(i, j int) bool { return res.Months[i].Label < res.Months[j].Label })
	return res, nil
}
