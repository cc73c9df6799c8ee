package selection

import (
	"sort"

	"rxreport/internal/observation"
	"rxreport/internal/slots"
)

// Cell is one slot of a wide row. Present is false when the account has no
// surviving observation for the slot; such a cell is absent, not zero.
type Cell struct {
	Brand   string
	Metric  float64
	Present bool
}

// WideRow is one account with one cell per discovered slot.
type WideRow struct {
	observation.Hierarchy
	AccountCode string
	Cells       []Cell // parallel to the slot list passed to Widen
}

// Widen pivots selected observations back into one row per account. The
// hierarchy is taken from the account's first observation in sel. When
// several observations share an (account, slot) the BestPerAccountPerSlot
// rule decides. Rows are ordered by zone, area and territory, accounts keeping
// their first-seen order within equal prefixes.
func Widen(sel []Observation, found []slots.Slot) []WideRow {
	col := make(map[int]int, len(found))
	for i, s := range found {
		col[s.Index] = i
	}

	rowOf := make(map[string]int)
	var rows []WideRow
	for _, o := range sel {
		if _, ok := rowOf[o.AccountCode]; ok {
			continue
		}
		rowOf[o.AccountCode] = len(rows)
		rows = append(rows, WideRow{
			Hierarchy:   o.Hierarchy,
			AccountCode: o.AccountCode,
			Cells:       make([]Cell, len(found)),
		})
	}

	best := BestPerAccountPerSlot{}.Select(sel)
	for _, o := range best {
		if ci, ok := col[o.Slot]; ok {
			rows[rowOf[o.AccountCode]].Cells[ci] = Cell{Brand: o.Brand, Metric: o.Metric, Present: true}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Hierarchy, rows[j].Hierarchy
		switch {
		case a.ZoneCode != b.ZoneCode:
			return a.ZoneCode < b.ZoneCode
		case a.ZoneName != b.ZoneName:
			return a.ZoneName < b.ZoneName
		case a.AreaCode != b.AreaCode:
			return a.AreaCode < b.AreaCode
		}
		return a.TerritoryCode < b.TerritoryCode
	})
	return rows
}
