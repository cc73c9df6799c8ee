// Package observation turns raw wide records into long-form observations:
// one (account, hierarchy, brand, metric, slot) tuple per non-empty brand cell.
//
// A Normalizer compiles the resolved schema and discovered slots into a
// positional plan once, so the per-record hot path does no header lookups
// beyond the map reads themselves and no string building.
package observation

import (
	"math"
	"strconv"
	"strings"

	"rxreport/internal/schema"
	"rxreport/internal/slots"
	"rxreport/pkg/records"
)

// Hierarchy carries the organizational identifiers of one record.
type Hierarchy struct {
	ZoneCode      string
	ZoneName      string
	AreaCode      string
	AreaName      string
	TerritoryCode string
	RepName       string
}

// Observation is the normalized unit flowing into selection and rollup.
type Observation struct {
	Hierarchy
	AccountCode string
	Brand       string
	Metric      float64
	Slot        int
	// Line is the source line of the record the observation came from.
	Line int
}

// MetricParseWarning records a metric cell that was coerced to 0 because it
// did not parse as a number. It is informational only.
type MetricParseWarning struct {
	Line   int
	Column string
	Raw    string
}

// ParseMetric parses a locale-agnostic decimal. Surrounding whitespace is
// ignored. An empty cell yields (0, true); an unparsable, NaN or infinite
// value yields (0, false).
func ParseMetric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

type slotPlan struct {
	index  int
	brand  string
	metric string
}

// Normalizer maps raw records to observations for one input's column plan.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	zoneCode, zoneName string
	areaCode, areaName string
	territory, rep     string
	account            string
	slots              []slotPlan
}

// NewNormalizer compiles the column plan from a resolved mapping and the
// discovered slot list.
func NewNormalizer(m schema.Mapping, found []slots.Slot) *Normalizer {
	n := &Normalizer{
		zoneCode:  m.Column(schema.ZoneCode),
		zoneName:  m.Column(schema.ZoneName),
		areaCode:  m.Column(schema.AreaCode),
		areaName:  m.Column(schema.AreaName),
		territory: m.Column(schema.TerritoryCode),
		rep:       m.Column(schema.RepName),
		account:   m.Column(schema.AccountCode),
		slots:     make([]slotPlan, len(found)),
	}
	for i, s := range found {
		n.slots[i] = slotPlan{index: s.Index, brand: s.BrandColumn, metric: s.MetricColumn}
	}
	return n
}

// Slots returns the number of slot pairs in the plan.
func (n *Normalizer) Slots() int { return len(n.slots) }

// Row emits the observations of one record in slot-index order. Slots whose
// brand cell is empty after trimming produce nothing. Metric parse failures
// become 0 and are reported through the returned warnings.
func (n *Normalizer) Row(rec records.Record, line int) ([]Observation, []MetricParseWarning) {
	var (
		out   []Observation
		warns []MetricParseWarning
		h     Hierarchy
		acct  string
		ready bool
	)
	for _, sp := range n.slots {
		brand := strings.TrimSpace(rec[sp.brand])
		if brand == "" {
			continue
		}
		if !ready {
			h = n.hierarchy(rec)
			acct = cell(rec, n.account)
			ready = true
		}
		raw := rec[sp.metric]
		v, ok := ParseMetric(raw)
		if !ok {
			warns = append(warns, MetricParseWarning{Line: line, Column: sp.metric, Raw: raw})
		}
		out = append(out, Observation{
			Hierarchy:   h,
			AccountCode: acct,
			Brand:       brand,
			Metric:      v,
			Slot:        sp.index,
			Line:        line,
		})
	}
	return out, warns
}

func (n *Normalizer) hierarchy(rec records.Record) Hierarchy {
	return Hierarchy{
		ZoneCode:      cell(rec, n.zoneCode),
		ZoneName:      cell(rec, n.zoneName),
		AreaCode:      cell(rec, n.areaCode),
		AreaName:      cell(rec, n.areaName),
		TerritoryCode: cell(rec, n.territory),
		RepName:       cell(rec, n.rep),
	}
}

func cell(rec records.Record, col string) string {
	if col == "" {
		return ""
	}
	return strings.TrimSpace(rec[col])
}
