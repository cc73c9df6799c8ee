// Package rollup groups observations by prefixes of the organizational
// hierarchy (optionally with brand) and computes per-group counts, sums and
// distinct counts. Output order is ascending by group key, lexical on each
// component, so results do not depend on input row order.
package rollup

import (
	"fmt"
	"strings"

	"rxreport/internal/observation"
)

// Key names one grouping dimension.
type Key string

const (
	ZoneCode      Key = "zone_code"
	ZoneName      Key = "zone_name"
	AreaCode      Key = "area_code"
	AreaName      Key = "area_name"
	TerritoryCode Key = "territory_code"
	RepName       Key = "rep_name"
	AccountCode   Key = "account_code"
	Brand         Key = "brand"
)

// AllKeys lists every group key in hierarchy order.
var AllKeys = []Key{ZoneCode, ZoneName, AreaCode, AreaName, TerritoryCode, RepName, AccountCode, Brand}

var labels = map[Key]string{
	ZoneCode:      "ZBM Code",
	ZoneName:      "ZBM Name",
	AreaCode:      "ABM Code",
	AreaName:      "ABM Name",
	TerritoryCode: "TBM Code",
	RepName:       "TBM Name",
	AccountCode:   "Dr Code",
	Brand:         "Brand",
}

// Default key sets.
var (
	// MasterKeys is the master rollup grain: hierarchy plus brand.
	MasterKeys = []Key{ZoneCode, ZoneName, TerritoryCode, AreaCode, Brand}
	// NodeKeys identifies a top-level node (one output unit per zone).
	NodeKeys = []Key{ZoneCode, ZoneName}
	// BreakdownKeys is the nested grain inside a node.
	BreakdownKeys = []Key{ZoneCode, TerritoryCode, AreaCode}
)

// Label is the report column header for k.
func (k Key) Label() string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}

// Value extracts k from o.
func (k Key) Value(o *observation.Observation) string {
	switch k {
	case ZoneCode:
		return o.ZoneCode
	case ZoneName:
		return o.ZoneName
	case AreaCode:
		return o.AreaCode
	case AreaName:
		return o.AreaName
	case TerritoryCode:
		return o.TerritoryCode
	case RepName:
		return o.RepName
	case AccountCode:
		return o.AccountCode
	case Brand:
		return o.Brand
	}
	return ""
}

// ParseKeys converts configuration names to keys, rejecting unknown or
// repeated names.
func ParseKeys(names []string) ([]Key, error) {
	out := make([]Key, 0, len(names))
	seen := make(map[Key]bool, len(names))
	for _, n := range names {
		k := Key(strings.ToLower(strings.TrimSpace(n)))
		if _, ok := labels[k]; !ok {
			return nil, fmt.Errorf("rollup: unknown group key %q", n)
		}
		if seen[k] {
			return nil, fmt.Errorf("rollup: group key %q repeated", n)
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}

// Labels returns the report headers for keys.
func Labels(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Label()
	}
	return out
}
