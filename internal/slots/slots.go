// Package slots discovers the repeating brand/metric column pairs of a wide
// extract. Discovery runs once per input and yields a fixed plan that the row
// normalizer consumes for every record.
package slots

import (
	"fmt"
	"strings"
)

// Default naming convention of the field extract.
const (
	DefaultBrandTemplate  = "Brand%d: Brand Code"
	DefaultMetricTemplate = "Rx/Month%d"
	DefaultMax            = 10
)

// Convention holds the exact column name templates (each with a single %d
// verb for the 1-based slot index) and the highest index to probe.
type Convention struct {
	BrandTemplate  string
	MetricTemplate string
	Max            int
}

// DefaultConvention returns the extract's standard slot naming.
func DefaultConvention() Convention {
	return Convention{
		BrandTemplate:  DefaultBrandTemplate,
		MetricTemplate: DefaultMetricTemplate,
		Max:            DefaultMax,
	}
}

// Validate checks that both templates carry exactly one %d verb and that Max
// is positive.
func (c Convention) Validate() error {
	for _, tpl := range []string{c.BrandTemplate, c.MetricTemplate} {
		if strings.Count(tpl, "%d") != 1 || strings.Count(tpl, "%") != 1 {
			return fmt.Errorf("slots: template %q must contain exactly one %%d", tpl)
		}
	}
	if c.Max <= 0 {
		return fmt.Errorf("slots: max must be > 0, got %d", c.Max)
	}
	return nil
}

// BrandColumn returns the brand column name for slot i.
func (c Convention) BrandColumn(i int) string { return fmt.Sprintf(c.BrandTemplate, i) }

// MetricColumn returns the metric column name for slot i.
func (c Convention) MetricColumn(i int) string { return fmt.Sprintf(c.MetricTemplate, i) }

// Slot is one present brand/metric column pair.
type Slot struct {
	Index        int
	BrandColumn  string
	MetricColumn string
}

// Discover returns the slots 1..conv.Max whose brand and metric columns both
// exist in columns, in ascending index order. Half-present pairs are dropped
// silently; an empty result is not an error here (see Require).
func Discover(columns []string, conv Convention) []Slot {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}

	var out []Slot
	for i := 1; i <= conv.Max; i++ {
		b, m := conv.BrandColumn(i), conv.MetricColumn(i)
		if _, ok := present[b]; !ok {
			continue
		}
		if _, ok := present[m]; !ok {
			continue
		}
		out = append(out, Slot{Index: i, BrandColumn: b, MetricColumn: m})
	}
	return out
}

// HalfPresent returns the indexes 1..conv.Max where exactly one column of the
// pair exists. Discover ignores them; diagnostics surface them.
func HalfPresent(columns []string, conv Convention) []int {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	var out []int
	for i := 1; i <= conv.Max; i++ {
		_, b := present[conv.BrandColumn(i)]
		_, m := present[conv.MetricColumn(i)]
		if b != m {
			out = append(out, i)
		}
	}
	return out
}

// NoSlotsError is returned by Require when discovery found no slot pairs.
type NoSlotsError struct {
	Convention Convention
}

func (e *NoSlotsError) Error() string {
	return fmt.Sprintf("slots: no %q/%q column pairs found for indexes 1..%d",
		e.Convention.BrandTemplate, e.Convention.MetricTemplate, e.Convention.Max)
}

// Require returns a *NoSlotsError when found is empty.
func Require(found []Slot, conv Convention) error {
	if len(found) == 0 {
		return &NoSlotsError{Convention: conv}
	}
	return nil
}
