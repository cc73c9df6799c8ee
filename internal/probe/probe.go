// Package probe inspects an extract without reporting on it: how each
// hierarchy field binds, which slots exist and what is left over. It backs
// the rxprobe command and answers "why did my run fail with a schema error".
package probe

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"rxreport/internal/schema"
	"rxreport/internal/slots"
	"rxreport/pkg/records"
)

// Report is the outcome of Inspect.
type Report struct {
	Source  string           `json:"source"`
	Rows    int              `json:"rows"`
	Columns []string         `json:"columns"`
	Fields  []schema.Binding `json:"fields"`
	Slots   []slots.Slot     `json:"slots"`
	// HalfSlots are indexes with a brand or metric column but not both.
	HalfSlots []int `json:"half_slots,omitempty"`
	// Unused are columns neither bound to a field nor part of a slot.
	Unused []string `json:"unused,omitempty"`
	// Ready is true when a report run over this header would not fail on
	// schema or slot discovery.
	Ready bool `json:"ready"`
}

// Missing lists the fields that did not bind.
func (r Report) Missing() []schema.Field {
	var out []schema.Field
	for _, b := range r.Fields {
		if b.Match == schema.MatchMissing {
			out = append(out, b.Field)
		}
	}
	return out
}

// Inspect binds tbl's header the same way a run does.
func Inspect(source string, tbl *records.Table, syn schema.Synonyms, conv slots.Convention) Report {
	r := Report{
		Source:    source,
		Rows:      tbl.Len(),
		Columns:   tbl.Columns,
		Fields:    schema.Explain(tbl.Columns, syn, schema.Canonical),
		Slots:     slots.Discover(tbl.Columns, conv),
		HalfSlots: slots.HalfPresent(tbl.Columns, conv),
	}

	used := make(map[string]bool)
	for _, b := range r.Fields {
		if b.Column != "" {
			used[b.Column] = true
		}
	}
	for _, s := range r.Slots {
		used[s.BrandColumn] = true
		used[s.MetricColumn] = true
	}
	for _, c := range tbl.Columns {
		if !used[c] {
			r.Unused = append(r.Unused, c)
		}
	}
	r.Ready = len(r.Missing()) == 0 && len(r.Slots) > 0
	return r
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes r as an aligned table for terminals.
func WriteText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "source:\t%s\n", r.Source)
	fmt.Fprintf(tw, "rows:\t%d\n", r.Rows)
	fmt.Fprintf(tw, "columns:\t%d\n\n", len(r.Columns))

	fmt.Fprintln(tw, "FIELD\tCOLUMN\tMATCH")
	for _, b := range r.Fields {
		col := b.Column
		if b.Match == schema.MatchMissing {
			col = "(tried " + strings.Join(b.Synonyms, ", ") + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Field, col, b.Match)
	}

	fmt.Fprintln(tw, "\nSLOT\tBRAND\tMETRIC")
	for _, s := range r.Slots {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Index, s.BrandColumn, s.MetricColumn)
	}
	if len(r.HalfSlots) > 0 {
		fmt.Fprintf(tw, "\nhalf-present slots:\t%v\n", r.HalfSlots)
	}
	if len(r.Unused) > 0 {
		fmt.Fprintf(tw, "unused columns:\t%s\n", strings.Join(r.Unused, ", "))
	}
	fmt.Fprintf(tw, "\nready:\t%t\n", r.Ready)
	return tw.Flush()
}
