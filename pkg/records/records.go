// Package records holds the raw, source-of-truth view of an input extract: the
// ordered header and one Record per data row. Records are read once and never
// mutated by downstream stages.
package records

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// Record is one raw input row keyed by (trimmed) header name. A column that is
// not present in the map is absent; an empty string is an empty cell.
type Record map[string]string

// Get returns the raw cell for col and whether the column is present.
func (r Record) Get(col string) (string, bool) {
	v, ok := r[col]
	return v, ok
}

// Table is a fully read input: a stable column set shared by every record.
type Table struct {
	Columns []string
	Records []Record
	// Lines holds the 1-based source line of each record (parallel to
	// Records). It may be nil for tables built in memory.
	Lines []int
}

// Line returns the source line for record i. Tables without line tracking
// report header-relative positions (first data row is line 2).
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Len is the number of data records.
func (t *Table) Len() int { return len(t.Records) }

// ColumnSet returns the header as a set.
func (t *Table) ColumnSet() map[string]struct{} {
	set := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		set[c] = struct{}{}
	}
	return set
}

// Slice returns a table sharing the header and holding records [lo, hi).
func (t *Table) Slice(lo, hi int) *Table {
	out := &Table{Columns: t.Columns, Records: t.Records[lo:hi]}
	if len(t.Lines) >= hi {
		out.Lines = t.Lines[lo:hi]
	} else {
		out.Lines = make([]int, hi-lo)
		for i := range out.Lines {
			out.Lines[i] = lo + i + 2
		}
	}
	return out
}

// Fingerprint hashes the header and every cell in column order. Two tables with
// the same content (regardless of where they were read from) share a
// fingerprint.
func (t *Table) Fingerprint() string {
	h := xxh3.New()
	sep := []byte{0x1f}
	for _, c := range t.Columns {
		_, _ = h.WriteString(c)
		_, _ = h.Write(sep)
	}
	for _, r := range t.Records {
		_, _ = h.Write([]byte{0x1e})
		for _, c := range t.Columns {
			if v, ok := r[c]; ok {
				_, _ = h.WriteString(v)
			}
			_, _ = h.Write(sep)
		}
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
