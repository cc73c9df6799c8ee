package schema

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SchemaError reports every logical field that could not be bound, in the
// order the fields were requested.
type SchemaError struct {
	Missing []Field
}

func (e *SchemaError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("schema: missing required columns: %s", strings.Join(names, ", "))
}

// Resolve binds the canonical fields against columns using syn.
func Resolve(columns []string, syn Synonyms) (Mapping, error) {
	return ResolveFields(columns, syn, Canonical)
}

// ResolveFields binds fields against the raw header. For each field the
// synonym list is scanned twice: first for an exact header match, then for a
// folded match (case, accents, spacing and punctuation ignored). Synonym order
// decides within each pass. If any field stays unbound a *SchemaError listing
// all of them is returned and the partial mapping is discarded.
func ResolveFields(columns []string, syn Synonyms, fields []Field) (Mapping, error) {
	exact, folded := index(columns)

	m := make(Mapping, len(fields))
	var missing []Field
	for _, f := range fields {
		col, match := lookup(syn[f], exact, folded)
		if match == MatchMissing {
			missing = append(missing, f)
			continue
		}
		m[f] = col
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return m, nil
}

// Binding is the outcome of binding one field.
type Binding struct {
	Field    Field
	Column   string // empty when Match is MatchMissing
	Match    MatchKind
	Synonyms []string
}

// Explain binds every field like ResolveFields but never fails; missing
// fields come back with MatchMissing.
func Explain(columns []string, syn Synonyms, fields []Field) []Binding {
	exact, folded := index(columns)
	out := make([]Binding, len(fields))
	for i, f := range fields {
		col, match := lookup(syn[f], exact, folded)
		out[i] = Binding{Field: f, Column: col, Match: match, Synonyms: syn[f]}
	}
	return out
}

// index maps each header, raw and folded, to its first occurrence.
func index(columns []string) (exact, folded map[string]string) {
	exact = make(map[string]string, len(columns))
	folded = make(map[string]string, len(columns))
	for _, c := range columns {
		if _, ok := exact[c]; !ok {
			exact[c] = c
		}
		k := Fold(c)
		if _, ok := folded[k]; !ok {
			folded[k] = c
		}
	}
	return exact, folded
}

// MatchKind tells how a field was bound.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchFolded  MatchKind = "folded"
	MatchMissing MatchKind = "missing"
)

func lookup(names []string, exact, folded map[string]string) (string, MatchKind) {
	for _, n := range names {
		if c, ok := exact[strings.TrimSpace(n)]; ok {
			return c, MatchExact
		}
	}
	for _, n := range names {
		if k := Fold(n); k != "" {
			if c, ok := folded[k]; ok {
				return c, MatchFolded
			}
		}
	}
	return "", MatchMissing
}

// Fold reduces a header to a comparison key: lowercase ASCII letters and
// digits only, with accents stripped. "ZBM Code", "zbm_code" and "ZBMCode"
// all fold to "zbmcode".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		ascii = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(ascii))
	for _, r := range ascii {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
