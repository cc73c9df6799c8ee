// Package schema binds loosely named input headers onto the canonical
// hierarchy schema. Binding is table driven: every logical field owns a
// priority-ordered synonym list and the first synonym present wins.
package schema

// Field is a logical (canonical) field name.
type Field string

// Canonical hierarchy fields, in schema order.
const (
	ZoneCode      Field = "ZoneCode"
	ZoneName      Field = "ZoneName"
	AreaCode      Field = "AreaCode"
	AreaName      Field = "AreaName"
	TerritoryCode Field = "TerritoryCode"
	RepName       Field = "RepName"
	AccountCode   Field = "AccountCode"
)

// Canonical is the ordered list of required fields. Every one of them must
// resolve before any reshaping happens.
var Canonical = []Field{
	ZoneCode,
	ZoneName,
	AreaCode,
	AreaName,
	TerritoryCode,
	RepName,
	AccountCode,
}

// Synonyms maps a logical field to its accepted raw header names, highest
// priority first.
type Synonyms map[Field][]string

// DefaultSynonyms returns the synonym table used by field extracts
// ("ZBM"/"ABM"/"TBM" naming and snake_case exports).
func DefaultSynonyms() Synonyms {
	return Synonyms{
		ZoneCode:      {"ZBM Code", "zbm_code", "ZBMCode"},
		ZoneName:      {"ZBM Name", "zbm_name", "ZBMName"},
		AreaCode:      {"ABM Code", "abm_code", "ABMCode"},
		AreaName:      {"ABM Name", "abm_name", "ABMName"},
		TerritoryCode: {"Territory Code", "territory_code", "TBM Code", "tbm_code"},
		RepName:       {"User: Full Name", "user_full_name", "TBM Name", "tbm_name"},
		AccountCode:   {"Account: Customer Code", "Dr Code", "doctor_code"},
	}
}

// Merge returns a copy of s where every field present in override replaces
// the default list. Fields absent from override keep their defaults.
func (s Synonyms) Merge(override map[string][]string) Synonyms {
	out := make(Synonyms, len(s)+len(override))
	for f, names := range s {
		out[f] = append([]string(nil), names...)
	}
	for f, names := range override {
		if len(names) == 0 {
			continue
		}
		out[Field(f)] = append([]string(nil), names...)
	}
	return out
}

// Mapping is the resolved logical → raw column binding.
type Mapping map[Field]string

// Column returns the raw column bound to f, or "" when unbound.
func (m Mapping) Column(f Field) string { return m[f] }
