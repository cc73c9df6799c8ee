// Package config defines the pipeline document for a report run. It decodes
// from JSON or YAML; field names mirror the keys used in pipeline files.
//
// Example (trimmed):
//
//	{
//	  "job":    "rx-monthly",
//	  "source": { "kind": "file", "file": { "path": "data/extract.csv" } },
//	  "parser": { "kind": "csv", "options": { "encodings": ["utf-8", "cp1252"] } },
//	  "policy": "best_per_account_per_slot",
//	  "report": { "xlsx": { "path": "out/RX_Report.xlsx" } }
//	}
package config

// Pipeline is the top-level document.
type Pipeline struct {
	// Job labels metrics and log lines.
	Job    string `json:"job" yaml:"job"`
	Source Source `json:"source" yaml:"source"`
	Parser Parser `json:"parser" yaml:"parser"`
	Schema Schema `json:"schema" yaml:"schema"`
	Slots  Slots  `json:"slots" yaml:"slots"`

	// Policy names the selection policy; empty means keep_all.
	Policy string `json:"policy" yaml:"policy"`

	// Period, when set, splits the extract by month before reshaping.
	Period *Period `json:"period,omitempty" yaml:"period,omitempty"`

	Report  Report        `json:"report" yaml:"report"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// Source identifies where the extract comes from: "file" or "http".
type Source struct {
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
	HTTP SourceHTTP `json:"http" yaml:"http"`
}

// SourceFile holds the "file" source options.
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// SourceHTTP holds the "http" source options.
type SourceHTTP struct {
	URL            string            `json:"url" yaml:"url"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	MaxRetries     int               `json:"max_retries" yaml:"max_retries"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Parser selects how bytes become a table. Only "csv" exists.
//
// CSV options: comma (string), lazy_quotes (bool), trim_space (bool),
// encodings ([]string, tried in order).
type Parser struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Schema overrides header synonyms. Keys are logical field names
// ("ZoneCode", "AccountCode", ...); a present key replaces that field's
// default list.
type Schema struct {
	Synonyms map[string][]string `json:"synonyms" yaml:"synonyms"`
}

// Slots overrides the brand/metric column naming convention. Zero values keep
// the defaults.
type Slots struct {
	BrandTemplate  string `json:"brand_template" yaml:"brand_template"`
	MetricTemplate string `json:"metric_template" yaml:"metric_template"`
	Max            int    `json:"max" yaml:"max"`
	// Required fails the run when no slot is found. Defaults to true.
	Required *bool `json:"required,omitempty" yaml:"required,omitempty"`
}

// RequireSlots reports the effective Required value.
func (s Slots) RequireSlots() bool { return s.Required == nil || *s.Required }

// Period configures the month split.
type Period struct {
	// Column lists candidate date headers, first present wins.
	Column []string `json:"column" yaml:"column"`
	// Layout is a Go time layout; default "02-01-06" (day-month-2-digit year).
	Layout string `json:"layout" yaml:"layout"`
}

// Report configures grouping and sinks.
type Report struct {
	// Group key overrides by key name (zone_code, territory_code, ...).
	MasterKeys    []string `json:"master_keys" yaml:"master_keys"`
	NodeKeys      []string `json:"node_keys" yaml:"node_keys"`
	BreakdownKeys []string `json:"breakdown_keys" yaml:"breakdown_keys"`

	XLSX    *XLSXSink    `json:"xlsx,omitempty" yaml:"xlsx,omitempty"`
	Storage *StorageSink `json:"storage,omitempty" yaml:"storage,omitempty"`
}

// XLSXSink writes the master workbook and, optionally, one workbook per
// top-level node.
type XLSXSink struct {
	Path string `json:"path" yaml:"path"`
	// NodeDir, when set, receives one "<node>.xlsx" per top-level node.
	NodeDir string `json:"node_dir" yaml:"node_dir"`
	// Wide adds the per-account pivot sheet.
	Wide bool `json:"wide" yaml:"wide"`
	// CombinedPath, with a period split, receives one sheet holding every
	// period's pivot side by side.
	CombinedPath string `json:"combined_path" yaml:"combined_path"`
}

// StorageSink writes report tables through a storage backend.
type StorageSink struct {
	Kind string `json:"kind" yaml:"kind"` // postgres, mssql, mysql, sqlite
	DSN  string `json:"dsn" yaml:"dsn"`
	// TablePrefix is prepended to every table name, e.g. "public.rx_".
	TablePrefix string `json:"table_prefix" yaml:"table_prefix"`
	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS before loading.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// RuntimeConfig controls parallelism and batching.
type RuntimeConfig struct {
	NormalizeWorkers int `json:"normalize_workers" yaml:"normalize_workers"`
	ReduceWorkers    int `json:"reduce_workers" yaml:"reduce_workers"`
	BatchSize        int `json:"batch_size" yaml:"batch_size"`
	// WarningSample caps the metric parse warnings kept for the summary.
	WarningSample int `json:"warning_sample" yaml:"warning_sample"`
}
