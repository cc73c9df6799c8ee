package config

import (
	"fmt"
	"strings"
	"time"

	"rxreport/internal/rollup"
	"rxreport/internal/schema"
	"rxreport/internal/selection"
	"rxreport/internal/slots"
)

// IssueSeverity is the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one validation finding. Path is a dotted path into the document
// ("report.storage.kind", "schema.synonyms.ZoneCode").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline lints p without mutating it. Run it after ApplyDefaults.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateSchema(p.Schema)...)
	issues = append(issues, validateSlots(p.Slots)...)
	if _, err := selection.ByName(p.Policy); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "policy",
			Message:  fmt.Sprintf("unknown policy %q; one of %s", p.Policy, strings.Join(selection.Names(), ", ")),
		})
	}
	issues = append(issues, validatePeriod(p.Period)...)
	issues = append(issues, validateReport(p.Report)...)
	if x := p.Report.XLSX; x != nil && x.CombinedPath != "" && p.Period == nil {
		issues = append(issues, Issue{SeverityWarning, "report.xlsx.combined_path", "combined_path has no effect without a period split"})
	}
	issues = append(issues, validateRuntime(p.Runtime)...)
	return issues
}

func validateSource(s Source) []Issue {
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			return []Issue{{SeverityError, "source.file.path", "file source requires a non-empty path"}}
		}
	case "http":
		u := strings.TrimSpace(s.HTTP.URL)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return []Issue{{SeverityError, "source.http.url", fmt.Sprintf("http source requires an http(s) url, got %q", s.HTTP.URL)}}
		}
		if s.HTTP.MaxRetries < 0 {
			return []Issue{{SeverityError, "source.http.max_retries", "max_retries must not be negative"}}
		}
	case "":
		return []Issue{{SeverityError, "source.kind", "source.kind must not be empty"}}
	default:
		return []Issue{{SeverityError, "source.kind", fmt.Sprintf("unknown source kind %q; one of file, http", s.Kind)}}
	}
	return nil
}

func validateParser(p Parser) []Issue {
	if p.Kind != "csv" {
		return []Issue{{SeverityError, "parser.kind", fmt.Sprintf("unknown parser kind %q; only csv is supported", p.Kind)}}
	}
	var issues []Issue
	if c, ok := p.Options["comma"].(string); ok && len([]rune(c)) != 1 {
		issues = append(issues, Issue{SeverityError, "parser.options.comma", fmt.Sprintf("comma must be a single character, got %q", c)})
	}
	if v, ok := p.Options["encodings"]; ok && len(p.Options.StringSlice("encodings")) == 0 {
		issues = append(issues, Issue{SeverityWarning, "parser.options.encodings", fmt.Sprintf("encodings %v has no names; defaults apply", v)})
	}
	return issues
}

func validateSchema(s Schema) []Issue {
	known := make(map[string]struct{}, len(schema.Canonical))
	for _, f := range schema.Canonical {
		known[string(f)] = struct{}{}
	}
	var issues []Issue
	for f, names := range s.Synonyms {
		path := "schema.synonyms." + f
		if _, ok := known[f]; !ok {
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("unknown field %q", f)})
			continue
		}
		if len(names) == 0 {
			issues = append(issues, Issue{SeverityWarning, path, "empty synonym list; defaults apply"})
		}
		for _, n := range names {
			if strings.TrimSpace(n) == "" {
				issues = append(issues, Issue{SeverityError, path, "synonym must not be blank"})
				break
			}
		}
	}
	return issues
}

// Convention returns the effective slot convention.
func (s Slots) Convention() slots.Convention {
	c := slots.DefaultConvention()
	if s.BrandTemplate != "" {
		c.BrandTemplate = s.BrandTemplate
	}
	if s.MetricTemplate != "" {
		c.MetricTemplate = s.MetricTemplate
	}
	if s.Max != 0 {
		c.Max = s.Max
	}
	return c
}

func validateSlots(s Slots) []Issue {
	if err := s.Convention().Validate(); err != nil {
		return []Issue{{SeverityError, "slots", err.Error()}}
	}
	if !s.RequireSlots() {
		return []Issue{{SeverityWarning, "slots.required", "required=false; an extract without slots yields empty reports"}}
	}
	return nil
}

func validatePeriod(p *Period) []Issue {
	if p == nil {
		return nil
	}
	var issues []Issue
	if len(p.Column) == 0 {
		issues = append(issues, Issue{SeverityError, "period.column", "period requires at least one date column name"})
	}
	// A layout must round-trip a reference date.
	ref := time.Date(2024, time.November, 23, 0, 0, 0, 0, time.UTC)
	if got, err := time.Parse(p.Layout, ref.Format(p.Layout)); err != nil || got.Month() != ref.Month() {
		issues = append(issues, Issue{SeverityError, "period.layout", fmt.Sprintf("layout %q does not carry a month", p.Layout)})
	}
	return issues
}

func validateReport(r Report) []Issue {
	var issues []Issue
	for _, k := range []struct {
		path  string
		names []string
	}{
		{"report.master_keys", r.MasterKeys},
		{"report.node_keys", r.NodeKeys},
		{"report.breakdown_keys", r.BreakdownKeys},
	} {
		if len(k.names) == 0 {
			continue
		}
		if _, err := rollup.ParseKeys(k.names); err != nil {
			issues = append(issues, Issue{SeverityError, k.path, err.Error()})
		}
	}

	if r.XLSX == nil && r.Storage == nil {
		issues = append(issues, Issue{SeverityWarning, "report", "no sinks configured; the run only logs its summary"})
	}
	if x := r.XLSX; x != nil {
		if strings.TrimSpace(x.Path) == "" && strings.TrimSpace(x.NodeDir) == "" && strings.TrimSpace(x.CombinedPath) == "" {
			issues = append(issues, Issue{SeverityError, "report.xlsx.path", "xlsx sink needs path, node_dir or combined_path"})
		}
	}
	if s := r.Storage; s != nil {
		switch s.Kind {
		case "postgres", "mssql", "mysql", "sqlite":
		default:
			issues = append(issues, Issue{SeverityError, "report.storage.kind", fmt.Sprintf("unknown storage kind %q; one of postgres, mssql, mysql, sqlite", s.Kind)})
		}
		if strings.TrimSpace(s.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "report.storage.dsn", "storage sink requires a dsn"})
		}
		if !s.AutoCreateTable {
			issues = append(issues, Issue{SeverityWarning, "report.storage.auto_create_table", "tables must exist before the run"})
		}
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.NormalizeWorkers < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.normalize_workers", "normalize_workers must not be negative"})
	}
	if r.ReduceWorkers < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.reduce_workers", "reduce_workers must not be negative"})
	}
	if r.BatchSize <= 0 {
		issues = append(issues, Issue{SeverityWarning, "runtime.batch_size", fmt.Sprintf("batch_size=%d; loader falls back to the default", r.BatchSize)})
	}
	if r.WarningSample < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.warning_sample", "warning_sample must not be negative"})
	}
	return issues
}
