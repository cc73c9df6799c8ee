package config

import (
	"strings"
	"testing"
)

/*
hasIssue reports whether issues holds one with the given severity and path
whose message contains msgSubstr.
*/
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	p := Pipeline{
		Job:    "rx",
		Source: Source{Kind: "file", File: SourceFile{Path: "x.csv"}},
		Report: Report{XLSX: &XLSXSink{Path: "out.xlsx"}},
	}
	p.ApplyDefaults()
	return p
}

func TestValidatePipeline_ValidMinimal(t *testing.T) {
	t.Parallel()

	issues := ValidatePipeline(validPipeline())
	if len(issues) != 0 {
		t.Fatalf("issues = %v, want none", issues)
	}
	if HasErrors(issues) {
		t.Fatal("HasErrors = true")
	}
}

func TestValidatePipeline_Cases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"missing job", func(p *Pipeline) { p.Job = " " }, SeverityError, "job", "must not be empty"},
		{"file path", func(p *Pipeline) { p.Source.File.Path = "" }, SeverityError, "source.file.path", "non-empty path"},
		{"source kind", func(p *Pipeline) { p.Source.Kind = "s3" }, SeverityError, "source.kind", "unknown source kind"},
		{"http url", func(p *Pipeline) { p.Source = Source{Kind: "http", HTTP: SourceHTTP{URL: "ftp://x"}} }, SeverityError, "source.http.url", "http(s) url"},
		{"parser kind", func(p *Pipeline) { p.Parser.Kind = "xml" }, SeverityError, "parser.kind", "only csv"},
		{"comma", func(p *Pipeline) { p.Parser.Options = Options{"comma": ";;"} }, SeverityError, "parser.options.comma", "single character"},
		{"unknown field", func(p *Pipeline) { p.Schema.Synonyms = map[string][]string{"Region": {"R"}} }, SeverityError, "schema.synonyms.Region", "unknown field"},
		{"blank synonym", func(p *Pipeline) { p.Schema.Synonyms = map[string][]string{"ZoneCode": {""}} }, SeverityError, "schema.synonyms.ZoneCode", "blank"},
		{"empty synonyms", func(p *Pipeline) { p.Schema.Synonyms = map[string][]string{"ZoneCode": {}} }, SeverityWarning, "schema.synonyms.ZoneCode", "defaults apply"},
		{"bad template", func(p *Pipeline) { p.Slots.BrandTemplate = "Brand" }, SeverityError, "slots", "exactly one"},
		{"slots optional", func(p *Pipeline) { f := false; p.Slots.Required = &f }, SeverityWarning, "slots.required", "required=false"},
		{"policy", func(p *Pipeline) { p.Policy = "max_everything" }, SeverityError, "policy", "unknown policy"},
		{"period layout", func(p *Pipeline) { p.Period = &Period{Column: []string{"Date"}, Layout: "2006"} }, SeverityError, "period.layout", "month"},
		{"period column", func(p *Pipeline) { p.Period = &Period{Layout: "02-01-06"} }, SeverityError, "period.column", "at least one"},
		{"master keys", func(p *Pipeline) { p.Report.MasterKeys = []string{"zone_code", "galaxy"} }, SeverityError, "report.master_keys", "galaxy"},
		{"no sinks", func(p *Pipeline) { p.Report.XLSX = nil }, SeverityWarning, "report", "no sinks"},
		{"xlsx path", func(p *Pipeline) { p.Report.XLSX = &XLSXSink{} }, SeverityError, "report.xlsx.path", "path, node_dir or combined_path"},
		{"combined without period", func(p *Pipeline) { p.Report.XLSX.CombinedPath = "all.xlsx" }, SeverityWarning, "report.xlsx.combined_path", "no effect"},
		{"storage kind", func(p *Pipeline) { p.Report.Storage = &StorageSink{Kind: "oracle", DSN: "x"} }, SeverityError, "report.storage.kind", "unknown storage kind"},
		{"storage dsn", func(p *Pipeline) { p.Report.Storage = &StorageSink{Kind: "sqlite"} }, SeverityError, "report.storage.dsn", "requires a dsn"},
		{"negative workers", func(p *Pipeline) { p.Runtime.ReduceWorkers = -1 }, SeverityError, "runtime.reduce_workers", "negative"},
		{"batch size", func(p *Pipeline) { p.Runtime.BatchSize = 0 }, SeverityWarning, "runtime.batch_size", "batch_size=0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := validPipeline()
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("missing %s issue at %s containing %q; got %v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()
	iss := Issue{Severity: SeverityError, Path: "job", Message: "empty"}
	if got := iss.Error(); got != "error at job: empty" {
		t.Fatalf("Error() = %q", got)
	}
}
