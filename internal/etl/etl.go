// Package etl runs one report job end to end: fetch the extract, reconcile
// its header, reshape brand slots into observations, select, roll up and
// hand the result to the configured sinks.
package etl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rxreport/internal/config"
	"rxreport/internal/metrics"
	"rxreport/internal/observation"
	"rxreport/internal/parser/csv"
	"rxreport/internal/period"
	"rxreport/internal/report"
	"rxreport/internal/rollup"
	"rxreport/internal/schema"
	"rxreport/internal/selection"
	"rxreport/internal/slots"
	"rxreport/pkg/records"
)

// maxLoggedParseErrors caps the per-row reader errors echoed to the log.
const maxLoggedParseErrors = 10

// PartSummary describes one written report. A run without a period split
// has a single part with an empty Label.
type PartSummary struct {
	Label          string
	Rows           int
	Observations   int
	MetricWarnings int
	Selected       int
	MasterRows     int
	Nodes          int
	TotalMetric    float64
}

// Summary is what Run reports back.
type Summary struct {
	RunID       string
	Job         string
	Source      string
	Fingerprint string
	Policy      string
	Slots       []int

	RawRows     int
	ParseErrors int

	PeriodColumn   string
	PeriodUnparsed int

	Parts   []PartSummary
	Elapsed time.Duration
}

type part struct {
	label string
	tbl   *records.Table
}

// Run executes p. p is expected to have passed ApplyDefaults and
// ValidatePipeline; structural problems still surface as errors.
func Run(ctx context.Context, p config.Pipeline) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString(), Job: p.Job}
	log.Printf("etl: start job=%s run=%s", p.Job, sum.RunID)

	policy, err := selection.ByName(p.Policy)
	if err != nil {
		return sum, err
	}
	sum.Policy = policy.Name()
	opt, err := reportOptions(p)
	if err != nil {
		return sum, err
	}

	var tbl *records.Table
	err = step(p.Job, "read", func() error {
		src, err := openSource(p.Source)
		if err != nil {
			return err
		}
		sum.Source = src.Name()
		rc, err := src.Open(ctx)
		if err != nil {
			return err
		}
		defer rc.Close()
		tbl, err = csv.ReadTable(ctx, rc, p.Parser.Options, func(line int, err error) {
			sum.ParseErrors++
			if sum.ParseErrors <= maxLoggedParseErrors {
				log.Printf("reader: dropped line=%d: %v", line, err)
			}
		})
		return err
	})
	if err != nil {
		return sum, err
	}
	sum.RawRows = tbl.Len()
	sum.Fingerprint = tbl.Fingerprint()
	metrics.RecordRow(p.Job, metrics.KindRawRows, int64(sum.RawRows))
	metrics.RecordRow(p.Job, metrics.KindParseErrors, int64(sum.ParseErrors))
	log.Printf("etl: read source=%s rows=%d parse_errors=%d columns=%d fingerprint=%s",
		sum.Source, sum.RawRows, sum.ParseErrors, len(tbl.Columns), sum.Fingerprint)

	var (
		mapping schema.Mapping
		found   []slots.Slot
	)
	err = step(p.Job, "resolve", func() error {
		var err error
		mapping, err = schema.Resolve(tbl.Columns, schema.DefaultSynonyms().Merge(p.Schema.Synonyms))
		if err != nil {
			return err
		}
		conv := p.Slots.Convention()
		found = slots.Discover(tbl.Columns, conv)
		if p.Slots.RequireSlots() {
			return slots.Require(found, conv)
		}
		return nil
	})
	if err != nil {
		return sum, err
	}
	for _, s := range found {
		sum.Slots = append(sum.Slots, s.Index)
	}
	log.Printf("etl: resolved fields=%d slots=%v policy=%s", len(mapping), sum.Slots, sum.Policy)

	parts := []part{{tbl: tbl}}
	if p.Period != nil {
		var res period.Result
		err = step(p.Job, "period", func() error {
			var err error
			res, err = period.Split(tbl, p.Period.Column, p.Period.Layout)
			return err
		})
		if err != nil {
			return sum, err
		}
		sum.PeriodColumn = res.Column
		sum.PeriodUnparsed = res.Unparsed
		metrics.RecordRow(p.Job, metrics.KindPeriodUnparsed, int64(res.Unparsed))
		if res.Unparsed > 0 {
			log.Printf("period: column=%s unparsed=%d first_line=%d", res.Column, res.Unparsed, res.FirstUnparsedLine)
		}
		parts = parts[:0]
		for _, m := range res.Months {
			parts = append(parts, part{label: m.Label, tbl: m.Table})
		}
	}

	sinks, err := openSinks(ctx, p)
	if err != nil {
		return sum, err
	}
	defer closeSinks(sinks)

	norm := observation.NewNormalizer(mapping, found)
	reports := make([]*report.Report, 0, len(parts))
	for _, pt := range parts {
		ps, r, err := runPart(ctx, p, sum, norm, found, policy, opt, pt, sinks)
		if err != nil {
			return sum, err
		}
		sum.Parts = append(sum.Parts, ps)
		reports = append(reports, r)
	}
	for _, s := range sinks {
		c, ok := s.(report.Combiner)
		if !ok {
			continue
		}
		if err := step(p.Job, "combine_"+s.Name(), func() error { return c.WriteCombined(ctx, reports) }); err != nil {
			return sum, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}

	sum.Elapsed = time.Since(start)
	log.Printf("etl: done job=%s run=%s parts=%d elapsed=%s", p.Job, sum.RunID, len(sum.Parts), sum.Elapsed.Truncate(time.Millisecond))
	return sum, nil
}

func runPart(
	ctx context.Context,
	p config.Pipeline,
	sum Summary,
	norm *observation.Normalizer,
	found []slots.Slot,
	policy selection.Policy,
	opt report.Options,
	pt part,
	sinks []report.Sink,
) (PartSummary, *report.Report, error) {
	ps := PartSummary{Label: pt.label, Rows: pt.tbl.Len()}

	var res observation.Result
	err := step(p.Job, "normalize", func() error {
		var err error
		res, err = observation.NormalizeAll(ctx, norm, pt.tbl, p.Runtime.NormalizeWorkers)
		return err
	})
	if err != nil {
		return ps, nil, err
	}
	ps.Observations = res.Stats.Observations
	ps.MetricWarnings = res.Stats.MetricWarnings
	metrics.RecordRow(p.Job, metrics.KindObservations, int64(ps.Observations))
	metrics.RecordRow(p.Job, metrics.KindMetricWarnings, int64(ps.MetricWarnings))
	logWarnings(res.Warnings, ps.MetricWarnings, p.Runtime.WarningSample)

	meta := report.Meta{
		RunID:     sum.RunID,
		Job:       p.Job,
		Label:     pt.label,
		Source:    sum.Source,
		CreatedAt: time.Now(),
	}
	var r *report.Report
	err = step(p.Job, "rollup", func() error {
		var err error
		r, err = report.Assemble(ctx, meta, res.Observations, found, policy, opt)
		return err
	})
	if err != nil {
		return ps, nil, err
	}
	ps.Selected = len(r.Selected)
	ps.MasterRows = r.Master.Len()
	ps.Nodes = len(r.Nodes)
	ps.TotalMetric = r.Totals.SumMetric
	metrics.RecordRow(p.Job, metrics.KindSelected, int64(ps.Selected))
	metrics.RecordRow(p.Job, metrics.KindRollupRows, int64(ps.MasterRows+r.Zones.Len()))

	for _, s := range sinks {
		if err := step(p.Job, "write_"+s.Name(), func() error { return s.Write(ctx, r) }); err != nil {
			return ps, nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	log.Printf("etl: part label=%q rows=%d observations=%d selected=%d master_rows=%d nodes=%d total=%g",
		ps.Label, ps.Rows, ps.Observations, ps.Selected, ps.MasterRows, ps.Nodes, ps.TotalMetric)
	return ps, r, nil
}

func reportOptions(p config.Pipeline) (report.Options, error) {
	opt := report.DefaultOptions()
	opt.Workers = p.Runtime.ReduceWorkers
	opt.Wide = p.Report.XLSX != nil && p.Report.XLSX.Wide
	for _, k := range []struct {
		name string
		raw  []string
		dst  *[]rollup.Key
	}{
		{"master_keys", p.Report.MasterKeys, &opt.MasterKeys},
		{"node_keys", p.Report.NodeKeys, &opt.NodeKeys},
		{"breakdown_keys", p.Report.BreakdownKeys, &opt.BreakdownKeys},
	} {
		if len(k.raw) == 0 {
			continue
		}
		keys, err := rollup.ParseKeys(k.raw)
		if err != nil {
			return opt, fmt.Errorf("report.%s: %w", k.name, err)
		}
		*k.dst = keys
	}
	return opt, nil
}

func logWarnings(sample []observation.MetricParseWarning, total, limit int) {
	if total == 0 {
		return
	}
	if limit <= 0 || limit > len(sample) {
		limit = len(sample)
	}
	for _, w := range sample[:limit] {
		log.Printf("normalize: metric coerced to 0 line=%d column=%s raw=%q", w.Line, w.Column, w.Raw)
	}
	if total > limit {
		log.Printf("normalize: %d more metric warnings not shown", total-limit)
	}
}

// step times fn and records it under the step metrics.
func step(job, name string, fn func() error) error {
	t0 := time.Now()
	err := fn()
	metrics.RecordStep(job, name, err, time.Since(t0))
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("etl: step=%s failed: %v", name, err)
	}
	return err
}
