// Package report assembles the aggregate views of one run and hands them to
// sinks that turn them into workbooks or database tables.
package report

import (
	"context"
	"fmt"
	"time"

	"rxreport/internal/observation"
	"rxreport/internal/rollup"
	"rxreport/internal/selection"
	"rxreport/internal/slots"
)

// Meta identifies the run a report belongs to.
type Meta struct {
	RunID string
	Job   string
	// Label names the period ("2024-09") when the extract was split by
	// month; empty for a whole-extract report.
	Label     string
	Source    string
	CreatedAt time.Time
}

// Options selects the grouping grains.
type Options struct {
	MasterKeys    []rollup.Key
	NodeKeys      []rollup.Key
	BreakdownKeys []rollup.Key
	// Workers is the shard count for the master and zone reduces.
	Workers int
	// Wide adds the per-account pivot.
	Wide bool
}

// DefaultOptions returns the standard grains.
func DefaultOptions() Options {
	return Options{
		MasterKeys:    rollup.MasterKeys,
		NodeKeys:      rollup.NodeKeys,
		BreakdownKeys: rollup.BreakdownKeys,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.MasterKeys) == 0 {
		o.MasterKeys = d.MasterKeys
	}
	if len(o.NodeKeys) == 0 {
		o.NodeKeys = d.NodeKeys
	}
	if len(o.BreakdownKeys) == 0 {
		o.BreakdownKeys = d.BreakdownKeys
	}
	return o
}

// Report is everything a sink needs for one run (or one period of a run).
type Report struct {
	Meta
	Policy string
	Slots  []slots.Slot

	// Selected are the observations that survived the policy, in policy
	// output order.
	Selected []observation.Observation
	Totals   rollup.Row
	Master   rollup.Table
	Zones    rollup.Table
	Nodes    []rollup.Node
	// NodeKeys and BreakdownKeys are the grains Nodes were built with.
	NodeKeys      []rollup.Key
	BreakdownKeys []rollup.Key
	// Wide is nil unless Options.Wide was set.
	Wide []selection.WideRow
}

// Assemble applies policy to obs and computes every aggregate view. obs is
// not modified. An empty obs yields a report with empty tables.
func Assemble(
	ctx context.Context,
	meta Meta,
	obs []observation.Observation,
	found []slots.Slot,
	policy selection.Policy,
	opt Options,
) (*Report, error) {
	opt = opt.withDefaults()
	agg := rollup.Aggregator{Workers: opt.Workers}

	r := &Report{
		Meta:          meta,
		Policy:        policy.Name(),
		Slots:         found,
		NodeKeys:      opt.NodeKeys,
		BreakdownKeys: opt.BreakdownKeys,
	}
	r.Selected = policy.Select(obs)

	var err error
	if r.Master, err = agg.GroupBy(ctx, r.Selected, opt.MasterKeys); err != nil {
		return nil, fmt.Errorf("report: master: %w", err)
	}
	if r.Zones, err = agg.GroupBy(ctx, r.Selected, opt.NodeKeys); err != nil {
		return nil, fmt.Errorf("report: zones: %w", err)
	}
	r.Nodes = rollup.Partition(r.Selected, opt.NodeKeys, opt.BreakdownKeys)
	r.Totals = rollup.Totals(r.Selected)
	if opt.Wide {
		r.Wide = selection.Widen(r.Selected, found)
	}
	return r, nil
}

// Sink writes reports somewhere. Write may be called once per period.
type Sink interface {
	Name() string
	Write(ctx context.Context, r *Report) error
	Close() error
}

// Combiner is implemented by sinks that also render one view across every
// period of a run. The pipeline calls WriteCombined once, after every Write.
type Combiner interface {
	WriteCombined(ctx context.Context, reports []*Report) error
}
