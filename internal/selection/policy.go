// Package selection implements the closed set of selection policies that
// decide which observations survive per grouping key before rollup.
//
// Every policy is a pure function over its input: the input slice is never
// modified and the result is a fresh slice. Where several observations
// compete, the one with the greatest Metric wins and ties go to the
// observation encountered first (TopPerAccount prefers the lower slot index
// before falling back to encounter order). A zero metric is a valid
// contender; only empty brand cells are excluded, and those never become
// observations in the first place.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"rxreport/internal/observation"
)

type Observation = observation.Observation

// Policy reduces a multiset of observations.
type Policy interface {
	Name() string
	Select(in []Observation) []Observation
}

// Policy names as used in pipeline configuration.
const (
	NameKeepAll               = "keep_all"
	NameTopPerAccount         = "top_per_account"
	NameTopPerSlot            = "top_per_slot"
	NameBestPerAccountPerSlot = "best_per_account_per_slot"
)

// Names lists the accepted policy names.
func Names() []string {
	return []string{NameKeepAll, NameTopPerAccount, NameTopPerSlot, NameBestPerAccountPerSlot}
}

// ByName returns the policy registered under name (case-insensitive).
func ByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameKeepAll, "":
		return KeepAll{}, nil
	case NameTopPerAccount:
		return TopPerAccount{}, nil
	case NameTopPerSlot:
		return TopPerSlot{}, nil
	case NameBestPerAccountPerSlot:
		return BestPerAccountPerSlot{}, nil
	}
	return nil, fmt.Errorf("selection: unknown policy %q (want one of %s)", name, strings.Join(Names(), ", "))
}

// KeepAll passes every observation through.
type KeepAll struct{}

func (KeepAll) Name() string { return NameKeepAll }

func (KeepAll) Select(in []Observation) []Observation {
	return append([]Observation(nil), in...)
}

// TopPerAccount keeps one observation per AccountCode: the greatest metric,
// then the lowest slot index, then the earliest encounter. Output follows the
// order in which accounts were first seen.
type TopPerAccount struct{}

func (TopPerAccount) Name() string { return NameTopPerAccount }

func (TopPerAccount) Select(in []Observation) []Observation {
	return pick(in,
		func(o *Observation) string { return o.AccountCode },
		func(cand, cur *Observation) bool {
			if cand.Metric != cur.Metric {
				return cand.Metric > cur.Metric
			}
			return cand.Slot < cur.Slot
		})
}

// TopPerSlot keeps one observation per slot index across all accounts in
// scope: the greatest metric, ties to the earliest encounter. Output is in
// ascending slot order.
type TopPerSlot struct{}

func (TopPerSlot) Name() string { return NameTopPerSlot }

func (TopPerSlot) Select(in []Observation) []Observation {
	out := pick(in, func(o *Observation) int { return o.Slot }, higherMetric)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// BestPerAccountPerSlot keeps one observation per (AccountCode, slot index):
// the greatest metric, ties to the earliest encounter. An account keeps up to
// one winner per declared slot. Output groups accounts in first-seen order,
// slots ascending within an account.
type BestPerAccountPerSlot struct{}

func (BestPerAccountPerSlot) Name() string { return NameBestPerAccountPerSlot }

type accountSlot struct {
	account string
	slot    int
}

func (BestPerAccountPerSlot) Select(in []Observation) []Observation {
	out := pick(in,
		func(o *Observation) accountSlot { return accountSlot{o.AccountCode, o.Slot} },
		higherMetric)

	rank := make(map[string]int)
	for i := range in {
		if _, ok := rank[in[i].AccountCode]; !ok {
			rank[in[i].AccountCode] = len(rank)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank[out[i].AccountCode], rank[out[j].AccountCode]
		if ri != rj {
			return ri < rj
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}

func higherMetric(cand, cur *Observation) bool { return cand.Metric > cur.Metric }

// pick keeps one observation per key. better reports whether cand strictly
// beats the current winner; on equality the earlier observation stays, which
// makes encounter order the final tie-break. Winners are returned in the
// order their keys were first seen.
func pick[K comparable](in []Observation, key func(*Observation) K, better func(cand, cur *Observation) bool) []Observation {
	idx := make(map[K]int)
	var out []Observation
	for i := range in {
		o := &in[i]
		k := key(o)
		j, ok := idx[k]
		if !ok {
			idx[k] = len(out)
			out = append(out, *o)
			continue
		}
		if better(o, &out[j]) {
			out[j] = *o
		}
	}
	return out
}
