package rollup

import (
	"context"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"rxreport/internal/observation"
)

type Observation = observation.Observation

// Row is the aggregate of one group. Empty strings are valid key values and
// form their own group; distinct counts ignore empty values.
type Row struct {
	Key                 []string // parallel to Table.Keys
	Observations        int
	SumMetric           float64
	MeanMetric          float64
	MaxMetric           float64
	DistinctAccounts    int
	DistinctBrands      int
	DistinctTerritories int
	DistinctAreas       int
}

// Table is an ordered set of group rows. A table with no rows is a valid
// empty aggregate.
type Table struct {
	Keys []Key
	Rows []Row
}

// Len is the number of groups.
func (t Table) Len() int { return len(t.Rows) }

// GroupBy aggregates obs by keys on the calling goroutine.
func GroupBy(obs []Observation, keys []Key) Table {
	t := Table{Keys: keys, Rows: reduce(obs, keys, nil)}
	sortRows(t.Rows)
	return t
}

// Aggregator runs GroupBy as a sharded reduce: observations are routed to
// shards by the xxh3 hash of their group key, shards reduce in parallel and
// the merged rows are sorted. Each group lives in exactly one shard and sees
// its observations in input order, so the result equals GroupBy.
type Aggregator struct {
	Workers int // <= 0 means GOMAXPROCS
}

// GroupBy aggregates obs by keys using the configured shard count.
func (a Aggregator) GroupBy(ctx context.Context, obs []Observation, keys []Key) (Table, error) {
	w := a.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w == 1 || len(obs) < 2*w {
		return GroupBy(obs, keys), ctx.Err()
	}

	routes := make([][]int, w)
	for i := range obs {
		h := xxh3.HashString(groupKey(&obs[i], keys))
		s := int(h % uint64(w))
		routes[s] = append(routes[s], i)
	}

	parts := make([][]Row, w)
	g, ctx := errgroup.WithContext(ctx)
	for s := 0; s < w; s++ {
		if len(routes[s]) == 0 {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts[s] = reduce(obs, keys, routes[s])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Table{}, err
	}

	var rows []Row
	for _, p := range parts {
		rows = append(rows, p...)
	}
	sortRows(rows)
	return Table{Keys: keys, Rows: rows}, nil
}

// Master is the master rollup: MasterKeys, one row per observed combination.
func Master(obs []Observation) Table { return GroupBy(obs, MasterKeys) }

// Totals aggregates obs as a single group with no key components. It returns
// a zero Row for empty input.
func Totals(obs []Observation) Row {
	rows := reduce(obs, nil, nil)
	if len(rows) == 0 {
		return Row{Key: []string{}}
	}
	return rows[0]
}

type accum struct {
	key         []string
	metrics     stats.Float64Data
	accounts    map[string]struct{}
	brands      map[string]struct{}
	territories map[string]struct{}
	areas       map[string]struct{}
}

func addDistinct(set map[string]struct{}, v string) {
	if v != "" {
		set[v] = struct{}{}
	}
}

// reduce aggregates obs (or only the indexes in idx when non-nil) and returns
// rows in first-seen group order.
func reduce(obs []Observation, keys []Key, idx []int) []Row {
	groups := make(map[string]*accum)
	var order []*accum

	visit := func(o *Observation) {
		gk := groupKey(o, keys)
		a, ok := groups[gk]
		if !ok {
			kv := make([]string, len(keys))
			for i, k := range keys {
				kv[i] = k.Value(o)
			}
			a = &accum{
				key:         kv,
				accounts:    map[string]struct{}{},
				brands:      map[string]struct{}{},
				territories: map[string]struct{}{},
				areas:       map[string]struct{}{},
			}
			groups[gk] = a
			order = append(order, a)
		}
		a.metrics = append(a.metrics, o.Metric)
		addDistinct(a.accounts, o.AccountCode)
		addDistinct(a.brands, o.Brand)
		addDistinct(a.territories, o.TerritoryCode)
		addDistinct(a.areas, o.AreaCode)
	}
	if idx == nil {
		for i := range obs {
			visit(&obs[i])
		}
	} else {
		for _, i := range idx {
			visit(&obs[i])
		}
	}

	rows := make([]Row, len(order))
	for i, a := range order {
		sum, _ := stats.Sum(a.metrics)
		mean, _ := stats.Mean(a.metrics)
		peak, _ := stats.Max(a.metrics)
		rows[i] = Row{
			Key:                 a.key,
			Observations:        len(a.metrics),
			SumMetric:           sum,
			MeanMetric:          mean,
			MaxMetric:           peak,
			DistinctAccounts:    len(a.accounts),
			DistinctBrands:      len(a.brands),
			DistinctTerritories: len(a.territories),
			DistinctAreas:       len(a.areas),
		}
	}
	return rows
}

// groupKey encodes the key tuple of o. Components are length prefixed, so
// no cell content can make two distinct tuples collide.
func groupKey(o *Observation, keys []Key) string {
	switch len(keys) {
	case 0:
		return ""
	case 1:
		return keys[0].Value(o)
	}
	var b strings.Builder
	for _, k := range keys {
		v := k.Value(o)
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool { return lessKey(rows[i].Key, rows[j].Key) })
}

func lessKey(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
