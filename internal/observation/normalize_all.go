package observation

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"rxreport/pkg/records"
)

// DefaultWarningSample caps how many MetricParseWarning values are retained.
const DefaultWarningSample = 20

// Stats summarizes one NormalizeAll run.
type Stats struct {
	Rows           int // raw records seen
	Observations   int // observations emitted
	EmptyRows      int // records that produced no observation
	MetricWarnings int // metric cells coerced to 0 after a parse failure
}

// Result is the concatenated output of NormalizeAll, in record order.
type Result struct {
	Observations []Observation
	Warnings     []MetricParseWarning // first DefaultWarningSample warnings
	Stats        Stats
}

type shard struct {
	obs   []Observation
	warns []MetricParseWarning
	nwarn int
	empty int
}

// NormalizeAll runs n over every record of tbl. Records are sharded by
// contiguous row range across workers (<=0 means GOMAXPROCS) and the shard
// outputs are concatenated in range order, so the result equals a sequential
// pass. The only error returned is a context error.
func NormalizeAll(ctx context.Context, n *Normalizer, tbl *records.Table, workers int) (Result, error) {
	total := tbl.Len()
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}

	shards := make([]shard, workers)
	step := (total + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * step
		hi := lo + step
		if hi > total {
			hi = total
		}
		if lo >= hi {
			continue
		}
		sh := &shards[w]
		g.Go(func() error {
			const checkEvery = 4096
			for i := lo; i < hi; i++ {
				if (i-lo)%checkEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				obs, warns := n.Row(tbl.Records[i], tbl.Line(i))
				if len(obs) == 0 {
					sh.empty++
				}
				sh.obs = append(sh.obs, obs...)
				sh.nwarn += len(warns)
				if room := DefaultWarningSample - len(sh.warns); room > 0 {
					if len(warns) > room {
						warns = warns[:room]
					}
					sh.warns = append(sh.warns, warns...)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Stats: Stats{Rows: total}}
	size := 0
	for i := range shards {
		size += len(shards[i].obs)
	}
	res.Observations = make([]Observation, 0, size)
	for i := range shards {
		sh := &shards[i]
		res.Observations = append(res.Observations, sh.obs...)
		res.Stats.EmptyRows += sh.empty
		res.Stats.MetricWarnings += sh.nwarn
		if room := DefaultWarningSample - len(res.Warnings); room > 0 {
			w := sh.warns
			if len(w) > room {
				w = w[:room]
			}
			res.Warnings = append(res.Warnings, w...)
		}
	}
	res.Stats.Observations = len(res.Observations)
	return res, nil
}
