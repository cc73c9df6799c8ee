package rollup

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"rxreport/internal/observation"
)

func ob(zone, area, terr, acct, brand string, metric float64, slot int) Observation {
	return Observation{
		Hierarchy:   observation.Hierarchy{ZoneCode: zone, ZoneName: zone + " name", AreaCode: area, TerritoryCode: terr, RepName: "R"},
		AccountCode: acct, Brand: brand, Metric: metric, Slot: slot,
	}
}

// exampleKeepAll is the KeepAll output of the two-row example extract.
func exampleKeepAll() []Observation {
	return []Observation{
		ob("Z1", "A1", "T1", "101", "X", 3, 1),
		ob("Z1", "A1", "T1", "101", "Y", 7, 1),
		ob("Z1", "A1", "T1", "101", "X", 2, 2),
	}
}

// TestGroupBy_ExampleMasterRollup: grouped by (Zone, Area, Terr, Brand) the
// example yields X→5 and Y→7 within (Z1, A1, T1).
func TestGroupBy_ExampleMasterRollup(t *testing.T) {
	t.Parallel()

	tbl := GroupBy(exampleKeepAll(), []Key{ZoneCode, AreaCode, TerritoryCode, Brand})
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d; want 2", tbl.Len())
	}
	x, y := tbl.Rows[0], tbl.Rows[1]
	if !reflect.DeepEqual(x.Key, []string{"Z1", "A1", "T1", "X"}) || x.SumMetric != 5 || x.Observations != 2 {
		t.Fatalf("X row = %+v", x)
	}
	if !reflect.DeepEqual(y.Key, []string{"Z1", "A1", "T1", "Y"}) || y.SumMetric != 7 || y.Observations != 1 {
		t.Fatalf("Y row = %+v", y)
	}
	if x.DistinctAccounts != 1 || x.DistinctBrands != 1 || x.MaxMetric != 3 || x.MeanMetric != 2.5 {
		t.Fatalf("X row stats = %+v", x)
	}
}

// TestGroupBy_DistinctAccountsIndependentOfObservationCount checks one
// account producing many observations counts once.
func TestGroupBy_DistinctAccountsIndependentOfObservationCount(t *testing.T) {
	t.Parallel()

	var obs []Observation
	for i := 0; i < 30; i++ {
		obs = append(obs, ob("Z1", "A1", "T1", fmt.Sprint(i%4), fmt.Sprint("B", i%3), 1, i%10+1))
	}
	tbl := GroupBy(obs, []Key{ZoneCode})
	if tbl.Len() != 1 {
		t.Fatalf("rows = %d; want 1", tbl.Len())
	}
	r := tbl.Rows[0]
	if r.Observations != 30 || r.DistinctAccounts != 4 || r.DistinctBrands != 3 || r.SumMetric != 30 {
		t.Fatalf("row = %+v", r)
	}
}

// TestGroupBy_OrderIndependentOfInput shuffles the input and expects the same
// ordered table.
func TestGroupBy_OrderIndependentOfInput(t *testing.T) {
	t.Parallel()

	var obs []Observation
	for i := 0; i < 200; i++ {
		obs = append(obs, ob(fmt.Sprint("Z", i%3), fmt.Sprint("A", i%5), fmt.Sprint("T", i%7), fmt.Sprint(i), fmt.Sprint("B", i%4), float64(i%9), 1))
	}
	want := GroupBy(obs, MasterKeys)

	rng := rand.New(rand.NewSource(1))
	shuffled := append([]Observation(nil), obs...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	got := GroupBy(shuffled, MasterKeys)

	if len(got.Rows) != len(want.Rows) {
		t.Fatalf("row count differs: %d vs %d", len(got.Rows), len(want.Rows))
	}
	for i := range want.Rows {
		a, b := want.Rows[i], got.Rows[i]
		if !reflect.DeepEqual(a.Key, b.Key) || a.Observations != b.Observations || a.SumMetric != b.SumMetric || a.DistinctAccounts != b.DistinctAccounts {
			t.Fatalf("row %d differs: %+v vs %+v", i, a, b)
		}
	}
	for i := 1; i < len(want.Rows); i++ {
		if !lessKey(want.Rows[i-1].Key, want.Rows[i].Key) {
			t.Fatalf("rows not strictly ascending at %d: %v then %v", i, want.Rows[i-1].Key, want.Rows[i].Key)
		}
	}
}

// TestGroupBy_EmptyValues treats "" as its own group and excludes it from
// distinct counts.
func TestGroupBy_EmptyValues(t *testing.T) {
	t.Parallel()

	obs := []Observation{
		ob("", "A1", "T1", "", "X", 1, 1),
		ob("Z1", "A1", "T1", "5", "X", 1, 1),
	}
	tbl := GroupBy(obs, []Key{ZoneCode})
	if tbl.Len() != 2 || tbl.Rows[0].Key[0] != "" {
		t.Fatalf("rows = %+v", tbl.Rows)
	}
	if tbl.Rows[0].DistinctAccounts != 0 || tbl.Rows[1].DistinctAccounts != 1 {
		t.Fatalf("distinct accounts = %d,%d", tbl.Rows[0].DistinctAccounts, tbl.Rows[1].DistinctAccounts)
	}
}

// TestGroupBy_SeparatorInValues keeps tuples apart even when cells carry
// bytes a joined key would split on.
func TestGroupBy_SeparatorInValues(t *testing.T) {
	t.Parallel()

	obs := []Observation{
		ob("a\x1fb", "c", "T1", "1", "X", 1, 1),
		ob("a", "b\x1fc", "T1", "2", "X", 2, 1),
		ob("a:1", "b", "T1", "3", "X", 4, 1),
		ob("a", "1:b", "T1", "4", "X", 8, 1),
	}
	keys := []Key{ZoneCode, AreaCode}
	tbl := GroupBy(obs, keys)
	if tbl.Len() != 4 {
		t.Fatalf("rows = %+v; want 4 distinct groups", tbl.Rows)
	}
	sharded, err := Aggregator{Workers: 2}.GroupBy(context.Background(), obs, keys)
	if err != nil {
		t.Fatalf("GroupBy: %v", err)
	}
	if !reflect.DeepEqual(sharded, tbl) {
		t.Fatalf("sharded = %+v\nwant %+v", sharded.Rows, tbl.Rows)
	}
	if nodes := Partition(obs, keys, []Key{Brand}); len(nodes) != 4 {
		t.Fatalf("nodes = %d; want 4", len(nodes))
	}
}

func TestGroupBy_EmptyInput(t *testing.T) {
	t.Parallel()

	tbl := GroupBy(nil, MasterKeys)
	if tbl.Len() != 0 || !reflect.DeepEqual(tbl.Keys, MasterKeys) {
		t.Fatalf("empty aggregate = %+v", tbl)
	}
	if parts := Partition(nil, NodeKeys, BreakdownKeys); len(parts) != 0 {
		t.Fatalf("partition of empty input = %v", parts)
	}
	if r := Totals(nil); r.Observations != 0 {
		t.Fatalf("totals of empty input = %+v", r)
	}
}

// TestAggregator_MatchesSequential compares the sharded reduce against the
// single-goroutine GroupBy for several worker counts.
func TestAggregator_MatchesSequential(t *testing.T) {
	t.Parallel()

	var obs []Observation
	for i := 0; i < 5000; i++ {
		obs = append(obs, ob(fmt.Sprint("Z", i%4), fmt.Sprint("A", i%6), fmt.Sprint("T", i%11), fmt.Sprint(i%300), fmt.Sprint("B", i%13), float64(i%17)/4, i%10+1))
	}
	want := GroupBy(obs, MasterKeys)
	for _, w := range []int{1, 2, 7, 16} {
		got, err := Aggregator{Workers: w}.GroupBy(context.Background(), obs, MasterKeys)
		if err != nil {
			t.Fatalf("workers=%d: %v", w, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("workers=%d: sharded result differs", w)
		}
	}
}

func TestAggregator_Canceled(t *testing.T) {
	t.Parallel()

	var obs []Observation
	for i := 0; i < 100; i++ {
		obs = append(obs, ob("Z", "A", "T", fmt.Sprint(i), "B", 1, 1))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Aggregator{Workers: 4}).GroupBy(ctx, obs, MasterKeys); err == nil {
		t.Fatalf("expected context error")
	}
}

// TestPartition_PerNode builds one node per zone with nested breakdowns.
func TestPartition_PerNode(t *testing.T) {
	t.Parallel()

	obs := []Observation{
		ob("Z2", "A9", "T9", "1", "X", 4, 1),
		ob("Z1", "A1", "T1", "2", "X", 1, 1),
		ob("Z1", "A2", "T1", "3", "Y", 2, 1),
		ob("Z1", "A2", "T1", "3", "X", 5, 2),
	}
	nodes := Partition(obs, NodeKeys, BreakdownKeys)
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d; want 2", len(nodes))
	}
	z1 := nodes[0]
	if !reflect.DeepEqual(z1.Key, []string{"Z1", "Z1 name"}) {
		t.Fatalf("first node key = %v", z1.Key)
	}
	if len(z1.Observations) != 3 || z1.Summary.SumMetric != 8 || z1.Summary.DistinctAccounts != 2 || z1.Summary.DistinctAreas != 2 {
		t.Fatalf("Z1 summary = %+v (obs=%d)", z1.Summary, len(z1.Observations))
	}
	if !reflect.DeepEqual(z1.Summary.Key, z1.Key) {
		t.Fatalf("summary key = %v", z1.Summary.Key)
	}
	if z1.Breakdown.Len() != 2 {
		t.Fatalf("Z1 breakdown rows = %d; want 2", z1.Breakdown.Len())
	}
	a2 := z1.Breakdown.Rows[1]
	if !reflect.DeepEqual(a2.Key, []string{"Z1", "T1", "A2"}) || a2.SumMetric != 7 || a2.DistinctBrands != 2 || a2.DistinctAccounts != 1 {
		t.Fatalf("A2 breakdown = %+v", a2)
	}
	if z1.Brands.Len() != 3 || z1.Brands.Keys[len(z1.Brands.Keys)-1] != Brand {
		t.Fatalf("Z1 brand rows = %+v", z1.Brands)
	}
	if nodes[1].Summary.Observations != 1 {
		t.Fatalf("Z2 summary = %+v", nodes[1].Summary)
	}
}

func TestParseKeys(t *testing.T) {
	t.Parallel()

	keys, err := ParseKeys([]string{"zone_code", " Brand "})
	if err != nil || !reflect.DeepEqual(keys, []Key{ZoneCode, Brand}) {
		t.Fatalf("ParseKeys = %v, %v", keys, err)
	}
	if _, err := ParseKeys([]string{"zone_code", "zone_code"}); err == nil {
		t.Fatalf("expected error for repeated key")
	}
	if _, err := ParseKeys([]string{"division"}); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if got := Labels([]Key{ZoneCode, AccountCode}); !reflect.DeepEqual(got, []string{"ZBM Code", "Dr Code"}) {
		t.Fatalf("Labels = %v", got)
	}
}

func BenchmarkMaster(b *testing.B) {
	var obs []Observation
	for i := 0; i < 20000; i++ {
		obs = append(obs, ob(fmt.Sprint("Z", i%8), fmt.Sprint("A", i%40), fmt.Sprint("T", i%120), fmt.Sprint(i%3000), fmt.Sprint("B", i%25), float64(i%9), 1))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Master(obs)
	}
}
