package selection

import (
	"reflect"
	"testing"

	"rxreport/internal/observation"
	"rxreport/internal/slots"
)

var h1 = observation.Hierarchy{ZoneCode: "Z1", AreaCode: "A1", TerritoryCode: "T1", RepName: "R1"}

func ob(acct, brand string, metric float64, slot, line int) Observation {
	return Observation{Hierarchy: h1, AccountCode: acct, Brand: brand, Metric: metric, Slot: slot, Line: line}
}

// exampleObs is the normalized form of the two-row example extract:
//
//	row 1: Brand1=X Rx1=3, Brand2 empty
//	row 2: Brand1=Y Rx1=7, Brand2=X Rx2=2
func exampleObs() []Observation {
	return []Observation{
		ob("101", "X", 3, 1, 2),
		ob("101", "Y", 7, 1, 3),
		ob("101", "X", 2, 2, 3),
	}
}

type brandMetric struct {
	Brand  string
	Metric float64
	Slot   int
}

func summarize(in []Observation) []brandMetric {
	out := make([]brandMetric, len(in))
	for i, o := range in {
		out[i] = brandMetric{o.Brand, o.Metric, o.Slot}
	}
	return out
}

func TestPolicies_ExampleExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		policy Policy
		want   []brandMetric
	}{
		{KeepAll{}, []brandMetric{{"X", 3, 1}, {"Y", 7, 1}, {"X", 2, 2}}},
		{TopPerAccount{}, []brandMetric{{"Y", 7, 1}}},
		{BestPerAccountPerSlot{}, []brandMetric{{"Y", 7, 1}, {"X", 2, 2}}},
		{TopPerSlot{}, []brandMetric{{"Y", 7, 1}, {"X", 2, 2}}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.policy.Name(), func(t *testing.T) {
			t.Parallel()
			got := summarize(tc.policy.Select(exampleObs()))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v; want %v", got, tc.want)
			}
		})
	}
}

// TestTopPerAccount_TieEarliestSlot: {(A,5),(B,9),(C,9)} must yield B, the
// earliest-slot 9, regardless of encounter order.
func TestTopPerAccount_TieEarliestSlot(t *testing.T) {
	t.Parallel()

	in := []Observation{
		ob("1", "C", 9, 3, 2),
		ob("1", "A", 5, 1, 2),
		ob("1", "B", 9, 2, 2),
	}
	got := TopPerAccount{}.Select(in)
	if len(got) != 1 || got[0].Brand != "B" {
		t.Fatalf("got %v; want brand B", summarize(got))
	}
}

// TestTopPerAccount_TieSameSlotEarliestEncounter falls through to encounter
// order when metric and slot both tie (the account spans several rows).
func TestTopPerAccount_TieSameSlotEarliestEncounter(t *testing.T) {
	t.Parallel()

	in := []Observation{
		ob("1", "P", 4, 1, 2),
		ob("1", "Q", 4, 1, 3),
	}
	got := TopPerAccount{}.Select(in)
	if len(got) != 1 || got[0].Brand != "P" {
		t.Fatalf("got %v; want brand P", summarize(got))
	}
}

// TestZeroMetricContends checks a zero-valued observation is still selected
// when it is the only contender.
func TestZeroMetricContends(t *testing.T) {
	t.Parallel()

	in := []Observation{ob("9", "Z", 0, 4, 2)}
	for _, p := range []Policy{TopPerAccount{}, TopPerSlot{}, BestPerAccountPerSlot{}} {
		if got := p.Select(in); len(got) != 1 || got[0].Brand != "Z" {
			t.Fatalf("%s dropped zero-metric contender: %v", p.Name(), got)
		}
	}
}

// TestTopPerSlot_AcrossAccounts picks one winner per slot column over all
// accounts, ties going to the first encountered, output ascending by slot.
func TestTopPerSlot_AcrossAccounts(t *testing.T) {
	t.Parallel()

	in := []Observation{
		ob("1", "A", 2, 2, 2),
		ob("1", "B", 5, 1, 2),
		ob("2", "C", 5, 1, 3),
		ob("2", "D", 8, 2, 3),
	}
	got := summarize(TopPerSlot{}.Select(in))
	want := []brandMetric{{"B", 5, 1}, {"D", 8, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v; want %v", got, want)
	}
}

// TestBestPerAccountPerSlot_OrderAndCount preserves up to one winner per slot
// per account, grouped by first-seen account.
func TestBestPerAccountPerSlot_OrderAndCount(t *testing.T) {
	t.Parallel()

	in := []Observation{
		ob("B", "x", 1, 2, 2),
		ob("A", "y", 1, 1, 3),
		ob("B", "z", 3, 1, 4),
		ob("B", "w", 0, 2, 5),
		ob("A", "v", 6, 1, 6),
	}
	got := BestPerAccountPerSlot{}.Select(in)
	var keys []string
	for _, o := range got {
		keys = append(keys, o.AccountCode+":"+o.Brand)
	}
	want := []string{"B:z", "B:x", "A:v"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("got %v; want %v", keys, want)
	}
}

// TestPolicies_DoNotMutateInput runs every policy and compares the input
// against a snapshot taken beforehand; results must not alias the input.
func TestPolicies_DoNotMutateInput(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		p, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		in := exampleObs()
		snapshot := exampleObs()
		out := p.Select(in)
		if !reflect.DeepEqual(in, snapshot) {
			t.Fatalf("%s mutated its input", name)
		}
		if len(out) > 0 {
			out[0].Brand = "mutated"
			if in[0].Brand == "mutated" {
				t.Fatalf("%s result aliases its input", name)
			}
		}
	}
}

func TestPolicies_EmptyInput(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		p, _ := ByName(name)
		if got := p.Select(nil); len(got) != 0 {
			t.Fatalf("%s on empty input returned %v", name, got)
		}
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	p, err := ByName(" Top_Per_Account ")
	if err != nil || p.Name() != NameTopPerAccount {
		t.Fatalf("ByName case-insensitive: %v %v", p, err)
	}
	if p, err := ByName(""); err != nil || p.Name() != NameKeepAll {
		t.Fatalf("ByName(\"\") = %v, %v; want keep_all", p, err)
	}
	if _, err := ByName("wide_pivot"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

// TestWiden_AbsentCells pivots the TopPerAccount result: only the winning
// slot is present, the other slot is absent rather than zero.
func TestWiden_AbsentCells(t *testing.T) {
	t.Parallel()

	found := []slots.Slot{{Index: 1}, {Index: 2}}
	rows := Widen(TopPerAccount{}.Select(exampleObs()), found)
	if len(rows) != 1 {
		t.Fatalf("got %d rows; want 1", len(rows))
	}
	want := []Cell{{Brand: "Y", Metric: 7, Present: true}, {}}
	if !reflect.DeepEqual(rows[0].Cells, want) {
		t.Fatalf("cells = %#v; want %#v", rows[0].Cells, want)
	}

	rows = Widen(exampleObs(), found)
	want = []Cell{{Brand: "Y", Metric: 7, Present: true}, {Brand: "X", Metric: 2, Present: true}}
	if !reflect.DeepEqual(rows[0].Cells, want) {
		t.Fatalf("keep-all cells = %#v; want %#v", rows[0].Cells, want)
	}
}

func TestWiden_SortedByHierarchy(t *testing.T) {
	t.Parallel()

	mk := func(zone, area, acct string) Observation {
		return Observation{
			Hierarchy:   observation.Hierarchy{ZoneCode: zone, AreaCode: area},
			AccountCode: acct, Brand: "b", Metric: 1, Slot: 1,
		}
	}
	in := []Observation{mk("Z2", "A1", "3"), mk("Z1", "A2", "2"), mk("Z1", "A1", "1"), mk("Z1", "A1", "0")}
	rows := Widen(in, []slots.Slot{{Index: 1}})
	var got []string
	for _, r := range rows {
		got = append(got, r.AccountCode)
	}
	if want := []string{"1", "0", "2", "3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v; want %v", got, want)
	}
}

// TestWiden_HierarchyFromFirstRow keeps the account's first row hierarchy
// even when a later row wins the lowest slot.
func TestWiden_HierarchyFromFirstRow(t *testing.T) {
	t.Parallel()

	in := []Observation{
		{Hierarchy: observation.Hierarchy{ZoneCode: "Z1", RepName: "Asha"}, AccountCode: "101", Brand: "X", Metric: 1, Slot: 2, Line: 2},
		{Hierarchy: observation.Hierarchy{ZoneCode: "Z1", RepName: "Ravi"}, AccountCode: "101", Brand: "Y", Metric: 9, Slot: 1, Line: 3},
	}
	rows := Widen(in, []slots.Slot{{Index: 1}, {Index: 2}})
	if len(rows) != 1 {
		t.Fatalf("got %d rows; want 1", len(rows))
	}
	if rows[0].RepName != "Asha" {
		t.Errorf("rep = %q; want Asha", rows[0].RepName)
	}
	want := []Cell{{Brand: "Y", Metric: 9, Present: true}, {Brand: "X", Metric: 1, Present: true}}
	if !reflect.DeepEqual(rows[0].Cells, want) {
		t.Errorf("cells = %#v; want %#v", rows[0].Cells, want)
	}
}
