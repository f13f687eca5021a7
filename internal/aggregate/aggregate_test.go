package aggregate

import (
	"testing"

	"github.com/callprofiler/callprofiler/internal/calltree"
	"github.com/callprofiler/callprofiler/internal/event"
	"github.com/callprofiler/callprofiler/internal/testutil"
)

func TestAggregateTiming(t *testing.T) {
	forest := []*calltree.Node{
		{
			Function: "a",
			StartNS:  0,
			EndNS:    50,
			Children: []*calltree.Node{
				{Function: "b", StartNS: 10, EndNS: 30},
			},
		},
	}

	result, warnings := Aggregate(forest)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}

	root := result.Forest[0]
	if root.DurationNS != 50 || root.SelfTimeNS != 30 {
		t.Fatalf("root timing wrong: total=%d self=%d", root.DurationNS, root.SelfTimeNS)
	}
	child := root.Children[0]
	if child.DurationNS != 20 || child.SelfTimeNS != 20 {
		t.Fatalf("child timing wrong: total=%d self=%d", child.DurationNS, child.SelfTimeNS)
	}
	if result.TotalDurationNS != 50 {
		t.Fatalf("expected total 50, got %d", result.TotalDurationNS)
	}
	if len(result.Libraries) != 0 {
		t.Fatalf("expected empty library summary, got %+v", result.Libraries)
	}
	if result.ApplicationSelfTimeNS != 50 {
		t.Fatalf("expected application bucket 50, got %d", result.ApplicationSelfTimeNS)
	}
}

// Every node must satisfy total == self + sum of children totals after
// aggregation, and no timing may be negative.
func TestAggregateRoundTripTiming(t *testing.T) {
	forest := []*calltree.Node{
		{
			Function: "a",
			StartNS:  0,
			EndNS:    100,
			Children: []*calltree.Node{
				{Function: "b", StartNS: 5, EndNS: 40, Children: []*calltree.Node{
					{Function: "c", StartNS: 10, EndNS: 20},
				}},
				{Function: "d", StartNS: 45, EndNS: 95},
			},
		},
	}

	_, warnings := Aggregate(forest)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}

	calltree.Walk(forest, func(n *calltree.Node, _ int) {
		var childrenTotal uint64
		for _, child := range n.Children {
			childrenTotal += child.DurationNS
		}
		if n.DurationNS != n.SelfTimeNS+childrenTotal {
			t.Errorf("%s: total %d != self %d + children %d", n.Function, n.DurationNS, n.SelfTimeNS, childrenTotal)
		}
	})
}

func TestAggregateClampsNegativeSelfTime(t *testing.T) {
	// The child claims to run longer than its parent: noisy instrumentation.
	forest := []*calltree.Node{
		{
			Function: "a",
			StartNS:  0,
			EndNS:    10,
			Children: []*calltree.Node{
				{Function: "b", StartNS: 0, EndNS: 25},
			},
		},
	}

	result, warnings := Aggregate(forest)
	if len(warnings) != 1 || warnings[0].Kind != event.WarningNegativeSelfTime {
		t.Fatalf("expected a single negative self time warning, got %+v", warnings)
	}
	if result.Forest[0].SelfTimeNS != 0 {
		t.Fatalf("expected clamped self time, got %d", result.Forest[0].SelfTimeNS)
	}
}

func TestAggregateLibraryRollup(t *testing.T) {
	forest := []*calltree.Node{
		{
			Function: "handler",
			StartNS:  0,
			EndNS:    100,
			Children: []*calltree.Node{
				{Function: "json.dumps", StartNS: 10, EndNS: 40, IsExternal: true, Library: "json", Children: []*calltree.Node{
					// Nested external call: only self times are added, so
					// this is not double counted in the json bucket.
					{Function: "json.encode", StartNS: 15, EndNS: 35, IsExternal: true, Library: "json"},
				}},
				{Function: "re.match", StartNS: 50, EndNS: 70, IsExternal: true, Library: "re"},
			},
		},
	}

	result, warnings := Aggregate(forest)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}

	want := map[string]LibraryStat{
		"json": {SelfTimeNS: 30, CallCount: 2},
		"re":   {SelfTimeNS: 20, CallCount: 1},
	}
	if diff := testutil.Diff(want, result.Libraries); diff != "" {
		t.Fatalf("library summary mismatch: %s", diff)
	}

	// Conservation: library buckets plus the application bucket equal the
	// total across roots.
	var librariesTotal uint64
	for _, stat := range result.Libraries {
		librariesTotal += stat.SelfTimeNS
	}
	if librariesTotal+result.ApplicationSelfTimeNS != result.TotalDurationNS {
		t.Fatalf("rollup not conserved: libraries=%d application=%d total=%d",
			librariesTotal, result.ApplicationSelfTimeNS, result.TotalDurationNS)
	}
}

func TestAggregateFunctionSummary(t *testing.T) {
	forest := []*calltree.Node{
		{
			Function: "handler",
			Path:     "app/handler.py",
			Line:     10,
			StartNS:  0,
			EndNS:    100,
			Children: []*calltree.Node{
				{Function: "helper", Path: "app/util.py", Line: 5, StartNS: 10, EndNS: 20},
				{Function: "helper", Path: "app/util.py", Line: 5, StartNS: 30, EndNS: 45},
				{Function: "lib.x", Library: "lib", IsExternal: true, StartNS: 50, EndNS: 60},
			},
		},
	}

	result, _ := Aggregate(forest)

	want := []FunctionStat{
		{Function: "handler", Path: "app/handler.py", Line: 10, CallCount: 1, SumSelfTimeNS: 65, SumDurationNS: 100},
		{Function: "helper", Path: "app/util.py", Line: 5, CallCount: 2, SumSelfTimeNS: 25, SumDurationNS: 25},
		{Function: "lib.x", Library: "lib", CallCount: 1, SumSelfTimeNS: 10, SumDurationNS: 10},
	}
	if diff := testutil.Diff(want, result.Functions); diff != "" {
		t.Fatalf("function summary mismatch: %s", diff)
	}
}

func TestAggregateSummaryTiesKeepFirstOccurrenceOrder(t *testing.T) {
	forest := []*calltree.Node{
		{Function: "first", StartNS: 0, EndNS: 10},
		{Function: "second", StartNS: 10, EndNS: 20},
		{Function: "third", StartNS: 20, EndNS: 30},
	}

	result, _ := Aggregate(forest)

	var names []string
	for _, f := range result.Functions {
		names = append(names, f.Function)
	}
	if diff := testutil.Diff([]string{"first", "second", "third"}, names); diff != "" {
		t.Fatalf("tie order mismatch: %s", diff)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	forest := []*calltree.Node{
		{
			Function: "a",
			StartNS:  0,
			EndNS:    50,
			Children: []*calltree.Node{
				{Function: "b", StartNS: 10, EndNS: 30, IsExternal: true, Library: "lib"},
			},
		},
	}

	first, _ := Aggregate(forest)
	second, _ := Aggregate(forest)
	if diff := testutil.Diff(first, second); diff != "" {
		t.Fatalf("aggregation not idempotent: %s", diff)
	}
}

func TestAggregateEmptyForest(t *testing.T) {
	result, warnings := Aggregate(nil)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", warnings)
	}
	if result.TotalDurationNS != 0 || len(result.Functions) != 0 || len(result.Libraries) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
