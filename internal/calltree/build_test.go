package calltree

import (
	"errors"
	"testing"

	"github.com/callprofiler/callprofiler/internal/event"
	"github.com/callprofiler/callprofiler/internal/testutil"
)

func TestBuildTreeNestedCalls(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindCall, Function: "a", TimestampNS: 0},
		{Kind: event.KindCall, Function: "b", TimestampNS: 10},
		{Kind: event.KindReturn, Function: "b", TimestampNS: 30},
		{Kind: event.KindReturn, Function: "a", TimestampNS: 50},
	}

	want := []*Node{
		{
			Function:   "a",
			StartNS:    0,
			EndNS:      50,
			DurationNS: 50,
			Children: []*Node{
				{
					Function:   "b",
					StartNS:    10,
					EndNS:      30,
					DurationNS: 20,
				},
			},
		},
	}

	forest, warnings, err := BuildTree(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if diff := testutil.Diff(want, forest); diff != "" {
		t.Fatalf("forest mismatch: %s", diff)
	}
}

func TestBuildTreeSiblingsKeepCallOrder(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindCall, Function: "root", TimestampNS: 0},
		{Kind: event.KindCall, Function: "first", TimestampNS: 5},
		{Kind: event.KindReturn, Function: "first", TimestampNS: 10},
		{Kind: event.KindNativeCall, Function: "second", TimestampNS: 15},
		{Kind: event.KindNativeReturn, Function: "second", TimestampNS: 20},
		{Kind: event.KindCall, Function: "third", TimestampNS: 25},
		{Kind: event.KindReturn, Function: "third", TimestampNS: 30},
		{Kind: event.KindReturn, Function: "root", TimestampNS: 40},
	}

	forest, warnings, err := BuildTree(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if len(forest) != 1 {
		t.Fatalf("expected 1 root, got %d", len(forest))
	}
	var names []string
	for _, child := range forest[0].Children {
		names = append(names, child.Function)
	}
	if diff := testutil.Diff([]string{"first", "second", "third"}, names); diff != "" {
		t.Fatalf("children order mismatch: %s", diff)
	}
}

func TestBuildTreeBalancedInputNodeCount(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindCall, Function: "a", TimestampNS: 0},
		{Kind: event.KindCall, Function: "b", TimestampNS: 1},
		{Kind: event.KindNativeCall, Function: "c", TimestampNS: 2},
		{Kind: event.KindNativeReturn, Function: "c", TimestampNS: 3},
		{Kind: event.KindReturn, Function: "b", TimestampNS: 4},
		{Kind: event.KindReturn, Function: "a", TimestampNS: 5},
		{Kind: event.KindCall, Function: "d", TimestampNS: 6},
		{Kind: event.KindReturn, Function: "d", TimestampNS: 7},
	}

	forest, warnings, err := BuildTree(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if got, want := CountNodes(forest), 4; got != want {
		t.Fatalf("expected %d nodes, got %d", want, got)
	}
	if got, want := len(forest), 2; got != want {
		t.Fatalf("expected %d roots, got %d", want, got)
	}
}

func TestBuildTreeTruncatedStream(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindCall, Function: "a", TimestampNS: 0},
		{Kind: event.KindCall, Function: "lib.x", TimestampNS: 5, IsExternal: true, Library: "lib"},
	}

	want := []*Node{
		{
			Function:   "a",
			StartNS:    0,
			EndNS:      5,
			DurationNS: 5,
			Truncated:  true,
			Children: []*Node{
				{
					Function:   "lib.x",
					Library:    "lib",
					IsExternal: true,
					StartNS:    5,
					EndNS:      5,
					DurationNS: 0,
					Truncated:  true,
				},
			},
		},
	}

	forest, warnings, err := BuildTree(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %+v", len(warnings), warnings)
	}
	for _, w := range warnings {
		if w.Kind != event.WarningTruncated {
			t.Fatalf("expected truncated warning, got %+v", w)
		}
	}
	if diff := testutil.Diff(want, forest); diff != "" {
		t.Fatalf("forest mismatch: %s", diff)
	}
}

func TestBuildTreeStrayReturn(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindReturn, Function: "z", TimestampNS: 5},
		{Kind: event.KindCall, Function: "a", TimestampNS: 10},
		{Kind: event.KindReturn, Function: "a", TimestampNS: 20},
	}

	forest, warnings, err := BuildTree(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || warnings[0].Kind != event.WarningStrayReturn {
		t.Fatalf("expected a single stray return warning, got %+v", warnings)
	}
	want := []*Node{
		{Function: "a", StartNS: 10, EndNS: 20, DurationNS: 10},
	}
	if diff := testutil.Diff(want, forest); diff != "" {
		t.Fatalf("forest mismatch: %s", diff)
	}
}

func TestBuildTreeNameMismatchStillCloses(t *testing.T) {
	// Tail-call elision can make the return report a different symbol than
	// the frame it closes. The frame is closed anyway.
	events := []event.Event{
		{Kind: event.KindCall, Function: "a", TimestampNS: 0},
		{Kind: event.KindReturn, Function: "b", TimestampNS: 10},
	}

	forest, warnings, err := BuildTree(events, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || warnings[0].Kind != event.WarningNameMismatch {
		t.Fatalf("expected a single name mismatch warning, got %+v", warnings)
	}
	if len(forest) != 1 || forest[0].Function != "a" || forest[0].Truncated {
		t.Fatalf("expected a closed root node for a, got %+v", forest)
	}
}

func TestBuildTreeZeroEvents(t *testing.T) {
	forest, warnings, err := BuildTree(nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(forest) != 0 {
		t.Fatalf("expected an empty forest, got %+v", forest)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", warnings)
	}
}

func TestBuildTreeResourceLimits(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindCall, Function: "a", TimestampNS: 0},
		{Kind: event.KindCall, Function: "b", TimestampNS: 1},
		{Kind: event.KindCall, Function: "c", TimestampNS: 2},
	}

	_, _, err := BuildTree(events, Options{MaxEvents: 2})
	if !errors.Is(err, ErrTooManyEvents) {
		t.Fatalf("expected ErrTooManyEvents, got %v", err)
	}

	_, _, err = BuildTree(events, Options{MaxStackDepth: 2})
	if !errors.Is(err, ErrStackTooDeep) {
		t.Fatalf("expected ErrStackTooDeep, got %v", err)
	}
}

func TestWalkPreOrder(t *testing.T) {
	forest := []*Node{
		{Function: "a", Children: []*Node{
			{Function: "b", Children: []*Node{
				{Function: "c"},
			}},
			{Function: "d"},
		}},
		{Function: "e"},
	}

	var visited []string
	var depths []int
	Walk(forest, func(n *Node, depth int) {
		visited = append(visited, n.Function)
		depths = append(depths, depth)
	})

	if diff := testutil.Diff([]string{"a", "b", "c", "d", "e"}, visited); diff != "" {
		t.Fatalf("visit order mismatch: %s", diff)
	}
	if diff := testutil.Diff([]int{0, 1, 2, 1, 0}, depths); diff != "" {
		t.Fatalf("depths mismatch: %s", diff)
	}
}

func TestNormalize(t *testing.T) {
	root := &Node{
		StartNS: 100,
		EndNS:   150,
		Children: []*Node{
			{StartNS: 110, EndNS: 120},
		},
	}
	root.Normalize(100)
	if root.StartNS != 0 || root.EndNS != 50 {
		t.Fatalf("root not rebased: %+v", root)
	}
	if root.Children[0].StartNS != 10 || root.Children[0].EndNS != 20 {
		t.Fatalf("child not rebased: %+v", root.Children[0])
	}
}
