package aggregate

import (
	"sort"

	"github.com/callprofiler/callprofiler/internal/calltree"
	"github.com/callprofiler/callprofiler/internal/event"
)

// ApplicationBucket is the implicit library bucket holding all time not
// attributed to an external library.
const ApplicationBucket = "application"

type (
	// LibraryStat is the rollup for one external library: the sum of self
	// times of its nodes and the number of calls into it. Self time is used
	// rather than total time so nested external calls are not counted twice.
	LibraryStat struct {
		SelfTimeNS uint64 `json:"self_time_ns"`
		CallCount  uint64 `json:"call_count"`
	}

	// FunctionStat is one row of the flattened, ranked function summary.
	FunctionStat struct {
		Function      string `json:"name"`
		Path          string `json:"path,omitempty"`
		Line          uint32 `json:"line,omitempty"`
		Library       string `json:"library,omitempty"`
		CallCount     uint64 `json:"call_count"`
		SumSelfTimeNS uint64 `json:"sum_self_time_ns"`
		SumDurationNS uint64 `json:"sum_duration_ns"`
	}

	// Result is the annotated forest plus its summaries. The forest nodes
	// are the same nodes passed to Aggregate, with timing fields filled in.
	Result struct {
		Forest                []*calltree.Node       `json:"call_tree"`
		TotalDurationNS       uint64                 `json:"total_duration_ns"`
		ApplicationSelfTimeNS uint64                 `json:"application_self_time_ns"`
		Libraries             map[string]LibraryStat `json:"libraries"`
		Functions             []FunctionStat         `json:"functions"`
	}

	functionKey struct {
		function string
		path     string
		line     uint32
		library  string
	}
)

// Aggregate computes per-node timing, the per-library rollup and the ranked
// function summary for a reconstructed forest. It is a pure function of the
// forest: running it twice yields identical output.
func Aggregate(forest []*calltree.Node) (Result, []event.Warning) {
	var warnings []event.Warning

	r := Result{
		Forest:    forest,
		Libraries: make(map[string]LibraryStat),
	}

	for _, root := range forest {
		warnings = append(warnings, annotate(root)...)
		r.TotalDurationNS += root.DurationNS
	}

	var librariesTotal uint64
	calltree.Walk(forest, func(n *calltree.Node, _ int) {
		if !n.IsExternal {
			return
		}
		stat := r.Libraries[n.Library]
		stat.SelfTimeNS += n.SelfTimeNS
		stat.CallCount++
		r.Libraries[n.Library] = stat
		librariesTotal += n.SelfTimeNS
	})
	if r.TotalDurationNS > librariesTotal {
		r.ApplicationSelfTimeNS = r.TotalDurationNS - librariesTotal
	}

	r.Functions = flatten(forest)

	return r, warnings
}

// annotate computes durations and self times post-order, children before
// parent, so a node's duration is final before it is folded into its
// parent's children sum. A negative self time indicates noisy timestamps; it
// is clamped to zero with a warning rather than failing the report.
func annotate(n *calltree.Node) []event.Warning {
	var warnings []event.Warning
	var childrenTotal uint64
	for _, child := range n.Children {
		warnings = append(warnings, annotate(child)...)
		childrenTotal += child.DurationNS
	}
	if n.EndNS >= n.StartNS && n.EndNS != calltree.NoEndTime {
		n.DurationNS = n.EndNS - n.StartNS
	}
	if n.DurationNS >= childrenTotal {
		n.SelfTimeNS = n.DurationNS - childrenTotal
	} else {
		n.SelfTimeNS = 0
		warnings = append(warnings, event.Warning{
			Kind:        event.WarningNegativeSelfTime,
			Function:    n.Function,
			TimestampNS: n.StartNS,
		})
	}
	return warnings
}

// flatten groups nodes by (function, location, library) in first-occurrence
// order, then ranks the groups by cumulative self time, ties kept stable.
func flatten(forest []*calltree.Node) []FunctionStat {
	index := make(map[functionKey]int)
	functions := make([]FunctionStat, 0)

	calltree.Walk(forest, func(n *calltree.Node, _ int) {
		key := functionKey{
			function: n.Function,
			path:     n.Path,
			line:     n.Line,
			library:  n.Library,
		}
		i, seen := index[key]
		if !seen {
			i = len(functions)
			index[key] = i
			functions = append(functions, FunctionStat{
				Function: n.Function,
				Path:     n.Path,
				Line:     n.Line,
				Library:  n.Library,
			})
		}
		functions[i].CallCount++
		functions[i].SumSelfTimeNS += n.SelfTimeNS
		functions[i].SumDurationNS += n.DurationNS
	})

	sort.SliceStable(functions, func(i, j int) bool {
		return functions[i].SumSelfTimeNS > functions[j].SumSelfTimeNS
	})

	return functions
}
