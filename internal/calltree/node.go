package calltree

import (
	"github.com/callprofiler/callprofiler/internal/event"
)

// NoEndTime signifies that a call does not have an end time yet because its
// matching return has not been observed.
const NoEndTime uint64 = 0

type (
	// Node is one function invocation in a call tree. Children are ordered
	// by call order. SelfTimeNS is filled in by the aggregation pass.
	Node struct {
		Function   string  `json:"name"`
		Module     string  `json:"module,omitempty"`
		Path       string  `json:"path,omitempty"`
		Line       uint32  `json:"line,omitempty"`
		Library    string  `json:"library,omitempty"`
		IsExternal bool    `json:"is_external"`
		StartNS    uint64  `json:"start_ns"`
		EndNS      uint64  `json:"end_ns"`
		DurationNS uint64  `json:"duration_ns"`
		SelfTimeNS uint64  `json:"self_time_ns"`
		Truncated  bool    `json:"truncated,omitempty"`
		Children   []*Node `json:"children,omitempty"`
	}
)

// NodeFromEvent creates an open node from a call event.
func NodeFromEvent(e event.Event) *Node {
	return &Node{
		Function:   e.Function,
		Module:     e.Module,
		Path:       e.Path,
		Line:       e.Line,
		Library:    e.Library,
		IsExternal: e.IsExternal,
		StartNS:    e.TimestampNS,
		EndNS:      NoEndTime,
	}
}

// Close stamps the end timestamp and the duration. A timestamp earlier than
// the start saturates to a zero duration instead of wrapping around.
func (n *Node) Close(t uint64) {
	n.EndNS = t
	if t >= n.StartNS {
		n.DurationNS = t - n.StartNS
	} else {
		n.DurationNS = 0
	}
}

// Normalize rebases all timestamps in the subtree relative to base,
// saturating at zero.
func (n *Node) Normalize(base uint64) {
	n.StartNS = saturatingSub(n.StartNS, base)
	n.EndNS = saturatingSub(n.EndNS, base)
	for _, child := range n.Children {
		child.Normalize(base)
	}
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// Walk visits every node of the forest in depth-first pre-order, the layout
// order used by flame-graph style rendering. The depth of roots is 0.
func Walk(forest []*Node, fn func(n *Node, depth int)) {
	for _, root := range forest {
		walkNode(root, 0, fn)
	}
}

func walkNode(n *Node, depth int, fn func(n *Node, depth int)) {
	fn(n, depth)
	for _, child := range n.Children {
		walkNode(child, depth+1, fn)
	}
}

// CountNodes returns the number of nodes in the forest.
func CountNodes(forest []*Node) int {
	var count int
	Walk(forest, func(*Node, int) {
		count++
	})
	return count
}
