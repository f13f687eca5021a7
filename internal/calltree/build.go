package calltree

import (
	"errors"
	"fmt"

	"github.com/callprofiler/callprofiler/internal/event"
)

// Resource limits exceeded during reconstruction. These are the only fatal
// conditions: no partial tree is returned for them, so callers are never
// handed a tree known to be cut off arbitrarily.
var (
	ErrTooManyEvents = errors.New("calltree: too many events")
	ErrStackTooDeep  = errors.New("calltree: stack too deep")
)

type (
	// Options bounds reconstruction. Zero values disable the corresponding
	// limit.
	Options struct {
		MaxEvents     int
		MaxStackDepth int
	}
)

// BuildTree reconstructs a call forest from an ordered event stream in a
// single pass over an explicit stack.
//
// Matching is purely structural: a return always closes the most recently
// opened, still-open frame, even when the reported symbol differs. The name
// mismatch is recorded as a warning but never blocks closure, which
// tolerates instrumentation noise such as tail-call elision or native calls
// without a reliable symbol echo on return.
//
// If the stream ends with open frames, each one is closed synthetically at
// the timestamp of the last observed event and flagged truncated. A return
// with an empty stack is dropped. Zero events yield an empty forest.
func BuildTree(events []event.Event, opts Options) ([]*Node, []event.Warning, error) {
	if opts.MaxEvents > 0 && len(events) > opts.MaxEvents {
		return nil, nil, fmt.Errorf("%w: %d events, limit is %d", ErrTooManyEvents, len(events), opts.MaxEvents)
	}

	forest := make([]*Node, 0)
	var stack []*Node
	var warnings []event.Warning
	var lastTS uint64

	for _, e := range events {
		if e.TimestampNS > lastTS {
			lastTS = e.TimestampNS
		}
		switch {
		case e.Kind.IsCall():
			if opts.MaxStackDepth > 0 && len(stack) >= opts.MaxStackDepth {
				return nil, nil, fmt.Errorf("%w: depth %d, limit is %d", ErrStackTooDeep, len(stack)+1, opts.MaxStackDepth)
			}
			stack = append(stack, NodeFromEvent(e))
		case e.Kind.IsReturn():
			if len(stack) == 0 {
				warnings = append(warnings, event.Warning{
					Kind:        event.WarningStrayReturn,
					Function:    e.Function,
					TimestampNS: e.TimestampNS,
				})
				continue
			}
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if n.Function != e.Function {
				warnings = append(warnings, event.Warning{
					Kind:        event.WarningNameMismatch,
					Function:    n.Function,
					TimestampNS: e.TimestampNS,
					Details:     fmt.Sprintf("return reported %q", e.Function),
				})
			}
			n.Close(e.TimestampNS)
			attach(&forest, stack, n)
		}
	}

	// Close remaining open frames at the last observed timestamp.
	for i := len(stack) - 1; i >= 0; i-- {
		n := stack[i]
		n.Close(lastTS)
		n.Truncated = true
		warnings = append(warnings, event.Warning{
			Kind:        event.WarningTruncated,
			Function:    n.Function,
			TimestampNS: lastTS,
		})
		attach(&forest, stack[:i], n)
	}

	return forest, warnings, nil
}

// attach transfers a closed node into its parent's children, or into the
// forest when the stack is empty.
func attach(forest *[]*Node, stack []*Node, n *Node) {
	if len(stack) == 0 {
		*forest = append(*forest, n)
		return
	}
	parent := stack[len(stack)-1]
	parent.Children = append(parent.Children, n)
}
