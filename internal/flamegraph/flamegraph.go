package flamegraph

import (
	"github.com/callprofiler/callprofiler/internal/calltree"
	"github.com/callprofiler/callprofiler/internal/speedscope"
	"github.com/callprofiler/callprofiler/internal/trace"
)

type (
	frameKey struct {
		name    string
		path    string
		line    uint32
		library string
	}

	flamegraph struct {
		frames       []speedscope.Frame
		frameIndexes map[frameKey]int
		events       []speedscope.Event
		endValue     uint64
	}
)

// ToSpeedscope converts an annotated report into a speedscope evented
// profile: an open event at each node's entry offset and a close event at
// its exit offset, in depth-first pre-order, with a shared frame table
// deduplicated by function identity.
func ToSpeedscope(r trace.Report) speedscope.Output {
	f := flamegraph{
		frames:       make([]speedscope.Frame, 0),
		frameIndexes: make(map[frameKey]int),
		events:       make([]speedscope.Event, 0),
	}
	for _, root := range r.Forest {
		f.visitCallTree(root)
	}

	return speedscope.Output{
		DurationNS: r.DurationNS,
		Name:       r.Name,
		ProjectID:  r.ProjectID,
		TraceID:    r.TraceID,
		Version:    speedscope.Version,
		Shared: speedscope.SharedData{
			Frames: f.frames,
		},
		Profiles: []speedscope.EventedProfile{
			{
				EndValue:   f.endValue,
				Events:     f.events,
				Name:       r.Name,
				StartValue: 0,
				Type:       speedscope.ProfileTypeEvented,
				Unit:       speedscope.ValueUnitNanoseconds,
			},
		},
	}
}

func (f *flamegraph) visitCallTree(node *calltree.Node) {
	frameIndex := f.getFrameIndex(node)

	f.events = append(f.events, speedscope.Event{
		Type:  speedscope.EventTypeOpenFrame,
		Frame: frameIndex,
		At:    node.StartNS,
	})
	for _, child := range node.Children {
		f.visitCallTree(child)
	}
	f.events = append(f.events, speedscope.Event{
		Type:  speedscope.EventTypeCloseFrame,
		Frame: frameIndex,
		At:    node.EndNS,
	})
	if node.EndNS > f.endValue {
		f.endValue = node.EndNS
	}
}

func (f *flamegraph) getFrameIndex(node *calltree.Node) int {
	key := frameKey{
		name:    node.Function,
		path:    node.Path,
		line:    node.Line,
		library: node.Library,
	}
	if i, exists := f.frameIndexes[key]; exists {
		return i
	}
	i := len(f.frames)
	f.frameIndexes[key] = i
	f.frames = append(f.frames, speedscope.Frame{
		File:          node.Path,
		Image:         node.Library,
		IsApplication: !node.IsExternal,
		Line:          node.Line,
		Name:          node.Function,
		Path:          node.Path,
	})
	return i
}
