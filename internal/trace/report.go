package trace

import (
	"github.com/callprofiler/callprofiler/internal/aggregate"
	"github.com/callprofiler/callprofiler/internal/calltree"
	"github.com/callprofiler/callprofiler/internal/event"
)

type (
	// Report is the processed output of a trace: the annotated call forest,
	// the per-library rollup, the ranked function summary and the warnings
	// collected along the way. It is a plain serializable structure with no
	// presentation markup; renderers only read it.
	Report struct {
		TraceID               string                           `json:"trace_id"`
		Name                  string                           `json:"name"`
		OrganizationID        uint64                           `json:"organization_id"`
		ProjectID             uint64                           `json:"project_id"`
		DurationNS            uint64                           `json:"duration_ns"`
		EventCount            int                              `json:"event_count"`
		Forest                []*calltree.Node                 `json:"call_tree"`
		ApplicationSelfTimeNS uint64                           `json:"application_self_time_ns"`
		Libraries             map[string]aggregate.LibraryStat `json:"libraries"`
		Functions             []aggregate.FunctionStat         `json:"functions"`
		Warnings              []event.Warning                  `json:"warnings,omitempty"`
	}
)

// NewReport reconstructs and aggregates the trace's event stream. All
// timestamps in the resulting forest are rebased to the capture start so
// renderers can lay nodes out as offsets into the trace window.
//
// Structural noise (stray returns, truncated frames, name mismatches,
// clamped self times) is collected into Report.Warnings; the only errors
// returned are resource limit violations, for which no report is produced.
func NewReport(t Trace, opts calltree.Options) (Report, error) {
	warnings := event.Validate(t.Events)

	forest, buildWarnings, err := calltree.BuildTree(t.Events, opts)
	if err != nil {
		return Report{}, err
	}
	warnings = append(warnings, buildWarnings...)

	for _, root := range forest {
		root.Normalize(t.StartNS)
	}

	result, aggWarnings := aggregate.Aggregate(forest)
	warnings = append(warnings, aggWarnings...)

	var durationNS uint64
	if t.EndNS > t.StartNS {
		durationNS = t.EndNS - t.StartNS
	}
	// A producer that crashed before stamping the window end still gets a
	// report bounded by the observed events.
	for _, root := range result.Forest {
		if root.EndNS > durationNS {
			durationNS = root.EndNS
		}
	}

	return Report{
		TraceID:               t.ID,
		Name:                  t.Name,
		OrganizationID:        t.OrganizationID,
		ProjectID:             t.ProjectID,
		DurationNS:            durationNS,
		EventCount:            len(t.Events),
		Forest:                result.Forest,
		ApplicationSelfTimeNS: result.ApplicationSelfTimeNS,
		Libraries:             result.Libraries,
		Functions:             result.Functions,
		Warnings:              warnings,
	}, nil
}

// StoragePath is where the processed report lives in object storage.
func (r Report) StoragePath() string {
	return StoragePath(r.OrganizationID, r.ProjectID, r.TraceID)
}
