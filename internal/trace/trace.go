package trace

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/callprofiler/callprofiler/internal/errorutil"
	"github.com/callprofiler/callprofiler/internal/event"
	"github.com/callprofiler/callprofiler/internal/timeutil"
)

type (
	// Trace is one recorded execution as shipped by the instrumentation
	// hook: the capture window, the traced entry point and the full ordered
	// event stream.
	Trace struct {
		ID             string        `json:"trace_id"`
		Name           string        `json:"name"`
		OrganizationID uint64        `json:"organization_id"`
		ProjectID      uint64        `json:"project_id"`
		StartNS        uint64        `json:"start_ns"`
		EndNS          uint64        `json:"end_ns"`
		Received       timeutil.Time `json:"received,omitempty"`
		Events         []event.Event `json:"events"`
	}
)

// EnsureID assigns a fresh ID when the producer did not set one.
func (t *Trace) EnsureID() {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
}

// Validate checks the envelope itself, not the event stream. Event stream
// defects are warnings, envelope defects are data integrity errors.
func (t Trace) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: missing trace name", errorutil.ErrDataIntegrity)
	}
	if _, err := uuid.Parse(t.ID); err != nil {
		return fmt.Errorf("%w: invalid trace ID %q", errorutil.ErrDataIntegrity, t.ID)
	}
	if t.EndNS < t.StartNS {
		return fmt.Errorf("%w: capture window ends before it starts", errorutil.ErrDataIntegrity)
	}
	return nil
}

func (t Trace) StoragePath() string {
	return StoragePath(t.OrganizationID, t.ProjectID, t.ID)
}

func StoragePath(organizationID, projectID uint64, traceID string) string {
	return fmt.Sprintf("%d/%d/traces/%s", organizationID, projectID, traceID)
}
