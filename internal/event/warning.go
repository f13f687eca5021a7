package event

import "fmt"

type (
	// WarningKind identifies a class of structural noise observed while
	// validating or reconstructing an event stream.
	WarningKind string

	// Warning is a non-fatal defect. Warnings are accumulated and returned
	// alongside results, they never abort processing.
	Warning struct {
		Kind        WarningKind `json:"kind"`
		Function    string      `json:"function,omitempty"`
		TimestampNS uint64      `json:"timestamp_ns,omitempty"`
		Details     string      `json:"details,omitempty"`
	}
)

const (
	WarningTimestampOrder   WarningKind = "timestamp_order"
	WarningKindMismatch     WarningKind = "kind_mismatch"
	WarningNameMismatch     WarningKind = "name_mismatch"
	WarningStrayReturn      WarningKind = "stray_return"
	WarningTruncated        WarningKind = "truncated"
	WarningNegativeSelfTime WarningKind = "negative_self_time"
)

func (w Warning) String() string {
	s := string(w.Kind)
	if w.Function != "" {
		s = fmt.Sprintf("%s: %s", s, w.Function)
	}
	if w.Details != "" {
		s = fmt.Sprintf("%s (%s)", s, w.Details)
	}
	return s
}
