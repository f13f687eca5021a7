package event

import "fmt"

// Validate checks an event stream for non-decreasing timestamps and for
// return events whose kind family does not match the most recent unmatched
// call. Defects are reported as warnings, never as errors: a malformed
// stream must still go through reconstruction and produce a best-effort
// tree.
func Validate(events []Event) []Warning {
	var warnings []Warning
	var lastTS uint64
	var stack []Kind
	for i, e := range events {
		if e.TimestampNS < lastTS {
			warnings = append(warnings, Warning{
				Kind:        WarningTimestampOrder,
				Function:    e.Function,
				TimestampNS: e.TimestampNS,
				Details:     fmt.Sprintf("event %d precedes event %d", i, i-1),
			})
		}
		lastTS = e.TimestampNS

		switch {
		case e.Kind.IsCall():
			stack = append(stack, e.Kind)
		case e.Kind.IsReturn():
			if len(stack) == 0 {
				// Reported by the reconstructor as a stray return.
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !e.Kind.MatchesFamily(top) {
				warnings = append(warnings, Warning{
					Kind:        WarningKindMismatch,
					Function:    e.Function,
					TimestampNS: e.TimestampNS,
					Details:     fmt.Sprintf("%s closes %s", e.Kind, top),
				})
			}
		}
	}
	return warnings
}
