package speedscope

const (
	ValueUnitNanoseconds ValueUnit = "nanoseconds"

	EventTypeOpenFrame  EventType = "O"
	EventTypeCloseFrame EventType = "C"

	ProfileTypeEvented ProfileType = "evented"

	Version = "0.0.1"
)

type (
	EventType   string
	ProfileType string
	ValueUnit   string

	Frame struct {
		File          string `json:"file,omitempty"`
		Image         string `json:"image,omitempty"`
		IsApplication bool   `json:"is_application"`
		Line          uint32 `json:"line,omitempty"`
		Name          string `json:"name"`
		Path          string `json:"path,omitempty"`
	}

	Event struct {
		Type  EventType `json:"type"`
		Frame int       `json:"frame"`
		At    uint64    `json:"at"`
	}

	EventedProfile struct {
		EndValue   uint64      `json:"endValue"`
		Events     []Event     `json:"events"`
		Name       string      `json:"name"`
		StartValue uint64      `json:"startValue"`
		Type       ProfileType `json:"type"`
		Unit       ValueUnit   `json:"unit"`
	}

	SharedData struct {
		Frames []Frame `json:"frames"`
	}

	Output struct {
		ActiveProfileIndex int              `json:"activeProfileIndex"`
		DurationNS         uint64           `json:"durationNS"`
		Name               string           `json:"name"`
		Profiles           []EventedProfile `json:"profiles"`
		ProjectID          uint64           `json:"projectID"`
		Shared             SharedData       `json:"shared"`
		TraceID            string           `json:"traceID"`
		Version            string           `json:"version"`
	}
)
