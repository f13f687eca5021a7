package event

type (
	// Kind is the instrumentation event type. The wire names come from the
	// runtime profile hook: "call"/"return" for interpreted frames,
	// "c_call"/"c_return" for native frames.
	Kind string

	// Event is a single enter or exit occurrence recorded by the
	// instrumentation hook. Events arrive pre-classified: IsExternal and
	// Library are resolved by the producer, never computed here.
	Event struct {
		Kind        Kind   `json:"event"`
		Function    string `json:"func_name"`
		Module      string `json:"module,omitempty"`
		Path        string `json:"filename,omitempty"`
		Line        uint32 `json:"lineno,omitempty"`
		TimestampNS uint64 `json:"timestamp_ns"`
		IsExternal  bool   `json:"is_external"`
		Library     string `json:"library_name,omitempty"`
	}
)

const (
	KindCall         Kind = "call"
	KindReturn       Kind = "return"
	KindNativeCall   Kind = "c_call"
	KindNativeReturn Kind = "c_return"
)

func (k Kind) IsCall() bool {
	return k == KindCall || k == KindNativeCall
}

func (k Kind) IsReturn() bool {
	return k == KindReturn || k == KindNativeReturn
}

func (k Kind) IsNative() bool {
	return k == KindNativeCall || k == KindNativeReturn
}

// MatchesFamily reports whether a return kind belongs to the same kind
// family as the call kind it would close.
func (k Kind) MatchesFamily(call Kind) bool {
	return k.IsNative() == call.IsNative()
}
