package compress

// State is the lifecycle state of a Compressor or Decompressor.
type State uint8

const (
	// StateIdle engines hold no session; the first push starts one.
	StateIdle State = iota
	// StateActive engines hold a session with buffered input.
	StateActive
	// StateFinishing is entered while Finish drains the session.
	StateFinishing
	// StateClosed engines reject every push; Finish and Close are no-ops.
	StateClosed
	// StateErrored engines failed and return the stored error from every call.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateActive:
		return "Active"
	case StateFinishing:
		return "Finishing"
	case StateClosed:
		return "Closed"
	case StateErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}
