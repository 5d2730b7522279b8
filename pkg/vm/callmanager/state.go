package callmanager

// State is the phase the call manager is in, kept for diagnostics.
type State int

const (
	Idle State = iota
	Running
	MergingUp
	Discarding
	// Committed means frame 0 merged into the message buffer. The machine
	// still discards that buffer unless the exit code is Ok.
	Committed
	Reverted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case MergingUp:
		return "merging"
	case Discarding:
		return "discarding"
	case Committed:
		return "committed"
	case Reverted:
		return "reverted"
	default:
		return "unknown"
	}
}
