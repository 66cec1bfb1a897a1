package settlement

// State is the phase of a settlement run.
type State int32

// Settlement phases.
const (
	Idle State = iota
	Collecting
	Computing
	Committing
	Resetting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Computing:
		return "computing"
	case Committing:
		return "committing"
	case Resetting:
		return "resetting"
	default:
		return "unknown"
	}
}
