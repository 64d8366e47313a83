package scanner

// State is the phase of a scan pass.
type State uint8

const (
	StateIdle State = iota
	StateFetching
	StateFiltering
	StateVerifying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateFiltering:
		return "filtering"
	case StateVerifying:
		return "verifying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the pass has finished.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
