package worker

// State is a position in the worker loop.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateProcessingBatch
	StateSleepingEmpty
	StateSuspended
	StateStopped
)

var allStates = []State{
	StateIdle,
	StateFetching,
	StateProcessingBatch,
	StateSleepingEmpty,
	StateSuspended,
	StateStopped,
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateProcessingBatch:
		return "processing_batch"
	case StateSleepingEmpty:
		return "sleeping_empty"
	case StateSuspended:
		return "suspended_until_tomorrow"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func stateNames() []string {
	names := make([]string, 0, len(allStates))
	for _, state := range allStates {
		names = append(names, state.String())
	}
	return names
}
