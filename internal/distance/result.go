package distance

import "context"

// Status strings written to the results table.
const (
	StatusOK           = "OK"
	StatusNotFound     = "NOT_FOUND"
	StatusUnknownError = "UNKNOWN_ERROR"
)

// Outcome classifies a lookup.
type Outcome int

const (
	// OutcomeSuccess carries a drive time in minutes.
	OutcomeSuccess Outcome = iota
	// OutcomeNotFound means the API answered but has no route for the pair.
	OutcomeNotFound
	// OutcomeUpstreamError means the API answered with a non-OK top-level
	// status such as OVER_QUERY_LIMIT.
	OutcomeUpstreamError
	// OutcomeTransportError covers network failures, HTTP errors, and
	// unreadable bodies.
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUpstreamError:
		return "upstream_error"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Result is the normalized outcome of one lookup. Minutes is non-nil only for
// OutcomeSuccess. Err explains transport failures and is never persisted.
type Result struct {
	Minutes *int
	Status  string
	Outcome Outcome
	Err     error
}

// Persistable reports whether the result should be stored and the batch
// continued.
func (r Result) Persistable() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomeNotFound
}

// Lookuper resolves a single origin/destination pair.
type Lookuper interface {
	Lookup(ctx context.Context, origin, destination string) Result
}

func success(minutes int) Result {
	return Result{Minutes: &minutes, Status: StatusOK, Outcome: OutcomeSuccess}
}

func notFound() Result {
	return Result{Status: StatusNotFound, Outcome: OutcomeNotFound}
}

func upstream(status string) Result {
	return Result{Status: status, Outcome: OutcomeUpstreamError}
}

func transportFailure(err error) Result {
	return Result{Status: StatusUnknownError, Outcome: OutcomeTransportError, Err: err}
}
