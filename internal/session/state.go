package session

// OverviewState is the attempt-level lifecycle.
type OverviewState string

const (
	StateUninitialized OverviewState = "UNINITIALIZED"
	StateLoading       OverviewState = "LOADING"
	StateReady         OverviewState = "READY"
	// StateFailed is terminal except for a manual retry, which routes the
	// student back through preflight.
	StateFailed OverviewState = "FAILED"
	// StateSubmitted means the backend confirmed the final submission (or
	// reported it already submitted) and local attempt state is gone.
	StateSubmitted OverviewState = "SUBMITTED"
)

// RequestState is the per-mutation latch that makes double-submission
// structurally impossible: re-invocation while in-flight is rejected instead
// of relying on UI discipline.
type RequestState int

const (
	RequestIdle RequestState = iota
	RequestInFlight
	RequestSucceeded
	RequestFailed
)
