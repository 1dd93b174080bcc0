package response

// ErrCode is a typed error code enum for consistent gateway error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrNotLoggedIn        ErrCode = "NOT_LOGGED_IN"
	ErrLoginFailed        ErrCode = "LOGIN_FAILED"
	ErrSupervisorPIN      ErrCode = "SUPERVISOR_PIN_INVALID"
	ErrSupervisorDisabled ErrCode = "SUPERVISOR_UNLOCK_DISABLED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Session flow ──────────────────────────────────────────────────
	ErrPreflightIncomplete ErrCode = "PREFLIGHT_INCOMPLETE"
	ErrInvalidAttempt      ErrCode = "INVALID_ATTEMPT"
	ErrNoActiveAttempt     ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrPaperLoadFailed     ErrCode = "PAPER_LOAD_FAILED"
	ErrSubjectCompleted    ErrCode = "SUBJECT_COMPLETED"
	ErrUnknownSubject      ErrCode = "UNKNOWN_SUBJECT"
	ErrNoBacktrack         ErrCode = "NO_BACKTRACK"
	ErrSectionsPending     ErrCode = "SECTIONS_PENDING"
	ErrSubmitInFlight      ErrCode = "SUBMIT_IN_FLIGHT"
	ErrSubmitFailed        ErrCode = "SUBMIT_FAILED"

	// ─── Upstream backend ──────────────────────────────────────────────
	ErrBackend ErrCode = "BACKEND_ERROR"
	ErrNetwork ErrCode = "NETWORK_ERROR"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code. These
// are the toast texts the shell shows verbatim.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrNotLoggedIn:
		return "Please log in first."
	case ErrLoginFailed:
		return "Login failed. Please check your credentials."
	case ErrSupervisorPIN:
		return "Supervisor PIN is incorrect."
	case ErrSupervisorDisabled:
		return "Supervisor unlock is not configured on this kiosk."
	case ErrValidation:
		return "Please fill all fields!"
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrPreflightIncomplete:
		return "Agree to the terms and grant camera, microphone and photo before starting."
	case ErrInvalidAttempt:
		return "Invalid attempt data from server."
	case ErrNoActiveAttempt:
		return "No exam attempt in progress."
	case ErrPaperLoadFailed:
		return "Failed to load exam paper. Please try starting again."
	case ErrSubjectCompleted:
		return "This section has already been submitted."
	case ErrUnknownSubject:
		return "Unknown section."
	case ErrNoBacktrack:
		return "You cannot go back to an earlier question."
	case ErrSectionsPending:
		return "Complete every section before the final submit."
	case ErrSubmitInFlight:
		return "Submission already in progress."
	case ErrSubmitFailed:
		return "Failed to submit exam. Please try again."
	case ErrBackend:
		return "The exam server rejected the request."
	case ErrNetwork:
		return "Network error. Please try again."
	case ErrInternal:
		return "An internal error occurred."
	default:
		return "An unexpected error occurred."
	}
}
