package notifications

// Policy decides what a failed send means to the operation that triggered it.
// Every call site names one; the zero value is rejected.
type Policy int

const (
	policyUndeclared Policy = iota
	// FailFast stops at the first failed send and returns ErrNotificationFailed.
	FailFast
	// BestEffort attempts every send, logs failures and never returns a delivery error.
	BestEffort
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case BestEffort:
		return "best_effort"
	default:
		return "undeclared"
	}
}
