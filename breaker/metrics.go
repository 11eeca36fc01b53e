package breaker

const (
	MetricRequestsTotal = "breaker_requests_total"
	MetricStateChanges  = "breaker_state_changes_total"

	LabelKey       = "key"
	LabelResult    = "result"
	LabelFromState = "from_state"
	LabelToState   = "to_state"

	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
)
