package metrics

// TransitionApplied records a status change that was committed.
func TransitionApplied(entity, action string) {
	Transitions.WithLabelValues(entity, action).Inc()
}

// TransitionRejected records a status change that was refused.
func TransitionRejected(entity string) {
	RejectedTransitions.WithLabelValues(entity).Inc()
}

// QuotaRejected records a submission refused by a monthly allowance.
func QuotaRejected(kind, tier string) {
	QuotaRejections.WithLabelValues(kind, tier).Inc()
}

// BillingCall records the outcome of a billing provider call.
func BillingCall(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	BillingCalls.WithLabelValues(operation, status).Inc()
}
