package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateServiceRequest  OutboxAggregateType = "service_request"
	AggregateCommissionEntry OutboxAggregateType = "commission_entry"
	AggregateWallet          OutboxAggregateType = "wallet"
	AggregateNotification    OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateServiceRequest,
	AggregateCommissionEntry,
	AggregateWallet,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventRequestCreated        OutboxEventType = "request_created"
	EventPaymentCaptured       OutboxEventType = "payment_captured"
	EventRequestStateChanged   OutboxEventType = "request_state_changed"
	EventStakeholderAssigned   OutboxEventType = "stakeholder_assigned"
	EventRequestCompleted      OutboxEventType = "request_completed"
	EventRequestRejected       OutboxEventType = "request_rejected"
	EventCommissionDistributed OutboxEventType = "commission_distributed"
	EventCommissionCredited    OutboxEventType = "commission_credited"
	EventCommissionCreditStuck OutboxEventType = "commission_credit_stuck"
)

var validOutboxEventTypes = []OutboxEventType{
	EventRequestCreated,
	EventPaymentCaptured,
	EventRequestStateChanged,
	EventStakeholderAssigned,
	EventRequestCompleted,
	EventRequestRejected,
	EventCommissionDistributed,
	EventCommissionCredited,
	EventCommissionCreditStuck,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason captures why a published event landed in the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// IsValid reports whether the value is a known OutboxDLQErrorReason.
func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
