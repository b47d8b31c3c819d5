package enums

import "fmt"

// RequestStatus tracks the lifecycle of a service request through the
// stakeholder approval chain.
type RequestStatus string

const (
	RequestStatusNew           RequestStatus = "new"
	RequestStatusInProgress    RequestStatus = "in_progress"
	RequestStatusAssigned      RequestStatus = "assigned"
	RequestStatusApproved      RequestStatus = "approved"
	RequestStatusEscalated     RequestStatus = "escalated"
	RequestStatusFinalApproved RequestStatus = "final_approved"
	RequestStatusCompleted     RequestStatus = "completed"
	RequestStatusRejected      RequestStatus = "rejected"
	RequestStatusFailed        RequestStatus = "failed"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusNew,
	RequestStatusInProgress,
	RequestStatusAssigned,
	RequestStatusApproved,
	RequestStatusEscalated,
	RequestStatusFinalApproved,
	RequestStatusCompleted,
	RequestStatusRejected,
	RequestStatusFailed,
}

// String implements fmt.Stringer.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestStatus.
func (r RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from the status.
func (r RequestStatus) IsTerminal() bool {
	switch r {
	case RequestStatusCompleted, RequestStatusRejected, RequestStatusFailed:
		return true
	default:
		return false
	}
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
