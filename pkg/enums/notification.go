package enums

import "fmt"

// NotificationKind categorizes in-app notifications produced from lifecycle events.
type NotificationKind string

const (
	NotificationRequestCreated     NotificationKind = "request_created"
	NotificationPaymentCaptured    NotificationKind = "payment_captured"
	NotificationStatusChanged      NotificationKind = "status_changed"
	NotificationStakeholderAssigned NotificationKind = "stakeholder_assigned"
	NotificationCommissionCredited NotificationKind = "commission_credited"
)

var validNotificationKinds = []NotificationKind{
	NotificationRequestCreated,
	NotificationPaymentCaptured,
	NotificationStatusChanged,
	NotificationStakeholderAssigned,
	NotificationCommissionCredited,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
