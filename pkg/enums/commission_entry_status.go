package enums

import "fmt"

// CommissionEntryStatus reflects whether a commission share has landed in the
// stakeholder's wallet.
type CommissionEntryStatus string

const (
	// CommissionEntryCredited means the wallet credit succeeded.
	CommissionEntryCredited CommissionEntryStatus = "credited"
	// CommissionEntryPendingCredit means the entry exists but the wallet call
	// failed; the reconciliation sweep retries it.
	CommissionEntryPendingCredit CommissionEntryStatus = "pending_credit"
	// CommissionEntryUnassigned means the share is owed to a location slot with
	// no registered stakeholder yet.
	CommissionEntryUnassigned CommissionEntryStatus = "unassigned"
)

var validCommissionEntryStatuses = []CommissionEntryStatus{
	CommissionEntryCredited,
	CommissionEntryPendingCredit,
	CommissionEntryUnassigned,
}

// String implements fmt.Stringer.
func (c CommissionEntryStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionEntryStatus.
func (c CommissionEntryStatus) IsValid() bool {
	for _, candidate := range validCommissionEntryStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionEntryStatus converts raw input into a CommissionEntryStatus.
func ParseCommissionEntryStatus(value string) (CommissionEntryStatus, error) {
	for _, candidate := range validCommissionEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission entry status %q", value)
}
