package enums

import "fmt"

// StakeholderRole identifies a tier in the approval chain. RoleUnassigned is a
// ledger-only marker for commission owed to a slot with no registered
// stakeholder; it is never a login role.
type StakeholderRole string

const (
	RoleAdmin         StakeholderRole = "admin"
	RoleBranchManager StakeholderRole = "branch_manager"
	RoleTalukManager  StakeholderRole = "taluk_manager"
	RoleServiceAgent  StakeholderRole = "service_agent"
	RoleCustomer      StakeholderRole = "customer"
	RoleUnassigned    StakeholderRole = "unassigned"
	// RoleSystem marks transitions performed by the platform itself, such as
	// the payment-capture move into in_progress. It is never persisted on users.
	RoleSystem StakeholderRole = "system"
)

var validStakeholderRoles = []StakeholderRole{
	RoleAdmin,
	RoleBranchManager,
	RoleTalukManager,
	RoleServiceAgent,
	RoleCustomer,
	RoleUnassigned,
	RoleSystem,
}

// userRoles are the roles assignable to a login account.
var userRoles = []StakeholderRole{
	RoleAdmin,
	RoleBranchManager,
	RoleTalukManager,
	RoleServiceAgent,
	RoleCustomer,
}

// String implements fmt.Stringer.
func (r StakeholderRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StakeholderRole.
func (r StakeholderRole) IsValid() bool {
	for _, candidate := range validStakeholderRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsUserRole reports whether the role can be carried by a login account.
func (r StakeholderRole) IsUserRole() bool {
	for _, candidate := range userRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStakeholderRole converts raw input into a StakeholderRole.
func ParseStakeholderRole(value string) (StakeholderRole, error) {
	for _, candidate := range validStakeholderRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stakeholder role %q", value)
}
