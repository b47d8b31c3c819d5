package requests

import (
	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// transitionTable is the single authority for which role may move a request
// along which edge. Reject/fail edges are handled by rejectionRoles since they
// fan out from every non-terminal state.
var transitionTable = map[enums.RequestStatus]map[enums.RequestStatus][]enums.StakeholderRole{
	enums.RequestStatusNew: {
		enums.RequestStatusInProgress: {enums.RoleSystem},
	},
	enums.RequestStatusInProgress: {
		enums.RequestStatusAssigned: {enums.RoleServiceAgent},
	},
	enums.RequestStatusAssigned: {
		enums.RequestStatusApproved: {enums.RoleTalukManager},
	},
	enums.RequestStatusApproved: {
		enums.RequestStatusEscalated: {enums.RoleTalukManager},
		enums.RequestStatusCompleted: {
			enums.RoleServiceAgent,
			enums.RoleTalukManager,
			enums.RoleBranchManager,
			enums.RoleAdmin,
			enums.RoleSystem,
		},
	},
	enums.RequestStatusEscalated: {
		enums.RequestStatusFinalApproved: {enums.RoleBranchManager},
	},
	enums.RequestStatusFinalApproved: {
		enums.RequestStatusCompleted: {
			enums.RoleServiceAgent,
			enums.RoleTalukManager,
			enums.RoleBranchManager,
			enums.RoleAdmin,
			enums.RoleSystem,
		},
	},
}

// rejectionRoles returns who may move a request from the given status into
// rejected or failed: the admin plus the stakeholder tier that currently owns
// the request.
func rejectionRoles(from enums.RequestStatus) []enums.StakeholderRole {
	roles := []enums.StakeholderRole{enums.RoleAdmin}
	switch from {
	case enums.RequestStatusNew:
		roles = append(roles, enums.RoleCustomer, enums.RoleSystem)
	case enums.RequestStatusInProgress:
		roles = append(roles, enums.RoleServiceAgent)
	case enums.RequestStatusAssigned, enums.RequestStatusApproved:
		roles = append(roles, enums.RoleTalukManager)
	case enums.RequestStatusEscalated, enums.RequestStatusFinalApproved:
		roles = append(roles, enums.RoleBranchManager)
	}
	return roles
}

// allowedRoles resolves the role set for a (from, to) edge, or nil when the
// edge does not exist.
func allowedRoles(from, to enums.RequestStatus) []enums.StakeholderRole {
	if to == enums.RequestStatusRejected || to == enums.RequestStatusFailed {
		if from.IsTerminal() {
			return nil
		}
		return rejectionRoles(from)
	}
	edges, ok := transitionTable[from]
	if !ok {
		return nil
	}
	return edges[to]
}

func roleAllowed(roles []enums.StakeholderRole, role enums.StakeholderRole) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}
