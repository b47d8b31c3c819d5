package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sevalabs/gramseva-backend/api/middleware"
	"github.com/sevalabs/gramseva-backend/internal/requests"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
)

// actorFromRequest rebuilds the acting identity from the auth middleware's
// context values.
func actorFromRequest(r *http.Request) (requests.Actor, error) {
	rawUserID := middleware.UserIDFromContext(r.Context())
	if rawUserID == "" {
		return requests.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return requests.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	role, err := enums.ParseStakeholderRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return requests.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}

	return requests.Actor{UserID: userID, Role: role}, nil
}

// userIDFromRequest is the narrow variant for endpoints that only need the
// authenticated user's id.
func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return uuid.Nil, err
	}
	return actor.UserID, nil
}
