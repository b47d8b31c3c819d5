package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sevalabs/gramseva-backend/api/responses"
	"github.com/sevalabs/gramseva-backend/api/validators"
	"github.com/sevalabs/gramseva-backend/internal/policies"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
)

type upsertPolicyBody struct {
	AdminRate    decimal.Decimal `json:"admin_rate"`
	BranchRate   decimal.Decimal `json:"branch_rate"`
	TalukRate    decimal.Decimal `json:"taluk_rate"`
	AgentRate    decimal.Decimal `json:"agent_rate"`
	CustomerRate decimal.Decimal `json:"customer_rate"`
}

// GetPolicy returns the active commission policy for a vertical.
func GetPolicy(svc policies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "policies service unavailable"))
			return
		}

		serviceType, err := parseServiceType(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := svc.GetActivePolicy(r.Context(), serviceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, policy)
	}
}

// ListPolicyVersions returns the policy history for a vertical, newest first.
func ListPolicyVersions(svc policies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "policies service unavailable"))
			return
		}

		serviceType, err := parseServiceType(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		versions, err := svc.ListPolicies(r.Context(), serviceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": versions})
	}
}

// UpsertPolicy replaces the active commission policy for a vertical. The old
// row is retired rather than mutated so past distributions stay auditable.
func UpsertPolicy(svc policies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "policies service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		serviceType, err := parseServiceType(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body upsertPolicyBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		createdBy := actor.UserID

		policy, err := svc.UpsertPolicy(r.Context(), policies.UpsertPolicyRequest{
			ServiceType:  serviceType,
			AdminRate:    body.AdminRate,
			BranchRate:   body.BranchRate,
			TalukRate:    body.TalukRate,
			AgentRate:    body.AgentRate,
			CustomerRate: body.CustomerRate,
			CreatedBy:    &createdBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, policy)
	}
}

func parseServiceType(r *http.Request) (enums.ServiceType, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "serviceType"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "service type is required")
	}
	serviceType, err := enums.ParseServiceType(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service type")
	}
	return serviceType, nil
}
