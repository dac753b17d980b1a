package controllers

import (
	"net/http"

	"github.com/wattly/wattly-backend/api/responses"
	"github.com/wattly/wattly-backend/internal/allocation"
	"github.com/wattly/wattly-backend/internal/authz"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/logger"
)

// AllocationRecompute re-runs pooled allocation for one billing period.
func AllocationRecompute(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allocation service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionRecomputePeriod, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		year, month, err := periodQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		aggregates, err := svc.Recompute(r.Context(), orgID, year, month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, aggregates)
	}
}

// AllocationList returns the monthly aggregates for one billing period.
func AllocationList(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allocation service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionReadAggregates, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		year, month, err := periodQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		aggregates, err := svc.ListForPeriod(r.Context(), orgID, year, month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, aggregates)
	}
}

// AllocationMemberDetail returns one member's aggregate for a billing period.
func AllocationMemberDetail(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allocation service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		memberID, err := uuidParam(r, "memberID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionReadAggregates, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		year, month, err := periodQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		aggregate, err := svc.GetForMember(r.Context(), orgID, memberID, year, month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, aggregate)
	}
}
