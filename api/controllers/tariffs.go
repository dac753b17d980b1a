package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wattly/wattly-backend/api/responses"
	"github.com/wattly/wattly-backend/api/validators"
	"github.com/wattly/wattly-backend/internal/authz"
	"github.com/wattly/wattly-backend/internal/tariffs"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/logger"
)

type createTariffRequest struct {
	Name          string          `json:"name" validate:"required"`
	CommunityRate decimal.Decimal `json:"community_rate_per_kwh"`
	GridRate      decimal.Decimal `json:"grid_rate_per_kwh"`
	InjectionRate decimal.Decimal `json:"injection_rate_per_kwh"`
	MonthlyFee    decimal.Decimal `json:"monthly_base_fee"`
	VATPercent    decimal.Decimal `json:"vat_percent"`
	IsDefault     bool            `json:"is_default"`
	ValidFrom     time.Time       `json:"valid_from" validate:"required"`
	ValidTo       *time.Time      `json:"valid_to,omitempty"`
}

type updateTariffRequest struct {
	Name          *string          `json:"name,omitempty"`
	CommunityRate *decimal.Decimal `json:"community_rate_per_kwh,omitempty"`
	GridRate      *decimal.Decimal `json:"grid_rate_per_kwh,omitempty"`
	InjectionRate *decimal.Decimal `json:"injection_rate_per_kwh,omitempty"`
	MonthlyFee    *decimal.Decimal `json:"monthly_base_fee,omitempty"`
	VATPercent    *decimal.Decimal `json:"vat_percent,omitempty"`
	IsDefault     *bool            `json:"is_default,omitempty"`
	ValidFrom     *time.Time       `json:"valid_from,omitempty"`
	ValidTo       *time.Time       `json:"valid_to,omitempty"`
}

// TariffList returns all tariff plans of an organization.
func TariffList(svc tariffs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tariff service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionManageTariffs, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plans, err := svc.List(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plans)
	}
}

// TariffCreate adds a tariff plan to an organization.
func TariffCreate(svc tariffs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tariff service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionManageTariffs, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createTariffRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Create(r.Context(), tariffs.CreateInput{
			OrganizationID: orgID,
			Name:           body.Name,
			CommunityRate:  body.CommunityRate,
			GridRate:       body.GridRate,
			InjectionRate:  body.InjectionRate,
			MonthlyFee:     body.MonthlyFee,
			VATPercent:     body.VATPercent,
			IsDefault:      body.IsDefault,
			ValidFrom:      body.ValidFrom,
			ValidTo:        body.ValidTo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, plan)
	}
}

// TariffUpdate applies a partial update to a tariff plan.
func TariffUpdate(svc tariffs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tariff service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		planID, err := uuidParam(r, "planID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionManageTariffs, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateTariffRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Update(r.Context(), orgID, planID, tariffs.UpdateInput{
			Name:          body.Name,
			CommunityRate: body.CommunityRate,
			GridRate:      body.GridRate,
			InjectionRate: body.InjectionRate,
			MonthlyFee:    body.MonthlyFee,
			VATPercent:    body.VATPercent,
			IsDefault:     body.IsDefault,
			ValidFrom:     body.ValidFrom,
			ValidTo:       body.ValidTo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plan)
	}
}
