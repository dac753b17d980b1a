package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/api/responses"
	"github.com/wattly/wattly-backend/api/validators"
	"github.com/wattly/wattly-backend/internal/authz"
	"github.com/wattly/wattly-backend/internal/platformbilling"
	"github.com/wattly/wattly-backend/pkg/db/models"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/logger"
)

type generatePlatformInvoiceRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" validate:"required"`
	Year           int       `json:"year" validate:"required"`
	Month          int       `json:"month" validate:"required"`
}

type platformInvoiceListResponse struct {
	Invoices   []models.PlatformInvoice `json:"invoices"`
	NextCursor string                   `json:"next_cursor,omitempty"`
}

// PlatformInvoiceGenerate bills one organization for a usage period.
// Restricted to platform operators.
func PlatformInvoiceGenerate(svc platformbilling.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "platform billing service unavailable"))
			return
		}

		var body generatePlatformInvoiceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionPlatformBilling, body.OrganizationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.Generate(r.Context(), body.OrganizationID, body.Year, body.Month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// PlatformInvoiceList pages through platform invoices across organizations.
func PlatformInvoiceList(svc platformbilling.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "platform billing service unavailable"))
			return
		}

		if err := authz.Can(actorFrom(r), authz.ActionPlatformBilling, uuid.Nil); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := limitQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, next, err := svc.List(r.Context(), cursorQuery(r), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, platformInvoiceListResponse{Invoices: items, NextCursor: next})
	}
}

// PlatformInvoiceDetail returns one platform invoice.
func PlatformInvoiceDetail(svc platformbilling.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "platform billing service unavailable"))
			return
		}

		id, err := uuidParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionPlatformBilling, uuid.Nil); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}
