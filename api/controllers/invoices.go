package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/api/responses"
	"github.com/wattly/wattly-backend/api/validators"
	"github.com/wattly/wattly-backend/internal/authz"
	"github.com/wattly/wattly-backend/internal/invoices"
	"github.com/wattly/wattly-backend/internal/payments"
	"github.com/wattly/wattly-backend/pkg/db/models"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/logger"
)

type generateInvoicesRequest struct {
	Year      int         `json:"year" validate:"required"`
	Month     int         `json:"month" validate:"required"`
	MemberIDs []uuid.UUID `json:"member_ids,omitempty"`
}

type cancelInvoiceRequest struct {
	Reason string `json:"reason"`
}

type invoiceDetailResponse struct {
	Invoice *models.Invoice   `json:"invoice"`
	Payment *payments.Payload `json:"payment,omitempty"`
}

type invoiceListResponse struct {
	Invoices   []models.Invoice `json:"invoices"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// InvoiceGenerate creates draft invoices for one billing period.
func InvoiceGenerate(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionGenerateInvoices, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body generateInvoicesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Generate(r.Context(), invoices.GenerateInput{
			OrganizationID: orgID,
			Year:           body.Year,
			Month:          body.Month,
			MemberIDs:      body.MemberIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// InvoiceList pages through an organization's invoices, newest first.
func InvoiceList(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionReadInvoices, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := limitQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, next, err := svc.List(r.Context(), orgID, cursorQuery(r), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoiceListResponse{Invoices: items, NextCursor: next})
	}
}

// InvoiceDetail returns one invoice with its Swiss QR payment payload.
func InvoiceDetail(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoiceID, err := uuidParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionReadInvoices, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, payload, err := svc.Get(r.Context(), orgID, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoiceDetailResponse{Invoice: invoice, Payment: payload})
	}
}

// InvoiceSend marks a draft invoice as sent and queues delivery.
func InvoiceSend(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return invoiceTransition(svc, logg, func(r *http.Request, orgID, invoiceID uuid.UUID) (*models.Invoice, error) {
		return svc.Send(r.Context(), orgID, invoiceID)
	})
}

// InvoiceMarkPaid settles a sent or overdue invoice.
func InvoiceMarkPaid(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return invoiceTransition(svc, logg, func(r *http.Request, orgID, invoiceID uuid.UUID) (*models.Invoice, error) {
		return svc.MarkPaid(r.Context(), orgID, invoiceID)
	})
}

// InvoiceCancel voids an invoice that has not been paid.
func InvoiceCancel(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return invoiceTransition(svc, logg, func(r *http.Request, orgID, invoiceID uuid.UUID) (*models.Invoice, error) {
		var body cancelInvoiceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Cancel(r.Context(), orgID, invoiceID, body.Reason)
	})
}

func invoiceTransition(svc invoices.Service, logg *logger.Logger, fn func(r *http.Request, orgID, invoiceID uuid.UUID) (*models.Invoice, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoiceID, err := uuidParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionTransitionInvoices, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := fn(r, orgID, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}
