package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/api/responses"
	"github.com/wattly/wattly-backend/api/validators"
	"github.com/wattly/wattly-backend/internal/authz"
	"github.com/wattly/wattly-backend/internal/orgs"
	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/logger"
)

type createOrganizationRequest struct {
	Name               string `json:"name" validate:"required"`
	DistributionPolicy string `json:"distribution_policy" validate:"required"`
	PayeeName          string `json:"payee_name" validate:"required"`
	PayeeStreet        string `json:"payee_street" validate:"required"`
	PayeePostalCode    int    `json:"payee_postal_code" validate:"required"`
	PayeeCity          string `json:"payee_city" validate:"required"`
	IBAN               string `json:"iban" validate:"required"`
	Currency           string `json:"currency"`
	PaymentTermDays    int    `json:"payment_term_days"`
	DefaultLocale      string `json:"default_locale"`
}

type createMemberRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Locale        string `json:"locale"`
	Role          string `json:"role"`
	PriorityLevel int    `json:"priority_level"`
}

type createMeterPointRequest struct {
	MemberID uuid.UUID `json:"member_id" validate:"required"`
	PodCode  string    `json:"pod_code" validate:"required"`
	Category string    `json:"category" validate:"required"`
}

// OrganizationCreate registers a new energy community. Operator-only.
func OrganizationCreate(svc orgs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organization service unavailable"))
			return
		}

		actor := actorFrom(r)
		if !actor.IsOperator() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "creating organizations requires a platform operator"))
			return
		}

		var body createOrganizationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := svc.CreateOrganization(r.Context(), orgs.CreateOrganizationInput{
			Name:               body.Name,
			DistributionPolicy: enums.DistributionPolicy(body.DistributionPolicy),
			PayeeName:          body.PayeeName,
			PayeeStreet:        body.PayeeStreet,
			PayeePostalCode:    body.PayeePostalCode,
			PayeeCity:          body.PayeeCity,
			IBAN:               body.IBAN,
			Currency:           enums.Currency(body.Currency),
			PaymentTermDays:    body.PaymentTermDays,
			DefaultLocale:      body.DefaultLocale,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, org)
	}
}

// OrganizationDetail returns one organization.
func OrganizationDetail(svc orgs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organization service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionManageOrganization, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := svc.GetOrganization(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, org)
	}
}

// MemberCreate adds a member to an organization.
func MemberCreate(svc orgs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organization service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionManageOrganization, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createMemberRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.CreateMember(r.Context(), orgs.CreateMemberInput{
			OrganizationID: orgID,
			Name:           body.Name,
			Email:          body.Email,
			Locale:         body.Locale,
			Role:           enums.MemberRole(body.Role),
			PriorityLevel:  body.PriorityLevel,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, member)
	}
}

// MemberList returns all members of an organization.
func MemberList(svc orgs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organization service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionManageOrganization, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		members, err := svc.ListMembers(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, members)
	}
}

// MeterPointCreate binds a POD code to a member.
func MeterPointCreate(svc orgs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organization service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionManageOrganization, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createMeterPointRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		point, err := svc.CreateMeterPoint(r.Context(), orgs.CreateMeterPointInput{
			OrganizationID: orgID,
			MemberID:       body.MemberID,
			PodCode:        body.PodCode,
			Category:       enums.MeterCategory(body.Category),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, point)
	}
}

// MeterPointList returns all meter points of an organization.
func MeterPointList(svc orgs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organization service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionManageOrganization, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		points, err := svc.ListMeterPoints(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, points)
	}
}
