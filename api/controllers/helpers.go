package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/api/middleware"
	"github.com/wattly/wattly-backend/internal/authz"
	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

// actorFrom reconstructs the authenticated actor from the request context.
func actorFrom(r *http.Request) authz.Actor {
	ctx := r.Context()
	actor := authz.Actor{
		Role: enums.MemberRole(middleware.RoleFromContext(ctx)),
	}
	if raw := middleware.UserIDFromContext(ctx); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actor.UserID = id
		}
	}
	if raw := middleware.OrganizationIDFromContext(ctx); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actor.OrganizationID = &id
		}
	}
	return actor
}

func orgIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orgID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization id")
	}
	return id, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func periodQuery(r *http.Request) (int, int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("year")))
	if err != nil {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "year query parameter required")
	}
	month, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "month query parameter required")
	}
	return year, month, nil
}

func limitQuery(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
	}
	return value, nil
}

func cursorQuery(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("cursor"))
}
