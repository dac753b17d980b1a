// Package authz is the single capability check for organization-scoped
// operations. Services and controllers ask Can(actor, action, org) instead of
// re-implementing role checks per endpoint.
package authz

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

// Action names one privileged operation of the engine.
type Action string

const (
	ActionImportLoadCurves   Action = "load_curves.import"
	ActionRecomputePeriod    Action = "allocations.recompute"
	ActionReadAggregates     Action = "aggregates.read"
	ActionManageTariffs      Action = "tariffs.manage"
	ActionGenerateInvoices   Action = "invoices.generate"
	ActionReadInvoices       Action = "invoices.read"
	ActionTransitionInvoices Action = "invoices.transition"
	ActionManageOrganization Action = "organization.manage"
	ActionPlatformBilling    Action = "platform.billing"
)

// Actor is the authenticated caller derived from the access token.
type Actor struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
	Role           enums.MemberRole
}

// IsOperator reports whether the actor is a platform operator: an admin token
// not bound to any single organization.
func (a Actor) IsOperator() bool {
	return a.Role == enums.MemberRoleAdmin && a.OrganizationID == nil
}

// Can authorizes the actor for an action against an organization. Platform
// operators may act on any organization; organization admins only on their
// own. ActionPlatformBilling is operator-only.
func Can(actor Actor, action Action, orgID uuid.UUID) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor")
	}

	if action == ActionPlatformBilling {
		if !actor.IsOperator() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "platform billing requires a platform operator")
		}
		return nil
	}

	if actor.Role != enums.MemberRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s requires an administrator", action))
	}
	if actor.OrganizationID != nil && *actor.OrganizationID != orgID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor is bound to a different organization")
	}
	return nil
}
