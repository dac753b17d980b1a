package tariffs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/db/models"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput carries the fields for a new tariff plan.
type CreateInput struct {
	OrganizationID uuid.UUID
	Name           string
	CommunityRate  decimal.Decimal
	GridRate       decimal.Decimal
	InjectionRate  decimal.Decimal
	MonthlyFee     decimal.Decimal
	VATPercent     decimal.Decimal
	IsDefault      bool
	ValidFrom      time.Time
	ValidTo        *time.Time
}

// UpdateInput carries partial tariff plan changes. Nil fields are untouched.
type UpdateInput struct {
	Name          *string
	CommunityRate *decimal.Decimal
	GridRate      *decimal.Decimal
	InjectionRate *decimal.Decimal
	MonthlyFee    *decimal.Decimal
	VATPercent    *decimal.Decimal
	IsDefault     *bool
	ValidFrom     *time.Time
	ValidTo       *time.Time
}

// Service manages tariff plans and resolves the plan for a billing period.
type Service interface {
	Resolve(ctx context.Context, orgID uuid.UUID, year, month int) (*models.TariffPlan, error)
	Create(ctx context.Context, input CreateInput) (*models.TariffPlan, error)
	Update(ctx context.Context, orgID, planID uuid.UUID, input UpdateInput) (*models.TariffPlan, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.TariffPlan, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a tariff service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tariff repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Resolve selects the plan whose validity window contains the first day of the
// billing period. With several eligible plans the default wins; several
// eligible plans and no default is a configuration error, as is no plan at all.
func (s *service) Resolve(ctx context.Context, orgID uuid.UUID, year, month int) (*models.TariffPlan, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if month < 1 || month > 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("month %d out of range", month))
	}

	firstDay := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	eligible, err := s.repo.EligibleForDate(ctx, orgID, firstDay)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tariff plans")
	}

	switch len(eligible) {
	case 0:
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration,
			fmt.Sprintf("no tariff plan covers %04d-%02d", year, month))
	case 1:
		return &eligible[0], nil
	}
	for i := range eligible {
		if eligible[i].IsDefault {
			return &eligible[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConfiguration,
		fmt.Sprintf("%d tariff plans cover %04d-%02d and none is marked default", len(eligible), year, month))
}

// Create stores a new plan. Marking it default clears the previous default in
// the same transaction.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.TariffPlan, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	plan := &models.TariffPlan{
		OrganizationID: input.OrganizationID,
		Name:           input.Name,
		CommunityRate:  input.CommunityRate,
		GridRate:       input.GridRate,
		InjectionRate:  input.InjectionRate,
		MonthlyFee:     input.MonthlyFee,
		VATPercent:     input.VATPercent,
		IsDefault:      input.IsDefault,
		ValidFrom:      input.ValidFrom.UTC(),
		ValidTo:        input.ValidTo,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if plan.IsDefault {
			if err := repo.ClearDefault(ctx, input.OrganizationID); err != nil {
				return err
			}
		}
		_, err := repo.Create(ctx, plan)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store tariff plan")
	}
	return plan, nil
}

// Update applies partial changes. Promoting a plan to default demotes the
// previous default atomically.
func (s *service) Update(ctx context.Context, orgID, planID uuid.UUID, input UpdateInput) (*models.TariffPlan, error) {
	if orgID == uuid.Nil || planID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization and plan ids required")
	}

	var updated *models.TariffPlan
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		plan, err := repo.FindByID(ctx, planID)
		if err != nil {
			return err
		}
		if plan.OrganizationID != orgID {
			return gorm.ErrRecordNotFound
		}

		applyUpdate(plan, input)
		if err := validateRates(plan.CommunityRate, plan.GridRate, plan.InjectionRate, plan.MonthlyFee, plan.VATPercent); err != nil {
			return err
		}
		if plan.ValidTo != nil && !plan.ValidTo.After(plan.ValidFrom) {
			return pkgerrors.New(pkgerrors.CodeValidation, "valid_to must be after valid_from")
		}

		if input.IsDefault != nil && *input.IsDefault {
			if err := repo.ClearDefault(ctx, orgID); err != nil {
				return err
			}
			plan.IsDefault = true
		}
		if err := repo.Update(ctx, plan); err != nil {
			return err
		}
		updated = plan
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "tariff plan not found")
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tariff plan")
	}
	return updated, nil
}

// List returns all plans for the organization, newest validity first.
func (s *service) List(ctx context.Context, orgID uuid.UUID) ([]models.TariffPlan, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	plans, err := s.repo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tariff plans")
	}
	return plans, nil
}

func validateCreate(input CreateInput) error {
	if input.OrganizationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan name required")
	}
	if input.ValidFrom.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_from required")
	}
	if input.ValidTo != nil && !input.ValidTo.After(input.ValidFrom) {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_to must be after valid_from")
	}
	return validateRates(input.CommunityRate, input.GridRate, input.InjectionRate, input.MonthlyFee, input.VATPercent)
}

func validateRates(community, grid, injection, fee, vat decimal.Decimal) error {
	for _, pair := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"community_rate", community},
		{"grid_rate", grid},
		{"injection_rate", injection},
		{"monthly_fee", fee},
		{"vat_percent", vat},
	} {
		if pair.value.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, pair.name+" must not be negative")
		}
	}
	return nil
}

func applyUpdate(plan *models.TariffPlan, input UpdateInput) {
	if input.Name != nil {
		plan.Name = *input.Name
	}
	if input.CommunityRate != nil {
		plan.CommunityRate = *input.CommunityRate
	}
	if input.GridRate != nil {
		plan.GridRate = *input.GridRate
	}
	if input.InjectionRate != nil {
		plan.InjectionRate = *input.InjectionRate
	}
	if input.MonthlyFee != nil {
		plan.MonthlyFee = *input.MonthlyFee
	}
	if input.VATPercent != nil {
		plan.VATPercent = *input.VATPercent
	}
	if input.ValidFrom != nil {
		plan.ValidFrom = input.ValidFrom.UTC()
	}
	if input.ValidTo != nil {
		plan.ValidTo = input.ValidTo
	}
}
