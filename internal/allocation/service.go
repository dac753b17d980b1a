package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/db/models"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service recomputes and serves monthly energy allocations.
type Service interface {
	Recompute(ctx context.Context, orgID uuid.UUID, year, month int) ([]models.MonthlyAggregate, error)
	ListForPeriod(ctx context.Context, orgID uuid.UUID, year, month int) ([]models.MonthlyAggregate, error)
	GetForMember(ctx context.Context, orgID, memberID uuid.UUID, year, month int) (*models.MonthlyAggregate, error)
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds an allocation service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("allocation repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

// Recompute rebuilds the month's aggregates from the latest batch per meter
// point and writes them in place. Calling it again for the same period with
// unchanged batches yields identical rows.
func (s *service) Recompute(ctx context.Context, orgID uuid.UUID, year, month int) ([]models.MonthlyAggregate, error) {
	if err := validatePeriod(orgID, year, month); err != nil {
		return nil, err
	}

	org, err := s.repo.FindOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}

	energies, err := s.repo.MemberEnergies(ctx, orgID, year, month)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load member energies")
	}
	if len(energies) == 0 {
		return nil, nil
	}

	splits, err := ComputeMonth(org.DistributionPolicy, energies)
	if err != nil {
		return nil, err
	}

	computedAt := s.now().UTC()
	rows := make([]models.MonthlyAggregate, len(splits))
	for i, split := range splits {
		rows[i] = models.MonthlyAggregate{
			OrganizationID:          orgID,
			MemberID:                split.MemberID,
			Year:                    year,
			Month:                   month,
			TotalConsumptionKwh:     split.TotalConsumptionKwh,
			TotalProductionKwh:      split.TotalProductionKwh,
			SelfConsumptionKwh:      split.SelfConsumptionKwh,
			CommunityConsumptionKwh: split.CommunityConsumptionKwh,
			GridConsumptionKwh:      split.GridConsumptionKwh,
			ExportedToCommunityKwh:  split.ExportedToCommunityKwh,
			ExportedToGridKwh:       split.ExportedToGridKwh,
			ComputedAt:              computedAt,
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceAggregates(ctx, rows)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store aggregates")
	}
	return rows, nil
}

// ListForPeriod returns the stored aggregates for one organization and month.
func (s *service) ListForPeriod(ctx context.Context, orgID uuid.UUID, year, month int) ([]models.MonthlyAggregate, error) {
	if err := validatePeriod(orgID, year, month); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForPeriod(ctx, orgID, year, month)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list aggregates")
	}
	return rows, nil
}

// GetForMember returns one member's aggregate for a month.
func (s *service) GetForMember(ctx context.Context, orgID, memberID uuid.UUID, year, month int) (*models.MonthlyAggregate, error) {
	if err := validatePeriod(orgID, year, month); err != nil {
		return nil, err
	}
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	row, err := s.repo.FindForMember(ctx, orgID, memberID, year, month)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "aggregate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load aggregate")
	}
	return row, nil
}

func validatePeriod(orgID uuid.UUID, year, month int) error {
	if orgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if year < 2000 || year > 2999 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("year %d out of range", year))
	}
	if month < 1 || month > 12 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("month %d out of range", month))
	}
	return nil
}
