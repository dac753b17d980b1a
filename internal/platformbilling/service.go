package platformbilling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/config"
	"github.com/wattly/wattly-backend/pkg/db"
	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/logger"
	"github.com/wattly/wattly-backend/pkg/outbox"
	"github.com/wattly/wattly-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orgReader interface {
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

// Rates carries the parsed platform billing knobs.
type Rates struct {
	RatePerKwh      decimal.Decimal
	MonthlyMinimum  decimal.Decimal
	VATPercent      decimal.Decimal
	PaymentTermDays int
}

// RatesFromConfig parses the env-sourced billing strings once at startup.
func RatesFromConfig(cfg config.BillingConfig) (Rates, error) {
	rate, err := decimal.NewFromString(cfg.PlatformRatePerKwh)
	if err != nil {
		return Rates{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "platform rate per kwh")
	}
	minimum, err := decimal.NewFromString(cfg.PlatformMonthlyMinimum)
	if err != nil {
		return Rates{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "platform monthly minimum")
	}
	vat, err := decimal.NewFromString(cfg.PlatformVATPercent)
	if err != nil {
		return Rates{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "platform vat percent")
	}
	if rate.IsNegative() || minimum.IsNegative() || vat.IsNegative() {
		return Rates{}, pkgerrors.New(pkgerrors.CodeConfiguration, "platform billing rates must be non-negative")
	}
	return Rates{
		RatePerKwh:      rate,
		MonthlyMinimum:  minimum,
		VATPercent:      vat,
		PaymentTermDays: cfg.DefaultPaymentDays,
	}, nil
}

// SweepResult reports one backfill run across organizations.
type SweepResult struct {
	Generated int         `json:"generated"`
	Failed    []uuid.UUID `json:"failed,omitempty"`
}

// Service bills organizations for platform usage, one invoice per period.
type Service interface {
	Generate(ctx context.Context, orgID uuid.UUID, year, month int) (*models.PlatformInvoice, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PlatformInvoice, error)
	List(ctx context.Context, cursor string, limit int) ([]models.PlatformInvoice, string, error)
	SweepMonth(ctx context.Context, year, month int) (*SweepResult, error)
}

// ServiceParams groups dependencies for the platform billing service.
type ServiceParams struct {
	Repo   Repository
	Orgs   orgReader
	Tx     txRunner
	Outbox outboxPublisher
	Logger *logger.Logger
	Rates  Rates
}

type service struct {
	repo   Repository
	orgs   orgReader
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	rates  Rates
	now    func() time.Time
}

// NewService builds a platform billing service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("platform invoice repository required")
	}
	if params.Orgs == nil {
		return nil, fmt.Errorf("orgs reader required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Rates.RatePerKwh.IsNegative() || params.Rates.MonthlyMinimum.IsNegative() {
		return nil, fmt.Errorf("platform billing rates must be non-negative")
	}
	return &service{
		repo:   params.Repo,
		orgs:   params.Orgs,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		rates:  params.Rates,
		now:    time.Now,
	}, nil
}

// Generate sums the organization's consumption for the period, prices it with
// the platform rate, applies the monthly floor before VAT and writes exactly
// one invoice. A second call for the same period fails with a conflict.
func (s *service) Generate(ctx context.Context, orgID uuid.UUID, year, month int) (*models.PlatformInvoice, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if month < 1 || month > 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("month %d out of range", month))
	}
	if _, err := s.orgs.FindOrganization(ctx, orgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}

	var invoice *models.PlatformInvoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		exists, err := repo.ExistsForPeriod(ctx, orgID, year, month)
		if err != nil {
			return err
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("platform invoice for %04d-%02d already exists", year, month))
		}

		totalKwh, err := repo.SumConsumption(ctx, orgID, year, month)
		if err != nil {
			return err
		}
		sequence, err := repo.MaxYearSequence(ctx, year)
		if err != nil {
			return err
		}
		sequence++

		invoice = s.buildInvoice(orgID, year, month, sequence, totalKwh)
		if err := repo.Create(ctx, invoice); err != nil {
			if db.IsUniqueViolation(err, "uniq_platform_invoice_period") ||
				db.IsUniqueViolation(err, "uniq_platform_invoice_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err,
					"concurrent platform invoice generation for the same period")
			}
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPlatformInvoiceIssued,
			AggregateType: enums.AggregatePlatformInvoice,
			AggregateID:   invoice.ID,
			Data: payloads.PlatformInvoiceIssuedEvent{
				PlatformInvoiceID: invoice.ID,
				OrganizationID:    invoice.OrganizationID,
				Number:            invoice.Number,
				PeriodYear:        invoice.Year,
				PeriodMonth:       invoice.Month,
				TotalKwh:          invoice.TotalConsumptionKwh,
				Total:             invoice.Total,
				MinimumApplied:    invoice.MinimumApplied,
			},
			Version: 1,
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate platform invoice")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrgID(ctx, orgID.String())
		s.logg.Info(logCtx, fmt.Sprintf("platform invoice %s issued, total %s", invoice.Number, invoice.Total))
	}
	return invoice, nil
}

func (s *service) buildInvoice(orgID uuid.UUID, year, month, sequence int, totalKwh decimal.Decimal) *models.PlatformInvoice {
	calculated := totalKwh.Mul(s.rates.RatePerKwh).Round(2)
	subtotal := calculated
	minimumApplied := false
	if calculated.LessThan(s.rates.MonthlyMinimum) {
		subtotal = s.rates.MonthlyMinimum
		minimumApplied = true
	}
	vat := subtotal.Mul(s.rates.VATPercent).Div(decimal.NewFromInt(100)).Round(2)

	issuedAt := s.now().UTC()
	return &models.PlatformInvoice{
		OrganizationID:      orgID,
		Year:                year,
		Month:               month,
		Number:              fmt.Sprintf("WATTLY-%04d-%03d", year, sequence),
		Sequence:            sequence,
		Status:              enums.InvoiceStatusDraft,
		Currency:            enums.CurrencyCHF,
		TotalConsumptionKwh: totalKwh,
		RatePerKwh:          s.rates.RatePerKwh,
		MinimumApplied:      minimumApplied,
		Subtotal:            subtotal,
		VATAmount:           vat,
		Total:               subtotal.Add(vat),
		IssuedAt:            issuedAt,
		DueDate:             issuedAt.AddDate(0, 0, s.rates.PaymentTermDays),
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PlatformInvoice, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform invoice id required")
	}
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "platform invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform invoice")
	}
	return invoice, nil
}

func (s *service) List(ctx context.Context, cursor string, limit int) ([]models.PlatformInvoice, string, error) {
	rows, next, err := s.repo.List(ctx, cursor, limit)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list platform invoices")
	}
	return rows, next, nil
}

// SweepMonth backfills platform invoices for every organization that has
// aggregates for the period but no invoice yet. Per-organization failures are
// collected, not fatal, so one broken organization cannot stall the sweep.
func (s *service) SweepMonth(ctx context.Context, year, month int) (*SweepResult, error) {
	if month < 1 || month > 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("month %d out of range", month))
	}
	orgIDs, err := s.repo.OrganizationsWithoutInvoice(ctx, year, month)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list organizations for sweep")
	}

	result := &SweepResult{}
	var errs error
	for _, orgID := range orgIDs {
		if _, err := s.Generate(ctx, orgID, year, month); err != nil {
			// A concurrent generation beat the sweep to it; not a failure.
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
				continue
			}
			result.Failed = append(result.Failed, orgID)
			errs = multierr.Append(errs, fmt.Errorf("organization %s: %w", orgID, err))
			continue
		}
		result.Generated++
	}
	if errs != nil && s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("platform billing sweep %04d-%02d: %d generated, %d failed: %v",
			year, month, result.Generated, len(result.Failed), errs))
	}
	return result, nil
}
