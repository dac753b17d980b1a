package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/internal/payments"
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

type tariffResolver interface {
	Resolve(ctx context.Context, orgID uuid.UUID, year, month int) (*models.TariffPlan, error)
}

type aggregateReader interface {
	ListForPeriod(ctx context.Context, orgID uuid.UUID, year, month int) ([]models.MonthlyAggregate, error)
}

type memberReader interface {
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	FindMember(ctx context.Context, id uuid.UUID) (*models.Member, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.Member, error)
}

// GenerateInput selects the organization, period and optional member subset.
type GenerateInput struct {
	OrganizationID uuid.UUID
	Year           int
	Month          int
	MemberIDs      []uuid.UUID
}

// GenerateResult reports one generation run.
type GenerateResult struct {
	Created []models.Invoice `json:"created"`
	Skipped int              `json:"skipped"`
}

// Service generates member invoices and drives their lifecycle.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error)
	Get(ctx context.Context, orgID, invoiceID uuid.UUID) (*models.Invoice, *payments.Payload, error)
	List(ctx context.Context, orgID uuid.UUID, cursor string, limit int) ([]models.Invoice, string, error)
	Send(ctx context.Context, orgID, invoiceID uuid.UUID) (*models.Invoice, error)
	Cancel(ctx context.Context, orgID, invoiceID uuid.UUID, reason string) (*models.Invoice, error)
	MarkPaid(ctx context.Context, orgID, invoiceID uuid.UUID) (*models.Invoice, error)
}

// ServiceParams groups dependencies for the invoice service.
type ServiceParams struct {
	Repo       Repository
	Tariffs    tariffResolver
	Aggregates aggregateReader
	Orgs       memberReader
	Tx         txRunner
	Outbox     outboxPublisher
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	tariffs    tariffResolver
	aggregates aggregateReader
	orgs       memberReader
	tx         txRunner
	outbox     outboxPublisher
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds an invoice service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if params.Tariffs == nil {
		return nil, fmt.Errorf("tariff resolver required")
	}
	if params.Aggregates == nil {
		return nil, fmt.Errorf("aggregate reader required")
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
	return &service{
		repo:       params.Repo,
		tariffs:    params.Tariffs,
		aggregates: params.Aggregates,
		orgs:       params.Orgs,
		tx:         params.Tx,
		outbox:     params.Outbox,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// Generate creates one invoice per member with an aggregate for the period and
// no invoice yet. Members already billed are skipped, so repeated calls are
// safe. The organization row is locked while numbers are assigned.
func (s *service) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	if input.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if input.Month < 1 || input.Month > 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("month %d out of range", input.Month))
	}

	// Fails fast on a missing tariff before anything is written.
	tariff, err := s.tariffs.Resolve(ctx, input.OrganizationID, input.Year, input.Month)
	if err != nil {
		return nil, err
	}

	aggregates, err := s.aggregates.ListForPeriod(ctx, input.OrganizationID, input.Year, input.Month)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load aggregates")
	}
	members, err := s.orgs.ListMembers(ctx, input.OrganizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load members")
	}
	membersByID := make(map[uuid.UUID]models.Member, len(members))
	for _, member := range members {
		membersByID[member.ID] = member
	}

	subset := make(map[uuid.UUID]bool, len(input.MemberIDs))
	for _, id := range input.MemberIDs {
		subset[id] = true
	}

	result := &GenerateResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		org, err := repo.LockOrganization(ctx, input.OrganizationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "organization not found")
			}
			return err
		}
		billed, err := repo.BilledMemberIDs(ctx, input.OrganizationID, input.Year, input.Month)
		if err != nil {
			return err
		}
		sequence, err := repo.MaxSequence(ctx, input.OrganizationID)
		if err != nil {
			return err
		}

		issuedAt := s.now().UTC()
		for _, aggregate := range aggregates {
			member, known := membersByID[aggregate.MemberID]
			if !known || member.Role == enums.MemberRoleAdmin {
				continue
			}
			if len(subset) > 0 && !subset[aggregate.MemberID] {
				continue
			}
			if billed[aggregate.MemberID] {
				result.Skipped++
				continue
			}

			sequence++
			invoice := buildInvoice(org, tariff, aggregate, sequence, issuedAt)
			if err := repo.Create(ctx, invoice); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventInvoiceIssued,
				AggregateType: enums.AggregateInvoice,
				AggregateID:   invoice.ID,
				Data: payloads.InvoiceIssuedEvent{
					InvoiceID:      invoice.ID,
					OrganizationID: invoice.OrganizationID,
					MemberID:       invoice.MemberID,
					Number:         invoice.Number,
					PeriodYear:     invoice.PeriodYear,
					PeriodMonth:    invoice.PeriodMonth,
					Currency:       invoice.Currency,
					Total:          invoice.Total,
					DueDate:        invoice.DueDate,
				},
				Version: 1,
			}); err != nil {
				return err
			}
			result.Created = append(result.Created, *invoice)
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate invoices")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrgID(ctx, input.OrganizationID.String())
		s.logg.Info(logCtx, fmt.Sprintf("invoice generation %04d-%02d: %d created, %d skipped",
			input.Year, input.Month, len(result.Created), result.Skipped))
	}
	return result, nil
}

func buildInvoice(org *models.Organization, tariff *models.TariffPlan, aggregate models.MonthlyAggregate, sequence int, issuedAt time.Time) *models.Invoice {
	lines, subtotalRaw := buildLines(tariff, aggregate)
	subtotal := roundHalfUp(subtotalRaw)
	vat := roundHalfUp(subtotalRaw.Mul(tariff.VATPercent).Div(decimal.NewFromInt(100)))

	return &models.Invoice{
		OrganizationID: org.ID,
		MemberID:       aggregate.MemberID,
		TariffPlanID:   tariff.ID,
		Number:         fmt.Sprintf("%04d-%02d-%04d", aggregate.Year, aggregate.Month, sequence),
		Sequence:       sequence,
		PeriodYear:     aggregate.Year,
		PeriodMonth:    aggregate.Month,
		Status:         enums.InvoiceStatusDraft,
		Currency:       org.Currency,
		Subtotal:       subtotal,
		VATAmount:      vat,
		Total:          subtotal.Add(vat),
		IssuedAt:       issuedAt,
		DueDate:        issuedAt.AddDate(0, 0, org.PaymentTermDays),
		Lines:          lines,
	}
}

// buildLines emits the fixed line order: community consumption, grid
// consumption, production credit, monthly fee. Zero-quantity lines are
// omitted; line totals stay unrounded, rounding happens once on the sums.
func buildLines(tariff *models.TariffPlan, aggregate models.MonthlyAggregate) ([]models.InvoiceLine, decimal.Decimal) {
	var (
		lines    []models.InvoiceLine
		subtotal decimal.Decimal
		position int
	)
	add := func(kind enums.InvoiceLineKind, description string, quantity, unitPrice, total decimal.Decimal) {
		position++
		lines = append(lines, models.InvoiceLine{
			Position:    position,
			Kind:        kind,
			Description: description,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Total:       total,
		})
		subtotal = subtotal.Add(total)
	}

	if aggregate.CommunityConsumptionKwh.IsPositive() {
		total := aggregate.CommunityConsumptionKwh.Mul(tariff.CommunityRate)
		add(enums.InvoiceLineKindConsumption, "Community energy", aggregate.CommunityConsumptionKwh, tariff.CommunityRate, total)
	}
	if aggregate.GridConsumptionKwh.IsPositive() {
		total := aggregate.GridConsumptionKwh.Mul(tariff.GridRate)
		add(enums.InvoiceLineKindConsumption, "Grid energy", aggregate.GridConsumptionKwh, tariff.GridRate, total)
	}
	if aggregate.ExportedToCommunityKwh.IsPositive() {
		total := aggregate.ExportedToCommunityKwh.Mul(tariff.InjectionRate).Neg()
		add(enums.InvoiceLineKindProductionCredit, "Production credit", aggregate.ExportedToCommunityKwh, tariff.InjectionRate, total)
	}
	if tariff.MonthlyFee.IsPositive() {
		add(enums.InvoiceLineKindFee, "Monthly base fee", decimal.NewFromInt(1), tariff.MonthlyFee, tariff.MonthlyFee)
	}
	return lines, subtotal
}

func roundHalfUp(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// Get returns the invoice with its lines and, when the creditor is
// configured, the payment payload for rendering.
func (s *service) Get(ctx context.Context, orgID, invoiceID uuid.UUID) (*models.Invoice, *payments.Payload, error) {
	invoice, err := s.find(ctx, orgID, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	org, member, err := s.loadParties(ctx, invoice)
	if err != nil {
		return nil, nil, err
	}
	payload, err := payments.Encode(org, member, invoice)
	if err != nil {
		// Creditor not configured yet; the invoice itself is still readable.
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConfiguration {
			return invoice, nil, nil
		}
		return nil, nil, err
	}
	return invoice, payload, nil
}

// List returns org-scoped invoices, newest first.
func (s *service) List(ctx context.Context, orgID uuid.UUID, cursor string, limit int) ([]models.Invoice, string, error) {
	if orgID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	rows, next, err := s.repo.List(ctx, orgID, cursor, limit)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	return rows, next, nil
}

// Send transitions a draft invoice to sent and queues the delivery event with
// the payment payload embedded. Re-sending an already sent invoice re-queues
// the event without touching state.
func (s *service) Send(ctx context.Context, orgID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.find(ctx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	org, member, err := s.loadParties(ctx, invoice)
	if err != nil {
		return nil, err
	}
	payload, err := payments.Encode(org, member, invoice)
	if err != nil {
		return nil, err
	}

	resend := invoice.Status == enums.InvoiceStatusSent
	if !resend && !invoice.Status.CanTransitionTo(enums.InvoiceStatusSent) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot send a %s invoice", invoice.Status))
	}

	sentAt := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if !resend {
			invoice.Status = enums.InvoiceStatusSent
			invoice.SentAt = &sentAt
			if err := repo.Update(ctx, invoice); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceSent,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			Data: payloads.InvoiceSentEvent{
				InvoiceID:      invoice.ID,
				OrganizationID: invoice.OrganizationID,
				MemberID:       invoice.MemberID,
				Number:         invoice.Number,
				RecipientEmail: member.Email,
				Locale:         member.Locale,
				Total:          invoice.Total,
				Currency:       invoice.Currency,
				Payment:        toEventPayload(payload),
				SentAt:         sentAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send invoice")
	}
	return invoice, nil
}

// Cancel voids an invoice. Paid invoices cannot be cancelled.
func (s *service) Cancel(ctx context.Context, orgID, invoiceID uuid.UUID, reason string) (*models.Invoice, error) {
	invoice, err := s.find(ctx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanTransitionTo(enums.InvoiceStatusCancelled) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot cancel a %s invoice", invoice.Status))
	}

	cancelledAt := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice.Status = enums.InvoiceStatusCancelled
		invoice.CancelledAt = &cancelledAt
		if err := repo.Update(ctx, invoice); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceCancelled,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			Data: payloads.InvoiceCancelledEvent{
				InvoiceID:      invoice.ID,
				OrganizationID: invoice.OrganizationID,
				MemberID:       invoice.MemberID,
				Number:         invoice.Number,
				CancelledAt:    cancelledAt,
				Reason:         reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel invoice")
	}
	return invoice, nil
}

// MarkPaid settles a sent or overdue invoice.
func (s *service) MarkPaid(ctx context.Context, orgID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.find(ctx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanTransitionTo(enums.InvoiceStatusPaid) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot mark a %s invoice paid", invoice.Status))
	}

	paidAt := s.now().UTC()
	invoice.Status = enums.InvoiceStatusPaid
	invoice.PaidAt = &paidAt
	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark invoice paid")
	}
	return invoice, nil
}

func (s *service) find(ctx context.Context, orgID, invoiceID uuid.UUID) (*models.Invoice, error) {
	if orgID == uuid.Nil || invoiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization and invoice ids required")
	}
	invoice, err := s.repo.FindByID(ctx, orgID, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return invoice, nil
}

func (s *service) loadParties(ctx context.Context, invoice *models.Invoice) (*models.Organization, *models.Member, error) {
	org, err := s.orgs.FindOrganization(ctx, invoice.OrganizationID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	member, err := s.orgs.FindMember(ctx, invoice.MemberID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load member")
	}
	return org, member, nil
}

func toEventPayload(payload *payments.Payload) *payloads.PaymentPayload {
	if payload == nil {
		return nil
	}
	return &payloads.PaymentPayload{
		IBAN:          payload.CreditorIBAN,
		ReferenceType: string(payload.ReferenceType),
		Reference:     payload.Reference,
		Message:       payload.Message,
		Creditor: payloads.PaymentParty{
			Name:       payload.Creditor.Name,
			Street:     payload.Creditor.Street,
			PostalCode: payload.Creditor.PostalCode,
			City:       payload.Creditor.City,
		},
		Debtor: payloads.PaymentParty{
			Name: payload.Debtor.Name,
		},
		Amount:   payload.Amount,
		Currency: payload.Currency,
	}
}
