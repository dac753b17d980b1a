package platformbilling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/config"
	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/outbox"
)

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

type stubPlatformRepo struct {
	consumption decimal.Decimal
	maxSequence int
	exists      bool
	created     []*models.PlatformInvoice
	missingOrgs []uuid.UUID
}

func (s *stubPlatformRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPlatformRepo) SumConsumption(ctx context.Context, orgID uuid.UUID, year, month int) (decimal.Decimal, error) {
	return s.consumption, nil
}

func (s *stubPlatformRepo) MaxYearSequence(ctx context.Context, year int) (int, error) {
	return s.maxSequence + len(s.created), nil
}

func (s *stubPlatformRepo) ExistsForPeriod(ctx context.Context, orgID uuid.UUID, year, month int) (bool, error) {
	return s.exists, nil
}

func (s *stubPlatformRepo) Create(ctx context.Context, invoice *models.PlatformInvoice) error {
	invoice.ID = uuid.New()
	s.created = append(s.created, invoice)
	return nil
}

func (s *stubPlatformRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PlatformInvoice, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPlatformRepo) List(ctx context.Context, cursor string, limit int) ([]models.PlatformInvoice, string, error) {
	return nil, "", nil
}

func (s *stubPlatformRepo) OrganizationsWithoutInvoice(ctx context.Context, year, month int) ([]uuid.UUID, error) {
	return s.missingOrgs, nil
}

type stubOrgReader struct {
	known map[uuid.UUID]bool
}

func (s *stubOrgReader) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if s.known == nil || s.known[id] {
		return &models.Organization{ID: id}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func defaultRates() Rates {
	return Rates{
		RatePerKwh:      dec("0.015"),
		MonthlyMinimum:  dec("25.00"),
		VATPercent:      dec("8.1"),
		PaymentTermDays: 30,
	}
}

func newTestService(t *testing.T, repo *stubPlatformRepo, orgs *stubOrgReader) (Service, *stubOutbox) {
	t.Helper()
	box := &stubOutbox{}
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Orgs:   orgs,
		Tx:     stubTxRunner{},
		Outbox: box,
		Rates:  defaultRates(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, box
}

func TestGenerate_MinimumFloorApplies(t *testing.T) {
	repo := &stubPlatformRepo{consumption: dec("1000")}
	svc, box := newTestService(t, repo, &stubOrgReader{})

	invoice, err := svc.Generate(context.Background(), uuid.New(), 2026, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// 1000 kWh x 0.015 = 15.00, under the 25.00 floor.
	if !invoice.MinimumApplied {
		t.Fatal("expected the monthly minimum to apply")
	}
	if !invoice.Subtotal.Equal(dec("25.00")) {
		t.Fatalf("subtotal = %s, want 25.00", invoice.Subtotal)
	}
	if !invoice.VATAmount.Equal(dec("2.03")) {
		t.Fatalf("vat = %s, want 2.03", invoice.VATAmount)
	}
	if !invoice.Total.Equal(dec("27.03")) {
		t.Fatalf("total = %s, want 27.03", invoice.Total)
	}
	if invoice.Number != "WATTLY-2026-001" {
		t.Fatalf("number = %q, want WATTLY-2026-001", invoice.Number)
	}
	if invoice.Status != enums.InvoiceStatusDraft || invoice.Currency != enums.CurrencyCHF {
		t.Fatalf("invoice = %+v", invoice)
	}
	if got := invoice.DueDate.Sub(invoice.IssuedAt); got != 30*24*time.Hour {
		t.Fatalf("due date offset = %s, want 30 days", got)
	}
	if len(box.events) != 1 || box.events[0].EventType != enums.EventPlatformInvoiceIssued {
		t.Fatalf("events = %+v, want one platform_invoice_issued", box.events)
	}
}

func TestGenerate_AboveMinimum(t *testing.T) {
	repo := &stubPlatformRepo{consumption: dec("2000")}
	svc, _ := newTestService(t, repo, &stubOrgReader{})

	invoice, err := svc.Generate(context.Background(), uuid.New(), 2026, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if invoice.MinimumApplied {
		t.Fatal("floor should not apply at 30.00")
	}
	if !invoice.Subtotal.Equal(dec("30.00")) {
		t.Fatalf("subtotal = %s, want 30.00", invoice.Subtotal)
	}
	if !invoice.Total.Equal(dec("32.43")) {
		t.Fatalf("total = %s, want 32.43", invoice.Total)
	}
}

func TestGenerate_SequenceIsGlobalPerYear(t *testing.T) {
	repo := &stubPlatformRepo{consumption: dec("100"), maxSequence: 41}
	svc, _ := newTestService(t, repo, &stubOrgReader{})

	invoice, err := svc.Generate(context.Background(), uuid.New(), 2026, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if invoice.Number != "WATTLY-2026-042" {
		t.Fatalf("number = %q, want WATTLY-2026-042", invoice.Number)
	}
}

func TestGenerate_DuplicatePeriodConflicts(t *testing.T) {
	repo := &stubPlatformRepo{consumption: dec("100"), exists: true}
	svc, box := newTestService(t, repo, &stubOrgReader{})

	_, err := svc.Generate(context.Background(), uuid.New(), 2026, 3)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(repo.created) != 0 || len(box.events) != 0 {
		t.Fatal("nothing should be written on a duplicate period")
	}
}

func TestGenerate_UnknownOrganization(t *testing.T) {
	repo := &stubPlatformRepo{consumption: dec("100")}
	svc, _ := newTestService(t, repo, &stubOrgReader{known: map[uuid.UUID]bool{}})

	_, err := svc.Generate(context.Background(), uuid.New(), 2026, 3)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSweepMonth_BackfillsMissingOrganizations(t *testing.T) {
	orgA := uuid.New()
	orgB := uuid.New()
	repo := &stubPlatformRepo{consumption: dec("500"), missingOrgs: []uuid.UUID{orgA, orgB}}
	svc, box := newTestService(t, repo, &stubOrgReader{})

	result, err := svc.SweepMonth(context.Background(), 2026, 2)
	if err != nil {
		t.Fatalf("SweepMonth: %v", err)
	}
	if result.Generated != 2 || len(result.Failed) != 0 {
		t.Fatalf("result = %+v, want 2 generated", result)
	}
	if len(repo.created) != 2 || len(box.events) != 2 {
		t.Fatalf("created %d invoices, %d events", len(repo.created), len(box.events))
	}
	// Sequences advance across organizations within the year.
	if repo.created[0].Number == repo.created[1].Number {
		t.Fatalf("duplicate number %q", repo.created[0].Number)
	}
}

func TestRatesFromConfig(t *testing.T) {
	rates, err := RatesFromConfig(config.BillingConfig{
		PlatformRatePerKwh:     "0.015",
		PlatformMonthlyMinimum: "25.00",
		PlatformVATPercent:     "8.1",
		DefaultPaymentDays:     30,
	})
	if err != nil {
		t.Fatalf("RatesFromConfig: %v", err)
	}
	if !rates.RatePerKwh.Equal(dec("0.015")) || rates.PaymentTermDays != 30 {
		t.Fatalf("rates = %+v", rates)
	}

	_, err = RatesFromConfig(config.BillingConfig{PlatformRatePerKwh: "not-a-number"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
