package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/db/models"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/outbox"
)

func mustDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

type stubOrgsRepo struct {
	org    *models.Organization
	points []models.MeterPoint
}

func (s *stubOrgsRepo) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if s.org == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.org, nil
}

func (s *stubOrgsRepo) ListMeterPoints(ctx context.Context, orgID uuid.UUID) ([]models.MeterPoint, error) {
	return s.points, nil
}

type stubAllocator struct {
	calls []Period
	err   error
}

func (s *stubAllocator) Recompute(ctx context.Context, orgID uuid.UUID, year, month int) ([]models.MonthlyAggregate, error) {
	s.calls = append(s.calls, Period{Year: year, Month: month})
	return nil, s.err
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubIngestRepo struct {
	batches []*models.LoadCurveBatch
}

func (s *stubIngestRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubIngestRepo) CreateBatch(ctx context.Context, batch *models.LoadCurveBatch) error {
	batch.ID = uuid.New()
	s.batches = append(s.batches, batch)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, orgsRepo *stubOrgsRepo, alloc *stubAllocator, box *stubOutbox) Service {
	t.Helper()
	params := ServiceParams{
		Repo:      &stubIngestRepo{},
		OrgsRepo:  orgsRepo,
		Tx:        stubTxRunner{},
		Allocator: alloc,
	}
	if box != nil {
		params.Outbox = box
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestImport_UnknownPodIsReportedNotFatal(t *testing.T) {
	orgID := uuid.New()
	memberID := uuid.New()
	meterID := uuid.New()

	repo := &stubOrgsRepo{
		org: &models.Organization{ID: orgID},
		points: []models.MeterPoint{
			{ID: meterID, OrganizationID: orgID, MemberID: memberID, PodCode: "CH1001"},
		},
	}
	alloc := &stubAllocator{}
	svc := newTestService(t, repo, alloc, nil)

	input := strings.Join([]string{
		"pod,timestamp,consumption_kwh,production_kwh",
		"CH1001,2026-03-01T00:00:00Z,0.25,0.00",
		"CH9999,2026-03-01T00:15:00Z,0.25,0.00",
		"CH1001,2026-03-01T00:15:00Z,0.30,0.10",
	}, "\n")

	report, err := svc.Import(context.Background(), orgID, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.AcceptedRows != 2 || report.RejectedRows != 1 {
		t.Fatalf("report = %+v, want 2 accepted / 1 rejected", report)
	}
	if report.BatchCount != 1 {
		t.Fatalf("batch count = %d, want 1", report.BatchCount)
	}
	if len(report.Rejections) != 1 || report.Rejections[0].Row != 2 {
		t.Fatalf("rejections = %+v, want unknown pod at row 2", report.Rejections)
	}
	if len(alloc.calls) != 1 || alloc.calls[0] != (Period{Year: 2026, Month: 3}) {
		t.Fatalf("allocator calls = %+v, want one for 2026-03", alloc.calls)
	}
}

func TestImport_GroupsByMeterAndMonth(t *testing.T) {
	orgID := uuid.New()
	memberID := uuid.New()

	repo := &stubOrgsRepo{
		org: &models.Organization{ID: orgID},
		points: []models.MeterPoint{
			{ID: uuid.New(), OrganizationID: orgID, MemberID: memberID, PodCode: "CH1001"},
			{ID: uuid.New(), OrganizationID: orgID, MemberID: memberID, PodCode: "CH1002"},
		},
	}
	alloc := &stubAllocator{}
	box := &stubOutbox{}
	svc := newTestService(t, repo, alloc, box)

	input := strings.Join([]string{
		"pod,timestamp,consumption_kwh,production_kwh",
		"CH1001,2026-03-31T23:45:00Z,0.25,0.00",
		"CH1001,2026-04-01T00:00:00Z,0.25,0.00",
		"CH1002,2026-03-01T00:00:00Z,0.10,0.50",
	}, "\n")

	report, err := svc.Import(context.Background(), orgID, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.BatchCount != 3 {
		t.Fatalf("batch count = %d, want 3 (per meter per month)", report.BatchCount)
	}
	wantPeriods := []Period{{2026, 3}, {2026, 4}}
	if len(report.Periods) != 2 || report.Periods[0] != wantPeriods[0] || report.Periods[1] != wantPeriods[1] {
		t.Fatalf("periods = %+v, want %+v", report.Periods, wantPeriods)
	}
	if len(alloc.calls) != 2 {
		t.Fatalf("allocator calls = %+v, want two periods", alloc.calls)
	}
	if len(box.events) != 1 {
		t.Fatalf("outbox events = %d, want 1", len(box.events))
	}
}

func TestImport_DuplicateSlotRejected(t *testing.T) {
	orgID := uuid.New()
	repo := &stubOrgsRepo{
		org: &models.Organization{ID: orgID},
		points: []models.MeterPoint{
			{ID: uuid.New(), OrganizationID: orgID, MemberID: uuid.New(), PodCode: "CH1001"},
		},
	}
	svc := newTestService(t, repo, &stubAllocator{}, nil)

	input := strings.Join([]string{
		"pod,timestamp,consumption_kwh",
		"CH1001,2026-03-01T00:00:00Z,0.25",
		"CH1001,2026-03-01T00:00:00Z,0.30",
	}, "\n")

	report, err := svc.Import(context.Background(), orgID, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.AcceptedRows != 1 || report.RejectedRows != 1 {
		t.Fatalf("report = %+v, want duplicate slot rejected", report)
	}
}

func TestImport_UnknownOrganization(t *testing.T) {
	svc := newTestService(t, &stubOrgsRepo{}, &stubAllocator{}, nil)

	_, err := svc.Import(context.Background(), uuid.New(), strings.NewReader("pod,timestamp,consumption\n"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
