package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

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

type allocator interface {
	Recompute(ctx context.Context, orgID uuid.UUID, year, month int) ([]models.MonthlyAggregate, error)
}

type orgReader interface {
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListMeterPoints(ctx context.Context, orgID uuid.UUID) ([]models.MeterPoint, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Period is one affected (year, month) pair.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Report is the operator-facing result of one import run.
type Report struct {
	AcceptedRows int        `json:"accepted_rows"`
	RejectedRows int        `json:"rejected_rows"`
	BatchCount   int        `json:"batch_count"`
	Periods      []Period   `json:"periods"`
	Rejections   []RowIssue `json:"rejections,omitempty"`
}

// Service turns raw load-curve files into persisted batches and fresh
// monthly aggregates.
type Service interface {
	Import(ctx context.Context, orgID uuid.UUID, input io.Reader) (*Report, error)
}

// ServiceParams groups dependencies for the ingest service.
type ServiceParams struct {
	Repo      Repository
	OrgsRepo  orgReader
	Tx        txRunner
	Allocator allocator
	Outbox    outboxPublisher
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	orgsRepo  orgReader
	tx        txRunner
	allocator allocator
	outbox    outboxPublisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds an ingest service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ingest repository required")
	}
	if params.OrgsRepo == nil {
		return nil, fmt.Errorf("orgs repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Allocator == nil {
		return nil, fmt.Errorf("allocator required")
	}
	return &service{
		repo:      params.Repo,
		orgsRepo:  params.OrgsRepo,
		tx:        params.Tx,
		allocator: params.Allocator,
		outbox:    params.Outbox,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

type batchKey struct {
	meterPointID uuid.UUID
	year         int
	month        int
}

// Import parses the input, maps rows to meter points, persists one batch per
// (meter, month) and recomputes the affected aggregates. Row failures are
// reported, never fatal; only an unreadable input aborts the run.
func (s *service) Import(ctx context.Context, orgID uuid.UUID, input io.Reader) (*Report, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if _, err := s.orgsRepo.FindOrganization(ctx, orgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}

	records, issues, err := ParseCSV(input)
	if err != nil {
		return nil, err
	}

	meterPoints, err := s.orgsRepo.ListMeterPoints(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load meter points")
	}
	byPod := make(map[string]models.MeterPoint, len(meterPoints))
	for _, point := range meterPoints {
		byPod[point.PodCode] = point
	}

	groups := make(map[batchKey][]Record)
	seenSlots := make(map[batchKey]map[time.Time]bool)
	accepted := 0
	for _, record := range records {
		point, ok := byPod[record.PodCode]
		if !ok {
			issues = append(issues, RowIssue{
				Row:    record.Row,
				Reason: fmt.Sprintf("unknown point-of-delivery code %q", record.PodCode),
			})
			continue
		}
		key := batchKey{
			meterPointID: point.ID,
			year:         record.Timestamp.Year(),
			month:        int(record.Timestamp.Month()),
		}
		if seenSlots[key] == nil {
			seenSlots[key] = make(map[time.Time]bool)
		}
		if seenSlots[key][record.Timestamp] {
			issues = append(issues, RowIssue{
				Row:    record.Row,
				Reason: fmt.Sprintf("duplicate reading for %s", record.Timestamp.Format(time.RFC3339)),
			})
			continue
		}
		seenSlots[key][record.Timestamp] = true
		groups[key] = append(groups[key], record)
		accepted++
	}

	batches := make([]*models.LoadCurveBatch, 0, len(groups))
	for key, group := range groups {
		sort.Slice(group, func(a, b int) bool {
			return group[a].Timestamp.Before(group[b].Timestamp)
		})
		batches = append(batches, buildBatch(orgID, byPod, key, group))
	}
	sort.Slice(batches, func(a, b int) bool {
		if batches[a].MeterPointID != batches[b].MeterPointID {
			return batches[a].MeterPointID.String() < batches[b].MeterPointID.String()
		}
		return batches[a].PeriodStart.Before(batches[b].PeriodStart)
	})

	if len(batches) > 0 {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			batchIDs := make([]uuid.UUID, 0, len(batches))
			for _, batch := range batches {
				if err := repo.CreateBatch(ctx, batch); err != nil {
					return err
				}
				batchIDs = append(batchIDs, batch.ID)
			}
			if s.outbox == nil {
				return nil
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventLoadCurveImported,
				AggregateType: enums.AggregateLoadCurveBatch,
				AggregateID:   batchIDs[0],
				Data: payloads.LoadCurveImportedEvent{
					OrganizationID: orgID,
					BatchIDs:       batchIDs,
					AcceptedRows:   accepted,
					RejectedRows:   len(issues),
					ImportedAt:     s.now().UTC(),
				},
				Version: 1,
			})
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store load curve batches")
		}
	}

	periods := affectedPeriods(groups)
	var allocErr error
	for _, period := range periods {
		if _, err := s.allocator.Recompute(ctx, orgID, period.Year, period.Month); err != nil {
			allocErr = multierr.Append(allocErr, fmt.Errorf("recompute %04d-%02d: %w", period.Year, period.Month, err))
		}
	}
	if allocErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, allocErr, "recompute aggregates")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrgID(ctx, orgID.String())
		s.logg.Info(logCtx, fmt.Sprintf("load curve import: %d accepted, %d rejected, %d batches",
			accepted, len(issues), len(batches)))
	}

	return &Report{
		AcceptedRows: accepted,
		RejectedRows: len(issues),
		BatchCount:   len(batches),
		Periods:      periods,
		Rejections:   issues,
	}, nil
}

func buildBatch(orgID uuid.UUID, byPod map[string]models.MeterPoint, key batchKey, group []Record) *models.LoadCurveBatch {
	batch := &models.LoadCurveBatch{
		OrganizationID: orgID,
		MeterPointID:   key.meterPointID,
		Year:           key.year,
		Month:          key.month,
		PeriodStart:    group[0].Timestamp,
		PeriodEnd:      group[len(group)-1].Timestamp,
		ReadingCount:   len(group),
	}
	for _, point := range byPod {
		if point.ID == key.meterPointID {
			batch.MemberID = point.MemberID
			break
		}
	}
	for _, record := range group {
		batch.TotalConsumptionKwh = batch.TotalConsumptionKwh.Add(record.ConsumedKwh)
		batch.TotalProductionKwh = batch.TotalProductionKwh.Add(record.ProducedKwh)
		batch.Readings = append(batch.Readings, models.IntervalReading{
			Timestamp:   record.Timestamp,
			ConsumedKwh: record.ConsumedKwh,
			ProducedKwh: record.ProducedKwh,
		})
	}
	return batch
}

func affectedPeriods(groups map[batchKey][]Record) []Period {
	seen := make(map[Period]bool)
	var periods []Period
	for key := range groups {
		period := Period{Year: key.year, Month: key.month}
		if !seen[period] {
			seen[period] = true
			periods = append(periods, period)
		}
	}
	sort.Slice(periods, func(a, b int) bool {
		if periods[a].Year != periods[b].Year {
			return periods[a].Year < periods[b].Year
		}
		return periods[a].Month < periods[b].Month
	})
	return periods
}
