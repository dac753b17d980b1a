package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/wattly/wattly-backend/pkg/logger"
)

type overdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// OverdueJobParams configure the daily overdue sweep.
type OverdueJobParams struct {
	Logger   *logger.Logger
	Invoices overdueMarker
}

// NewOverdueJob builds the job that flips sent invoices past their due date
// to overdue.
func NewOverdueJob(params OverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	return &overdueJob{
		logg:     params.Logger,
		invoices: params.Invoices,
		now:      time.Now,
	}, nil
}

type overdueJob struct {
	logg     *logger.Logger
	invoices overdueMarker
	now      func() time.Time
}

func (j *overdueJob) Name() string { return "invoice-overdue-sweep" }

func (j *overdueJob) Run(ctx context.Context) error {
	asOf := j.now().UTC()
	marked, err := j.invoices.MarkOverdue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("overdue sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":       asOf,
		"rows_marked": marked,
	})
	j.logg.Info(logCtx, "invoice overdue sweep complete")
	return nil
}
