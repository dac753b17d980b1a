package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/wattly/wattly-backend/internal/platformbilling"
	"github.com/wattly/wattly-backend/pkg/logger"
)

type platformSweeper interface {
	SweepMonth(ctx context.Context, year, month int) (*platformbilling.SweepResult, error)
}

// PlatformBillingJobParams configure the monthly platform billing sweep.
type PlatformBillingJobParams struct {
	Logger  *logger.Logger
	Billing platformSweeper
}

// NewPlatformBillingJob builds the job that backfills platform invoices for
// the previous calendar month.
func NewPlatformBillingJob(params PlatformBillingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Billing == nil {
		return nil, fmt.Errorf("platform billing service required")
	}
	return &platformBillingJob{
		logg:    params.Logger,
		billing: params.Billing,
		now:     time.Now,
	}, nil
}

type platformBillingJob struct {
	logg    *logger.Logger
	billing platformSweeper
	now     func() time.Time
}

func (j *platformBillingJob) Name() string { return "platform-billing-sweep" }

func (j *platformBillingJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	// Anchor on the first of the month so month arithmetic never normalizes
	// day 31 into the wrong period.
	previous := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	year, month := previous.Year(), int(previous.Month())

	result, err := j.billing.SweepMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("platform billing sweep %04d-%02d: %w", year, month, err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"period":    fmt.Sprintf("%04d-%02d", year, month),
		"generated": result.Generated,
		"failed":    len(result.Failed),
	})
	j.logg.Info(logCtx, "platform billing sweep complete")
	return nil
}
