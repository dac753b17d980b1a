package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wattly/wattly-backend/internal/platformbilling"
	"github.com/wattly/wattly-backend/pkg/logger"
)

func TestPlatformBillingJobSweepsPreviousMonth(t *testing.T) {
	sweeper := &fakePlatformSweeper{}
	job := newPlatformBillingJob(t, sweeper)
	// Day 31 must still resolve to the previous calendar month.
	job.now = func() time.Time { return time.Date(2026, 3, 31, 4, 0, 0, 0, time.UTC) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.year != 2026 || sweeper.month != 2 {
		t.Fatalf("swept %04d-%02d, want 2026-02", sweeper.year, sweeper.month)
	}
}

func TestPlatformBillingJobJanuaryRollsOverYear(t *testing.T) {
	sweeper := &fakePlatformSweeper{}
	job := newPlatformBillingJob(t, sweeper)
	job.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.year != 2025 || sweeper.month != 12 {
		t.Fatalf("swept %04d-%02d, want 2025-12", sweeper.year, sweeper.month)
	}
}

func TestPlatformBillingJobPropagatesError(t *testing.T) {
	sweeper := &fakePlatformSweeper{err: errors.New("boom")}
	job := newPlatformBillingJob(t, sweeper)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newPlatformBillingJob(t *testing.T, sweeper *fakePlatformSweeper) *platformBillingJob {
	t.Helper()
	jobIface, err := NewPlatformBillingJob(PlatformBillingJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Billing: sweeper,
	})
	if err != nil {
		t.Fatalf("NewPlatformBillingJob: %v", err)
	}
	job, ok := jobIface.(*platformBillingJob)
	if !ok {
		t.Fatalf("expected platformBillingJob, got %T", jobIface)
	}
	return job
}

type fakePlatformSweeper struct {
	year  int
	month int
	err   error
}

func (f *fakePlatformSweeper) SweepMonth(ctx context.Context, year, month int) (*platformbilling.SweepResult, error) {
	f.year = year
	f.month = month
	if f.err != nil {
		return nil, f.err
	}
	return &platformbilling.SweepResult{Generated: 3}, nil
}
