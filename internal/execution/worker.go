package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
)

// DailyAccrualArgs schedules the batch for one calendar day (YYYY-MM-DD).
type DailyAccrualArgs struct {
	Date string `json:"date"`
}

func (DailyAccrualArgs) Kind() string { return "daily_accrual" }

// InsertOpts makes the job unique per date, so a second trigger for a day
// that is queued, running or done is skipped.
func (DailyAccrualArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 3,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}
}

// ArgsFor builds the job args for t's calendar day in loc.
func ArgsFor(t time.Time, loc *time.Location) DailyAccrualArgs {
	if loc == nil {
		loc = time.UTC
	}
	return DailyAccrualArgs{Date: t.In(loc).Format(time.DateOnly)}
}

// BatchRunner defines the contract the worker needs to process a day.
type BatchRunner interface {
	Run(ctx context.Context, asOf time.Time) (*BatchResult, error)
}

type DailyAccrualWorker struct {
	river.WorkerDefaults[DailyAccrualArgs]
	batch BatchRunner
}

func NewDailyAccrualWorker(batch BatchRunner) *DailyAccrualWorker {
	return &DailyAccrualWorker{batch: batch}
}

func (w *DailyAccrualWorker) Timeout(*river.Job[DailyAccrualArgs]) time.Duration {
	return 30 * time.Minute
}

func (w *DailyAccrualWorker) Work(ctx context.Context, job *river.Job[DailyAccrualArgs]) error {
	day, err := time.Parse(time.DateOnly, job.Args.Date)
	if err != nil {
		return river.JobCancel(fmt.Errorf("invalid accrual date %q: %w", job.Args.Date, err))
	}
	if _, err := w.batch.Run(ctx, day); err != nil {
		return fmt.Errorf("daily batch for %s: %w", job.Args.Date, err)
	}
	return nil
}
