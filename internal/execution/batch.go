// Package execution runs the end-of-day batch: accrual, then daily referral
// commissions, then a reconciliation pass. The river worker and the accrual
// command both drive it.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/minerledger/backend/internal/accrual"
	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/models"
	"github.com/minerledger/backend/internal/referral"
)

type Accruer interface {
	RunDailyAccrual(ctx context.Context, asOf time.Time) (*accrual.Report, error)
}

type ReferralProcessor interface {
	ProcessReferralEarnings(ctx context.Context, asOf time.Time) (*referral.DailyReport, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context) ([]ledger.Drift, error)
}

// BatchResult collects the reports of one batch run.
type BatchResult struct {
	Date      time.Time             `json:"date"`
	Accrual   *accrual.Report       `json:"accrual"`
	Referrals *referral.DailyReport `json:"referrals"`
	Drift     []ledger.Drift        `json:"drift"`
}

// Batch serializes runs within the process so two triggers for the same day
// never interleave.
type Batch struct {
	mu        sync.Mutex
	accrual   Accruer
	referrals ReferralProcessor
	reconcile Reconciler
	log       *slog.Logger
}

func NewBatch(a Accruer, r ReferralProcessor, rec Reconciler, log *slog.Logger) *Batch {
	if log == nil {
		log = slog.Default()
	}
	return &Batch{accrual: a, referrals: r, reconcile: rec, log: log}
}

// Run processes asOf's calendar day. Accrual and referral failures abort the
// run; a failed reconciliation is logged and the run still succeeds.
func (b *Batch) Run(ctx context.Context, asOf time.Time) (*BatchResult, error) {
	return b.run(ctx, asOf, true)
}

// Accrue posts asOf's accrual and referral earnings without reconciling.
// Deposit approval uses it to pay the approval day; the scheduled run for
// the same day then finds those entries already posted.
func (b *Batch) Accrue(ctx context.Context, asOf time.Time) (*BatchResult, error) {
	return b.run(ctx, asOf, false)
}

func (b *Batch) run(ctx context.Context, asOf time.Time, reconcile bool) (*BatchResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	day := models.DateOf(asOf)
	res := &BatchResult{Date: day}
	var err error
	if res.Accrual, err = b.accrual.RunDailyAccrual(ctx, day); err != nil {
		return res, fmt.Errorf("daily accrual: %w", err)
	}
	if res.Referrals, err = b.referrals.ProcessReferralEarnings(ctx, day); err != nil {
		return res, fmt.Errorf("referral earnings: %w", err)
	}
	if reconcile {
		if res.Drift, err = b.reconcile.Reconcile(ctx); err != nil {
			b.log.Error("reconciliation failed", "date", day.Format(time.DateOnly), "error", err)
		}
	}
	b.log.Info("daily batch finished",
		"date", day.Format(time.DateOnly),
		"reconciled", reconcile,
		"credited", res.Accrual.Credited,
		"accrual_failures", len(res.Accrual.Failures),
		"referrals_credited", res.Referrals.Credited,
		"drift", len(res.Drift),
	)
	return res, nil
}
