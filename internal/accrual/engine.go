// Package accrual runs the daily mining, ROI and reinvest postings for every
// approved deposit.
package accrual

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/metrics"
	"github.com/minerledger/backend/internal/models"
	"github.com/minerledger/backend/internal/settings"
)

var hundred = decimal.NewFromInt(100)

// DepositSource lists approved deposits on active packages.
type DepositSource interface {
	ListAccruable(ctx context.Context) ([]models.ActiveDeposit, error)
}

// SettingsLoader yields the settings snapshot for one run.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Snapshot, error)
}

// Failure is a deposit whose postings were rolled back.
type Failure struct {
	DepositID uuid.UUID `json:"deposit_id"`
	UserID    uuid.UUID `json:"user_id"`
	Error     string    `json:"error"`
}

// Report summarizes one RunDailyAccrual call.
type Report struct {
	Date      time.Time         `json:"date"`
	Settings  settings.Snapshot `json:"settings"`
	Visited   int               `json:"visited"`
	Matured   int               `json:"matured"`
	Credited  int               `json:"credited"`
	Unchanged int               `json:"unchanged"`
	Failures  []Failure         `json:"failures,omitempty"`
	Mining    decimal.Decimal   `json:"mining_posted"`
	ROI       decimal.Decimal   `json:"roi_posted"`
	Reinvest  decimal.Decimal   `json:"reinvest_posted"`
}

// Posting is the outcome of one deposit's unit of work.
type Posting struct {
	Mining    decimal.Decimal
	ROI       decimal.Decimal
	Reinvest  decimal.Decimal
	Available decimal.Decimal
}

// Newly is the balance-bearing amount written by this posting.
func (p Posting) Newly() decimal.Decimal { return p.Mining.Add(p.ROI) }

type Engine struct {
	pool     ledger.TxBeginner
	deposits DepositSource
	settings SettingsLoader
	ledger   *ledger.Ledger
	log      *slog.Logger
}

func NewEngine(pool ledger.TxBeginner, deposits DepositSource, loader SettingsLoader, l *ledger.Ledger, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{pool: pool, deposits: deposits, settings: loader, ledger: l, log: log}
}

// RunDailyAccrual posts asOf's earnings for every accruable deposit. A
// deposit that fails is rolled back and recorded in the report; the run
// continues. The returned error covers only failures to start the run.
func (e *Engine) RunDailyAccrual(ctx context.Context, asOf time.Time) (*Report, error) {
	start := time.Now()
	defer func() { metrics.AccrualRunDuration.Observe(time.Since(start).Seconds()) }()

	asOf = models.DateOf(asOf)
	snap, err := e.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	deposits, err := e.deposits.ListAccruable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}

	rep := &Report{Date: asOf, Settings: snap, Mining: decimal.Zero, ROI: decimal.Zero, Reinvest: decimal.Zero}
	for i := range deposits {
		ad := &deposits[i]
		rep.Visited++
		if ad.Deposit.Matured(asOf, ad.Package.DurationDays) {
			rep.Matured++
			metrics.AccrualDeposits.WithLabelValues("matured").Inc()
			continue
		}
		p, err := e.accrueDeposit(ctx, snap, ad, asOf)
		if err != nil {
			e.log.Error("accrual failed for deposit", "deposit_id", ad.Deposit.ID, "user_id", ad.Deposit.UserID, "date", asOf.Format(time.DateOnly), "error", err)
			rep.Failures = append(rep.Failures, Failure{DepositID: ad.Deposit.ID, UserID: ad.Deposit.UserID, Error: err.Error()})
			metrics.AccrualDeposits.WithLabelValues("failed").Inc()
			continue
		}
		if p.Newly().IsZero() && p.Reinvest.IsZero() {
			rep.Unchanged++
			metrics.AccrualDeposits.WithLabelValues("unchanged").Inc()
			continue
		}
		rep.Credited++
		rep.Mining = rep.Mining.Add(p.Mining)
		rep.ROI = rep.ROI.Add(p.ROI)
		rep.Reinvest = rep.Reinvest.Add(p.Reinvest)
		metrics.AccrualDeposits.WithLabelValues("credited").Inc()
	}
	e.log.Info("daily accrual finished",
		"date", asOf.Format(time.DateOnly),
		"visited", rep.Visited, "credited", rep.Credited, "matured", rep.Matured,
		"unchanged", rep.Unchanged, "failed", len(rep.Failures),
		"mining", rep.Mining.String(), "roi", rep.ROI.String(), "reinvest", rep.Reinvest.String())
	return rep, nil
}

// accrueDeposit runs one deposit's postings in a single transaction with
// the owner's wallet row locked.
func (e *Engine) accrueDeposit(ctx context.Context, snap settings.Snapshot, ad *models.ActiveDeposit, asOf time.Time) (Posting, error) {
	p := Posting{Mining: decimal.Zero, ROI: decimal.Zero, Reinvest: decimal.Zero, Available: decimal.Zero}
	userID, depositID := ad.Deposit.UserID, ad.Deposit.ID

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return p, err
	}
	defer tx.Rollback(ctx)

	w, err := e.ledger.OpenWallet(ctx, tx, userID)
	if err != nil {
		return p, err
	}
	opening := w.Balance

	mining := ad.Package.DailyEarning.Round(2)
	roi := opening.Mul(snap.ROIPercentage()).Div(hundred).Round(2)

	entry := func(t models.EarningType, amount decimal.Decimal) *models.DailyEarning {
		return &models.DailyEarning{UserID: userID, EarningType: t, Amount: amount, DepositID: &depositID, EarnedDate: asOf}
	}

	if mining.IsPositive() {
		posted, err := e.ledger.Post(ctx, tx, w, entry(models.EarningMining, mining), fmt.Sprintf("Daily mining income from %s", ad.Package.Name))
		if err != nil {
			return p, err
		}
		if posted {
			p.Mining = mining
		}
	}
	if roi.IsPositive() {
		posted, err := e.ledger.Post(ctx, tx, w, entry(models.EarningROI, roi), fmt.Sprintf("Daily ROI at %s%%", snap.ROIPercentage().String()))
		if err != nil {
			return p, err
		}
		if posted {
			p.ROI = roi
		}
	}

	reinvest := p.Newly().Mul(snap.ReinvestPct).Div(hundred).Round(2)
	if reinvest.IsPositive() {
		posted, err := e.ledger.Post(ctx, tx, w, entry(models.EarningReinvest, reinvest), fmt.Sprintf("Auto reinvest %s%%", snap.ReinvestPct.String()))
		if err != nil {
			return p, err
		}
		if posted {
			p.Reinvest = reinvest
		}
	}
	p.Available = p.Newly().Sub(p.Reinvest)

	w.LastEarningDate = &asOf
	if err := e.ledger.Save(ctx, tx, w); err != nil {
		return p, err
	}
	if err := tx.Commit(ctx); err != nil {
		return p, err
	}
	e.log.Debug("deposit accrued", "deposit_id", depositID, "user_id", userID, "date", asOf.Format(time.DateOnly),
		"mining", p.Mining.String(), "roi", p.ROI.String(), "reinvest", p.Reinvest.String(), "available", p.Available.String())
	return p, nil
}
