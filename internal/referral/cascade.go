// Package referral propagates commissions up the referrer chain, once on a
// deposit's approval and daily from the downline's earnings.
package referral

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/metrics"
	"github.com/minerledger/backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

type UserReader interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
}

type DepositChecker interface {
	HasApproved(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (bool, error)
}

type EdgeStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, ref *models.Referral) error
	AddEarned(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) error
	ListAll(ctx context.Context) ([]*models.Referral, error)
}

type EarningsReader interface {
	SumReferralBase(ctx context.Context, userID uuid.UUID, date time.Time) (decimal.Decimal, error)
}

// Commission is one credited level of an approval cascade.
type Commission struct {
	Level      int             `json:"level"`
	ReferrerID uuid.UUID       `json:"referrer_id"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// DailyReport summarizes one ProcessReferralEarnings call.
type DailyReport struct {
	Date     time.Time       `json:"date"`
	Edges    int             `json:"edges"`
	Credited int             `json:"credited"`
	Skipped  int             `json:"skipped_already_credited"`
	Failures int             `json:"failures"`
	Total    decimal.Decimal `json:"total"`
}

type Cascade struct {
	pool     ledger.TxBeginner
	users    UserReader
	deposits DepositChecker
	edges    EdgeStore
	earnings EarningsReader
	ledger   *ledger.Ledger
	log      *slog.Logger
}

func NewCascade(pool ledger.TxBeginner, users UserReader, deposits DepositChecker, edges EdgeStore, earnings EarningsReader, l *ledger.Ledger, log *slog.Logger) *Cascade {
	if log == nil {
		log = slog.Default()
	}
	return &Cascade{pool: pool, users: users, deposits: deposits, edges: edges, earnings: earnings, ledger: l, log: log}
}

func commissionOf(base decimal.Decimal, level int) decimal.Decimal {
	return base.Mul(models.LevelCommission(level)).Div(hundred).Round(2)
}

// OnDepositApproved walks up to three ancestors of the depositor inside the
// approving transaction. An inactive ancestor ends the walk. Above level 1 an
// ancestor without an approved deposit of their own is passed over, and the
// level still advances. Each commission is a referral ledger entry keyed by
// the deposit, so a repeated call credits nothing twice.
func (c *Cascade) OnDepositApproved(ctx context.Context, tx pgx.Tx, d *models.Deposit) ([]Commission, error) {
	if d.Status != models.DepositApproved || d.ApprovedAt == nil {
		return nil, fmt.Errorf("deposit %s is not approved", d.ID)
	}
	depositor, err := c.users.GetByIDTx(ctx, tx, d.UserID)
	if err != nil {
		return nil, fmt.Errorf("load depositor: %w", err)
	}
	var out []Commission
	next := depositor.ReferredBy
	for level := 1; next != nil && level <= models.MaxReferralLevel; level++ {
		ancestor, err := c.users.GetByIDTx(ctx, tx, *next)
		if err != nil {
			return out, fmt.Errorf("load level %d referrer: %w", level, err)
		}
		if ancestor.AccountStatus != models.AccountActive {
			c.log.Info("referral walk halted at inactive referrer", "deposit_id", d.ID, "user_id", ancestor.ID, "level", level)
			break
		}
		next = ancestor.ReferredBy

		if level > 1 {
			ok, err := c.deposits.HasApproved(ctx, tx, ancestor.ID)
			if err != nil {
				return out, fmt.Errorf("check level %d deposits: %w", level, err)
			}
			if !ok {
				continue
			}
		}

		pct := models.LevelCommission(level)
		amount := commissionOf(d.Amount, level)
		if !amount.IsPositive() {
			continue
		}
		edge := &models.Referral{ID: uuid.New(), ReferrerID: ancestor.ID, ReferredUserID: d.UserID, Level: level, CommissionPercentage: pct}
		if err := c.edges.Upsert(ctx, tx, edge); err != nil {
			return out, fmt.Errorf("upsert level %d edge: %w", level, err)
		}
		posted, err := c.credit(ctx, tx, edge, &models.DailyEarning{
			UserID:      ancestor.ID,
			EarningType: models.EarningReferral,
			Amount:      amount,
			DepositID:   &d.ID,
			EarnedDate:  *d.ApprovedAt,
		}, fmt.Sprintf("Level %d referral commission on deposit", level))
		if err != nil {
			return out, err
		}
		if posted {
			out = append(out, Commission{Level: level, ReferrerID: ancestor.ID, Percentage: pct, Amount: amount})
		}
	}
	return out, nil
}

// credit posts the entry to the referrer's wallet and, when written, adds
// it to the edge's cumulative total.
func (c *Cascade) credit(ctx context.Context, tx pgx.Tx, edge *models.Referral, e *models.DailyEarning, description string) (bool, error) {
	w, err := c.ledger.OpenWallet(ctx, tx, e.UserID)
	if err != nil {
		return false, err
	}
	posted, err := c.ledger.Post(ctx, tx, w, e, description)
	if err != nil || !posted {
		return false, err
	}
	if err := c.edges.AddEarned(ctx, tx, edge.ID, e.Amount); err != nil {
		return false, fmt.Errorf("add edge earnings: %w", err)
	}
	if err := c.ledger.Save(ctx, tx, w); err != nil {
		return false, err
	}
	return true, nil
}

// ProcessReferralEarnings pays each referrer a level commission on the
// referred user's earnings for asOf, including the referred user's own
// daily referral credits. It must run after RunDailyAccrual for the same
// date. Edges are paid bottom-up so those credits exist before the upline
// reads them. The entry carries no deposit, so a referrer is credited for at
// most one downline per day; later qualifying downlines are counted as
// skipped.
func (c *Cascade) ProcessReferralEarnings(ctx context.Context, asOf time.Time) (*DailyReport, error) {
	asOf = models.DateOf(asOf)
	edges, err := c.edges.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	rep := &DailyReport{Date: asOf, Edges: len(edges), Total: decimal.Zero}
	for _, edge := range bottomUp(edges) {
		amount, err := c.dailyCommission(ctx, edge, asOf)
		if err != nil {
			rep.Failures++
			c.log.Error("daily referral commission failed", "user_id", edge.ReferrerID, "referred_user_id", edge.ReferredUserID, "date", asOf.Format(time.DateOnly), "error", err)
			continue
		}
		if amount == nil {
			continue
		}
		if amount.IsZero() {
			rep.Skipped++
			metrics.ReferralCommissionSkipped.Inc()
			c.log.Info("referrer already credited today, downline commission skipped", "user_id", edge.ReferrerID, "referred_user_id", edge.ReferredUserID, "date", asOf.Format(time.DateOnly))
			continue
		}
		rep.Credited++
		rep.Total = rep.Total.Add(*amount)
	}
	c.log.Info("daily referral earnings finished", "date", asOf.Format(time.DateOnly), "edges", rep.Edges, "credited", rep.Credited, "skipped", rep.Skipped, "failed", rep.Failures, "total", rep.Total.String())
	return rep, nil
}

// bottomUp orders edges so that the edges paying a user come before the
// edges paying on that user's earnings. Ties keep their input order.
func bottomUp(edges []*models.Referral) []*models.Referral {
	byReferrer := make(map[uuid.UUID][]*models.Referral)
	for _, e := range edges {
		byReferrer[e.ReferrerID] = append(byReferrer[e.ReferrerID], e)
	}
	out := make([]*models.Referral, 0, len(edges))
	seen := make(map[*models.Referral]bool, len(edges))
	var visit func(e *models.Referral)
	visit = func(e *models.Referral) {
		if seen[e] {
			return
		}
		seen[e] = true
		for _, below := range byReferrer[e.ReferredUserID] {
			visit(below)
		}
		out = append(out, e)
	}
	for _, e := range edges {
		visit(e)
	}
	return out
}

// dailyCommission returns nil when the edge does not qualify, zero when
// the referrer was already credited for asOf, else the posted amount.
func (c *Cascade) dailyCommission(ctx context.Context, edge *models.Referral, asOf time.Time) (*decimal.Decimal, error) {
	ok, err := c.deposits.HasApproved(ctx, nil, edge.ReferredUserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	base, err := c.earnings.SumReferralBase(ctx, edge.ReferredUserID, asOf)
	if err != nil {
		return nil, err
	}
	amount := commissionOf(base, edge.Level)
	if !amount.IsPositive() {
		return nil, nil
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	posted, err := c.credit(ctx, tx, edge, &models.DailyEarning{
		UserID:      edge.ReferrerID,
		EarningType: models.EarningReferral,
		Amount:      amount,
		EarnedDate:  asOf,
	}, fmt.Sprintf("Level %d referral commission on team earnings", edge.Level))
	if err != nil {
		return nil, err
	}
	if !posted {
		zero := decimal.Zero
		return &zero, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &amount, nil
}
