package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
)

const earningColumns = `id, user_id, earning_type, amount, deposit_id, earned_date, created_at`

// EarningRepo is the append-only earnings ledger.
type EarningRepo struct {
	pool *pgxpool.Pool
}

func NewEarningRepo(pool *pgxpool.Pool) *EarningRepo {
	return &EarningRepo{pool: pool}
}

func scanEarning(row rowScanner) (*models.DailyEarning, error) {
	var e models.DailyEarning
	if err := row.Scan(&e.ID, &e.UserID, &e.EarningType, &e.Amount, &e.DepositID, &e.EarnedDate, &e.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

// InsertIfAbsent appends the entry unless one already exists for its
// (user, type, date, deposit) key. It reports whether a row was written.
func (r *EarningRepo) InsertIfAbsent(ctx context.Context, tx pgx.Tx, e *models.DailyEarning) (bool, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO daily_earnings (id, user_id, earning_type, amount, deposit_id, earned_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT daily_earnings_idempotence_key DO NOTHING
		RETURNING created_at
	`, e.ID, e.UserID, e.EarningType, e.Amount, e.DepositID, models.DateOf(e.EarnedDate)).Scan(&e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SumForDay totals the user's entries of the given types on date.
func (r *EarningRepo) SumForDay(ctx context.Context, userID uuid.UUID, date time.Time, types ...models.EarningType) (decimal.Decimal, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM daily_earnings
		WHERE user_id = $1 AND earned_date = $2 AND earning_type = ANY($3)
	`, userID, models.DateOf(date), names).Scan(&total)
	return total, err
}

// SumReferralBase totals the user's entries on date that an upline's daily
// commission is computed from; see models.DailyEarning.InReferralBase.
func (r *EarningRepo) SumReferralBase(ctx context.Context, userID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM daily_earnings
		WHERE user_id = $1 AND earned_date = $2
		  AND (earning_type IN ('mining', 'roi', 'reinvest')
		       OR (earning_type = 'referral' AND deposit_id IS NULL))
	`, userID, models.DateOf(date)).Scan(&total)
	return total, err
}

// CreditTotals folds the balance-bearing entries per user as seen by tx.
func (r *EarningRepo) CreditTotals(ctx context.Context, tx pgx.Tx) (map[uuid.UUID]decimal.Decimal, error) {
	var names []string
	for _, t := range []models.EarningType{models.EarningMining, models.EarningROI, models.EarningReferral, models.EarningReinvest, models.EarningSignupBonus} {
		if t.CountsTowardBalance() {
			names = append(names, string(t))
		}
	}
	rows, err := tx.Query(ctx, `
		SELECT user_id, SUM(amount) FROM daily_earnings
		WHERE earning_type = ANY($1)
		GROUP BY user_id
	`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var id uuid.UUID
		var sum decimal.Decimal
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		out[id] = sum
	}
	return out, rows.Err()
}

func (r *EarningRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.DailyEarning, error) {
	return r.list(ctx, `
		SELECT `+earningColumns+` FROM daily_earnings
		WHERE user_id = $1 ORDER BY earned_date DESC, created_at DESC LIMIT $2
	`, userID, limit)
}

// ListBetween returns every entry with earned_date in [from, to].
func (r *EarningRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*models.DailyEarning, error) {
	return r.list(ctx, `
		SELECT `+earningColumns+` FROM daily_earnings
		WHERE earned_date BETWEEN $1 AND $2 ORDER BY earned_date ASC, created_at ASC
	`, models.DateOf(from), models.DateOf(to))
}

func (r *EarningRepo) list(ctx context.Context, sql string, args ...any) ([]*models.DailyEarning, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.DailyEarning
	for rows.Next() {
		e, err := scanEarning(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
