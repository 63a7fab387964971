package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
)

const withdrawalColumns = `id, user_id, amount, withdrawal_method, withdrawal_account, status, tax_amount, net_amount, approved_by, approval_date, rejection_reason, created_at, updated_at`

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

func scanWithdrawal(row rowScanner) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.Method, &w.Account, &w.Status, &w.TaxAmount, &w.NetAmount, &w.ApprovedBy, &w.ApprovalDate, &w.RejectionReason, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

func (r *WithdrawalRepo) Create(ctx context.Context, w *models.Withdrawal) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO withdrawals (id, user_id, amount, withdrawal_method, withdrawal_account, status, tax_amount, net_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, w.ID, w.UserID, w.Amount, w.Method, w.Account, w.Status, w.TaxAmount, w.NetAmount).Scan(&w.CreatedAt, &w.UpdatedAt)
	return mapErr(err)
}

func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	return scanWithdrawal(r.pool.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id))
}

// GetByIDForUpdate locks the withdrawal row. Call within a transaction.
func (r *WithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Withdrawal, error) {
	return scanWithdrawal(tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
}

func (r *WithdrawalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	err := tx.QueryRow(ctx, `
		UPDATE withdrawals SET status = $2, approved_by = $3, approval_date = $4, rejection_reason = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, w.ID, w.Status, w.ApprovedBy, w.ApprovalDate, w.RejectionReason).Scan(&w.UpdatedAt)
	return mapErr(err)
}

// HasSettled reports whether the user has an approved or completed withdrawal.
func (r *WithdrawalRepo) HasSettled(ctx context.Context, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM withdrawals WHERE user_id = $1 AND status IN ('approved', 'completed'))
	`, userID).Scan(&ok)
	return ok, err
}

// totalWithdrawnSQL sums Withdrawal.PaidOut over a user's rows.
const totalWithdrawnSQL = `SELECT COALESCE(SUM(net_amount), 0) FROM withdrawals WHERE user_id = $1 AND status = 'completed'`

// TotalWithdrawn sums the net amounts of the user's completed withdrawals.
func (r *WithdrawalRepo) TotalWithdrawn(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, totalWithdrawnSQL, userID).Scan(&total)
	return total, err
}

func (r *WithdrawalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error) {
	return r.list(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *WithdrawalRepo) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
	return r.list(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE status = $1 ORDER BY created_at ASC`, status)
}

func (r *WithdrawalRepo) list(ctx context.Context, sql string, args ...any) ([]*models.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}
