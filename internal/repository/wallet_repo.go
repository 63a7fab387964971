package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minerledger/backend/internal/models"
)

const walletColumns = `id, user_id, mining_income, roi_earnings, referral_earnings, signup_bonus, balance, last_earning_date, created_at, updated_at`

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var w models.Wallet
	if err := row.Scan(&w.ID, &w.UserID, &w.MiningIncome, &w.ROIEarnings, &w.ReferralEarnings, &w.SignupBonus, &w.Balance, &w.LastEarningDate, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

// Ensure creates a zero wallet for the user if none exists.
func (r *WalletRepo) Ensure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID)
	return err
}

// GetForUpdate locks the user's wallet row. Call within a transaction.
func (r *WalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.Wallet, error) {
	return scanWallet(tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID))
}

// Update writes every cached total. Call after GetForUpdate in the same tx.
func (r *WalletRepo) Update(ctx context.Context, tx pgx.Tx, w *models.Wallet) error {
	err := tx.QueryRow(ctx, `
		UPDATE wallets SET mining_income = $2, roi_earnings = $3, referral_earnings = $4, signup_bonus = $5,
			balance = $6, last_earning_date = $7, updated_at = now()
		WHERE user_id = $1
		RETURNING updated_at
	`, w.UserID, w.MiningIncome, w.ROIEarnings, w.ReferralEarnings, w.SignupBonus, w.Balance, w.LastEarningDate).Scan(&w.UpdatedAt)
	return mapErr(err)
}

func (r *WalletRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return scanWallet(r.pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
}

func (r *WalletRepo) List(ctx context.Context) ([]*models.Wallet, error) {
	return r.list(ctx, r.pool)
}

// ListTx lists wallets as seen by tx.
func (r *WalletRepo) ListTx(ctx context.Context, tx pgx.Tx) ([]*models.Wallet, error) {
	return r.list(ctx, tx)
}

func (r *WalletRepo) list(ctx context.Context, q querier) ([]*models.Wallet, error) {
	rows, err := q.Query(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}
