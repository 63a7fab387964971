package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minerledger/backend/internal/models"
)

// SettingsRepo reads and replaces the three settings singletons. Reads
// return (nil, nil) when no row is active.
type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) ActiveROI(ctx context.Context) (*models.ROISetting, error) {
	var s models.ROISetting
	err := r.pool.QueryRow(ctx, `
		SELECT id, min_percentage, max_percentage, is_active, updated_at
		FROM roi_settings WHERE is_active ORDER BY created_at ASC LIMIT 1
	`).Scan(&s.ID, &s.MinPercentage, &s.MaxPercentage, &s.IsActive, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepo) ActiveReinvest(ctx context.Context) (*models.ReinvestSetting, error) {
	var s models.ReinvestSetting
	err := r.pool.QueryRow(ctx, `
		SELECT id, percentage, is_active, updated_at
		FROM reinvest_settings WHERE is_active ORDER BY created_at ASC LIMIT 1
	`).Scan(&s.ID, &s.Percentage, &s.IsActive, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepo) ActiveTax(ctx context.Context) (*models.WithdrawalTaxSetting, error) {
	var s models.WithdrawalTaxSetting
	err := r.pool.QueryRow(ctx, `
		SELECT id, percentage, is_active, updated_at
		FROM withdrawal_tax_settings WHERE is_active ORDER BY created_at ASC LIMIT 1
	`).Scan(&s.ID, &s.Percentage, &s.IsActive, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// replace deactivates every row of table and inserts a new active one.
func (r *SettingsRepo) replace(ctx context.Context, table, insert string, args ...any) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `UPDATE `+table+` SET is_active = FALSE, updated_at = now() WHERE is_active`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insert, args...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *SettingsRepo) SaveROI(ctx context.Context, s *models.ROISetting) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.replace(ctx, "roi_settings", `
		INSERT INTO roi_settings (id, min_percentage, max_percentage, is_active) VALUES ($1, $2, $3, TRUE)
	`, s.ID, s.MinPercentage, s.MaxPercentage)
}

func (r *SettingsRepo) SaveReinvest(ctx context.Context, s *models.ReinvestSetting) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.replace(ctx, "reinvest_settings", `
		INSERT INTO reinvest_settings (id, percentage, is_active) VALUES ($1, $2, TRUE)
	`, s.ID, s.Percentage)
}

func (r *SettingsRepo) SaveTax(ctx context.Context, s *models.WithdrawalTaxSetting) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.replace(ctx, "withdrawal_tax_settings", `
		INSERT INTO withdrawal_tax_settings (id, percentage, is_active) VALUES ($1, $2, TRUE)
	`, s.ID, s.Percentage)
}
