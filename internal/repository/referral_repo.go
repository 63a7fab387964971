package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
)

type ReferralRepo struct {
	pool *pgxpool.Pool
}

func NewReferralRepo(pool *pgxpool.Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

// Upsert creates the (referrer, referred) edge if absent and loads the
// stored row into ref. Existing edges keep their level and percentage.
func (r *ReferralRepo) Upsert(ctx context.Context, tx pgx.Tx, ref *models.Referral) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO referrals (id, referrer_id, referred_user_id, level, commission_percentage)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (referrer_id, referred_user_id) DO NOTHING
	`, ref.ID, ref.ReferrerID, ref.ReferredUserID, ref.Level, ref.CommissionPercentage)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		SELECT id, level, commission_percentage, total_earned, created_at
		FROM referrals WHERE referrer_id = $1 AND referred_user_id = $2
	`, ref.ReferrerID, ref.ReferredUserID).Scan(&ref.ID, &ref.Level, &ref.CommissionPercentage, &ref.TotalEarned, &ref.CreatedAt)
	return mapErr(err)
}

// AddEarned increments the edge's cumulative commission.
func (r *ReferralRepo) AddEarned(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `UPDATE referrals SET total_earned = total_earned + $2 WHERE id = $1`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every edge in creation order.
func (r *ReferralRepo) ListAll(ctx context.Context) ([]*models.Referral, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, referrer_id, referred_user_id, level, commission_percentage, total_earned, created_at
		FROM referrals ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Referral
	for rows.Next() {
		var ref models.Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredUserID, &ref.Level, &ref.CommissionPercentage, &ref.TotalEarned, &ref.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &ref)
	}
	return list, rows.Err()
}

// CountByReferrer counts the edges where userID is the referrer.
func (r *ReferralRepo) CountByReferrer(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`, userID).Scan(&n)
	return n, err
}

// TeamStats aggregates edge count and earnings per level 1..3.
func (r *ReferralRepo) TeamStats(ctx context.Context, userID uuid.UUID) ([]models.TeamLevel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT level, COUNT(*), COALESCE(SUM(total_earned), 0)
		FROM referrals WHERE referrer_id = $1
		GROUP BY level
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := make([]models.TeamLevel, models.MaxReferralLevel)
	for i := range stats {
		stats[i] = models.TeamLevel{Level: i + 1, TotalEarned: decimal.Zero}
	}
	for rows.Next() {
		var lvl models.TeamLevel
		if err := rows.Scan(&lvl.Level, &lvl.Count, &lvl.TotalEarned); err != nil {
			return nil, err
		}
		if lvl.Level >= 1 && lvl.Level <= models.MaxReferralLevel {
			stats[lvl.Level-1] = lvl
		}
	}
	return stats, rows.Err()
}

func (r *ReferralRepo) ListTeam(ctx context.Context, userID uuid.UUID) ([]*models.TeamMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.display_name, r.level, r.total_earned, u.created_at
		FROM referrals r JOIN users u ON u.id = r.referred_user_id
		WHERE r.referrer_id = $1
		ORDER BY r.level ASC, u.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.UserID, &m.Email, &m.DisplayName, &m.Level, &m.TotalEarned, &m.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
