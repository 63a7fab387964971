package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minerledger/backend/internal/models"
)

const packageColumns = `id, name, price, daily_earning, duration_days, is_active, created_at, updated_at`

type PackageRepo struct {
	pool *pgxpool.Pool
}

func NewPackageRepo(pool *pgxpool.Pool) *PackageRepo {
	return &PackageRepo{pool: pool}
}

func scanPackage(row rowScanner) (*models.MiningPackage, error) {
	var p models.MiningPackage
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.DailyEarning, &p.DurationDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *PackageRepo) Create(ctx context.Context, p *models.MiningPackage) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO mining_packages (id, name, price, daily_earning, duration_days, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Price, p.DailyEarning, p.DurationDays, p.IsActive).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (r *PackageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MiningPackage, error) {
	return scanPackage(r.pool.QueryRow(ctx, `SELECT `+packageColumns+` FROM mining_packages WHERE id = $1`, id))
}

func (r *PackageRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE mining_packages SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns packages ordered by price; activeOnly filters deactivated ones.
func (r *PackageRepo) List(ctx context.Context, activeOnly bool) ([]*models.MiningPackage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+packageColumns+` FROM mining_packages
		WHERE is_active OR NOT $1
		ORDER BY price ASC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.MiningPackage
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
