package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
)

const depositColumns = `d.id, d.user_id, d.package_id, d.amount, d.status, d.payment_method, d.transaction_ref, d.account_name, d.proof_url, d.approved_by, d.approved_at, d.rejection_reason, d.created_at, d.updated_at`

type DepositRepo struct {
	pool *pgxpool.Pool
}

func NewDepositRepo(pool *pgxpool.Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

func depositDest(d *models.Deposit) []any {
	return []any{&d.ID, &d.UserID, &d.PackageID, &d.Amount, &d.Status, &d.PaymentMethod, &d.TransactionRef, &d.AccountName, &d.ProofURL, &d.ApprovedBy, &d.ApprovedAt, &d.RejectionReason, &d.CreatedAt, &d.UpdatedAt}
}

func scanDeposit(row rowScanner) (*models.Deposit, error) {
	var d models.Deposit
	if err := row.Scan(depositDest(&d)...); err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (r *DepositRepo) Create(ctx context.Context, tx pgx.Tx, d *models.Deposit) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO deposits (id, user_id, package_id, amount, status, payment_method, transaction_ref, account_name, proof_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, d.ID, d.UserID, d.PackageID, d.Amount, d.Status, d.PaymentMethod, d.TransactionRef, d.AccountName, d.ProofURL).Scan(&d.CreatedAt, &d.UpdatedAt)
	return mapErr(err)
}

func (r *DepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	return scanDeposit(r.pool.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits d WHERE d.id = $1`, id))
}

// GetByIDForUpdate locks the deposit row. Call within a transaction.
func (r *DepositRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Deposit, error) {
	return scanDeposit(tx.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits d WHERE d.id = $1 FOR UPDATE`, id))
}

// UpdateStatus persists the terminal transition fields set by approve/reject.
func (r *DepositRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, d *models.Deposit) error {
	err := tx.QueryRow(ctx, `
		UPDATE deposits SET status = $2, approved_by = $3, approved_at = $4, rejection_reason = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, d.ID, d.Status, d.ApprovedBy, d.ApprovedAt, d.RejectionReason).Scan(&d.UpdatedAt)
	return mapErr(err)
}

// HasApproved reports whether the user owns at least one approved deposit.
func (r *DepositRepo) HasApproved(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (bool, error) {
	var q querier = r.pool
	if tx != nil {
		q = tx
	}
	var ok bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM deposits WHERE user_id = $1 AND status = 'approved')
	`, userID).Scan(&ok)
	return ok, err
}

func (r *DepositRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Deposit, error) {
	return r.list(ctx, `SELECT `+depositColumns+` FROM deposits d WHERE d.user_id = $1 ORDER BY d.created_at DESC`, userID)
}

func (r *DepositRepo) ListByStatus(ctx context.Context, status models.DepositStatus) ([]*models.Deposit, error) {
	return r.list(ctx, `SELECT `+depositColumns+` FROM deposits d WHERE d.status = $1 ORDER BY d.created_at ASC`, status)
}

func (r *DepositRepo) list(ctx context.Context, sql string, args ...any) ([]*models.Deposit, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// ListAccruable returns approved deposits on active packages joined with
// their package. Maturity is decided by the caller against asOf.
func (r *DepositRepo) ListAccruable(ctx context.Context) ([]models.ActiveDeposit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+depositColumns+`,
			p.id, p.name, p.price, p.daily_earning, p.duration_days, p.is_active, p.created_at, p.updated_at
		FROM deposits d
		JOIN mining_packages p ON p.id = d.package_id
		WHERE d.status = 'approved' AND p.is_active
		ORDER BY d.approved_at ASC, d.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ActiveDeposit
	for rows.Next() {
		var ad models.ActiveDeposit
		p := &ad.Package
		dest := append(depositDest(&ad.Deposit), &p.ID, &p.Name, &p.Price, &p.DailyEarning, &p.DurationDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		list = append(list, ad)
	}
	return list, rows.Err()
}

// ActivePackages returns the user's approved deposits that have not matured on asOf.
func (r *DepositRepo) ActivePackages(ctx context.Context, userID uuid.UUID, asOf time.Time) ([]models.ActiveDeposit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+depositColumns+`,
			p.id, p.name, p.price, p.daily_earning, p.duration_days, p.is_active, p.created_at, p.updated_at
		FROM deposits d
		JOIN mining_packages p ON p.id = d.package_id
		WHERE d.user_id = $1 AND d.status = 'approved'
			AND ($2::date - d.approved_at::date) < p.duration_days
		ORDER BY d.approved_at DESC
	`, userID, models.DateOf(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ActiveDeposit
	for rows.Next() {
		var ad models.ActiveDeposit
		p := &ad.Package
		dest := append(depositDest(&ad.Deposit), &p.ID, &p.Name, &p.Price, &p.DailyEarning, &p.DurationDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		list = append(list, ad)
	}
	return list, rows.Err()
}

// TotalInvested sums the user's approved deposit amounts.
func (r *DepositRepo) TotalInvested(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM deposits WHERE user_id = $1 AND status = 'approved'
	`, userID).Scan(&total)
	return total, err
}
