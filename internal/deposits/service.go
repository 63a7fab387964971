package deposits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/execution"
	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/models"
	"github.com/minerledger/backend/internal/referral"
	"github.com/minerledger/backend/internal/repository"
)

var (
	ErrNotFound             = errors.New("deposit not found")
	ErrPackageUnavailable   = errors.New("mining package is not available")
	ErrAmountBelowPrice     = errors.New("amount is below the package price")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrProofRequired        = errors.New("deposit proof is required")
	ErrAlreadyProcessed     = errors.New("deposit already processed")
)

type CreateInput struct {
	PackageID      uuid.UUID
	Amount         decimal.Decimal
	PaymentMethod  models.PaymentMethod
	TransactionRef string
	AccountName    string
	ProofURL       string
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Deposit, error)
	Approve(ctx context.Context, depositID, adminID uuid.UUID) (*models.Deposit, []referral.Commission, error)
	Reject(ctx context.Context, depositID, adminID uuid.UUID, reason string) (*models.Deposit, error)
	Get(ctx context.Context, depositID uuid.UUID) (*models.Deposit, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Deposit, error)
	ListPending(ctx context.Context) ([]*models.Deposit, error)
}

type PackageReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MiningPackage, error)
}

type Store interface {
	Create(ctx context.Context, tx pgx.Tx, d *models.Deposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Deposit, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, d *models.Deposit) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Deposit, error)
	ListByStatus(ctx context.Context, status models.DepositStatus) ([]*models.Deposit, error)
}

// ApprovalCascade credits the referrer chain of a freshly approved deposit.
type ApprovalCascade interface {
	OnDepositApproved(ctx context.Context, tx pgx.Tx, d *models.Deposit) ([]referral.Commission, error)
}

// DayAccruer pays a calendar day's accrual and referral earnings.
type DayAccruer interface {
	Accrue(ctx context.Context, asOf time.Time) (*execution.BatchResult, error)
}

type service struct {
	pool     ledger.TxBeginner
	store    Store
	packages PackageReader
	ledger   *ledger.Ledger
	cascade  ApprovalCascade
	day      DayAccruer
	log      *slog.Logger
	now      func() time.Time
}

// NewService builds the deposit service. day may be nil, in which case an
// approved deposit first earns on the next scheduled run.
func NewService(pool ledger.TxBeginner, store Store, packages PackageReader, l *ledger.Ledger, cascade ApprovalCascade, day DayAccruer, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{pool: pool, store: store, packages: packages, ledger: l, cascade: cascade, day: day, log: log, now: time.Now}
}

var _ Service = (*service)(nil)

func (s *service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Deposit, error) {
	if !in.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if strings.TrimSpace(in.ProofURL) == "" {
		return nil, ErrProofRequired
	}
	pkg, err := s.packages.GetByID(ctx, in.PackageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPackageUnavailable
	}
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrPackageUnavailable
	}
	if in.Amount.LessThan(pkg.Price) {
		return nil, ErrAmountBelowPrice
	}

	d := &models.Deposit{
		ID:             uuid.New(),
		UserID:         userID,
		PackageID:      pkg.ID,
		Amount:         in.Amount.Round(2),
		Status:         models.DepositPending,
		PaymentMethod:  in.PaymentMethod,
		TransactionRef: strings.TrimSpace(in.TransactionRef),
		AccountName:    strings.TrimSpace(in.AccountName),
		ProofURL:       in.ProofURL,
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	if err := s.store.Create(ctx, tx, d); err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}
	if err := s.ledger.Record(ctx, tx, &models.Transaction{
		UserID:          userID,
		TransactionType: models.TxDeposit,
		Amount:          d.Amount,
		Status:          models.TxPending,
		Description:     fmt.Sprintf("Deposit for %s via %s", pkg.Name, d.PaymentMethod),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Approve moves a pending deposit to approved and runs the referral
// cascade in the same transaction. After commit it pays the approval day,
// whose scheduled run has usually passed already; a failure there is logged
// and the approval stands.
func (s *service) Approve(ctx context.Context, depositID, adminID uuid.UUID) (*models.Deposit, []referral.Commission, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	d, err := s.lockPending(ctx, tx, depositID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	d.Status = models.DepositApproved
	d.ApprovedAt = &now
	d.ApprovedBy = &adminID
	if err := s.store.UpdateStatus(ctx, tx, d); err != nil {
		return nil, nil, fmt.Errorf("approve deposit: %w", err)
	}
	commissions, err := s.cascade.OnDepositApproved(ctx, tx, d)
	if err != nil {
		return nil, nil, fmt.Errorf("referral cascade: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	s.log.Info("deposit approved", "deposit_id", d.ID, "user_id", d.UserID, "amount", d.Amount.String(), "commissions", len(commissions))

	if s.day != nil {
		if _, err := s.day.Accrue(context.WithoutCancel(ctx), now); err != nil {
			s.log.Error("approval day accrual failed", "deposit_id", d.ID, "date", now.Format(time.DateOnly), "error", err)
		}
	}
	return d, commissions, nil
}

func (s *service) Reject(ctx context.Context, depositID, adminID uuid.UUID, reason string) (*models.Deposit, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	d, err := s.lockPending(ctx, tx, depositID)
	if err != nil {
		return nil, err
	}
	d.Status = models.DepositRejected
	d.RejectionReason = strings.TrimSpace(reason)
	if err := s.store.UpdateStatus(ctx, tx, d); err != nil {
		return nil, fmt.Errorf("reject deposit: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("deposit rejected", "deposit_id", d.ID, "user_id", d.UserID, "admin_id", adminID)
	return d, nil
}

func (s *service) lockPending(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Deposit, error) {
	d, err := s.store.GetByIDForUpdate(ctx, tx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if d.Status != models.DepositPending {
		return nil, ErrAlreadyProcessed
	}
	return d, nil
}

func (s *service) Get(ctx context.Context, depositID uuid.UUID) (*models.Deposit, error) {
	d, err := s.store.GetByID(ctx, depositID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Deposit, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *service) ListPending(ctx context.Context) ([]*models.Deposit, error) {
	return s.store.ListByStatus(ctx, models.DepositPending)
}

func paymentMethod(s string) models.PaymentMethod {
	if s == "" {
		return models.PaymentBankTransfer
	}
	return models.PaymentMethod(s)
}
