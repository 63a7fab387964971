// Package withdrawals implements withdrawal requests and their admin state
// machine: pending -> approved -> completed, or pending -> rejected.
package withdrawals

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

	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/models"
	"github.com/minerledger/backend/internal/repository"
)

// MinimumReferrals is the referral count required before a first withdrawal.
const MinimumReferrals = 2

var DefaultMinimum = decimal.NewFromInt(1000)

var (
	ErrNotFound            = errors.New("withdrawal not found")
	ErrBelowMinimum        = errors.New("amount is below the minimum withdrawal")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotEnoughReferrals  = errors.New("at least 2 referrals are required for the first withdrawal")
	ErrInvalidMethod       = errors.New("invalid withdrawal method")
	ErrAccountRequired     = errors.New("withdrawal account is required")
	ErrInvalidTransition   = errors.New("withdrawal cannot move to the requested status")
)

type CreateInput struct {
	Amount  decimal.Decimal
	Method  models.WithdrawalMethod
	Account string
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Withdrawal, error)
	Approve(ctx context.Context, id, adminID uuid.UUID) (*models.Withdrawal, error)
	Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.Withdrawal, error)
	Complete(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error)
	ListPending(ctx context.Context) ([]*models.Withdrawal, error)
}

type Store interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Withdrawal, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error
	HasSettled(ctx context.Context, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error)
}

type WalletReader interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
}

type ReferralCounter interface {
	CountByReferrer(ctx context.Context, userID uuid.UUID) (int, error)
}

type TaxSource interface {
	GetActiveTaxPct(ctx context.Context) (decimal.Decimal, error)
}

type service struct {
	pool      ledger.TxBeginner
	store     Store
	wallets   WalletReader
	referrals ReferralCounter
	taxes     TaxSource
	ledger    *ledger.Ledger
	minimum   decimal.Decimal
	log       *slog.Logger
	now       func() time.Time
}

// NewService builds the withdrawal service. A zero minimum selects DefaultMinimum.
func NewService(pool ledger.TxBeginner, store Store, wallets WalletReader, referrals ReferralCounter, taxes TaxSource, l *ledger.Ledger, minimum decimal.Decimal, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	if minimum.IsZero() {
		minimum = DefaultMinimum
	}
	return &service{
		pool: pool, store: store, wallets: wallets, referrals: referrals, taxes: taxes,
		ledger: l, minimum: minimum, log: log, now: time.Now,
	}
}

var _ Service = (*service)(nil)

// Create validates the request against the current balance and freezes tax
// and net amounts from the active tax percentage. No funds move until approval.
func (s *service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Withdrawal, error) {
	if !in.Method.Valid() {
		return nil, ErrInvalidMethod
	}
	account := strings.TrimSpace(in.Account)
	if account == "" {
		return nil, ErrAccountRequired
	}
	if in.Amount.LessThan(s.minimum) {
		return nil, ErrBelowMinimum
	}

	balance := decimal.Zero
	w, err := s.wallets.GetByUser(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load wallet: %w", err)
	default:
		balance = w.Balance
	}
	if balance.LessThan(in.Amount) {
		return nil, ErrInsufficientBalance
	}

	settled, err := s.store.HasSettled(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check previous withdrawals: %w", err)
	}
	if !settled {
		n, err := s.referrals.CountByReferrer(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("count referrals: %w", err)
		}
		if n < MinimumReferrals {
			return nil, ErrNotEnoughReferrals
		}
	}

	pct, err := s.taxes.GetActiveTaxPct(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tax setting: %w", err)
	}
	amount := in.Amount.Round(2)
	tax := amount.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	wd := &models.Withdrawal{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Method:    in.Method,
		Account:   account,
		Status:    models.WithdrawalPending,
		TaxAmount: tax,
		NetAmount: amount.Sub(tax),
	}
	if err := s.store.Create(ctx, wd); err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}
	s.log.Info("withdrawal requested", "user_id", userID, "amount", amount.String(), "tax", tax.String())
	return wd, nil
}

// Approve debits the wallet under its row lock and records the negative
// withdrawal transaction.
func (s *service) Approve(ctx context.Context, id, adminID uuid.UUID) (*models.Withdrawal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	wd, err := s.lock(ctx, tx, id, models.WithdrawalPending)
	if err != nil {
		return nil, err
	}
	wallet, err := s.ledger.OpenWallet(ctx, tx, wd.UserID)
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("Withdrawal via %s (tax %s, net %s)", wd.Method, wd.TaxAmount.StringFixed(2), wd.NetAmount.StringFixed(2))
	if err := s.ledger.Debit(ctx, tx, wallet, models.TxWithdrawal, wd.Amount, desc); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}
	if err := s.ledger.Save(ctx, tx, wallet); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	wd.Status = models.WithdrawalApproved
	wd.ApprovedBy = &adminID
	wd.ApprovalDate = &now
	if err := s.store.UpdateStatus(ctx, tx, wd); err != nil {
		return nil, fmt.Errorf("approve withdrawal: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("withdrawal approved", "withdrawal_id", wd.ID, "user_id", wd.UserID, "amount", wd.Amount.String())
	return wd, nil
}

// Reject closes a pending request. The balance is untouched since nothing
// was deducted at request time.
func (s *service) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.Withdrawal, error) {
	return s.transition(ctx, id, models.WithdrawalPending, func(wd *models.Withdrawal) {
		wd.Status = models.WithdrawalRejected
		wd.ApprovedBy = &adminID
		wd.RejectionReason = strings.TrimSpace(reason)
	})
}

func (s *service) Complete(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	return s.transition(ctx, id, models.WithdrawalApproved, func(wd *models.Withdrawal) {
		wd.Status = models.WithdrawalCompleted
	})
}

func (s *service) transition(ctx context.Context, id uuid.UUID, from models.WithdrawalStatus, apply func(*models.Withdrawal)) (*models.Withdrawal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	wd, err := s.lock(ctx, tx, id, from)
	if err != nil {
		return nil, err
	}
	apply(wd)
	if err := s.store.UpdateStatus(ctx, tx, wd); err != nil {
		return nil, fmt.Errorf("update withdrawal: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("withdrawal status changed", "withdrawal_id", wd.ID, "user_id", wd.UserID, "status", wd.Status)
	return wd, nil
}

func (s *service) lock(ctx context.Context, tx pgx.Tx, id uuid.UUID, want models.WithdrawalStatus) (*models.Withdrawal, error) {
	wd, err := s.store.GetByIDForUpdate(ctx, tx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if wd.Status != want {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, wd.Status)
	}
	return wd, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *service) ListPending(ctx context.Context) ([]*models.Withdrawal, error) {
	return s.store.ListByStatus(ctx, models.WithdrawalPending)
}
