// Package ledger posts earning entries and debits against a user's wallet.
// The daily_earnings table is the source of truth; the wallet row is a cache
// of its fold, updated in the same pgx transaction as every insert.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/metrics"
	"github.com/minerledger/backend/internal/models"
)

// ErrInsufficientFunds is returned when a debit exceeds the wallet balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownEarningType is returned for an entry whose type the ledger
// cannot fold.
var ErrUnknownEarningType = errors.New("unknown earning type")

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SnapshotBeginner opens transactions with explicit isolation options.
type SnapshotBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type EntryStore interface {
	InsertIfAbsent(ctx context.Context, tx pgx.Tx, e *models.DailyEarning) (bool, error)
	CreditTotals(ctx context.Context, tx pgx.Tx) (map[uuid.UUID]decimal.Decimal, error)
}

type WalletStore interface {
	Ensure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.Wallet, error)
	Update(ctx context.Context, tx pgx.Tx, w *models.Wallet) error
	ListTx(ctx context.Context, tx pgx.Tx) ([]*models.Wallet, error)
}

type AuditStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	DebitTotals(ctx context.Context, tx pgx.Tx) (map[uuid.UUID]decimal.Decimal, error)
}

type Ledger struct {
	pool    SnapshotBeginner
	entries EntryStore
	wallets WalletStore
	audit   AuditStore
	log     *slog.Logger
}

// New builds a ledger. pool is only used for the reconciliation snapshot.
func New(pool SnapshotBeginner, entries EntryStore, wallets WalletStore, audit AuditStore, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{pool: pool, entries: entries, wallets: wallets, audit: audit, log: log}
}

// Apply folds one ledger entry into the wallet's cached totals. The wallet
// is left untouched for an unknown type.
func Apply(w *models.Wallet, e *models.DailyEarning) error {
	switch e.EarningType {
	case models.EarningMining:
		w.MiningIncome = w.MiningIncome.Add(e.Amount)
	case models.EarningROI:
		w.ROIEarnings = w.ROIEarnings.Add(e.Amount)
	case models.EarningReferral:
		w.ReferralEarnings = w.ReferralEarnings.Add(e.Amount)
	case models.EarningSignupBonus:
		w.SignupBonus = w.SignupBonus.Add(e.Amount)
	case models.EarningReinvest:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownEarningType, string(e.EarningType))
	}
	w.Balance = w.Balance.Add(e.Amount)
	return nil
}

// OpenWallet locks the user's wallet row, creating an empty wallet first if
// the user has none. Call within a transaction.
func (l *Ledger) OpenWallet(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.Wallet, error) {
	if err := l.wallets.Ensure(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}
	w, err := l.wallets.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return w, nil
}

// Post inserts e unless its idempotence key already exists. When written,
// the entry is folded into w and an audit transaction is appended. The
// caller persists w with Save before committing.
func (l *Ledger) Post(ctx context.Context, tx pgx.Tx, w *models.Wallet, e *models.DailyEarning, description string) (bool, error) {
	if e.UserID != w.UserID {
		return false, fmt.Errorf("entry user %s does not own wallet %s", e.UserID, w.UserID)
	}
	if !e.EarningType.Valid() {
		return false, fmt.Errorf("post entry: %w %q", ErrUnknownEarningType, string(e.EarningType))
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.EarnedDate = models.DateOf(e.EarnedDate)
	inserted, err := l.entries.InsertIfAbsent(ctx, tx, e)
	if err != nil {
		return false, fmt.Errorf("insert %s entry: %w", e.EarningType, err)
	}
	if !inserted {
		l.log.Debug("ledger entry already posted", "user_id", e.UserID, "earning_type", e.EarningType, "date", e.EarnedDate.Format("2006-01-02"))
		return false, nil
	}
	if err := Apply(w, e); err != nil {
		return false, err
	}
	if err := l.audit.CreateTx(ctx, tx, &models.Transaction{
		ID:              uuid.New(),
		UserID:          e.UserID,
		TransactionType: e.EarningType.TransactionType(),
		Amount:          e.Amount,
		Status:          models.TxCompleted,
		Description:     description,
	}); err != nil {
		return false, fmt.Errorf("audit %s entry: %w", e.EarningType, err)
	}
	metrics.LedgerEntriesPosted.WithLabelValues(string(e.EarningType)).Inc()
	return true, nil
}

// Debit subtracts amount from the wallet balance and appends a negative
// audit transaction of a debit type.
func (l *Ledger) Debit(ctx context.Context, tx pgx.Tx, w *models.Wallet, txType models.TransactionType, amount decimal.Decimal, description string) error {
	if !txType.IsDebit() {
		return fmt.Errorf("transaction type %q is not a debit", txType)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("debit amount must be positive, got %s", amount)
	}
	if w.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	return l.audit.CreateTx(ctx, tx, &models.Transaction{
		ID:              uuid.New(),
		UserID:          w.UserID,
		TransactionType: txType,
		Amount:          amount.Neg(),
		Status:          models.TxCompleted,
		Description:     description,
	})
}

// Record appends an audit transaction that does not move the balance.
func (l *Ledger) Record(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return l.audit.CreateTx(ctx, tx, t)
}

// Save persists the wallet's cached totals.
func (l *Ledger) Save(ctx context.Context, tx pgx.Tx, w *models.Wallet) error {
	if err := l.wallets.Update(ctx, tx, w); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	return nil
}
