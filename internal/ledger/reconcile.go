package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/metrics"
	"github.com/minerledger/backend/internal/models"
)

// Drift is a wallet whose cached balance disagrees with the ledger fold.
type Drift struct {
	UserID        uuid.UUID       `json:"user_id"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Delta         decimal.Decimal `json:"delta"`
}

// Fold computes a balance from ledger entries and debit transactions.
func Fold(entries []*models.DailyEarning, txs []*models.Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, e := range entries {
		if e.EarningType.CountsTowardBalance() {
			balance = balance.Add(e.Amount)
		}
	}
	for _, t := range txs {
		if t.TransactionType.IsDebit() && t.Status == models.TxCompleted {
			balance = balance.Add(t.Amount)
		}
	}
	return balance
}

// SnapshotOptions is the isolation Reconcile reads under: every read sees
// the same committed state.
var SnapshotOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// Reconcile recomputes every balance from the ledger and reports wallets
// that drifted. Wallets are never rewritten here.
func (l *Ledger) Reconcile(ctx context.Context) ([]Drift, error) {
	tx, err := l.pool.BeginTx(ctx, SnapshotOptions)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	credits, err := l.entries.CreditTotals(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("credit totals: %w", err)
	}
	debits, err := l.audit.DebitTotals(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("debit totals: %w", err)
	}
	wallets, err := l.wallets.ListTx(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	var drifts []Drift
	for _, w := range wallets {
		expected := credits[w.UserID].Add(debits[w.UserID])
		if w.Balance.Equal(expected) {
			continue
		}
		d := Drift{
			UserID:        w.UserID,
			WalletBalance: w.Balance,
			LedgerBalance: expected,
			Delta:         w.Balance.Sub(expected),
		}
		l.log.Warn("wallet balance drifted from ledger", "user_id", d.UserID, "wallet_balance", d.WalletBalance.String(), "ledger_balance", d.LedgerBalance.String(), "delta", d.Delta.String())
		drifts = append(drifts, d)
	}
	metrics.ReconcileDriftUsers.Set(float64(len(drifts)))
	return drifts, nil
}
