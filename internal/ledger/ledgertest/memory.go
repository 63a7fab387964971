// Package ledgertest provides an in-memory ledger backend for tests of the
// packages that post through ledger.Ledger.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
)

// NoopTx satisfies pgx.Tx; only Commit and Rollback are called.
type NoopTx struct{}

func (NoopTx) Begin(context.Context) (pgx.Tx, error) { return NoopTx{}, nil }
func (NoopTx) Commit(context.Context) error          { return nil }
func (NoopTx) Rollback(context.Context) error        { return nil }
func (NoopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (NoopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (NoopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (NoopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (NoopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (NoopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (NoopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (NoopTx) Conn() *pgx.Conn { return nil }

// Pool hands out NoopTx values.
type Pool struct{}

func (Pool) Begin(context.Context) (pgx.Tx, error)                  { return NoopTx{}, nil }
func (Pool) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) { return NoopTx{}, nil }

type entryKey struct {
	user      uuid.UUID
	typ       models.EarningType
	date      time.Time
	deposit   uuid.UUID
	noDeposit bool
}

func keyOf(e *models.DailyEarning) entryKey {
	k := entryKey{user: e.UserID, typ: e.EarningType, date: models.DateOf(e.EarnedDate)}
	if e.DepositID == nil {
		k.noDeposit = true
	} else {
		k.deposit = *e.DepositID
	}
	return k
}

// Store implements ledger.EntryStore, ledger.WalletStore and
// ledger.AuditStore over maps, enforcing the ledger uniqueness key.
type Store struct {
	mu      sync.Mutex
	entries []*models.DailyEarning
	keys    map[entryKey]bool
	wallets map[uuid.UUID]*models.Wallet
	txs     []*models.Transaction

	// FailInsertFor makes InsertIfAbsent fail for the given user.
	FailInsertFor map[uuid.UUID]error
}

func NewStore() *Store {
	return &Store{
		keys:          make(map[entryKey]bool),
		wallets:       make(map[uuid.UUID]*models.Wallet),
		FailInsertFor: make(map[uuid.UUID]error),
	}
}

// SetWallet seeds a wallet with the given balance.
func (s *Store) SetWallet(userID uuid.UUID, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[userID] = &models.Wallet{ID: uuid.New(), UserID: userID, Balance: balance}
}

func (s *Store) InsertIfAbsent(_ context.Context, _ pgx.Tx, e *models.DailyEarning) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailInsertFor[e.UserID]; err != nil {
		return false, err
	}
	k := keyOf(e)
	if s.keys[k] {
		return false, nil
	}
	s.keys[k] = true
	cp := *e
	cp.CreatedAt = time.Now()
	s.entries = append(s.entries, &cp)
	return true, nil
}

func (s *Store) CreditTotals(context.Context, pgx.Tx) (map[uuid.UUID]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]decimal.Decimal)
	for _, e := range s.entries {
		if e.EarningType.CountsTowardBalance() {
			out[e.UserID] = out[e.UserID].Add(e.Amount)
		}
	}
	return out, nil
}

// SumForDay matches repository.EarningRepo.SumForDay.
func (s *Store) SumForDay(_ context.Context, userID uuid.UUID, date time.Time, types ...models.EarningType) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[models.EarningType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	day := models.DateOf(date)
	sum := decimal.Zero
	for _, e := range s.entries {
		if e.UserID == userID && want[e.EarningType] && e.EarnedDate.Equal(day) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// SumReferralBase matches repository.EarningRepo.SumReferralBase.
func (s *Store) SumReferralBase(_ context.Context, userID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := models.DateOf(date)
	sum := decimal.Zero
	for _, e := range s.entries {
		if e.UserID == userID && e.EarnedDate.Equal(day) && e.InReferralBase() {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (s *Store) Ensure(_ context.Context, _ pgx.Tx, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[userID]; !ok {
		s.wallets[userID] = &models.Wallet{ID: uuid.New(), UserID: userID}
	}
	return nil
}

func (s *Store) GetForUpdate(_ context.Context, _ pgx.Tx, userID uuid.UUID) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return nil, fmt.Errorf("wallet for %s not found", userID)
	}
	cp := *w
	return &cp, nil
}

func (s *Store) Update(_ context.Context, _ pgx.Tx, w *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.UserID]; !ok {
		return fmt.Errorf("wallet for %s not found", w.UserID)
	}
	cp := *w
	s.wallets[w.UserID] = &cp
	return nil
}

func (s *Store) ListTx(context.Context, pgx.Tx) ([]*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.txs = append(s.txs, &cp)
	return nil
}

func (s *Store) DebitTotals(context.Context, pgx.Tx) (map[uuid.UUID]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]decimal.Decimal)
	for _, t := range s.txs {
		if t.TransactionType.IsDebit() && t.Status == models.TxCompleted {
			out[t.UserID] = out[t.UserID].Add(t.Amount)
		}
	}
	return out, nil
}

// Wallet returns a copy of the user's wallet, or nil.
func (s *Store) Wallet(userID uuid.UUID) *models.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return nil
	}
	cp := *w
	return &cp
}

// Entries returns the user's entries of type t in insertion order.
func (s *Store) Entries(userID uuid.UUID, t models.EarningType) []*models.DailyEarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DailyEarning
	for _, e := range s.entries {
		if e.UserID == userID && e.EarningType == t {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// AllEntries returns every entry for the user.
func (s *Store) AllEntries(userID uuid.UUID) []*models.DailyEarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DailyEarning
	for _, e := range s.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// Transactions returns the user's audit transactions.
func (s *Store) Transactions(userID uuid.UUID) []*models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Transaction
	for _, t := range s.txs {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

// EntryCount is the total number of ledger rows.
func (s *Store) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
