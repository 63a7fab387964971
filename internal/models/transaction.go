package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxMining     TransactionType = "mining"
	TxROI        TransactionType = "roi"
	TxReferral   TransactionType = "referral"
	TxWithdrawal TransactionType = "withdrawal"
	TxReinvest   TransactionType = "reinvest"
	TxOrder      TransactionType = "order"
)

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	switch t {
	case TxDeposit, TxMining, TxROI, TxReferral, TxWithdrawal, TxReinvest, TxOrder:
		return t, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// IsDebit reports whether transactions of this type reduce the wallet balance.
func (t TransactionType) IsDebit() bool {
	switch t {
	case TxWithdrawal, TxOrder:
		return true
	case TxDeposit, TxMining, TxROI, TxReferral, TxReinvest:
		return false
	}
	panic(fmt.Sprintf("unhandled transaction type %q", string(t)))
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is the human-readable audit trail. Amount is signed.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	TransactionType TransactionType   `json:"transaction_type"`
	Amount          decimal.Decimal   `json:"amount"`
	Status          TransactionStatus `json:"status"`
	Description     string            `json:"description"`
	CreatedAt       time.Time         `json:"created_at"`
}
