package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func approvedAt(t time.Time) *Deposit {
	return &Deposit{Status: DepositApproved, ApprovedAt: &t}
}

func TestDeposit_DaysElapsedAndMaturity(t *testing.T) {
	approved := time.Date(2025, 5, 1, 22, 30, 0, 0, time.UTC)
	d := approvedAt(approved)

	cases := []struct {
		asOf      time.Time
		elapsed   int
		matured   bool
		remaining int
	}{
		{time.Date(2025, 5, 1, 23, 59, 0, 0, time.UTC), 0, false, 30},
		{time.Date(2025, 5, 2, 0, 1, 0, 0, time.UTC), 1, false, 29},
		{time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC), 29, false, 1},
		{time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), 30, true, 0},
		{time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 61, true, 0},
	}
	for _, tc := range cases {
		if got := d.DaysElapsed(tc.asOf); got != tc.elapsed {
			t.Errorf("DaysElapsed(%v) = %d, want %d", tc.asOf, got, tc.elapsed)
		}
		if got := d.Matured(tc.asOf, 30); got != tc.matured {
			t.Errorf("Matured(%v) = %v, want %v", tc.asOf, got, tc.matured)
		}
		if got := d.RemainingDays(tc.asOf, 30); got != tc.remaining {
			t.Errorf("RemainingDays(%v) = %d, want %d", tc.asOf, got, tc.remaining)
		}
	}
}

func TestDeposit_Unapproved(t *testing.T) {
	d := &Deposit{Status: DepositPending}
	now := time.Now()
	if d.DaysElapsed(now) != 0 {
		t.Error("pending deposit should have no elapsed days")
	}
	if d.RemainingDays(now, 45) != 45 {
		t.Error("pending deposit should report the full duration")
	}
}

func TestDateOf(t *testing.T) {
	pkt := time.FixedZone("PKT", 5*3600)
	got := DateOf(time.Date(2025, 5, 2, 3, 0, 0, 0, pkt))
	want := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOf = %v, want %v", got, want)
	}
}

func TestEarningType_Exhaustive(t *testing.T) {
	credits := map[EarningType]bool{
		EarningMining:      true,
		EarningROI:         true,
		EarningReferral:    true,
		EarningSignupBonus: true,
		EarningReinvest:    false,
	}
	for et, want := range credits {
		parsed, err := ParseEarningType(string(et))
		if err != nil || parsed != et {
			t.Errorf("ParseEarningType(%q) = %q, %v", et, parsed, err)
		}
		if got := et.CountsTowardBalance(); got != want {
			t.Errorf("%s.CountsTowardBalance() = %v, want %v", et, got, want)
		}
		if _, err := ParseTransactionType(string(et.TransactionType())); err != nil {
			t.Errorf("%s maps to unknown transaction type: %v", et, err)
		}
	}
	if _, err := ParseEarningType("bonus"); err == nil {
		t.Error("expected error for unknown earning type")
	}
}

func TestTransactionType_IsDebit(t *testing.T) {
	for _, tt := range []TransactionType{TxDeposit, TxMining, TxROI, TxReferral, TxReinvest} {
		if tt.IsDebit() {
			t.Errorf("%s should not be a debit", tt)
		}
	}
	for _, tt := range []TransactionType{TxWithdrawal, TxOrder} {
		if !tt.IsDebit() {
			t.Errorf("%s should be a debit", tt)
		}
	}
}

func TestIsDebit_PanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown transaction type")
		}
	}()
	TransactionType("gift").IsDebit()
}

func TestEnumsValid(t *testing.T) {
	if !AccountBanned.Valid() || AccountStatus("frozen").Valid() {
		t.Error("AccountStatus.Valid")
	}
	if !RoleAdmin.Valid() || Role("root").Valid() {
		t.Error("Role.Valid")
	}
	if !PaymentCOD.Valid() || PaymentMethod("paypal").Valid() {
		t.Error("PaymentMethod.Valid")
	}
	if !DepositRejected.Valid() || DepositStatus("completed").Valid() {
		t.Error("DepositStatus.Valid")
	}
	if !EarningSignupBonus.Valid() || EarningType("bonus").Valid() {
		t.Error("EarningType.Valid")
	}
}

func TestDailyEarning_InReferralBase(t *testing.T) {
	dep := uuid.New()
	cases := []struct {
		e    DailyEarning
		want bool
	}{
		{DailyEarning{EarningType: EarningMining, DepositID: &dep}, true},
		{DailyEarning{EarningType: EarningROI, DepositID: &dep}, true},
		{DailyEarning{EarningType: EarningReinvest, DepositID: &dep}, true},
		{DailyEarning{EarningType: EarningReferral}, true},
		{DailyEarning{EarningType: EarningReferral, DepositID: &dep}, false},
		{DailyEarning{EarningType: EarningSignupBonus}, false},
	}
	for _, tc := range cases {
		if got := tc.e.InReferralBase(); got != tc.want {
			t.Errorf("%s (deposit %v): got %v, want %v", tc.e.EarningType, tc.e.DepositID != nil, got, tc.want)
		}
	}
}

func TestWithdrawal_PaidOut(t *testing.T) {
	net := decimal.RequireFromString("950")
	for _, st := range []WithdrawalStatus{WithdrawalPending, WithdrawalApproved, WithdrawalRejected, WithdrawalCompleted} {
		w := &Withdrawal{Status: st, Amount: decimal.RequireFromString("1000"), TaxAmount: decimal.RequireFromString("50"), NetAmount: net}
		want := decimal.Zero
		if st == WithdrawalCompleted {
			want = net
		}
		if got := w.PaidOut(); !got.Equal(want) {
			t.Errorf("%s: PaidOut = %s, want %s", st, got, want)
		}
	}
}
