// Package export renders admin reports as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/minerledger/backend/internal/models"
)

const (
	ledgerSheet = "Ledger"
	usersSheet  = "Users"
	dateLayout  = "2006-01-02"
)

var (
	ledgerHeaders = []string{"Entry ID", "User ID", "Type", "Amount", "Deposit ID", "Earned Date", "Created At"}
	usersHeaders  = []string{"User ID", "Email", "Name", "Role", "Status", "Referral Code", "Balance", "Mining", "ROI", "Referral", "Signup Bonus", "Joined"}
)

// UserRow is one line of the users report.
type UserRow struct {
	User   *models.User
	Wallet *models.Wallet
}

func newWorkbook(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func money(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func finish(f *excelize.File) ([]byte, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// LedgerWorkbook lists ledger entries one per row. Amounts are written as
// numbers rounded to two places.
func LedgerWorkbook(entries []*models.DailyEarning) ([]byte, error) {
	f, err := newWorkbook(ledgerSheet, ledgerHeaders)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		deposit := ""
		if e.DepositID != nil {
			deposit = e.DepositID.String()
		}
		if err := setRow(f, ledgerSheet, i+2,
			e.ID.String(), e.UserID.String(), string(e.EarningType), money(e.Amount), deposit,
			e.EarnedDate.Format(dateLayout), e.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		); err != nil {
			f.Close()
			return nil, err
		}
	}
	return finish(f)
}

// UsersWorkbook lists users with their wallet totals. A nil wallet renders zeros.
func UsersWorkbook(rows []UserRow) ([]byte, error) {
	f, err := newWorkbook(usersSheet, usersHeaders)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		w := r.Wallet
		if w == nil {
			w = &models.Wallet{}
		}
		if err := setRow(f, usersSheet, i+2,
			r.User.ID.String(), r.User.Email, r.User.DisplayName, string(r.User.Role), string(r.User.AccountStatus), r.User.ReferralCode,
			money(w.Balance), money(w.MiningIncome), money(w.ROIEarnings),
			money(w.ReferralEarnings), money(w.SignupBonus),
			r.User.CreatedAt.UTC().Format(dateLayout),
		); err != nil {
			f.Close()
			return nil, err
		}
	}
	return finish(f)
}
