// Package dashboard serves read-only aggregates of a user's wallet, packages,
// earnings and referral team.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/models"
	"github.com/minerledger/backend/internal/repository"
)

// todayTypes are the entry types summed into today's earnings.
var todayTypes = []models.EarningType{models.EarningMining, models.EarningROI, models.EarningReferral}

type WalletReader interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
}

type DepositReader interface {
	ActivePackages(ctx context.Context, userID uuid.UUID, asOf time.Time) ([]models.ActiveDeposit, error)
	TotalInvested(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// WithdrawalReader totals Withdrawal.PaidOut across a user's withdrawals.
type WithdrawalReader interface {
	TotalWithdrawn(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type TeamReader interface {
	CountByReferrer(ctx context.Context, userID uuid.UUID) (int, error)
	TeamStats(ctx context.Context, userID uuid.UUID) ([]models.TeamLevel, error)
	ListTeam(ctx context.Context, userID uuid.UUID) ([]*models.TeamMember, error)
}

type EarningsReader interface {
	SumForDay(ctx context.Context, userID uuid.UUID, date time.Time, types ...models.EarningType) (decimal.Decimal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.DailyEarning, error)
}

type TransactionReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error)
}

// ActivePackage is one non-matured deposit as shown on the dashboard.
type ActivePackage struct {
	DepositID     uuid.UUID       `json:"deposit_id"`
	PackageName   string          `json:"package_name"`
	Amount        decimal.Decimal `json:"amount"`
	DailyEarning  decimal.Decimal `json:"daily_earning"`
	ApprovedAt    *time.Time      `json:"approved_at"`
	RemainingDays int             `json:"remaining_days"`
}

type Stats struct {
	Balance          decimal.Decimal `json:"balance"`
	MiningIncome     decimal.Decimal `json:"mining_income"`
	ROIEarnings      decimal.Decimal `json:"roi_earnings"`
	ReferralEarnings decimal.Decimal `json:"referral_earnings"`
	SignupBonus      decimal.Decimal `json:"signup_bonus"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	ActivePackages   []ActivePackage `json:"active_packages"`
	TotalInvested    decimal.Decimal `json:"total_invested"`
	TotalWithdrawn   decimal.Decimal `json:"total_withdrawn"`
	ReferralCount    int             `json:"referral_count"`
	TodayEarnings    decimal.Decimal `json:"today_earnings"`
	LastEarningDate  *time.Time      `json:"last_earning_date,omitempty"`
}

type Team struct {
	Levels  []models.TeamLevel   `json:"levels"`
	Members []*models.TeamMember `json:"members"`
}

type Service struct {
	wallets      WalletReader
	deposits     DepositReader
	withdrawals  WithdrawalReader
	team         TeamReader
	earnings     EarningsReader
	transactions TransactionReader
}

func NewService(wallets WalletReader, deposits DepositReader, withdrawals WithdrawalReader, team TeamReader, earnings EarningsReader, transactions TransactionReader) *Service {
	return &Service{wallets: wallets, deposits: deposits, withdrawals: withdrawals, team: team, earnings: earnings, transactions: transactions}
}

// Wallet returns the user's wallet, or an empty one if none exists yet.
func (s *Service) Wallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	w, err := s.wallets.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Wallet{UserID: userID}, nil
	}
	return w, err
}

// GetDashboardStats aggregates the user's figures as of asOf.
func (s *Service) GetDashboardStats(ctx context.Context, userID uuid.UUID, asOf time.Time) (*Stats, error) {
	w, err := s.Wallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	active, err := s.deposits.ActivePackages(ctx, userID, asOf)
	if err != nil {
		return nil, fmt.Errorf("load active packages: %w", err)
	}
	invested, err := s.deposits.TotalInvested(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum deposits: %w", err)
	}
	withdrawn, err := s.withdrawals.TotalWithdrawn(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum withdrawals: %w", err)
	}
	referrals, err := s.team.CountByReferrer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}
	today, err := s.earnings.SumForDay(ctx, userID, asOf, todayTypes...)
	if err != nil {
		return nil, fmt.Errorf("sum today's earnings: %w", err)
	}

	pkgs := make([]ActivePackage, 0, len(active))
	for _, ad := range active {
		pkgs = append(pkgs, ActivePackage{
			DepositID:     ad.Deposit.ID,
			PackageName:   ad.Package.Name,
			Amount:        ad.Deposit.Amount,
			DailyEarning:  ad.Package.DailyEarning,
			ApprovedAt:    ad.Deposit.ApprovedAt,
			RemainingDays: ad.Deposit.RemainingDays(asOf, ad.Package.DurationDays),
		})
	}
	return &Stats{
		Balance:          w.Balance,
		MiningIncome:     w.MiningIncome,
		ROIEarnings:      w.ROIEarnings,
		ReferralEarnings: w.ReferralEarnings,
		SignupBonus:      w.SignupBonus,
		TotalEarnings:    w.TotalEarnings(),
		ActivePackages:   pkgs,
		TotalInvested:    invested,
		TotalWithdrawn:   withdrawn,
		ReferralCount:    referrals,
		TodayEarnings:    today,
		LastEarningDate:  w.LastEarningDate,
	}, nil
}

func (s *Service) Earnings(ctx context.Context, userID uuid.UUID, limit int) ([]*models.DailyEarning, error) {
	return s.earnings.ListByUser(ctx, userID, limit)
}

func (s *Service) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	return s.transactions.ListByUser(ctx, userID, limit)
}

func (s *Service) Team(ctx context.Context, userID uuid.UUID) (*Team, error) {
	levels, err := s.team.TeamStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("team stats: %w", err)
	}
	members, err := s.team.ListTeam(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	if members == nil {
		members = []*models.TeamMember{}
	}
	return &Team{Levels: levels, Members: members}, nil
}
