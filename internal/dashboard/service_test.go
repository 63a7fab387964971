package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minerledger/backend/internal/middleware"
	"github.com/minerledger/backend/internal/models"
	"github.com/minerledger/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeWallets map[uuid.UUID]*models.Wallet

func (f fakeWallets) GetByUser(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	w, ok := f[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return w, nil
}

type fakeDeposits struct {
	active   []models.ActiveDeposit
	invested decimal.Decimal
}

func (f *fakeDeposits) ActivePackages(_ context.Context, _ uuid.UUID, asOf time.Time) ([]models.ActiveDeposit, error) {
	var out []models.ActiveDeposit
	for _, ad := range f.active {
		if !ad.Deposit.Matured(asOf, ad.Package.DurationDays) {
			out = append(out, ad)
		}
	}
	return out, nil
}

func (f *fakeDeposits) TotalInvested(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return f.invested, nil
}

type fakeWithdrawals struct{ rows []*models.Withdrawal }

func (f fakeWithdrawals) TotalWithdrawn(_ context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, w := range f.rows {
		if w.UserID == userID {
			total = total.Add(w.PaidOut())
		}
	}
	return total, nil
}

type fakeTeam struct {
	levels  []models.TeamLevel
	members []*models.TeamMember
}

func (f *fakeTeam) CountByReferrer(context.Context, uuid.UUID) (int, error) { return len(f.members), nil }
func (f *fakeTeam) TeamStats(context.Context, uuid.UUID) ([]models.TeamLevel, error) {
	return f.levels, nil
}
func (f *fakeTeam) ListTeam(context.Context, uuid.UUID) ([]*models.TeamMember, error) {
	return f.members, nil
}

type fakeEarnings struct {
	entries []*models.DailyEarning
}

func (f *fakeEarnings) SumForDay(_ context.Context, userID uuid.UUID, date time.Time, types ...models.EarningType) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range f.entries {
		for _, t := range types {
			if e.UserID == userID && e.EarningType == t && e.EarnedDate.Equal(models.DateOf(date)) {
				sum = sum.Add(e.Amount)
			}
		}
	}
	return sum, nil
}

func (f *fakeEarnings) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*models.DailyEarning, error) {
	var out []*models.DailyEarning
	for _, e := range f.entries {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type noTransactions struct{}

func (noTransactions) ListByUser(context.Context, uuid.UUID, int) ([]*models.Transaction, error) {
	return nil, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGetDashboardStats(t *testing.T) {
	user := uuid.New()
	asOf := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
	day := models.DateOf(asOf)
	fresh := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	old := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	wallets := fakeWallets{user: {UserID: user, Balance: dec("1500"), MiningIncome: dec("300"), ROIEarnings: dec("50"), ReferralEarnings: dec("25"), SignupBonus: dec("100")}}
	deposits := &fakeDeposits{
		invested: dec("6000"),
		active: []models.ActiveDeposit{
			{Deposit: models.Deposit{ID: uuid.New(), Amount: dec("5000"), Status: models.DepositApproved, ApprovedAt: &fresh}, Package: models.MiningPackage{Name: "Gold", DailyEarning: dec("100"), DurationDays: 30}},
			{Deposit: models.Deposit{ID: uuid.New(), Amount: dec("1000"), Status: models.DepositApproved, ApprovedAt: &old}, Package: models.MiningPackage{Name: "Silver", DailyEarning: dec("20"), DurationDays: 30}},
		},
	}
	earnings := &fakeEarnings{entries: []*models.DailyEarning{
		{UserID: user, EarningType: models.EarningMining, Amount: dec("100"), EarnedDate: day},
		{UserID: user, EarningType: models.EarningROI, Amount: dec("15"), EarnedDate: day},
		{UserID: user, EarningType: models.EarningReinvest, Amount: dec("5"), EarnedDate: day},
		{UserID: user, EarningType: models.EarningMining, Amount: dec("100"), EarnedDate: day.AddDate(0, 0, -1)},
	}}
	team := &fakeTeam{members: []*models.TeamMember{{UserID: uuid.New()}, {UserID: uuid.New()}}}
	withdrawals := fakeWithdrawals{rows: []*models.Withdrawal{
		{UserID: user, Status: models.WithdrawalCompleted, Amount: dec("1000"), TaxAmount: dec("50"), NetAmount: dec("950")},
		{UserID: user, Status: models.WithdrawalCompleted, Amount: dec("100"), TaxAmount: dec("5"), NetAmount: dec("95")},
		{UserID: user, Status: models.WithdrawalApproved, Amount: dec("400"), TaxAmount: dec("20"), NetAmount: dec("380")},
		{UserID: user, Status: models.WithdrawalPending, Amount: dec("200"), TaxAmount: dec("10"), NetAmount: dec("190")},
	}}
	svc := NewService(wallets, deposits, withdrawals, team, earnings, noTransactions{})

	stats, err := svc.GetDashboardStats(context.Background(), user, asOf)
	if err != nil {
		t.Fatalf("GetDashboardStats: %v", err)
	}
	if !stats.Balance.Equal(dec("1500")) || !stats.TotalEarnings.Equal(dec("475")) {
		t.Errorf("balance/total = %s/%s", stats.Balance, stats.TotalEarnings)
	}
	if len(stats.ActivePackages) != 1 || stats.ActivePackages[0].PackageName != "Gold" || stats.ActivePackages[0].RemainingDays != 20 {
		t.Errorf("active packages: %+v", stats.ActivePackages)
	}
	if !stats.TodayEarnings.Equal(dec("115")) {
		t.Errorf("today's earnings = %s, want 115 (reinvest excluded)", stats.TodayEarnings)
	}
	if stats.ReferralCount != 2 || !stats.TotalInvested.Equal(dec("6000")) || !stats.TotalWithdrawn.Equal(dec("1045")) {
		t.Errorf("unexpected aggregates: %+v", stats)
	}
}

func TestWallet_EmptyWhenMissing(t *testing.T) {
	svc := NewService(fakeWallets{}, &fakeDeposits{}, fakeWithdrawals{}, &fakeTeam{}, &fakeEarnings{}, noTransactions{})
	user := uuid.New()
	w, err := svc.Wallet(context.Background(), user)
	if err != nil || w.UserID != user || !w.Balance.IsZero() {
		t.Errorf("Wallet = %+v, %v", w, err)
	}
}

func TestHandlerGetTeam_EmptyMembers(t *testing.T) {
	team := &fakeTeam{levels: []models.TeamLevel{{Level: 1}, {Level: 2}, {Level: 3}}}
	h := NewHandler(NewService(fakeWallets{}, &fakeDeposits{}, fakeWithdrawals{}, team, &fakeEarnings{}, noTransactions{}), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/referrals/team", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), uuid.New(), models.RoleMember))
	rec := httptest.NewRecorder()
	h.GetTeam(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Levels  []models.TeamLevel `json:"levels"`
		Members []json.RawMessage  `json:"members"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Levels) != 3 || got.Members == nil {
		t.Errorf("unexpected body: %+v", got)
	}
}
