package execution

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/minerledger/backend/internal/accrual"
	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/referral"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type recorder struct {
	mu    sync.Mutex
	calls []string
	dates []time.Time
}

func (r *recorder) add(step string, d time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, step)
	r.dates = append(r.dates, d)
}

type fakeAccruer struct {
	rec *recorder
	err error
}

func (f *fakeAccruer) RunDailyAccrual(_ context.Context, asOf time.Time) (*accrual.Report, error) {
	f.rec.add("accrual", asOf)
	if f.err != nil {
		return nil, f.err
	}
	return &accrual.Report{Date: asOf, Credited: 2}, nil
}

type fakeReferrals struct{ rec *recorder }

func (f *fakeReferrals) ProcessReferralEarnings(_ context.Context, asOf time.Time) (*referral.DailyReport, error) {
	f.rec.add("referral", asOf)
	return &referral.DailyReport{Date: asOf, Credited: 1}, nil
}

type fakeReconciler struct {
	rec   *recorder
	drift []ledger.Drift
	err   error
}

func (f *fakeReconciler) Reconcile(context.Context) ([]ledger.Drift, error) {
	f.rec.add("reconcile", time.Time{})
	return f.drift, f.err
}

func newBatch(accErr, recErr error) (*Batch, *recorder) {
	rec := &recorder{}
	return NewBatch(&fakeAccruer{rec: rec, err: accErr}, &fakeReferrals{rec: rec}, &fakeReconciler{rec: rec, err: recErr}, nil), rec
}

// ---------------------------------------------------------------------------
// Batch
// ---------------------------------------------------------------------------

func TestBatchRun_Order(t *testing.T) {
	b, rec := newBatch(nil, nil)
	asOf := time.Date(2025, 5, 1, 23, 59, 0, 0, time.UTC)
	res, err := b.Run(context.Background(), asOf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"accrual", "referral", "reconcile"}
	if len(rec.calls) != 3 {
		t.Fatalf("calls = %v", rec.calls)
	}
	for i, step := range want {
		if rec.calls[i] != step {
			t.Errorf("step %d = %s, want %s", i, rec.calls[i], step)
		}
	}
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	if !rec.dates[0].Equal(day) || !res.Date.Equal(day) {
		t.Errorf("batch should run on the calendar day, got %v", rec.dates[0])
	}
}

func TestBatchRun_AccrualErrorStops(t *testing.T) {
	b, rec := newBatch(errors.New("db down"), nil)
	if _, err := b.Run(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.calls) != 1 {
		t.Errorf("referral and reconcile must not run after a failed accrual: %v", rec.calls)
	}
}

func TestBatchRun_ReconcileErrorIsNotFatal(t *testing.T) {
	b, _ := newBatch(nil, errors.New("timeout"))
	if _, err := b.Run(context.Background(), time.Now()); err != nil {
		t.Errorf("reconcile failure should not fail the batch: %v", err)
	}
}

func TestBatchAccrue_SkipsReconcile(t *testing.T) {
	b, rec := newBatch(nil, nil)
	asOf := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	res, err := b.Accrue(context.Background(), asOf)
	if err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	if len(rec.calls) != 2 || rec.calls[0] != "accrual" || rec.calls[1] != "referral" {
		t.Errorf("calls = %v, want accrual then referral", rec.calls)
	}
	if !res.Date.Equal(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)) || res.Drift != nil {
		t.Errorf("unexpected result: %+v", res)
	}
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

func job(date string) *river.Job[DailyAccrualArgs] {
	return &river.Job[DailyAccrualArgs]{JobRow: &rivertype.JobRow{ID: 1, Kind: "daily_accrual"}, Args: DailyAccrualArgs{Date: date}}
}

func TestWorker_RunsBatchForDate(t *testing.T) {
	b, rec := newBatch(nil, nil)
	w := NewDailyAccrualWorker(b)
	if err := w.Work(context.Background(), job("2025-05-02")); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if !rec.dates[0].Equal(time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ran for %v", rec.dates[0])
	}
}

func TestWorker_InvalidDateCancels(t *testing.T) {
	b, rec := newBatch(nil, nil)
	if err := NewDailyAccrualWorker(b).Work(context.Background(), job("05/02/2025")); err == nil {
		t.Fatal("expected cancel error")
	}
	if len(rec.calls) != 0 {
		t.Error("batch must not run for an invalid date")
	}
}

func TestDailyAccrualArgs_UniqueByDate(t *testing.T) {
	opts := DailyAccrualArgs{}.InsertOpts()
	if !opts.UniqueOpts.ByArgs {
		t.Error("daily accrual jobs must be unique by args")
	}
	karachi := time.FixedZone("PKT", 5*3600)
	late := time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC)
	if got := ArgsFor(late, karachi).Date; got != "2025-05-02" {
		t.Errorf("ArgsFor = %s, want next local day", got)
	}
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

func TestHandlerRunAccrual(t *testing.T) {
	b, rec := newBatch(nil, nil)
	h := NewHandler(b, &fakeReconciler{rec: rec}, nil)

	rr := httptest.NewRecorder()
	h.RunAccrual(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/accrual/run?date=2025-04-30", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !rec.dates[0].Equal(time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ran for %v", rec.dates[0])
	}

	rr = httptest.NewRecorder()
	h.RunAccrual(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/accrual/run?date=yesterday", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", rr.Code)
	}
}
