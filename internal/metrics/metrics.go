package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	LedgerEntriesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_posted_total",
			Help: "Ledger entries written, by earning type",
		},
		[]string{"earning_type"},
	)

	AccrualDeposits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accrual_deposits_total",
			Help: "Deposits visited by the daily accrual run, by outcome",
		},
		[]string{"outcome"},
	)

	AccrualRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "accrual_run_duration_seconds",
			Help:    "Wall time of a daily accrual run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	ReferralCommissionSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_commission_skipped_total",
			Help: "Daily referral commissions not posted because the referrer was already credited that day",
		},
	)

	ReconcileDriftUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallet_reconcile_drift_users",
			Help: "Wallets whose balance differs from the ledger fold at the last reconciliation",
		},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument counts requests and observes latency for next.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		ResponseTimeHistogram.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
