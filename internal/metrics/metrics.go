package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Histogram of ledger operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_settlements_total",
			Help: "Settled deposit and withdrawal requests",
		},
		[]string{"kind", "decision"},
	)

	CommissionPaidTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_referral_commission_paid_total",
			Help: "Primary currency paid out as referral commission",
		},
	)

	YieldCreditedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_yield_credited_total",
			Help: "Yield credited by currency",
		},
		[]string{"currency"},
	)

	PendingTransactions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_pending_transactions",
			Help: "Requests waiting in the approval queue",
		},
		[]string{"kind"},
	)

	PendingAmount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_pending_amount",
			Help: "Primary currency waiting in the approval queue",
		},
		[]string{"kind"},
	)

	PriceQuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricefeed_quotes_total",
			Help: "Price quotes served by source",
		},
		[]string{"symbol", "source"},
	)

	AssetPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pricefeed_price_usd",
			Help: "Last observed USD price",
		},
		[]string{"symbol", "source"},
	)

	MirrorFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_mirror_failures_total",
			Help: "Journal batches that could not be mirrored",
		},
	)
)

// ObserveOperation records the latency and outcome of one ledger operation.
func ObserveOperation(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// AddDecimal adds a non-negative decimal amount to a counter.
func AddDecimal(c prometheus.Counter, amount decimal.Decimal) {
	if amount.IsPositive() {
		c.Add(amount.InexactFloat64())
	}
}
