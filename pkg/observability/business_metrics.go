package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Settlement lifecycle metrics
	settlementTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transitions_total",
		Help: "Total settlement status transitions",
	}, []string{
		"shop_id",
		"transition", // submitted, approved, rejected, locked
	})

	settlementSubmitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_submit_duration_seconds",
		Help:    "Time to process a settlement submission end-to-end",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{
		"shop_id",
		"outcome", // ok, conflict, error
	})

	// Variance metrics
	varianceRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "variance_records_total",
		Help: "Total variance records created at submission",
	}, []string{
		"shop_id",
		"category",      // STOCK, CASH, UPI
		"variance_type", // POSITIVE, NEGATIVE
	})

	varianceMagnitudeKg = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "variance_magnitude_kg",
		Help:    "Distribution of stock variance magnitudes in kg",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
	}, []string{
		"shop_id",
		"variance_type",
	})

	// Expected-value aggregation metrics
	aggregationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregation_failures_total",
		Help: "Expected-value categories that degraded to zero on query failure",
	}, []string{
		"shop_id",
		"category", // cash, upi, stock
	})

	// Stock transfer metrics
	transferTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_transfer_transitions_total",
		Help: "Total stock transfer status transitions",
	}, []string{
		"transition", // created, received, approved, rejected
	})

	transferWeightKg = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_transfer_weight_kg_total",
		Help: "Total approved transfer weight in kg",
	}, []string{
		"bird_type",
		"inventory_type",
	})

	// Points engine metrics
	pointsEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staff_points_entries_total",
		Help: "Total staff points entries written",
	}, []string{
		"reason",
	})

	pointsDuplicatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staff_points_duplicates_total",
		Help: "Points writes skipped by the idempotency key",
	}, []string{
		"reason",
	})

	// Scheduled scan metrics
	cronRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_runs_total",
		Help: "Total scheduled scan executions",
	}, []string{
		"job",    // variance_scan, missed_settlements
		"status", // success, failed
	})

	cronFindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_findings_total",
		Help: "Penalties issued by scheduled scans",
	}, []string{
		"job",
	})
)

// RecordSettlementTransition records one settlement lifecycle transition
func RecordSettlementTransition(shopID, transition string) {
	settlementTransitionsTotal.WithLabelValues(shopID, transition).Inc()
}

// RecordSettlementSubmit records a settlement submission with its duration
func RecordSettlementSubmit(shopID, outcome string, duration float64) {
	settlementSubmitDuration.WithLabelValues(shopID, outcome).Observe(duration)
}

// RecordVariance records one variance record created at submission
func RecordVariance(shopID, category, varianceType string, magnitudeKg float64) {
	varianceRecordsTotal.WithLabelValues(shopID, category, varianceType).Inc()
	if category == "STOCK" && magnitudeKg > 0 {
		varianceMagnitudeKg.WithLabelValues(shopID, varianceType).Observe(magnitudeKg)
	}
}

// RecordAggregationFailure records one expected-value category degrading to zero
func RecordAggregationFailure(shopID, category string) {
	aggregationFailuresTotal.WithLabelValues(shopID, category).Inc()
}

// RecordTransferTransition records one stock transfer transition
func RecordTransferTransition(transition string) {
	transferTransitionsTotal.WithLabelValues(transition).Inc()
}

// RecordTransferApproved adds an approved transfer's weight to the moved total
func RecordTransferApproved(birdType, inventoryType string, weightKg float64) {
	transferTransitionsTotal.WithLabelValues("approved").Inc()
	transferWeightKg.WithLabelValues(birdType, inventoryType).Add(weightKg)
}

// RecordPointsEntry records a points write, or a skip when the idempotency
// key already had an entry
func RecordPointsEntry(reason string, inserted bool) {
	if inserted {
		pointsEntriesTotal.WithLabelValues(reason).Inc()
	} else {
		pointsDuplicatesTotal.WithLabelValues(reason).Inc()
	}
}

// RecordCronRun records one scheduled scan execution
func RecordCronRun(job, status string) {
	cronRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordCronFinding records one penalty issued by a scheduled scan
func RecordCronFinding(job string) {
	cronFindingsTotal.WithLabelValues(job).Inc()
}
