package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	CustomersRegisteredTotal prometheus.Counter
	CustomersDeletedTotal    prometheus.Counter
	CreditsCreatedTotal      prometheus.Counter
	CreditLookupsTotal       *prometheus.CounterVec
	CreditsByStatus          *prometheus.GaugeVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credit_application_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		CustomersRegisteredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_application_customers_registered_total",
				Help: "Total number of customers successfully registered.",
			},
		),
		CustomersDeletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_application_customers_deleted_total",
				Help: "Total number of customers deleted.",
			},
		),
		CreditsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_application_credits_created_total",
				Help: "Total number of credit applications persisted.",
			},
		),
		CreditLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_application_credit_lookups_total",
				Help: "Credit code lookups by outcome.",
			},
			[]string{"outcome"},
		),
		CreditsByStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "credit_application_credits_by_status",
				Help: "Number of stored credit applications per status, refreshed by the portfolio snapshot job.",
			},
			[]string{"status"},
		),
	}
)

func RecordDBQuery(queryName string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordCustomerRegistered() {
	Business.CustomersRegisteredTotal.Inc()
}

func RecordCustomerDeleted() {
	Business.CustomersDeletedTotal.Inc()
}

func RecordCreditCreated() {
	Business.CreditsCreatedTotal.Inc()
}

// RecordCreditLookup counts a credit code lookup; outcome is one of
// "found", "not_found" or "owner_mismatch".
func RecordCreditLookup(outcome string) {
	Business.CreditLookupsTotal.WithLabelValues(outcome).Inc()
}

func SetCreditsByStatus(counts map[string]int64) {
	Business.CreditsByStatus.Reset()
	for status, n := range counts {
		Business.CreditsByStatus.WithLabelValues(status).Set(float64(n))
	}
}
