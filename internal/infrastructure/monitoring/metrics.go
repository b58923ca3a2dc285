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
	LoanDecisionsTotal       *prometheus.CounterVec
	EventsPublishedTotal     *prometheus.CounterVec
	DebtRefreshRunsTotal     *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		CustomersRegisteredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_engine_customers_registered_total",
				Help: "Total number of customers successfully registered.",
			},
		),
		LoanDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_loan_decisions_total",
				Help: "Eligibility decisions by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		EventsPublishedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_events_published_total",
				Help: "Domain events handed to the broker, by routing key and status.",
			},
			[]string{"routing_key", "status"},
		),
		DebtRefreshRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_debt_refresh_runs_total",
				Help: "Current-debt refresh job runs by result.",
			},
			[]string{"result"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordCustomerRegistered() {
	Business.CustomersRegisteredTotal.Inc()
}

// RecordLoanDecision counts an eligibility outcome; operation is "check" or "create".
func RecordLoanDecision(operation string, approved bool) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	Business.LoanDecisionsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordEventPublished(routingKey, status string) {
	Business.EventsPublishedTotal.WithLabelValues(routingKey, status).Inc()
}

func RecordDebtRefreshRun(result string) {
	Business.DebtRefreshRunsTotal.WithLabelValues(result).Inc()
}
