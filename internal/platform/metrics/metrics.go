package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	goalTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goal_transitions_total",
			Help: "Goal approval transitions by target status",
		},
		[]string{"to"},
	)

	appraisalTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraisal_transitions_total",
			Help: "Appraisal status transitions by target status",
		},
		[]string{"to"},
	)

	cycleActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycle_activations_total",
			Help: "Cycle activation attempts by outcome",
		},
		[]string{"outcome"},
	)

	appraisalsProvisionedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "appraisals_provisioned_total",
			Help: "Appraisals created by activation or lazy access",
		},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_emitted_total",
			Help: "Notification deliveries by event and result",
		},
		[]string{"event", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		goalTransitionsTotal,
		appraisalTransitionsTotal,
		cycleActivationsTotal,
		appraisalsProvisionedTotal,
		notificationsTotal,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordGoalTransition(to string) {
	goalTransitionsTotal.WithLabelValues(to).Inc()
}

func RecordAppraisalTransition(to string) {
	appraisalTransitionsTotal.WithLabelValues(to).Inc()
}

func RecordCycleActivation(outcome string) {
	cycleActivationsTotal.WithLabelValues(outcome).Inc()
}

func RecordAppraisalProvisioned() {
	appraisalsProvisionedTotal.Inc()
}

func RecordNotification(event, result string) {
	notificationsTotal.WithLabelValues(event, result).Inc()
}

// RegisterPool exposes connection pool gauges for pool. Registering a second
// pool under the same names is a no-op.
func RegisterPool(pool *pgxpool.Pool) {
	if pool == nil {
		return
	}
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "db_pool_acquired_connections", Help: "Connections currently in use"}, func() float64 {
			return float64(pool.Stat().AcquiredConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "db_pool_idle_connections", Help: "Idle connections"}, func() float64 {
			return float64(pool.Stat().IdleConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "db_pool_max_connections", Help: "Maximum pool size"}, func() float64 {
			return float64(pool.Stat().MaxConns())
		}),
	}
	for _, g := range gauges {
		if err := prometheus.Register(g); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}
}
