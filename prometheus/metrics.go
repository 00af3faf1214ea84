package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datebank_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datebank_tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"}, // create, list, get, delete, leave
	)

	PlaceOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datebank_place_operations_total",
			Help: "Total number of place operations",
		},
		[]string{"operation"}, // list, get, create, update, delete
	)

	// Denials are reported to clients as not found; this keeps them visible.
	AccessDeniedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datebank_access_denied_total",
			Help: "Total number of requests rejected by the membership check or missing records",
		},
		[]string{"resource"},
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datebank_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)

	InviteCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datebank_invites_total",
			Help: "Total number of invites by outcome",
		},
		[]string{"outcome"}, // added, provisioned, already_member, denied, failed
	)

	MailDispatchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datebank_mail_dispatch_total",
			Help: "Total number of invite notification attempts by result",
		},
		[]string{"result"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datebank_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datebank_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datebank_info",
			Help: "Information about the datebank service",
		},
		[]string{"version"},
	)

	UsersPerTenantGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datebank_users_per_tenant",
			Help: "Number of members per tenant",
		},
		[]string{"tenant_id"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(PlaceOperationCounter)
	prometheus.MustRegister(AccessDeniedCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(InviteCounter)
	prometheus.MustRegister(MailDispatchCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(UsersPerTenantGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures a database operation:
//
//	defer prometheus.TrackDBOperation("query")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware captures request count and duration for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			labels := prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   strconv.Itoa(status),
			}
			RequestDuration.With(labels).Observe(time.Since(start).Seconds())
			HTTPRequestCounter.With(labels).Inc()

			return err
		}
	}
}

func RecordTenantOperation(operation string) {
	TenantOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

func RecordPlaceOperation(operation string) {
	PlaceOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

func RecordAccessDenied(resource string) {
	AccessDeniedCounter.With(prometheus.Labels{"resource": resource}).Inc()
}

func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

func RecordInvite(outcome string) {
	InviteCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

func RecordMailDispatch(result string) {
	MailDispatchCounter.With(prometheus.Labels{"result": result}).Inc()
}

// UpdateUsersPerTenant sets the member gauge for a tenant
func UpdateUsersPerTenant(tenantID uint, count int64) {
	UsersPerTenantGauge.With(prometheus.Labels{
		"tenant_id": strconv.FormatUint(uint64(tenantID), 10),
	}).Set(float64(count))
}

// ForgetTenant drops per-tenant series once a tenant is deleted
func ForgetTenant(tenantID uint) {
	UsersPerTenantGauge.DeleteLabelValues(strconv.FormatUint(uint64(tenantID), 10))
}
