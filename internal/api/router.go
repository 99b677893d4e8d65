package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/PaymentLedgerService/internal/handler"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/auth"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/redis"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(RequestCounter, RequestDuration)
}

// SetupRouter mounts account routes publicly, payment routes behind a valid
// session, and the admin subset behind the admin role. Admin signup is public
// only while openAdminSignup is set, to bootstrap the first admin.
func SetupRouter(h *handler.Handler, redisClient redis.RedisClient, tokens *auth.JWTManager, openAdminSignup bool) *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	h.RegisterAccountRoutes(r)
	if openAdminSignup {
		h.RegisterAdminSignup(r)
	} else {
		signup := r.NewRoute().Subrouter()
		signup.Use(auth.AuthMiddleware(redisClient, tokens), auth.RequireRole(models.RoleAdmin))
		h.RegisterAdminSignup(signup)
	}

	payments := r.PathPrefix("/payment").Subrouter()
	payments.Use(auth.AuthMiddleware(redisClient, tokens))
	h.RegisterPaymentRoutes(payments)

	admin := payments.NewRoute().Subrouter()
	admin.Use(auth.RequireRole(models.RoleAdmin))
	h.RegisterAdminRoutes(admin)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// metricsMiddleware labels by route template so ids in the path do not
// explode label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}

		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}

		status := fmt.Sprintf("%d", recorder.status)
		RequestCounter.WithLabelValues(r.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder для захвата статуса ответа
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
