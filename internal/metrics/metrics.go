package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "avrex",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "avrex",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "avrex",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	signups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "avrex",
			Name:      "signups_total",
			Help:      "Signup attempts by result.",
		},
		[]string{"result"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "avrex",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		},
		[]string{"result"},
	)

	adsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "avrex",
			Name:      "ads_submitted_total",
			Help:      "Ad submissions by result.",
		},
		[]string{"result"},
	)

	keysGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "avrex",
			Name:      "access_keys_generated_total",
			Help:      "Access keys created by admins or at initialization.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		signups,
		logins,
		adsSubmitted,
		keysGenerated,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordSignup(result string) { signups.WithLabelValues(result).Inc() }
func RecordLogin(result string) { logins.WithLabelValues(result).Inc() }
func RecordAdSubmitted(result string) { adsSubmitted.WithLabelValues(result).Inc() }

func RecordKeysGenerated(n int) {
	if n > 0 {
		keysGenerated.Add(float64(n))
	}
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// knownRoots are the first path segments served by the router. Anything else
// is reported as "other".
var knownRoots = map[string]struct{}{
	"signup": {}, "login": {}, "logout": {}, "dashboard": {}, "task": {},
	"admin": {}, "add_keys": {}, "post_ad": {}, "submit_ad": {},
	"view_ads": {}, "download_ads": {}, "healthz": {},
}

// canonicalPath folds path parameters and unknown paths so label cardinality
// stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "delete_key":
		return "/delete_key/:key"
	case "delete_ad":
		return "/delete_ad/:id"
	case "static":
		return "/static"
	}
	if _, ok := knownRoots[parts[0]]; ok && len(parts) == 1 {
		return "/" + parts[0]
	}
	return "other"
}
