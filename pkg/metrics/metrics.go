// Package metrics provides Prometheus metrics for hurlfix.
// Label values are bounded: fixture names come from the loaded catalog and
// everything else is folded into "unmatched".
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const UnmatchedFixture = "unmatched"

var (
	// RequestsTotal counts served requests by fixture, method and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hurlfix",
		Name:      "requests_total",
		Help:      "Total number of requests served, by fixture, method and status code.",
	}, []string{"fixture", "method", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hurlfix",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving a request, by fixture.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"fixture"})

	ResponseBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hurlfix",
		Name:      "response_bytes_total",
		Help:      "Total response body bytes written, by fixture.",
	}, []string{"fixture"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hurlfix",
		Name:      "ratelimited_total",
		Help:      "Total number of requests rejected by the rate limiter, by fixture.",
	}, []string{"fixture"})

	JournalErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hurlfix",
		Name:      "journal_errors_total",
		Help:      "Total number of exchanges that could not be written to the journal.",
	})

	// ConfigReloadsTotal counts fixture catalog reloads by result (success/failure).
	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hurlfix",
		Name:      "config_reloads_total",
		Help:      "Total number of fixture catalog reloads, by result.",
	}, []string{"result"})

	FixturesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hurlfix",
		Name:      "fixtures_loaded",
		Help:      "Number of fixtures in the active catalog.",
	})
)

var knownMethods = map[string]struct{}{
	fasthttp.MethodGet:     {},
	fasthttp.MethodHead:    {},
	fasthttp.MethodPost:    {},
	fasthttp.MethodPut:     {},
	fasthttp.MethodPatch:   {},
	fasthttp.MethodDelete:  {},
	fasthttp.MethodOptions: {},
}

// ObserveRequest records one served request.
func ObserveRequest(fixture, method string, status, size int, elapsed time.Duration) {
	if fixture == "" {
		fixture = UnmatchedFixture
	}
	if _, ok := knownMethods[method]; !ok {
		method = "OTHER"
	}

	RequestsTotal.WithLabelValues(fixture, method, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(fixture).Observe(elapsed.Seconds())
	ResponseBytesTotal.WithLabelValues(fixture).Add(float64(size))
}

func ObserveRateLimited(fixture string) {
	if fixture == "" {
		fixture = UnmatchedFixture
	}
	RateLimitedTotal.WithLabelValues(fixture).Inc()
}

func ObserveReload(err error) {
	if err != nil {
		ConfigReloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	ConfigReloadsTotal.WithLabelValues("success").Inc()
}

// Handler exposes the default registry on a fasthttp server.
func Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
}
