package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	NAMESPACE = "targetapi"

	// ROUTE_USER_VALUE is the RequestCtx user value the engine stores the matched route name under.
	ROUTE_USER_VALUE = "route"
	UNMATCHED_ROUTE  = "unmatched"
)

type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	bodyBytes prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "requests_total",
			Help:      "Requests handled, by route, method and status code.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "request_duration_seconds",
			Help:      "Time spent handling a request, including any configured delay.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 1.5, 2, 5},
		}, []string{"route", "method"}),
		bodyBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "request_body_bytes",
			Help:      "Size of received request bodies.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.bodyBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)

		route := UNMATCHED_ROUTE
		if name, ok := ctx.UserValue(ROUTE_USER_VALUE).(string); ok && name != "" {
			route = name
		}
		method := string(ctx.Method())

		m.requests.WithLabelValues(route, method, strconv.Itoa(ctx.Response.StatusCode())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		m.bodyBytes.Observe(float64(len(ctx.PostBody())))
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
