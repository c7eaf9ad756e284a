package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the tool.
	Registry = prometheus.NewRegistry()
	// Conversions counts finished conversions by output format and status.
	Conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mdhf_conversions_total", Help: "Finished conversions."},
		[]string{"format", "status"},
	)
	// ConversionDuration records conversion wall time in seconds.
	ConversionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "mdhf_conversion_duration_seconds", Help: "Conversion duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"format"},
	)
	// CustomersByCategory counts converted customers per demand category.
	CustomersByCategory = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mdhf_customers_total", Help: "Converted customers by category."},
		[]string{"category"},
	)
	// Repairs counts capacity and window repairs.
	Repairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mdhf_repairs_total", Help: "Repairs applied during conversion."},
		[]string{"kind"},
	)
	// HTTPRequests counts API requests by method, route and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mdhf_http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// RateLimited counts requests rejected by the limiter.
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "mdhf_http_rate_limited_total", Help: "Requests rejected by the rate limiter."},
	)
)

var regOnce sync.Once

// Register adds the collectors to Registry once per process.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(Conversions, ConversionDuration, CustomersByCategory, Repairs, HTTPRequests, RateLimited)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
