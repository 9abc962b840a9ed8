package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups the collectors exported on /metrics.
type Registry struct {
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	webhookEvents     *prometheus.CounterVec
	distributions     *prometheus.CounterVec
	payouts           *prometheus.CounterVec
	expiredReserv     prometheus.Counter
	purgedWebhooks    prometheus.Counter
	stuckPayouts      prometheus.Gauge
	stuckHeldVerifies prometheus.Gauge
}

var (
	once     sync.Once
	registry *Registry
)

// Get returns the lazily registered collectors.
func Get() *Registry {
	once.Do(func() {
		registry = &Registry{
			httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "garka",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests segmented by route, method and status.",
			}, []string{"route", "method", "status"}),
			httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "garka",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP handler latency.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "garka",
				Subsystem: "webhook",
				Name:      "events_total",
				Help:      "Payment webhooks by provider and outcome.",
			}, []string{"provider", "outcome"}),
			distributions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "garka",
				Subsystem: "commission",
				Name:      "distributions_total",
				Help:      "Commission distribution attempts by result.",
			}, []string{"result"}),
			payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "garka",
				Subsystem: "payout",
				Name:      "processed_total",
				Help:      "Payout transactions marked completed, by provider.",
			}, []string{"provider"}),
			expiredReserv: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "garka",
				Subsystem: "reservation",
				Name:      "expired_total",
				Help:      "Paid verifications whose reservation lapsed before approval.",
			}),
			purgedWebhooks: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "garka",
				Subsystem: "webhook",
				Name:      "events_purged_total",
				Help:      "Webhook replay records removed by the retention job.",
			}),
			stuckPayouts: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "garka",
				Subsystem: "ops",
				Name:      "stuck_payouts",
				Help:      "Pending payouts older than the ops age threshold at last check.",
			}),
			stuckHeldVerifies: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "garka",
				Subsystem: "ops",
				Name:      "stuck_held_verifications",
				Help:      "Verifications with escrow held longer than the ops age threshold at last check.",
			}),
		}
		prometheus.MustRegister(
			registry.httpRequests,
			registry.httpLatency,
			registry.webhookEvents,
			registry.distributions,
			registry.payouts,
			registry.expiredReserv,
			registry.purgedWebhooks,
			registry.stuckPayouts,
			registry.stuckHeldVerifies,
		)
	})
	return registry
}

func (r *Registry) WebhookEvent(provider, outcome string) {
	r.webhookEvents.WithLabelValues(provider, outcome).Inc()
}

func (r *Registry) Distribution(result string) {
	r.distributions.WithLabelValues(result).Inc()
}

func (r *Registry) PayoutProcessed(provider string) {
	r.payouts.WithLabelValues(provider).Inc()
}

func (r *Registry) ReservationsExpired(n int) {
	r.expiredReserv.Add(float64(n))
}

func (r *Registry) WebhooksPurged(n int64) {
	r.purgedWebhooks.Add(float64(n))
}

func (r *Registry) OpsCounts(stuckPayouts, stuckHeld int64) {
	r.stuckPayouts.Set(float64(stuckPayouts))
	r.stuckHeldVerifies.Set(float64(stuckHeld))
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	reg := Get()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		reg.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		reg.httpLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
