// Package metrics define los collectors Prometheus del servicio. Viven en un
// paquete propio para que oauth, userinfo y http los usen sin ciclos de import.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "widgetauth"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latencia de los requests HTTP",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_inflight_requests",
		Help:      "Requests en vuelo",
	})

	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Access tokens emitidos por tipo de grant",
	}, []string{"grant"}) // implicit | client_credentials

	Introspections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "introspections_total",
		Help:      "Introspecciones por resultado",
	}, []string{"result"}) // valid | invalid | expired | error

	GateResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bearer_gate_total",
		Help:      "Resultados del bearer gate",
	}, []string{"result"}) // ok | bad_header | invalid | integrity | unavailable

	GateRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bearer_gate_retries_total",
		Help:      "Reintentos contra el endpoint de introspección",
	})

	StoreDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_call_duration_seconds",
		Help:      "Latencia de llamadas al store por operación, colección y resultado",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"op", "collection", "outcome"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rechazadas por rate limit",
	}, []string{"endpoint"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequests, HTTPDuration, HTTPInflight,
		TokensIssued, Introspections,
		GateResults, GateRetries,
		StoreDuration, RateLimited,
	}
}

// Register registra todos los collectors en reg (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// Handler expone /metrics sobre el gatherer global.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveStore tiene la firma de store.Observer.
func ObserveStore(op, coll, outcome string, d time.Duration) {
	StoreDuration.WithLabelValues(op, coll, outcome).Observe(d.Seconds())
}
