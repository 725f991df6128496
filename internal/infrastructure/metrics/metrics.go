// Package metrics expone contadores e histogramas Prometheus del servicio y
// decora los puertos SEFAZ para medir cada llamada.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics colectores del servicio. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	GatewayLatency  *prometheus.HistogramVec
	GatewayOutcome  *prometheus.CounterVec
	InvoicesByState *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
}

// New registra los colectores en reg (prometheus.NewRegistry() en tests).
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GatewayLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nfe_sefaz_request_duration_seconds",
			Help:    "Duración de las llamadas a la SEFAZ por operación",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}), // emit | cancel | correct

		GatewayOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nfe_sefaz_outcomes_total",
			Help: "Resultados de la SEFAZ por operación y resultado",
		}, []string{"operation", "outcome"}), // outcome: AUTHORIZED, REJECTED, CANCELED, REGISTERED, error

		InvoicesByState: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nfe_invoice_transitions_total",
			Help: "Notas que llegaron a cada estado",
		}, []string{"status"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nfe_http_request_duration_seconds",
			Help:    "Duración de las peticiones HTTP por ruta y código",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

// ObserveGateway registra duración y resultado de una llamada a la SEFAZ.
func (m *Metrics) ObserveGateway(operation, outcome string, d time.Duration) {
	if m != nil {
		m.GatewayLatency.WithLabelValues(operation).Observe(d.Seconds())
		m.GatewayOutcome.WithLabelValues(operation, outcome).Inc()
	}
}

// IncrementStatus cuenta una nota que pasó a status.
func (m *Metrics) IncrementStatus(status string) {
	if m != nil {
		m.InvoicesByState.WithLabelValues(status).Inc()
	}
}

// ObserveHTTP registra una petición HTTP atendida.
func (m *Metrics) ObserveHTTP(method, route, code string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(method, route, code).Observe(d.Seconds())
	}
}
