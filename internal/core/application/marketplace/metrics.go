package marketplace

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the marketplace prometheus collectors.
type Metrics struct {
	listings    *prometheus.CounterVec
	purchases   *prometheus.CounterVec
	settlements *prometheus.CounterVec
	frauds      *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsRegistry *Metrics
)

// DefaultMetrics returns the collectors registered with the default
// prometheus registry.
func DefaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsRegistry = NewMetrics()
		prometheus.MustRegister(metricsRegistry.Collectors()...)
	})
	return metricsRegistry
}

// NewMetrics returns unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordex_listing_transitions_total",
			Help: "Count of listing status transitions by status.",
		}, []string{"status"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordex_purchases_prepared_total",
			Help: "Count of purchase attempts composed by outcome.",
		}, []string{"outcome"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordex_settlements_total",
			Help: "Count of finalized purchase attempts by state.",
		}, []string{"state"}),
		frauds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordex_fraud_detected_total",
			Help: "Count of rejected templates and transactions by stage and field.",
		}, []string{"stage", "field"}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.listings, m.purchases, m.settlements, m.frauds,
	}
}

func (m *Metrics) observeListing(status string) {
	if m == nil {
		return
	}
	m.listings.WithLabelValues(status).Inc()
}

func (m *Metrics) observePurchase(outcome string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSettlement(state string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(state).Inc()
}

func (m *Metrics) observeFraud(stage, field string) {
	if m == nil {
		return
	}
	m.frauds.WithLabelValues(stage, field).Inc()
}
