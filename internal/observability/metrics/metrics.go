package metrics

import "github.com/prometheus/client_golang/prometheus"

// CRMMetrics exposes counters for appointment writes and availability
// lookups.
type CRMMetrics struct {
	appointmentsCreated *prometheus.CounterVec
	statusTransitions   *prometheus.CounterVec
	availabilityCache   *prometheus.CounterVec
	requestLatency      *prometheus.HistogramVec
}

func NewCRMMetrics(reg prometheus.Registerer) *CRMMetrics {
	m := &CRMMetrics{
		appointmentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "appointments_created_total",
			Help:      "Total appointments created",
		}, []string{"source"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "status_transitions_total",
			Help:      "Total lead status changes by target status",
		}, []string{"status"}),
		availabilityCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "availability_cache_total",
			Help:      "Availability cache lookups by result",
		}, []string{"result"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Name:      "appointment_op_seconds",
			Help:      "Latency of appointment service operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.appointmentsCreated, m.statusTransitions, m.availabilityCache, m.requestLatency)
	return m
}

// ObserveCreated counts a new appointment. source is "widget" or "manual".
func (m *CRMMetrics) ObserveCreated(source string) {
	if m == nil {
		return
	}
	m.appointmentsCreated.WithLabelValues(source).Inc()
}

func (m *CRMMetrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status).Inc()
}

// ObserveCache records a cache "hit", "miss" or "error".
func (m *CRMMetrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.availabilityCache.WithLabelValues(result).Inc()
}

func (m *CRMMetrics) ObserveLatency(op string, seconds float64) {
	if m == nil {
		return
	}
	m.requestLatency.WithLabelValues(op).Observe(seconds)
}
