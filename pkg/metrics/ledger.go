package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts inventory ledger writes and purchase order transitions.
type LedgerMetrics struct {
	movements     *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	discrepancies prometheus.Gauge
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "stock_movements_total",
		Help:      "Stock movements written to the ledger by type.",
	}, []string{"type"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "purchase_orders",
		Name:      "transitions_total",
		Help:      "Purchase order transitions by target status.",
	}, []string{"status"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "purchase_orders",
		Name:      "rejections_total",
		Help:      "Rejected purchase order operations by error code.",
	}, []string{"code"})
	discrepancies := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "ledger_audit_discrepancies",
		Help:      "Inventory locations that failed the last ledger audit.",
	})
	reg.MustRegister(movements, transitions, rejections, discrepancies)
	return &LedgerMetrics{
		movements:     movements,
		transitions:   transitions,
		rejections:    rejections,
		discrepancies: discrepancies,
	}
}

// AddMovements counts n movements of the given type.
func (m *LedgerMetrics) AddMovements(movementType string, n int) {
	if m == nil || m.movements == nil || n <= 0 {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(movementType)).Add(float64(n))
}

// IncTransition counts a committed purchase order transition.
func (m *LedgerMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncRejection counts an operation rejected with a business error code.
func (m *LedgerMetrics) IncRejection(code string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(code)).Inc()
}

// SetAuditDiscrepancies publishes the result of the latest ledger audit.
func (m *LedgerMetrics) SetAuditDiscrepancies(n int) {
	if m == nil || m.discrepancies == nil {
		return
	}
	m.discrepancies.Set(float64(n))
}
