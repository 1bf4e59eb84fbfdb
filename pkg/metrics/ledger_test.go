package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLedgerMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewLedgerMetrics(reg)

	metrics.AddMovements("po_shipped", 2)
	metrics.AddMovements("po_shipped", 0)
	metrics.IncTransition("shipped")
	metrics.IncRejection("INSUFFICIENT_STOCK")
	metrics.SetAuditDiscrepancies(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "supplyledger_inventory_stock_movements_total", "type", "po_shipped"); err != nil || got != 2 {
		t.Fatalf("expected 2 shipped movements, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "supplyledger_purchase_orders_transitions_total", "status", "shipped"); err != nil || got != 1 {
		t.Fatalf("expected 1 transition, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "supplyledger_purchase_orders_rejections_total", "code", "INSUFFICIENT_STOCK"); err != nil || got != 1 {
		t.Fatalf("expected 1 rejection, got %f (%v)", got, err)
	}

	mf := findMetricFamily(mfs, "supplyledger_inventory_ledger_audit_discrepancies")
	if mf == nil || len(mf.GetMetric()) != 1 || mf.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Fatalf("expected discrepancy gauge of 3")
	}
}

func TestLedgerMetricsNilSafe(t *testing.T) {
	var metrics *LedgerMetrics
	metrics.AddMovements("sale", 1)
	metrics.IncTransition("approved")
	metrics.IncRejection("CONFLICT")
	metrics.SetAuditDiscrepancies(1)
}
