package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/supplyledger-backend/internal/inventory"
	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
	"github.com/angelmondragon/supplyledger-backend/pkg/enums"
	"github.com/angelmondragon/supplyledger-backend/pkg/metrics"
)

type fakeLocations struct {
	rows  []models.InventoryLocation
	calls int
	err   error
}

func (f *fakeLocations) ListLocations(_ context.Context, after uuid.UUID, limit int) ([]models.InventoryLocation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	start := 0
	if after != uuid.Nil {
		for i, row := range f.rows {
			if row.ID == after {
				start = i + 1
			}
		}
	}
	end := start + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[start:end], nil
}

type fakeReconciler struct {
	broken map[uuid.UUID]bool
	failOn uuid.UUID
	seen   []uuid.UUID
}

func (f *fakeReconciler) Reconcile(_ context.Context, row models.InventoryLocation) (inventory.Reconciliation, error) {
	f.seen = append(f.seen, row.ID)
	if row.ID == f.failOn {
		return inventory.Reconciliation{}, errors.New("db gone")
	}
	result := inventory.Reconciliation{
		Key:            inventory.Key{VariantID: row.VariantID, Location: inventory.LocationOf(row)},
		Quantity:       row.Quantity,
		Reserved:       row.ReservedQuantity,
		LedgerQuantity: row.Quantity,
	}
	if f.broken[row.ID] {
		result.LedgerQuantity = row.Quantity - 1
		result.Issues = []string{"ledger mismatch"}
	}
	return result, nil
}

func auditRows(n int) []models.InventoryLocation {
	rows := make([]models.InventoryLocation, n)
	for i := range rows {
		rows[i] = models.InventoryLocation{
			ID:           uuid.New(),
			VariantID:    uuid.New(),
			LocationType: enums.LocationKindWarehouse,
			LocationID:   uuid.New(),
			Quantity:     10,
		}
	}
	return rows
}

func discrepancyGauge(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "supplyledger_inventory_ledger_audit_discrepancies" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("discrepancy gauge not exported")
	return 0
}

func newLedgerAuditJob(t *testing.T, locations *fakeLocations, reconciler *fakeReconciler, m *metrics.LedgerMetrics) Job {
	t.Helper()
	job, err := NewLedgerAuditJob(LedgerAuditJobParams{
		Logger:     testLogger(),
		Locations:  locations,
		Reconciler: reconciler,
		Metrics:    m,
		PageSize:   2,
	})
	if err != nil {
		t.Fatalf("NewLedgerAuditJob: %v", err)
	}
	return job
}

func TestLedgerAuditJobPagesEveryLocation(t *testing.T) {
	rows := auditRows(5)
	locations := &fakeLocations{rows: rows}
	reconciler := &fakeReconciler{broken: map[uuid.UUID]bool{rows[1].ID: true, rows[4].ID: true}}
	reg := prometheus.NewRegistry()
	job := newLedgerAuditJob(t, locations, reconciler, metrics.NewLedgerMetrics(reg))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reconciler.seen) != 5 {
		t.Fatalf("expected 5 locations reconciled, got %d", len(reconciler.seen))
	}
	if locations.calls != 3 {
		t.Fatalf("expected 3 pages, got %d", locations.calls)
	}
	if got := discrepancyGauge(t, reg); got != 2 {
		t.Fatalf("expected 2 discrepancies, got %f", got)
	}
}

func TestLedgerAuditJobContinuesPastFailures(t *testing.T) {
	rows := auditRows(3)
	reconciler := &fakeReconciler{failOn: rows[0].ID}
	reg := prometheus.NewRegistry()
	m := metrics.NewLedgerMetrics(reg)
	m.SetAuditDiscrepancies(7)
	job := newLedgerAuditJob(t, &fakeLocations{rows: rows}, reconciler, m)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected reconcile failure to surface")
	}
	if len(reconciler.seen) != 3 {
		t.Fatalf("expected every location visited, got %d", len(reconciler.seen))
	}
	if got := discrepancyGauge(t, reg); got != 7 {
		t.Fatalf("expected gauge left at 7 after a partial run, got %f", got)
	}
}

func TestLedgerAuditJobListFailure(t *testing.T) {
	job := newLedgerAuditJob(t, &fakeLocations{err: errors.New("boom")}, &fakeReconciler{}, nil)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}
