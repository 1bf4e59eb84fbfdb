package instance

import "testing"

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv(EnvWorkerID, "cron-7")
	if got := ID(); got != "cron-7" {
		t.Fatalf("expected cron-7, got %q", got)
	}
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv(EnvWorkerID, "")
	if ID() == "" {
		t.Fatal("expected a non-empty fallback id")
	}
}
