package env

import "testing"

func TestFirstPrefersEarlierKeys(t *testing.T) {
	t.Setenv("SUPPLYLEDGER_TEST_A", "")
	t.Setenv("SUPPLYLEDGER_TEST_B", " console ")
	t.Setenv("SUPPLYLEDGER_TEST_C", "json")

	if got := First("fallback", "SUPPLYLEDGER_TEST_A", "SUPPLYLEDGER_TEST_B", "SUPPLYLEDGER_TEST_C"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}
	if got := First("fallback", "SUPPLYLEDGER_TEST_A"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
