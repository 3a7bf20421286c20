package phone

import "testing"

func TestNormalizeE164ValidUSNumber(t *testing.T) {
	got := NormalizeE164("(415) 555-2671")
	if got != "+14155552671" {
		t.Fatalf("expected +14155552671, got %q", got)
	}
}

func TestNormalizeE164AlreadyInternational(t *testing.T) {
	got := NormalizeE164("+31 6 12345678")
	if got != "+31612345678" {
		t.Fatalf("expected +31612345678, got %q", got)
	}
}

func TestNormalizeE164InvalidInputPassesThrough(t *testing.T) {
	got := NormalizeE164("  not-a-number ")
	if got != "not-a-number" {
		t.Fatalf("expected trimmed input back, got %q", got)
	}
}

func TestNormalizeE164Empty(t *testing.T) {
	if got := NormalizeE164("   "); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
