package orders

import (
	"testing"
	"time"
)

func TestPeriodPrefix(t *testing.T) {
	now := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	if got := PeriodPrefix("ORD", now); got != "ORD-2026-08-" {
		t.Fatalf("expected ORD-2026-08-, got %s", got)
	}
	if got := PeriodPrefix("REF", now); got != "REF-2026-08-" {
		t.Fatalf("expected REF-2026-08-, got %s", got)
	}
}

func TestPeriodPrefixUsesUTC(t *testing.T) {
	// 1am Sep 1 in UTC+3 is still August in UTC.
	loc := time.FixedZone("EAT", 3*60*60)
	now := time.Date(2026, time.September, 1, 1, 0, 0, 0, loc)
	if got := PeriodPrefix("ORD", now); got != "ORD-2026-08-" {
		t.Fatalf("expected ORD-2026-08-, got %s", got)
	}
}

func TestNextNumberFirstInPeriod(t *testing.T) {
	now := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	got, err := NextNumber("ORD", now, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ORD-2026-08-1000" {
		t.Fatalf("expected ORD-2026-08-1000, got %s", got)
	}
}

func TestNextNumberIncrements(t *testing.T) {
	now := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	got, err := NextNumber("ORD", now, "ORD-2026-08-1041")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ORD-2026-08-1042" {
		t.Fatalf("expected ORD-2026-08-1042, got %s", got)
	}
}

func TestNextNumberRejectsWrongPeriod(t *testing.T) {
	now := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	if _, err := NextNumber("ORD", now, "ORD-2026-08-1041"); err == nil {
		t.Fatal("expected error for stale period prefix")
	}
}

func TestNextNumberRejectsGarbageSequence(t *testing.T) {
	now := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	if _, err := NextNumber("ORD", now, "ORD-2026-08-abc"); err == nil {
		t.Fatal("expected error for non-numeric sequence")
	}
}
