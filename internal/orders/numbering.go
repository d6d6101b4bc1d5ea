package orders

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sequenced numbers look like ORD-2026-08-1042: a kind tag, the year-month
// period, and a counter that starts at 1000 and increases within the period.
const firstSequence = 1000

// PeriodPrefix returns the number prefix for the given kind and month,
// e.g. "ORD-2026-08-".
func PeriodPrefix(kind string, now time.Time) string {
	return fmt.Sprintf("%s-%s-", kind, now.UTC().Format("2006-01"))
}

// NextNumber computes the next sequenced number for the period. last is the
// highest existing number with the period's prefix, or empty when the period
// has none yet.
func NextNumber(kind string, now time.Time, last string) (string, error) {
	prefix := PeriodPrefix(kind, now)
	if last == "" {
		return prefix + strconv.Itoa(firstSequence), nil
	}
	if !strings.HasPrefix(last, prefix) {
		return "", fmt.Errorf("number %q does not match period prefix %q", last, prefix)
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
	if err != nil {
		return "", fmt.Errorf("parsing sequence from %q: %w", last, err)
	}
	return prefix + strconv.Itoa(seq+1), nil
}
