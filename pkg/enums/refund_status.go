package enums

import "fmt"

// RefundStatus tracks the state of a refund request.
type RefundStatus string

const (
	RefundStatusRequested  RefundStatus = "requested"
	RefundStatusApproved   RefundStatus = "approved"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusRejected   RefundStatus = "rejected"
	RefundStatusCompleted  RefundStatus = "completed"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusRequested,
	RefundStatusApproved,
	RefundStatusProcessing,
	RefundStatusRejected,
	RefundStatusCompleted,
}

var refundStatusTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusRequested:  {RefundStatusApproved, RefundStatusRejected},
	RefundStatusApproved:   {RefundStatusProcessing, RefundStatusRejected},
	RefundStatusProcessing: {RefundStatusCompleted, RefundStatusRejected},
	RefundStatusRejected:   {},
	RefundStatusCompleted:  {},
}

// String implements fmt.Stringer.
func (r RefundStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundStatus.
func (r RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the refund flow allows moving to next.
func (r RefundStatus) CanTransitionTo(next RefundStatus) bool {
	for _, candidate := range refundStatusTransitions[r] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseRefundStatus converts raw input into a RefundStatus.
func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}
