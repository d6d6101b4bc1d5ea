package enums

// OutboxEventType enumerates the domain events persisted through the outbox.
type OutboxEventType string

const (
	OutboxEventOrderCreated       OutboxEventType = "order.created"
	OutboxEventOrderStatusChanged OutboxEventType = "order.status_changed"
	OutboxEventRefundRequested    OutboxEventType = "refund.requested"
	OutboxEventRefundCompleted    OutboxEventType = "refund.completed"
)

// OutboxAggregateType identifies the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateOrder  OutboxAggregateType = "order"
	OutboxAggregateRefund OutboxAggregateType = "refund"
)

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}
