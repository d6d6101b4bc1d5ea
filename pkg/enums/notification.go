package enums

import "fmt"

// NotificationType categorizes notifications delivered to accounts.
type NotificationType string

const (
	NotificationOrderPlaced        NotificationType = "order_placed"
	NotificationOrderStatusChanged NotificationType = "order_status_changed"
	NotificationNewOrderForVendor  NotificationType = "new_order_for_vendor"
	NotificationRefundUpdate       NotificationType = "refund_update"
)

var validNotificationTypes = []NotificationType{
	NotificationOrderPlaced,
	NotificationOrderStatusChanged,
	NotificationNewOrderForVendor,
	NotificationRefundUpdate,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
