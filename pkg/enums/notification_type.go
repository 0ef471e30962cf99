package enums

import "fmt"

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationTypeOrderCreated    NotificationType = "order_created"
	NotificationTypeOrderPickedUp   NotificationType = "order_picked_up"
	NotificationTypeOrderDelivered  NotificationType = "order_delivered"
	NotificationTypeOrderCancelled  NotificationType = "order_cancelled"
	NotificationTypeReturnRequested NotificationType = "return_requested"
	NotificationTypeReturnPickedUp  NotificationType = "return_picked_up"
	NotificationTypeReturnCompleted NotificationType = "return_completed"
	NotificationTypeDebtOutstanding NotificationType = "debt_outstanding"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderCreated,
	NotificationTypeOrderPickedUp,
	NotificationTypeOrderDelivered,
	NotificationTypeOrderCancelled,
	NotificationTypeReturnRequested,
	NotificationTypeReturnPickedUp,
	NotificationTypeReturnCompleted,
	NotificationTypeDebtOutstanding,
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
