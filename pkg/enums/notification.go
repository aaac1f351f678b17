package enums

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeOrderPlaced     NotificationType = "order_placed"
	NotificationTypeNewOrder        NotificationType = "new_order"
	NotificationTypeOrderStatus     NotificationType = "order_status"
	NotificationTypeOrderCancelled  NotificationType = "order_cancelled"
	NotificationTypePaymentReceived NotificationType = "payment_received"
	NotificationTypePaymentFailed   NotificationType = "payment_failed"
	NotificationTypeOutForDelivery  NotificationType = "out_for_delivery"
	NotificationTypeGeneral         NotificationType = "general"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPlaced,
	NotificationTypeNewOrder,
	NotificationTypeOrderStatus,
	NotificationTypeOrderCancelled,
	NotificationTypePaymentReceived,
	NotificationTypePaymentFailed,
	NotificationTypeOutForDelivery,
	NotificationTypeGeneral,
}

func (n NotificationType) IsValid() bool {
	return contains(validNotificationTypes, n)
}
