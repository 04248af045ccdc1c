package rabbitmq

// Exchange обменник уведомлений.
const Exchange = "notifications"

// Ключи маршрутизации и очереди воркера рассылки.
const (
	RoutingFamilyInvite = "family_invite"
	RoutingReminder     = "reminder"

	QueueFamilyInvite = "notification.family_invite"
	QueueReminder     = "notification.reminder"
)

// QueueConfig очередь и ключ, которым она привязана к Exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые объявляют и API, и воркер рассылки.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueFamilyInvite, RoutingKey: RoutingFamilyInvite},
		{QueueName: QueueReminder, RoutingKey: RoutingReminder},
	}
}
