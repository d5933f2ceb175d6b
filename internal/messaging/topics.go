package messaging

// Topics carrying checkout lifecycle events.
const (
	// TopicOrderCompleted carries one event per persisted order, keyed by
	// order id. Consumers drive customer and operations notifications.
	TopicOrderCompleted = "order.completed"
)
