package kafka

// Topics для событий доставки. Один фиксированный topic играет роль
// долговечной очереди, общей для релея (producer) и процессора (consumer).
const (
	TopicOrderEvents     = "delivery.order.events"
	TopicDeadLetterQueue = "delivery.order.dlq"
)

// DefaultConsumerGroup — группа процессора событий заказа.
const DefaultConsumerGroup = "delivery-order-processor"
