package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/deliverysystem/dts/internal/domain"
)

// OutboxTopicPublisher публикует строки outbox в фиксированный topic.
// Телом сообщения служит payload строки как есть, ключом — идентификатор
// заказа из payload, чтобы события одного заказа попадали в одну partition.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.EventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := orderKeyFromPayload(event.Payload)
	if key == "" {
		key = event.ID
	}

	return p.producer.Publish(p.topic, key, event.Payload)
}

// orderKeyFromPayload достаёт OrderId из JSON-тела события.
// Пустая строка — если поля нет или тело не разбирается.
func orderKeyFromPayload(payload []byte) string {
	var head struct {
		OrderID string `json:"OrderId"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return ""
	}
	return head.OrderID
}

var _ domain.EventPublisher = (*OutboxTopicPublisher)(nil)
