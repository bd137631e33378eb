package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"couplecoach/backend/go/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter 是 kafka.Writer 中发布事件所需的部分。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// EventPublisher 封装了向 Kafka 发送记忆事件的逻辑。
type EventPublisher struct {
	writer MessageWriter
	topic  string
}

// NewEventPublisher 创建一个新的 EventPublisher 实例。
func NewEventPublisher(writer MessageWriter, topic string) *EventPublisher {
	return &EventPublisher{writer: writer, topic: topic}
}

// PublishMemoryEvent 将 MemoryEvent 序列化为 JSON 并发送到 Kafka，以用户 ID 作为消息键。
func (p *EventPublisher) PublishMemoryEvent(ctx context.Context, event *models.MemoryEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal memory event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.UserID),
		Value: jsonData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}
