package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ActivityProducer mirrors project-room broadcasts onto a Kafka topic. It
// implements realtime.ActivityPublisher; the dispatcher treats it as best
// effort, so writes are async-batched and never block fan-out.
type ActivityProducer struct {
	writer *kafka.Writer
}

type activityRecord struct {
	ProjectID uint      `json:"project_id"`
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	EmittedAt time.Time `json:"emitted_at"`
}

func NewActivityProducer(brokers []string, topic string) *ActivityProducer {
	return &ActivityProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 100 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
	}
}

func (p *ActivityProducer) Publish(ctx context.Context, projectID uint, event string, payload any) error {
	value, err := json.Marshal(activityRecord{
		ProjectID: projectID,
		Event:     event,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode activity record: %w", err)
	}

	// Keyed by project so one project's activity stays ordered per partition.
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("project-%d", projectID)),
		Value: value,
	})
}

func (p *ActivityProducer) Close() error {
	return p.writer.Close()
}
