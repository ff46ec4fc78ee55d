package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/haidervirk/hatch-chat/pkg/model"
)

// KafkaDispatcher hands push jobs to the notifier service through Kafka so
// provider latency can never delay live delivery.
type KafkaDispatcher struct {
	writer *kafka.Writer
}

func NewKafkaDispatcher(brokers []string, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (d *KafkaDispatcher) Push(ctx context.Context, job model.PushJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.UserID),
		Value: payload,
	})
}

func (d *KafkaDispatcher) Close() error { return d.writer.Close() }
