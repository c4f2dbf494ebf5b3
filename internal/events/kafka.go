package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/ray-cod/pocket-bank/internal/domain"
)

// KafkaPublisher writes one message per committed transaction record,
// keyed by account id so a partition preserves per-account order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) PublishRecord(ctx context.Context, rec domain.TransactionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.AccountID.String()),
		Value: data,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
