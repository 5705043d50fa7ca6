package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"mic/internal/ledger"
	"mic/internal/ledger/models"
)

// KafkaPublisher produces each event as one record keyed by
// "<aggregate_type>:<aggregate_id>", keeping per-aggregate order within a
// partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(client *kgo.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []*models.Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, ev := range events {
		rec, err := Record(p.topic, ev)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	return p.client.ProduceSync(ctx, records...).FirstErr()
}

// Record builds the Kafka record for ev.
func Record(topic string, ev *models.Event) (*kgo.Record, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", ev.EventID, err)
	}
	version, err := ledger.ValidatePayload(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.EventID, err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(ev.AggregateType + ":" + ev.AggregateID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(version))},
			{Key: "event_id", Value: []byte(ev.EventID)},
		},
	}, nil
}
