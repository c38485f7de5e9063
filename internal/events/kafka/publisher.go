// Package kafka publishes notifications to a Kafka topic. Kafka is the source
// of truth for the observable event log; off-chain indexers consume the topic
// rather than polling the service.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"facepay/internal/events"
)

// DefaultTopic is where notifications land unless configured otherwise.
const DefaultTopic = "facepay.notifications"

// Publisher produces one JSON record per notification. Records are keyed by
// the notification key (profile or receipt ID) so per-entity ordering
// survives partitioning.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithTopic overrides the destination topic.
func WithTopic(topic string) Option {
	return func(p *Publisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

// WithLogger sets a logger for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// New connects to the brokers and ensures the topic exists. Idempotent
// production is franz-go's default; we keep it.
func New(ctx context.Context, brokers []string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}

	p := &Publisher{client: client, topic: DefaultTopic}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopic(ctx, 3, 1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("kafka: ensure topic %q: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("kafka: ensure topic %q: %w", p.topic, resp.Err)
	}
	return nil
}

// Publish produces synchronously. Callers that cannot tolerate broker latency
// should wrap this publisher in an events.Worker.
func (p *Publisher) Publish(ctx context.Context, n events.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", n.Kind(), err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(n.Key()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(n.Kind())},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce %s: %w", n.Kind(), err)
	}
	if p.logger != nil {
		p.logger.DebugContext(ctx, "notification published",
			"kind", string(n.Kind()),
			"key", n.Key(),
			"topic", p.topic,
		)
	}
	return nil
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
