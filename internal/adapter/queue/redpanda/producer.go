// Package redpanda publishes interview domain events to Redpanda/Kafka.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
	obsctx "github.com/fairyhunter13/ai-mock-interview/internal/observability"
)

const (
	// EventAnswerEvaluated is carried in the event_type header.
	EventAnswerEvaluated = "answer.evaluated"

	defaultPublishTimeout = 5 * time.Second
)

// producerClient is the subset of *kgo.Client the publisher needs.
type producerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Producer implements domain.EventPublisher on a franz-go client.
type Producer struct {
	client  producerClient
	topic   string
	timeout time.Duration
}

// NewProducer connects to brokers, ensures the topic exists and returns a
// Producer with idempotent writes and OpenTelemetry hooks.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	slog.Info("creating redpanda producer", slog.Any("brokers", brokers), slog.String("topic", topic))

	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic name cannot be empty")
	}

	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))),
	)
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.RecordRetries(3),
		kgo.DialTimeout(10*time.Second),
		kgo.WithHooks(kotelService.Hooks()...),
	)
	if err != nil {
		slog.Error("failed to create redpanda client", slog.Any("error", err))
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	tctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := createTopicIfNotExists(tctx, client, topic, 3, 1); err != nil {
		// the broker may auto-create or the topic may be provisioned externally
		slog.Warn("failed to create topic", slog.String("topic", topic), slog.Any("error", err))
	}

	return newProducer(client, topic), nil
}

func newProducer(client producerClient, topic string) *Producer {
	return &Producer{client: client, topic: topic, timeout: defaultPublishTimeout}
}

// PublishAnswerEvaluated writes ev keyed by interview so events of one
// interview stay ordered within a partition.
func (p *Producer) PublishAnswerEvaluated(ctx domain.Context, ev domain.AnswerEvaluatedEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("op=events.publish: marshal: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.InterviewID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(EventAnswerEvaluated)},
			{Key: "answer_id", Value: []byte(ev.AnswerID)},
			{Key: "user_id", Value: []byte(ev.UserID)},
		},
	}

	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = p.client.ProduceSync(pctx, record).FirstErr()
	observability.CountEvent(p.topic, err)
	if err != nil {
		return fmt.Errorf("op=events.publish: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Debug("answer event published",
		slog.String("topic", p.topic),
		slog.String("answer_id", ev.AnswerID))
	return nil
}

// Close flushes and closes the client.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}

// NoopPublisher drops events; used when KAFKA_BROKERS is unset.
type NoopPublisher struct{}

// PublishAnswerEvaluated implements domain.EventPublisher.
func (NoopPublisher) PublishAnswerEvaluated(ctx domain.Context, ev domain.AnswerEvaluatedEvent) error {
	obsctx.LoggerFromContext(ctx).Debug("event publishing disabled", slog.String("answer_id", ev.AnswerID))
	return nil
}
