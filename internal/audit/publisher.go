package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	// DefaultTopic is where audit events land unless configured otherwise.
	DefaultTopic = "memberd.audit"

	// publishTimeout bounds how long a single produce may hold the worker.
	publishTimeout = 5 * time.Second

	bufferSize = 256
)

// kafkaClient is the slice of *kgo.Client the publisher uses. Narrowed so
// tests can substitute a fake.
type kafkaClient interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaPublisher ships audit events to Kafka from a single background worker.
// Record never blocks: when the buffer is full the event is dropped and
// logged, because audit must not add latency or failure modes to
// member-facing requests.
type KafkaPublisher struct {
	client kafkaClient
	topic  string
	logger *slog.Logger

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// NewKafkaPublisher connects a publisher to the given brokers and starts its
// worker.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return newKafkaPublisher(client, topic, logger), nil
}

func newKafkaPublisher(client kafkaClient, topic string, logger *slog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	p := &KafkaPublisher{
		client: client,
		topic:  topic,
		logger: logger,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Record queues an event for publishing. Drops when the buffer is full.
func (p *KafkaPublisher) Record(_ context.Context, event Event) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"kind", event.Kind,
			"member_id", event.MemberID,
		)
	}
}

// Close drains queued events, flushes the producer and releases the client.
func (p *KafkaPublisher) Close() {
	p.once.Do(func() {
		close(p.events)
		<-p.done

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.client.Flush(ctx); err != nil {
			p.logger.Warn("audit flush failed", "error", err)
		}
		p.client.Close()
	})
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for event := range p.events {
		p.publish(event)
	}
}

func (p *KafkaPublisher) publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("audit event not serializable", "kind", event.Kind, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	record := &kgo.Record{
		Topic: p.topic,
		// Keyed by subject so one member's trail stays ordered per partition.
		Key:   []byte(event.MemberID.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit publish failed",
				"kind", event.Kind,
				"member_id", event.MemberID,
				"error", err,
			)
		}
	})
}

// Nop discards every event. Used when no brokers are configured and in tests
// that don't assert on auditing.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
