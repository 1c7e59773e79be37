package events

import (
	"context"
	"sync"

	"ejeapi/pkg/kafka"
	"ejeapi/pkg/logger"
	"ejeapi/pkg/metrics"
	"ejeapi/pkg/middleware"
)

const schemaVersion = "1"

// EventProducer is the publishing side of *kafka.Producer.
type EventProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// QueueConfig bounds the background send queue.
type QueueConfig struct {
	Size    int
	Workers int
}

// KafkaPublisher sends events from a bounded queue drained by a fixed set
// of workers, so request latency does not depend on the broker. When the
// queue is full the event is dropped and counted. Close drains the queue.
type KafkaPublisher struct {
	producer EventProducer
	source   string
	log      *logger.Logger

	queue  chan queuedMessage
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type queuedMessage struct {
	ctx context.Context
	evt Event
	msg kafka.Message
}

func NewKafkaPublisher(producer EventProducer, source string, queue QueueConfig, log *logger.Logger) *KafkaPublisher {
	queue.Size = max(queue.Size, 1)
	queue.Workers = max(queue.Workers, 1)

	p := &KafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
		queue:    make(chan queuedMessage, queue.Size),
	}
	for range queue.Workers {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *KafkaPublisher) run() {
	defer p.wg.Done()
	for q := range p.queue {
		if err := p.producer.Publish(q.ctx, q.msg); err != nil {
			p.log.Warn("Failed to publish event",
				"event_type", q.evt.Type,
				"event_id", q.evt.ID,
				"causa_id", q.evt.CausaID,
				"error", err,
			)
		}
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) {
	key := evt.CausaID
	if key == "" {
		key = evt.Type
	}

	msg, err := kafka.NewMessage().
		WithKey(key).
		WithEventID(evt.ID).
		WithEventType(evt.Type).
		WithCorrelationID(middleware.RequestID(ctx)).
		WithSchemaVersion(schemaVersion).
		WithSource(p.source).
		WithTimestamp(evt.OccurredAt).
		WithValue(evt).
		Build()
	if err != nil {
		p.log.Error("Failed to build event message", "event_type", evt.Type, "causa_id", evt.CausaID, "error", err)
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(evt, "publisher closed")
		return
	}

	select {
	case p.queue <- queuedMessage{ctx: context.WithoutCancel(ctx), evt: evt, msg: msg}:
	default:
		p.drop(evt, "queue full")
	}
}

func (p *KafkaPublisher) drop(evt Event, reason string) {
	metrics.EventsPublishedTotal.WithLabelValues(evt.Type, metrics.OutcomeDropped).Inc()
	p.log.Warn("Dropped event",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"causa_id", evt.CausaID,
		"reason", reason,
	)
}

// Close stops accepting events, waits for queued ones to be sent and
// closes the producer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.producer.Close()
}
