package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func buildMessage(t *testing.T, key string) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey(key).
		WithEventType("lease.acquired").
		WithValue(map[string]string{"causaId": key}).
		Build()
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	return msg
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, "eje.causas.events")

	if err := p.Publish(context.Background(), buildMessage(t, "c1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(w.messages) != 1 {
		t.Fatalf("expected 1 message written, got %d", len(w.messages))
	}
	got := w.messages[0]
	if string(got.Key) != "c1" {
		t.Errorf("key = %q", got.Key)
	}
	var sawType bool
	for _, h := range got.Headers {
		if h.Key == HeaderEventType && string(h.Value) == "lease.acquired" {
			sawType = true
		}
	}
	if !sawType {
		t.Error("event-type header missing")
	}
}

func TestProducer_PublishValidation(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, nil, "t")

	if err := p.Publish(context.Background(), Message{Value: []byte("{}")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, nil, "t")

	var order []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "first")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "second")
		return next(ctx, msg)
	})

	if err := p.Publish(context.Background(), buildMessage(t, "c1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("middleware order = %v", order)
	}
}

func TestProducer_DLQOnFailure(t *testing.T) {
	writeErr := errors.New("broker unavailable")
	w := &fakeWriter{err: writeErr}
	dlq := &fakeWriter{}
	p := NewProducerWithWriter(w, dlq, "eje.causas.events")

	err := p.Publish(context.Background(), buildMessage(t, "c1"))
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected original error, got %v", err)
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("expected message in DLQ, got %d", len(dlq.messages))
	}
	var sawOrigin bool
	for _, h := range dlq.messages[0].Headers {
		if h.Key == HeaderOriginalTopic && string(h.Value) == "eje.causas.events" {
			sawOrigin = true
		}
	}
	if !sawOrigin {
		t.Error("original-topic header missing on DLQ message")
	}
}

func TestProducer_Closed(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, "t")
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
	if err := p.Publish(context.Background(), buildMessage(t, "c1")); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestMessageBuilder_EncodingError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if err == nil {
		t.Fatal("expected encoding error")
	}
}

func TestMessageBuilder_Defaults(t *testing.T) {
	msg := buildMessage(t, "c1")
	if msg.GetEventID() == "" {
		t.Error("event id should be generated")
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Error("timestamp header should be set")
	}
}
