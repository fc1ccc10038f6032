package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap/zaptest"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed++
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "booking-events", zaptest.NewLogger(t))

	payload := map[string]string{"type": "booking.created"}
	if err := p.Publish(context.Background(), "room-1", payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "room-1" {
		t.Errorf("key = %q", msg.Key)
	}
	var got map[string]string
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if got["type"] != "booking.created" {
		t.Errorf("payload = %v", got)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := newKafkaPublisher(&fakeWriter{err: boom}, "booking-events", zaptest.NewLogger(t))

	if err := p.Publish(context.Background(), "room-1", struct{}{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "booking-events", zaptest.NewLogger(t))

	_ = p.Close()
	_ = p.Close()
	if w.closed != 1 {
		t.Fatalf("writer closed %d times, want 1", w.closed)
	}
	if err := p.Publish(context.Background(), "room-1", struct{}{}); !errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("err = %v, want ErrPublisherClosed", err)
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	log := zaptest.NewLogger(t)
	if _, err := NewKafkaPublisher(nil, "t", log); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, "", log); err == nil {
		t.Error("expected error without topic")
	}
}
