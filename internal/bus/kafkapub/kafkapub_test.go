package kafkapub

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesKeyedMessage(t *testing.T) {
	rw := &recordingWriter{}
	c := newClientWithWriter(rw, "28-00000a94b2f3")

	payload := []byte(`{"time":"12:00:00","temperature":"21.000"}`)
	if err := c.Publish(context.Background(), "my_queue", payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(rw.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(rw.msgs))
	}
	m := rw.msgs[0]
	if m.Topic != "my_queue" {
		t.Errorf("topic = %q, want my_queue", m.Topic)
	}
	if string(m.Key) != "28-00000a94b2f3" {
		t.Errorf("key = %q, want the source id", m.Key)
	}
	if string(m.Value) != string(payload) {
		t.Errorf("value = %s, want the payload", m.Value)
	}
	if m.Time.IsZero() {
		t.Error("message time not set")
	}
}

func TestPublishPropagatesWriteError(t *testing.T) {
	rw := &recordingWriter{err: errors.New("broker gone")}
	c := newClientWithWriter(rw, "src")
	if err := c.Publish(context.Background(), "q", []byte("x")); err == nil {
		t.Fatal("Publish swallowed the write error")
	}
}

func TestNewDefaultsSourceID(t *testing.T) {
	c := New(Config{Brokers: []string{"127.0.0.1:9092"}})
	if string(c.key) != "w1mond" {
		t.Errorf("key = %q, want default w1mond", c.key)
	}
}

func TestCloseClosesWriter(t *testing.T) {
	rw := &recordingWriter{}
	c := newClientWithWriter(rw, "src")
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !rw.closed {
		t.Error("writer not closed")
	}
}
