package kafkapub

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string
	// SourceID keys every message so one sensor's readings stay on one
	// partition, in order.
	SourceID string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Client struct {
	w   messageWriter
	key []byte
}

func New(cfg Config) *Client {
	source := cfg.SourceID
	if source == "" {
		source = "w1mond"
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		// One reading per interval: flush every message immediately.
		BatchSize: 1,
	}
	return &Client{w: w, key: []byte(source)}
}

func newClientWithWriter(w messageWriter, sourceID string) *Client {
	return &Client{w: w, key: []byte(sourceID)}
}

// Publish writes payload to the topic named by queue.
func (c *Client) Publish(ctx context.Context, queue string, payload []byte) error {
	return c.w.WriteMessages(ctx, kafka.Message{
		Topic: queue,
		Key:   c.key,
		Value: payload,
		Time:  time.Now(),
	})
}

func (c *Client) Close() error { return c.w.Close() }
