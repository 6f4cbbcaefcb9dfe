// Package natsjs publishes to and consumes from NATS JetStream, the
// default queue driver.
package natsjs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/danglock/ict-temperature/internal/bus"
)

type Config struct {
	URL            string
	Prefix         string
	ConnectTimeout time.Duration
}

type Client struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	prefix string

	mu      sync.Mutex
	ensured bool
}

// Connect dials the broker. The connection keeps retrying in the
// background, so a broker that is down degrades to per-publish failures
// instead of a startup error.
func Connect(cfg Config) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("w1mond"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		_ = nc.Drain()
		nc.Close()
		return nil, err
	}
	return &Client{nc: nc, js: js, prefix: cfg.Prefix}, nil
}

func (c *Client) Close() error {
	if c.nc == nil {
		return nil
	}
	return c.nc.Drain()
}

func (c *Client) subject(queue string) string {
	if c.prefix == "" {
		return queue
	}
	return c.prefix + "." + queue
}

// StreamName is the JetStream stream holding every queue under the
// configured prefix.
func (c *Client) StreamName() string {
	return fmt.Sprintf("%s_readings", c.prefix)
}

// EnsureStream creates the readings stream if the broker does not have
// it yet.
func (c *Client) EnsureStream() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureStreamLocked()
}

func (c *Client) ensureStreamLocked() error {
	if c.ensured {
		return nil
	}
	name := c.StreamName()
	_, err := c.js.StreamInfo(name)
	if err == nil {
		c.ensured = true
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = c.js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  []string{c.subject(">")},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		// Readings carry a Nats-Msg-Id, let the broker drop duplicates.
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return err
	}
	c.ensured = true
	return nil
}

// Publish sends payload to queue under the subject prefix. The stream
// is ensured on demand: the broker may not have been up at startup.
func (c *Client) Publish(ctx context.Context, queue string, payload []byte) error {
	c.mu.Lock()
	err := c.ensureStreamLocked()
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}
	_, err = c.js.PublishMsg(&nats.Msg{
		Subject: c.subject(queue),
		Data:    payload,
		Header:  nats.Header{nats.MsgIdHdr: []string{uuid.NewString()}},
	}, nats.Context(ctx))
	return err
}

type pullConsumer struct {
	sub *nats.Subscription
}

// NewPullConsumer attaches a durable pull consumer to queue.
func (c *Client) NewPullConsumer(durable, queue string, maxAckPending int) (bus.PullConsumer, error) {
	if err := c.EnsureStream(); err != nil {
		return nil, err
	}
	sub, err := c.js.PullSubscribe(c.subject(queue), durable,
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxAckPending(maxAckPending),
	)
	if err != nil {
		return nil, err
	}
	return &pullConsumer{sub: sub}, nil
}

type msg struct {
	m *nats.Msg
}

func (m *msg) Data() []byte { return m.m.Data }
func (m *msg) Ack() error   { return m.m.Ack() }
func (m *msg) Nak() error   { return m.m.Nak() }
func (m *msg) Term() error  { return m.m.Term() }

func (pc *pullConsumer) Fetch(ctx context.Context, batch int, wait time.Duration) ([]bus.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msgs, err := pc.sub.Fetch(batch, nats.MaxWait(wait))
	if err != nil {
		return nil, err
	}
	out := make([]bus.Message, 0, len(msgs))
	for _, nm := range msgs {
		out = append(out, &msg{m: nm})
	}
	return out, nil
}
