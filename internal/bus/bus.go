package bus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Publisher delivers one payload to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload []byte) error
}

// PullConsumer drains messages from a queue.
type PullConsumer interface {
	// Fetch blocks up to wait time, returning up to batch messages.
	Fetch(ctx context.Context, batch int, wait time.Duration) ([]Message, error)
}

// Message is one queued payload with its acknowledgement controls.
type Message interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// StdoutPublisher writes one "<queue> <payload>" line per publish; the
// broker-less "stdout" driver for dry runs and tests.
type StdoutPublisher struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStdoutPublisher(w io.Writer) *StdoutPublisher {
	return &StdoutPublisher{w: w}
}

func (p *StdoutPublisher) Publish(_ context.Context, queue string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.w, "%s %s\n", queue, payload)
	return err
}
