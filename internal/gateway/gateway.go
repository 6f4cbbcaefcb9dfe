// Package gateway serializes readings and pushes them to the queue.
package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danglock/ict-temperature/internal/bus"
	"github.com/danglock/ict-temperature/internal/telemetry"
)

// Gateway is the monitor's single outbound capability: push one payload
// to the configured queue.
type Gateway struct {
	pub     bus.Publisher
	queue   string
	timeout time.Duration
	log     *zap.Logger
}

func New(pub bus.Publisher, queue string, timeout time.Duration, log *zap.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{pub: pub, queue: queue, timeout: timeout, log: log}
}

// Publish pushes one reading. Failures are contained: logged, reported
// in the result, and never escalated to the caller.
func (g *Gateway) Publish(ctx context.Context, r telemetry.Reading) telemetry.PublishResult {
	payload, err := telemetry.EncodePayload(r)
	if err != nil {
		g.log.Error("encode payload", zap.Error(err))
		return telemetry.PublishResult{Detail: "encode payload: " + err.Error()}
	}

	pctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.pub.Publish(pctx, g.queue, payload); err != nil {
		g.log.Warn("publish failed",
			zap.String("queue", g.queue),
			zap.Error(err))
		return telemetry.PublishResult{Detail: err.Error()}
	}

	g.log.Debug("published",
		zap.String("queue", g.queue),
		zap.Float64("celsius", r.Celsius))
	return telemetry.PublishResult{OK: true}
}

// Queue reports the configured queue name.
func (g *Gateway) Queue() string { return g.queue }
