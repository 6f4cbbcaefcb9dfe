// Package monitor runs the periodic read-print-publish loop.
package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/danglock/ict-temperature/internal/telemetry"
)

// SensorReader samples the temperature sensor.
type SensorReader interface {
	Read() (telemetry.Reading, error)
}

// Publisher pushes one reading to the queue, reporting the outcome.
type Publisher interface {
	Publish(ctx context.Context, r telemetry.Reading) telemetry.PublishResult
}

// Recorder tracks samples and publish outcomes; the readings store
// implements it.
type Recorder interface {
	Add(r telemetry.Reading)
	NotePublish(res telemetry.PublishResult)
}

type Config struct {
	Interval time.Duration
	// Out receives the per-tick console line; defaults to os.Stdout.
	Out io.Writer
}

type Monitor struct {
	reader   SensorReader
	pub      Publisher
	rec      Recorder
	interval time.Duration
	out      io.Writer
	log      *zap.Logger
}

func New(reader SensorReader, pub Publisher, rec Recorder, cfg Config, log *zap.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Monitor{
		reader:   reader,
		pub:      pub,
		rec:      rec,
		interval: cfg.Interval,
		out:      cfg.Out,
		log:      log,
	}
}

// Run checks the sensor once, then samples it every interval until ctx
// ends. A failed sensor read stops the loop with an error; a failed
// publish does not. Each tick completes fully before the next wait, on
// a single goroutine.
func (m *Monitor) Run(ctx context.Context) error {
	probe, err := m.reader.Read()
	if err != nil {
		return fmt.Errorf("sensor check: %w", err)
	}
	m.log.Info("sensor check ok",
		zap.Float64("celsius", probe.Celsius),
		zap.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.tick(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) tick(ctx context.Context) error {
	r, err := m.reader.Read()
	if err != nil {
		return fmt.Errorf("sensor read: %w", err)
	}

	fmt.Fprintf(m.out, "[%s]\t%s\n",
		telemetry.Clock(r.Timestamp), telemetry.FormatCelsius(r.Celsius))

	m.rec.Add(r)
	m.rec.NotePublish(m.pub.Publish(ctx, r))
	return nil
}
