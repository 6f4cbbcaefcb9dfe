// w1tail attaches a durable pull consumer to the readings queue and
// prints every payload, verifying the pipeline end to end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/danglock/ict-temperature/internal/bus/natsjs"
	"github.com/danglock/ict-temperature/internal/config"
	"github.com/danglock/ict-temperature/internal/logging"
	"github.com/danglock/ict-temperature/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	durable := flag.String("durable", "w1tail", "durable consumer name")
	raw := flag.Bool("raw", false, "print raw payloads instead of parsed fields")
	flag.Parse()

	if err := run(*configPath, *durable, *raw); err != nil {
		fmt.Fprintln(os.Stderr, "w1tail:", err)
		os.Exit(1)
	}
}

func run(configPath, durable string, raw bool) error {
	path, err := config.Find(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{Level: "warn", Encoding: "console"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := natsjs.Connect(natsjs.Config{
		URL:            cfg.NATS.URL,
		Prefix:         cfg.NATS.Prefix,
		ConnectTimeout: cfg.NATS.ConnectTimeout.Std(),
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.NATS.URL, err)
	}
	defer func() { _ = client.Close() }()

	pc, err := client.NewPullConsumer(durable, cfg.Queue.Name, 256)
	if err != nil {
		return fmt.Errorf("attach consumer to %q: %w", cfg.Queue.Name, err)
	}

	for {
		msgs, err := pc.Fetch(ctx, 64, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			log.Warn("fetch", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		for _, m := range msgs {
			printPayload(m.Data(), raw)
			_ = m.Ack()
		}
	}
}

func printPayload(data []byte, raw bool) {
	if !raw {
		if p, err := telemetry.DecodePayload(data); err == nil {
			fmt.Printf("%s\t%s\n", p.Time, p.Temperature)
			return
		}
	}
	fmt.Printf("%s\n", data)
}
