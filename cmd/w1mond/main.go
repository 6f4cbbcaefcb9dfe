package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/danglock/ict-temperature/internal/bus"
	"github.com/danglock/ict-temperature/internal/bus/embeddednats"
	"github.com/danglock/ict-temperature/internal/bus/kafkapub"
	"github.com/danglock/ict-temperature/internal/bus/mqttpub"
	"github.com/danglock/ict-temperature/internal/bus/natsjs"
	"github.com/danglock/ict-temperature/internal/config"
	"github.com/danglock/ict-temperature/internal/gateway"
	"github.com/danglock/ict-temperature/internal/httpapi"
	"github.com/danglock/ict-temperature/internal/logging"
	"github.com/danglock/ict-temperature/internal/monitor"
	"github.com/danglock/ict-temperature/internal/preflight"
	"github.com/danglock/ict-temperature/internal/readings"
	"github.com/danglock/ict-temperature/internal/version"
	"github.com/danglock/ict-temperature/internal/w1"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := preflight.Platform(runtime.GOOS); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// A .env next to the binary is optional; the real environment wins.
	_ = godotenv.Load()

	path, err := config.Find(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("w1mond starting",
		zap.String("version", version.String()),
		zap.String("config", path),
		zap.String("queue_driver", cfg.Queue.Driver),
		zap.String("queue", cfg.Queue.Name))

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Embedded NATS (optional), started before any client connects. The
	// client is pointed at the bound address so random ports work too.
	var emb *embeddednats.Server
	if cfg.Queue.Driver == "nats" && cfg.NATS.Embedded.Enabled {
		emb, err = embeddednats.Start(embeddednats.Config{
			Host:     cfg.NATS.Embedded.Host,
			Port:     cfg.NATS.Embedded.Port,
			HTTPPort: cfg.NATS.Embedded.HTTPPort,
			StoreDir: cfg.NATS.Embedded.StoreDir,
		})
		if err != nil {
			log.Fatal("embedded nats start", zap.Error(err))
		}
		log.Info("embedded nats started", zap.String("url", emb.ClientURL()))
		cfg.NATS.URL = emb.ClientURL()
	}

	reader, err := w1.Connect(cfg.Sensor.Pattern)
	if err != nil {
		log.Fatal("sensor connect", zap.Error(err))
	}
	if reader.Connected() {
		log.Info("sensor resolved", zap.String("device", reader.DeviceID()))
	} else {
		log.Warn("no one-wire temperature sensor found",
			zap.String("pattern", cfg.Sensor.Pattern))
		for _, hint := range preflight.SensorHints() {
			log.Warn("hint: " + hint)
		}
	}

	pub, closePub, err := buildPublisher(rootCtx, cfg, reader.DeviceID(), log)
	if err != nil {
		log.Fatal("queue driver init", zap.Error(err))
	}

	store := readings.NewStore(cfg.History.Size)
	gw := gateway.New(pub, cfg.Queue.Name, cfg.Queue.PublishTimeout.Std(), log)

	var httpSrv *http.Server
	if cfg.HTTP.Addr != "" {
		api := httpapi.New(store, httpapi.Info{
			DevicePattern:   cfg.Sensor.Pattern,
			DeviceID:        reader.DeviceID(),
			DeviceConnected: reader.Connected(),
			QueueDriver:     cfg.Queue.Driver,
			QueueName:       cfg.Queue.Name,
			Interval:        cfg.Monitor.Interval.Std(),
		})
		httpSrv = &http.Server{Addr: cfg.HTTP.Addr, Handler: api.Handler()}
		go func() {
			log.Info("http api listening", zap.String("addr", cfg.HTTP.Addr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http serve", zap.Error(err))
			}
		}()
	}

	mon := monitor.New(reader, gw, store, monitor.Config{
		Interval: cfg.Monitor.Interval.Std(),
	}, log)

	runErr := mon.Run(rootCtx)

	// Shutdown in reverse start order.
	if httpSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = httpSrv.Shutdown(sctx)
		cancel()
	}
	closePub()
	if emb != nil {
		emb.Shutdown()
	}

	if runErr != nil {
		log.Error("monitor stopped", zap.Error(runErr))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// buildPublisher wires the sink selected by queue.driver and returns it
// with its close routine.
func buildPublisher(ctx context.Context, cfg *config.Config, sourceID string, log *zap.Logger) (bus.Publisher, func(), error) {
	switch cfg.Queue.Driver {
	case "nats":
		client, err := natsjs.Connect(natsjs.Config{
			URL:            cfg.NATS.URL,
			Prefix:         cfg.NATS.Prefix,
			ConnectTimeout: cfg.NATS.ConnectTimeout.Std(),
		})
		if err != nil {
			return nil, nil, err
		}
		if err := client.EnsureStream(); err != nil {
			// Not fatal: the broker may be down right now and the
			// client retries per publish.
			log.Warn("ensure stream", zap.Error(err))
		}
		return client, func() {
			if err := client.Close(); err != nil {
				log.Warn("nats close", zap.Error(err))
			}
		}, nil

	case "mqtt":
		client, err := mqttpub.Connect(ctx, mqttpub.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      cfg.MQTT.QoS,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {
			cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := client.Close(cctx); err != nil {
				log.Warn("mqtt close", zap.Error(err))
			}
		}, nil

	case "kafka":
		client := kafkapub.New(kafkapub.Config{
			Brokers:  cfg.Kafka.Brokers,
			SourceID: sourceID,
		})
		return client, func() {
			if err := client.Close(); err != nil {
				log.Warn("kafka close", zap.Error(err))
			}
		}, nil

	case "stdout":
		return bus.NewStdoutPublisher(os.Stdout), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}
