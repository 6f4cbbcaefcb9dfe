// Package embeddednats runs an in-process JetStream server for
// single-box deployments and integration tests.
package embeddednats

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	natssrv "github.com/nats-io/nats-server/v2/server"
)

type Config struct {
	Host string
	// Port 0 means the default 14222; negative picks a random free port.
	Port int
	// HTTPPort 0 means the default 18222; negative disables monitoring.
	HTTPPort int
	StoreDir string
}

type Server struct {
	s *natssrv.Server
}

func Start(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	switch {
	case cfg.Port == 0:
		cfg.Port = 14222
	case cfg.Port < 0:
		cfg.Port = natssrv.RANDOM_PORT
	}
	switch {
	case cfg.HTTPPort == 0:
		cfg.HTTPPort = 18222
	case cfg.HTTPPort < 0:
		cfg.HTTPPort = 0
	}
	if cfg.StoreDir == "" {
		cfg.StoreDir = "data/nats"
	}
	if err := os.MkdirAll(cfg.StoreDir, 0o755); err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(cfg.StoreDir)

	opts := &natssrv.Options{
		ServerName: "w1mon-embedded-nats",
		Host:       cfg.Host,
		Port:       cfg.Port,
		HTTPHost:   cfg.Host,
		HTTPPort:   cfg.HTTPPort,

		JetStream: true,
		StoreDir:  abs,

		NoSigs: true,
		// Keep the embedded server quiet; the daemon's own logs and
		// status API cover it.
		NoLog: true,
	}

	s, err := natssrv.NewServer(opts)
	if err != nil {
		return nil, err
	}
	go s.Start()
	if !s.ReadyForConnections(5 * time.Second) {
		s.Shutdown()
		return nil, fmt.Errorf("embedded nats not ready on %s:%d", cfg.Host, cfg.Port)
	}
	return &Server{s: s}, nil
}

// ClientURL is the address clients should dial; it reflects the bound
// port even when a random one was requested.
func (s *Server) ClientURL() string {
	return s.s.ClientURL()
}

func (s *Server) Shutdown() {
	if s == nil || s.s == nil {
		return
	}
	s.s.Shutdown()
}
