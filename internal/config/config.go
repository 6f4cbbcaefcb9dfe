// Package config loads the daemon configuration from a YAML file with
// ${VAR} environment expansion, layered over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danglock/ict-temperature/internal/w1"
)

// Duration unmarshals from Go duration strings such as "300s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("duration %q: %w", value.Value, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Sensor struct {
	// Pattern is the shell glob matched against sysfs to locate
	// w1_slave nodes.
	Pattern string `yaml:"pattern"`
}

type Monitor struct {
	Interval Duration `yaml:"interval"`
}

type Queue struct {
	// Driver selects the sink: nats, mqtt, kafka or stdout.
	Driver         string   `yaml:"driver"`
	Name           string   `yaml:"name"`
	PublishTimeout Duration `yaml:"publish_timeout"`
}

type Embedded struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	HTTPPort int    `yaml:"http_port"`
	StoreDir string `yaml:"store_dir"`
}

type NATS struct {
	URL            string   `yaml:"url"`
	Prefix         string   `yaml:"prefix"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	Embedded       Embedded `yaml:"embedded"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
}

type History struct {
	Size int `yaml:"size"`
}

type HTTP struct {
	// Addr is the status API listen address; empty disables the API.
	Addr string `yaml:"addr"`
}

type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type Config struct {
	Sensor  Sensor  `yaml:"sensor"`
	Monitor Monitor `yaml:"monitor"`
	Queue   Queue   `yaml:"queue"`
	NATS    NATS    `yaml:"nats"`
	MQTT    MQTT    `yaml:"mqtt"`
	Kafka   Kafka   `yaml:"kafka"`
	History History `yaml:"history"`
	HTTP    HTTP    `yaml:"http"`
	Log     Log     `yaml:"log"`
}

func Default() Config {
	return Config{
		Sensor:  Sensor{Pattern: w1.DefaultPattern},
		Monitor: Monitor{Interval: Duration(5 * time.Minute)},
		Queue: Queue{
			Driver:         "nats",
			Name:           "my_queue",
			PublishTimeout: Duration(10 * time.Second),
		},
		NATS: NATS{
			URL:            "nats://127.0.0.1:4222",
			Prefix:         "w1mon",
			ConnectTimeout: Duration(5 * time.Second),
			Embedded: Embedded{
				Host:     "127.0.0.1",
				Port:     14222,
				HTTPPort: 18222,
				StoreDir: "data/nats",
			},
		},
		MQTT:    MQTT{Broker: "mqtt://127.0.0.1:1883", ClientID: "w1mond", QoS: 1},
		Kafka:   Kafka{Brokers: []string{"127.0.0.1:9092"}},
		History: History{Size: 288},
		HTTP:    HTTP{Addr: ":8080"},
		Log:     Log{Level: "info", Encoding: "json"},
	}
}

func (c *Config) Validate() error {
	if c.Sensor.Pattern == "" {
		return errors.New("sensor.pattern must not be empty")
	}
	if c.Monitor.Interval <= 0 {
		return errors.New("monitor.interval must be positive")
	}
	if c.Queue.Name == "" {
		return errors.New("queue.name must not be empty")
	}
	if c.Queue.PublishTimeout <= 0 {
		return errors.New("queue.publish_timeout must be positive")
	}
	switch c.Queue.Driver {
	case "nats", "mqtt", "kafka", "stdout":
	default:
		return fmt.Errorf("queue.driver %q: want nats, mqtt, kafka or stdout", c.Queue.Driver)
	}
	if c.Queue.Driver == "kafka" && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers must not be empty")
	}
	if c.History.Size < 0 {
		return errors.New("history.size must not be negative")
	}
	return nil
}

// DefaultSearchPaths lists where Find looks when no explicit path is
// given, in precedence order.
func DefaultSearchPaths() []string {
	return []string{"w1mond.yaml", "/etc/w1mond/w1mond.yaml"}
}

// Find resolves the config file to load. An explicit path must exist;
// otherwise the first search-path hit wins and "" means run on the
// built-in defaults.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Load reads path, expands ${VAR} references against the environment
// and unmarshals the result over Default(). An empty path yields the
// validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
