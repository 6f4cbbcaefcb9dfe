// Package mqttpub is the MQTT queue driver, built on autopaho's
// reconnecting client.
package mqttpub

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"go.uber.org/zap"
)

type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// statusTopic carries retained online/offline availability; the will
// flips it to offline when the connection drops uncleanly.
const statusTopic = "w1mond/status"

type connection interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
	Disconnect(ctx context.Context) error
}

type Client struct {
	cm  connection
	qos byte
	log *zap.Logger
}

func newClientWithConnection(cm connection, qos byte, log *zap.Logger) *Client {
	return &Client{cm: cm, qos: qos, log: log}
}

// Connect establishes the managed connection. ctx governs the
// connection's lifetime: cancelling it tears the client down. The
// initial connection may still be pending on return; publishes fail
// until the broker is reachable.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	brokerURL, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("parse mqtt broker url: %w", err)
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "w1mond"
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: cfg.Username,
		ConnectPassword: []byte(cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   statusTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			log.Info("mqtt connected", zap.String("broker", cfg.Broker))
			if _, err := cm.Publish(ctx, &paho.Publish{
				Topic:   statusTopic,
				Payload: []byte("online"),
				QoS:     1,
				Retain:  true,
			}); err != nil {
				log.Warn("mqtt status publish failed", zap.Error(err))
			}
		},
		OnConnectError: func(err error) {
			log.Warn("mqtt connection error", zap.Error(err))
		},
		ClientConfig: paho.ClientConfig{ClientID: clientID},
	}
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		log.Warn("mqtt initial connection pending, retrying in background",
			zap.Error(err))
	}
	return &Client{cm: cm, qos: cfg.QoS, log: log}, nil
}

// Publish sends payload to the topic named by queue.
func (c *Client) Publish(ctx context.Context, queue string, payload []byte) error {
	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   queue,
		Payload: payload,
		QoS:     c.qos,
	})
	return err
}

// Close marks the daemon offline and disconnects.
func (c *Client) Close(ctx context.Context) error {
	if c.cm == nil {
		return nil
	}
	if _, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   statusTopic,
		Payload: []byte("offline"),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		c.log.Warn("mqtt status publish failed", zap.Error(err))
	}
	return c.cm.Disconnect(ctx)
}
