// Package publisher owns the broker side of the pipeline: one process-wide
// MQTT connection, reconnected in the background on a fixed interval, and
// a fail-fast Publish for dispense commands.
package publisher

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/watervendor/dispense-gateway/internal/telemetry"
)

type Options struct {
	BrokerURL         string
	Username          string
	Password          string
	BaseTopic         string
	ClientID          string
	ReconnectInterval time.Duration
	// InsecureTLS skips certificate chain verification. Some hosted
	// brokers present non-verifiable chains; enabling this is an
	// operational trade-off, never a default.
	InsecureTLS bool
	// PublishTimeout bounds how long Publish waits for broker
	// acknowledgment at QoS 1.
	PublishTimeout time.Duration
}

type MQTTPublisher struct {
	client         mqtt.Client
	baseTopic      string
	publishTimeout time.Duration
}

// NewMQTTPublisher configures the paho client but does not connect;
// call Connect once at startup.
func NewMQTTPublisher(opts Options) (*MQTTPublisher, error) {
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 10 * time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.ClientID == "" {
		opts.ClientID = "dispense-gateway"
	}

	u, err := url.Parse(opts.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("broker url: %w", err)
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(opts.ReconnectInterval).
		SetMaxReconnectInterval(opts.ReconnectInterval)

	if isTLSScheme(u.Scheme) && opts.InsecureTLS {
		clientOpts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}

	clientOpts.OnConnect = func(mqtt.Client) {
		telemetry.Logger.Info("Connected to MQTT broker")
	}
	clientOpts.OnConnectionLost = func(_ mqtt.Client, err error) {
		telemetry.Logger.Warn("MQTT connection lost, reconnecting",
			zap.Error(err),
			zap.Duration("retry_interval", opts.ReconnectInterval),
		)
	}

	return &MQTTPublisher{
		client:         mqtt.NewClient(clientOpts),
		baseTopic:      strings.TrimRight(opts.BaseTopic, "/"),
		publishTimeout: opts.PublishTimeout,
	}, nil
}

// Connect starts the connection attempt. With connect-retry enabled the
// paho client keeps trying in the background, so an unreachable broker at
// boot does not fail startup.
func (p *MQTTPublisher) Connect() {
	token := p.client.Connect()
	if token.WaitTimeout(p.publishTimeout) && token.Error() != nil {
		telemetry.Logger.Warn("Initial MQTT connect failed, retrying in background",
			zap.Error(token.Error()),
		)
	}
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

func (p *MQTTPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

type command struct {
	Msg int `json:"msg"`
}

// Publish sends the dispense command for one machine at QoS 1. It fails
// fast when the broker is unreachable; the caller decides what a dropped
// command means.
func (p *MQTTPublisher) Publish(_ context.Context, machineID string, volumeML int) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("broker not connected, command for machine %s dropped", machineID)
	}

	payload, err := json.Marshal(command{Msg: volumeML})
	if err != nil {
		return err
	}

	topic := fmt.Sprintf("%s/%s/comandos", p.baseTopic, machineID)
	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(p.publishTimeout) {
		return fmt.Errorf("publish to %s: timed out after %s", topic, p.publishTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish to %s: %w", topic, token.Error())
	}

	telemetry.Logger.Info("Dispense command published",
		zap.String("topic", topic),
		zap.Int("volume_ml", volumeML),
	)
	return nil
}

func isTLSScheme(scheme string) bool {
	switch scheme {
	case "ssl", "tls", "mqtts", "wss":
		return true
	}
	return false
}
