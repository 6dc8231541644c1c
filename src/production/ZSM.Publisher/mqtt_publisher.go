package publisher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	config "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Config"
	logger "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Logger"
	zsmmodels "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Models"
)

const connectWait = 10 * time.Second

// ErrNotConnected is returned when a reading is published while the broker is down.
var ErrNotConnected = errors.New("mqtt client not connected")

// MQTTPublisher mirrors readings to <prefix>/<device_id>/readings.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
	qos         byte
	logger      *logger.Logger
}

// NewMQTTPublisher connects to the broker. A broker that is not reachable yet
// is not an error: the client keeps retrying in the background and readings
// published meanwhile are reported as failed.
func NewMQTTPublisher(cfg config.MQTTConfig, brokerURL string, log *logger.Logger) (*MQTTPublisher, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("mqtt")

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "zsm-simulator-" + uuid.New().String()[:8]
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetKeepAlive(cfg.KeepAlive).
		SetPingTimeout(cfg.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)

	if cfg.BrokerUser != "" {
		opts.SetUsername(cfg.BrokerUser)
		opts.SetPassword(cfg.BrokerPass)
	}

	if cfg.UseTLS {
		tlsCfg, err := tlsConfig(cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Logger.Error().Err(err).Msg("MQTT connection lost")
	}
	opts.OnConnect = func(_ mqtt.Client) {
		log.Logger.Info().Str("broker", brokerURL).Msg("MQTT connected")
	}

	client := mqtt.NewClient(opts)
	if tk := client.Connect(); !tk.WaitTimeout(connectWait) {
		log.Logger.Warn().Str("broker", brokerURL).Msg("MQTT broker not reachable yet, retrying in background")
	} else if tk.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tk.Error())
	}

	return newMQTTPublisher(client, cfg, log), nil
}

func newMQTTPublisher(client mqtt.Client, cfg config.MQTTConfig, log *logger.Logger) *MQTTPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &MQTTPublisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		qos:         byte(cfg.QoS),
		logger:      log,
	}
}

// Name identifies the sink in logs and metrics.
func (p *MQTTPublisher) Name() string { return "mqtt" }

// Topic returns the topic readings of deviceID are published on.
func (p *MQTTPublisher) Topic(deviceID string) string {
	return fmt.Sprintf("%s/%s/readings", p.topicPrefix, deviceID)
}

// Publish sends one reading and waits for the broker or ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, reading zsmmodels.Reading) error {
	if p.client == nil || !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := encodeReading(reading)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	topic := p.Topic(reading.DeviceID)
	token := p.client.Publish(topic, p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.Logger.Debug().Str("topic", topic).Msg("reading mirrored")
	return nil
}

// Close disconnects from the broker and stops any pending connect retries.
func (p *MQTTPublisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(250)
	}
	return nil
}

func tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}
