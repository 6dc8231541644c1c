package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	config "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Config"
	logger "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Logger"
	zsmmodels "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors readings to <prefix>.<device_id>, keyed by device.
type KafkaPublisher struct {
	w           messageWriter
	topicPrefix string
	logger      *logger.Logger
}

// NewKafkaPublisher creates a writer for the configured brokers. Connections
// are opened lazily on the first publish.
func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, cfg, log)
}

func newKafkaPublisher(w messageWriter, cfg config.KafkaConfig, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaPublisher{
		w:           w,
		topicPrefix: cfg.TopicPrefix,
		logger:      log.WithComponent("kafka"),
	}
}

// Name identifies the sink in logs and metrics.
func (p *KafkaPublisher) Name() string { return "kafka" }

// Topic returns the topic readings of deviceID are written to.
func (p *KafkaPublisher) Topic(deviceID string) string {
	return p.topicPrefix + "." + deviceID
}

// Publish writes one reading keyed by its device id.
func (p *KafkaPublisher) Publish(ctx context.Context, reading zsmmodels.Reading) error {
	b, err := encodeReading(reading)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	msg := kafka.Message{
		Topic: p.Topic(reading.DeviceID),
		Key:   []byte(reading.DeviceID),
		Value: b,
		Time:  time.Now(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	p.logger.Logger.Debug().Str("topic", msg.Topic).Msg("reading mirrored")
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
