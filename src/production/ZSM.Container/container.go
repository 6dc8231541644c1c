package container

import (
	"context"
	"fmt"
	"sync"

	config "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Config"
	zsmgenerator "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Generator"
	liveness "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Liveness"
	logger "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Logger"
	metrics "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Metrics"
	monitor "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Monitor"
	publisher "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Publisher"
)

// SimulatorContainer manages dependencies of the simulator service and their
// lifecycle
type SimulatorContainer struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	generator *zsmgenerator.Generator
	monitor   *monitor.Monitor
	liveness  *liveness.Server
	sinks     []monitor.ReadingSink

	// Mutex for thread-safe access
	mu sync.Mutex

	// Cleanup functions
	cleanupFuncs []func() error
}

// NewSimulatorContainer loads configuration and wires the service
func NewSimulatorContainer() (*SimulatorContainer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(&cfg.Logging)

	return Build(cfg, log)
}

// Build wires the service from an already loaded configuration
func Build(cfg *config.Config, log *logger.Logger) (*SimulatorContainer, error) {
	if log == nil {
		log = logger.Nop()
	}

	c := &SimulatorContainer{
		config:    cfg,
		logger:    log,
		metrics:   metrics.NewMetrics(),
		generator: zsmgenerator.New(),
	}

	if cfg.MQTT.Enabled {
		mq, err := publisher.NewMQTTPublisher(cfg.MQTT, cfg.GetMQTTBrokerURL(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to start MQTT mirror: %w", err)
		}
		c.sinks = append(c.sinks, mq)
		c.AddCleanupFunc(mq.Close)
	}

	if cfg.Kafka.Enabled {
		kp := publisher.NewKafkaPublisher(cfg.Kafka, log)
		c.sinks = append(c.sinks, kp)
		c.AddCleanupFunc(kp.Close)
	}

	c.monitor = monitor.New(
		monitor.Config{
			APIToken:     cfg.Device.APIToken,
			DeviceID:     cfg.Device.DeviceID,
			Interval:     cfg.Monitor.Interval(),
			StartupDelay: cfg.Monitor.StartupDelay,
		},
		c.generator,
		log,
		monitor.WithSinks(c.sinks...),
		monitor.WithMetrics(c.metrics),
	)

	if cfg.Server.Enabled {
		c.liveness = liveness.NewServer(cfg.Server, c.metrics, log)
	}

	return c, nil
}

// GetConfig returns the configuration
func (c *SimulatorContainer) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *SimulatorContainer) GetLogger() *logger.Logger {
	return c.logger
}

// GetMetrics returns the loop metrics
func (c *SimulatorContainer) GetMetrics() *metrics.Metrics {
	return c.metrics
}

// GetMonitor returns the monitoring loop
func (c *SimulatorContainer) GetMonitor() *monitor.Monitor {
	return c.monitor
}

// GetLiveness returns the liveness server, or nil in the worker-only shape
func (c *SimulatorContainer) GetLiveness() *liveness.Server {
	return c.liveness
}

// Sinks returns the configured reading mirrors
func (c *SimulatorContainer) Sinks() []monitor.ReadingSink {
	return c.sinks
}

// AddCleanupFunc adds a cleanup function
func (c *SimulatorContainer) AddCleanupFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown releases every dependency in reverse order of creation
func (c *SimulatorContainer) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down simulator container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Simulator container shutdown complete")
	return nil
}
