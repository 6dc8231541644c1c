package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Logger"
	metrics "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Metrics"
	zsmmodels "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Models"
)

const (
	unknownError   = "unknown error"
	publishTimeout = 5 * time.Second
	bannerRule     = "==================================================="
)

// ReadingSource produces reading batches for a device.
type ReadingSource interface {
	Generate(apiToken, deviceID string) zsmmodels.ReadingBatch
}

// ReadingSink receives every successful reading in addition to the log stream.
type ReadingSink interface {
	Name() string
	Publish(ctx context.Context, reading zsmmodels.Reading) error
}

// Config is fixed for the lifetime of a Monitor.
type Config struct {
	APIToken     string
	DeviceID     string
	Interval     time.Duration
	StartupDelay time.Duration
}

// Monitor periodically requests a reading and logs it.
type Monitor struct {
	cfg     Config
	source  ReadingSource
	sinks   []ReadingSink
	sleeper Sleeper
	logger  *logger.Logger
	metrics *metrics.Metrics
	runID   string

	wg sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSleeper replaces the timer-based sleeper.
func WithSleeper(s Sleeper) Option {
	return func(m *Monitor) {
		if s != nil {
			m.sleeper = s
		}
	}
}

// WithSinks adds mirrors that receive every reading. Nil sinks are skipped.
func WithSinks(sinks ...ReadingSink) Option {
	return func(m *Monitor) {
		for _, s := range sinks {
			if s != nil {
				m.sinks = append(m.sinks, s)
			}
		}
	}
}

// WithMetrics records loop activity in mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(m *Monitor) {
		if id != "" {
			m.runID = id
		}
	}
}

// New creates a Monitor reading from source and logging through log.
func New(cfg Config, source ReadingSource, log *logger.Logger, opts ...Option) *Monitor {
	if log == nil {
		log = logger.Nop()
	}
	m := &Monitor{
		cfg:     cfg,
		source:  source,
		sleeper: TimerSleeper{},
		logger:  log.WithComponent("monitor"),
		runID:   uuid.New().String(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunID identifies this simulation run in the log stream.
func (m *Monitor) RunID() string {
	return m.runID
}

// Start runs the loop in its own goroutine. The returned channel receives
// the result of Run and is closed once the loop has returned.
func (m *Monitor) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		done <- m.Run(ctx)
	}()
	return done
}

// Wait blocks until a started loop returns or timeout elapses. It reports
// whether the loop finished.
func (m *Monitor) Wait(timeout time.Duration) bool {
	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Run executes checks until ctx is cancelled. Failed checks are logged and the
// schedule continues unchanged.
func (m *Monitor) Run(ctx context.Context) error {
	if m.cfg.Interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %s", m.cfg.Interval)
	}

	m.startupBanner()

	if m.cfg.StartupDelay > 0 {
		if err := m.sleeper.Sleep(ctx, m.cfg.StartupDelay); err != nil {
			m.shutdownBanner()
			return nil
		}
	}

	seconds := int(m.cfg.Interval / time.Second)
	for {
		if ctx.Err() != nil {
			m.shutdownBanner()
			return nil
		}

		m.check(ctx)

		m.logger.Logger.Info().Int("next_check_s", seconds).Msgf("--- next check in %d seconds ---", seconds)
		if err := m.sleeper.Sleep(ctx, m.cfg.Interval); err != nil {
			m.shutdownBanner()
			return nil
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	m.metrics.Iteration()

	batch := m.source.Generate(m.cfg.APIToken, m.cfg.DeviceID)
	if !batch.Success || len(batch.Readings) == 0 {
		msg := batch.Message
		if msg == "" {
			msg = unknownError
		}
		m.metrics.Failure()
		m.logger.Logger.Error().Str("error", msg).Msg("[ERROR] " + msg)
		return
	}

	for _, reading := range batch.Readings {
		flat := reading.Flatten()
		m.logger.Logger.Info().Fields(flat.Map()).Msg("new reading: " + flat.String())
		m.metrics.Reading(float64(time.Now().Unix()))
		m.forward(ctx, reading)
	}
}

func (m *Monitor) forward(ctx context.Context, reading zsmmodels.Reading) {
	for _, sink := range m.sinks {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := sink.Publish(pctx, reading)
		cancel()
		if err != nil {
			m.metrics.SinkError(sink.Name())
			m.logger.Logger.Warn().Err(err).Str("sink", sink.Name()).Msg("failed to forward reading")
		}
	}
}

func (m *Monitor) startupBanner() {
	m.logger.Logger.Info().Msg(bannerRule)
	m.logger.Logger.Info().
		Str("device_id", m.cfg.DeviceID).
		Str("run_id", m.runID).
		Int("interval_s", int(m.cfg.Interval/time.Second)).
		Msgf("starting soil sensor simulation for device %s", m.cfg.DeviceID)
	m.logger.Logger.Info().Msg(bannerRule)
}

func (m *Monitor) shutdownBanner() {
	m.logger.Logger.Info().Str("run_id", m.runID).Msg("simulation stopped, shutting down")
}
