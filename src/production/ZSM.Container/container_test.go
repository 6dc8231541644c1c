package container

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	config "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Config"
	logger "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Logger"
)

func TestBuildDefaultShape(t *testing.T) {
	cfg := config.Default()
	c, err := Build(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if c.GetMonitor() == nil {
		t.Fatalf("monitor not wired")
	}
	if c.GetLiveness() == nil {
		t.Fatalf("liveness should be enabled by default")
	}
	if len(c.Sinks()) != 0 {
		t.Fatalf("no mirrors expected by default, got %d", len(c.Sinks()))
	}
	if c.GetMetrics() == nil || c.GetConfig() != cfg {
		t.Fatalf("container getters not wired")
	}
}

func TestBuildWorkerOnlyWithKafka(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Enabled = false
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}

	c, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if c.GetLiveness() != nil {
		t.Fatalf("liveness should be disabled")
	}
	if len(c.Sinks()) != 1 || c.Sinks()[0].Name() != "kafka" {
		t.Fatalf("expected kafka mirror, got %v", c.Sinks())
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestShutdownRunsCleanupInReverse(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLoggerWithWriter(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	c, err := Build(config.Default(), log)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var order []int
	c.AddCleanupFunc(func() error { order = append(order, 1); return nil })
	c.AddCleanupFunc(func() error { order = append(order, 2); return errors.New("flaky") })

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("unexpected cleanup order %v", order)
	}
	if !strings.Contains(buf.String(), "flaky") {
		t.Fatalf("cleanup error was not logged: %s", buf.String())
	}

	order = nil
	_ = c.Shutdown(context.Background())
	if len(order) != 0 {
		t.Fatalf("cleanup ran twice")
	}
}
