package liveness

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	config "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Config"
	logger "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Logger"
	metrics "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIndexReturnsRunningMessage(t *testing.T) {
	router := NewRouter(metrics.NewMetrics(), logger.Nop())

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s /: expected 200, got %d", method, rr.Code)
		}
		if method == http.MethodGet && rr.Body.String() != RunningMessage {
			t.Fatalf("unexpected body %q", rr.Body.String())
		}
	}
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(metrics.NewMetrics(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestMetricsRoute(t *testing.T) {
	mt := metrics.NewMetrics()
	mt.Iteration()
	router := NewRouter(mt, logger.Nop())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "simulator_checks_total 1") {
		t.Fatalf("metrics missing from body:\n%s", rr.Body.String())
	}
}

func TestServerServesOverTCP(t *testing.T) {
	cfg := config.ServerConfig{Port: "0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	s := NewServer(cfg, metrics.NewMetrics(), logger.Nop())

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != RunningMessage {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
}

func TestStartAndShutdown(t *testing.T) {
	cfg := config.ServerConfig{Port: "0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	s := NewServer(cfg, metrics.NewMetrics(), logger.Nop())

	errCh := s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err, ok := <-errCh; ok && err != nil {
		t.Fatalf("unexpected serve error: %v", err)
	}
}
