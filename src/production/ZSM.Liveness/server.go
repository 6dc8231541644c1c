package liveness

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	config "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Config"
	logger "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Logger"
	metrics "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Metrics"
)

// RunningMessage is the body returned to the hosting platform's probe.
const RunningMessage = "service is running; check logs for data"

// Server answers liveness probes. It never touches simulator state.
type Server struct {
	srv    *http.Server
	logger *logger.Logger
}

// NewRouter builds the gin engine with the probe routes.
func NewRouter(mt *metrics.Metrics, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/", Index)
	router.HEAD("/", Index)
	router.GET("/health/live", HealthLive)
	router.GET("/metrics", gin.WrapH(mt.Handler()))

	return router
}

// Index confirms the process is alive.
func Index(ctx *gin.Context) {
	ctx.String(http.StatusOK, RunningMessage)
}

// HealthLive reports that the HTTP server is up.
func HealthLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		if log == nil {
			return
		}
		log.Logger.Debug().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("probe served")
	}
}

// NewServer creates the HTTP server for the liveness endpoint
func NewServer(cfg config.ServerConfig, mt *metrics.Metrics, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("liveness")
	return &Server{
		srv: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      NewRouter(mt, log),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: log,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens in a background goroutine. Errors other than a normal
// shutdown are delivered on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		errCh <- err
		close(errCh)
		return errCh
	}
	s.logger.Info("HTTP server starting on " + ln.Addr().String())
	go func() {
		defer close(errCh)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown stops accepting probes and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
