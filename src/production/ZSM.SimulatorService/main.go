package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	container "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Container"
)

// loopGrace bounds how long shutdown waits for the monitoring loop.
const loopGrace = 2 * time.Second

var errLoopStopped = errors.New("monitoring loop stopped without a termination signal")

// loopFailure reports why the loop returned while ctx was still live. A loop
// that returns after cancellation is a normal shutdown.
func loopFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		return errLoopStopped
	}
	return fmt.Errorf("%w: %w", errLoopStopped, err)
}

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize dependency injection container
	ctr, err := container.NewSimulatorContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize container: %v\n", err)
		return 1
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	cfg := ctr.GetConfig()
	logger.Info("Starting soil sensor simulator")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := 0

	var srvErr <-chan error
	srv := ctr.GetLiveness()
	if srv != nil {
		srvErr = srv.Start()
	} else {
		logger.Info("Liveness endpoint disabled, running as worker only")
	}

	mon := ctr.GetMonitor()
	done := mon.Start(ctx)

	var loopErr error
	select {
	case <-ctx.Done():
	case err := <-done:
		loopErr = loopFailure(ctx, err)
	case err, ok := <-srvErr:
		if ok && err != nil {
			logger.ErrorWithError(err, "Liveness server failed")
			exitCode = 1
		}
	}
	stop()
	logger.Info("Shutting down...")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithError(err, "Liveness server forced to shutdown")
		}
		cancel()
	}

	if !mon.Wait(loopGrace) {
		logger.Warn("Monitoring loop did not stop in time")
	}

	if loopErr != nil {
		// FatalWithError exits without running deferred calls.
		_ = ctr.Shutdown(context.Background())
		logger.FatalWithError(loopErr, "Monitoring loop failed")
	}

	return exitCode
}
