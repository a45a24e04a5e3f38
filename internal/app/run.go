// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/internal/bootstrap"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/scheduler"
	"github.com/sirupsen/logrus"
)

// shutdownTimeout bounds the whole graceful shutdown sequence.
const shutdownTimeout = 30 * time.Second

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start servers
	if err := a.grpcServer.Start(ctx); err != nil {
		return err
	}
	if err := a.httpServer.Start(ctx); err != nil {
		return err
	}

	go a.health.Watch(ctx, healthCheckInterval, func(healthy bool) {
		a.healthy.Store(healthy)
		a.grpcServer.SetServing(healthy)
	})

	schedulerDone := make(chan error, 1)
	if a.cfg.SchedulerEnabled {
		s := bootstrap.InitScheduler(a.manager, a.directory, a.pipelineConfig, a.recorder, false)
		go func() {
			schedulerDone <- s.Run(ctx)
		}()
	} else {
		logrus.Info("cycle scheduler disabled")
		close(schedulerDone)
	}

	logrus.Info("application started successfully")

	<-ctx.Done()
	logrus.Info("shutdown signal received")

	if err := <-schedulerDone; err != nil && !errors.Is(err, context.Canceled) {
		logrus.Errorf("cycle scheduler stopped with error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// RunOnce runs a single evaluation cycle over every enrolled user and returns
// its report. With dryRun nothing is written or dispatched.
func (a *App) RunOnce(ctx context.Context, dryRun bool) (scheduler.Report, error) {
	s := bootstrap.InitScheduler(a.manager, a.directory, a.pipelineConfig, a.recorder, dryRun)
	return s.RunOnce(ctx)
}

// Shutdown gracefully shuts down all application components.
//
// ============================================================
// DEVELOPER: Shutdown order is critical
// ============================================================
// Components are shut down in reverse dependency order:
// 1. Stop accepting new requests (gRPC + HTTP servers)
// 2. Close external connections (Kafka, Redis)
// 3. Flush telemetry data (OpenTelemetry)
//
// IMPORTANT: Shutdown errors are logged but don't stop the
// shutdown sequence. Each component gets a chance to clean up.
// ============================================================
func (a *App) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down application...")

	// ============================================================
	// Step 1: Shutdown servers (stop accepting new requests)
	// ============================================================
	if err := a.grpcServer.Shutdown(ctx); err != nil {
		logrus.Errorf("gRPC server shutdown error: %v", err)
	}
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	// ============================================================
	// Step 2: Close external connections
	// ============================================================
	a.closeConnections()

	// ============================================================
	// Step 3: Flush telemetry data
	// ============================================================
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("telemetry shutdown error: %v", err)
		}
	}

	logrus.Info("application shutdown complete")
	return nil
}

// Close releases external connections without touching the servers. It is
// used after RunOnce, where the servers were never started.
func (a *App) Close(ctx context.Context) {
	a.closeConnections()
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("telemetry shutdown error: %v", err)
		}
	}
}

func (a *App) closeConnections() {
	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			logrus.Errorf("Kafka producer close error: %v", err)
		}
		a.kafkaProducer = nil
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logrus.Errorf("Redis close error: %v", err)
		}
		a.redisClient = nil
	}
}
