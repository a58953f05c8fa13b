package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/cartridge/replay/internal/checkpoint"
	"github.com/cartridge/replay/internal/config"
	"github.com/cartridge/replay/internal/events"
	httpServer "github.com/cartridge/replay/internal/http"
	"github.com/cartridge/replay/internal/metrics"
	"github.com/cartridge/replay/internal/replay"
	"github.com/cartridge/replay/internal/service"
	replayv1 "github.com/cartridge/replay/pkg/replayv1"
)

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg, logger)

	bufferOpts := bufferOptions(cfg)
	buffer, err := newBuffer(cfg, bufferOpts)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	svcOpts := []service.Option{
		service.WithRestoreOptions(bufferOpts...),
		service.WithMaxSampleSize(cfg.MaxSampleSize),
	}
	var store *checkpoint.Store
	if cfg.CheckpointPath != "" {
		store, err = checkpoint.Open(ctx, cfg.CheckpointPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("Error closing checkpoint store")
			}
		}()
		svcOpts = append(svcOpts, service.WithCheckpointStore(store))
	}

	svc := service.NewReplayService(buffer, publisher, collector, logger, svcOpts...)
	if cfg.Restore {
		info, err := svc.Restore(ctx, "")
		switch {
		case errors.Is(err, checkpoint.ErrNotFound):
			logger.Info().Msg("No checkpoint to restore, starting empty")
		case err != nil:
			return fmt.Errorf("failed to restore checkpoint: %w", err)
		default:
			logger.Info().Str("checkpoint_id", info.ID).Int("records", info.Records).Msg("Restored checkpoint")
		}
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	replayv1.RegisterReplayServer(grpcServer, svc)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(replayv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().
			Str("addr", lis.Addr().String()).
			Int("capacity", cfg.Capacity).
			Bool("prioritized", cfg.Prioritized).
			Msg("Replay gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpServer.NewServer(svc, reg, logger).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.HTTPAddr).Msg("Admin HTTP server listening")
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if store != nil && cfg.CheckpointInterval > 0 {
		scheduler := checkpoint.NewScheduler(svc, store, checkpoint.SchedulerConfig{
			Interval: cfg.CheckpointInterval,
			Keep:     cfg.CheckpointKeep,
		}, logger)
		go scheduler.Start(ctx)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("Server failed")
		stop()
	}

	shutdown(grpcServer, healthServer, httpSrv, cfg.ShutdownTimeout, logger)

	if store != nil {
		if info, err := svc.SaveCheckpoint(context.Background(), checkpoint.TriggerShutdown); err != nil {
			logger.Error().Err(err).Msg("Final checkpoint failed")
		} else {
			logger.Info().Str("checkpoint_id", info.ID).Int("records", info.Records).Msg("Final checkpoint written")
		}
	}

	logger.Info().Msg("Replay service stopped")
	return serveErr
}

func shutdown(grpcServer *grpc.Server, healthServer *health.Server, httpSrv *http.Server, timeout time.Duration, logger zerolog.Logger) {
	healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("HTTP graceful shutdown failed")
		}
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		logger.Warn().Msg("Shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	case <-stopped:
		logger.Info().Msg("gRPC server stopped gracefully")
	}
}

func bufferOptions(cfg *config.Config) []replay.Option {
	if cfg.Seed == 0 {
		return nil
	}
	return []replay.Option{replay.WithSeed(cfg.Seed)}
}

func newBuffer(cfg *config.Config, opts []replay.Option) (replay.Buffer, error) {
	if cfg.Prioritized {
		return replay.NewPrioritized(cfg.Capacity, cfg.Alpha, cfg.Beta, opts...)
	}
	return replay.NewUniform(cfg.Capacity, opts...)
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		return events.NoopPublisher{}, func() {}, nil
	}
	publisher, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	logger.Info().Str("url", cfg.NATSURL).Str("subject", cfg.NATSSubject).Msg("Publishing events to NATS")
	return publisher, publisher.Close, nil
}

// loggingInterceptor logs gRPC requests
func loggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		event := logger.Debug()
		if err != nil {
			event = logger.Warn().Err(err)
		}
		event.
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC request")

		return resp, err
	}
}
