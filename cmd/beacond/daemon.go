package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/crowlark/beacon/internal/config"
	"github.com/crowlark/beacon/internal/logging"
	"github.com/crowlark/beacon/internal/metrics"
	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/querier"
)

type daemonConfig struct {
	servicesDir      string
	interfaceName    string
	ipv6             bool
	metricsAddr      string
	logLevel         string
	jsonLogs         bool
	rateThresholdQPS int
	rateCooldownMs   int64
}

func runDaemon(cfg daemonConfig) error {
	logger := buildLogger(cfg)

	services, err := loadServices(cfg.servicesDir, logger)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	reg := prometheus.NewRegistry()
	if err := collector.Register(reg); err != nil {
		return fmt.Errorf("beacond: register metrics: %w", err)
	}

	opts := []querier.Option{
		querier.WithLogger(logger),
		querier.WithMetrics(collector),
		querier.WithRateLimit(cfg.rateThresholdQPS, cfg.rateCooldownMs, 10_000),
	}
	if cfg.ipv6 {
		opts = append(opts, querier.WithIPv6())
	}
	if cfg.interfaceName != "" {
		iface, err := net.InterfaceByName(cfg.interfaceName)
		if err != nil {
			return fmt.Errorf("beacond: interface %q: %w", cfg.interfaceName, err)
		}
		opts = append(opts, querier.WithInterfaces([]net.Interface{*iface}))
	}

	q, err := querier.New(opts...)
	if err != nil {
		return fmt.Errorf("beacond: start querier: %w", err)
	}
	defer q.Close()

	for _, svc := range services {
		for _, rec := range svc.Records() {
			if err := q.Publish(rec.Record, rec.Unique); err != nil {
				logger.Warn().Err(err).Str("name", rec.Record.Name).Msg("publish failed")
			}
		}
		logger.Info().Str("service", svc.Name).Str("instance", svc.Instance).Msg("published")
	}

	var metricsSrv *http.Server
	if cfg.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.metricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		logger.Info().Str("addr", cfg.metricsAddr).Msg("metrics listening")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	logger.Info().Msg("shutting down")

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), protocol.GoodbyeCount*protocol.GoodbyeInterval+time.Second)
	if err := q.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("goodbye sequence did not finish draining")
	}
	shutdownCancel()
	return nil
}

func buildLogger(cfg daemonConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	opts := []logging.Option{logging.WithLevel(level), logging.WithComponent("beacond")}
	if cfg.jsonLogs {
		opts = append(opts, logging.WithOutput(os.Stdout))
	}
	return logging.New(opts...)
}

func loadServices(dir string, logger zerolog.Logger) ([]config.Service, error) {
	if dir == "" {
		return nil, nil
	}
	services, err := config.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("beacond: load services: %w", err)
	}
	logger.Info().Int("count", len(services)).Str("dir", dir).Msg("loaded service files")
	return services, nil
}
