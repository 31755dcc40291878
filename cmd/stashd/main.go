// Command stashd runs the tiered cache as a daemon with the stash.Admin gRPC
// service and a Prometheus endpoint. It is configured entirely from the
// environment; see gorawrstash.EnvConfig.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	gs "github.com/Keksclan/goRawrStash"
	"github.com/Keksclan/goRawrStash/admin"
	"github.com/Keksclan/goRawrStash/tracing"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "stashd").Logger()
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("stashd failed")
	}
}

func run(log zerolog.Logger) error {
	cfg, err := gs.LoadEnv()
	if err != nil {
		return err
	}
	log = log.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts = append(gs.DefaultOptions(), append(opts, gs.WithLogger(log))...)

	if cfg.TraceStdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		ping := admin.FullMethod("Ping")
		opts = append(opts, gs.WithOpenTelemetry(tracing.Config{
			TracerProvider: tp,
			Filter:         func(m string) bool { return m != ping },
		}))
	}

	srv, err := gs.NewServer(opts...)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		_ = srv.Close()
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", srv.MetricsHandler())
	metricsSrv := &http.Server{Addr: cfg.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 2)
	go func() { errc <- srv.Serve(lis) }()
	go func() {
		log.Info().Str("addr", cfg.MetricsListen).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	log.Info().
		Str("store", cfg.Store).
		Str("namespace", cfg.Namespace).
		Int("memory_entries", cfg.MemoryEntries).
		Stringer("eviction", cfg.Eviction).
		Msg("stashd started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-errc:
		log.Error().Err(err).Msg("listener stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	if cerr := srv.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("close")
	}
	return err
}
