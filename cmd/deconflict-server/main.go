package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/airspace-deconfliction/internal/config"
	"github.com/signalsfoundry/airspace-deconfliction/internal/logging"
	"github.com/signalsfoundry/airspace-deconfliction/internal/observability"
	"github.com/signalsfoundry/airspace-deconfliction/internal/service"
	"github.com/signalsfoundry/airspace-deconfliction/kb"
)

func main() {
	configPath := flag.String("config", "", "optional YAML/JSON configuration file; watched for changes")
	flag.Parse()

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "deconflict-server: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, *cfg, log, lis, loader); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the deconfliction service on lis until ctx is done. When loader
// is non-nil, edits to its file swap detector parameters without a restart.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener, loader *config.Loader) error {
	if log == nil {
		log = logging.Noop()
	}

	reg := prometheus.NewRegistry()
	rpcMetrics, err := observability.NewRPCCollector(reg)
	if err != nil {
		return fmt.Errorf("rpc metrics: %w", err)
	}
	verifyMetrics, err := observability.NewVerificationCollector(reg)
	if err != nil {
		return fmt.Errorf("verification metrics: %w", err)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,

		SafetyBuffer:   cfg.Deconfliction.SafetyBuffer,
		TimeResolution: cfg.Deconfliction.TimeResolution,
		Workers:        cfg.Deconfliction.Workers,
	}, log)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	svc, err := service.New(kb.NewKnowledgeBase(), cfg.Deconfliction,
		service.WithLogger(log),
		service.WithVerificationCollector(verifyMetrics),
		service.WithRPCCollector(rpcMetrics),
	)
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}
	defer svc.Close()

	if loader != nil {
		loader.Watch(func(next *config.Config) {
			if err := svc.UpdateConfig(next.Deconfliction); err != nil {
				log.Warn(ctx, "rejected configuration reload", logging.Err(err))
				return
			}
			log.Info(ctx, "configuration reloaded",
				logging.Float("safety_buffer", next.Deconfliction.SafetyBuffer),
				logging.Float("time_resolution", next.Deconfliction.TimeResolution),
				logging.Int("workers", next.Deconfliction.Workers),
			)
		}, func(err error) {
			log.Warn(ctx, "configuration reload failed", logging.Err(err))
		})
	}

	server := grpc.NewServer(
		grpc.ForceServerCodec(service.Codec()),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			service.RequestIDUnaryServerInterceptor(log),
			service.TracingUnaryServerInterceptor(),
			rpcMetrics.UnaryServerInterceptor(),
		),
	)
	service.RegisterDeconflictionServer(server, svc)

	metricsSrv := serveMetrics(cfg.Server.MetricsAddress, rpcMetrics, log)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()
	log.Info(ctx, "starting deconfliction gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.Float("safety_buffer", cfg.Deconfliction.SafetyBuffer),
		logging.Float("time_resolution", cfg.Deconfliction.TimeResolution),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			runErr = fmt.Errorf("serve: %w", err)
		}
	}

	log.Info(context.Background(), "shutting down deconfliction server")
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		server.Stop()
	}

	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return runErr
}

func serveMetrics(addr string, collector *observability.RPCCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
