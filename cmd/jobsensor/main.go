package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/jobsensor/internal/app/sensor"
	"github.com/ahrav/jobsensor/internal/config"
	"github.com/ahrav/jobsensor/internal/config/envloader"
	"github.com/ahrav/jobsensor/internal/config/fileloader"
	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/internal/infra/eventbus/kafka"
	"github.com/ahrav/jobsensor/internal/infra/eventbus/memory"
	"github.com/ahrav/jobsensor/pkg/common/logger"
	"github.com/ahrav/jobsensor/pkg/common/otel"
)

var build = "develop"

const serviceType = "jobsensor"

func main() {
	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("failed to get hostname: %v", err)
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			maps.Copy(errorAttrs, r.Attributes)

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	svcName := fmt.Sprintf("JOBSENSOR-%s", hostname)
	metadata := map[string]string{
		"hostname":  hostname,
		"pod":       os.Getenv("POD_NAME"),
		"namespace": os.Getenv("POD_NAMESPACE"),
		"app":       serviceType,
	}

	logr := logger.NewWithMetadata(
		os.Stdout,
		logger.ParseLevel(os.Getenv("LOG_LEVEL")),
		svcName,
		otel.GetTraceID,
		logEvents,
		metadata,
	)

	ctx := context.Background()
	if err := run(ctx, logr, hostname); err != nil {
		logr.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, hostname string) error {
	// -------------------------------------------------------------------------
	// GOMAXPROCS
	if _, err := maxprocs.Set(); err != nil {
		log.Warn(ctx, "startup", "status", "maxprocs", "error", err)
	}
	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "build", build)

	// -------------------------------------------------------------------------
	// Configuration
	httpPort := os.Getenv("HTTP_PORT")
	if httpPort == "" {
		httpPort = "8080"
	}

	loaders := []config.Loader{}
	if path := os.Getenv("SENSOR_PROPERTIES_FILE"); path != "" {
		loaders = append(loaders, fileloader.NewFileLoader(path))
	}
	loaders = append(loaders, envloader.New(envloader.DefaultPrefix, config.KnownProperties...))

	props, err := config.NewMultiLoader(loaders...).Load(ctx)
	if err != nil {
		return fmt.Errorf("loading sensor properties: %w", err)
	}

	// -------------------------------------------------------------------------
	// Start Tracing Support
	var (
		tracer   trace.Tracer = noop.NewTracerProvider().Tracer(serviceType)
		teardown              = func(context.Context) {}
	)
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		log.Info(ctx, "startup", "status", "initializing tracing support")

		prob, err := strconv.ParseFloat(os.Getenv("OTEL_SAMPLING_RATIO"), 64)
		if err != nil {
			prob = 0.05
		}

		traceProvider, td, err := otel.InitTelemetry(log, otel.Config{
			ServiceName:      serviceType,
			ExporterEndpoint: endpoint,
			ExcludedRoutes: map[string]struct{}{
				"/health":    {},
				"/readiness": {},
			},
			Probability: prob,
			ResourceAttributes: map[string]string{
				"library.language": "go",
				"k8s.pod.name":     os.Getenv("POD_NAME"),
				"k8s.namespace":    os.Getenv("POD_NAMESPACE"),
				"k8s.container.id": hostname,
			},
			InsecureExporter: os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") != "false",
		})
		if err != nil {
			return fmt.Errorf("starting tracing: %w", err)
		}
		tracer = traceProvider.Tracer(serviceType)
		teardown = td
	}
	defer teardown(context.Background())

	metrics, err := sensor.NewSensorMetrics(otelapi.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("creating sensor metrics: %w", err)
	}

	// -------------------------------------------------------------------------
	// Initialize Event Bus
	log.Info(ctx, "startup", "status", "initializing event bus")

	var bus events.EventBus
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_JOB_STATUS_TOPIC")
		if topic == "" {
			topic = "job-status"
		}
		bus, err = kafka.ConnectWithRetry(&kafka.Config{
			Brokers:        strings.Split(brokers, ","),
			JobStatusTopic: topic,
			ClientID:       fmt.Sprintf("jobsensor-%s", hostname),
			ServiceType:    serviceType,
		}, log, metrics, tracer)
		if err != nil {
			return fmt.Errorf("connecting event bus: %w", err)
		}
	} else {
		log.Warn(ctx, "startup", "status", "KAFKA_BROKERS not set, events are logged and dropped")
		broker := memory.NewBroker()
		if err := broker.Subscribe(ctx, nil, func(ctx context.Context, evt events.EventEnvelope) error {
			log.Debug(ctx, "Event", "type", evt.Type, "key", evt.Key)
			return nil
		}); err != nil {
			return fmt.Errorf("subscribing to in-memory bus: %w", err)
		}
		bus = broker
	}
	defer bus.Close()

	// -------------------------------------------------------------------------
	// Sensor
	s := sensor.New(
		kafka.NewDomainEventPublisher(bus),
		log,
		sensor.WithProperties(props),
		sensor.WithTracer(tracer),
		sensor.WithMetrics(metrics),
	)
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("starting sensor: %w", err)
	}
	defer s.Destroy(context.Background())

	// -------------------------------------------------------------------------
	// Start HTTP Server for health checks and lifecycle control
	httpAddr := fmt.Sprintf("0.0.0.0:%s", httpPort)
	httpServer := http.Server{
		Addr:         httpAddr,
		Handler:      otelhttp.NewHandler(newAdminMux(s), "jobsensor.admin"),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "startup", "status", "http server started", "host", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutdown", "status", "shutdown started")
		defer log.Info(ctx, "shutdown", "status", "shutdown complete")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 20*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			httpServer.Close()
			return fmt.Errorf("could not stop HTTP server gracefully: %w", err)
		}
		return s.Destroy(shutdownCtx)
	})

	return g.Wait()
}
