package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Tracer      trace.Tracer
	ServiceName string

	// Logger defaults to a nop so packages can log before InitTelemetry
	// runs (and in tests that never run it).
	Logger = zap.NewNop()
)

// Pipeline counters. Every webhook increments received plus exactly one
// of the decision counters, which makes
// received == rejected + ignored + resolved + failures a useful
// dashboard invariant.
var (
	WebhooksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispense_webhooks_received_total",
		Help: "Webhook notifications received from the payment provider.",
	})
	WebhooksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispense_webhooks_rejected_total",
		Help: "Webhook notifications rejected before processing.",
	}, []string{"reason"})
	WebhooksIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispense_webhooks_ignored_total",
		Help: "Webhook notifications acknowledged but not acted on.",
	})
	PaymentsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispense_payments_resolved_total",
		Help: "Payment lookups by resulting status.",
	}, []string{"status"})
	ResolutionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispense_resolution_failures_total",
		Help: "Payment lookups that failed; the notification was still acknowledged.",
	})
	CommandsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispense_commands_published_total",
		Help: "Dispense commands published to the broker.",
	})
	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispense_duplicates_skipped_total",
		Help: "Approved notifications skipped because the payment already dispatched.",
	})
	CommandsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispense_commands_dropped_total",
		Help: "Dispense commands dropped because the broker was unreachable.",
	})
)

// InitTelemetry initializes OpenTelemetry tracing and structured logging
func InitTelemetry(serviceName string) error {
	ServiceName = serviceName

	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	Logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "jaeger:4318"
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(otlpEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	Tracer = otel.Tracer(serviceName)

	Logger.Info("Telemetry initialized", zap.String("service", serviceName))
	return nil
}

// Shutdown gracefully shuts down telemetry
func Shutdown(ctx context.Context) error {
	if tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
	}
	return Logger.Sync()
}

// TracingMiddleware adds tracing and request logging to Gin routes
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		ctx, span := Tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		spanCtx := span.SpanContext()
		if spanCtx.IsValid() {
			c.Header("X-Trace-ID", spanCtx.TraceID().String())
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		span.SetAttributes(
			semconv.HTTPMethodKey.String(c.Request.Method),
			semconv.HTTPRouteKey.String(c.FullPath()),
			semconv.HTTPStatusCodeKey.Int(c.Writer.Status()),
			attribute.String("http.client_ip", c.ClientIP()),
		)

		Logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
