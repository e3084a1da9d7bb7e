// Package tracing records the Trace -> Span -> Score hierarchy that covers
// one inbound message (or one background agent session) from first byte to
// delivered reply. Every recorded span is written to two sinks: the native
// repository (for conduit's own trace viewer and eval dataset) and, when
// configured, an OpenTelemetry OTLP exporter using vendor-neutral gen_ai.*
// attribute names so traces interoperate with any OTLP-speaking backend.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"

	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

// Config configures the Recorder's OpenTelemetry sink. Leaving Endpoint
// empty keeps the OTLP sink a no-op while the native repository sink still
// records everything.
type Config struct {
	ServiceName  string
	Environment  string
	Endpoint     string
	SampleRate   float64
	Insecure     bool
}

// Recorder records Trace/Span/Score entities to the repository and mirrors
// spans onto an OpenTelemetry tracer.
type Recorder struct {
	repo   repository.TraceRepository
	log    *obslog.Logger
	otel   oteltrace.Tracer
	cfg    Config
}

// New builds a Recorder. The returned shutdown func flushes and closes the
// OTLP exporter, if one was configured; it is always safe to call.
func New(repo repository.TraceRepository, log *obslog.Logger, cfg Config) (*Recorder, func(context.Context) error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "conduit"
	}

	if cfg.Endpoint == "" {
		return &Recorder{repo: repo, log: log, otel: otel.Tracer(cfg.ServiceName), cfg: cfg},
			func(context.Context) error { return nil }
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		log.Error(context.Background(), "tracing: otlp exporter init failed, falling back to native sink only", "error", err)
		return &Recorder{repo: repo, log: log, otel: otel.Tracer(cfg.ServiceName), cfg: cfg},
			func(context.Context) error { return nil }
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		res = resource.Default()
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	rec := &Recorder{repo: repo, log: log, otel: provider.Tracer(cfg.ServiceName), cfg: cfg}
	return rec, provider.Shutdown
}

// TraceHandle threads a Trace through both sinks; End must be called once.
type TraceHandle struct {
	rec   *Recorder
	trace *models.Trace
	span  oteltrace.Span
	ctx   context.Context
}

// StartTrace opens a Trace for one inbound message or background session.
func (r *Recorder) StartTrace(ctx context.Context, handle string, msgType models.MessageType, input string) *TraceHandle {
	ctx, span := r.otel.Start(ctx, fmt.Sprintf("conduit.%s", msgType), oteltrace.WithSpanKind(oteltrace.SpanKindServer))
	span.SetAttributes(attribute.String("conduit.handle", handle))

	t := &models.Trace{
		ID:          uuid.NewString(),
		Handle:      handle,
		Input:       input,
		MessageType: msgType,
		Status:      models.StatusStarted,
		StartedAt:   time.Now(),
	}
	if err := r.repo.SaveTrace(ctx, t); err != nil {
		r.log.Warn(ctx, "tracing: save trace start failed", "error", err)
	}
	return &TraceHandle{rec: r, trace: t, span: span, ctx: ctx}
}

// Context returns the trace-scoped context, carrying both the OTel span and
// conduit's own trace id for structured logging correlation.
func (h *TraceHandle) Context() context.Context {
	return obslog.WithTraceID(h.ctx, h.trace.ID)
}

// ID returns the trace's identifier.
func (h *TraceHandle) ID() string { return h.trace.ID }

// End finalizes the trace with its output and terminal status.
func (h *TraceHandle) End(output string, err error) {
	now := time.Now()
	h.trace.Output = output
	h.trace.EndedAt = &now
	if err != nil {
		h.trace.Status = models.StatusFailed
		h.span.RecordError(err)
		h.span.SetStatus(codes.Error, err.Error())
	} else {
		h.trace.Status = models.StatusCompleted
	}
	h.span.End()
	if saveErr := h.rec.repo.SaveTrace(context.Background(), h.trace); saveErr != nil {
		h.rec.log.Warn(context.Background(), "tracing: save trace end failed", "error", saveErr)
	}
}

// SpanHandle threads a Span through both sinks.
type SpanHandle struct {
	rec  *Recorder
	span *models.Span
	otel oteltrace.Span
	ctx  context.Context
}

// StartSpan opens a child span under the trace (or under another span, if
// ctx came from a nested SpanHandle).
func (r *Recorder) StartSpan(ctx context.Context, traceID, parentID, name string, kind models.SpanKind, input string) *SpanHandle {
	ctx, otelSpan := r.otel.Start(ctx, name)
	s := &models.Span{
		ID:        uuid.NewString(),
		TraceID:   traceID,
		ParentID:  parentID,
		Name:      name,
		Kind:      kind,
		Input:     input,
		Status:    models.StatusStarted,
		StartedAt: time.Now(),
	}
	ctx = obslog.WithSpanID(ctx, s.ID)
	return &SpanHandle{rec: r, span: s, otel: otelSpan, ctx: ctx}
}

// Context returns the span-scoped context for nested span creation.
func (h *SpanHandle) Context() context.Context { return h.ctx }

// ID returns the span's identifier, used as a ParentID for nested spans.
func (h *SpanHandle) ID() string { return h.span.ID }

// SetMetadata records generation usage or other structured metadata on the
// span, using the vendor-neutral gen_ai.* keys for LLM generations.
func (h *SpanHandle) SetMetadata(metadata map[string]any) {
	if h.span.Metadata == nil {
		h.span.Metadata = make(map[string]any, len(metadata))
	}
	for k, v := range metadata {
		h.span.Metadata[k] = v
		h.otel.SetAttributes(attribute.String(k, fmt.Sprintf("%v", v)))
	}
}

// End finalizes the span with its output and terminal status.
func (h *SpanHandle) End(output string, err error) {
	now := time.Now()
	h.span.Output = output
	h.span.EndedAt = &now
	h.span.DurationMS = now.Sub(h.span.StartedAt).Milliseconds()
	if err != nil {
		h.span.Status = models.StatusFailed
		h.otel.RecordError(err)
		h.otel.SetStatus(codes.Error, err.Error())
	} else {
		h.span.Status = models.StatusCompleted
	}
	h.otel.End()
	if saveErr := h.rec.repo.SaveSpan(context.Background(), h.span); saveErr != nil {
		h.rec.log.Warn(context.Background(), "tracing: save span failed", "error", saveErr)
	}
}

// RecordScore attaches a quality annotation to a trace (and optionally one
// of its spans).
func (r *Recorder) RecordScore(ctx context.Context, traceID, spanID, name string, value float64, source models.ScoreSource, comment string) error {
	return r.repo.SaveScore(ctx, &models.Score{
		ID:        uuid.NewString(),
		TraceID:   traceID,
		SpanID:    spanID,
		Name:      name,
		Value:     value,
		Source:    source,
		Comment:   comment,
		CreatedAt: time.Now(),
	})
}
