package xmetrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xguard/xmetrics"
	unknownOperation           = "unknown"

	metricVerdictTotal      = "xguard.verdict.total"
	metricMutationTotal     = "xguard.rule.mutations.total"
	metricOperationDuration = "xguard.operation.duration"
)

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Recorder 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// NewOTelRecorder 创建基于 OpenTelemetry 的 Recorder。
// 未指定 Provider 时使用 otel 全局 Provider。
func NewOTelRecorder(opts ...Option) (Recorder, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	verdicts, err := meter.Int64Counter(
		metricVerdictTotal,
		metric.WithDescription("total verdicts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricVerdictTotal, err)
	}

	mutations, err := meter.Int64Counter(
		metricMutationTotal,
		metric.WithDescription("total rule mutations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricMutationTotal, err)
	}

	duration, err := meter.Float64Histogram(
		metricOperationDuration,
		metric.WithDescription("operation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	return &otelRecorder{
		tracer:    cfg.tracerProvider.Tracer(cfg.instrumentationName),
		verdicts:  verdicts,
		mutations: mutations,
		duration:  duration,
	}, nil
}

type otelRecorder struct {
	tracer    trace.Tracer
	verdicts  metric.Int64Counter
	mutations metric.Int64Counter
	duration  metric.Float64Histogram
}

func (r *otelRecorder) Verdict(ctx context.Context, allowed bool, source string) {
	policy := "forbid"
	if allowed {
		policy = "allow"
	}
	r.verdicts.Add(metricsContext(ctx), 1, metric.WithAttributes(
		attribute.String("policy", policy),
		attribute.String("source", source),
	))
}

func (r *otelRecorder) Mutation(ctx context.Context, op string, rules int) {
	if rules <= 0 {
		return
	}
	r.mutations.Add(metricsContext(ctx), int64(rules), metric.WithAttributes(
		attribute.String("operation", operationName(op)),
	))
}

func (r *otelRecorder) Start(ctx context.Context, op string) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	op = operationName(op)
	ctx, span := r.tracer.Start(ctx, "xguard."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("operation", op)),
	)
	return ctx, &otelSpan{
		span:      span,
		recorder:  r,
		ctx:       ctx,
		operation: op,
		start:     time.Now(),
	}
}

type otelSpan struct {
	span      trace.Span
	recorder  *otelRecorder
	ctx       context.Context
	operation string
	start     time.Time
	endOnce   sync.Once
}

func (s *otelSpan) End(err error) {
	s.endOnce.Do(func() {
		status := StatusOK
		if err != nil {
			status = StatusError
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		} else {
			s.span.SetStatus(codes.Ok, "")
		}
		s.span.End()

		s.recorder.duration.Record(context.WithoutCancel(s.ctx), time.Since(s.start).Seconds(),
			metric.WithAttributes(
				attribute.String("operation", s.operation),
				attribute.String("status", string(status)),
			))
	})
}

// metricsContext 返回不可取消的 context，请求取消后指标仍能记录。
func metricsContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

func operationName(op string) string {
	if op == "" {
		return unknownOperation
	}
	return op
}
