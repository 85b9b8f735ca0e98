package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type instrumented struct {
	next    Engine
	log     *logger.Logger
	metrics *observability.Metrics
}

// Instrumented wraps next with a span, a metrics observation and a debug log line per call.
func Instrumented(next Engine, log *logger.Logger, metrics *observability.Metrics) Engine {
	if next == nil {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	return &instrumented{next: next, log: log.With("component", "llm"), metrics: metrics}
}

func (i *instrumented) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (Completion, error) {
	return i.observe(ctx, opts, "llm.generate", func(ctx context.Context) (Completion, error) {
		return i.next.Generate(ctx, messages, opts)
	})
}

func (i *instrumented) Stream(ctx context.Context, messages []Message, opts GenerateOptions, onDelta func(string)) (Completion, error) {
	return i.observe(ctx, opts, "llm.stream", func(ctx context.Context) (Completion, error) {
		return i.next.Stream(ctx, messages, opts, onDelta)
	})
}

func (i *instrumented) Model() string { return i.next.Model() }

func (i *instrumented) observe(ctx context.Context, opts GenerateOptions, spanName string, call func(context.Context) (Completion, error)) (Completion, error) {
	model := i.next.Model()
	ctx, span := observability.StartSpan(ctx, spanName,
		attribute.String("llm.model", model),
		attribute.String("llm.operation", opts.Operation),
	)
	start := time.Now()
	out, err := call(ctx)
	dur := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", out.Usage.InputTokens),
		attribute.Int("llm.output_tokens", out.Usage.OutputTokens),
	)
	observability.EndSpan(span, err)
	i.metrics.ObserveLLMRequest(model, opts.Operation, status, dur, out.Usage.InputTokens, out.Usage.OutputTokens)

	if err != nil {
		i.log.Warn("llm call failed", append([]interface{}{
			"operation", opts.Operation,
			"model", model,
			"duration_ms", dur.Milliseconds(),
			"error", err,
		}, ctxutil.LogFields(ctx)...)...)
		return out, err
	}
	i.log.Debug("llm call", append([]interface{}{
		"operation", opts.Operation,
		"model", model,
		"duration_ms", dur.Milliseconds(),
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
	}, ctxutil.LogFields(ctx)...)...)
	return out, nil
}
