package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yungbote/learnloop-backend/internal/inference/engine"
	"github.com/yungbote/learnloop-backend/internal/inference/engine/mock"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

func TestUnconfiguredWrapsSentinel(t *testing.T) {
	e := engine.Unconfigured("m", "ANTHROPIC_API_KEY is empty")
	_, err := e.Generate(context.Background(), nil, engine.GenerateOptions{})
	if !errors.Is(err, engine.ErrUnconfigured) {
		t.Fatalf("err=%v", err)
	}
	if _, err := e.Stream(context.Background(), nil, engine.GenerateOptions{}, nil); !errors.Is(err, engine.ErrUnconfigured) {
		t.Fatalf("stream err=%v", err)
	}
}

func TestRateLimitedHonoursContext(t *testing.T) {
	m := mock.New(mock.Text("first"), mock.Text("second"))
	e := engine.RateLimited(m, 1)

	if _, err := e.Generate(context.Background(), []engine.Message{{Role: "user", Content: "x"}}, engine.GenerateOptions{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Generate(ctx, []engine.Message{{Role: "user", Content: "x"}}, engine.GenerateOptions{}); err == nil {
		t.Fatalf("expected the throttled call to fail on a cancelled context")
	}
	if got := len(m.Calls()); got != 1 {
		t.Fatalf("calls=%d", got)
	}
}

func TestRateLimitedDisabled(t *testing.T) {
	m := mock.New()
	if engine.RateLimited(m, 0) != engine.Engine(m) {
		t.Fatalf("expected passthrough")
	}
}

func TestInstrumentedPassesThrough(t *testing.T) {
	m := mock.New(mock.Reply{Text: "done", Usage: engine.Usage{InputTokens: 4, OutputTokens: 1}}, mock.Fail(errors.New("down")))
	metrics := observability.New(prometheus.NewRegistry())
	e := engine.Instrumented(m, logger.Nop(), metrics)

	out, err := e.Generate(context.Background(), []engine.Message{{Role: "user", Content: "x"}}, engine.GenerateOptions{Operation: "plan"})
	if err != nil || out.Text != "done" || out.Usage.InputTokens != 4 {
		t.Fatalf("out=%+v err=%v", out, err)
	}
	if _, err := e.Generate(context.Background(), []engine.Message{{Role: "user", Content: "x"}}, engine.GenerateOptions{Operation: "plan"}); err == nil {
		t.Fatalf("expected error")
	}
	if e.Model() != "mock-1" {
		t.Fatalf("model=%q", e.Model())
	}
}
