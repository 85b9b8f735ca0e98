package router

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/inference/engine"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

func TestNewRoutesOperationsWithBudgets(t *testing.T) {
	r, err := New(config.LLMConfig{Provider: "mock", PlanMaxTokens: 4096, ProblemMaxTokens: 2000, ChatMaxTokens: 1024}, logger.Nop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := map[string]int{OperationPlan: 4096, OperationProblem: 2000, OperationChat: 1024}
	for op, want := range cases {
		route, ok := r.RouteFor(op)
		if !ok {
			t.Fatalf("missing route %s", op)
		}
		if route.Options.MaxTokens != want || route.Options.Operation != op {
			t.Fatalf("%s options=%+v", op, route.Options)
		}
	}
	if _, ok := r.RouteFor("embed"); ok {
		t.Fatalf("unexpected route")
	}
}

func TestMissingCredentialsAnswerUnconfigured(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			r, err := New(config.LLMConfig{Provider: provider, BaseURL: "http://x", Model: "m"}, logger.Nop(), nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			route := r.MustRoute(OperationPlan)
			_, err = route.Engine.Generate(context.Background(), []engine.Message{{Role: "user", Content: "x"}}, route.Options)
			if !errors.Is(err, engine.ErrUnconfigured) {
				t.Fatalf("err=%v", err)
			}
		})
	}
}

func TestUnknownProvider(t *testing.T) {
	if _, err := New(config.LLMConfig{Provider: "palm"}, logger.Nop(), nil); err == nil {
		t.Fatalf("expected error")
	}
}
