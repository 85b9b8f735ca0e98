package router

import (
	"fmt"
	"strings"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/inference/engine"
	"github.com/yungbote/learnloop-backend/internal/inference/engine/lcengine"
	"github.com/yungbote/learnloop-backend/internal/inference/engine/mock"
	"github.com/yungbote/learnloop-backend/internal/inference/engine/oaihttp"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

const (
	OperationPlan    = "plan"
	OperationProblem = "problem"
	OperationChat    = "chat"
)

// Route binds one pipeline operation to an engine and its generation budget.
type Route struct {
	Operation string
	Engine    engine.Engine
	Options   engine.GenerateOptions
}

type Router struct {
	routes map[string]Route
}

// New builds the provider engine once and decorates it with rate limiting and instrumentation. Missing
// credentials do not fail: every route answers with engine.ErrUnconfigured instead.
func New(cfg config.LLMConfig, log *logger.Logger, metrics *observability.Metrics) (*Router, error) {
	base, err := buildEngine(cfg, log)
	if err != nil {
		return nil, err
	}
	eng := engine.Instrumented(engine.RateLimited(base, cfg.RequestsPerMinute), log, metrics)
	return NewWithEngine(eng, cfg), nil
}

// NewWithEngine routes every operation to eng. Tests use it with the mock engine.
func NewWithEngine(eng engine.Engine, cfg config.LLMConfig) *Router {
	r := &Router{routes: map[string]Route{}}
	add := func(op string, maxTokens int) {
		r.routes[op] = Route{
			Operation: op,
			Engine:    eng,
			Options: engine.GenerateOptions{
				Temperature: cfg.Temperature,
				MaxTokens:   maxTokens,
				Operation:   op,
			},
		}
	}
	add(OperationPlan, cfg.PlanMaxTokens)
	add(OperationProblem, cfg.ProblemMaxTokens)
	add(OperationChat, cfg.ChatMaxTokens)
	return r
}

func (r *Router) Operations() []string {
	out := make([]string, 0, len(r.routes))
	for op := range r.routes {
		out = append(out, op)
	}
	return out
}

// RouteFor returns the route for op; ok is false for an unknown operation.
func (r *Router) RouteFor(op string) (Route, bool) {
	route, ok := r.routes[strings.TrimSpace(op)]
	return route, ok
}

// MustRoute is RouteFor for the operations registered by New.
func (r *Router) MustRoute(op string) Route {
	route, ok := r.RouteFor(op)
	if !ok {
		panic(fmt.Sprintf("router: unknown operation %q", op))
	}
	return route
}

func buildEngine(cfg config.LLMConfig, log *logger.Logger) (engine.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.ProviderMock:
		return mock.New(), nil
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			warnUnconfigured(log, cfg.Provider, "OPENAI_API_KEY")
			return engine.Unconfigured(cfg.Model, "OPENAI_API_KEY is not set"), nil
		}
		return oaihttp.New(cfg)
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			warnUnconfigured(log, cfg.Provider, "ANTHROPIC_API_KEY")
			return engine.Unconfigured(cfg.Model, "ANTHROPIC_API_KEY is not set"), nil
		}
		return lcengine.NewAnthropic(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func warnUnconfigured(log *logger.Logger, provider, envVar string) {
	if log == nil {
		return
	}
	log.Warn("llm provider has no credentials; plan and problem generation will fail", "provider", provider, "env", envVar)
}
