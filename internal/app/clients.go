package app

import (
	"github.com/yungbote/learnloop-backend/internal/clients/redis"
	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/inference/router"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/chat"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/plan"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/problem"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/sandbox"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/transcript"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
	"github.com/yungbote/learnloop-backend/internal/services"
)

// Clients are the outbound dependencies and the pipeline stages built on them. None of them need the
// store, so the CLI builds them on their own.
type Clients struct {
	LLM         *router.Router
	Transcripts *transcript.Fetcher
	Problems    *problem.Pipeline
	Sandbox     *sandbox.Client
	Plans       *plan.Generator
	Chat        *chat.Service

	redis *redis.ProblemCache
}

func WireClients(log *logger.Logger, cfg *config.Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	llm, err := router.New(cfg.LLM, log, metrics)
	if err != nil {
		return Clients{}, err
	}
	log.Info("llm provider ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	var cache problem.Cache = problem.NewMemoryCache()
	var rc *redis.ProblemCache
	if cfg.Cache.RedisAddr != "" {
		rc, err = redis.NewProblemCache(log, cfg.Cache)
		if err != nil {
			log.Warn("redis problem cache unavailable; using in-process cache", "error", err)
		} else {
			cache = rc
		}
	}

	fetcher := transcript.NewFetcher(cfg.Transcript, log)
	exec := sandbox.New(cfg.Sandbox, metrics, log)
	if !exec.Configured() {
		log.Warn("sandbox endpoint not configured; code execution will fail per request")
	}

	return Clients{
		LLM:         llm,
		Transcripts: fetcher,
		Problems:    problem.NewPipeline(fetcher, problem.NewSynthesizer(llm, log), cache, cfg.Session.ProblemTimeout.Duration, metrics, log),
		Sandbox:     exec,
		Plans:       plan.NewGenerator(llm, log),
		Chat:        chat.NewService(llm, log),
		redis:       rc,
	}, nil
}

func (c Clients) Assistant(log *logger.Logger) services.LearningAssistant {
	return services.NewLearningAssistant(log, c.Plans, c.Problems, c.Transcripts, c.Sandbox, c.Chat)
}

func (c Clients) Close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
}
