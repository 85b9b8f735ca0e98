package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/http"
	httpH "github.com/yungbote/learnloop-backend/internal/http/handlers"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/envutil"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Learning  *httpH.LearningHandler
	PlanDraft *httpH.PlanDraftHandler
	Session   *httpH.SessionHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandlerWithDeps(httpH.HealthHandlerDeps{
			Store:   storeProbe(db),
			Sandbox: clients.Sandbox.Configured,
		}),
		Learning:  httpH.NewLearningHandlerWithDeps(httpH.LearningHandlerDeps{Log: log, Assistant: services.Assistant}),
		PlanDraft: httpH.NewPlanDraftHandlerWithDeps(httpH.PlanDraftHandlerDeps{Log: log, Drafts: services.Drafts}),
		Session:   httpH.NewSessionHandlerWithDeps(httpH.SessionHandlerDeps{Log: log, Sessions: services.Sessions}),
	}
}

func wireServer(log *logger.Logger, cfg config.HTTPConfig, handlers Handlers, metrics *observability.Metrics) *http.Server {
	return http.NewServer(cfg, http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		Tracing:          envutil.Bool("OTEL_ENABLED", false),
		HealthHandler:    handlers.Health,
		LearningHandler:  handlers.Learning,
		PlanDraftHandler: handlers.PlanDraft,
		SessionHandler:   handlers.Session,
	})
}

func storeProbe(db *gorm.DB) httpH.Probe {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
