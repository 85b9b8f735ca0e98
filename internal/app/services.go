package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/data/repos"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/session"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
	"github.com/yungbote/learnloop-backend/internal/services"
)

type Services struct {
	Assistant services.LearningAssistant
	Sessions  services.LearningSessionService
	Drafts    services.PlanDraftService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg *config.Config, reposet repos.Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	sessions := services.NewLearningSessionService(
		db,
		log,
		reposet.LearningSessions,
		clients.Problems,
		clients.Sandbox,
		session.Options{ProblemTimeout: cfg.Session.ProblemTimeout.Duration},
		metrics,
	)
	return Services{
		Assistant: clients.Assistant(log),
		Sessions:  sessions,
		Drafts:    services.NewPlanDraftService(db, log, reposet.PlanDrafts, clients.Plans, sessions, metrics),
	}
}
