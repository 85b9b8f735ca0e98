package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/learnloop-backend/internal/data/repos/learning"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type PlanDraftRepo = learning.PlanDraftRepo
type LearningSessionRepo = learning.LearningSessionRepo

// Repos is every repository the services layer needs, built once at startup.
type Repos struct {
	PlanDrafts       PlanDraftRepo
	LearningSessions LearningSessionRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		PlanDrafts:       learning.NewPlanDraftRepo(db, log),
		LearningSessions: learning.NewLearningSessionRepo(db, log),
	}
}
