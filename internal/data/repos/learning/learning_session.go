package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/pkg/dbctx"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type LearningSessionRepo interface {
	Create(dbc dbctx.Context, row *types.LearningSession) (*types.LearningSession, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LearningSession, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type learningSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningSessionRepo(db *gorm.DB, baseLog *logger.Logger) LearningSessionRepo {
	return &learningSessionRepo{db: db, log: baseLog.With("repo", "LearningSessionRepo")}
}

func (r *learningSessionRepo) Create(dbc dbctx.Context, row *types.LearningSession) (*types.LearningSession, error) {
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// GetByID returns nil without error when the session does not exist.
func (r *learningSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LearningSession, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.LearningSession
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *learningSessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.LearningSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *learningSessionRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.LearningSession{}).Error
}
