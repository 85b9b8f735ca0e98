package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/pkg/dbctx"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type PlanDraftRepo interface {
	Create(dbc dbctx.Context, row *types.PlanDraft) (*types.PlanDraft, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PlanDraft, error)
	ListByStates(dbc dbctx.Context, states []string) ([]*types.PlanDraft, error)
	Save(dbc dbctx.Context, row *types.PlanDraft) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type planDraftRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanDraftRepo(db *gorm.DB, baseLog *logger.Logger) PlanDraftRepo {
	return &planDraftRepo{db: db, log: baseLog.With("repo", "PlanDraftRepo")}
}

func (r *planDraftRepo) Create(dbc dbctx.Context, row *types.PlanDraft) (*types.PlanDraft, error) {
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// GetByID returns nil without error when the draft does not exist.
func (r *planDraftRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PlanDraft, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.PlanDraft
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *planDraftRepo) ListByStates(dbc dbctx.Context, states []string) ([]*types.PlanDraft, error) {
	var out []*types.PlanDraft
	if len(states) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("state IN ?", states).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes every column except created_at, including zero values.
func (r *planDraftRepo) Save(dbc dbctx.Context, row *types.PlanDraft) error {
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Omit("created_at").Save(row).Error
}

func (r *planDraftRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.PlanDraft{}).Error
}
