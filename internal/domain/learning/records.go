package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanDraft persists one plan editor between requests.
type PlanDraft struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Subject string    `gorm:"column:subject;type:text;not null" json:"subject"`
	// State is the editor state name ("editing", "field_editing", ...).
	State   string         `gorm:"column:state;not null;index" json:"state"`
	Plan    datatypes.JSON `gorm:"column:plan" json:"plan"`    // Plan
	History datatypes.JSON `gorm:"column:history" json:"history"` // []ConversationTurn
	// EditingIndex is -1 unless State is field_editing.
	EditingIndex int            `gorm:"column:editing_index;not null;default:-1" json:"editing_index"`
	Draft        datatypes.JSON `gorm:"column:draft" json:"draft,omitempty"` // *ConceptItem
	LastError    string         `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	RawResponse  string         `gorm:"column:raw_response;type:text" json:"raw_response,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PlanDraft) TableName() string { return "plan_draft" }

func (d *PlanDraft) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// LearningSession persists the navigation state of a finalized plan. Problem panes are not persisted;
// they are regenerated (or served from the problem cache) on demand.
type LearningSession struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DraftID      *uuid.UUID     `gorm:"type:uuid;column:draft_id;index" json:"draft_id,omitempty"`
	Subject      string         `gorm:"column:subject;type:text" json:"subject"`
	Plan         datatypes.JSON `gorm:"column:plan;not null" json:"plan"` // Plan
	CurrentIndex int            `gorm:"column:current_index;not null;default:0" json:"current_index"`
	Completed    datatypes.JSON `gorm:"column:completed" json:"completed"` // []int, ascending
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LearningSession) TableName() string { return "learning_session" }

func (s *LearningSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
