package editor

import (
	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

// Snapshot is a detached copy of the editor, safe to render or persist.
type Snapshot struct {
	State        State                       `json:"state"`
	Subject      string                      `json:"subject"`
	Plan         learning.Plan               `json:"plan"`
	History      []learning.ConversationTurn `json:"conversationHistory"`
	EditingIndex int                         `json:"editingIndex"`
	Draft        *learning.ConceptItem       `json:"draft,omitempty"`
	LastError    string                      `json:"error,omitempty"`
	RawResponse  string                      `json:"rawResponse,omitempty"`

	// Resume is the state a Generating editor returns to if the generation never completes.
	Resume State `json:"-"`
}

// Stable is the state to persist: a generation cannot survive a restart.
func (s Snapshot) Stable() State {
	if s.State == StateGenerating {
		if s.Resume != "" {
			return s.Resume
		}
		if len(s.Plan) > 0 {
			return StateEditing
		}
		return StateIdle
	}
	return s.State
}

func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		State:        e.state,
		Subject:      e.subject,
		Plan:         e.plan.Clone(),
		History:      learning.CloneHistory(e.history),
		EditingIndex: e.editingIndex,
		LastError:    e.lastError,
		RawResponse:  e.rawResponse,
		Resume:       e.resume,
	}
	if e.state == StateFieldEditing {
		d := e.draft
		s.Draft = &d
	}
	return s
}

// Restore rebuilds an editor from a snapshot. A snapshot taken mid-generation comes back in the state
// the generation started from.
func Restore(gen PlanGenerator, s Snapshot, log *logger.Logger) *Editor {
	e := New(gen, log)
	e.state = s.Stable()
	e.subject = s.Subject
	e.plan = s.Plan.Clone()
	e.history = learning.CloneHistory(s.History)
	e.lastError = s.LastError
	e.rawResponse = s.RawResponse

	if e.state == StateFieldEditing {
		if s.Draft == nil || s.EditingIndex < 0 || s.EditingIndex >= len(e.plan) {
			e.state = StateEditing
		} else {
			e.editingIndex = s.EditingIndex
			e.draft = *s.Draft
		}
	}
	return e
}
