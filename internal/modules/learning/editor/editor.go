// Package editor holds a candidate plan while the learner reviews, edits and revises it.
package editor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/plan"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type State string

const (
	StateIdle         State = "idle"
	StateGenerating   State = "generating"
	StateEditing      State = "editing"
	StateFieldEditing State = "field_editing"
	StateFinalized    State = "finalized"
	StateCancelled    State = "cancelled"
)

func (s State) Terminal() bool { return s == StateFinalized || s == StateCancelled }

var (
	ErrGenerationInFlight = apierr.Sentinel(apierr.KindConflict, http.StatusConflict, "generation_in_flight", "a plan generation is already in progress")
	ErrBusy               = apierr.Sentinel(apierr.KindConflict, http.StatusConflict, "editor_busy", "the plan cannot be changed while it is being generated")
	ErrInvalidTransition  = apierr.Sentinel(apierr.KindConflict, http.StatusConflict, "invalid_transition", "operation not allowed in the current state")
	ErrIndexOutOfBounds   = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "index_out_of_bounds", "concept index out of range")
	ErrEmptyPlan          = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "empty_plan", "cannot start learning with an empty plan")
	ErrInvalidItem        = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "invalid_item", "concept name is required")
	ErrCancelled          = apierr.Sentinel(apierr.KindConflict, http.StatusConflict, "editor_cancelled", "the plan editor was cancelled")
)

type PlanGenerator interface {
	Generate(ctx context.Context, text string, history []learning.ConversationTurn) (plan.Outcome, error)
}

// Editor is safe for concurrent use. At most one generation runs at a time; while it runs every other
// operation except Cancel and Snapshot is refused.
type Editor struct {
	mu  sync.Mutex
	gen PlanGenerator
	log *logger.Logger

	state   State
	resume  State
	subject string
	plan    learning.Plan
	history []learning.ConversationTurn

	editingIndex int
	draft        learning.ConceptItem

	lastError   string
	rawResponse string
}

func New(gen PlanGenerator, log *logger.Logger) *Editor {
	if log == nil {
		log = logger.Nop()
	}
	return &Editor{
		gen:          gen,
		log:          log.With("service", "PlanEditor"),
		state:        StateIdle,
		editingIndex: -1,
	}
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Generate requests the first plan for subject. An unparsed reply leaves the editor Idle but keeps the
// exchange in the history so the next attempt continues the conversation.
func (e *Editor) Generate(ctx context.Context, subject string) (plan.Outcome, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return plan.Outcome{}, plan.ErrEmptySubject
	}
	e.mu.Lock()
	if err := e.guardGenerate(StateIdle); err != nil {
		e.mu.Unlock()
		return plan.Outcome{}, err
	}
	if e.subject == "" {
		e.subject = subject
	}
	history := e.beginGenerating()
	e.mu.Unlock()

	out, err := e.gen.Generate(ctx, subject, history)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateGenerating {
		e.log.Debug("discarding generation result after cancel")
		return plan.Outcome{}, ErrCancelled
	}
	switch {
	case err != nil:
		e.state = StateIdle
		e.lastError = err.Error()
	case out.Parsed():
		e.plan = out.Plan.Clone()
		e.history = learning.CloneHistory(out.History)
		e.state = StateEditing
	default:
		e.history = learning.CloneHistory(out.History)
		e.rawResponse = out.RawResponse
		e.lastError = plan.ParseFailureMessage
		e.state = StateIdle
	}
	e.resume = ""
	return out, err
}

// Revise sends feedback on the current plan. A parsed reply replaces plan and history; an unparsed one
// only extends the history; a failed call changes neither.
func (e *Editor) Revise(ctx context.Context, feedback string) (plan.Outcome, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return plan.Outcome{}, plan.ErrEmptySubject
	}
	e.mu.Lock()
	if err := e.guardGenerate(StateEditing); err != nil {
		e.mu.Unlock()
		return plan.Outcome{}, err
	}
	history := e.beginGenerating()
	e.mu.Unlock()

	out, err := e.gen.Generate(ctx, feedback, history)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateGenerating {
		e.log.Debug("discarding revision result after cancel")
		return plan.Outcome{}, ErrCancelled
	}
	switch {
	case err != nil:
		e.lastError = err.Error()
	case out.Parsed():
		e.plan = out.Plan.Clone()
		e.history = learning.CloneHistory(out.History)
	default:
		e.history = learning.CloneHistory(out.History)
		e.rawResponse = out.RawResponse
		e.lastError = plan.ParseFailureMessage
	}
	e.state = StateEditing
	e.resume = ""
	return out, err
}

func (e *Editor) guardGenerate(want State) error {
	if e.state == StateGenerating {
		return ErrGenerationInFlight
	}
	if e.state != want {
		return fmt.Errorf("%w: cannot generate from %s", ErrInvalidTransition, e.state)
	}
	return nil
}

func (e *Editor) beginGenerating() []learning.ConversationTurn {
	e.resume = e.state
	e.state = StateGenerating
	e.lastError = ""
	e.rawResponse = ""
	return learning.CloneHistory(e.history)
}

// guardMutation reports why a plan mutation is not allowed from the current state.
func (e *Editor) guardMutation(want State) error {
	if e.state == StateGenerating {
		return ErrBusy
	}
	if e.state != want {
		return fmt.Errorf("%w: %s", ErrInvalidTransition, e.state)
	}
	return nil
}

func (e *Editor) checkIndex(i int) error {
	if i < 0 || i >= len(e.plan) {
		return fmt.Errorf("%w: %d (plan has %d items)", ErrIndexOutOfBounds, i, len(e.plan))
	}
	return nil
}

// StartEdit opens item i for field editing with a copy of its current values.
func (e *Editor) StartEdit(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardMutation(StateEditing); err != nil {
		return err
	}
	if err := e.checkIndex(i); err != nil {
		return err
	}
	e.editingIndex = i
	e.draft = e.plan[i]
	e.state = StateFieldEditing
	return nil
}

func (e *Editor) UpdateDraft(item learning.ConceptItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardMutation(StateFieldEditing); err != nil {
		return err
	}
	e.draft = item
	return nil
}

func (e *Editor) SaveEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardMutation(StateFieldEditing); err != nil {
		return err
	}
	if strings.TrimSpace(e.draft.Concept) == "" {
		return ErrInvalidItem
	}
	e.plan[e.editingIndex] = e.draft
	e.closeEdit()
	return nil
}

func (e *Editor) DiscardEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardMutation(StateFieldEditing); err != nil {
		return err
	}
	e.closeEdit()
	return nil
}

func (e *Editor) closeEdit() {
	e.editingIndex = -1
	e.draft = learning.ConceptItem{}
	e.state = StateEditing
}

func (e *Editor) Delete(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardMutation(StateEditing); err != nil {
		return err
	}
	if err := e.checkIndex(i); err != nil {
		return err
	}
	next := make(learning.Plan, 0, len(e.plan)-1)
	next = append(next, e.plan[:i]...)
	next = append(next, e.plan[i+1:]...)
	e.plan = next
	return nil
}

// MoveUp swaps item i with its predecessor. Moving the first item is a no-op.
func (e *Editor) MoveUp(i int) error {
	return e.move(i, -1)
}

// MoveDown swaps item i with its successor. Moving the last item is a no-op.
func (e *Editor) MoveDown(i int) error {
	return e.move(i, 1)
}

func (e *Editor) move(i, delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardMutation(StateEditing); err != nil {
		return err
	}
	if err := e.checkIndex(i); err != nil {
		return err
	}
	j := i + delta
	if j < 0 || j >= len(e.plan) {
		return nil
	}
	e.plan[i], e.plan[j] = e.plan[j], e.plan[i]
	return nil
}

// Finalize hands the plan off and discards the conversation.
func (e *Editor) Finalize() (learning.Plan, error) {
	return e.FinalizeWith(nil)
}

// FinalizeWith runs handoff on the final plan while the editor is held, and finalizes only when it
// succeeds. A handoff error leaves the editor as it was.
func (e *Editor) FinalizeWith(handoff func(learning.Plan) error) (learning.Plan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardMutation(StateEditing); err != nil {
		return nil, err
	}
	if len(e.plan) == 0 {
		return nil, ErrEmptyPlan
	}
	out := e.plan.Clone()
	if handoff != nil {
		if err := handoff(out.Clone()); err != nil {
			return nil, err
		}
	}
	e.history = nil
	e.state = StateFinalized
	return out, nil
}

// Cancel abandons the editor from any non-terminal state. A generation in flight keeps running but its
// result is dropped.
func (e *Editor) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Terminal() {
		return fmt.Errorf("%w: already %s", ErrInvalidTransition, e.state)
	}
	e.plan = nil
	e.history = nil
	e.editingIndex = -1
	e.draft = learning.ConceptItem{}
	e.resume = ""
	e.state = StateCancelled
	return nil
}
