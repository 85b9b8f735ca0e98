package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/learnloop-backend/internal/data/repos"
	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/editor"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/plan"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/pkg/dbctx"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

var ErrDraftNotFound = apierr.Sentinel(apierr.KindNotFound, http.StatusNotFound, "draft_not_found", "plan draft not found")

// DraftView is what clients see of a plan draft.
type DraftView struct {
	ID uuid.UUID `json:"id"`
	editor.Snapshot
}

// DraftOp is one synchronous editor mutation.
type DraftOp func(*editor.Editor) error

type PlanDraftService interface {
	// Create opens a draft for subject and runs the first generation. A model failure discards the draft;
	// an unparsed reply keeps it idle with the exchange in its history.
	Create(ctx context.Context, subject string) (DraftView, error)
	// Generate retries the first generation of an idle draft.
	Generate(ctx context.Context, id uuid.UUID, subject string) (DraftView, error)
	Get(ctx context.Context, id uuid.UUID) (DraftView, error)
	Revise(ctx context.Context, id uuid.UUID, feedback string) (DraftView, error)
	Apply(ctx context.Context, id uuid.UUID, op DraftOp) (DraftView, error)
	// Finalize hands the plan to a new learning session and retires the draft.
	Finalize(ctx context.Context, id uuid.UUID) (SessionView, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Active() int
}

type planDraftService struct {
	db       *gorm.DB
	log      *logger.Logger
	drafts   repos.PlanDraftRepo
	gen      editor.PlanGenerator
	sessions LearningSessionService
	metrics  *observability.Metrics

	mu      sync.Mutex
	editors map[uuid.UUID]*draftEntry
}

type draftEntry struct {
	ed *editor.Editor
	// persistMu orders writes so the last save carries the latest snapshot.
	persistMu sync.Mutex
}

func NewPlanDraftService(db *gorm.DB, log *logger.Logger, drafts repos.PlanDraftRepo, gen editor.PlanGenerator, sessions LearningSessionService, metrics *observability.Metrics) PlanDraftService {
	return &planDraftService{
		db:       db,
		log:      log.With("service", "PlanDraftService"),
		drafts:   drafts,
		gen:      gen,
		sessions: sessions,
		metrics:  metrics,
		editors:  map[uuid.UUID]*draftEntry{},
	}
}

func (s *planDraftService) Create(ctx context.Context, subject string) (DraftView, error) {
	if strings.TrimSpace(subject) == "" {
		return DraftView{}, plan.ErrEmptySubject
	}
	ed := editor.New(s.gen, s.log)
	row := &learning.PlanDraft{Subject: subject, State: string(editor.StateIdle), EditingIndex: -1}
	if _, err := s.drafts.Create(dbctx.Of(ctx), row); err != nil {
		return DraftView{}, fmt.Errorf("create plan draft: %w", err)
	}
	entry := s.register(row.ID, ed)

	if _, err := ed.Generate(ctx, subject); err != nil && !errors.Is(err, editor.ErrCancelled) {
		s.forget(row.ID)
		if derr := s.drafts.SoftDeleteByID(dbctx.Of(context.WithoutCancel(ctx)), row.ID); derr != nil {
			s.log.Warn("discard failed draft", "draft_id", row.ID, "error", derr)
		}
		return DraftView{}, err
	}
	return s.persist(ctx, row.ID, entry)
}

func (s *planDraftService) Generate(ctx context.Context, id uuid.UUID, subject string) (DraftView, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return DraftView{}, err
	}
	_, genErr := entry.ed.Generate(ctx, subject)
	view, err := s.persist(ctx, id, entry)
	if genErr != nil {
		return view, genErr
	}
	return view, err
}

func (s *planDraftService) Get(ctx context.Context, id uuid.UUID) (DraftView, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return DraftView{}, err
	}
	return DraftView{ID: id, Snapshot: entry.ed.Snapshot()}, nil
}

func (s *planDraftService) Revise(ctx context.Context, id uuid.UUID, feedback string) (DraftView, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return DraftView{}, err
	}
	_, revErr := entry.ed.Revise(ctx, feedback)
	view, err := s.persist(ctx, id, entry)
	if revErr != nil {
		return view, revErr
	}
	return view, err
}

func (s *planDraftService) Apply(ctx context.Context, id uuid.UUID, op DraftOp) (DraftView, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return DraftView{}, err
	}
	if err := op(entry.ed); err != nil {
		return DraftView{ID: id, Snapshot: entry.ed.Snapshot()}, err
	}
	return s.persist(ctx, id, entry)
}

func (s *planDraftService) Finalize(ctx context.Context, id uuid.UUID) (SessionView, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	subject := entry.ed.Snapshot().Subject
	var view SessionView
	// The draft stays editable until the session exists, so a failed start can be retried.
	if _, err := entry.ed.FinalizeWith(func(p learning.Plan) error {
		var serr error
		view, serr = s.sessions.Start(ctx, &id, subject, p)
		return serr
	}); err != nil {
		return SessionView{}, err
	}
	s.retire(ctx, id)
	return view, nil
}

func (s *planDraftService) Cancel(ctx context.Context, id uuid.UUID) error {
	entry, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := entry.ed.Cancel(); err != nil {
		return err
	}
	s.retire(ctx, id)
	return nil
}

func (s *planDraftService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.editors)
}

func (s *planDraftService) register(id uuid.UUID, ed *editor.Editor) *draftEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.editors[id]; ok {
		return e
	}
	e := &draftEntry{ed: ed}
	s.editors[id] = e
	s.metrics.SetSessionsActive("plan_draft", len(s.editors))
	return e
}

func (s *planDraftService) forget(id uuid.UUID) {
	s.mu.Lock()
	delete(s.editors, id)
	s.metrics.SetSessionsActive("plan_draft", len(s.editors))
	s.mu.Unlock()
}

func (s *planDraftService) retire(ctx context.Context, id uuid.UUID) {
	s.forget(id)
	if err := s.drafts.SoftDeleteByID(dbctx.Of(context.WithoutCancel(ctx)), id); err != nil {
		s.log.Warn("retire plan draft", "draft_id", id, "error", err)
	}
}

// load returns the live editor for id, restoring it from its persisted snapshot when this process has
// not seen it yet.
func (s *planDraftService) load(ctx context.Context, id uuid.UUID) (*draftEntry, error) {
	s.mu.Lock()
	e, ok := s.editors[id]
	s.mu.Unlock()
	if ok {
		return e, nil
	}

	row, err := s.drafts.GetByID(dbctx.Of(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load plan draft: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	snap, err := snapshotFromRow(row)
	if err != nil {
		return nil, err
	}
	if snap.State.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	return s.register(id, editor.Restore(s.gen, snap, s.log)), nil
}

func (s *planDraftService) persist(ctx context.Context, id uuid.UUID, e *draftEntry) (DraftView, error) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	snap := e.ed.Snapshot()
	view := DraftView{ID: id, Snapshot: snap}
	row, err := rowFromSnapshot(id, snap)
	if err != nil {
		return view, err
	}
	if err := s.drafts.Save(dbctx.Of(context.WithoutCancel(ctx)), row); err != nil {
		return view, fmt.Errorf("save plan draft: %w", err)
	}
	return view, nil
}

func rowFromSnapshot(id uuid.UUID, snap editor.Snapshot) (*learning.PlanDraft, error) {
	planJSON, err := json.Marshal(snap.Plan)
	if err != nil {
		return nil, err
	}
	historyJSON, err := json.Marshal(snap.History)
	if err != nil {
		return nil, err
	}
	row := &learning.PlanDraft{
		ID:           id,
		Subject:      snap.Subject,
		State:        string(snap.Stable()),
		Plan:         datatypes.JSON(planJSON),
		History:      datatypes.JSON(historyJSON),
		EditingIndex: snap.EditingIndex,
		LastError:    snap.LastError,
		RawResponse:  snap.RawResponse,
	}
	if snap.Draft != nil {
		draftJSON, err := json.Marshal(snap.Draft)
		if err != nil {
			return nil, err
		}
		row.Draft = datatypes.JSON(draftJSON)
	}
	return row, nil
}

func snapshotFromRow(row *learning.PlanDraft) (editor.Snapshot, error) {
	snap := editor.Snapshot{
		State:        editor.State(row.State),
		Subject:      row.Subject,
		EditingIndex: row.EditingIndex,
		LastError:    row.LastError,
		RawResponse:  row.RawResponse,
	}
	if err := unmarshalIfSet(row.Plan, &snap.Plan); err != nil {
		return snap, fmt.Errorf("decode draft plan: %w", err)
	}
	if err := unmarshalIfSet(row.History, &snap.History); err != nil {
		return snap, fmt.Errorf("decode draft history: %w", err)
	}
	if len(row.Draft) > 0 && string(row.Draft) != "null" {
		var item learning.ConceptItem
		if err := json.Unmarshal(row.Draft, &item); err != nil {
			return snap, fmt.Errorf("decode draft item: %w", err)
		}
		snap.Draft = &item
	}
	return snap, nil
}

func unmarshalIfSet(raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Ops for Apply.

func StartEdit(i int) DraftOp { return func(e *editor.Editor) error { return e.StartEdit(i) } }

func UpdateDraft(item learning.ConceptItem) DraftOp {
	return func(e *editor.Editor) error { return e.UpdateDraft(item) }
}

func SaveEdit() DraftOp    { return (*editor.Editor).SaveEdit }
func DiscardEdit() DraftOp { return (*editor.Editor).DiscardEdit }

func DeleteItem(i int) DraftOp { return func(e *editor.Editor) error { return e.Delete(i) } }
func MoveUp(i int) DraftOp     { return func(e *editor.Editor) error { return e.MoveUp(i) } }
func MoveDown(i int) DraftOp   { return func(e *editor.Editor) error { return e.MoveDown(i) } }
