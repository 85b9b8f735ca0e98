package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/learnloop-backend/internal/data/repos"
	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/session"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/videoref"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/pkg/dbctx"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

var ErrSessionNotFound = apierr.Sentinel(apierr.KindNotFound, http.StatusNotFound, "session_not_found", "learning session not found")

// VideoLinks are the player URLs of one concept. Empty when its reference is not a valid video.
type VideoLinks struct {
	VideoID   string `json:"videoId,omitempty"`
	Thumbnail string `json:"thumbnailUrl,omitempty"`
	Embed     string `json:"embedUrl,omitempty"`
	Watch     string `json:"watchUrl,omitempty"`
}

type SessionView struct {
	ID      uuid.UUID  `json:"id"`
	DraftID *uuid.UUID `json:"draftId,omitempty"`
	Subject string     `json:"subject"`
	session.View
	Videos []VideoLinks `json:"videos"`
}

type LearningSessionService interface {
	Start(ctx context.Context, draftID *uuid.UUID, subject string, plan learning.Plan) (SessionView, error)
	Get(ctx context.Context, id uuid.UUID) (SessionView, error)
	Select(ctx context.Context, id uuid.UUID, index int) (SessionView, error)
	Next(ctx context.Context, id uuid.UUID) (SessionView, error)
	Previous(ctx context.Context, id uuid.UUID) (SessionView, error)
	ToggleComplete(ctx context.Context, id uuid.UUID, index int) (SessionView, error)
	// Problem returns the pane at index, starting its load if needed and blocking until the load settles
	// when wait is set.
	Problem(ctx context.Context, id uuid.UUID, index int, wait bool) (session.Pane, error)
	Regenerate(ctx context.Context, id uuid.UUID, index int) (session.Pane, error)
	Execute(ctx context.Context, id uuid.UUID, index int, code string) (learning.ExecutionResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Active() int
	// Close stops every live session without touching persisted progress.
	Close()
}

type sessionEntry struct {
	orch    *session.Orchestrator
	subject string
	draftID *uuid.UUID
}

type learningSessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.LearningSessionRepo
	loader   session.ProblemLoader
	exec     session.Executor
	opts     session.Options
	metrics  *observability.Metrics

	mu   sync.Mutex
	live map[uuid.UUID]*sessionEntry
}

func NewLearningSessionService(
	db *gorm.DB,
	log *logger.Logger,
	sessions repos.LearningSessionRepo,
	loader session.ProblemLoader,
	exec session.Executor,
	opts session.Options,
	metrics *observability.Metrics,
) LearningSessionService {
	return &learningSessionService{
		db:       db,
		log:      log.With("service", "LearningSessionService"),
		sessions: sessions,
		loader:   loader,
		exec:     exec,
		opts:     opts,
		metrics:  metrics,
		live:     map[uuid.UUID]*sessionEntry{},
	}
}

func (s *learningSessionService) Start(ctx context.Context, draftID *uuid.UUID, subject string, plan learning.Plan) (SessionView, error) {
	orch, err := session.New(plan, s.loader, s.exec, s.opts, s.log)
	if err != nil {
		return SessionView{}, err
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		orch.Close()
		return SessionView{}, err
	}
	row := &learning.LearningSession{
		DraftID:   draftID,
		Subject:   subject,
		Plan:      datatypes.JSON(planJSON),
		Completed: datatypes.JSON("[]"),
	}
	if _, err := s.sessions.Create(dbctx.Of(ctx), row); err != nil {
		orch.Close()
		return SessionView{}, fmt.Errorf("create learning session: %w", err)
	}
	e := s.register(row.ID, &sessionEntry{orch: orch, subject: subject, draftID: draftID})
	s.log.Info("learning session started", "session_id", row.ID, "concepts", len(plan))
	return s.view(row.ID, e), nil
}

func (s *learningSessionService) Get(ctx context.Context, id uuid.UUID) (SessionView, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(id, e), nil
}

func (s *learningSessionService) Select(ctx context.Context, id uuid.UUID, index int) (SessionView, error) {
	return s.navigate(ctx, id, func(o *session.Orchestrator) error { return o.Select(index) })
}

func (s *learningSessionService) Next(ctx context.Context, id uuid.UUID) (SessionView, error) {
	return s.navigate(ctx, id, func(o *session.Orchestrator) error {
		_, err := o.Next()
		return err
	})
}

func (s *learningSessionService) Previous(ctx context.Context, id uuid.UUID) (SessionView, error) {
	return s.navigate(ctx, id, func(o *session.Orchestrator) error {
		_, err := o.Previous()
		return err
	})
}

func (s *learningSessionService) ToggleComplete(ctx context.Context, id uuid.UUID, index int) (SessionView, error) {
	return s.navigate(ctx, id, func(o *session.Orchestrator) error {
		_, err := o.ToggleComplete(index)
		return err
	})
}

func (s *learningSessionService) navigate(ctx context.Context, id uuid.UUID, op func(*session.Orchestrator) error) (SessionView, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	if err := op(e.orch); err != nil {
		return SessionView{}, err
	}
	current, completed := e.orch.Progress()
	completedJSON, err := json.Marshal(completed)
	if err != nil {
		return SessionView{}, err
	}
	if err := s.sessions.UpdateFields(dbctx.Of(context.WithoutCancel(ctx)), id, map[string]interface{}{
		"current_index": current,
		"completed":     datatypes.JSON(completedJSON),
	}); err != nil {
		return SessionView{}, fmt.Errorf("save session progress: %w", err)
	}
	return s.view(id, e), nil
}

func (s *learningSessionService) Problem(ctx context.Context, id uuid.UUID, index int, wait bool) (session.Pane, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return session.Pane{}, err
	}
	if err := e.orch.Prefetch(index); err != nil {
		return session.Pane{}, err
	}
	if !wait {
		return e.orch.Pane(index)
	}
	return e.orch.Await(ctx, index)
}

func (s *learningSessionService) Regenerate(ctx context.Context, id uuid.UUID, index int) (session.Pane, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return session.Pane{}, err
	}
	if err := e.orch.Regenerate(index); err != nil {
		return session.Pane{}, err
	}
	return e.orch.Pane(index)
}

func (s *learningSessionService) Execute(ctx context.Context, id uuid.UUID, index int, code string) (learning.ExecutionResult, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return learning.ExecutionResult{}, err
	}
	return e.orch.Execute(ctx, index, code)
}

func (s *learningSessionService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.live[id]
	delete(s.live, id)
	s.metrics.SetSessionsActive("learning_session", len(s.live))
	s.mu.Unlock()
	if ok {
		e.orch.Close()
	}
	row, err := s.sessions.GetByID(dbctx.Of(ctx), id)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.sessions.SoftDeleteByID(dbctx.Of(ctx), id)
}

func (s *learningSessionService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *learningSessionService) Close() {
	s.mu.Lock()
	live := s.live
	s.live = map[uuid.UUID]*sessionEntry{}
	s.metrics.SetSessionsActive("learning_session", 0)
	s.mu.Unlock()
	for _, e := range live {
		e.orch.Close()
	}
}

func (s *learningSessionService) register(id uuid.UUID, e *sessionEntry) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.live[id]; ok {
		e.orch.Close()
		return cur
	}
	s.live[id] = e
	s.metrics.SetSessionsActive("learning_session", len(s.live))
	return e
}

func (s *learningSessionService) load(ctx context.Context, id uuid.UUID) (*sessionEntry, error) {
	s.mu.Lock()
	e, ok := s.live[id]
	s.mu.Unlock()
	if ok {
		return e, nil
	}

	row, err := s.sessions.GetByID(dbctx.Of(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load learning session: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	var plan learning.Plan
	if err := unmarshalIfSet(row.Plan, &plan); err != nil {
		return nil, fmt.Errorf("decode session plan: %w", err)
	}
	var completed []int
	if err := unmarshalIfSet(row.Completed, &completed); err != nil {
		return nil, fmt.Errorf("decode session progress: %w", err)
	}
	orch, err := session.Resume(plan, row.CurrentIndex, completed, s.loader, s.exec, s.opts, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Debug("learning session resumed", "session_id", id, "current", row.CurrentIndex)
	return s.register(id, &sessionEntry{orch: orch, subject: row.Subject, draftID: row.DraftID}), nil
}

func (s *learningSessionService) view(id uuid.UUID, e *sessionEntry) SessionView {
	v := e.orch.View()
	out := SessionView{ID: id, DraftID: e.draftID, Subject: e.subject, View: v, Videos: make([]VideoLinks, len(v.Plan))}
	for i, item := range v.Plan {
		vid, ok := videoref.ExtractID(item.VideoURL)
		if !ok {
			continue
		}
		out.Videos[i] = VideoLinks{
			VideoID:   vid,
			Thumbnail: videoref.ThumbnailURL(vid),
			Embed:     videoref.EmbedURL(vid),
			Watch:     videoref.WatchURL(vid),
		}
	}
	return out
}
