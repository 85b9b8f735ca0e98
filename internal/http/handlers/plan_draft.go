package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/http/response"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
	"github.com/yungbote/learnloop-backend/internal/services"
)

type PlanDraftHandlerDeps struct {
	Log    *logger.Logger
	Drafts services.PlanDraftService
}

type PlanDraftHandler struct {
	log    *logger.Logger
	drafts services.PlanDraftService
}

func NewPlanDraftHandlerWithDeps(deps PlanDraftHandlerDeps) *PlanDraftHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &PlanDraftHandler{log: log.With("handler", "PlanDraftHandler"), drafts: deps.Drafts}
}

type subjectReq struct {
	Subject string `json:"subject"`
}

// POST /api/plan-drafts
func (h *PlanDraftHandler) Create(c *gin.Context) {
	var req subjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.drafts.Create(c.Request.Context(), req.Subject)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"draft": view})
}

// GET /api/plan-drafts/:id
func (h *PlanDraftHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.drafts.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": view})
}

// POST /api/plan-drafts/:id/generate
func (h *PlanDraftHandler) Generate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req subjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.respond(c, func(ctx context.Context) (services.DraftView, error) {
		return h.drafts.Generate(ctx, id, req.Subject)
	})
}

type feedbackReq struct {
	Feedback string `json:"feedback"`
}

// POST /api/plan-drafts/:id/revise
func (h *PlanDraftHandler) Revise(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req feedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.respond(c, func(ctx context.Context) (services.DraftView, error) {
		return h.drafts.Revise(ctx, id, req.Feedback)
	})
}

// POST /api/plan-drafts/:id/items/:index/edit
func (h *PlanDraftHandler) StartEdit(c *gin.Context) { h.applyAt(c, services.StartEdit) }

// DELETE /api/plan-drafts/:id/items/:index
func (h *PlanDraftHandler) DeleteItem(c *gin.Context) { h.applyAt(c, services.DeleteItem) }

// POST /api/plan-drafts/:id/items/:index/move-up
func (h *PlanDraftHandler) MoveUp(c *gin.Context) { h.applyAt(c, services.MoveUp) }

// POST /api/plan-drafts/:id/items/:index/move-down
func (h *PlanDraftHandler) MoveDown(c *gin.Context) { h.applyAt(c, services.MoveDown) }

type draftItemReq struct {
	Item learning.ConceptItem `json:"item"`
}

// PUT /api/plan-drafts/:id/draft
func (h *PlanDraftHandler) UpdateDraft(c *gin.Context) {
	var req draftItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.apply(c, services.UpdateDraft(req.Item))
}

// POST /api/plan-drafts/:id/draft/save
func (h *PlanDraftHandler) SaveEdit(c *gin.Context) { h.apply(c, services.SaveEdit()) }

// DELETE /api/plan-drafts/:id/draft
func (h *PlanDraftHandler) DiscardEdit(c *gin.Context) { h.apply(c, services.DiscardEdit()) }

// POST /api/plan-drafts/:id/finalize
func (h *PlanDraftHandler) Finalize(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sv, err := h.drafts.Finalize(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sv})
}

// POST /api/plan-drafts/:id/cancel
func (h *PlanDraftHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.drafts.Cancel(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PlanDraftHandler) applyAt(c *gin.Context, op func(int) services.DraftOp) {
	i, ok := pathIndex(c)
	if !ok {
		return
	}
	h.apply(c, op(i))
}

func (h *PlanDraftHandler) apply(c *gin.Context, op services.DraftOp) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (services.DraftView, error) {
		return h.drafts.Apply(ctx, id, op)
	})
}

// respond renders the draft on success. A failure still carries the draft when the service returned
// one, so the client can redraw without another round trip.
func (h *PlanDraftHandler) respond(c *gin.Context, fn func(context.Context) (services.DraftView, error)) {
	view, err := fn(c.Request.Context())
	if err != nil {
		if view.ID == uuid.Nil {
			response.RespondAPIError(c, err)
			return
		}
		response.RespondAPIErrorWith(c, err, gin.H{"draft": view})
		return
	}
	response.RespondOK(c, gin.H{"draft": view})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func pathIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_index", err)
		return 0, false
	}
	return i, true
}
