package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/learnloop-backend/internal/http/response"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
	"github.com/yungbote/learnloop-backend/internal/services"
)

type SessionHandlerDeps struct {
	Log      *logger.Logger
	Sessions services.LearningSessionService
}

type SessionHandler struct {
	log      *logger.Logger
	sessions services.LearningSessionService
}

func NewSessionHandlerWithDeps(deps SessionHandlerDeps) *SessionHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &SessionHandler{log: log.With("handler", "SessionHandler"), sessions: deps.Sessions}
}

// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func() (services.SessionView, error) { return h.sessions.Get(c.Request.Context(), id) })
}

type selectReq struct {
	Index *int `json:"index"`
}

// POST /api/sessions/:id/select
func (h *SessionHandler) Select(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req selectReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errInvalidRequest)
		return
	}
	h.respond(c, func() (services.SessionView, error) {
		return h.sessions.Select(c.Request.Context(), id, *req.Index)
	})
}

// POST /api/sessions/:id/next
func (h *SessionHandler) Next(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func() (services.SessionView, error) { return h.sessions.Next(c.Request.Context(), id) })
}

// POST /api/sessions/:id/previous
func (h *SessionHandler) Previous(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func() (services.SessionView, error) { return h.sessions.Previous(c.Request.Context(), id) })
}

// POST /api/sessions/:id/concepts/:index/complete
func (h *SessionHandler) ToggleComplete(c *gin.Context) {
	id, i, ok := pathConcept(c)
	if !ok {
		return
	}
	h.respond(c, func() (services.SessionView, error) {
		return h.sessions.ToggleComplete(c.Request.Context(), id, i)
	})
}

// GET /api/sessions/:id/concepts/:index/problem?wait=1
func (h *SessionHandler) Problem(c *gin.Context) {
	id, i, ok := pathConcept(c)
	if !ok {
		return
	}
	pane, err := h.sessions.Problem(c.Request.Context(), id, i, c.Query("wait") == "1")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pane": pane})
}

// POST /api/sessions/:id/concepts/:index/problem/regenerate
func (h *SessionHandler) Regenerate(c *gin.Context) {
	id, i, ok := pathConcept(c)
	if !ok {
		return
	}
	pane, err := h.sessions.Regenerate(c.Request.Context(), id, i)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"pane": pane})
}

// POST /api/sessions/:id/concepts/:index/execute
func (h *SessionHandler) Execute(c *gin.Context) {
	id, i, ok := pathConcept(c)
	if !ok {
		return
	}
	var req executeCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondContractError(c, errInvalidRequest, gin.H{"success": false})
		return
	}
	res, err := h.sessions.Execute(c.Request.Context(), id, i, req.Code)
	if err != nil && !isSandboxError(err) {
		response.RespondAPIError(c, err)
		return
	}
	writeExecution(c, res, err)
}

// DELETE /api/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) respond(c *gin.Context, fn func() (services.SessionView, error)) {
	view, err := fn()
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": view})
}

func pathConcept(c *gin.Context) (uuid.UUID, int, bool) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return uuid.Nil, 0, false
	}
	i, ok := pathIndex(c)
	if !ok {
		return uuid.Nil, 0, false
	}
	return id, i, true
}
