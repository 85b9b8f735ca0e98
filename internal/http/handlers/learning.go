package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/http/response"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/chat"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/plan"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/sandbox"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
	"github.com/yungbote/learnloop-backend/internal/services"
	"github.com/yungbote/learnloop-backend/internal/sse"
)

var (
	errInvalidRequest   = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "invalid_request", "Invalid request body")
	errVideoURLRequired = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "video_url_required", "Video URL is required")
)

const (
	problemDownloadName = "problem.py"
	chatKeepAlive       = 15 * time.Second
)

type LearningHandlerDeps struct {
	Log       *logger.Logger
	Assistant services.LearningAssistant
}

// LearningHandler serves the stateless endpoints. Their bodies are a fixed public contract, so errors use
// the flat {error, details} shape instead of the error envelope.
type LearningHandler struct {
	log       *logger.Logger
	assistant services.LearningAssistant
}

func NewLearningHandlerWithDeps(deps LearningHandlerDeps) *LearningHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &LearningHandler{log: log.With("handler", "LearningHandler"), assistant: deps.Assistant}
}

type generatePlanReq struct {
	Subject             string                      `json:"subject"`
	ConversationHistory []learning.ConversationTurn `json:"conversationHistory"`
}

// POST /api/generate-plan
func (h *LearningHandler) GeneratePlan(c *gin.Context) {
	var req generatePlanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondContractError(c, errInvalidRequest, nil)
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		response.RespondContractError(c, plan.ErrEmptySubject, nil)
		return
	}
	out, err := h.assistant.GeneratePlan(c.Request.Context(), req.Subject, req.ConversationHistory)
	if err != nil {
		response.RespondContractError(c, err, nil)
		return
	}
	if !out.Parsed() {
		c.JSON(http.StatusOK, gin.H{
			"success":             false,
			"rawResponse":         out.RawResponse,
			"error":               plan.ParseFailureMessage,
			"conversationHistory": out.History,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"plan":                out.Plan,
		"conversationHistory": out.History,
	})
}

type generateProblemReq struct {
	VideoURL   string `json:"videoUrl"`
	Regenerate bool   `json:"regenerate"`
}

// POST /api/generate-problem?download=1
func (h *LearningHandler) GenerateProblem(c *gin.Context) {
	var req generateProblemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondContractError(c, errInvalidRequest, nil)
		return
	}
	if strings.TrimSpace(req.VideoURL) == "" {
		response.RespondContractError(c, errVideoURLRequired, nil)
		return
	}
	res, err := h.assistant.GenerateProblem(c.Request.Context(), req.VideoURL, req.Regenerate)
	if err != nil {
		response.RespondContractError(c, err, nil)
		return
	}
	if c.Query("download") == "1" {
		c.Header("Content-Disposition", `attachment; filename="`+problemDownloadName+`"`)
		c.Data(http.StatusOK, "text/x-python; charset=utf-8", []byte(res.Problem.PythonFile))
		return
	}
	body := gin.H{
		"success":    true,
		"videoId":    res.Problem.VideoID,
		"pythonFile": res.Problem.PythonFile,
		"usage":      res.Problem.Usage,
		"cached":     res.Cached,
	}
	if res.Truncated {
		body["transcriptTruncated"] = true
	}
	if w := res.Shape.Warnings(); len(w) > 0 {
		body["warnings"] = w
	}
	c.JSON(http.StatusOK, body)
}

type executeCodeReq struct {
	Code string `json:"code"`
}

// POST /api/execute-code
func (h *LearningHandler) ExecuteCode(c *gin.Context) {
	var req executeCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondContractError(c, errInvalidRequest, gin.H{"success": false})
		return
	}
	res, err := h.assistant.ExecuteCode(c.Request.Context(), req.Code)
	writeExecution(c, res, err)
}

// writeExecution renders a sandbox outcome. A program that ran and failed is still a 200; only
// executor problems change the status.
func writeExecution(c *gin.Context, res learning.ExecutionResult, err error) {
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}
	if msg, ok := sandbox.RejectionMessage(err); ok {
		c.JSON(apierr.From(err).Status, gin.H{"success": false, "error": msg})
		return
	}
	response.RespondContractError(c, err, gin.H{"success": false})
}

func isSandboxError(err error) bool {
	for _, target := range []error{
		sandbox.ErrEmptyCode,
		sandbox.ErrExecutorUnconfigured,
		sandbox.ErrExecutorUnreachable,
		sandbox.ErrExecutorRejected,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type chatReq struct {
	Messages []learning.ConversationTurn `json:"messages"`
}

type chatDelta struct {
	Text string `json:"text"`
}

type chatDone struct {
	Text    string         `json:"text"`
	Markers chat.Markers   `json:"markers"`
	Usage   learning.Usage `json:"usage"`
}

// POST /api/chat
//
// The reply streams as "delta" events followed by one "done" event. Errors before the first delta are
// plain JSON; after it they arrive as an "error" event.
func (h *LearningHandler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondContractError(c, errInvalidRequest, nil)
		return
	}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	var stream *sse.Stream
	var openErr error
	defer func() {
		if stream != nil {
			stream.Close()
		}
	}()
	open := func() bool {
		if stream == nil && openErr == nil {
			stream, openErr = sse.Open(c.Writer, h.log)
			if openErr == nil {
				go stream.KeepAlive(ctx, chatKeepAlive)
			}
		}
		return openErr == nil
	}

	reply, err := h.assistant.Chat(ctx, req.Messages, func(delta string) {
		if delta == "" || !open() {
			return
		}
		if err := stream.Send(sse.EventDelta, chatDelta{Text: delta}); err != nil {
			h.log.Debug("chat client went away", "error", err)
		}
	})
	if openErr != nil {
		h.log.Warn("chat stream could not be opened", "error", openErr)
	}

	if err != nil {
		if stream == nil {
			response.RespondContractError(c, err, nil)
			return
		}
		ae := apierr.From(err)
		_ = stream.Send(sse.EventError, gin.H{"error": ae.Error(), "code": ae.Code})
		return
	}
	if !open() {
		c.JSON(http.StatusOK, chatDone{Text: reply.Text, Markers: reply.Markers, Usage: reply.Usage})
		return
	}
	if err := stream.Send(sse.EventDone, chatDone{Text: reply.Text, Markers: reply.Markers, Usage: reply.Usage}); err != nil {
		h.log.Debug("chat done event not delivered", "error", err)
	}
}
