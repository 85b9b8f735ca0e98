package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/learnloop-backend/internal/http/handlers"
	httpMW "github.com/yungbote/learnloop-backend/internal/http/middleware"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AllowOrigins   []string
	MaxRequestBody int64
	Tracing        bool

	LearningHandler  *httpH.LearningHandler
	PlanDraftHandler *httpH.PlanDraftHandler
	SessionHandler   *httpH.SessionHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		r.Use(otelgin.Middleware("learnloop-api"))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowOrigins))
	r.Use(httpMW.BodyLimit(cfg.MaxRequestBody))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Stateless generation endpoints
		if h := cfg.LearningHandler; h != nil {
			api.POST("/generate-plan", h.GeneratePlan)
			api.POST("/generate-problem", h.GenerateProblem)
			api.POST("/execute-code", h.ExecuteCode)
			api.POST("/chat", h.Chat)
		}

		// Plan editor
		if h := cfg.PlanDraftHandler; h != nil {
			api.POST("/plan-drafts", h.Create)
			api.GET("/plan-drafts/:id", h.Get)
			api.POST("/plan-drafts/:id/generate", h.Generate)
			api.POST("/plan-drafts/:id/revise", h.Revise)
			api.POST("/plan-drafts/:id/items/:index/edit", h.StartEdit)
			api.DELETE("/plan-drafts/:id/items/:index", h.DeleteItem)
			api.POST("/plan-drafts/:id/items/:index/move-up", h.MoveUp)
			api.POST("/plan-drafts/:id/items/:index/move-down", h.MoveDown)
			api.PUT("/plan-drafts/:id/draft", h.UpdateDraft)
			api.POST("/plan-drafts/:id/draft/save", h.SaveEdit)
			api.DELETE("/plan-drafts/:id/draft", h.DiscardEdit)
			api.POST("/plan-drafts/:id/finalize", h.Finalize)
			api.POST("/plan-drafts/:id/cancel", h.Cancel)
		}

		// Learning sessions
		if h := cfg.SessionHandler; h != nil {
			api.GET("/sessions/:id", h.Get)
			api.DELETE("/sessions/:id", h.Delete)
			api.POST("/sessions/:id/select", h.Select)
			api.POST("/sessions/:id/next", h.Next)
			api.POST("/sessions/:id/previous", h.Previous)
			api.POST("/sessions/:id/concepts/:index/complete", h.ToggleComplete)
			api.GET("/sessions/:id/concepts/:index/problem", h.Problem)
			api.POST("/sessions/:id/concepts/:index/problem/regenerate", h.Regenerate)
			api.POST("/sessions/:id/concepts/:index/execute", h.Execute)
		}
	}

	return r
}
