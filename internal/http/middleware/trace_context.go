package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/learnloop-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// resourceKinds maps a route prefix to the name used for its :id in logs.
var resourceKinds = []struct {
	prefix string
	kind   string
}{
	{"/api/plan-drafts/:id", "draft"},
	{"/api/sessions/:id", "session"},
}

// AttachTraceContext gives every request a request ID and a trace ID. An otelgin span wins over a
// generated trace ID; caller-supplied headers win over both.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := &ctxutil.TraceData{
			RequestID: strings.TrimSpace(c.GetHeader(headerRequestID)),
			TraceID:   strings.TrimSpace(c.GetHeader(headerTraceID)),
			Resource:  resourceOf(c),
		}
		if td.RequestID == "" {
			td.RequestID = uuid.NewString()
		}
		if td.TraceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				td.TraceID = sc.TraceID().String()
			} else {
				td.TraceID = uuid.NewString()
			}
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Writer.Header().Set(headerTraceID, td.TraceID)
		c.Writer.Header().Set(headerRequestID, td.RequestID)
		c.Next()
	}
}

func resourceOf(c *gin.Context) string {
	id := c.Param("id")
	if id == "" {
		return ""
	}
	route := c.FullPath()
	for _, rk := range resourceKinds {
		if strings.HasPrefix(route, rk.prefix) {
			return rk.kind + ":" + id
		}
	}
	return ""
}
