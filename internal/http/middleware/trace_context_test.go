package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/ctxutil"
)

func TestAttachTraceContextNamesResource(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		route    string
		path     string
		reqID    string
		resource string
	}{
		{"draft", "/api/plan-drafts/:id/revise", "/api/plan-drafts/abc/revise", "", "draft:abc"},
		{"session", "/api/sessions/:id/concepts/:index/problem", "/api/sessions/s1/concepts/2/problem", "r-1", "session:s1"},
		{"stateless", "/api/generate-plan", "/api/generate-plan", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got *ctxutil.TraceData
			r := gin.New()
			r.Use(AttachTraceContext())
			r.GET(tc.route, func(c *gin.Context) {
				got = ctxutil.GetTraceData(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.reqID != "" {
				req.Header.Set(headerRequestID, tc.reqID)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if got == nil {
				t.Fatalf("no trace data attached")
			}
			if got.Resource != tc.resource {
				t.Fatalf("resource=%q want %q", got.Resource, tc.resource)
			}
			if got.TraceID == "" || rec.Header().Get(headerTraceID) != got.TraceID {
				t.Fatalf("trace id=%q header=%q", got.TraceID, rec.Header().Get(headerTraceID))
			}
			if tc.reqID != "" && got.RequestID != tc.reqID {
				t.Fatalf("request id=%q want %q", got.RequestID, tc.reqID)
			}
		})
	}
}

func TestMetricsSkipsProbesAndFoldsUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/sessions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/healthcheck", "/api/sessions/a", "/api/sessions/b", "/nope/1", "/nope/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`api_requests_total{method="GET",route="/api/sessions/:id",status="200"} 2`,
		`api_requests_total{method="GET",route="unmatched",status="404"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, `route="/healthcheck"`) {
		t.Fatalf("probe route was recorded")
	}
}
