package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:   "test",
		HTTP:  config.HTTPConfig{Addr: "127.0.0.1:0", MaxRequestBytes: 1 << 20},
		LLM:   config.LLMConfig{Provider: config.ProviderMock},
		Store: config.StoreConfig{Driver: "sqlite", DSN: "file:app_test?mode=memory&cache=shared"},
	}
}

func TestNewWiresReadyServer(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	a, err := New(context.Background(), testConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/execute-code", strings.NewReader(`{"code":"print(1)"}`))
	req.Header.Set("Content-Type", "application/json")
	a.Server.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "Modal endpoint not configured") {
		t.Fatalf("execute=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "mongo"
	if _, err := New(context.Background(), cfg, logger.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	a, err := New(context.Background(), testConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
