// Package sandbox runs learner code on the remote execution service.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

const MaxTimeout = 60 * time.Second

var (
	ErrEmptyCode            = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "empty_code", "Code is required")
	ErrExecutorUnconfigured = apierr.Sentinel(apierr.KindUpstreamUnavailable, http.StatusInternalServerError, "executor_unconfigured", "Modal endpoint not configured")
	ErrExecutorUnreachable  = apierr.Sentinel(apierr.KindUpstreamUnavailable, http.StatusInternalServerError, "executor_unreachable", "Failed to execute code")
	ErrExecutorRejected     = apierr.Sentinel(apierr.KindUpstreamUnavailable, http.StatusInternalServerError, "executor_rejected", "Failed to execute code")
)

type Client struct {
	endpoint   string
	httpClient *http.Client
	metrics    *observability.Metrics
	log        *logger.Logger
}

func New(cfg config.SandboxConfig, metrics *observability.Metrics, log *logger.Logger) *Client {
	timeout := cfg.Timeout.Duration
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	return NewWithHTTPClient(cfg.URL, &http.Client{Timeout: timeout}, metrics, log)
}

// NewWithHTTPClient is intended for tests.
func NewWithHTTPClient(endpoint string, httpClient *http.Client, metrics *observability.Metrics, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: MaxTimeout}
	}
	return &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: httpClient,
		metrics:    metrics,
		log:        log.With("service", "SandboxClient"),
	}
}

func (c *Client) Configured() bool { return c != nil && c.endpoint != "" }

// Execute posts code to the execution service. The returned result is meaningful even when err is
// non-nil: it is a failed ExecutionResult describing what went wrong.
func (c *Client) Execute(ctx context.Context, code string) (res learning.ExecutionResult, err error) {
	if strings.TrimSpace(code) == "" {
		return failed(ErrEmptyCode.Error()), ErrEmptyCode
	}
	if !c.Configured() {
		c.metrics.IncSandboxExecution("unconfigured")
		return failed(ErrExecutorUnconfigured.Error()), ErrExecutorUnconfigured
	}

	ctx, span := observability.StartSpan(ctx, "sandbox.execute", attribute.Int("code.bytes", len(code)))
	defer func() { observability.EndSpan(span, err) }()

	body, _ := json.Marshal(map[string]string{"code": code})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return failed(err.Error()), fmt.Errorf("%w: %v", ErrExecutorUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncSandboxExecution("unreachable")
		c.log.Warn("sandbox request failed", "error", err, "elapsed", time.Since(start))
		return failed(ErrExecutorUnreachable.Error()), fmt.Errorf("%w: %v", ErrExecutorUnreachable, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := rejectionMessage(raw)
		c.metrics.IncSandboxExecution("rejected")
		c.log.Warn("sandbox rejected execution", "status", resp.StatusCode, "error", msg)
		return failed(msg), &RejectedError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, &res); err != nil {
		c.metrics.IncSandboxExecution("rejected")
		return failed("invalid response from execution service"), &RejectedError{Status: resp.StatusCode, Message: "invalid response from execution service"}
	}
	if res.ExecutionTime < 0 {
		res.ExecutionTime = 0
	}
	if res.Success {
		c.metrics.IncSandboxExecution("success")
	} else {
		c.metrics.IncSandboxExecution("failure")
	}
	c.log.Debug("sandbox execution finished", "success", res.Success, "execution_time", res.ExecutionTime)
	return res, nil
}

// RejectedError carries the execution service's own error message. It matches ErrExecutorRejected.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("execution service returned %d: %s", e.Status, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrExecutorRejected }

func rejectionMessage(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return payload.Error
	}
	if s := strings.TrimSpace(string(raw)); s != "" && !strings.HasPrefix(s, "{") {
		if len(s) > 512 {
			s = s[:512]
		}
		return s
	}
	return ErrExecutorRejected.Error()
}

func failed(msg string) learning.ExecutionResult {
	return learning.ExecutionResult{Success: false, Error: msg}
}

// RejectionMessage extracts the execution service's message from err, if err is a rejection.
func RejectionMessage(err error) (string, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Message, true
	}
	return "", false
}
