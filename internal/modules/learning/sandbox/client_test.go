package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func respond(status int, body string) roundTripperFunc {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}

func TestExecuteSuccess(t *testing.T) {
	var sent map[string]string
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.Header.Get("Content-Type") != "application/json" {
			t.Fatalf("unexpected request %s %v", req.Method, req.Header)
		}
		if err := json.NewDecoder(req.Body).Decode(&sent); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return respond(http.StatusOK, `{"success":true,"output":"3\n","error":"","execution_time":0.12}`)(req)
	})
	c := NewWithHTTPClient("http://sandbox.test/run", &http.Client{Transport: rt}, nil, nil)

	res, err := c.Execute(context.Background(), "print(1+2)")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sent["code"] != "print(1+2)" {
		t.Fatalf("sent=%v", sent)
	}
	if !res.Success || res.Output != "3\n" || res.ExecutionTime != 0.12 {
		t.Fatalf("res=%+v", res)
	}
}

func TestExecuteResults(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantMsg  string
		wantTime float64
	}{
		{name: "runtime failure is a value", status: 200, body: `{"success":false,"output":"","error":"ZeroDivisionError","execution_time":0.01}`, wantMsg: "ZeroDivisionError", wantTime: 0.01},
		{name: "negative time clamped", status: 200, body: `{"success":true,"output":"ok","execution_time":-3}`, wantTime: 0},
		{name: "rejected with payload", status: 500, body: `{"error":"container crashed"}`, wantErr: ErrExecutorRejected, wantMsg: "container crashed"},
		{name: "rejected plain text", status: 502, body: `bad gateway`, wantErr: ErrExecutorRejected, wantMsg: "bad gateway"},
		{name: "rejected empty", status: 503, body: ``, wantErr: ErrExecutorRejected, wantMsg: "Failed to execute code"},
		{name: "garbage 2xx", status: 200, body: `not json`, wantErr: ErrExecutorRejected, wantMsg: "invalid response from execution service"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewWithHTTPClient("http://sandbox.test/run", &http.Client{Transport: respond(tc.status, tc.body)}, nil, nil)
			res, err := c.Execute(context.Background(), "x = 1")
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err=%v want %v", err, tc.wantErr)
				}
				if res.Success {
					t.Fatalf("rejected result must not succeed")
				}
				if ae := apierr.From(err); ae.Status != http.StatusInternalServerError {
					t.Fatalf("status=%d", ae.Status)
				}
				if msg, ok := RejectionMessage(err); !ok || msg != tc.wantMsg {
					t.Fatalf("rejection message=%q ok=%v", msg, ok)
				}
			}
			if res.Error != tc.wantMsg {
				t.Fatalf("error=%q want %q", res.Error, tc.wantMsg)
			}
			if res.ExecutionTime != tc.wantTime {
				t.Fatalf("execution_time=%v", res.ExecutionTime)
			}
		})
	}
}

func TestExecuteFailsFastWithoutNetwork(t *testing.T) {
	called := false
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("unexpected call")
	})

	unconfigured := NewWithHTTPClient("", &http.Client{Transport: rt}, nil, nil)
	if _, err := unconfigured.Execute(context.Background(), "print(1)"); !errors.Is(err, ErrExecutorUnconfigured) {
		t.Fatalf("err=%v", err)
	}

	c := NewWithHTTPClient("http://sandbox.test/run", &http.Client{Transport: rt}, nil, nil)
	if _, err := c.Execute(context.Background(), "   "); !errors.Is(err, ErrEmptyCode) {
		t.Fatalf("err=%v", err)
	}
	if ae := apierr.From(ErrEmptyCode); ae.Status != http.StatusBadRequest {
		t.Fatalf("status=%d", ae.Status)
	}
	if called {
		t.Fatalf("no request should be sent")
	}
}

func TestExecuteUnreachable(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	c := NewWithHTTPClient("http://sandbox.test/run", &http.Client{Transport: rt}, nil, nil)
	res, err := c.Execute(context.Background(), "print(1)")
	if !errors.Is(err, ErrExecutorUnreachable) {
		t.Fatalf("err=%v", err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("res=%+v", res)
	}
}
