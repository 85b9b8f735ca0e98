package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
)

var errMissing = apierr.Sentinel(apierr.KindNotFound, http.StatusNotFound, "thing_not_found", "thing not found")

func TestRespondAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondAPIError(c, fmt.Errorf("%w: 42", errMissing))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "thing_not_found" || env.Error.Message != "thing not found: 42" {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestRespondContractError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name    string
		err     error
		extra   gin.H
		status  int
		message string
		details string
	}{
		{"bare sentinel", errMissing, nil, http.StatusNotFound, "thing not found", ""},
		{"wrapped", fmt.Errorf("%w: dial tcp: refused", errMissing), gin.H{"success": false}, http.StatusNotFound, "thing not found", "dial tcp: refused"},
		{"plain", errors.New("boom"), nil, http.StatusInternalServerError, "boom", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondContractError(c, tc.err, tc.extra)

			if rec.Code != tc.status {
				t.Fatalf("status=%d", rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != tc.message {
				t.Fatalf("error=%v", body["error"])
			}
			if d, _ := body["details"].(string); d != tc.details {
				t.Fatalf("details=%q", d)
			}
			if tc.extra != nil && body["success"] != false {
				t.Fatalf("extra fields missing: %v", body)
			}
		})
	}
}
