package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes err with the status and code of the first apierr sentinel in its chain.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err)
	RespondError(c, ae.Status, ae.Code, ae)
}

// RespondAPIErrorWith is RespondAPIError with extra top-level fields next to the envelope.
func RespondAPIErrorWith(c *gin.Context, err error, extra gin.H) {
	ae := apierr.From(err)
	body := gin.H{"error": APIError{Message: ae.Error(), Code: ae.Code}}
	for k, v := range extra {
		if k != "error" {
			body[k] = v
		}
	}
	c.JSON(ae.Status, body)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondContractError writes the flat {error, details} body of the public generation endpoints. error is
// the sentinel's own message; details carries whatever the chain added to it. extra fields are merged in.
func RespondContractError(c *gin.Context, err error, extra gin.H) {
	ae := apierr.From(err)
	full := ae.Error()
	body := gin.H{"error": full}
	var base *apierr.Error
	if errors.As(err, &base) && base.Err != nil {
		msg := base.Err.Error()
		body["error"] = msg
		if d := strings.TrimPrefix(full, msg+": "); d != full && d != "" {
			body["details"] = d
		}
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(ae.Status, body)
}
