package oaihttp

import "fmt"

// HTTPError is a non-2xx reply from the completions server.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	if body == "" {
		return fmt.Sprintf("completions server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("completions server returned status %d: %s", e.StatusCode, body)
}
