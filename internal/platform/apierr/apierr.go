package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by how a caller is expected to react to them.
type Kind string

const (
	KindInputValidation     Kind = "input_validation"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindOutputUnparseable   Kind = "output_unparseable"
	KindExecutionFailure    Kind = "execution_failure"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindInternal            Kind = "internal"
)

type Error struct {
	Status int
	Code   string
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Kind: kindForStatus(status), Err: err}
}

// Sentinel declares a package-level error value. Wrap it with fmt.Errorf("%w: ...") to add detail;
// errors.Is still matches and From still recovers the status and code.
func Sentinel(kind Kind, status int, code string, msg string) *Error {
	return &Error{Status: status, Code: code, Kind: kind, Err: errors.New(msg)}
}

// From resolves the first *Error in err's chain. The returned error keeps err's full message so the
// caller sees the wrapped detail, not only the sentinel text.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return &Error{Status: ae.Status, Code: ae.Code, Kind: ae.Kind, Err: err}
	}
	return &Error{Status: http.StatusInternalServerError, Code: "internal_error", Kind: KindInternal, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 400 && status < 500:
		return KindInputValidation
	default:
		return KindInternal
	}
}
