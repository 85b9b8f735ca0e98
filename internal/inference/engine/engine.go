package engine

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

type Completion struct {
	Text  string
	Usage Usage
}

type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	// Operation labels metrics and spans ("plan", "problem", "chat").
	Operation string
}

// Engine is one configured model behind one provider.
type Engine interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (Completion, error)
	Stream(ctx context.Context, messages []Message, opts GenerateOptions, onDelta func(delta string)) (Completion, error)
	Model() string
}

// ErrUnconfigured is returned by an engine built without credentials.
var ErrUnconfigured = errors.New("model provider not configured")

type unconfigured struct {
	model  string
	reason string
}

// Unconfigured returns an engine whose every call fails with ErrUnconfigured. It lets the process boot
// without credentials and report the problem per request.
func Unconfigured(model, reason string) Engine {
	return &unconfigured{model: model, reason: reason}
}

func (u *unconfigured) Generate(context.Context, []Message, GenerateOptions) (Completion, error) {
	return Completion{}, u.err()
}

func (u *unconfigured) Stream(context.Context, []Message, GenerateOptions, func(string)) (Completion, error) {
	return Completion{}, u.err()
}

func (u *unconfigured) Model() string { return u.model }

func (u *unconfigured) err() error {
	if u.reason == "" {
		return ErrUnconfigured
	}
	return &configError{reason: u.reason}
}

type configError struct{ reason string }

func (e *configError) Error() string { return ErrUnconfigured.Error() + ": " + e.reason }
func (e *configError) Unwrap() error { return ErrUnconfigured }
