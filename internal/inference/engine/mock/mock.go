package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yungbote/learnloop-backend/internal/inference/engine"
)

// Engine replays scripted replies in order and records every call. With no script it echoes the last
// user turn, which keeps LLM_PROVIDER=mock usable for local runs.
type Engine struct {
	mu      sync.Mutex
	replies []Reply
	calls   [][]engine.Message
	opts    []engine.GenerateOptions

	// Block, when set, is waited on before each reply so tests can hold a call in flight.
	Block chan struct{}
}

type Reply struct {
	Text  string
	Usage engine.Usage
	Err   error
}

func New(replies ...Reply) *Engine {
	return &Engine{replies: replies}
}

// Text is shorthand for a successful reply.
func Text(s string) Reply { return Reply{Text: s} }

// Fail is shorthand for a failing reply.
func Fail(err error) Reply { return Reply{Err: err} }

func (e *Engine) Model() string { return "mock-1" }

// Push appends more scripted replies.
func (e *Engine) Push(replies ...Reply) {
	e.mu.Lock()
	e.replies = append(e.replies, replies...)
	e.mu.Unlock()
}

// Calls returns a copy of the message lists the engine received.
func (e *Engine) Calls() [][]engine.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]engine.Message, len(e.calls))
	for i, c := range e.calls {
		out[i] = append([]engine.Message(nil), c...)
	}
	return out
}

// Options returns the options of every call, in order.
func (e *Engine) Options() []engine.GenerateOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.GenerateOptions(nil), e.opts...)
}

func (e *Engine) Generate(ctx context.Context, messages []engine.Message, opts engine.GenerateOptions) (engine.Completion, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]engine.Message(nil), messages...))
	e.opts = append(e.opts, opts)
	var (
		r      Reply
		script bool
	)
	if len(e.replies) > 0 {
		r, e.replies, script = e.replies[0], e.replies[1:], true
	}
	block := e.Block
	e.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return engine.Completion{}, ctx.Err()
		}
	}
	if !script {
		return engine.Completion{Text: echo(messages)}, nil
	}
	if r.Err != nil {
		return engine.Completion{}, r.Err
	}
	return engine.Completion{Text: r.Text, Usage: r.Usage}, nil
}

func (e *Engine) Stream(ctx context.Context, messages []engine.Message, opts engine.GenerateOptions, onDelta func(delta string)) (engine.Completion, error) {
	out, err := e.Generate(ctx, messages, opts)
	if err != nil {
		return engine.Completion{}, err
	}
	if onDelta == nil {
		return out, nil
	}
	const chunk = 16
	for i := 0; i < len(out.Text); i += chunk {
		select {
		case <-ctx.Done():
			return engine.Completion{}, ctx.Err()
		default:
		}
		end := i + chunk
		if end > len(out.Text) {
			end = len(out.Text)
		}
		onDelta(out.Text[i:end])
	}
	return out, nil
}

func echo(messages []engine.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, engine.RoleUser) && strings.TrimSpace(messages[i].Content) != "" {
			return fmt.Sprintf("mock: %s", messages[i].Content)
		}
	}
	return "mock: ok"
}
