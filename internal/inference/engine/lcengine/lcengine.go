// Package lcengine adapts a langchaingo model to engine.Engine. The Anthropic provider is built here.
package lcengine

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/inference/engine"
)

type Engine struct {
	llm   llms.Model
	model string

	timeout       time.Duration
	streamTimeout time.Duration
}

// New wraps any langchaingo model; model is only used for labelling. Calls carry no deadline beyond
// the caller's until WithTimeouts is applied.
func New(llm llms.Model, model string) *Engine {
	return &Engine{llm: llm, model: model}
}

// WithTimeouts bounds Generate by timeout and Stream by streamTimeout. Zero leaves that mode unbounded.
func (e *Engine) WithTimeouts(timeout, streamTimeout time.Duration) *Engine {
	e.timeout = timeout
	e.streamTimeout = streamTimeout
	return e
}

func NewAnthropic(cfg config.LLMConfig) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic: api key required")
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []anthropic.Option{
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithModel(cfg.Model),
		anthropic.WithHTTPClient(&http.Client{Timeout: clientTimeout(timeout, cfg.StreamTimeout.Duration)}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	llm, err := anthropic.New(opts...)
	if err != nil {
		return nil, err
	}
	return New(llm, cfg.Model).WithTimeouts(timeout, cfg.StreamTimeout.Duration), nil
}

// clientTimeout is the hard ceiling on one HTTP exchange; streams may run longer than plain calls.
func clientTimeout(timeout, streamTimeout time.Duration) time.Duration {
	if streamTimeout > timeout {
		return streamTimeout
	}
	return timeout
}

func (e *Engine) Model() string { return e.model }

func (e *Engine) Generate(ctx context.Context, messages []engine.Message, opts engine.GenerateOptions) (engine.Completion, error) {
	return e.call(ctx, messages, opts, nil)
}

func (e *Engine) Stream(ctx context.Context, messages []engine.Message, opts engine.GenerateOptions, onDelta func(string)) (engine.Completion, error) {
	return e.call(ctx, messages, opts, onDelta)
}

func (e *Engine) call(ctx context.Context, messages []engine.Message, opts engine.GenerateOptions, onDelta func(string)) (engine.Completion, error) {
	content := toMessageContent(messages)
	if len(content) == 0 {
		return engine.Completion{}, errors.New("no messages")
	}

	var callOpts []llms.CallOption
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if onDelta != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) > 0 {
				onDelta(string(chunk))
			}
			return nil
		}))
	}

	limit := e.timeout
	if onDelta != nil {
		limit = e.streamTimeout
	}
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	resp, err := e.llm.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return engine.Completion{}, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return engine.Completion{}, errors.New("empty upstream completion")
	}
	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Content) == "" {
		return engine.Completion{}, errors.New("empty upstream completion")
	}
	return engine.Completion{Text: choice.Content, Usage: usageFrom(choice.GenerationInfo)}, nil
}

func toMessageContent(messages []engine.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		var role llms.ChatMessageType
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case engine.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case engine.RoleAssistant:
			role = llms.ChatMessageTypeAI
		case engine.RoleUser:
			role = llms.ChatMessageTypeHuman
		default:
			continue
		}
		out = append(out, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	return out
}

// Providers report token counts under different keys.
func usageFrom(info map[string]any) engine.Usage {
	return engine.Usage{
		InputTokens:  firstInt(info, "InputTokens", "PromptTokens", "input_tokens"),
		OutputTokens: firstInt(info, "OutputTokens", "CompletionTokens", "output_tokens"),
	}
}

func firstInt(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
