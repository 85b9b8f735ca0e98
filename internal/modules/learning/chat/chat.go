// Package chat is the free-form learning assistant: a streamed reply plus the video and code markers
// embedded in it.
package chat

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/inference/engine"
	"github.com/yungbote/learnloop-backend/internal/inference/router"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/prompts"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/videoref"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

var (
	ErrNoMessages  = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "messages_required", "messages are required")
	ErrUnavailable = apierr.Sentinel(apierr.KindUpstreamUnavailable, http.StatusInternalServerError, "chat_unavailable", "Failed to process chat request")
)

var (
	videoMarker = regexp.MustCompile(`\[video:([^\]]+)\]`)
	codeFence   = regexp.MustCompile("```(\\w+)?\\n([\\s\\S]*?)```")
)

type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type Markers struct {
	VideoIDs   []string    `json:"videoIds"`
	CodeBlocks []CodeBlock `json:"codeBlocks"`
	// Text is the reply with every marker and code block removed.
	Text string `json:"text"`
}

// ExtractMarkers pulls [video:ID] markers and fenced code blocks out of text, in order. Markers whose ID
// is not a valid video reference are dropped. A fence without a language is "plaintext".
func ExtractMarkers(text string) Markers {
	out := Markers{VideoIDs: []string{}, CodeBlocks: []CodeBlock{}}
	seen := map[string]bool{}
	for _, m := range videoMarker.FindAllStringSubmatch(text, -1) {
		id, ok := videoref.ExtractID(m[1])
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out.VideoIDs = append(out.VideoIDs, id)
	}
	for _, m := range codeFence.FindAllStringSubmatch(text, -1) {
		lang := m[1]
		if lang == "" {
			lang = "plaintext"
		}
		out.CodeBlocks = append(out.CodeBlocks, CodeBlock{Language: lang, Code: m[2]})
	}
	clean := videoMarker.ReplaceAllString(text, "")
	clean = codeFence.ReplaceAllString(clean, "")
	out.Text = strings.TrimSpace(clean)
	return out
}

type Reply struct {
	Text    string         `json:"text"`
	Markers Markers        `json:"markers"`
	Usage   learning.Usage `json:"usage"`
}

type Service struct {
	route router.Route
	log   *logger.Logger
}

func NewService(r *router.Router, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		route: r.MustRoute(router.OperationChat),
		log:   log.With("service", "ChatService"),
	}
}

// Stream answers the conversation in messages, calling onDelta for each text fragment as it arrives.
func (s *Service) Stream(ctx context.Context, messages []learning.ConversationTurn, onDelta func(string)) (Reply, error) {
	msgs := make([]engine.Message, 0, len(messages)+1)
	p, err := prompts.Build(prompts.PromptTutorChat, prompts.Input{})
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	msgs = append(msgs, engine.Message{Role: engine.RoleSystem, Content: p.System})
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := engine.RoleUser
		if m.Role == learning.RoleAssistant {
			role = engine.RoleAssistant
		}
		msgs = append(msgs, engine.Message{Role: role, Content: content})
	}
	if len(msgs) == 1 {
		return Reply{}, ErrNoMessages
	}

	out, err := s.route.Engine.Stream(ctx, msgs, s.route.Options, onDelta)
	if err != nil {
		s.log.Warn("chat stream failed", "messages", len(messages), "error", err)
		return Reply{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return Reply{
		Text:    out.Text,
		Markers: ExtractMarkers(out.Text),
		Usage:   learning.Usage{InputTokens: out.Usage.InputTokens, OutputTokens: out.Usage.OutputTokens},
	}, nil
}
