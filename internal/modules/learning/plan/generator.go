// Package plan asks the model for a sequenced concept plan and parses its reply.
package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/inference/engine"
	"github.com/yungbote/learnloop-backend/internal/inference/router"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/prompts"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

const ParseFailureMessage = "Failed to parse JSON response"

var (
	ErrGeneratorUnavailable = apierr.Sentinel(apierr.KindUpstreamUnavailable, http.StatusInternalServerError, "generator_unavailable", "Failed to generate learning plan")
	ErrEmptySubject         = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "subject_required", "Subject is required")
	ErrUnparseable          = apierr.Sentinel(apierr.KindOutputUnparseable, http.StatusOK, "plan_unparseable", ParseFailureMessage)
)

var (
	jsonFence = regexp.MustCompile("```json\\n?([\\s\\S]*?)\\n?```")
	bareFence = regexp.MustCompile("```\\n?([\\s\\S]*?)\\n?```")
)

type Status string

const (
	StatusParsed   Status = "parsed"
	StatusUnparsed Status = "unparsed"
)

// Outcome is the result of one generation. History always includes the attempted exchange. Plan is
// set only when Status is StatusParsed; RawResponse and Err only when it is StatusUnparsed.
type Outcome struct {
	Status      Status
	Plan        learning.Plan
	RawResponse string
	Err         error
	History     []learning.ConversationTurn
}

func (o Outcome) Parsed() bool { return o.Status == StatusParsed }

type Generator struct {
	route router.Route
	log   *logger.Logger
}

func NewGenerator(r *router.Router, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{
		route: r.MustRoute(router.OperationPlan),
		log:   log.With("service", "PlanGenerator"),
	}
}

// Generate sends history plus text as a new user turn. Revisions are the same call with feedback as the
// text. history is never modified; the returned Outcome carries a fresh slice.
func (g *Generator) Generate(ctx context.Context, text string, history []learning.ConversationTurn) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, ErrEmptySubject
	}

	turns := make([]learning.ConversationTurn, 0, len(history)+2)
	turns = append(turns, history...)
	turns = append(turns, learning.ConversationTurn{Role: learning.RoleUser, Content: text})

	p, err := prompts.Build(prompts.PromptLearningPlan, prompts.Input{})
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	msgs := make([]engine.Message, 0, len(turns)+1)
	msgs = append(msgs, engine.Message{Role: engine.RoleSystem, Content: p.System})
	for _, t := range turns {
		msgs = append(msgs, engine.Message{Role: string(t.Role), Content: t.Content})
	}

	out, err := g.route.Engine.Generate(ctx, msgs, g.route.Options)
	if err != nil {
		g.log.Warn("plan generation failed", "turns", len(turns), "error", err)
		return Outcome{}, fmt.Errorf("%w: %w", ErrGeneratorUnavailable, err)
	}

	turns = append(turns, learning.ConversationTurn{Role: learning.RoleAssistant, Content: out.Text})

	plan, perr := ParsePlan(out.Text)
	if perr != nil {
		g.log.Info("plan reply did not parse", "turns", len(turns), "error", perr)
		return Outcome{
			Status:      StatusUnparsed,
			RawResponse: out.Text,
			Err:         perr,
			History:     turns,
		}, nil
	}
	return Outcome{Status: StatusParsed, Plan: plan, History: turns}, nil
}

// ParsePlan extracts the JSON array from a reply: a ```json fence first, then any fence, then the whole
// text. An empty array, or an item without a concept, does not parse.
func ParsePlan(reply string) (learning.Plan, error) {
	body := reply
	if m := jsonFence.FindStringSubmatch(reply); m != nil {
		body = m[1]
	} else if m := bareFence.FindStringSubmatch(reply); m != nil {
		body = m[1]
	}

	var plan learning.Plan
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: plan is empty", ErrUnparseable)
	}
	for i, item := range plan {
		if strings.TrimSpace(item.Concept) == "" {
			return nil, fmt.Errorf("%w: item %d has no concept", ErrUnparseable, i)
		}
	}
	return plan, nil
}

// IsUnparseable reports whether err came from ParsePlan.
func IsUnparseable(err error) bool { return errors.Is(err, ErrUnparseable) }
