package services

import (
	"context"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/chat"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/plan"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/problem"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/transcript"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

// LearningAssistant is the stateless surface: each call stands alone and keeps nothing between
// requests beyond the problem cache.
type LearningAssistant interface {
	GeneratePlan(ctx context.Context, text string, history []learning.ConversationTurn) (plan.Outcome, error)
	GenerateProblem(ctx context.Context, ref string, regenerate bool) (problem.Result, error)
	FetchTranscript(ctx context.Context, ref string) (transcript.Transcript, error)
	ExecuteCode(ctx context.Context, code string) (learning.ExecutionResult, error)
	Chat(ctx context.Context, messages []learning.ConversationTurn, onDelta func(string)) (chat.Reply, error)
}

type Executor interface {
	Execute(ctx context.Context, code string) (learning.ExecutionResult, error)
}

type learningAssistant struct {
	log         *logger.Logger
	plans       *plan.Generator
	problems    *problem.Pipeline
	transcripts *transcript.Fetcher
	sandbox     Executor
	chat        *chat.Service
}

func NewLearningAssistant(
	log *logger.Logger,
	plans *plan.Generator,
	problems *problem.Pipeline,
	transcripts *transcript.Fetcher,
	sandbox Executor,
	chatSvc *chat.Service,
) LearningAssistant {
	return &learningAssistant{
		log:         log.With("service", "LearningAssistant"),
		plans:       plans,
		problems:    problems,
		transcripts: transcripts,
		sandbox:     sandbox,
		chat:        chatSvc,
	}
}

func (s *learningAssistant) GeneratePlan(ctx context.Context, text string, history []learning.ConversationTurn) (plan.Outcome, error) {
	out, err := s.plans.Generate(ctx, text, history)
	if err != nil {
		return out, err
	}
	if !out.Parsed() {
		s.log.Warn("plan reply was not parseable", "history", len(out.History))
	}
	return out, nil
}

func (s *learningAssistant) GenerateProblem(ctx context.Context, ref string, regenerate bool) (problem.Result, error) {
	return s.problems.Load(ctx, ref, regenerate)
}

func (s *learningAssistant) FetchTranscript(ctx context.Context, ref string) (transcript.Transcript, error) {
	return s.transcripts.Fetch(ctx, ref)
}

func (s *learningAssistant) ExecuteCode(ctx context.Context, code string) (learning.ExecutionResult, error) {
	return s.sandbox.Execute(ctx, code)
}

func (s *learningAssistant) Chat(ctx context.Context, messages []learning.ConversationTurn, onDelta func(string)) (chat.Reply, error) {
	return s.chat.Stream(ctx, messages, onDelta)
}
