// Package problem turns a video transcript into a runnable Python practice problem.
package problem

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/inference/engine"
	"github.com/yungbote/learnloop-backend/internal/inference/router"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/prompts"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

var ErrSynthesisUnavailable = apierr.Sentinel(apierr.KindUpstreamUnavailable, http.StatusInternalServerError, "synthesis_unavailable", "Failed to generate problem")

var pythonFence = regexp.MustCompile("```python\\n([\\s\\S]*?)\\n```")

// ExtractCode returns the body of the first ```python fenced block in reply, or reply unchanged when
// there is none.
func ExtractCode(reply string) string {
	if m := pythonFence.FindStringSubmatch(reply); m != nil {
		return m[1]
	}
	return reply
}

type Synthesizer struct {
	route router.Route
	log   *logger.Logger
}

func NewSynthesizer(r *router.Router, log *logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synthesizer{
		route: r.MustRoute(router.OperationProblem),
		log:   log.With("service", "ProblemSynthesizer"),
	}
}

// Synthesize issues one completion for the transcript. Malformed output is returned as is; there is no
// retry.
func (s *Synthesizer) Synthesize(ctx context.Context, videoID, transcript string) (learning.GeneratedProblem, error) {
	p, err := prompts.Build(prompts.PromptPracticeProblem, prompts.Input{VideoID: videoID, Transcript: transcript})
	if err != nil {
		return learning.GeneratedProblem{}, fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}

	msgs := make([]engine.Message, 0, 2)
	if p.System != "" {
		msgs = append(msgs, engine.Message{Role: engine.RoleSystem, Content: p.System})
	}
	msgs = append(msgs, engine.Message{Role: engine.RoleUser, Content: p.User})

	out, err := s.route.Engine.Generate(ctx, msgs, s.route.Options)
	if err != nil {
		s.log.Warn("problem synthesis failed", "video_id", videoID, "error", err)
		return learning.GeneratedProblem{}, fmt.Errorf("%w: %w", ErrSynthesisUnavailable, err)
	}

	return learning.GeneratedProblem{
		VideoID:    videoID,
		PythonFile: ExtractCode(out.Text),
		Usage: learning.Usage{
			InputTokens:  out.Usage.InputTokens,
			OutputTokens: out.Usage.OutputTokens,
		},
	}, nil
}
