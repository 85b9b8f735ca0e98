package problem

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/transcript"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/videoref"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type TranscriptSource interface {
	Fetch(ctx context.Context, ref string) (transcript.Transcript, error)
}

type Generator interface {
	Synthesize(ctx context.Context, videoID, transcript string) (learning.GeneratedProblem, error)
}

// Cache stores generated problems by video ID. A miss is (zero, false, nil).
type Cache interface {
	Get(ctx context.Context, videoID string) (learning.GeneratedProblem, bool, error)
	Set(ctx context.Context, p learning.GeneratedProblem) error
}

// Result is one loaded problem plus what is known about how it was produced.
type Result struct {
	Problem   learning.GeneratedProblem `json:"problem"`
	Shape     Shape                     `json:"shape"`
	Truncated bool                      `json:"transcriptTruncated"`
	Cached    bool                      `json:"cached"`
}

// DefaultTimeout bounds one shared fetch + synthesis when NewPipeline is given none.
const DefaultTimeout = 2 * time.Minute

type Pipeline struct {
	transcripts TranscriptSource
	synth       Generator
	cache       Cache
	timeout     time.Duration
	metrics     *observability.Metrics
	log         *logger.Logger

	group singleflight.Group
}

// NewPipeline wires fetch and synthesis. cache and metrics may be nil. timeout bounds each shared
// fetch + synthesis regardless of how long its callers wait.
func NewPipeline(ts TranscriptSource, synth Generator, cache Cache, timeout time.Duration, metrics *observability.Metrics, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pipeline{
		transcripts: ts,
		synth:       synth,
		cache:       cache,
		timeout:     timeout,
		metrics:     metrics,
		log:         log.With("service", "ProblemPipeline"),
	}
}

// Load returns a problem for the referenced video. Concurrent loads of the same video share one
// synthesis. regenerate skips the cache read and overwrites the cached entry.
func (p *Pipeline) Load(ctx context.Context, ref string, regenerate bool) (Result, error) {
	id, ok := videoref.ExtractID(ref)
	if !ok {
		return Result{}, transcript.ErrInvalidReference
	}

	switch {
	case p.cache == nil:
	case regenerate:
		p.metrics.IncProblemCache("bypass")
	default:
		cached, hit, err := p.cache.Get(ctx, id)
		switch {
		case err != nil:
			p.metrics.IncProblemCache("error")
			p.log.Warn("problem cache read failed", "video_id", id, "error", err)
		case hit:
			p.metrics.IncProblemCache("hit")
			return Result{Problem: cached, Shape: Inspect(ctx, cached.PythonFile), Cached: true}, nil
		default:
			p.metrics.IncProblemCache("miss")
		}
	}

	key := id
	if regenerate {
		key = id + "#regenerate"
	}
	ch := p.group.DoChan(key, func() (interface{}, error) {
		// Detached so one caller's cancellation does not fail the others sharing this call.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		return p.produce(fctx, id)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (p *Pipeline) produce(ctx context.Context, id string) (Result, error) {
	tr, err := p.transcripts.Fetch(ctx, id)
	if err != nil {
		return Result{}, err
	}
	gp, err := p.synth.Synthesize(ctx, tr.VideoID, tr.Text)
	if err != nil {
		return Result{}, err
	}
	res := Result{Problem: gp, Shape: Inspect(ctx, gp.PythonFile), Truncated: tr.Truncated}
	if warnings := res.Shape.Warnings(); len(warnings) > 0 {
		p.log.Warn("generated problem looks malformed", "video_id", id, "warnings", warnings)
	}
	if p.cache != nil && !res.Shape.Empty {
		if err := p.cache.Set(ctx, gp); err != nil {
			p.log.Warn("problem cache write failed", "video_id", id, "error", err)
		}
	}
	return res, nil
}

// MemoryCache is the Cache used when no redis is configured.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]learning.GeneratedProblem
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string]learning.GeneratedProblem{}}
}

func (c *MemoryCache) Get(_ context.Context, videoID string) (learning.GeneratedProblem, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.items[videoID]
	return p, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, p learning.GeneratedProblem) error {
	c.mu.Lock()
	c.items[p.VideoID] = p
	c.mu.Unlock()
	return nil
}
