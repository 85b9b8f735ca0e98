package problem

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/inference/engine"
	"github.com/yungbote/learnloop-backend/internal/inference/engine/mock"
	"github.com/yungbote/learnloop-backend/internal/inference/router"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/transcript"
	"github.com/yungbote/learnloop-backend/internal/observability"
)

const sampleProblem = `# Problem: Fibonacci
# Write fib(n) returning the n-th Fibonacci number.

def fib(n):
    pass
`

func TestExtractCode(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{"fenced", "Here you go:\n```python\nprint(1)\nx = 2\n```\nEnjoy", "print(1)\nx = 2"},
		{"first block wins", "```python\na = 1\n```\n```python\nb = 2\n```", "a = 1"},
		{"no fence", "def f():\n    pass", "def f():\n    pass"},
		{"other language fence", "```js\nlet a\n```", "```js\nlet a\n```"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractCode(tc.reply); got != tc.want {
				t.Fatalf("ExtractCode=%q want %q", got, tc.want)
			}
		})
	}
}

func TestSynthesizeSingleShot(t *testing.T) {
	m := mock.New(mock.Reply{
		Text:  "```python\n" + strings.TrimSuffix(sampleProblem, "\n") + "\n```",
		Usage: engine.Usage{InputTokens: 120, OutputTokens: 40},
	})
	s := NewSynthesizer(router.NewWithEngine(m, config.LLMConfig{ProblemMaxTokens: 2000}), nil)

	gp, err := s.Synthesize(context.Background(), "dQw4w9WgXcQ", "today we learn recursion")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gp.VideoID != "dQw4w9WgXcQ" || gp.PythonFile != strings.TrimSuffix(sampleProblem, "\n") {
		t.Fatalf("unexpected problem: %+v", gp)
	}
	if gp.Usage.InputTokens != 120 || gp.Usage.OutputTokens != 40 {
		t.Fatalf("usage=%+v", gp.Usage)
	}

	calls := m.Calls()
	if len(calls) != 1 || len(calls[0]) != 1 || calls[0][0].Role != engine.RoleUser {
		t.Fatalf("expected one single-turn call, got %+v", calls)
	}
	if !strings.Contains(calls[0][0].Content, "today we learn recursion") {
		t.Fatalf("transcript missing from prompt")
	}
	if opts := m.Options(); opts[0].MaxTokens != 2000 {
		t.Fatalf("options=%+v", opts[0])
	}
}

func TestSynthesizeFailure(t *testing.T) {
	cause := errors.New("429 rate limited")
	s := NewSynthesizer(router.NewWithEngine(mock.New(mock.Fail(cause)), config.LLMConfig{}), nil)
	_, err := s.Synthesize(context.Background(), "dQw4w9WgXcQ", "text")
	if !errors.Is(err, ErrSynthesisUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("err=%v", err)
	}
}

func TestInspect(t *testing.T) {
	cases := []struct {
		name string
		code string
		want Shape
	}{
		{"well formed", sampleProblem, Shape{HasFunction: true, HasHeaderComment: true}},
		{"docstring header", "\"\"\"Sum a list.\"\"\"\n\ndef total(xs):\n    return 0\n", Shape{HasFunction: true, HasHeaderComment: true}},
		{"no function", "# Problem\nprint('hi')\n", Shape{HasHeaderComment: true}},
		{"empty", "  \n", Shape{Empty: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Inspect(context.Background(), tc.code); got != tc.want {
				t.Fatalf("Inspect=%+v want %+v", got, tc.want)
			}
		})
	}
	if got := Inspect(context.Background(), "def broken(:\n"); !got.HasSyntaxError {
		t.Fatalf("expected syntax error flag: %+v", got)
	}
}

type fakeTranscripts struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
}

func (f *fakeTranscripts) Fetch(ctx context.Context, ref string) (transcript.Transcript, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return transcript.Transcript{}, f.err
	}
	return transcript.Transcript{VideoID: ref, Text: "transcript for " + ref}, nil
}

type countingSynth struct {
	calls atomic.Int32
}

func (s *countingSynth) Synthesize(_ context.Context, videoID, _ string) (learning.GeneratedProblem, error) {
	n := s.calls.Add(1)
	return learning.GeneratedProblem{VideoID: videoID, PythonFile: sampleProblem, Usage: learning.Usage{OutputTokens: int(n)}}, nil
}

func TestPipelineCachesAndRegenerates(t *testing.T) {
	ts := &fakeTranscripts{}
	synth := &countingSynth{}
	reg := prometheus.NewRegistry()
	metrics := observability.New(reg)
	p := NewPipeline(ts, synth, NewMemoryCache(), 0, metrics, nil)
	ctx := context.Background()

	first, err := p.Load(ctx, "https://youtu.be/dQw4w9WgXcQ", false)
	if err != nil || first.Cached || !first.Shape.HasFunction {
		t.Fatalf("first=%+v err=%v", first, err)
	}
	second, err := p.Load(ctx, "dQw4w9WgXcQ", false)
	if err != nil || !second.Cached || second.Problem.Usage.OutputTokens != 1 {
		t.Fatalf("second=%+v err=%v", second, err)
	}
	third, err := p.Load(ctx, "dQw4w9WgXcQ", true)
	if err != nil || third.Cached || third.Problem.Usage.OutputTokens != 2 {
		t.Fatalf("regenerate=%+v err=%v", third, err)
	}
	fourth, _ := p.Load(ctx, "dQw4w9WgXcQ", false)
	if fourth.Problem.Usage.OutputTokens != 2 {
		t.Fatalf("regenerate did not overwrite cache: %+v", fourth)
	}
	if synth.calls.Load() != 2 || ts.calls.Load() != 2 {
		t.Fatalf("synth=%d fetch=%d", synth.calls.Load(), ts.calls.Load())
	}
	want := `
# HELP problem_cache_total Problem cache lookups by result (hit/miss/bypass/error).
# TYPE problem_cache_total counter
problem_cache_total{result="bypass"} 1
problem_cache_total{result="hit"} 2
problem_cache_total{result="miss"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "problem_cache_total"); err != nil {
		t.Fatalf("cache metrics: %v", err)
	}
}

func TestPipelineDedupesConcurrentLoads(t *testing.T) {
	ts := &fakeTranscripts{gate: make(chan struct{})}
	synth := &countingSynth{}
	p := NewPipeline(ts, synth, nil, 0, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Load(context.Background(), "dQw4w9WgXcQ", false)
			errs <- err
		}()
	}
	// Wait until the shared call is in flight before releasing it.
	for ts.calls.Load() == 0 {
		runtime.Gosched()
	}
	close(ts.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if got := ts.calls.Load(); got > 4 || synth.calls.Load() != ts.calls.Load() {
		t.Fatalf("fetch=%d synth=%d", got, synth.calls.Load())
	}
}

func TestPipelineErrors(t *testing.T) {
	p := NewPipeline(&fakeTranscripts{err: transcript.ErrNoTranscriptAvailable}, &countingSynth{}, NewMemoryCache(), 0, nil, nil)
	if _, err := p.Load(context.Background(), "nope", false); !errors.Is(err, transcript.ErrInvalidReference) {
		t.Fatalf("invalid ref err=%v", err)
	}
	if _, err := p.Load(context.Background(), "dQw4w9WgXcQ", false); !errors.Is(err, transcript.ErrNoTranscriptAvailable) {
		t.Fatalf("err=%v", err)
	}
}

// stuckSynth blocks its first call until the context ends; later calls return at once.
type stuckSynth struct {
	calls atomic.Int32
}

func (s *stuckSynth) Synthesize(ctx context.Context, videoID, _ string) (learning.GeneratedProblem, error) {
	if s.calls.Add(1) == 1 {
		<-ctx.Done()
		return learning.GeneratedProblem{}, ctx.Err()
	}
	return learning.GeneratedProblem{VideoID: videoID, PythonFile: sampleProblem}, nil
}

func TestPipelineStuckSynthesisDoesNotPinVideo(t *testing.T) {
	synth := &stuckSynth{}
	p := NewPipeline(&fakeTranscripts{}, synth, NewMemoryCache(), 50*time.Millisecond, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Load(ctx, "dQw4w9WgXcQ", false); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("impatient caller err=%v", err)
	}

	// A caller that waits sees the shared call end on its own deadline instead of hanging.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	if _, err := p.Load(ctx2, "dQw4w9WgXcQ", false); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second load err=%v", err)
	}
	if ctx2.Err() != nil {
		t.Fatalf("second load outlived its caller")
	}

	res, err := p.Load(ctx2, "dQw4w9WgXcQ", false)
	if err != nil || !res.Shape.HasFunction {
		t.Fatalf("retry=%+v err=%v", res, err)
	}
	if got := synth.calls.Load(); got < 2 || got > 3 {
		t.Fatalf("synth calls=%d", got)
	}
}
