// Package session drives a finalized plan: navigation, completion tracking and one problem pane per
// concept.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/problem"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/sandbox"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

var (
	ErrIndexOutOfBounds = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "index_out_of_bounds", "concept index out of range")
	ErrEmptyPlan        = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "empty_plan", "a learning session needs at least one concept")
	ErrClosed           = apierr.Sentinel(apierr.KindConflict, http.StatusConflict, "session_closed", "the learning session has ended")
	ErrEmptyProblem     = apierr.Sentinel(apierr.KindOutputUnparseable, http.StatusInternalServerError, "empty_problem", "Generated problem is empty")
)

type ProblemLoader interface {
	Load(ctx context.Context, ref string, regenerate bool) (problem.Result, error)
}

type Executor interface {
	Execute(ctx context.Context, code string) (learning.ExecutionResult, error)
}

type PaneStatus string

const (
	PaneEmpty   PaneStatus = "empty"
	PaneLoading PaneStatus = "loading"
	PaneReady   PaneStatus = "ready"
	PaneFailed  PaneStatus = "failed"
)

// Pane is the problem view of one concept.
type Pane struct {
	Index     int                       `json:"index"`
	Status    PaneStatus                `json:"status"`
	Problem   *problem.Result           `json:"problem,omitempty"`
	Code      string                    `json:"code,omitempty"`
	Warnings  []string                  `json:"warnings,omitempty"`
	Error     string                    `json:"error,omitempty"`
	ErrorCode string                    `json:"errorCode,omitempty"`
	Execution *learning.ExecutionResult `json:"execution,omitempty"`
	Executing bool                      `json:"executing"`
}

type pane struct {
	view Pane

	loadSeq uint64
	loaded  chan struct{}
	execSeq uint64
}

type Options struct {
	// ProblemTimeout bounds one fetch + synthesis chain.
	ProblemTimeout time.Duration
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	mu        sync.Mutex
	plan      learning.Plan
	current   int
	completed map[int]struct{}
	panes     []*pane
	closed    bool

	loader  ProblemLoader
	exec    Executor
	timeout time.Duration
	log     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New starts a session on plan at concept 0. No problem is loaded until a concept is selected.
func New(plan learning.Plan, loader ProblemLoader, exec Executor, opts Options, log *logger.Logger) (*Orchestrator, error) {
	return Resume(plan, 0, nil, loader, exec, opts, log)
}

// Resume rebuilds a session at current with the given completed indices. Out-of-range values are
// dropped.
func Resume(plan learning.Plan, current int, completed []int, loader ProblemLoader, exec Executor, opts Options, log *logger.Logger) (*Orchestrator, error) {
	if len(plan) == 0 {
		return nil, ErrEmptyPlan
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.ProblemTimeout <= 0 {
		opts.ProblemTimeout = 2 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		plan:      plan.Clone(),
		completed: map[int]struct{}{},
		panes:     make([]*pane, len(plan)),
		loader:    loader,
		exec:      exec,
		timeout:   opts.ProblemTimeout,
		log:       log.With("service", "LearningSession"),
		ctx:       ctx,
		cancel:    cancel,
	}
	for i := range o.panes {
		o.panes[i] = &pane{view: Pane{Index: i, Status: PaneEmpty}}
	}
	if current >= 0 && current < len(plan) {
		o.current = current
	}
	for _, i := range completed {
		if i >= 0 && i < len(plan) {
			o.completed[i] = struct{}{}
		}
	}
	return o, nil
}

// Close stops every in-flight load. Later operations return ErrClosed.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.cancel()
}

func (o *Orchestrator) checkIndex(i int) error {
	if o.closed {
		return ErrClosed
	}
	if i < 0 || i >= len(o.plan) {
		return fmt.Errorf("%w: %d (plan has %d concepts)", ErrIndexOutOfBounds, i, len(o.plan))
	}
	return nil
}

// Select makes index current and starts loading its problem unless the pane already has one or is
// loading. Completion marks are never touched.
func (o *Orchestrator) Select(index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIndex(index); err != nil {
		return err
	}
	o.current = index
	if st := o.panes[index].view.Status; st == PaneEmpty || st == PaneFailed {
		o.dispatchLocked(index, false)
	}
	return nil
}

// Prefetch starts loading the problem at index if it was never requested. The current index is left
// alone and a failed pane stays failed until it is selected again.
func (o *Orchestrator) Prefetch(index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIndex(index); err != nil {
		return err
	}
	if o.panes[index].view.Status == PaneEmpty {
		o.dispatchLocked(index, false)
	}
	return nil
}

// Next selects the following concept, staying on the last one.
func (o *Orchestrator) Next() (int, error) {
	return o.step(1)
}

// Previous selects the preceding concept, staying on the first one.
func (o *Orchestrator) Previous() (int, error) {
	return o.step(-1)
}

func (o *Orchestrator) step(delta int) (int, error) {
	o.mu.Lock()
	target := o.current + delta
	if target < 0 {
		target = 0
	}
	if target >= len(o.plan) {
		target = len(o.plan) - 1
	}
	o.mu.Unlock()
	if err := o.Select(target); err != nil {
		return 0, err
	}
	return target, nil
}

// ToggleComplete flips the completion mark of index and reports the new value.
func (o *Orchestrator) ToggleComplete(index int) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIndex(index); err != nil {
		return false, err
	}
	if _, ok := o.completed[index]; ok {
		delete(o.completed, index)
		return false, nil
	}
	o.completed[index] = struct{}{}
	return true, nil
}

// Regenerate always starts a fresh load for index, skipping every cache. Any load already running for
// that pane is superseded.
func (o *Orchestrator) Regenerate(index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIndex(index); err != nil {
		return err
	}
	o.dispatchLocked(index, true)
	return nil
}

func (o *Orchestrator) dispatchLocked(index int, regenerate bool) {
	p := o.panes[index]
	p.loadSeq++
	tag := p.loadSeq
	done := make(chan struct{})
	p.loaded = done
	p.view.Status = PaneLoading
	p.view.Error = ""
	p.view.ErrorCode = ""
	ref := o.plan[index].VideoURL

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(o.ctx, o.timeout)
		defer cancel()
		res, err := o.loader.Load(ctx, ref, regenerate)
		o.finishLoad(index, tag, res, err)
	}()
}

func (o *Orchestrator) finishLoad(index int, tag uint64, res problem.Result, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := o.panes[index]
	if tag != p.loadSeq || o.closed {
		o.log.Debug("discarding stale problem load", "index", index, "tag", tag, "latest", p.loadSeq)
		return
	}
	if err == nil && res.Shape.Empty {
		err = ErrEmptyProblem
	}
	if err != nil {
		ae := apierr.From(err)
		p.view.Status = PaneFailed
		p.view.Error = ae.Error()
		p.view.ErrorCode = ae.Code
		o.log.Warn("problem load failed", "index", index, "error", err)
		return
	}
	r := res
	p.view.Status = PaneReady
	p.view.Problem = &r
	p.view.Code = res.Problem.PythonFile
	p.view.Warnings = res.Shape.Warnings()
	p.view.Execution = nil
}

// Execute runs code for the concept at index and stores the result on its pane, replacing the
// previous one. Empty code is rejected without touching the pane.
func (o *Orchestrator) Execute(ctx context.Context, index int, code string) (learning.ExecutionResult, error) {
	o.mu.Lock()
	if err := o.checkIndex(index); err != nil {
		o.mu.Unlock()
		return learning.ExecutionResult{}, err
	}
	p := o.panes[index]
	p.execSeq++
	tag := p.execSeq
	p.view.Executing = true
	o.mu.Unlock()

	res, err := o.exec.Execute(ctx, code)

	o.mu.Lock()
	defer o.mu.Unlock()
	if tag != p.execSeq {
		return res, err
	}
	p.view.Executing = false
	if errors.Is(err, sandbox.ErrEmptyCode) {
		return res, err
	}
	p.view.Code = code
	r := res
	p.view.Execution = &r
	return res, err
}

// Pane returns a copy of the pane at index.
func (o *Orchestrator) Pane(index int) (Pane, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkIndex(index); err != nil {
		return Pane{}, err
	}
	return copyPane(o.panes[index].view), nil
}

// Await blocks until the pane at index is no longer loading, or ctx ends.
func (o *Orchestrator) Await(ctx context.Context, index int) (Pane, error) {
	for {
		o.mu.Lock()
		if err := o.checkIndex(index); err != nil {
			o.mu.Unlock()
			return Pane{}, err
		}
		p := o.panes[index]
		if p.view.Status != PaneLoading {
			out := copyPane(p.view)
			o.mu.Unlock()
			return out, nil
		}
		wait := p.loaded
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			return Pane{}, ctx.Err()
		case <-wait:
		}
	}
}

// View is a detached copy of the whole session.
type View struct {
	Plan         learning.Plan `json:"plan"`
	CurrentIndex int           `json:"currentIndex"`
	Completed    []int         `json:"completed"`
	Panes        []Pane        `json:"panes"`
}

func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := View{
		Plan:         o.plan.Clone(),
		CurrentIndex: o.current,
		Completed:    o.completedLocked(),
		Panes:        make([]Pane, len(o.panes)),
	}
	for i, p := range o.panes {
		v.Panes[i] = copyPane(p.view)
	}
	return v
}

// Progress reports the fields that outlive the process.
func (o *Orchestrator) Progress() (current int, completed []int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current, o.completedLocked()
}

func (o *Orchestrator) completedLocked() []int {
	out := make([]int, 0, len(o.completed))
	for i := range o.completed {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func copyPane(p Pane) Pane {
	if p.Problem != nil {
		r := *p.Problem
		p.Problem = &r
	}
	if p.Execution != nil {
		e := *p.Execution
		p.Execution = &e
	}
	if p.Warnings != nil {
		p.Warnings = append([]string(nil), p.Warnings...)
	}
	return p
}
