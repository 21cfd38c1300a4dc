package subtask

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martinemde/stackrun/memory"
)

var (
	// ErrNoCapability is returned by Drain when the popped operation has no
	// registered capability. The item is put back on the stack.
	ErrNoCapability = errors.New("subtask: no capability registered")
	// ErrNoGate is returned by New when no approval gate is supplied.
	ErrNoGate = errors.New("subtask: no approval gate configured")
)

// RunOutcome is how a Drain call ended.
type RunOutcome string

const (
	// RunIdle means the stack emptied.
	RunIdle RunOutcome = "idle"
	// RunAborted means the run stopped with work still pending.
	RunAborted RunOutcome = "aborted"
)

// Config bounds how far a run can grow.
type Config struct {
	// MaxDepth is the deepest level ExpandDeeper may open.
	MaxDepth int
	// MaxRevisits caps how many times one item is requeued behind its own
	// sub-operations.
	MaxRevisits int
	// MaxSteps caps dispatches per Drain after which expansions are
	// dropped. Zero means unlimited.
	MaxSteps int
	// LoopWindow is how many recent dispatches the loop guard inspects.
	LoopWindow int
	// ToolTimeout bounds a single dispatch. Zero means no limit.
	ToolTimeout time.Duration
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		MaxDepth:    4,
		MaxRevisits: 2,
		MaxSteps:    200,
		LoopWindow:  DefaultLoopWindow,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithEvents makes the engine emit progress events on em.
func WithEvents(em *EventEmitter) Option {
	return func(e *Engine) {
		e.events = em
	}
}

// Engine runs work items from a LIFO stack, dispatching each to the
// capability registered for its kind and applying the outcome.
type Engine struct {
	cfg    Config
	caps   Registry
	deps   Deps
	gate   Gate
	logger *zap.Logger
	events *EventEmitter
	loop   *loopGuard

	mu    sync.Mutex
	stack stack
	depth int
}

// New creates an Engine. Every operation kind must have a capability. A nil
// deps.Memory is replaced by an empty in-process memory.
func New(caps Registry, deps Deps, gate Gate, cfg Config, opts ...Option) (*Engine, error) {
	if gate == nil {
		return nil, ErrNoGate
	}
	if missing := caps.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoCapability, missing)
	}
	if deps.Memory == nil {
		deps.Memory = memory.New()
	}
	defaults := DefaultConfig()
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaults.MaxDepth
	}
	if cfg.MaxRevisits < 0 {
		cfg.MaxRevisits = 0
	}
	if cfg.LoopWindow <= 0 {
		cfg.LoopWindow = defaults.LoopWindow
	}

	e := &Engine{
		cfg:    cfg,
		caps:   caps,
		deps:   deps,
		gate:   gate,
		logger: zap.NewNop(),
		loop:   newLoopGuard(cfg.LoopWindow),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Push schedules op at the current depth. It will be the next item popped.
func (e *Engine) Push(op Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stack.push(WorkItem{Depth: e.depth, Operation: op})
}

// PushTask schedules a top-level RunTask for task.
func (e *Engine) PushTask(task string) {
	e.Push(RunTask{Task: task})
}

// Depth returns the current depth cursor.
func (e *Engine) Depth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.depth
}

// Len returns the number of pending items.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stack.len()
}

// Pending returns the pending items, next to run first.
func (e *Engine) Pending() []WorkItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stack.snapshot()
}

// Memory returns the engine's context memory.
func (e *Engine) Memory() *memory.ContextMemory {
	return e.deps.Memory
}

// Reset drops all pending work and returns the cursor to depth zero. Context
// memory is left alone.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stack = stack{}
	e.depth = 0
}

// Drain pops and handles items until the stack is empty or a run cannot
// continue. A declined approval ends the run with RunAborted and the declined
// item still on top of the stack. The only error is ErrNoCapability.
//
// ctx is handed to capabilities but never stops the loop itself; a cancelled
// context makes capabilities fail fast and the stack drains.
func (e *Engine) Drain(ctx context.Context) (RunOutcome, error) {
	r := &run{
		Engine: e,
		id:     uuid.NewString(),
	}
	e.loop.reset()
	e.events.Emit(r.id, EventRunStart, map[string]interface{}{"pending": e.Len()})
	e.logger.Debug("run started", zap.String("run_id", r.id), zap.Int("pending", e.Len()))

	outcome, err := r.drain(ctx)

	e.events.Emit(r.id, EventRunEnd, map[string]interface{}{
		"outcome": string(outcome),
		"steps":   r.steps,
		"pending": e.Len(),
	})
	e.logger.Debug("run finished",
		zap.String("run_id", r.id),
		zap.String("outcome", string(outcome)),
		zap.Int("steps", r.steps),
		zap.Error(err),
	)
	return outcome, err
}

// run is the state of one Drain call.
type run struct {
	*Engine
	id              string
	steps           int
	budgetExhausted bool
}

func (r *run) drain(ctx context.Context) (RunOutcome, error) {
	for {
		item, ok := r.next()
		if !ok {
			return RunIdle, nil
		}
		op := item.Operation

		capability := r.caps[op.Kind()]
		if capability == nil {
			r.requeue(item)
			return RunAborted, fmt.Errorf("%w: %s", ErrNoCapability, op.Kind())
		}

		if op.RequiresApproval() && !r.gate.Confirm(ctx, approvalFor(op)) {
			r.requeue(item)
			r.events.Emit(r.id, EventDeclined, itemData(item))
			r.logger.Info("operation declined", zap.String("operation", op.Description()))
			return RunAborted, nil
		}

		looping := r.loop.observe(op)
		r.steps++
		outcome := r.dispatch(ctx, capability, item)
		r.apply(item, outcome, looping)
	}
}

// next syncs the cursor to the top item's depth and pops it.
func (r *run) next() (WorkItem, bool) {
	r.mu.Lock()
	top, ok := r.stack.peek()
	if !ok {
		r.mu.Unlock()
		return WorkItem{}, false
	}
	from := r.depth
	r.depth = top.Depth
	r.stack.pop()
	r.mu.Unlock()

	if from != top.Depth {
		r.events.Emit(r.id, EventDepthChanged, map[string]interface{}{"from": from, "to": top.Depth})
	}
	return top, true
}

func (r *run) requeue(item WorkItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stack.push(item)
}

func (r *run) dispatch(ctx context.Context, capability Capability, item WorkItem) (outcome Outcome) {
	if r.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ToolTimeout)
		defer cancel()
	}

	start := time.Now()
	r.events.Emit(r.id, EventDispatchStart, itemData(item))
	r.logger.Info("dispatch",
		zap.String("kind", string(item.Operation.Kind())),
		zap.String("operation", item.Operation.Description()),
		zap.Int("depth", item.Depth),
		zap.Int("revisits", item.Revisits),
	)

	defer func() {
		if p := recover(); p != nil {
			outcome = Failed(fmt.Errorf("%s panicked: %v", item.Operation.Kind(), p))
		}
		data := itemData(item)
		data["outcome"] = string(outcome.Kind)
		data["duration_ms"] = time.Since(start).Milliseconds()
		r.events.Emit(r.id, EventDispatchEnd, data)
	}()

	return capability.Handle(ctx, item, r.deps)
}

func (r *run) apply(item WorkItem, outcome Outcome, looping bool) {
	switch outcome.Kind {
	case OutcomeDone:

	case OutcomeRecordEvidence:
		r.deps.Memory.Append(outcome.Fragment)
		r.events.Emit(r.id, EventEvidence, map[string]interface{}{
			"source": outcome.Fragment.Source,
			"chars":  len(outcome.Fragment.Content),
		})

	case OutcomeFailed:
		r.logger.Warn("operation failed",
			zap.String("operation", item.Operation.Description()),
			zap.Error(outcome.Err),
		)
		data := itemData(item)
		if outcome.Err != nil {
			data["error"] = outcome.Err.Error()
		}
		r.events.Emit(r.id, EventFailed, data)

	case OutcomeExpand:
		if !r.mayExpand(item, looping) {
			return
		}
		r.mu.Lock()
		r.stack.pushAll(r.depth, outcome.Operations)
		r.mu.Unlock()

	case OutcomeExpandDeeper:
		if len(outcome.Operations) == 0 || !r.mayExpand(item, looping) {
			return
		}
		r.expandDeeper(item, outcome.Operations)

	default:
		r.logger.Warn("unknown outcome treated as done", zap.String("outcome", string(outcome.Kind)))
	}
}

// mayExpand reports whether an expansion from item may be scheduled.
func (r *run) mayExpand(item WorkItem, looping bool) bool {
	if looping {
		r.events.Emit(r.id, EventLoopDetected, itemData(item))
		r.logger.Warn("repeating operations detected, dropping expansion",
			zap.String("operation", item.Operation.Description()))
		return false
	}
	if r.cfg.MaxSteps > 0 && r.steps >= r.cfg.MaxSteps {
		if !r.budgetExhausted {
			r.budgetExhausted = true
			r.events.Emit(r.id, EventBudgetExhausted, map[string]interface{}{"steps": r.steps})
			r.logger.Warn("step budget exhausted, dropping further expansions", zap.Int("steps", r.steps))
		}
		return false
	}
	return true
}

func (r *run) expandDeeper(item WorkItem, ops []Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.depth+1 > r.cfg.MaxDepth {
		// No deeper level and no revisit. Leaf work still runs here but new
		// planning does not.
		var leaves []Operation
		for _, op := range ops {
			if op.Kind() != KindRunTask {
				leaves = append(leaves, op)
			}
		}
		r.stack.pushAll(r.depth, leaves)
		r.events.Emit(r.id, EventDepthLimit, map[string]interface{}{
			"depth":   r.depth,
			"dropped": len(ops) - len(leaves),
		})
		return
	}

	if item.Revisits < r.cfg.MaxRevisits {
		item.Revisits++
		r.stack.push(item)
	} else {
		r.events.Emit(r.id, EventRevisitLimit, itemData(item))
	}

	from := r.depth
	r.depth++
	r.stack.pushAll(r.depth, ops)
	r.events.Emit(r.id, EventDepthChanged, map[string]interface{}{"from": from, "to": r.depth})
}

func itemData(item WorkItem) map[string]interface{} {
	return map[string]interface{}{
		"kind":        string(item.Operation.Kind()),
		"description": item.Operation.Description(),
		"depth":       item.Depth,
		"revisits":    item.Revisits,
	}
}
