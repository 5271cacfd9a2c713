package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/resource"
	"github.com/roach88/rtfm/internal/sym"
)

// Engine is the scheduler. It owns the resource values, the threshold and
// the interrupt controller of one application instance.
//
// Thread-safety model:
//   - Activate: safe from any goroutine
//   - Run, RunUntilIdle, Invoke: one goroutine at a time; every frame
//     executes on it
//   - Schedule, SetValue: before running, or from task bodies
type Engine struct {
	app       *ir.AppSpec
	table     *resource.Table
	dispatch  *DispatchTable
	nvic      *NVIC
	threshold *Threshold
	locks     *LockManager
	cycles    *Clock
	seq       *Clock
	activSeq  *Clock
	values    []sym.Value
	path      *sym.Path
	logger    *slog.Logger
	observers []Observer
	label     string
	maxCycles int64

	stimuli []Stimulus
	frames  []*Context
	claimed map[ir.TaskID]map[ir.ResourceID]bool
	results []Result
}

// Stimulus is an activation injected when the cycle counter reaches At.
type Stimulus struct {
	At   int64
	Task ir.TaskID
}

// Result is the outcome of one finished activation.
type Result struct {
	Task    string
	Seq     int64
	Start   int64
	Finish  int64
	Outcome ir.Outcome
}

// Option configures an Engine.
type Option func(*Engine)

// WithPath sets the evaluation path. Defaults to sym.Concrete().
func WithPath(p *sym.Path) Option {
	return func(e *Engine) {
		e.path = p
	}
}

// WithObserver adds a trace observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithLabel tags every trace record, e.g. with the vector being replayed.
func WithLabel(label string) Option {
	return func(e *Engine) {
		e.label = label
	}
}

// WithMaxCycles bounds execution; exceeding it aborts the run with a
// budget error. Zero means unbounded.
func WithMaxCycles(n int64) Option {
	return func(e *Engine) {
		e.maxCycles = n
	}
}

// WithClock starts the cycle counter from an existing clock.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.cycles = c
	}
}

// New builds the resource descriptor table and the dispatch table and
// returns an idle engine. Resources start at their declared initial values.
func New(app *ir.AppSpec, bodies Bodies, opts ...Option) (*Engine, error) {
	table, err := resource.Build(app)
	if err != nil {
		return nil, fmt.Errorf("resource table: %w", err)
	}
	dispatch, err := NewDispatchTable(app, bodies)
	if err != nil {
		return nil, fmt.Errorf("dispatch table: %w", err)
	}

	nvic := NewNVIC()
	threshold := NewThreshold(nvic)
	e := &Engine{
		app:       app,
		table:     table,
		dispatch:  dispatch,
		nvic:      nvic,
		threshold: threshold,
		locks:     newLockManager(table, threshold),
		cycles:    NewClock(),
		seq:       NewClock(),
		activSeq:  NewClock(),
		values:    make([]sym.Value, len(app.Resources)),
		path:      sym.Concrete(),
		logger:    slog.Default(),
		claimed:   make(map[ir.TaskID]map[ir.ResourceID]bool),
	}
	for i, r := range app.Resources {
		e.values[i] = sym.ConstOf(r.Init, r.Width)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// App returns the application declaration.
func (e *Engine) App() *ir.AppSpec { return e.app }

// Table returns the resource descriptor table.
func (e *Engine) Table() *resource.Table { return e.table }

// Dispatch returns the dispatch table.
func (e *Engine) Dispatch() *DispatchTable { return e.dispatch }

// Cycles returns the cycle counter.
func (e *Engine) Cycles() *Clock { return e.cycles }

// Threshold returns the current execution threshold.
func (e *Engine) Threshold() ir.Priority { return e.threshold.Current() }

// Pending returns how many activations of task are pending.
func (e *Engine) Pending(task ir.TaskID) int { return e.nvic.Pending(task) }

// Results returns the outcomes of finished activations in finish order.
func (e *Engine) Results() []Result {
	out := make([]Result, len(e.results))
	copy(out, e.results)
	return out
}

// Claimed returns, per task, the resources it has claimed so far.
func (e *Engine) Claimed() map[ir.TaskID]map[ir.ResourceID]bool {
	return e.claimed
}

// Value returns the current value of a resource.
func (e *Engine) Value(name string) (sym.Value, bool) {
	r, ok := e.app.ResourceByName(name)
	if !ok {
		return sym.Value{}, false
	}
	return e.values[r.ID], true
}

// SetValue overwrites the value of a resource. Untyped constants take the
// resource width.
func (e *Engine) SetValue(name string, v sym.Value) error {
	r, ok := e.app.ResourceByName(name)
	if !ok {
		return fmt.Errorf("unknown resource %q", name)
	}
	switch {
	case v.Width() == 0:
		k, concrete := v.Concrete()
		if !concrete || uint64(k) > r.Max() {
			return fmt.Errorf("resource %s: value %s does not fit %d bits", name, v, r.Width)
		}
		v = sym.ConstOf(k, r.Width)
	case v.Width() != r.Width:
		return fmt.Errorf("resource %s: width %d, value has %d", name, r.Width, v.Width())
	}
	e.values[r.ID] = v
	return nil
}

// Activate posts an activation of task. Safe from any goroutine. Returns
// false if the engine is stopped.
func (e *Engine) Activate(task ir.TaskID) bool {
	spec := e.dispatch.Task(task).Spec
	return e.nvic.Activate(Activation{Task: task, Priority: spec.Priority, Seq: e.activSeq.Next()})
}

// Schedule injects an activation of task when the cycle counter reaches
// at. Stimuli with equal times are delivered in scheduling order.
func (e *Engine) Schedule(at int64, task ir.TaskID) {
	e.stimuli = append(e.stimuli, Stimulus{At: at, Task: task})
	sort.SliceStable(e.stimuli, func(i, j int) bool { return e.stimuli[i].At < e.stimuli[j].At })
}

// Stop closes the controller; Run returns once the current frame finishes.
func (e *Engine) Stop() {
	e.nvic.Close()
}

// Run is the idle context. It dispatches pending activations and delivers
// scheduled stimuli, and otherwise waits. It returns only when ctx is
// cancelled, Stop is called, or the cycle budget is exceeded.
func (e *Engine) Run(ctx context.Context) (err error) {
	e.logger.Info("scheduler starting", "app", e.app.Name, "tasks", e.dispatch.Len())
	defer recoverBudget(&err)

	for {
		if e.dispatchAll() {
			continue
		}
		if len(e.stimuli) > 0 {
			e.cycles.AdvanceTo(e.stimuli[0].At)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("scheduler stopping: context cancelled")
			e.nvic.Close()
			return ctx.Err()
		case <-e.nvic.Wait():
			if e.nvic.closedAndEmpty() {
				e.logger.Info("scheduler stopping: controller closed")
				return nil
			}
		}
	}
}

// RunUntilIdle dispatches until nothing is pending and no stimulus is left.
// Idle time between stimuli advances the cycle counter.
func (e *Engine) RunUntilIdle(ctx context.Context) (err error) {
	defer recoverBudget(&err)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.dispatchAll() {
			continue
		}
		if len(e.stimuli) == 0 {
			return nil
		}
		e.cycles.AdvanceTo(e.stimuli[0].At)
	}
}

// Invoke runs one activation of task immediately from the idle context and
// then anything it left pending. It returns the outcome of that
// activation.
func (e *Engine) Invoke(task ir.TaskID) (out ir.Outcome, err error) {
	if len(e.frames) > 0 {
		return ir.Outcome{}, &RuntimeError{Code: ErrCodeBusy, Message: "invoke while a frame is running"}
	}
	defer recoverBudget(&err)

	spec := e.dispatch.Task(task).Spec
	out = e.runActivation(Activation{Task: task, Priority: spec.Priority, Seq: e.activSeq.Next()})
	e.dispatchAll()
	return out, nil
}

func recoverBudget(err *error) {
	if r := recover(); r != nil {
		if re, ok := r.(*RuntimeError); ok && re.Code == ErrCodeCycleBudget {
			*err = re
			return
		}
		panic(r)
	}
}

// dispatchAll delivers due stimuli and runs every activation above the
// threshold. Reports whether anything ran.
func (e *Engine) dispatchAll() bool {
	e.deliverDue()
	ran := false
	for {
		a, ok := e.nvic.next()
		if !ok {
			return ran
		}
		ran = true
		e.runActivation(a)
		e.deliverDue()
	}
}

// tick charges one cycle to the running frame and lets any activation
// above the threshold preempt it.
func (e *Engine) tick(cur *Context) {
	now := e.cycles.Next()
	if e.maxCycles > 0 && now > e.maxCycles {
		panic(newBudgetError(cur.task.Spec.Name, now, e.maxCycles))
	}
	e.deliverDue()
	for {
		a, ok := e.nvic.next()
		if !ok {
			return
		}
		e.emit(ir.TracePreempt, cur, -1, e.dispatch.Task(a.Task).Spec.Name)
		e.runActivation(a)
		e.emit(ir.TraceResume, cur, -1, "")
	}
}

func (e *Engine) deliverDue() {
	now := e.cycles.Current()
	for len(e.stimuli) > 0 && e.stimuli[0].At <= now {
		s := e.stimuli[0]
		e.stimuli = e.stimuli[1:]
		e.pend(s.Task)
	}
}

func (e *Engine) pend(task ir.TaskID) {
	spec := e.dispatch.Task(task).Spec
	e.nvic.Activate(Activation{Task: task, Priority: spec.Priority, Seq: e.activSeq.Next()})
	e.record(ir.TraceRecord{Kind: ir.TracePend, Task: spec.Name, Level: spec.Priority})
}

// runActivation executes one activation as a new frame at the task's
// priority.
func (e *Engine) runActivation(a Activation) ir.Outcome {
	task := e.dispatch.Task(a.Task)
	ctx := &Context{e: e, task: task, priority: task.Spec.Priority, path: e.path, seq: a.Seq}

	prior := e.threshold.Raise(task.Spec.Priority)
	e.frames = append(e.frames, ctx)
	start := e.cycles.Current()
	e.emit(ir.TraceStart, ctx, -1, "")
	e.logger.Debug("task started", "task", task.Spec.Name, "priority", task.Spec.Priority, "cycle", start)

	var out ir.Outcome
	func() {
		defer func() {
			e.frames = e.frames[:len(e.frames)-1]
			e.threshold.Restore(prior)
		}()
		out = e.invoke(ctx)
	}()

	if out.Fault != nil {
		e.emit(ir.TraceFault, ctx, -1, out.String())
		e.logger.Error("task faulted",
			"task", task.Spec.Name,
			"kind", out.Fault.Kind,
			"location", out.Fault.Location,
			"cycle", e.cycles.Current())
	}
	ctx.priority = task.Spec.Priority
	e.emit(ir.TraceFinish, ctx, -1, "")
	e.logger.Debug("task finished", "task", task.Spec.Name, "cycle", e.cycles.Current())

	e.results = append(e.results, Result{
		Task:    task.Spec.Name,
		Seq:     a.Seq,
		Start:   start,
		Finish:  e.cycles.Current(),
		Outcome: out,
	})
	return out
}

// invoke runs the body, converting a fault into an outcome. Claim guards
// have restored the threshold by the time the fault reaches here.
func (e *Engine) invoke(ctx *Context) (out ir.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*sym.Fault)
			if !ok {
				panic(r)
			}
			out = f.Outcome()
		}
	}()
	ctx.task.Body(ctx)
	return ir.OK()
}

func (e *Engine) noteClaim(task ir.TaskID, r ir.ResourceID) {
	m := e.claimed[task]
	if m == nil {
		m = make(map[ir.ResourceID]bool)
		e.claimed[task] = m
	}
	m[r] = true
}

func (e *Engine) emit(kind ir.TraceKind, ctx *Context, r ir.ResourceID, detail string) {
	rec := ir.TraceRecord{Kind: kind, Task: ctx.task.Spec.Name, Level: ctx.priority, Detail: detail}
	if r >= 0 {
		rec.Resource = e.app.Resource(r).Name
	}
	e.record(rec)
}

func (e *Engine) record(rec ir.TraceRecord) {
	if len(e.observers) == 0 {
		return
	}
	rec.Seq = e.seq.Next()
	rec.Cycle = e.cycles.Current()
	rec.Label = e.label
	for _, o := range e.observers {
		o.Observe(rec)
	}
}
