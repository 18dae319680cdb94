package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	ifotel "github.com/Strob0t/invoiceflow/internal/adapter/otel"
	"github.com/Strob0t/invoiceflow/internal/config"
	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/logger"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
	"github.com/Strob0t/invoiceflow/internal/resilience"
)

// ErrNoDecision is recorded when a stage returns neither a decision nor an error.
var ErrNoDecision = errors.New("stage returned no decision")

// DecisionHook observes every decision appended to a run.
type DecisionHook func(ctx context.Context, d decision.Decision) error

// RunHook observes every finished run.
type RunHook func(ctx context.Context, r *pipeline.Result) error

// StatusHook observes stage status after each invocation.
type StatusHook func(ctx context.Context, s agent.Status)

// Orchestrator walks the stage plan for one document at a time.
type Orchestrator struct {
	plan     *pipeline.Plan
	registry *StageRegistry
	cfg      config.Pipeline
	metrics  *ifotel.Metrics
	now      func() time.Time

	hooksMu       sync.RWMutex
	onDecision    []DecisionHook
	onRunComplete []RunHook
	onStatus      []StatusHook
}

// NewOrchestrator creates an orchestrator. A nil plan selects the default
// accounts-payable plan; metrics may be nil.
func NewOrchestrator(registry *StageRegistry, plan *pipeline.Plan, cfg config.Pipeline, metrics *ifotel.Metrics) (*Orchestrator, error) {
	if plan == nil {
		plan = pipeline.DefaultPlan()
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("plan %q: %w", plan.Name, err)
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 1
	}
	return &Orchestrator{
		plan:     plan,
		registry: registry,
		cfg:      cfg,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

// RegisterAgent adds a stage. Registering an id twice is a no-op that returns false.
func (o *Orchestrator) RegisterAgent(s stageport.Stage) bool {
	return o.registry.Register(s)
}

// RegisteredAgents returns the status of every registered stage.
func (o *Orchestrator) RegisteredAgents() []agent.Status {
	return o.registry.Statuses()
}

// AgentStatus returns the status of one stage.
func (o *Orchestrator) AgentStatus(id string) (agent.Status, bool) {
	return o.registry.Status(id)
}

// Plan returns the stage plan.
func (o *Orchestrator) Plan() pipeline.Plan {
	p := *o.plan
	p.Stages = append([]pipeline.StageDescriptor(nil), o.plan.Stages...)
	return p
}

// AddOnDecision appends a hook called for every appended decision.
func (o *Orchestrator) AddOnDecision(fn DecisionHook) {
	o.hooksMu.Lock()
	o.onDecision = append(o.onDecision, fn)
	o.hooksMu.Unlock()
}

// AddOnRunComplete appends a hook called when a run finishes.
func (o *Orchestrator) AddOnRunComplete(fn RunHook) {
	o.hooksMu.Lock()
	o.onRunComplete = append(o.onRunComplete, fn)
	o.hooksMu.Unlock()
}

// AddOnAgentStatus appends a hook called after each stage invocation.
func (o *Orchestrator) AddOnAgentStatus(fn StatusHook) {
	o.hooksMu.Lock()
	o.onStatus = append(o.onStatus, fn)
	o.hooksMu.Unlock()
}

// run is the mutable state of one ProcessDocument call.
type run struct {
	doc      *document.Document
	traceID  string
	log      *decision.Log
	errs     []pipeline.PipelineError
	executed map[string]bool
	halt     pipeline.HaltReason
	haltedBy string
}

// snapshot is the private copy of run state handed to one stage attempt.
// An attempt abandoned on timeout keeps only its snapshot, never the live
// run.
type snapshot struct {
	doc *document.Document
	rc  *stageport.RunContext
}

func (r *run) snapshot() snapshot {
	doc := *r.doc
	return snapshot{doc: &doc, rc: stageport.NewRunContext(r.traceID, r.log.Clone())}
}

// attempt is what a successful stage call hands back: its decision and the
// extracted data as the stage left it.
type attempt struct {
	d         *decision.Decision
	extracted *document.ExtractedData
}

// outcome is the result of one stage invocation.
type outcome struct {
	agentID   string
	required  bool
	d         *decision.Decision
	extracted *document.ExtractedData
	err       error
	timedOut  bool
}

// ProcessDocument runs the full plan for doc. It only returns an error for
// an unusable document; stage failures are reported in the result.
func (o *Orchestrator) ProcessDocument(ctx context.Context, doc *document.Document) (*pipeline.Result, error) {
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("document id: %w", domain.ErrValidation)
	}
	if doc.Status == "" {
		doc.Status = document.StatusReceived
	}

	r := &run{
		doc:      doc,
		traceID:  traceFor(ctx),
		log:      decision.NewLog(),
		executed: make(map[string]bool, len(o.plan.Stages)),
	}

	ctx = logger.WithTraceID(ctx, r.traceID)
	ctx, span := ifotel.StartRunSpan(ctx, doc.ID, r.traceID, o.plan.Name)
	runCtx := ctx
	if o.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.RunDeadline)
		defer cancel()
	}

	started := o.now()
	log := logger.FromContext(ctx)
	log.Info("pipeline run started", "document_id", doc.ID, "plan", o.plan.Name)

	o.walk(runCtx, r)
	if r.halt != pipeline.HaltNone {
		o.handleHalt(ctx, r)
	}

	completed := o.now()
	res := &pipeline.Result{
		DocumentID:  doc.ID,
		TraceID:     r.traceID,
		Decisions:   r.log.All(),
		Errors:      append([]pipeline.PipelineError{}, r.errs...),
		Halt:        r.halt,
		HaltedBy:    r.haltedBy,
		StartedAt:   started,
		CompletedAt: completed,
		DurationMs:  completed.Sub(started).Milliseconds(),
	}
	res.Status = pipeline.FinalStatus(res.Decisions, res.Errors)
	doc.Status = pipeline.DocumentStatus(res.Status, doc.Status)

	log.Info("pipeline run finished",
		"document_id", doc.ID,
		"status", res.Status,
		"halt", res.Halt,
		"decisions", len(res.Decisions),
		"errors", len(res.Errors),
		"duration_ms", res.DurationMs,
	)
	o.metrics.RecordRun(ctx, string(res.Status), string(res.Halt), completed.Sub(started))
	ifotel.EndSpan(span, nil,
		attribute.String("pipeline.status", string(res.Status)),
		attribute.String("pipeline.halt", string(res.Halt)),
	)

	o.fireRunComplete(context.WithoutCancel(ctx), res)
	return res, nil
}

// walk executes plan entries in order until the plan ends or the run halts.
func (o *Orchestrator) walk(ctx context.Context, r *run) {
	for _, desc := range o.plan.Stages {
		if r.executed[desc.AgentID] {
			continue
		}
		if ctx.Err() != nil {
			o.haltOnDeadline(r, desc.AgentID)
			return
		}

		mark := r.log.Len()
		var results []outcome
		if members := o.pending(r, desc.Group()); len(desc.Parallel) > 0 && len(members) > 0 {
			results = o.runGroup(ctx, r, members)
			for _, id := range desc.Group() {
				r.executed[id] = true
			}
		} else {
			r.executed[desc.AgentID] = true
			e, ok := o.registry.lookup(desc.AgentID)
			if !ok {
				logger.FromContext(ctx).Debug("stage not registered, skipping", "stage", desc.AgentID)
				continue
			}
			results = []outcome{o.invoke(ctx, r, e, desc.Required)}
		}

		expired := ctx.Err() != nil
		for _, res := range results {
			o.record(ctx, r, res, expired)
		}
		if r.halt != pipeline.HaltNone {
			return
		}
		for _, d := range r.log.Since(mark) {
			if d.Outcome == decision.OutcomeBlocked && o.plan.IsRequired(d.AgentID) {
				r.halt, r.haltedBy = pipeline.HaltBlocked, d.AgentID
				return
			}
		}
	}
}

// pending returns the registered, not yet executed ids of a group.
func (o *Orchestrator) pending(r *run, ids []string) []string {
	var out []string
	for _, id := range ids {
		if !r.executed[id] && o.registry.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// runGroup invokes all members concurrently and returns their outcomes in
// the order the calls were issued.
func (o *Orchestrator) runGroup(ctx context.Context, r *run, ids []string) []outcome {
	results := make([]outcome, len(ids))
	var g errgroup.Group
	g.SetLimit(o.cfg.MaxParallel)
	for i, id := range ids {
		e, _ := o.registry.lookup(id)
		required := o.plan.IsRequired(id)
		g.Go(func() error {
			results[i] = o.invoke(ctx, r, e, required)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// record appends a decision or a pipeline error and decides whether the
// failure halts the run. Failures after the run deadline expired always
// halt with the deadline reason.
func (o *Orchestrator) record(ctx context.Context, r *run, res outcome, expired bool) {
	if res.err == nil {
		o.accept(ctx, r, res)
		return
	}

	recoverable := res.timedOut && !res.required && !expired
	r.errs = append(r.errs, pipeline.PipelineError{
		AgentID:     res.agentID,
		Message:     res.err.Error(),
		Timestamp:   o.now().UTC(),
		Recoverable: recoverable,
	})
	logger.FromContext(ctx).Error("stage failed",
		"stage", res.agentID,
		"required", res.required,
		"recoverable", recoverable,
		"error", res.err,
	)
	switch {
	case r.halt != pipeline.HaltNone:
	case expired:
		r.halt, r.haltedBy = pipeline.HaltDeadline, res.agentID
	case res.required:
		r.halt, r.haltedBy = pipeline.HaltStageFailed, res.agentID
	}
}

// accept adopts the extracted data a stage produced and appends its
// decision. It runs on the run's goroutine only.
func (o *Orchestrator) accept(ctx context.Context, r *run, res outcome) {
	if res.extracted != r.doc.ExtractedData {
		r.doc.ExtractedData = res.extracted
	}
	o.appendDecision(ctx, r, res.d)
}

func (o *Orchestrator) appendDecision(ctx context.Context, r *run, d *decision.Decision) {
	r.log.Append(*d)
	r.doc.Status = pipeline.Advance(r.doc.Status, d.AgentID, d.Outcome)
	o.fireDecision(ctx, *d)
}

// haltOnDeadline records the expired run deadline as a failure.
func (o *Orchestrator) haltOnDeadline(r *run, next string) {
	r.errs = append(r.errs, pipeline.PipelineError{
		AgentID:   next,
		Message:   "run deadline exceeded before stage started",
		Timestamp: o.now().UTC(),
	})
	r.halt, r.haltedBy = pipeline.HaltDeadline, next
}

// handleHalt is the single consumer of halt reasons. It runs the
// notification stage once when the reason calls for it.
func (o *Orchestrator) handleHalt(ctx context.Context, r *run) {
	log := logger.FromContext(ctx)
	log.Warn("pipeline halted", "reason", r.halt, "stage", r.haltedBy)

	if !r.halt.Notifies(o.cfg.NotifyOnFailure) || r.haltedBy == agent.Communication {
		return
	}
	e, ok := o.registry.lookup(agent.Communication)
	if !ok {
		return
	}
	res := o.invoke(ctx, r, e, false)
	if res.err != nil {
		r.errs = append(r.errs, pipeline.PipelineError{
			AgentID:     agent.Communication,
			Message:     res.err.Error(),
			Timestamp:   o.now().UTC(),
			Recoverable: true,
		})
		log.Error("halt notification failed", "error", res.err)
		return
	}
	res.d.With(decision.AttrHaltReason, string(r.halt))
	o.accept(ctx, r, res)
}

// invoke runs one stage with breaker, retry, timeout and panic protection,
// and updates its status.
func (o *Orchestrator) invoke(ctx context.Context, r *run, e *stageEntry, required bool) outcome {
	id := e.stage.ID()
	res := outcome{agentID: id, required: required}

	e.begin()
	start := o.now()
	sctx, span := ifotel.StartStageSpan(ctx, id, r.doc.ID)

	if !e.breaker.Allow() {
		res.err = fmt.Errorf("stage %s: %w", id, resilience.ErrCircuitOpen)
	} else {
		policy := resilience.RetryPolicy{
			Attempts:       o.cfg.RetryAttempts,
			InitialBackoff: o.cfg.RetryBackoff,
		}
		var a attempt
		a, res.err = resilience.Retry(sctx, policy, isTransient, func(ctx context.Context) (attempt, error) {
			return o.call(ctx, e.stage, r.snapshot())
		})
		res.d, res.extracted = a.d, a.extracted
		e.breaker.Record(res.err)
	}
	latency := o.now().Sub(start)

	if res.err == nil {
		stamp(res.d, id, r)
	} else {
		res.timedOut = errors.Is(res.err, context.DeadlineExceeded)
	}

	outcomeLabel := "error"
	if res.d != nil {
		outcomeLabel = string(res.d.Outcome)
	}
	o.metrics.RecordStage(ctx, id, outcomeLabel, latency, res.err != nil)
	ifotel.EndSpan(span, res.err, attribute.String("stage.outcome", outcomeLabel))

	status := e.finish(o.now(), latency, res.err != nil)
	o.fireStatus(ctx, status)
	return res
}

// call invokes the stage on its own snapshot under the per-stage timeout.
// A stage that ignores its context is abandoned when the timeout fires.
func (o *Orchestrator) call(ctx context.Context, s stageport.Stage, snap snapshot) (attempt, error) {
	if o.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.StageTimeout)
		defer cancel()
	}

	type reply struct {
		d   *decision.Decision
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- reply{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		d, err := s.Process(ctx, snap.doc, snap.rc)
		ch <- reply{d: d, err: err}
	}()

	select {
	case rep := <-ch:
		if rep.err != nil {
			return attempt{}, fmt.Errorf("stage %s: %w", s.ID(), rep.err)
		}
		if rep.d == nil {
			return attempt{}, fmt.Errorf("stage %s: %w", s.ID(), ErrNoDecision)
		}
		return attempt{d: rep.d, extracted: snap.doc.ExtractedData}, nil
	case <-ctx.Done():
		return attempt{}, fmt.Errorf("stage %s: %w", s.ID(), ctx.Err())
	}
}

// stamp fills the run identity into a decision.
func stamp(d *decision.Decision, agentID string, r *run) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.AgentID == "" {
		d.AgentID = agentID
	}
	if d.DocumentID == "" {
		d.DocumentID = r.doc.ID
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}
	d.TraceID = r.traceID
	d.Confidence = decision.Clamp(d.Confidence)
}

func isTransient(err error) bool {
	return errors.Is(err, stageport.ErrTransient)
}

// Route dispatches a single step chosen by the document status.
func (o *Orchestrator) Route(ctx context.Context, doc *document.Document) (*decision.Decision, error) {
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("document id: %w", domain.ErrValidation)
	}
	if doc.Status == "" {
		doc.Status = document.StatusReceived
	}
	id, ok := pipeline.NextStage(doc.Status)
	if !ok {
		return nil, fmt.Errorf("status %q: %w", doc.Status, domain.ErrNoRoute)
	}
	e, ok := o.registry.lookup(id)
	if !ok {
		return nil, fmt.Errorf("stage %q: %w", id, domain.ErrStageNotRegistered)
	}

	r := &run{doc: doc, traceID: traceFor(ctx), log: decision.NewLog()}
	ctx = logger.WithTraceID(ctx, r.traceID)
	ctx, span := ifotel.StartRouteSpan(ctx, doc.ID, string(doc.Status))

	res := o.invoke(ctx, r, e, true)
	ifotel.EndSpan(span, res.err, attribute.String("route.stage", id))
	if res.err != nil {
		return nil, fmt.Errorf("route %s: %w", id, res.err)
	}

	doc.ExtractedData = res.extracted
	doc.Status = pipeline.AdvanceRoute(doc.Status, id, res.d.Outcome)
	logger.FromContext(ctx).Info("document routed", "document_id", doc.ID, "stage", id, "status", doc.Status)
	o.fireDecision(ctx, *res.d)
	return res.d, nil
}

func (o *Orchestrator) fireDecision(ctx context.Context, d decision.Decision) {
	o.hooksMu.RLock()
	hooks := o.onDecision
	o.hooksMu.RUnlock()
	for _, fn := range hooks {
		if err := fn(ctx, d); err != nil {
			logger.FromContext(ctx).Warn("decision hook failed", "decision_id", d.ID, "error", err)
		}
	}
}

func (o *Orchestrator) fireRunComplete(ctx context.Context, res *pipeline.Result) {
	o.hooksMu.RLock()
	hooks := o.onRunComplete
	o.hooksMu.RUnlock()
	for _, fn := range hooks {
		if err := fn(ctx, res); err != nil {
			logger.FromContext(ctx).Warn("run completion hook failed", "document_id", res.DocumentID, "error", err)
		}
	}
}

func (o *Orchestrator) fireStatus(ctx context.Context, s agent.Status) {
	o.hooksMu.RLock()
	hooks := o.onStatus
	o.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, s)
	}
}

// traceFor reuses the caller's trace id so a run joins the request or
// message that triggered it.
func traceFor(ctx context.Context) string {
	if id := logger.TraceID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
