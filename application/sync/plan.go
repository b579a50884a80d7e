package sync

import (
	"context"

	"go.uber.org/zap"

	pkgerrors "pathway-engine/pkg/errors"
)

// Step is one unit of a multi-resource sync. OnAbort runs when the plan
// aborts after Run was attempted: a later step failed, or Run itself failed
// past its remote write. It records bookkeeping (orphan candidates) and
// must not undo the remote write — shared resources are never rolled back
// automatically.
type Step struct {
	Name    string
	Run     func(ctx context.Context) error
	OnAbort func(ctx context.Context)
}

// PlanState tracks plan execution
type PlanState string

const (
	PlanPending   PlanState = "PENDING"
	PlanRunning   PlanState = "RUNNING"
	PlanCompleted PlanState = "COMPLETED"
	PlanAborted   PlanState = "ABORTED"
)

// Plan executes sync steps in dependency order. Steps run strictly one
// after another; a failure stops the plan and triggers the abort hooks of
// every step that already completed, most recent first.
type Plan struct {
	name      string
	steps     []Step
	state     PlanState
	completed []Step
	logger    *zap.Logger
}

// NewPlan creates a named sync plan
func NewPlan(name string, logger *zap.Logger) *Plan {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plan{name: name, state: PlanPending, logger: logger}
}

// AddStep appends a step to the plan
func (p *Plan) AddStep(step Step) *Plan {
	p.steps = append(p.steps, step)
	return p
}

// State returns the plan's current state
func (p *Plan) State() PlanState {
	return p.state
}

// Execute runs the plan. The returned error is the failing step's error,
// untouched, so callers keep the full taxonomy information.
func (p *Plan) Execute(ctx context.Context) error {
	p.state = PlanRunning
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.abort(ctx, step.Name, nil, err)
			return pkgerrors.NewTimeoutError(p.name).WithCause(err)
		}

		p.logger.Debug("sync step starting",
			zap.String("plan", p.name),
			zap.String("step", step.Name),
		)
		if err := step.Run(ctx); err != nil {
			p.abort(ctx, step.Name, step.OnAbort, err)
			return err
		}
		p.completed = append(p.completed, step)
	}
	p.state = PlanCompleted
	return nil
}

// abort fires the hooks, the failing step's own first (when its Run was
// attempted), then the completed steps' most recent first
func (p *Plan) abort(ctx context.Context, failedStep string, failedHook func(context.Context), cause error) {
	p.state = PlanAborted
	p.logger.Warn("sync plan aborted",
		zap.String("plan", p.name),
		zap.String("failedStep", failedStep),
		zap.Error(cause),
	)
	if failedHook != nil {
		failedHook(ctx)
	}
	for i := len(p.completed) - 1; i >= 0; i-- {
		if p.completed[i].OnAbort != nil {
			p.completed[i].OnAbort(ctx)
		}
	}
}
