package attack

import (
	"context"
	"log/slog"
)

// Step defines one stage of the attack workflow. Steps are executed in
// sequence and communicate through the Tracker's report.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., retries, skipping)
type Step interface {
	// Do executes the step. Returns an error if the step fails
	// critically; recoverable problems (a missed deauth, an inconclusive
	// handshake check) should be recorded on the report and return nil.
	Do(ctx context.Context, t *Tracker) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of the attack steps in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets a custom logger for the pipeline.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates an empty Pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddSteps appends steps to the pipeline in execution order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence, stopping at the first failure or
// when the context is cancelled.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps handle their own timeouts. This gives each step
// a chance to clean up (stop its capture session, kill its subprocess)
// before the next one starts.
func (p *Pipeline) Execute(ctx context.Context, t *Tracker) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("attack pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"target", t.Report().Target,
		)

		if err := step.Do(ctx, t); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)
			return err
		}

		p.logger.Debug("step completed", "step", step.Name())
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
