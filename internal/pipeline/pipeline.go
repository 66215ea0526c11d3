package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/schemacrawl/internal/model"
)

// ErrStepPanicked is recorded for a step that panicked on a page.
var ErrStepPanicked = errors.New("pipeline step panicked")

// Step processes one crawled page. Steps run in order on the same
// PageResult, so a step sees everything the earlier steps added.
type Step interface {
	// Do executes the step on one page.
	// Non-critical problems should be recorded with result.AddError and
	// return nil; a returned error is recorded by the pipeline.
	Do(ctx context.Context, result *model.PageResult) error

	// Name identifies the step in logs and recorded errors.
	Name() string
}

// Pipeline runs an ordered list of steps on each crawled page.
// A Pipeline is not safe for concurrent use; the Runner builds one per crawl.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// when one fails. A page whose extraction failed can still be recorded in
// the history database, for example.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step. Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs all steps on result in sequence.
//
// The context is checked before each step and its error returned once
// cancelled. A failing or panicking step is recorded in result; Execute
// then stops with that error unless continueOnError is set.
func (p *Pipeline) Execute(ctx context.Context, result *model.PageResult) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Debug("pipeline cancelled", "step", step.Name(), "url", result.Page.URL, "reason", err)
			return err
		}

		start := time.Now()
		err := runStep(ctx, step, result)
		elapsed := time.Since(start)
		result.PerformedSteps = append(result.PerformedSteps, step.Name())

		if err == nil {
			p.logger.Debug("step completed", "step", step.Name(), "url", result.Page.URL, "elapsed", elapsed)
			continue
		}

		p.logger.Warn("step failed", "step", step.Name(), "url", result.Page.URL, "error", err)
		result.AddError(step.Name(), err)
		if !p.continueOnError {
			return err
		}
	}
	return nil
}

// runStep calls step.Do, turning a panic into ErrStepPanicked so that one
// malformed page cannot take the crawl down.
func runStep(ctx context.Context, step Step, result *model.PageResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStepPanicked, r)
		}
	}()
	return step.Do(ctx, result)
}
