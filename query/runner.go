package query

import (
	"context"
	"log/slog"
	"sync/atomic"

	"hermannm.dev/devlog/log"
	"hermannm.dev/widgetengine/widget"
)

// Runner runs queries for one widget with last-plan-wins semantics: starting a run cancels the
// run in flight, and a run that completes after a newer one started returns ErrSuperseded.
type Runner struct {
	engine     *Engine
	generation atomic.Uint64
	cancel     atomic.Pointer[context.CancelFunc]
}

func NewRunner(engine *Engine) *Runner {
	return &Runner{engine: engine}
}

func (runner *Runner) Run(ctx context.Context, spec widget.Spec, table string) (Result, error) {
	generation := runner.generation.Add(1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if previous := runner.cancel.Swap(&cancel); previous != nil {
		(*previous)()
	}

	result, err := runner.engine.Run(ctx, spec, table)

	if current := runner.generation.Load(); current != generation {
		log.Debug(
			"dropped superseded widget query",
			slog.String("widget", spec.ID),
			slog.Uint64("generation", generation),
			slog.Uint64("current", current),
		)
		return Result{}, ErrSuperseded
	}
	return result, err
}
