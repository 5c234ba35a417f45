// Package sched is the engine's hand-off boundary: pipelines produce work
// units, a Scheduler accepts them. Queueing, retries and concurrency are
// the scheduler's business, never the engine's.
package sched

import (
	"context"

	"github.com/sizieks/parsers/pkg/models"
)

// Scheduler accepts continuation work units.
type Scheduler interface {
	Schedule(ctx context.Context, unit models.WorkUnit) error
}

// Func adapts a function to Scheduler.
type Func func(ctx context.Context, unit models.WorkUnit) error

// Schedule implements Scheduler.
func (f Func) Schedule(ctx context.Context, unit models.WorkUnit) error {
	return f(ctx, unit)
}

// Discard drops every unit. Used when a run should not expand.
var Discard Scheduler = Func(func(context.Context, models.WorkUnit) error { return nil })
