// Package watch implements the materialization wait: block until lazily
// loaded content has finished appearing in a view subtree, driving the
// widget's own load-more control when the content is paginated.
package watch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/internal/view"
)

// ErrTimeout reports that content never satisfied the completion predicate
// within the spec's timeout.
var ErrTimeout = errors.New("materialization timed out")

// DefaultTimeout bounds waits whose spec does not set one. Unbounded waits
// are a production risk: a widget that never converges would pin the unit
// of work forever.
const DefaultTimeout = 30 * time.Second

// Spec describes one materialization wait. It is consumed by exactly one
// Materialize call.
type Spec struct {
	// Root is the subtree under observation.
	Root view.Node

	// Done inspects the subtree and returns the completion node when the
	// content has fully materialized, nil otherwise.
	Done func(root view.Node) view.Node

	// Trigger selects the control (a load-more button) that advances
	// loading. Empty means the content loads on its own.
	Trigger string

	// Timeout bounds the wait. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Materialize blocks until spec.Done is satisfied, the subtree is provably
// empty, the timeout expires, or ctx is cancelled.
//
// A nil node with a nil error is the empty short-circuit: the root has no
// children and nothing will ever load, a normal terminal state. Exactly one
// subscription is created per call and it is released on every exit path.
func Materialize(ctx context.Context, tree view.Tree, spec Spec) (view.Node, error) {
	// Content may have settled before the watcher attached; checking
	// before subscribing avoids a missed-event race.
	if node := spec.Done(spec.Root); node != nil {
		log.Debug().Msg("Content already materialized")
		return node, nil
	}

	if len(spec.Root.Children()) == 0 {
		log.Debug().Msg("Subtree is empty, nothing will materialize")
		return nil, nil
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sub, err := tree.Subscribe(waitCtx)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	// Re-check after attaching: a change between the first check and the
	// subscription would otherwise be lost.
	if node := spec.Done(spec.Root); node != nil {
		return node, nil
	}
	trigger(waitCtx, tree, spec)

	for {
		select {
		case <-sub.Changes():
			if node := spec.Done(spec.Root); node != nil {
				log.Debug().Msg("Content materialized")
				return node, nil
			}
			// Not done yet: advance loading, at most once per
			// notification.
			trigger(waitCtx, tree, spec)

		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrTimeout
		}
	}
}

func trigger(ctx context.Context, tree view.Tree, spec Spec) {
	if spec.Trigger == "" {
		return
	}
	if spec.Root.Query(spec.Trigger) == nil {
		return
	}
	if err := tree.Activate(ctx, spec.Trigger); err != nil {
		log.Debug().Err(err).Str("trigger", spec.Trigger).Msg("Trigger activation failed")
	}
}
