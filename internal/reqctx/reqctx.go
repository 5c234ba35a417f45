// Package reqctx threads a per-unit-of-work id through the context so log
// lines from one unit can be correlated across the watcher, the pipelines
// and the scheduler.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

type key int

const unitKey key = 0

// UnitInfo identifies one unit-of-work execution.
type UnitInfo struct {
	UnitID    string
	Handler   string
	StartTime time.Time
}

// WithUnit attaches a fresh unit id for the given handler.
func WithUnit(ctx context.Context, handler string) context.Context {
	return context.WithValue(ctx, unitKey, &UnitInfo{
		UnitID:    generateID(),
		Handler:   handler,
		StartTime: time.Now(),
	})
}

// Unit returns the current unit info, or a placeholder when none was set.
func Unit(ctx context.Context) *UnitInfo {
	if info, ok := ctx.Value(unitKey).(*UnitInfo); ok {
		return info
	}
	return &UnitInfo{UnitID: "unknown", StartTime: time.Now()}
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// UnitError wraps an error with the unit id that produced it.
type UnitError struct {
	UnitID string
	Err    error
}

// Error implements the error interface.
func (e *UnitError) Error() string {
	return fmt.Sprintf("[%s] %v", e.UnitID, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnitError) Unwrap() error {
	return e.Err
}

// WrapError tags err with the context's unit id.
func WrapError(ctx context.Context, err error) error {
	return &UnitError{UnitID: Unit(ctx).UnitID, Err: err}
}
