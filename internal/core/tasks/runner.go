package tasks

import (
	"context"

	"fulfillment-core/internal/core/logger"

	"go.uber.org/zap"
)

// Runner schedules best-effort follow-up work after a local commit.
// The real background-job infrastructure is an external collaborator; the
// core only depends on this port so the "commit now, follow up later"
// contract stays explicit and testable.
type Runner interface {
	// Go runs fn off the caller's request path. fn receives a fresh
	// context because the HTTP request context ends with the response.
	Go(name string, fn func(ctx context.Context))
}

// GoroutineRunner runs tasks in plain goroutines with panic recovery.
type GoroutineRunner struct{}

// NewGoroutineRunner creates a new GoroutineRunner.
func NewGoroutineRunner() *GoroutineRunner {
	return &GoroutineRunner{}
}

// Go runs fn in a goroutine. Panics are recovered and logged so a broken
// follow-up task can never take the process down.
func (r *GoroutineRunner) Go(name string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Get().Error("Background task panicked",
					zap.String("task", name),
					zap.Any("panic", rec),
				)
			}
		}()
		fn(context.Background())
	}()
}

// SyncRunner runs tasks inline. Used by tests to make follow-up work
// deterministic.
type SyncRunner struct{}

// Go runs fn synchronously.
func (r *SyncRunner) Go(name string, fn func(ctx context.Context)) {
	fn(context.Background())
}
