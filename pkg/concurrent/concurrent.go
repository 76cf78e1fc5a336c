// Package concurrent runs groups of long-lived tasks that share one lifetime.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a blocking unit of work that returns when ctx is done or it fails.
type Task func(ctx context.Context) error

// Run starts every task in its own goroutine and waits for all of them.
// The first failure cancels the context handed to the others and is returned.
func Run(ctx context.Context, tasks ...Task) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		if task == nil {
			continue
		}
		g.Go(func() error {
			return task(gctx)
		})
	}
	return g.Wait()
}

// Concurrent runs action for each value in a separate goroutine.
// It waits for all goroutines to finish and returns the first error encountered.
func Concurrent[T any](values []T, action func(T) error) error {
	errGroup := errgroup.Group{}
	for _, value := range values {
		errGroup.Go(func() error {
			return action(value)
		})
	}
	return errGroup.Wait()
}
