package mt

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the translation worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent int // Maximum concurrent provider calls (default: 4)
}

// DefaultWorkerPoolConfig returns sensible defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrent: 4,
	}
}

// WorkerPool bounds concurrent provider calls when draining the
// auto-translation queue. A semaphore limits outstanding requests; results
// are collected as they complete.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a new translation worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 4
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("mt-worker-pool"),
	}
}

// WorkItem represents a unit of work to be processed.
type WorkItem[T any] struct {
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult represents the result of a work item.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes all work items with bounded parallelism.
// Returns results in completion order (not submission order).
// Continues processing all items even if some fail.
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], 0, len(items))
	resultsChan := make(chan WorkResult[T], len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup

	for _, item := range items {
		wg.Add(1)
		go func(item WorkItem[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				var zero T
				resultsChan <- WorkResult[T]{ID: item.ID, Result: zero, Err: ctx.Err()}
				return
			}

			result, err := item.Execute(ctx)
			resultsChan <- WorkResult[T]{
				ID:     item.ID,
				Result: result,
				Err:    err,
			}
		}(item)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	completed := 0
	for result := range resultsChan {
		results = append(results, result)
		completed++
		if onProgress != nil {
			onProgress(completed, len(items))
		}
	}

	return results
}
