// Package workerpool wraps ants with a small fixed-size pool used for
// background batch work such as persistence batches and weight generation.
package workerpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// TaskResult carries the outcome of a task submitted with SubmitWithResult.
type TaskResult struct {
	Data  interface{}
	Error error
}

// Pool is a fixed-size worker pool.
type Pool struct {
	pool   *ants.Pool
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a pool with the given number of workers.
func New(size int, logger *zap.Logger) (*Pool, error) {
	if size <= 0 {
		size = 8
	}

	antsPool, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v interface{}) {
			logger.Error("worker panic", zap.Any("error", v))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	return &Pool{pool: antsPool, logger: logger}, nil
}

// Submit schedules a task for execution.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}
	return p.pool.Submit(task)
}

// SubmitWithResult schedules a task and returns a channel carrying its result.
func (p *Pool) SubmitWithResult(task func() (interface{}, error)) <-chan TaskResult {
	resultCh := make(chan TaskResult, 1)

	err := p.Submit(func() {
		data, err := task()
		resultCh <- TaskResult{Data: data, Error: err}
		close(resultCh)
	})
	if err != nil {
		resultCh <- TaskResult{Error: err}
		close(resultCh)
	}

	return resultCh
}

// Running returns the number of busy workers.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Shutdown waits for queued tasks and releases the pool.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.pool.Release()
}
