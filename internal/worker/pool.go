// Package worker provides a parallel image processing worker pool.
package worker

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pbnjay/memory"
)

// Processor adjusts a single image.
type Processor interface {
	Process(ctx context.Context, task Task) (output string, err error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, task Task) (string, error)

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, task Task) (string, error) {
	return f(ctx, task)
}

// Task represents a single image to process.
type Task struct {
	Input  string
	Output string
}

// Result represents the outcome of a task.
type Result struct {
	Task    Task
	Output  string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Processor  Processor
	OnProgress ProgressFunc
}

// Pool manages parallel image processing.
type Pool struct {
	workers    int
	processor  Processor
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		processor:  cfg.Processor,
		onProgress: cfg.OnProgress,
	}
}

// DefaultWorkers returns the number of CPUs, reduced so that the given number
// of bytes per in-flight image fits into half of physical memory.
func DefaultWorkers(bytesPerTask uint64) int {
	return workersFor(runtime.NumCPU(), memory.TotalMemory(), bytesPerTask)
}

func workersFor(cpus int, totalMemory, bytesPerTask uint64) int {
	workers := cpus
	if totalMemory > 0 && bytesPerTask > 0 {
		if fit := int(totalMemory / 2 / bytesPerTask); fit < workers {
			workers = fit
		}
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Run executes all tasks and returns results.
// Tasks are processed in parallel by the configured number of workers.
// The function blocks until all tasks complete or the context is cancelled.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	// Feed tasks
	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		for result := range resultCh {
			results = append(results, result)

			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(tasks), f)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)

	<-done

	return results
}

// worker processes tasks from the task channel and sends results to the result channel.
func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{
				Task: task,
				Err:  ctx.Err(),
			}
			continue
		default:
		}

		start := time.Now()
		output, err := p.processor.Process(ctx, task)
		elapsed := time.Since(start)

		results <- Result{
			Task:    task,
			Output:  output,
			Err:     err,
			Elapsed: elapsed,
		}
	}
}
