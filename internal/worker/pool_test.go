package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mockProcessor simulates image processing for testing
type mockProcessor struct {
	delay     time.Duration
	failFiles map[string]bool
	callCount atomic.Int32
}

func (m *mockProcessor) Process(ctx context.Context, task Task) (string, error) {
	m.callCount.Add(1)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(m.delay):
	}

	if m.failFiles != nil && m.failFiles[task.Input] {
		return "", errors.New("simulated failure")
	}

	return strings.Replace(task.Input, "in/", "out/", 1), nil
}

func makeTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{Input: fmt.Sprintf("in/img%02d.png", i)}
	}
	return tasks
}

func TestPool_BasicExecution(t *testing.T) {
	proc := &mockProcessor{delay: 10 * time.Millisecond}

	pool := New(Config{
		Workers:   2,
		Processor: proc,
	})

	tasks := makeTasks(3)
	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for %s: %v", r.Task.Input, r.Err)
		}
		if !strings.HasPrefix(r.Output, "out/") {
			t.Errorf("Expected output path for %s, got %q", r.Task.Input, r.Output)
		}
	}

	if proc.callCount.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d processor calls, got %d", len(tasks), proc.callCount.Load())
	}
}

func TestPool_Parallelism(t *testing.T) {
	proc := &mockProcessor{delay: 50 * time.Millisecond}

	pool := New(Config{
		Workers:   4,
		Processor: proc,
	})

	start := time.Now()
	results := pool.Run(context.Background(), makeTasks(8))
	elapsed := time.Since(start)

	// 4 workers, 8 tasks at 50ms each: two rounds
	if elapsed > 300*time.Millisecond {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}
	if len(results) != 8 {
		t.Errorf("Expected 8 results, got %d", len(results))
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	tasks := makeTasks(3)
	proc := &mockProcessor{
		delay:     10 * time.Millisecond,
		failFiles: map[string]bool{tasks[1].Input: true},
	}

	pool := New(Config{
		Workers:   2,
		Processor: proc,
	})

	results := pool.Run(context.Background(), tasks)
	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	var successCount, failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
			if r.Task.Input != tasks[1].Input {
				t.Errorf("Unexpected failure for %s", r.Task.Input)
			}
		} else {
			successCount++
		}
	}

	if successCount != 2 {
		t.Errorf("Expected 2 successes, got %d", successCount)
	}
	if failCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failCount)
	}
}

func TestPool_Cancellation(t *testing.T) {
	proc := &mockProcessor{delay: 100 * time.Millisecond}

	pool := New(Config{
		Workers:   2,
		Processor: proc,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, makeTasks(10))
	elapsed := time.Since(start)

	if elapsed > 250*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}

	var cancelledCount int
	for _, r := range results {
		if r.Err != nil && errors.Is(r.Err, context.Canceled) {
			cancelledCount++
		}
	}
	if cancelledCount == 0 {
		t.Error("Expected at least one cancelled result")
	}
}

func TestPool_ProgressCallback(t *testing.T) {
	proc := &mockProcessor{delay: 10 * time.Millisecond}

	var progressCalls atomic.Int32
	var lastCompleted, lastTotal int

	pool := New(Config{
		Workers:   2,
		Processor: proc,
		OnProgress: func(completed, total, failed int) {
			progressCalls.Add(1)
			lastCompleted = completed
			lastTotal = total
		},
	})

	pool.Run(context.Background(), makeTasks(3))

	if progressCalls.Load() != 3 {
		t.Errorf("Expected 3 progress callbacks, got %d", progressCalls.Load())
	}
	if lastCompleted != 3 || lastTotal != 3 {
		t.Errorf("Expected final progress 3/3, got %d/%d", lastCompleted, lastTotal)
	}
}

func TestPool_EmptyTasks(t *testing.T) {
	proc := &mockProcessor{}

	pool := New(Config{
		Workers:   2,
		Processor: proc,
	})

	if results := pool.Run(context.Background(), nil); len(results) != 0 {
		t.Errorf("Expected 0 results for empty tasks, got %d", len(results))
	}
	if proc.callCount.Load() != 0 {
		t.Errorf("Expected 0 processor calls for empty tasks, got %d", proc.callCount.Load())
	}
}

func TestProcessorFunc(t *testing.T) {
	pool := New(Config{
		Processor: ProcessorFunc(func(_ context.Context, task Task) (string, error) {
			return task.Output, nil
		}),
	})

	results := pool.Run(context.Background(), []Task{{Input: "a.png", Output: "b.png"}})
	if len(results) != 1 || results[0].Output != "b.png" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestWorkersFor(t *testing.T) {
	tests := []struct {
		name         string
		cpus         int
		totalMemory  uint64
		bytesPerTask uint64
		want         int
	}{
		{name: "cpu bound", cpus: 8, totalMemory: 16 << 30, bytesPerTask: 100 << 20, want: 8},
		{name: "memory bound", cpus: 8, totalMemory: 1 << 30, bytesPerTask: 200 << 20, want: 2},
		{name: "never below one", cpus: 8, totalMemory: 1 << 20, bytesPerTask: 1 << 30, want: 1},
		{name: "unknown memory", cpus: 4, totalMemory: 0, bytesPerTask: 1 << 30, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workersFor(tt.cpus, tt.totalMemory, tt.bytesPerTask); got != tt.want {
				t.Errorf("workersFor() = %d, want %d", got, tt.want)
			}
		})
	}

	if DefaultWorkers(1) < 1 {
		t.Error("DefaultWorkers must be at least 1")
	}
}
