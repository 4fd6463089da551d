package kernel

import (
	"io"
	"testing"
	"time"

	"rtoscore/hal"
	"rtoscore/kconfig"
)

// smallConfig returns a Config with tiny pools, fast enough for tests and
// still exercising every pool-exhaustion path if a test wants to.
func smallConfig() kconfig.Config {
	cfg := kconfig.Default()
	cfg.Priorities = 8
	cfg.MaxTasks = 8
	cfg.SemaphorePoolSize = 4
	cfg.MutexPoolSize = 4
	cfg.QueuePoolSize = 4
	cfg.TimerPoolSize = 4
	cfg.HeapSize = 16 * 1024
	cfg.IdleStackSize = 512
	return cfg
}

// newTestKernel builds a Kernel over the hosted HAL with a discarding
// logger, for tests that don't care about log output.
func newTestKernel(t *testing.T) (*Kernel, *hal.Host) {
	t.Helper()
	h := hal.NewHost(io.Discard, 1000)
	t.Cleanup(h.Stop)
	k, err := New(smallConfig(), h)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k, h
}

// findTask returns the TaskStats for the task named name in a snapshot,
// or nil.
func findTask(snap Snapshot, name string) *TaskStats {
	for i := range snap.Tasks {
		if snap.Tasks[i].Name == name {
			return &snap.Tasks[i]
		}
	}
	return nil
}

// waitForTaskState polls k.Snapshot() until the named task reports want,
// or fails the test after timeout. Used to synchronize with a task
// goroutine's asynchronous progress to a known suspension point.
func waitForTaskState(t *testing.T, k *Kernel, name string, want TaskState, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ts := findTask(k.Snapshot(), name); ts != nil && ts.State == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %q did not reach state %v within %v", name, want, timeout)
}
