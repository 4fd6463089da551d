package kernel

import (
	"testing"

	"rtoscore/kerr"
)

// parkEntry blocks its goroutine outside the kernel forever, so a task
// switched in by a test never mutates kernel state on its own.
func parkEntry(c *TaskCtx) { select {} }

func (k *Kernel) currentForTest() TaskHandle {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()
	return k.current
}

func TestTickPreemptsImmediatelyOnHigherPriorityWake(t *testing.T) {
	k, _ := newTestKernel(t)

	low, code := k.CreateTask(TaskParams{Name: "low", Priority: 5, StackSize: 256, Entry: parkEntry})
	if code != kerr.OK {
		t.Fatalf("CreateTask(low) = %v", code)
	}
	k.hal.CPU().EnterCritical()
	k.current = low
	k.rrRemaining = k.cfg.RoundRobinSlice
	k.hal.CPU().ExitCritical()

	high, code := k.CreateTask(TaskParams{Name: "high", Priority: 2, StackSize: 256, Entry: parkEntry})
	if code != kerr.OK {
		t.Fatalf("CreateTask(high) = %v", code)
	}

	k.Tick()

	if got := k.currentForTest(); got != high {
		t.Fatalf("after tick with a higher-priority ready task, current = %v, want %v: preemption must not wait for the slice", got, high)
	}
}

func TestTickRotatesEqualPriorityOnlyOnSliceExpiry(t *testing.T) {
	k, _ := newTestKernel(t)

	a, _ := k.CreateTask(TaskParams{Name: "a", Priority: 4, StackSize: 256, Entry: parkEntry})
	b, _ := k.CreateTask(TaskParams{Name: "b", Priority: 4, StackSize: 256, Entry: parkEntry})

	k.hal.CPU().EnterCritical()
	k.current = a
	k.rrRemaining = 2
	k.hal.CPU().ExitCritical()

	k.Tick()
	if got := k.currentForTest(); got != a {
		t.Fatalf("slice not yet expired, current = %v, want %v", got, a)
	}

	k.Tick()
	if got := k.currentForTest(); got != b {
		t.Fatalf("slice expired, current = %v, want rotation to %v", got, b)
	}
	k.hal.CPU().EnterCritical()
	reloaded := k.rrRemaining == k.cfg.RoundRobinSlice
	k.hal.CPU().ExitCritical()
	if !reloaded {
		t.Fatalf("slice counter must reload on rotation")
	}
}

func TestTickReloadsSliceWhenAloneAtPriority(t *testing.T) {
	k, _ := newTestKernel(t)

	solo, _ := k.CreateTask(TaskParams{Name: "solo", Priority: 3, StackSize: 256, Entry: parkEntry})

	k.hal.CPU().EnterCritical()
	k.current = solo
	k.rrRemaining = 1
	k.hal.CPU().ExitCritical()

	k.Tick()

	k.hal.CPU().EnterCritical()
	rr := k.rrRemaining
	cur := k.current
	k.hal.CPU().ExitCritical()
	if cur != solo {
		t.Fatalf("a task alone at its priority must keep running, current = %v", cur)
	}
	if rr != k.cfg.RoundRobinSlice {
		t.Fatalf("slice counter = %d, want reload to %d while alone at priority", rr, k.cfg.RoundRobinSlice)
	}
}

func TestBlockingAPIsRejectedWhileSchedulerSuspended(t *testing.T) {
	k, _ := newTestKernel(t)

	s, _ := k.CreateSemaphore(1)
	m, _ := k.CreateMutex()
	q, _ := k.CreateQueue(1, 4)

	// Fill the queue so a further write would have to block.
	if code := k.QueueWrite(q, []byte{1, 2, 3, 4}, 0); code != kerr.OK {
		t.Fatalf("QueueWrite to empty queue = %v", code)
	}

	k.Suspend()
	defer k.Resume()

	if code := k.Delay(5); code != kerr.ErrInvalidState {
		t.Fatalf("Delay while suspended = %v, want ErrInvalidState", code)
	}
	if code := k.SemGet(s, 0); code != kerr.ErrInvalidState {
		t.Fatalf("SemGet while suspended = %v, want ErrInvalidState", code)
	}
	if code := k.MutexLock(m, 0); code != kerr.ErrInvalidState {
		t.Fatalf("MutexLock while suspended = %v, want ErrInvalidState", code)
	}
	if code := k.MutexUnlock(m); code != kerr.ErrInvalidState {
		t.Fatalf("MutexUnlock while suspended = %v, want ErrInvalidState", code)
	}
	if code := k.QueueWrite(q, []byte{5, 6, 7, 8}, 10); code != kerr.ErrInvalidState {
		t.Fatalf("QueueWrite to full queue while suspended = %v, want ErrInvalidState", code)
	}
	if code := k.QueueRead(q, make([]byte, 4), 0); code != kerr.OK {
		t.Fatalf("QueueRead of available data while suspended = %v, want OK", code)
	}
}

func TestTickIsInertWhileSchedulerSuspended(t *testing.T) {
	k, _ := newTestKernel(t)

	k.Suspend()
	before := k.Snapshot().Scheduler.CurrentTime
	k.Tick()
	after := k.Snapshot().Scheduler.CurrentTime
	k.Resume()

	if before != after {
		t.Fatalf("tick advanced time from %d to %d while the scheduler was suspended", before, after)
	}
}
