package kernel

import (
	"rtoscore/kerr"
	"rtoscore/ktime"
)

// TaskCtx is the handle a task's entry function receives, bundling the
// owning kernel and the task's own handle so task code never has to carry
// either separately. It is a thin forwarding layer: every method here
// just calls the equivalent Kernel method against this task's identity.
type TaskCtx struct {
	k *Kernel
	h TaskHandle
}

// Kernel returns the owning kernel, for task code that wants to create
// IPC objects or read a Snapshot.
func (c *TaskCtx) Kernel() *Kernel { return c.k }

// Handle returns this task's own TaskHandle.
func (c *TaskCtx) Handle() TaskHandle { return c.h }

// Yield voluntarily gives up the remainder of this task's round-robin
// slice to another ready task of the same priority, if one exists.
func (c *TaskCtx) Yield() { c.k.Yield() }

// Delay suspends this task for ticks kernel ticks.
func (c *TaskCtx) Delay(ticks uint32) kerr.Code { return c.k.Delay(ticks) }

// SemGet waits up to timeoutTicks for sem's count to become available.
func (c *TaskCtx) SemGet(h SemHandle, timeoutTicks uint32) kerr.Code {
	return c.k.SemGet(h, timeoutTicks)
}

// SemRelease releases sem, see Kernel.SemRelease. If the release wakes a
// task that outranks this one, this task is preempted before returning.
func (c *TaskCtx) SemRelease(h SemHandle) kerr.Code { return c.k.semRelease(h, c.h) }

// MutexLock acquires m, recursively if already held by this task, waiting
// up to timeoutTicks and propagating priority inheritance.
func (c *TaskCtx) MutexLock(h MutexHandle, timeoutTicks uint32) kerr.Code {
	return c.k.MutexLock(h, timeoutTicks)
}

// MutexUnlock releases one level of recursive ownership of m. Handing the
// mutex to a higher-priority waiter preempts this task before returning.
func (c *TaskCtx) MutexUnlock(h MutexHandle) kerr.Code { return c.k.mutexUnlock(h, c.h) }

// QueueWrite writes data to q, waiting up to timeoutTicks while full.
func (c *TaskCtx) QueueWrite(h QueueHandle, data []byte, timeoutTicks uint32) kerr.Code {
	return c.k.queueWrite(h, data, timeoutTicks, c.h)
}

// QueueRead reads one element from q into buf, waiting up to
// timeoutTicks while empty.
func (c *TaskCtx) QueueRead(h QueueHandle, buf []byte, timeoutTicks uint32) kerr.Code {
	return c.k.queueRead(h, buf, timeoutTicks, c.h)
}

// Yield is the kernel-level implementation behind TaskCtx.Yield: it asks
// the scheduler to consider rotating the current task out, then parks
// this task's goroutine if a different task was actually selected.
func (k *Kernel) Yield() {
	k.hal.CPU().EnterCritical()
	self := k.current
	k.Schedule()
	switched := k.current != self
	k.hal.CPU().ExitCritical()
	if switched {
		k.hal.CPU().Park(self)
	}
}

// Delay suspends the current task for ticks kernel ticks by moving it
// onto the delay list. A zero delay is a no-op.
func (k *Kernel) Delay(ticks uint32) kerr.Code {
	if ticks == 0 {
		return kerr.OK
	}
	if ktime.Tick(ticks) >= ktime.MaxTimeout {
		return kerr.ErrInvalidParam
	}
	k.hal.CPU().EnterCritical()
	if k.schedSuspendNesting > 0 {
		k.hal.CPU().ExitCritical()
		return kerr.ErrInvalidState
	}
	self := k.current
	t := &k.tasks[self]
	k.removeFromCurrentList(t)
	t.wakeTick = ktime.Add(k.currentTime, ticks)
	t.state = StateDelay
	k.delay.AddTail(&t.stateNode)
	k.Schedule()
	k.hal.CPU().ExitCritical()
	k.hal.CPU().Park(self)
	k.hal.CPU().EnterCritical()
	k.hal.CPU().ExitCritical()
	return kerr.OK
}
