package kernel

import (
	"rtoscore/kerr"
	"rtoscore/klist"
	"rtoscore/ktime"
)

// validTimeout reports whether ticks is an admissible timeout argument:
// either the Forever sentinel or strictly less than ktime.MaxTimeout, so
// wake-tick comparisons never land on the ambiguous wraparound boundary.
func validTimeout(ticks uint32) bool {
	return ticks == ktime.Forever || ktime.Tick(ticks) < ktime.MaxTimeout
}

// waitOn is the shared suspension-point body for semaphore Get, mutex
// Lock and queue Read/Write: it enqueues the current task onto waiters in
// priority order, removes it from the ready set, places it on the delay
// or timeout list as appropriate, asks the scheduler for a reschedule,
// and blocks until woken. The caller must hold the critical section on
// entry; waitOn releases it around the park and re-acquires it before
// returning.
//
// timeoutTicks == 0 must be rejected by the caller before reaching here;
// waitOn always blocks.
func (k *Kernel) waitOn(waiters *klist.Node, timeoutTicks uint32) kerr.Code {
	self := k.current
	t := &k.tasks[self]

	t.timeoutFlag = NoTimeout
	insertWaiterByPriority(waiters, t)
	k.removeFromCurrentList(t)

	if timeoutTicks == ktime.Forever {
		t.state = StateEndlessBlocked
	} else {
		t.wakeTick = ktime.Add(k.currentTime, timeoutTicks)
		t.state = StateTimeoutBlocked
		k.timeout.AddTail(&t.stateNode)
	}

	k.Schedule()
	k.hal.CPU().ExitCritical()
	k.hal.CPU().Park(self)
	k.hal.CPU().EnterCritical()

	if t.timeoutFlag == WaitTimeout {
		return kerr.ErrTimeout
	}
	return kerr.OK
}

// wakeWaiter moves a waiter popped off an IPC object's waiter list back to
// ready, first detaching it from the global timeout list if it was a
// timed wait. Must be called with the critical section held.
func (k *Kernel) wakeWaiter(t *tcb) {
	if t.state == StateTimeoutBlocked {
		t.stateNode.Delete()
	}
	k.readyInsert(t)
}

// wakeForDestroy wakes a waiter as part of destroying the IPC object it
// was waiting on. There is no dedicated "object destroyed" result code,
// so the woken task observes the same Timeout code a timed-out wait
// would: cancellation rides the existing timeout vector.
func (k *Kernel) wakeForDestroy(t *tcb) {
	t.timeoutFlag = WaitTimeout
	k.wakeWaiter(t)
}

// drainAllWaiters wakes every waiter on head via wakeForDestroy, used by
// each IPC object's Destroy.
func (k *Kernel) drainAllWaiters(head *klist.Node) {
	for {
		t := popHighestPriorityWaiter(head)
		if t == nil {
			return
		}
		k.wakeForDestroy(t)
	}
}

// finishWake completes a wake-side operation (release, unlock, queue
// transfer, destroy): it asks the scheduler to reconsider, releases the
// critical section, and, when the call came from task context and a
// different task was selected, parks the caller until it is switched back
// in — the waker must be preempted, not allowed to keep running alongside
// the task it just woke. Calls from system context (before the scheduler
// starts, or a harness driving the kernel from outside any task) pass
// NoTask and are never parked. Must be entered with the critical section
// held; it is released before parking.
func (k *Kernel) finishWake(caller TaskHandle) {
	k.Schedule()
	preempted := caller != NoTask && k.current != caller
	k.hal.CPU().ExitCritical()
	if preempted {
		k.hal.CPU().Park(caller)
	}
}
