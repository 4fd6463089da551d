package kernel

import (
	"rtoscore/klist"
	"rtoscore/ktime"
)

// bitForPriority returns the bitmap bit index for priority i, with
// priority 0 mapped to the bitmap's most significant bit: CLZ of the
// bitmap then directly yields the numerically smallest (highest-urgency)
// ready priority in O(1).
func bitForPriority(i int) uint64 { return 1 << (63 - uint(i)) }

func (k *Kernel) markReady(priority int) { k.bitmap |= bitForPriority(priority) }

func (k *Kernel) markNotReadyIfEmpty(priority int) {
	if k.ready[priority].Empty() {
		k.bitmap &^= bitForPriority(priority)
	}
}

// readyInsert puts t at the tail of its priority's ready list and marks
// the bitmap bit.
func (k *Kernel) readyInsert(t *tcb) {
	t.state = StateReady
	k.ready[t.priority].AddTail(&t.stateNode)
	k.markReady(t.priority)
}

// highestPriorityReady returns the ready task at the front of the
// highest-priority (numerically smallest) non-empty ready list, or NoTask
// if none are ready.
func (k *Kernel) highestPriorityReady() TaskHandle {
	if k.bitmap == 0 {
		return NoTask
	}
	p := int(k.hal.CPU().CLZ(k.bitmap))
	n := k.ready[p].Front()
	if n == nil {
		return NoTask
	}
	owner, _ := n.Owner().(*tcb)
	return owner.handle
}

// removeFromCurrentList detaches t from whichever of ready/delay/
// suspend/timeout list it is currently on, clearing the matching bitmap
// bit if its ready list becomes empty.
func (k *Kernel) removeFromCurrentList(t *tcb) {
	wasReady := t.state == StateReady
	priority := t.priority
	t.stateNode.Delete()
	if wasReady {
		k.markNotReadyIfEmpty(priority)
	}
}

// Schedule is the single entry point for requesting a switch from task
// code or IPC operations. Callers must hold the critical section.
func (k *Kernel) Schedule() {
	if k.schedSuspendNesting > 0 {
		k.reschedulePending = true
		return
	}

	next := k.highestPriorityReady()
	if next == NoTask || k.current == NoTask {
		return
	}

	cur := &k.tasks[k.current]

	// A caller that is about to block (delay, timed IPC wait) removes
	// itself from the ready list and changes its state before calling
	// Schedule; once that has happened cur is no longer a rotation
	// candidate at all and the equal-priority comparison below (which
	// assumes cur is still linked into its ready list) would wrongly
	// splice it back in. Such a caller always switches.
	if cur.state != StateReady {
		if next != k.current {
			k.requestSwitch(next)
		}
		return
	}

	nextT := &k.tasks[next]

	if nextT.priority != cur.priority {
		if next != k.current {
			k.requestSwitch(next)
		}
		return
	}

	// Equal priority: rotate only if current is not the sole task on its
	// ready list.
	rq := &k.ready[cur.priority]
	if cur.stateNode.RawNext() == rq {
		return
	}
	rq.MoveToTail(&cur.stateNode)
	newFront := rq.Front()
	newOwner, _ := newFront.Owner().(*tcb)
	k.requestSwitch(newOwner.handle)
}

// requestSwitch updates runtime stats for the outgoing task, asserts the
// HAL's deferred-switch pin naming next as switch_next, and records next
// as current. Schedule itself never blocks; the caller is responsible for
// parking via hal.CPU().Park once it has released the critical section,
// matching the fact that on real hardware the exception return (not the
// scheduling decision) is what actually performs the switch.
func (k *Kernel) requestSwitch(next TaskHandle) {
	now := k.currentTime
	if k.current != NoTask {
		cur := &k.tasks[k.current]
		cur.runTicks += uint64(now - cur.lastSwitchIn)
		if k.checkStackOverflow(cur) {
			k.hooks.callStackOverflow(cur.handle)
		}
	}
	nextT := &k.tasks[next]
	nextT.lastSwitchIn = now
	k.hooks.callTaskSwitch(k.current, next)

	k.current = next
	k.hal.CPU().SetSwitchNext(next)
	k.hal.CPU().TriggerContextSwitch()
}

// Suspend increments the scheduler-suspension nesting counter. No context
// switch occurs while suspended.
func (k *Kernel) Suspend() {
	k.hal.CPU().EnterCritical()
	k.schedSuspendNesting++
	k.hal.CPU().ExitCritical()
}

// Resume decrements the nesting counter and, if it reaches zero and a
// reschedule was requested while suspended, calls Schedule.
func (k *Kernel) Resume() {
	k.hal.CPU().EnterCritical()
	k.schedSuspendNesting--
	pending := k.schedSuspendNesting == 0 && k.reschedulePending
	if pending {
		k.reschedulePending = false
		k.Schedule()
	}
	k.hal.CPU().ExitCritical()
}

// Tick is invoked from the periodic tick ISR. It advances the time
// counter, wakes delayed and timed-out tasks, and rotates equal-priority
// ready tasks on round-robin slice expiry, all under the critical
// section; then, outside the critical section, it services the software
// timer queue and calls the tick hook.
func (k *Kernel) Tick() {
	k.hal.CPU().EnterCritical()
	if k.schedSuspendNesting == 0 {
		k.currentTime++
		k.totalRunTime++
		now := k.currentTime

		k.wakeReachedFrom(&k.delay, now, false)
		k.wakeReachedFrom(&k.timeout, now, true)

		k.tickSchedule()
	}
	k.hal.CPU().ExitCritical()

	k.serviceTimers()
	k.hooks.callTick()
}

// tickSchedule makes the per-tick scheduling decision after wakeups: a
// strictly higher-priority ready task preempts immediately; an
// equal-priority peer rotates in only once the round-robin slice counter
// reaches zero; a task alone at its priority just reloads the slice. The
// caller holds the critical section.
func (k *Kernel) tickSchedule() {
	next := k.highestPriorityReady()
	if next == NoTask || k.current == NoTask {
		return
	}
	cur := &k.tasks[k.current]
	nextT := &k.tasks[next]

	if nextT.priority < cur.priority || cur.state != StateReady {
		k.Schedule()
		return
	}
	if nextT.priority > cur.priority {
		return
	}

	rq := &k.ready[cur.priority]
	if rq.Front() == &cur.stateNode && cur.stateNode.RawNext() == rq {
		k.rrRemaining = k.cfg.RoundRobinSlice
		return
	}
	if k.rrRemaining > 0 {
		k.rrRemaining--
	}
	if k.rrRemaining == 0 {
		k.rrRemaining = k.cfg.RoundRobinSlice
		k.Schedule()
	}
}

// wakeReachedFrom scans list (delay or timeout-blocked) for tasks whose
// wake tick has been reached and moves them to ready. fromTimeoutList
// additionally unlinks the task from its event waiter list and marks the
// timeout flag. Must be called with the critical section held.
func (k *Kernel) wakeReachedFrom(list *klist.Node, now ktime.Tick, fromTimeoutList bool) {
	n := list.Front()
	for n != nil {
		next := n.RawNext()
		owner, _ := n.Owner().(*tcb)
		if ktime.Reached(now, owner.wakeTick) {
			n.Delete()
			if fromTimeoutList {
				owner.eventNode.Delete()
				owner.timeoutFlag = WaitTimeout
			}
			k.readyInsert(owner)
		}
		if next == list {
			break
		}
		n = next
	}
}
