package kernel

import (
	"rtoscore/kerr"
	"rtoscore/klist"
)

// MutexHandle addresses a recursive mutex by its stable index into the
// kernel's fixed-size mutex pool.
type MutexHandle int

// NoMutex is the invalid/absent mutex handle.
const NoMutex MutexHandle = -1

// mutexSlot is the type of a task's holding-list head, named to match
// the TCB field's own doc comment rather than exposing mutexObj there
// directly.
type mutexSlot = mutexObj

// mutexObj is a recursive mutex with chained priority inheritance.
// nextHeld links it into the owning task's singly-linked "mutexes I
// hold" list (tcb.holdingMutex).
type mutexObj struct {
	inUse                  bool
	owner                  TaskHandle
	holdCount              int
	ownerPriorityAtAcquire int
	waiters                klist.Node
	nextHeld               *mutexObj
}

func (k *Kernel) findFreeMutex() MutexHandle {
	for i := range k.mutexes {
		if !k.mutexes[i].inUse {
			return MutexHandle(i)
		}
	}
	return NoMutex
}

func (k *Kernel) mutexOrErr(h MutexHandle) (*mutexObj, kerr.Code) {
	if h < 0 || int(h) >= len(k.mutexes) || !k.mutexes[h].inUse {
		return nil, kerr.ErrInvalidHandle
	}
	return &k.mutexes[h], kerr.OK
}

// CreateMutex picks a free pool slot for a new, unowned recursive mutex.
func (k *Kernel) CreateMutex() (MutexHandle, kerr.Code) {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	h := k.findFreeMutex()
	if h == NoMutex {
		return NoMutex, kerr.ErrUnavailable
	}
	m := &k.mutexes[h]
	m.inUse = true
	m.owner = NoTask
	m.holdCount = 0
	m.nextHeld = nil
	return h, kerr.OK
}

// pushHeld pushes m onto the front of owner's singly-linked holding list
// and records owner's current priority as the value to restore to on
// release.
func pushHeld(owner *tcb, m *mutexObj) {
	m.owner = owner.handle
	m.holdCount = 1
	m.ownerPriorityAtAcquire = owner.priority
	m.nextHeld = owner.holdingMutex
	owner.holdingMutex = m
}

// removeHeld unlinks m from owner's singly-linked holding list, which it
// may not be at the head of.
func removeHeld(owner *tcb, m *mutexObj) {
	if owner.holdingMutex == m {
		owner.holdingMutex = m.nextHeld
		m.nextHeld = nil
		return
	}
	for cur := owner.holdingMutex; cur != nil; cur = cur.nextHeld {
		if cur.nextHeld == m {
			cur.nextHeld = m.nextHeld
			m.nextHeld = nil
			return
		}
	}
}

// setPriority changes t's effective priority, relinking it into the
// correct ready-list bucket first if it is currently ready. Must be
// called with the critical section held.
func (k *Kernel) setPriority(t *tcb, priority int) {
	if t.priority == priority {
		return
	}
	wasReady := t.state == StateReady
	oldPriority := t.priority
	if wasReady {
		t.stateNode.Delete()
		k.markNotReadyIfEmpty(oldPriority)
	}
	t.priority = priority
	if wasReady {
		k.readyInsert(t)
	}
}

// propagateInheritance walks owner -> mutex -> owner chains starting at m,
// raising each owner's priority to at most p, bounded by the configured
// chain depth. A holder whose priority is already numerically at or
// below p needs no boost and stops the walk.
func (k *Kernel) propagateInheritance(m *mutexObj, p int) {
	cur := m
	for depth := 0; cur != nil && depth < k.cfg.MutexMaxChainDepth; depth++ {
		owner := &k.tasks[cur.owner]
		if owner.priority <= p {
			return
		}
		k.setPriority(owner, p)
		cur.ownerPriorityAtAcquire = p
		cur = owner.blockedOn
	}
}

// MutexLock acquires m. If m is unowned the caller becomes owner; if the
// caller already owns it, the hold count increments (recursive); if owned
// by another task, the caller blocks up to timeoutTicks, boosting the
// owner chain's priority via propagateInheritance.
func (k *Kernel) MutexLock(h MutexHandle, timeoutTicks uint32) kerr.Code {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	m, code := k.mutexOrErr(h)
	if code != kerr.OK {
		return code
	}
	if k.schedSuspendNesting > 0 {
		return kerr.ErrInvalidState
	}
	self := k.current
	t := &k.tasks[self]

	if m.owner == NoTask {
		pushHeld(t, m)
		return kerr.OK
	}
	if m.owner == self {
		m.holdCount++
		return kerr.OK
	}
	if timeoutTicks == 0 {
		return kerr.ErrWouldBlock
	}
	if !validTimeout(timeoutTicks) {
		return kerr.ErrInvalidParam
	}

	t.blockedOn = m
	k.propagateInheritance(m, t.priority)
	code = k.waitOn(&m.waiters, timeoutTicks)
	t.blockedOn = nil
	return code
}

// MutexUnlock fails with ErrNotOwner if the caller does not hold m.
// Otherwise it decrements the hold count; on reaching zero it restores
// the owner's priority and hands ownership to the highest-priority
// waiter, if any. System-context entry point; task code unlocks through
// TaskCtx so a higher-priority waiter preempts the releaser.
func (k *Kernel) MutexUnlock(h MutexHandle) kerr.Code {
	return k.mutexUnlock(h, NoTask)
}

func (k *Kernel) mutexUnlock(h MutexHandle, caller TaskHandle) kerr.Code {
	k.hal.CPU().EnterCritical()

	m, code := k.mutexOrErr(h)
	if code != kerr.OK {
		k.hal.CPU().ExitCritical()
		return code
	}
	if k.schedSuspendNesting > 0 {
		k.hal.CPU().ExitCritical()
		return kerr.ErrInvalidState
	}
	self := k.current
	t := &k.tasks[self]
	if m.owner != self || m.holdCount == 0 {
		k.hal.CPU().ExitCritical()
		return kerr.ErrNotOwner
	}

	m.holdCount--
	if m.holdCount > 0 {
		k.hal.CPU().ExitCritical()
		return kerr.OK
	}

	removeHeld(t, m)
	// Restores to basePriority rather than recomputing from any other
	// still-held boosting mutex. Only strictly correct when this task
	// holds no other inheritance-boosting mutex at the time of release.
	if t.basePriority != m.ownerPriorityAtAcquire {
		k.setPriority(t, t.basePriority)
	}
	m.owner = NoTask
	m.holdCount = 0

	if w := popHighestPriorityWaiter(&m.waiters); w != nil {
		pushHeld(w, m)
		k.wakeWaiter(w)
		k.finishWake(caller)
		return kerr.OK
	}
	k.hal.CPU().ExitCritical()
	return kerr.OK
}

// DestroyMutex fails if the mutex is currently held or has waiters;
// otherwise returns the slot to the pool, symmetric with the semaphore
// and queue pools' Destroy operations.
func (k *Kernel) DestroyMutex(h MutexHandle) kerr.Code {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	m, code := k.mutexOrErr(h)
	if code != kerr.OK {
		return code
	}
	if m.owner != NoTask || !m.waiters.Empty() {
		return kerr.ErrInvalidState
	}
	m.inUse = false
	return kerr.OK
}
