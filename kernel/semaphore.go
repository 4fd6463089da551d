package kernel

import (
	"rtoscore/kerr"
	"rtoscore/klist"
)

// SemHandle addresses a semaphore by its stable index into the kernel's
// fixed-size semaphore pool.
type SemHandle int

// NoSem is the invalid/absent semaphore handle.
const NoSem SemHandle = -1

// semaphore is a counting semaphore with a priority-sorted waiter list.
type semaphore struct {
	inUse    bool
	count    uint32
	countMax uint32
	waiters  klist.Node
}

func (k *Kernel) findFreeSem() SemHandle {
	for i := range k.sems {
		if !k.sems[i].inUse {
			return SemHandle(i)
		}
	}
	return NoSem
}

func (k *Kernel) semOrErr(h SemHandle) (*semaphore, kerr.Code) {
	if h < 0 || int(h) >= len(k.sems) || !k.sems[h].inUse {
		return nil, kerr.ErrInvalidHandle
	}
	return &k.sems[h], kerr.OK
}

// CreateSemaphore picks a free pool slot and initializes its count to
// initial, rejecting initial counts above the configured maximum.
func (k *Kernel) CreateSemaphore(initial uint32) (SemHandle, kerr.Code) {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	if initial > k.cfg.SemaphoreCountMax {
		return NoSem, kerr.ErrInvalidParam
	}
	h := k.findFreeSem()
	if h == NoSem {
		return NoSem, kerr.ErrUnavailable
	}
	s := &k.sems[h]
	s.inUse = true
	s.count = initial
	s.countMax = k.cfg.SemaphoreCountMax
	return h, kerr.OK
}

// SemGet decrements sem's count if positive; otherwise, with a non-zero
// timeout, blocks the calling task until release()/destroy() wakes it or
// the timeout (or the Forever sentinel) elapses.
func (k *Kernel) SemGet(h SemHandle, timeoutTicks uint32) kerr.Code {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	s, code := k.semOrErr(h)
	if code != kerr.OK {
		return code
	}
	if k.schedSuspendNesting > 0 {
		return kerr.ErrInvalidState
	}
	if s.count > 0 {
		s.count--
		return kerr.OK
	}
	if timeoutTicks == 0 {
		return kerr.ErrWouldBlock
	}
	if !validTimeout(timeoutTicks) {
		return kerr.ErrInvalidParam
	}
	return k.waitOn(&s.waiters, timeoutTicks)
}

// SemRelease wakes the highest-priority waiter if one is queued (without
// incrementing count — the semaphore's count is handed directly to the
// waiter); otherwise increments count, failing if already at the
// configured maximum. System-context entry point; task code releases
// through TaskCtx so a higher-priority waiter preempts the releaser.
func (k *Kernel) SemRelease(h SemHandle) kerr.Code {
	return k.semRelease(h, NoTask)
}

func (k *Kernel) semRelease(h SemHandle, caller TaskHandle) kerr.Code {
	k.hal.CPU().EnterCritical()

	s, code := k.semOrErr(h)
	if code != kerr.OK {
		k.hal.CPU().ExitCritical()
		return code
	}
	if w := popHighestPriorityWaiter(&s.waiters); w != nil {
		k.wakeWaiter(w)
		k.finishWake(caller)
		return kerr.OK
	}
	if s.count >= s.countMax {
		k.hal.CPU().ExitCritical()
		return kerr.ErrSyncInvalid
	}
	s.count++
	k.hal.CPU().ExitCritical()
	return kerr.OK
}

// DestroySemaphore wakes every waiter (each observes a Timeout result;
// timeout is the only cancellation vector a waiter can see) and returns
// the slot to the pool.
func (k *Kernel) DestroySemaphore(h SemHandle) kerr.Code {
	return k.destroySemaphore(h, NoTask)
}

func (k *Kernel) destroySemaphore(h SemHandle, caller TaskHandle) kerr.Code {
	k.hal.CPU().EnterCritical()

	s, code := k.semOrErr(h)
	if code != kerr.OK {
		k.hal.CPU().ExitCritical()
		return code
	}
	k.drainAllWaiters(&s.waiters)
	s.inUse = false
	s.count = 0
	k.finishWake(caller)
	return kerr.OK
}
