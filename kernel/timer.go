package kernel

import (
	"rtoscore/kerr"
	"rtoscore/klist"
	"rtoscore/ktime"
)

// TimerHandle addresses a software timer by its stable index into the
// kernel's fixed-size timer pool.
type TimerHandle int

// NoTimer is the invalid/absent timer handle.
const NoTimer TimerHandle = -1

// TimerMode selects one-shot versus auto-reload behavior.
type TimerMode int

const (
	OneShot TimerMode = iota
	AutoReload
)

// TimerStatus is a timer's Stop/Running state.
type TimerStatus int

const (
	TimerStop TimerStatus = iota
	TimerRunning
)

// TimerHandler is a timer's expiry callback. It runs in task context,
// outside any kernel critical section, so a slow handler cannot stall
// scheduling.
type TimerHandler func(param any)

// timerObj is one software timer; the kernel's timer manager keeps all
// Running timers linked into k.pending, sorted ascending by nextExpiry.
type timerObj struct {
	node       klist.Node
	inUse      bool
	status     TimerStatus
	mode       TimerMode
	interval   uint32
	handler    TimerHandler
	param      any
	nextExpiry ktime.Tick
}

func (k *Kernel) findFreeTimer() TimerHandle {
	for i := range k.timers {
		if !k.timers[i].inUse {
			return TimerHandle(i)
		}
	}
	return NoTimer
}

func (k *Kernel) timerOrErr(h TimerHandle) (*timerObj, kerr.Code) {
	if h < 0 || int(h) >= len(k.timers) || !k.timers[h].inUse {
		return nil, kerr.ErrInvalidHandle
	}
	return &k.timers[h], kerr.OK
}

// insertTimerSorted splices t into k.pending keeping ascending nextExpiry
// order, using wrap-safe signed comparison exactly like the tick
// comparisons in ktime.Reached.
func (k *Kernel) insertTimerSorted(t *timerObj) {
	cur := k.pending.RawNext()
	for cur != &k.pending {
		owner, _ := cur.Owner().(*timerObj)
		if int32(owner.nextExpiry-t.nextExpiry) > 0 {
			cur.AddBefore(&t.node)
			return
		}
		cur = cur.RawNext()
	}
	k.pending.AddTail(&t.node)
}

// CreateTimer allocates a timer in the Stop state from the fixed-size
// timer pool. It must be started explicitly with StartTimer.
func (k *Kernel) CreateTimer(interval uint32, mode TimerMode, handler TimerHandler, param any) (TimerHandle, kerr.Code) {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	if interval == 0 || handler == nil {
		return NoTimer, kerr.ErrInvalidParam
	}
	h := k.findFreeTimer()
	if h == NoTimer {
		return NoTimer, kerr.ErrUnavailable
	}
	t := &k.timers[h]
	t.inUse = true
	t.status = TimerStop
	t.mode = mode
	t.interval = interval
	t.handler = handler
	t.param = param
	return h, kerr.OK
}

// StartTimer (re)starts t: if already Running it is first removed from
// the pending list, then reinserted with a fresh expiry interval ticks
// from now.
func (k *Kernel) StartTimer(h TimerHandle) kerr.Code {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	t, code := k.timerOrErr(h)
	if code != kerr.OK {
		return code
	}
	if t.status == TimerRunning {
		t.node.Delete()
	}
	t.nextExpiry = ktime.Add(k.currentTime, t.interval)
	t.status = TimerRunning
	k.insertTimerSorted(t)
	return kerr.OK
}

// StopTimer removes t from the pending list if Running; a no-op if
// already Stop.
func (k *Kernel) StopTimer(h TimerHandle) kerr.Code {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	t, code := k.timerOrErr(h)
	if code != kerr.OK {
		return code
	}
	if t.status == TimerRunning {
		t.node.Delete()
		t.status = TimerStop
	}
	return kerr.OK
}

// ResetTimer changes t's interval, preserving Running state: a Running
// timer is rescheduled newInterval ticks from now; a Stop timer just
// records the new interval for its next StartTimer.
func (k *Kernel) ResetTimer(h TimerHandle, newInterval uint32) kerr.Code {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	t, code := k.timerOrErr(h)
	if code != kerr.OK {
		return code
	}
	if newInterval == 0 {
		return kerr.ErrInvalidParam
	}
	t.interval = newInterval
	if t.status == TimerRunning {
		t.node.Delete()
		t.nextExpiry = ktime.Add(k.currentTime, newInterval)
		k.insertTimerSorted(t)
	}
	return kerr.OK
}

// DeleteTimer stops t (if Running) and returns its slot to the pool.
func (k *Kernel) DeleteTimer(h TimerHandle) kerr.Code {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	t, code := k.timerOrErr(h)
	if code != kerr.OK {
		return code
	}
	if t.status == TimerRunning {
		t.node.Delete()
	}
	t.inUse = false
	t.status = TimerStop
	t.handler = nil
	t.param = nil
	return kerr.OK
}

// serviceTimers is called once per tick, outside the scheduler's critical
// section (see Tick in scheduler.go). It drains every timer whose
// nextExpiry has been reached into a local slice under a critical
// section, runs their handlers with no kernel lock held, then — under a
// fresh critical section per handler — reinserts AutoReload timers or
// marks OneShot timers Stop. A slow handler only delays other handlers,
// never the scheduler or tick ISR.
func (k *Kernel) serviceTimers() {
	var expired []*timerObj

	k.hal.CPU().EnterCritical()
	now := k.currentTime
	for {
		n := k.pending.Front()
		if n == nil {
			break
		}
		owner, _ := n.Owner().(*timerObj)
		if !ktime.Reached(now, owner.nextExpiry) {
			break
		}
		n.Delete()
		expired = append(expired, owner)
	}
	k.hal.CPU().ExitCritical()

	for _, t := range expired {
		if t.handler != nil {
			t.handler(t.param)
		}
		k.hal.CPU().EnterCritical()
		if t.inUse {
			if t.mode == AutoReload {
				t.nextExpiry = ktime.Add(k.currentTime, t.interval)
				t.status = TimerRunning
				k.insertTimerSorted(t)
			} else {
				t.status = TimerStop
			}
		}
		k.hal.CPU().ExitCritical()
	}
}
