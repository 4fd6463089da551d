package kernel

import (
	"rtoscore/kerr"
	"rtoscore/klist"
)

// QueueHandle addresses a bounded message queue by its stable index into
// the kernel's fixed-size queue pool.
type QueueHandle int

// NoQueue is the invalid/absent queue handle.
const NoQueue QueueHandle = -1

// queueObj is a bounded ring buffer with separate priority-sorted reader
// and writer waiter lists. The buffer itself is carved from the kernel's
// heap like any other dynamically sized kernel object.
//
// used tracks occupancy as an explicit count alongside readIdx/writeIdx,
// rather than deriving fullness from the two indices, which cannot
// distinguish empty from full when they coincide.
type queueObj struct {
	inUse       bool
	bufPtr      int
	elementSize int
	capacity    int
	readIdx     int
	writeIdx    int
	used        int
	readers     klist.Node
	writers     klist.Node
}

func (k *Kernel) findFreeQueue() QueueHandle {
	for i := range k.queues {
		if !k.queues[i].inUse {
			return QueueHandle(i)
		}
	}
	return NoQueue
}

func (k *Kernel) queueOrErr(h QueueHandle) (*queueObj, kerr.Code) {
	if h < 0 || int(h) >= len(k.queues) || !k.queues[h].inUse {
		return nil, kerr.ErrInvalidHandle
	}
	return &k.queues[h], kerr.OK
}

// CreateQueue allocates a capacity*elementSize byte buffer from the heap
// and initializes an empty bounded queue over it.
func (k *Kernel) CreateQueue(capacity, elementSize int) (QueueHandle, kerr.Code) {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	if capacity <= 0 || elementSize <= 0 {
		return NoQueue, kerr.ErrInvalidParam
	}
	h := k.findFreeQueue()
	if h == NoQueue {
		return NoQueue, kerr.ErrUnavailable
	}
	bufPtr, code := k.heap.Alloc(capacity * elementSize)
	if code != kerr.OK {
		return NoQueue, code
	}
	q := &k.queues[h]
	q.inUse = true
	q.bufPtr = bufPtr
	q.elementSize = elementSize
	q.capacity = capacity
	q.readIdx = 0
	q.writeIdx = 0
	q.used = 0
	return h, kerr.OK
}

// QueueWrite copies data (at most elementSize bytes) into the next write
// slot, blocking up to timeoutTicks while the queue is full. On success
// it wakes exactly one waiting reader, if any. System-context entry
// point; task code writes through TaskCtx so a higher-priority reader
// preempts the writer.
func (k *Kernel) QueueWrite(h QueueHandle, data []byte, timeoutTicks uint32) kerr.Code {
	return k.queueWrite(h, data, timeoutTicks, NoTask)
}

func (k *Kernel) queueWrite(h QueueHandle, data []byte, timeoutTicks uint32, caller TaskHandle) kerr.Code {
	k.hal.CPU().EnterCritical()

	q, code := k.queueOrErr(h)
	if code != kerr.OK {
		k.hal.CPU().ExitCritical()
		return code
	}
	if len(data) > q.elementSize {
		k.hal.CPU().ExitCritical()
		return kerr.ErrQueueSizeMismatch
	}
	// Wakeup does not reserve the slot: another writer may have run first,
	// so the full condition is re-checked after every wake.
	for q.used == q.capacity {
		if timeoutTicks == 0 {
			k.hal.CPU().ExitCritical()
			return kerr.ErrWouldBlock
		}
		if k.schedSuspendNesting > 0 {
			k.hal.CPU().ExitCritical()
			return kerr.ErrInvalidState
		}
		if !validTimeout(timeoutTicks) {
			k.hal.CPU().ExitCritical()
			return kerr.ErrInvalidParam
		}
		if code := k.waitOn(&q.writers, timeoutTicks); code != kerr.OK {
			k.hal.CPU().ExitCritical()
			return code
		}
	}

	off := q.bufPtr + q.writeIdx*q.elementSize
	k.heap.Write(off, data)
	q.writeIdx = (q.writeIdx + 1) % q.capacity
	q.used++

	if r := popHighestPriorityWaiter(&q.readers); r != nil {
		k.wakeWaiter(r)
		k.finishWake(caller)
		return kerr.OK
	}
	k.hal.CPU().ExitCritical()
	return kerr.OK
}

// QueueRead copies one element (at most len(buf) bytes) out of the next
// read slot, blocking up to timeoutTicks while the queue is empty. On
// success it wakes exactly one waiting writer, if any. System-context
// entry point; task code reads through TaskCtx so a higher-priority
// writer preempts the reader.
func (k *Kernel) QueueRead(h QueueHandle, buf []byte, timeoutTicks uint32) kerr.Code {
	return k.queueRead(h, buf, timeoutTicks, NoTask)
}

func (k *Kernel) queueRead(h QueueHandle, buf []byte, timeoutTicks uint32, caller TaskHandle) kerr.Code {
	k.hal.CPU().EnterCritical()

	q, code := k.queueOrErr(h)
	if code != kerr.OK {
		k.hal.CPU().ExitCritical()
		return code
	}
	if len(buf) > q.elementSize {
		k.hal.CPU().ExitCritical()
		return kerr.ErrQueueSizeMismatch
	}
	for q.used == 0 {
		if timeoutTicks == 0 {
			k.hal.CPU().ExitCritical()
			return kerr.ErrWouldBlock
		}
		if k.schedSuspendNesting > 0 {
			k.hal.CPU().ExitCritical()
			return kerr.ErrInvalidState
		}
		if !validTimeout(timeoutTicks) {
			k.hal.CPU().ExitCritical()
			return kerr.ErrInvalidParam
		}
		if code := k.waitOn(&q.readers, timeoutTicks); code != kerr.OK {
			k.hal.CPU().ExitCritical()
			return code
		}
	}

	off := q.bufPtr + q.readIdx*q.elementSize
	k.heap.Read(off, buf)
	q.readIdx = (q.readIdx + 1) % q.capacity
	q.used--

	if w := popHighestPriorityWaiter(&q.writers); w != nil {
		k.wakeWaiter(w)
		k.finishWake(caller)
		return kerr.OK
	}
	k.hal.CPU().ExitCritical()
	return kerr.OK
}

// DestroyQueue fails if either waiter list is non-empty or the queue
// still holds data; otherwise it frees the data buffer and returns the
// slot to the pool.
func (k *Kernel) DestroyQueue(h QueueHandle) kerr.Code {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	q, code := k.queueOrErr(h)
	if code != kerr.OK {
		return code
	}
	if !q.readers.Empty() || !q.writers.Empty() || q.used != 0 {
		return kerr.ErrInvalidState
	}
	k.heap.Free(q.bufPtr)
	q.inUse = false
	return kerr.OK
}
