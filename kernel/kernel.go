// Package kernel implements the scheduler, allocator-backed task model,
// and IPC primitives of the RTOS core: the priority-preemptive,
// round-robin-within-priority scheduler; counting semaphores; recursive
// mutexes with chained priority inheritance; bounded message queues; and
// a software timer service whose callbacks run outside critical
// sections.
package kernel

import (
	"fmt"

	"rtoscore/hal"
	"rtoscore/heap"
	"rtoscore/kconfig"
	"rtoscore/kerr"
	"rtoscore/klist"
	"rtoscore/klog"
	"rtoscore/ktime"
)

// Kernel is the process-wide singleton localized behind an explicit
// object: every subsystem hangs off one *Kernel value, and the only
// synchronization boundary is the critical section the HAL's CPU
// implements.
type Kernel struct {
	cfg kconfig.Config
	hal hal.HAL
	log *klog.Logger

	heap *heap.Heap

	tasks    []tcb
	taskFree []TaskHandle // free-list of unused pool slots
	maxTasks int

	ready   []klist.Node // one per priority level
	bitmap  uint64
	delay   klist.Node
	suspend klist.Node
	timeout klist.Node

	current             TaskHandle
	idle                TaskHandle
	schedSuspendNesting int
	reschedulePending   bool
	rrRemaining         uint32

	currentTime  ktime.Tick
	totalRunTime uint64

	sems    []semaphore
	mutexes []mutexObj
	queues  []queueObj
	timers  []timerObj
	pending klist.Node // timers sorted ascending by expiry

	hooks hookSet

	started bool
}

// New validates cfg, wires h as the platform, and brings up every
// subsystem in the order heap, scheduler, mutex pool, queue pool,
// semaphore pool, timer manager.
func New(cfg kconfig.Config, h hal.HAL) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Priorities > 64 {
		return nil, fmt.Errorf("kernel: Priorities > 64 not supported by the 64-bit bitmap scheduler")
	}

	k := &Kernel{
		cfg:      cfg,
		hal:      h,
		log:      klog.New(h.Logger(), klog.Info),
		heap:     heap.New(cfg.HeapSize, cfg.Alignment),
		tasks:    make([]tcb, cfg.MaxTasks),
		maxTasks: cfg.MaxTasks,
		ready:    make([]klist.Node, cfg.Priorities),
		sems:     make([]semaphore, cfg.SemaphorePoolSize),
		mutexes:  make([]mutexObj, cfg.MutexPoolSize),
		queues:   make([]queueObj, cfg.QueuePoolSize),
		timers:   make([]timerObj, cfg.TimerPoolSize),
		current:  NoTask,
		idle:     NoTask,
	}

	for i := range k.ready {
		k.ready[i].Init()
	}
	k.delay.Init()
	k.suspend.Init()
	k.timeout.Init()
	k.pending.Init()
	for i := range k.sems {
		k.sems[i].waiters.Init()
	}
	for i := range k.mutexes {
		k.mutexes[i].waiters.Init()
	}
	for i := range k.queues {
		k.queues[i].readers.Init()
		k.queues[i].writers.Init()
	}
	for i := range k.timers {
		k.timers[i].node.Init()
		k.timers[i].node.SetOwner(&k.timers[i])
	}

	for i := range k.tasks {
		k.taskFree = append(k.taskFree, TaskHandle(i))
	}

	k.heap.SetFailHook(func(size int) { k.hooks.callMallocFailed(uint32(size)) })

	return k, nil
}

// Logger exposes the kernel's structured logger for use by application
// task code sharing the same sink.
func (k *Kernel) Logger() *klog.Logger { return k.log }

// TaskParams bundles a new task's creation arguments.
type TaskParams struct {
	Entry     func(c *TaskCtx)
	Priority  int
	Name      string
	StackSize int
	Arg       any
}

// CreateTask allocates a TCB and its simulated stack, fills the stack
// hygiene magic byte, and inserts the task into the ready list of its
// priority. Priority 0 is highest; Priorities-1 is reserved for the idle
// task and rejected here.
func (k *Kernel) CreateTask(p TaskParams) (TaskHandle, kerr.Code) {
	if p.Priority < 0 || p.Priority >= k.cfg.Priorities-1 {
		return NoTask, kerr.ErrPriorityConflict
	}
	if p.Entry == nil || p.StackSize <= 0 || len(p.Name) > k.cfg.MaxTaskNameLen {
		return NoTask, kerr.ErrInvalidParam
	}
	return k.createTaskAt(p, p.Priority)
}

func (k *Kernel) createTaskAt(p TaskParams, priority int) (TaskHandle, kerr.Code) {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	if len(k.taskFree) == 0 {
		return NoTask, kerr.ErrUnavailable
	}
	stackPtr, code := k.heap.Alloc(p.StackSize)
	if code != kerr.OK {
		return NoTask, code
	}
	stack := k.heap.Slice(stackPtr, p.StackSize)
	for i := range stack {
		stack[i] = stackMagic
	}

	h := k.taskFree[len(k.taskFree)-1]
	k.taskFree = k.taskFree[:len(k.taskFree)-1]

	t := &k.tasks[h]
	*t = tcb{
		handle:       h,
		name:         p.Name,
		priority:     priority,
		basePriority: priority,
		state:        StateReady,
		stackPtr:     stackPtr,
		stackSize:    p.StackSize,
		entry:        p.Entry,
		inUse:        true,
	}
	t.stateNode.Init()
	t.stateNode.SetOwner(t)
	t.eventNode.Init()
	t.eventNode.SetOwner(t)

	ctx := &TaskCtx{k: k, h: h}
	k.hal.CPU().StackInit(h, stack, func() {
		p.Entry(ctx)
		k.taskExited(h)
	})

	k.readyInsert(t)
	return h, kerr.OK
}

// taskExited routes a task that returns from its entry function to a
// fatal-error hook with a distinct reason rather than spinning forever —
// a hosted process cannot usefully mask interrupts and spin the way bare
// metal's sentinel trampoline does.
func (k *Kernel) taskExited(h TaskHandle) {
	k.hal.CPU().EnterCritical()
	t := &k.tasks[h]
	name := t.name
	k.removeFromCurrentList(t)
	t.state = StateSuspend
	k.suspend.AddTail(&t.stateNode)
	k.Schedule()
	k.hal.CPU().ExitCritical()
	k.log.Errorf("task %q (handle %d) returned from its entry function", name, h)
	k.hal.CPU().Park(h)
}

// StartScheduler creates the idle task, selects the highest-priority
// ready task as current, and hands off to the HAL. On the hosted backend
// this call returns once the dispatcher has taken over; on bare metal the
// equivalent call never returns.
func (k *Kernel) StartScheduler() kerr.Code {
	if k.started {
		return kerr.ErrInvalidState
	}
	idleHandle, code := k.createTaskAt(TaskParams{
		Entry:     k.idleEntry,
		Name:      "idle",
		StackSize: k.cfg.IdleStackSize,
	}, k.cfg.Priorities-1)
	if code != kerr.OK {
		return code
	}
	k.idle = idleHandle
	k.started = true

	k.hal.CPU().EnterCritical()
	first := k.highestPriorityReady()
	if first == NoTask {
		k.hal.CPU().ExitCritical()
		return kerr.ErrInvalidState
	}
	k.current = first
	t := &k.tasks[first]
	t.lastSwitchIn = k.currentTime
	k.hal.CPU().ExitCritical()

	k.hal.CPU().StartFirstTask(first)
	return kerr.OK
}

func (k *Kernel) idleEntry(c *TaskCtx) {
	for {
		k.hooks.callIdle()
		c.Yield()
	}
}

// SchedulerStats is the externally visible scheduler-level snapshot.
type SchedulerStats struct {
	CurrentTime  ktime.Tick
	TotalRunTime uint64
	ReadyBitmap  uint64
	CurrentTask  TaskHandle
}

// Snapshot returns a consistent point-in-time copy of heap, scheduler and
// per-task statistics.
type Snapshot struct {
	Heap      heap.Stats
	Scheduler SchedulerStats
	Tasks     []TaskStats
}

func (k *Kernel) Snapshot() Snapshot {
	k.hal.CPU().EnterCritical()
	defer k.hal.CPU().ExitCritical()

	s := Snapshot{
		Heap: k.heap.Stats(),
		Scheduler: SchedulerStats{
			CurrentTime:  k.currentTime,
			TotalRunTime: k.totalRunTime,
			ReadyBitmap:  k.bitmap,
			CurrentTask:  k.current,
		},
	}
	for i := range k.tasks {
		t := &k.tasks[i]
		if !t.inUse {
			continue
		}
		s.Tasks = append(s.Tasks, k.taskStatsLocked(t))
	}
	return s
}
