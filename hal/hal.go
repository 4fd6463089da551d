// Package hal is the kernel's hardware abstraction layer boundary.
//
// On bare metal this is register access, assembly context-switch
// trampolines and systick configuration; on the hosted backend (see
// host.go) it is a goroutine dispatcher standing in for the deferred
// low-priority switch interrupt. Either way the kernel core only ever
// talks to the small interface set below.
package hal

// Logger writes newline-delimited log lines, the boundary the kernel's
// formatted-print and structured-logging components write through.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// Time is a base tick source. The tick duration is platform-defined;
// higher-level timers live in the kernel's software timer service.
type Time interface {
	Ticks() <-chan uint64
}

// CPU is the deferred-context-switch and critical-section contract the
// scheduler relies on. token is an opaque per-task identity (the kernel
// passes its TaskHandle); the CPU backend never interprets it beyond using
// it as a map key.
type CPU interface {
	// StackInit prepares a task to begin running entry once scheduled in.
	// On bare metal this builds the initial exception frame on top of
	// stack; on the hosted backend it spawns (but does not yet run) the
	// task's goroutine, parked until first resumed under token.
	StackInit(token any, stack []byte, entry func())

	// SetSwitchNext records the task that should become current the next
	// time the deferred switch is serviced. It must be called before
	// TriggerContextSwitch, mirroring the real protocol's separate
	// "current"/"switch_next" pointers.
	SetSwitchNext(token any)

	// TriggerContextSwitch asserts the deferred-switch pin. It must not
	// block; repeated triggers before the previous one is serviced may be
	// coalesced to the latest SetSwitchNext value.
	TriggerContextSwitch()

	// EnterCritical/ExitCritical bracket the kernel critical section. On
	// bare metal this raises/restores the interrupt priority mask with a
	// nesting counter; the hosted backend uses a mutex and requires the
	// kernel's balanced, non-nested usage pattern.
	EnterCritical()
	ExitCritical()

	// StartFirstTask hands control to the first selected task (previously
	// prepared with StackInit). On bare metal this never returns; the
	// hosted backend returns once the dispatcher has released it, so
	// host callers (tests, cmd/) regain control of the calling goroutine.
	StartFirstTask(token any)

	// Park blocks the calling goroutine until some future
	// SetSwitchNext(token)+TriggerContextSwitch (or StartFirstTask(token))
	// resumes it. The scheduler calls this at every suspension point as
	// the goroutine-level analogue of a register save.
	Park(token any)

	// CLZ counts leading zeros in bitmap's 64-bit value, the primitive the
	// scheduler uses for O(1) highest-priority-ready lookup.
	CLZ(bitmap uint64) uint8
}

// HAL aggregates everything the kernel core needs from the platform.
type HAL interface {
	CPU() CPU
	Logger() Logger
	Time() Time
}
