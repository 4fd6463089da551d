// Package kconfig collects the kernel's compile-time knobs into one
// validated struct, supplied once to kernel.New.
package kconfig

import "fmt"

// Config holds every tunable named in the kernel's external interface.
type Config struct {
	// Priorities is the number of distinct priority levels, P. Priority 0
	// is highest; Priorities-1 is reserved for the idle task.
	Priorities int

	// Alignment is the byte alignment the heap allocator rounds block
	// sizes up to.
	Alignment int

	// MaxTaskNameLen bounds a task's fixed-length name field.
	MaxTaskNameLen int

	// TickHz is the nominal frequency of the periodic tick source.
	TickHz int

	// HeapSize is the size in bytes of the arena the heap allocator
	// carves blocks out of.
	HeapSize int

	// SemaphorePoolSize, MutexPoolSize, QueuePoolSize and TimerPoolSize
	// bound the fixed-capacity pools each IPC object type is allocated
	// from.
	SemaphorePoolSize int
	MutexPoolSize     int
	QueuePoolSize     int
	TimerPoolSize     int

	// MaxTasks bounds the number of TCBs the kernel can hold.
	MaxTasks int

	// RoundRobinSlice is the number of ticks an equal-priority task runs
	// before being rotated to the back of its ready list.
	RoundRobinSlice uint32

	// IdleStackSize is the stack size in bytes given to the idle task.
	IdleStackSize int

	// SemaphoreCountMax bounds a semaphore's count.
	SemaphoreCountMax uint32

	// MutexMaxChainDepth bounds the priority-inheritance chain walk.
	MutexMaxChainDepth int
}

// Default returns a validated, reasonably-sized configuration suitable for
// the hosted backend and for tests.
func Default() Config {
	return Config{
		Priorities:         32,
		Alignment:          8,
		MaxTaskNameLen:     16,
		TickHz:             1000,
		HeapSize:           64 * 1024,
		SemaphorePoolSize:  32,
		MutexPoolSize:      32,
		QueuePoolSize:      16,
		TimerPoolSize:      16,
		MaxTasks:           64,
		RoundRobinSlice:    5,
		IdleStackSize:      1024,
		SemaphoreCountMax:  0xFFFF,
		MutexMaxChainDepth: 8,
	}
}

// Validate checks every field against the bounds named in the external
// interface, returning a descriptive error on the first violation found.
func (c Config) Validate() error {
	switch c.Priorities {
	case 8, 16, 32, 64:
	default:
		return fmt.Errorf("kconfig: Priorities must be one of {8,16,32,64}, got %d", c.Priorities)
	}
	switch c.Alignment {
	case 4, 8:
	default:
		return fmt.Errorf("kconfig: Alignment must be one of {4,8}, got %d", c.Alignment)
	}
	if c.MaxTaskNameLen < 4 || c.MaxTaskNameLen > 32 {
		return fmt.Errorf("kconfig: MaxTaskNameLen must be in [4,32], got %d", c.MaxTaskNameLen)
	}
	if c.TickHz <= 0 {
		return fmt.Errorf("kconfig: TickHz must be positive, got %d", c.TickHz)
	}
	if c.HeapSize <= 0 {
		return fmt.Errorf("kconfig: HeapSize must be positive, got %d", c.HeapSize)
	}
	if c.SemaphorePoolSize <= 0 || c.MutexPoolSize <= 0 || c.QueuePoolSize <= 0 || c.TimerPoolSize <= 0 {
		return fmt.Errorf("kconfig: pool sizes must be positive")
	}
	if c.MaxTasks <= 0 {
		return fmt.Errorf("kconfig: MaxTasks must be positive, got %d", c.MaxTasks)
	}
	if c.RoundRobinSlice == 0 {
		return fmt.Errorf("kconfig: RoundRobinSlice must be positive")
	}
	if c.IdleStackSize <= 0 {
		return fmt.Errorf("kconfig: IdleStackSize must be positive, got %d", c.IdleStackSize)
	}
	if c.MutexMaxChainDepth <= 0 {
		return fmt.Errorf("kconfig: MutexMaxChainDepth must be positive, got %d", c.MutexMaxChainDepth)
	}
	return nil
}
