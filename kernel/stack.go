package kernel

// checkStackOverflow scans the low end of t's simulated stack arena for
// the hygiene magic byte. Only a small prefix is scanned since a stack
// that grows down from its high address corrupts its low end first.
func (k *Kernel) checkStackOverflow(t *tcb) bool {
	stack := k.heap.Slice(t.stackPtr, t.stackSize)
	n := len(stack)
	if n > 16 {
		n = 16
	}
	for i := 0; i < n; i++ {
		if stack[i] != stackMagic {
			return true
		}
	}
	return false
}

// stackUsage counts leading magic bytes from the low end of t's stack
// arena and reports the remainder as bytes used.
func (k *Kernel) stackUsage(t *tcb) int {
	stack := k.heap.Slice(t.stackPtr, t.stackSize)
	used := 0
	for used < len(stack) && stack[used] == stackMagic {
		used++
	}
	return t.stackSize - used
}

// taskStatsLocked builds the externally visible snapshot for t. Must be
// called with the critical section held.
func (k *Kernel) taskStatsLocked(t *tcb) TaskStats {
	var cpuPerMille uint32
	if k.totalRunTime > 0 {
		cpuPerMille = uint32(t.runTicks * 10000 / k.totalRunTime)
	}
	return TaskStats{
		Name:          t.name,
		Priority:      t.priority,
		BasePriority:  t.basePriority,
		State:         t.state,
		RunTicks:      t.runTicks,
		StackSize:     t.stackSize,
		StackUsedPeak: k.stackUsage(t),
		CPUPerMille:   cpuPerMille,
	}
}
