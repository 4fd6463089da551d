// Package monitor is a small interactive kernel shell: it parses command
// lines and answers with scheduler, task and heap state, printed through
// the same line sink the rest of the system logs to.
package monitor

import (
	"strings"

	"github.com/google/shlex"

	"rtoscore/kernel"
	"rtoscore/kprint"
)

// Monitor executes shell commands against a kernel.
type Monitor struct {
	k    *kernel.Kernel
	sink kprint.Sink
}

// New returns a Monitor answering on sink.
func New(k *kernel.Kernel, sink kprint.Sink) *Monitor {
	return &Monitor{k: k, sink: sink}
}

// Entry returns a task entry function that drains command lines from in.
// The channel is polled with a short delay rather than received on
// directly so the task only ever blocks inside the kernel.
func (m *Monitor) Entry(in <-chan string) func(*kernel.TaskCtx) {
	return func(c *kernel.TaskCtx) {
		for {
			select {
			case line := <-in:
				m.Exec(line)
			default:
				c.Delay(2)
			}
		}
	}
}

// Exec parses one command line (shell quoting rules apply) and runs it.
func (m *Monitor) Exec(line string) {
	args, err := shlex.Split(line)
	if err != nil {
		kprint.Printf(m.sink, "monitor: %v", err)
		return
	}
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "help":
		m.help()
	case "ps":
		m.ps()
	case "free":
		m.free()
	case "uptime":
		m.uptime()
	case "echo":
		kprint.Printf(m.sink, "%s", strings.Join(args[1:], " "))
	default:
		kprint.Printf(m.sink, "monitor: unknown command %q (try help)", args[0])
	}
}

func (m *Monitor) help() {
	kprint.Printf(m.sink, "commands: help ps free uptime echo")
}

func (m *Monitor) ps() {
	snap := m.k.Snapshot()
	kprint.Printf(m.sink, "%-12s %4s %4s %-16s %8s %8s %6s",
		"NAME", "PRIO", "BASE", "STATE", "RUN", "STACK", "CPU")
	for _, ts := range snap.Tasks {
		kprint.Printf(m.sink, "%-12s %4d %4d %-16s %8d %8d %3d.%02d%%",
			ts.Name, ts.Priority, ts.BasePriority, ts.State,
			ts.RunTicks, ts.StackSize, ts.CPUPerMille/100, ts.CPUPerMille%100)
	}
}

func (m *Monitor) free() {
	hs := m.k.Snapshot().Heap
	kprint.Printf(m.sink, "heap: total=%d used=%d peak=%d", hs.TotalSize, hs.CurrentUsed, hs.PeakUsed)
	kprint.Printf(m.sink, "blocks: free=%d used=%d", hs.FreeBlocks, hs.UsedBlocks)
	kprint.Printf(m.sink, "ops: alloc=%d free=%d fail=%d", hs.AllocCount, hs.FreeCount, hs.FailCount)
}

func (m *Monitor) uptime() {
	s := m.k.Snapshot().Scheduler
	kprint.Printf(m.sink, "tick=%d totalRunTime=%d readyBitmap=%#x", s.CurrentTime, s.TotalRunTime, s.ReadyBitmap)
}
