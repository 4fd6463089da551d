//go:build tinygo

// Command rtoscore-target boots the kernel on the tinygo HAL backend.
// Wiring the hardware tick interrupt and any board-specific drivers is
// left to a board-support package; this entry point only demonstrates
// that the core links and starts against the tinygo CPU/logger pair.
package main

import (
	"rtoscore/hal"
	"rtoscore/kconfig"
	"rtoscore/kernel"
)

func main() {
	t := hal.NewTarget()
	if cons := boardConsole(); cons != nil {
		t.SetLogger(cons)
	}
	k, err := kernel.New(kconfig.Default(), t)
	if err != nil {
		panic(err)
	}

	k.CreateTask(kernel.TaskParams{
		Name:      "blink",
		Priority:  0,
		StackSize: 1024,
		Entry: func(c *kernel.TaskCtx) {
			for {
				c.Delay(500)
			}
		},
	})

	k.StartScheduler()
	select {}
}
