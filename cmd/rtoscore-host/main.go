//go:build !tinygo

// Command rtoscore-host boots the kernel on the hosted (goroutine-backed)
// HAL and runs a small demo task set exercising the scheduler, a
// semaphore handoff, mutex priority inheritance, and a producer/consumer
// queue — the hosted equivalent of the board-level demos a bare-metal
// main_host.go would wire up against real hardware.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"rtoscore/console"
	"rtoscore/hal"
	"rtoscore/kconfig"
	"rtoscore/kernel"
	"rtoscore/kerr"
	"rtoscore/kprint"
	"rtoscore/monitor"
)

func main() {
	tickHz := flag.Int("hz", 1000, "tick rate in Hz")
	runFor := flag.Duration("for", 500*time.Millisecond, "how long to run the demo before reporting a snapshot")
	window := flag.Bool("window", false, "render the console in a desktop window with an interactive monitor shell")
	flag.Parse()

	if *window {
		if err := runWindowed(*tickHz); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	h := hal.NewHost(os.Stdout, *tickHz)
	defer h.Stop()

	cfg := kconfig.Default()
	k, err := kernel.New(cfg, h)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernel.New:", err)
		os.Exit(1)
	}

	k.SetStackOverflowHook(func(t kernel.TaskHandle) {
		kprint.Printf(h.Logger(), "FATAL: stack overflow in task handle %d", t)
		os.Exit(1)
	})
	k.SetMallocFailedHook(func(size uint32) {
		kprint.Printf(h.Logger(), "malloc failed for %d bytes", size)
	})

	mutexDemo(k, h)
	semaphoreDemo(k, h)
	queueDemo(k, h)

	if code := k.StartScheduler(); code != kerr.OK {
		fmt.Fprintln(os.Stderr, "StartScheduler:", code)
		os.Exit(1)
	}

	go func() {
		for range h.Time().Ticks() {
			k.Tick()
		}
	}()

	time.Sleep(*runFor)

	snap := k.Snapshot()
	kprint.Printf(h.Logger(), "--- snapshot after %s ---", *runFor)
	kprint.Printf(h.Logger(), "tick=%d totalRunTime=%d", snap.Scheduler.CurrentTime, snap.Scheduler.TotalRunTime)
	for _, ts := range snap.Tasks {
		kprint.Printf(h.Logger(), "task %-10s prio=%d base=%d state=%-16s runTicks=%d cpu=%d.%02d%%",
			ts.Name, ts.Priority, ts.BasePriority, ts.State, ts.RunTicks, ts.CPUPerMille/100, ts.CPUPerMille%100)
	}
}

// runWindowed boots the kernel with the framebuffer console as its log
// sink, shows it in a desktop window, and wires typed input through a
// line editor into the monitor shell task.
func runWindowed(tickHz int) error {
	fb := hal.NewHostFramebuffer(480, 320)
	cons := console.NewFramebufferConsole(fb)

	h := hal.NewHostWithLogger(cons, tickHz)
	defer h.Stop()

	k, err := kernel.New(kconfig.Default(), h)
	if err != nil {
		return err
	}
	k.SetMallocFailedHook(func(size uint32) {
		kprint.Printf(cons, "malloc failed for %d bytes", size)
	})

	mutexDemo(k, h)
	semaphoreDemo(k, h)
	queueDemo(k, h)

	lines := make(chan string, 8)
	mon := monitor.New(k, cons)
	if _, code := k.CreateTask(kernel.TaskParams{
		Name:      "monitor",
		Priority:  2,
		StackSize: 4096,
		Entry:     mon.Entry(lines),
	}); code != kerr.OK {
		return fmt.Errorf("create monitor task: %v", code)
	}

	kprint.Printf(cons, "rtoscore console, type help for commands")

	if code := k.StartScheduler(); code != kerr.OK {
		return fmt.Errorf("StartScheduler: %v", code)
	}
	go func() {
		for range h.Time().Ticks() {
			k.Tick()
		}
	}()

	var lineBuf []rune
	return hal.RunWindow(hal.WindowConfig{Title: "rtoscore"}, fb, func(r rune) {
		switch r {
		case '\n':
			cons.Echo('\n')
			line := string(lineBuf)
			lineBuf = lineBuf[:0]
			select {
			case lines <- line:
			default:
			}
		case '\b':
			if len(lineBuf) > 0 {
				lineBuf = lineBuf[:len(lineBuf)-1]
				cons.Rubout()
			}
		default:
			lineBuf = append(lineBuf, r)
			cons.Echo(r)
		}
	}, nil)
}

// mutexDemo: a low-priority task holds a mutex a high-priority task
// wants, inheriting its priority onto the holder until release.
func mutexDemo(k *kernel.Kernel, h *hal.Host) {
	m, code := k.CreateMutex()
	if code != kerr.OK {
		kprint.Printf(h.Logger(), "mutexDemo: CreateMutex: %v", code)
		return
	}

	k.CreateTask(kernel.TaskParams{
		Name:      "low",
		Priority:  10,
		StackSize: 2048,
		Entry: func(c *kernel.TaskCtx) {
			for {
				if code := c.MutexLock(m, 0xFFFFFFFF); code == kerr.OK {
					c.Delay(20)
					c.MutexUnlock(m)
				}
				c.Delay(5)
			}
		},
	})
	k.CreateTask(kernel.TaskParams{
		Name:      "mid",
		Priority:  5,
		StackSize: 2048,
		Entry: func(c *kernel.TaskCtx) {
			for {
				c.Yield()
			}
		},
	})
	k.CreateTask(kernel.TaskParams{
		Name:      "high",
		Priority:  1,
		StackSize: 2048,
		Entry: func(c *kernel.TaskCtx) {
			for {
				c.Delay(3)
				c.MutexLock(m, 0xFFFFFFFF)
				c.MutexUnlock(m)
			}
		},
	})
}

// semaphoreDemo: one task waits on a semaphore with a timeout, another
// releases it.
func semaphoreDemo(k *kernel.Kernel, h *hal.Host) {
	s, code := k.CreateSemaphore(0)
	if code != kerr.OK {
		kprint.Printf(h.Logger(), "semaphoreDemo: CreateSemaphore: %v", code)
		return
	}

	k.CreateTask(kernel.TaskParams{
		Name:      "waiter",
		Priority:  3,
		StackSize: 2048,
		Entry: func(c *kernel.TaskCtx) {
			for {
				if code := c.SemGet(s, 100); code == kerr.OK {
					kprint.Printf(h.Logger(), "waiter: got semaphore")
				}
			}
		},
	})
	k.CreateTask(kernel.TaskParams{
		Name:      "signaler",
		Priority:  5,
		StackSize: 2048,
		Entry: func(c *kernel.TaskCtx) {
			for {
				c.Delay(40)
				c.SemRelease(s)
			}
		},
	})
}

// queueDemo: a producer writes faster than a consumer reads, blocking
// on the full queue.
func queueDemo(k *kernel.Kernel, h *hal.Host) {
	q, code := k.CreateQueue(4, 8)
	if code != kerr.OK {
		kprint.Printf(h.Logger(), "queueDemo: CreateQueue: %v", code)
		return
	}

	k.CreateTask(kernel.TaskParams{
		Name:      "producer",
		Priority:  7,
		StackSize: 2048,
		Entry: func(c *kernel.TaskCtx) {
			var n uint64
			for {
				var buf [8]byte
				n++
				for i := range buf {
					buf[i] = byte(n >> (8 * uint(i%8)))
				}
				c.QueueWrite(q, buf[:], 0xFFFFFFFF)
			}
		},
	})
	k.CreateTask(kernel.TaskParams{
		Name:      "consumer",
		Priority:  7,
		StackSize: 2048,
		Entry: func(c *kernel.TaskCtx) {
			for {
				var buf [8]byte
				c.QueueRead(q, buf[:], 0xFFFFFFFF)
				c.Delay(3)
			}
		},
	})
}
