//go:build tinygo

package hal

// This backend targets a bare-metal tinygo build. It is deliberately
// minimal: real register-level context switching, systick wiring and
// interrupt priority configuration are board-specific and belong in a
// follow-up board-support package, not in this module. What's provided
// here lets the core link and run single-tasked on a tinygo target using
// cooperative scheduling identical in shape to the host backend, without
// a real deferred-interrupt trampoline.

import (
	"machine"
	"math/bits"
)

type tinygoCPU struct {
	critNesting int
	parked      map[any]chan struct{}
	switchNext  any
}

func newTinygoCPU() *tinygoCPU {
	return &tinygoCPU{parked: make(map[any]chan struct{})}
}

func (c *tinygoCPU) chanFor(token any) chan struct{} {
	ch, ok := c.parked[token]
	if !ok {
		ch = make(chan struct{}, 1)
		c.parked[token] = ch
	}
	return ch
}

func (c *tinygoCPU) StackInit(token any, stack []byte, entry func()) {
	_ = stack
	ch := c.chanFor(token)
	go func() {
		<-ch
		entry()
	}()
}

func (c *tinygoCPU) SetSwitchNext(token any) { c.switchNext = token }

func (c *tinygoCPU) TriggerContextSwitch() {
	if c.switchNext == nil {
		return
	}
	select {
	case c.chanFor(c.switchNext) <- struct{}{}:
	default:
	}
}

func (c *tinygoCPU) EnterCritical() {
	// A real port raises the interrupt priority mask here; tinygo's
	// cooperative scheduler has no preemptive ISR of its own yet, so this
	// nesting counter exists for API parity with the host backend.
	c.critNesting++
}

func (c *tinygoCPU) ExitCritical() {
	c.critNesting--
}

func (c *tinygoCPU) StartFirstTask(token any) {
	c.chanFor(token) <- struct{}{}
}

func (c *tinygoCPU) Park(token any) {
	<-c.chanFor(token)
}

func (c *tinygoCPU) CLZ(bitmap uint64) uint8 {
	return uint8(bits.LeadingZeros64(bitmap))
}

type tinygoLogger struct{}

func (tinygoLogger) WriteLineString(s string) {
	machine.Serial.Write([]byte(s))
	machine.Serial.Write([]byte("\r\n"))
}

func (l tinygoLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

// Target is the tinygo HAL implementation backed by a single hardware
// timer interrupt for the tick source.
type Target struct {
	cpu    *tinygoCPU
	logger Logger
	ticks  chan uint64
}

// NewTarget creates the tinygo-backed HAL. Wiring the hardware timer
// interrupt that feeds ticks is board-specific and left to the calling
// board-support package (out of scope for this module).
func NewTarget() *Target {
	return &Target{
		cpu:    newTinygoCPU(),
		logger: tinygoLogger{},
		ticks:  make(chan uint64, 8),
	}
}

func (t *Target) CPU() CPU       { return t.cpu }
func (t *Target) Logger() Logger { return t.logger }

// SetLogger replaces the default serial line logger, e.g. with a display
// console on boards that have one. Call before handing the HAL to the
// kernel.
func (t *Target) SetLogger(l Logger) { t.logger = l }
func (t *Target) Time() Time         { return targetTime{t.ticks} }

type targetTime struct{ ch chan uint64 }

func (t targetTime) Ticks() <-chan uint64 { return t.ch }
