// Package console renders the kernel's line-oriented output as a VT100
// terminal drawn into a framebuffer, so the hosted window (or a target
// board's display) shows the same text the serial logger would carry.
package console

import (
	"sync"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"

	"rtoscore/hal"
)

// Console is a tinyterm-backed terminal that satisfies the HAL Logger
// shape (WriteLineString/WriteLineBytes), so it can be handed to the
// kernel anywhere a serial line logger would go.
type Console struct {
	mu   sync.Mutex
	term *tinyterm.Terminal
	disp tinyterm.Displayer
}

// New builds a Console over any tinyterm Displayer: the hosted
// framebuffer adapter from NewFramebufferConsole, or a display driver
// device on a real board.
func New(d tinyterm.Displayer) *Console {
	t := tinyterm.NewTerminal(d)
	t.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        10,
		FontOffset:        6,
		UseSoftwareScroll: true,
	})
	return &Console{term: t, disp: d}
}

// NewFramebufferConsole builds a Console rendering into fb.
func NewFramebufferConsole(fb hal.Framebuffer) *Console {
	fb.ClearRGB(0, 0, 0)
	_ = fb.Present()
	return New(newFBDisplay(fb))
}

// WriteLineString draws s followed by a newline and presents the display.
func (c *Console) WriteLineString(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.term.Write([]byte(s))
	_, _ = c.term.Write(crlf)
	c.term.Display()
}

// WriteLineBytes is WriteLineString for a byte slice.
func (c *Console) WriteLineBytes(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.term.Write(b)
	_, _ = c.term.Write(crlf)
	c.term.Display()
}

// Echo draws a single typed rune at the cursor without a trailing
// newline, for interactive line editing feedback.
func (c *Console) Echo(r rune) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.term.Write([]byte(string(r)))
	c.term.Display()
}

// Rubout erases the character before the cursor: cursor back, overwrite
// with a space, cursor back again, all through the terminal's own CSI
// handling.
func (c *Console) Rubout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.term.Write(ruboutSeq)
	c.term.Display()
}

var (
	crlf      = []byte("\r\n")
	ruboutSeq = []byte("\x1b[D \x1b[D")
)
