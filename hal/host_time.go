//go:build !tinygo

package hal

import "time"

// startTicking runs a background goroutine that converts real wall-clock
// time into a best-effort tickHz-rate tick stream, pushed non-blockingly
// onto h.time.ch. Ticks are dropped rather than buffered without bound if
// nothing is draining the channel, matching a real systick: missed ticks
// are lost, not queued.
func (h *Host) startTicking(tickHz int) {
	if tickHz <= 0 {
		tickHz = 1000
	}
	period := time.Second / time.Duration(tickHz)
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		var seq uint64
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				seq++
				select {
				case h.time.ch <- seq:
				default:
				}
			}
		}
	}()
}
