//go:build tinygo && !pyportal

package main

import "rtoscore/hal"

// boardConsole reports no display console on boards without one; output
// stays on the serial logger.
func boardConsole() hal.Logger { return nil }
