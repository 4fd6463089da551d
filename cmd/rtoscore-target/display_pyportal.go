//go:build tinygo && pyportal

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ili9341"

	"rtoscore/console"
	"rtoscore/hal"
)

// boardConsole brings up the PyPortal's parallel ili9341 panel and
// returns a terminal console rendering onto it.
func boardConsole() hal.Logger {
	display := ili9341.NewParallel(
		machine.LCD_DATA0,
		machine.TFT_WR,
		machine.TFT_DC,
		machine.TFT_CS,
		machine.TFT_RESET,
		machine.TFT_RD,
	)

	backlight := machine.TFT_BACKLIGHT
	backlight.Configure(machine.PinConfig{Mode: machine.PinOutput})

	display.Configure(ili9341.Config{})
	display.SetRotation(ili9341.Rotation0)
	display.FillScreen(color.RGBA{A: 255})

	backlight.High()

	return console.New(display)
}
