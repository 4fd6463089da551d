//go:build !tinygo

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "rtoscore-target is a tinygo target; build it with `tinygo build` (use rtoscore-host on a desktop)")
	os.Exit(1)
}
