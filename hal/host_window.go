//go:build !tinygo

package hal

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// WindowConfig controls the hosted console window.
type WindowConfig struct {
	Title string
	Scale int // window pixels per framebuffer pixel; 0 means 2
}

// RunWindow opens a desktop window that displays fb and forwards typed
// runes (plus '\n' for Enter and '\b' for Backspace) to onKey. step runs
// once per frame on the window goroutine; returning a non-nil error ends
// the window loop. RunWindow blocks until the window closes.
func RunWindow(cfg WindowConfig, fb *HostFramebuffer, onKey func(r rune), step func() error) error {
	scale := cfg.Scale
	if scale <= 0 {
		scale = 2
	}
	g := &hostGame{fb: fb, onKey: onKey, step: step}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(fb.width*scale, fb.height*scale)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	fb      *HostFramebuffer
	onKey   func(r rune)
	step    func() error
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	chars   []rune
}

func (g *hostGame) Update() error {
	if g.onKey != nil {
		g.chars = ebiten.AppendInputChars(g.chars[:0])
		for _, r := range g.chars {
			g.onKey(r)
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			g.onKey('\n')
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
			g.onKey('\b')
		}
	}
	if g.step != nil {
		return g.step()
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.fb
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)

	src := g.scratch
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := RGB888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.fb.width, g.fb.height
}
