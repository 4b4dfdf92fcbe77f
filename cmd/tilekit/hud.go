package main

import (
	"fmt"
	"image/color"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/tilekit/pkg/preview"
	"github.com/taigrr/tilekit/pkg/tileset"
)

var (
	hudBg     = color.RGBA{R: 20, G: 20, B: 30, A: 255}
	hudFg     = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	hudGreen  = color.RGBA{R: 90, G: 220, B: 120, A: 255}
	hudYellow = color.RGBA{R: 240, G: 210, B: 90, A: 255}
)

// HUD shows frame rate and streaming state over the preview.
type HUD struct {
	Visible bool
	name    string

	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

// NewHUD returns a visible HUD titled name.
func NewHUD(name string) *HUD {
	return &HUD{Visible: true, name: name, fpsTime: time.Now()}
}

// Tick counts one frame.
func (h *HUD) Tick() {
	h.fpsFrames++
	if elapsed := time.Since(h.fpsTime); elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Draw writes the top and bottom status rows into scr.
func (h *HUD) Draw(scr uv.Screen, width, height int, ts *tileset.Tileset, st preview.Stats, mode preview.Mode, orbiting bool) {
	if !h.Visible || height < 2 {
		return
	}
	loaded := 0
	if e := ts.Engine(); e != nil {
		loaded = e.TilesLoaded()
	}
	fill(scr, 0, width, hudBg)
	x := drawText(scr, 0, 0, fmt.Sprintf(" %.0f FPS ", h.fps), hudGreen)
	x = drawText(scr, x, 0, " "+h.name+" ", hudFg)
	drawText(scr, x, 0, fmt.Sprintf(" %d tiles  %.0f%%  %d tris ", loaded, ts.LoadProgress(), st.Triangles), hudYellow)

	fill(scr, height-1, width, hudBg)
	wire := "[ ]"
	if mode == preview.Wireframe {
		wire = "[x]"
	}
	spin := "[ ]"
	if orbiting {
		spin = "[x]"
	}
	ov := "none"
	if p := ts.Overlay(); p != nil {
		ov = p.Kind.String()
	}
	drawText(scr, 0, height-1, fmt.Sprintf(" %s wireframe  %s orbit  overlay: %s   ?: hide  esc: quit ", wire, spin, ov), hudFg)
}

func fill(scr uv.Screen, row, width int, bg color.Color) {
	for x := range width {
		scr.SetCell(x, row, &uv.Cell{Content: " ", Width: 1, Style: uv.Style{Bg: bg}})
	}
}

// drawText writes s at (x, y) and returns the column after it.
func drawText(scr uv.Screen, x, y int, s string, fg color.Color) int {
	for _, r := range s {
		scr.SetCell(x, y, &uv.Cell{Content: string(r), Width: 1, Style: uv.Style{Fg: fg, Bg: hudBg}})
		x++
	}
	return x
}
