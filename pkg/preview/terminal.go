package preview

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw writes the framebuffer into area of scr. Each cell shows two pixel
// rows: the foreground paints the upper half block, the background the
// lower.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		top := (row - area.Min.Y) * 2
		for col := area.Min.X; col < area.Max.X; col++ {
			x := col - area.Min.X
			if x >= fb.Width {
				break
			}
			scr.SetCell(col, row, &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.At(x, top)),
					Bg: cellColor(fb.At(x, top+1)),
				},
			})
		}
	}
}

func cellColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
