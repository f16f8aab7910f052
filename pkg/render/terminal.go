package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

var _ uv.Drawable = (*Framebuffer)(nil)

// Draw puts the framebuffer on the screen inside area, one terminal row
// per two pixel rows: ▀ with the top pixel as foreground and the bottom
// one as background.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		if topY >= fb.Height {
			break
		}
		for col := area.Min.X; col < area.Max.X; col++ {
			x := col - area.Min.X
			if x >= fb.Width {
				break
			}
			scr.SetCell(col, row, &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.GetPixel(x, topY)),
					Bg: cellColor(fb.GetPixel(x, topY+1)),
				},
			})
		}
	}
}

// cellColor maps transparent pixels to the terminal default.
func cellColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}

// Color is an alias for color.RGBA for convenience.
type Color = color.RGBA

// Palette colors shared by the renderer and the overview.
var (
	ColorBackground = color.RGBA{30, 30, 40, 255}
	ColorVisible    = color.RGBA{0, 255, 128, 255}
	ColorCulled     = color.RGBA{70, 70, 85, 255}
	ColorHidden     = color.RGBA{120, 40, 40, 255}
	ColorCaster     = color.RGBA{255, 200, 0, 255}
	ColorCamera     = color.RGBA{255, 255, 255, 255}
	ColorFrustum    = color.RGBA{0, 180, 255, 255}
)

// RGB creates a color from RGB values.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}

// normalized converts a color to the float RGBA the RHI clears and draws
// with.
func normalized(c color.RGBA) [4]float32 {
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}
