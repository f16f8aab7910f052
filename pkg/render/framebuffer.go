// Package render draws culling results: a camera with shadow cascades, a
// frame renderer that records wireframes of the visible boxes into RHI
// command lists and reads the image back, a top-down overview plot, and
// a half-block terminal presenter.
package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
)

// Framebuffer is an RGBA8 image that can be rendered to the terminal. Two
// pixel rows share one terminal row through half-block characters, so
// Height is twice the rows it covers.
type Framebuffer struct {
	Width  int
	Height int
	// Pix holds rows of 4*Width bytes, the layout of a FormatR8G8B8A8Unorm
	// texture.
	Pix []uint8
}

// NewFramebuffer creates a new framebuffer with the given dimensions.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, 4*width*height),
	}
}

// Stride returns the byte distance between rows.
func (fb *Framebuffer) Stride() int {
	return 4 * fb.Width
}

// Clear fills the framebuffer with a solid color.
func (fb *Framebuffer) Clear(c color.RGBA) {
	for i := 0; i < len(fb.Pix); i += 4 {
		fb.Pix[i], fb.Pix[i+1], fb.Pix[i+2], fb.Pix[i+3] = c.R, c.G, c.B, c.A
	}
}

// Load copies rows laid out rowPitch bytes apart, as read back through a
// texture footprint.
func (fb *Framebuffer) Load(data []byte, rowPitch int) {
	stride := fb.Stride()
	for y := range fb.Height {
		copy(fb.Pix[y*stride:(y+1)*stride], data[y*rowPitch:])
	}
}

// SetPixel sets a pixel, ignoring coordinates outside the image.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	i := y*fb.Stride() + 4*x
	fb.Pix[i], fb.Pix[i+1], fb.Pix[i+2], fb.Pix[i+3] = c.R, c.G, c.B, c.A
}

// GetPixel returns the color at (x, y), or transparent black outside the
// image.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.RGBA{}
	}
	i := y*fb.Stride() + 4*x
	return color.RGBA{fb.Pix[i], fb.Pix[i+1], fb.Pix[i+2], fb.Pix[i+3]}
}

// DrawLine draws a line from (x0, y0) to (x1, y1) using Bresenham's algorithm.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawRectOutline draws a rectangle outline.
func (fb *Framebuffer) DrawRectOutline(x, y, w, h int, c color.RGBA) {
	fb.DrawLine(x, y, x+w-1, y, c)
	fb.DrawLine(x, y+h-1, x+w-1, y+h-1, c)
	fb.DrawLine(x, y, x, y+h-1, c)
	fb.DrawLine(x+w-1, y, x+w-1, y+h-1, c)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Image returns an image.RGBA sharing the framebuffer's pixels.
func (fb *Framebuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    fb.Pix,
		Stride: fb.Stride(),
		Rect:   image.Rect(0, 0, fb.Width, fb.Height),
	}
}

// SavePNG saves the framebuffer as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, fb.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
