package render

import (
	"image/color"
	"path/filepath"
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
)

func TestFramebufferPixels(t *testing.T) {
	fb := NewFramebuffer(4, 3)
	fb.Clear(ColorBackground)
	fb.SetPixel(1, 2, ColorVisible)
	fb.SetPixel(-1, 0, ColorCaster)
	fb.SetPixel(4, 0, ColorCaster)

	if got := fb.GetPixel(1, 2); got != ColorVisible {
		t.Errorf("GetPixel(1, 2) = %v", got)
	}
	if got := fb.GetPixel(0, 0); got != ColorBackground {
		t.Errorf("GetPixel(0, 0) = %v", got)
	}
	if got := fb.GetPixel(9, 9); got != (color.RGBA{}) {
		t.Errorf("out of bounds GetPixel = %v", got)
	}
	if got := fb.Image().RGBAAt(1, 2); got != ColorVisible {
		t.Errorf("Image shares pixels: got %v", got)
	}
}

func TestFramebufferLoad(t *testing.T) {
	fb := NewFramebuffer(2, 2)
	// Rows are padded to 12 bytes.
	data := []byte{
		1, 2, 3, 4, 5, 6, 7, 8, 0xff, 0xff, 0xff, 0xff,
		9, 10, 11, 12, 13, 14, 15, 16, 0xff, 0xff, 0xff, 0xff,
	}
	fb.Load(data, 12)
	want := []color.RGBA{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}, {13, 14, 15, 16}}
	for i, w := range want {
		if got := fb.GetPixel(i%2, i/2); got != w {
			t.Errorf("pixel %d = %v, want %v", i, got, w)
		}
	}
}

func TestDrawLine(t *testing.T) {
	tests := []struct {
		name           string
		x0, y0, x1, y1 int
		pixels         int
	}{
		{"horizontal", 0, 0, 9, 0, 10},
		{"vertical", 3, 9, 3, 0, 10},
		{"diagonal", 0, 0, 9, 9, 10},
		{"point", 4, 4, 4, 4, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := NewFramebuffer(10, 10)
			fb.DrawLine(tc.x0, tc.y0, tc.x1, tc.y1, ColorVisible)
			lit := 0
			for y := range 10 {
				for x := range 10 {
					if fb.GetPixel(x, y) == ColorVisible {
						lit++
					}
				}
			}
			if lit != tc.pixels {
				t.Errorf("lit %d pixels, want %d", lit, tc.pixels)
			}
			if fb.GetPixel(tc.x0, tc.y0) != ColorVisible || fb.GetPixel(tc.x1, tc.y1) != ColorVisible {
				t.Error("endpoints not drawn")
			}
		})
	}
}

func TestSavePNG(t *testing.T) {
	fb := NewFramebuffer(3, 2)
	fb.Clear(ColorVisible)
	if err := fb.SavePNG(filepath.Join(t.TempDir(), "frame.png")); err != nil {
		t.Fatal(err)
	}
	if err := fb.SavePNG(filepath.Join(t.TempDir(), "missing", "frame.png")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestFramebufferDraw(t *testing.T) {
	red := RGB(255, 0, 0)
	blue := RGB(0, 0, 255)
	fb := NewFramebuffer(2, 4)
	fb.SetPixel(0, 0, red)
	fb.SetPixel(0, 1, blue)
	fb.SetPixel(1, 1, blue)

	scr := uv.NewScreenBuffer(5, 4)
	fb.Draw(scr, uv.Rect(1, 1, 3, 3))

	cell := scr.CellAt(1, 1)
	if cell == nil || cell.Content != "▀" {
		t.Fatalf("cell (1, 1) = %+v", cell)
	}
	if cell.Style.Fg != color.Color(red) || cell.Style.Bg != color.Color(blue) {
		t.Errorf("cell (1, 1) colors = %v / %v", cell.Style.Fg, cell.Style.Bg)
	}
	if cell := scr.CellAt(2, 1); cell.Style.Fg != nil || cell.Style.Bg != color.Color(blue) {
		t.Errorf("transparent pixel drawn as %v", cell.Style.Fg)
	}
	// The area is wider than the framebuffer.
	if cell := scr.CellAt(3, 1); cell != nil && cell.Content == "▀" {
		t.Error("drew past the framebuffer width")
	}
	// Row 3 maps to pixel rows 4 and 5, past the framebuffer.
	if cell := scr.CellAt(1, 3); cell != nil && cell.Content == "▀" {
		t.Error("drew past the framebuffer height")
	}
}

func BenchmarkFramebufferDraw(b *testing.B) {
	fb := NewFramebuffer(160, 96)
	fb.Clear(ColorBackground)
	scr := uv.NewScreenBuffer(160, 48)
	for b.Loop() {
		fb.Draw(scr, scr.Bounds())
	}
}
