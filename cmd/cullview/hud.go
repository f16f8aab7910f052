package main

import (
	"fmt"
	"strings"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/render"
)

// HUD is the status line under the views.
type HUD struct {
	name     string
	fps      float64
	frames   int
	fpsStart time.Time
	stats    render.FrameStats
	gpuTime  time.Duration
	Help     bool
	Paused   bool
	Active   cull.LayerMask
	Message  string
}

// NewHUD creates a HUD for the named scene.
func NewHUD(name string) *HUD {
	return &HUD{name: name, fpsStart: time.Now(), Active: cull.AllLayers()}
}

// Update records one frame.
func (h *HUD) Update(stats render.FrameStats, last render.FrameStats) {
	h.stats = stats
	h.gpuTime = last.GPUTime
	h.frames++
	if elapsed := time.Since(h.fpsStart); elapsed >= time.Second {
		h.fps = float64(h.frames) / elapsed.Seconds()
		h.frames = 0
		h.fpsStart = time.Now()
	}
}

const (
	reset    = "\x1b[0m"
	bold     = "\x1b[1m"
	dim      = "\x1b[2m"
	fgGreen  = "\x1b[92m"
	fgYellow = "\x1b[93m"
	fgCyan   = "\x1b[96m"
	fgWhite  = "\x1b[97m"
)

const helpLine = "←/→ orbit  ↑/↓ height  +/- zoom  space pause  0-7 layers  p snapshot  r reset  ? help  esc quit"

// String renders the status line with ANSI styling.
func (h *HUD) String() string {
	if h.Help {
		return dim + fgWhite + helpLine + reset
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s%.0f fps%s ", bold, fgGreen, h.fps, reset)
	fmt.Fprintf(&b, "%s%s%s ", fgWhite, h.name, reset)
	fmt.Fprintf(&b, "%s%d/%d visible%s ", fgGreen, h.stats.Visible, h.stats.Objects, reset)
	if len(h.stats.Casters) > 0 {
		casters := make([]string, len(h.stats.Casters))
		for i, n := range h.stats.Casters {
			casters[i] = fmt.Sprint(n)
		}
		fmt.Fprintf(&b, "%scasters %s%s ", fgYellow, strings.Join(casters, "/"), reset)
	}
	fmt.Fprintf(&b, "%scull %s gpu %s %s%s ", fgCyan, h.stats.CullTime.Round(time.Microsecond),
		h.gpuTime.Round(time.Microsecond), cull.ActiveKernel(), reset)
	fmt.Fprintf(&b, "%slayers %s%s", dim, layerString(h.Active), reset)
	if h.Paused {
		fmt.Fprintf(&b, " %s%spaused%s", bold, fgYellow, reset)
	}
	if h.Message != "" {
		fmt.Fprintf(&b, " %s%s", h.Message, reset)
	}
	return b.String()
}

// Draw puts the status line in area.
func (h *HUD) Draw(scr uv.Screen, area uv.Rectangle) {
	uv.NewStyledString(h.String()).Draw(scr, area)
}

// layerString shows the first eight layers as digits, with a dot for each
// inactive one.
func layerString(m cull.LayerMask) string {
	var b [8]byte
	for i := range b {
		b[i] = '.'
		if m.Has(int8(i)) {
			b[i] = byte('0' + i)
		}
	}
	return string(b[:])
}
