package render

import (
	"context"
	"testing"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/math3d"
	"github.com/taigrr/culler/pkg/rhi"
	"github.com/taigrr/culler/pkg/rhi/soft"
	"github.com/taigrr/culler/pkg/scene"
)

func newTestRenderer(t *testing.T, opts Options) (*Renderer, *soft.Backend) {
	t.Helper()
	b := soft.New()
	dev, err := rhi.NewDevice(rhi.DeviceDesc{EnableDebugLayer: true}, b)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Width == 0 {
		opts.Width, opts.Height = 64, 48
	}
	r, err := NewRenderer(dev, opts)
	if err != nil {
		dev.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		r.Close()
		if err := dev.Close(); err != nil {
			t.Error(err)
		}
	})
	return r, b
}

func pack(t *testing.T, objects ...scene.Object) *scene.Packed {
	t.Helper()
	var p scene.Packed
	if err := (&scene.Scene{Objects: objects}).Pack(&p); err != nil {
		t.Fatal(err)
	}
	return &p
}

func countColor(fb *Framebuffer, c Color) int {
	n := 0
	for y := range fb.Height {
		for x := range fb.Width {
			if fb.GetPixel(x, y) == c {
				n++
			}
		}
	}
	return n
}

func render(t *testing.T, r *Renderer, cam *Camera, p *scene.Packed, active cull.LayerMask) FrameStats {
	t.Helper()
	stats, err := r.Render(context.Background(), cam, p, active)
	if err != nil {
		t.Fatal(err)
	}
	return stats
}

func TestRenderDrawsVisibleBoxes(t *testing.T) {
	r, b := newTestRenderer(t, Options{})
	cam := testCamera()
	p := pack(t,
		scene.Object{Name: "center", Bounds: cull.NewAABB(math3d.Splat3(-1), math3d.Splat3(1))},
		scene.Object{Name: "behind", Bounds: cull.NewAABB(math3d.V3(-1, -1, 19), math3d.V3(1, 1, 21))},
	)

	stats := render(t, r, cam, p, cull.AllLayers())
	if stats.Objects != 2 || stats.Visible != 1 {
		t.Fatalf("stats = %+v, want 1 of 2 visible", stats)
	}
	if got := r.Visible(); len(got) != 1 || got[0] != 0 {
		t.Errorf("Visible() = %v, want [0]", got)
	}
	if err := r.Sync(); err != nil {
		t.Fatal(err)
	}

	fb := r.Framebuffer()
	if countColor(fb, ColorVisible) == 0 {
		t.Error("no wireframe pixels in the frame")
	}
	// The box spans the middle of the view; the corners stay clear.
	if got := fb.GetPixel(0, 0); got != ColorBackground {
		t.Errorf("corner pixel = %v, want background", got)
	}
	if last := r.LastStats(); last.Frame != stats.Frame || last.Visible != 1 {
		t.Errorf("LastStats() = %+v, want frame %d", last, stats.Frame)
	}
	if msgs := b.Messages(); len(msgs) != 0 {
		t.Errorf("debug layer messages: %v", msgs)
	}
	if s := b.Stats(); s.Draws != 1 || s.Primitives != 12 {
		t.Errorf("backend drew %d draws, %d primitives, want 1 and 12", s.Draws, s.Primitives)
	}
}

func TestRenderFiltersHiddenAndLayers(t *testing.T) {
	r, b := newTestRenderer(t, Options{})
	cam := testCamera()
	box := cull.NewAABB(math3d.Splat3(-1), math3d.Splat3(1))
	p := pack(t,
		scene.Object{Bounds: box, Hidden: true},
		scene.Object{Bounds: box, Layer: 3},
	)

	stats := render(t, r, cam, p, cull.Layers(0, 1))
	if stats.Visible != 0 {
		t.Fatalf("Visible = %d, want 0", stats.Visible)
	}
	if err := r.Sync(); err != nil {
		t.Fatal(err)
	}
	fb := r.Framebuffer()
	if n := countColor(fb, ColorBackground); n != fb.Width*fb.Height {
		t.Errorf("%d background pixels, want all %d", n, fb.Width*fb.Height)
	}
	if s := b.Stats(); s.Draws != 0 {
		t.Errorf("Draws = %d, want 0", s.Draws)
	}

	stats = render(t, r, cam, p, cull.Layers(3))
	if stats.Visible != 1 {
		t.Errorf("Visible = %d with layer 3 active, want 1", stats.Visible)
	}
}

func TestRenderGrowsEdgeBuffer(t *testing.T) {
	r, b := newTestRenderer(t, Options{})
	s, err := scene.Generate(scene.GenerateOptions{Count: 600, Seed: 9, Extent: 20})
	if err != nil {
		t.Fatal(err)
	}
	var p scene.Packed
	if err := s.Pack(&p); err != nil {
		t.Fatal(err)
	}
	cam := NewCamera()
	cam.SetClipPlanes(0.1, 500)
	cam.SetAspectRatio(64.0 / 48)
	cam.Orbit(math3d.Zero3(), 80, 60, 0.3)

	few := pack(t, s.Objects[:10]...)
	first := render(t, r, cam, few, cull.AllLayers())
	stats := render(t, r, cam, &p, cull.AllLayers())
	if stats.Visible <= 256 {
		t.Fatalf("Visible = %d, want more than the initial edge capacity", stats.Visible)
	}
	if err := r.Sync(); err != nil {
		t.Fatal(err)
	}
	if msgs := b.Messages(); len(msgs) != 0 {
		t.Errorf("debug layer messages: %v", msgs)
	}
	want := uint64(12 * (first.Visible + stats.Visible))
	if got := b.Stats().Primitives; got != want {
		t.Errorf("Primitives = %d, want %d", got, want)
	}
	if r.dev.PooledCopyLists() == 0 {
		t.Error("upload copy list was not returned to the pool")
	}
}

func TestRenderPresents(t *testing.T) {
	r, b := newTestRenderer(t, Options{
		Present:   true,
		SwapChain: rhi.SwapChainDesc{BufferCount: 2, MaximumFrameLatency: 1, FrameLatencyWaitable: true},
	})
	cam := testCamera()
	p := pack(t, scene.Object{Bounds: cull.NewAABB(math3d.Splat3(-1), math3d.Splat3(1))})

	for range 3 {
		render(t, r, cam, p, cull.AllLayers())
	}
	if err := r.Sync(); err != nil {
		t.Fatal(err)
	}
	if s := b.Stats(); s.Presents != 3 {
		t.Errorf("Presents = %d, want 3", s.Presents)
	}
	if msgs := b.Messages(); len(msgs) != 0 {
		t.Errorf("debug layer messages: %v", msgs)
	}
}

func TestRenderCullsCascadeCasters(t *testing.T) {
	r, _ := newTestRenderer(t, Options{Cascades: 2, SplitLambda: 0.5, LightDir: math3d.V3(0, -1, 0)})
	cam := testCamera()
	p := pack(t,
		scene.Object{Bounds: cull.NewAABB(math3d.Splat3(-1), math3d.Splat3(1))},
		// Far above the view: no longer visible, but it shades the slices.
		scene.Object{Bounds: cull.NewAABB(math3d.V3(-1, 200, -1), math3d.V3(1, 202, 1))},
	)
	stats := render(t, r, cam, p, cull.AllLayers())
	if stats.Visible != 1 {
		t.Errorf("Visible = %d, want 1", stats.Visible)
	}
	if len(stats.Casters) != 2 || len(r.Cascades()) != 2 || len(r.Casters()) != 2 {
		t.Fatalf("got %d cascades, want 2", len(stats.Casters))
	}
	found := false
	for _, list := range r.Casters() {
		for _, i := range list {
			if i == 1 {
				found = true
			}
		}
	}
	if !found {
		t.Error("the box above the view was never a shadow caster")
	}
}

func TestRenderResize(t *testing.T) {
	r, b := newTestRenderer(t, Options{})
	cam := testCamera()
	p := pack(t, scene.Object{Bounds: cull.NewAABB(math3d.Splat3(-1), math3d.Splat3(1))})
	render(t, r, cam, p, cull.AllLayers())

	if err := r.Resize(32, 20); err != nil {
		t.Fatal(err)
	}
	if err := r.Resize(0, 20); err == nil {
		t.Error("expected an error for a zero width")
	}
	cam.SetAspectRatio(32.0 / 20)
	render(t, r, cam, p, cull.AllLayers())
	if err := r.Sync(); err != nil {
		t.Fatal(err)
	}
	fb := r.Framebuffer()
	if fb.Width != 32 || fb.Height != 20 {
		t.Errorf("framebuffer is %dx%d, want 32x20", fb.Width, fb.Height)
	}
	if countColor(fb, ColorVisible) == 0 {
		t.Error("no wireframe after resize")
	}
	if msgs := b.Messages(); len(msgs) != 0 {
		t.Errorf("debug layer messages: %v", msgs)
	}
}

func BenchmarkRender(b *testing.B) {
	dev, err := rhi.NewDevice(rhi.DeviceDesc{}, soft.New())
	if err != nil {
		b.Fatal(err)
	}
	defer dev.Close()
	r, err := NewRenderer(dev, Options{Width: 160, Height: 96, Cascades: 3, SplitLambda: 0.5, LightDir: math3d.V3(-1, -2, -1)})
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()

	s, err := scene.Generate(scene.DefaultGenerateOptions())
	if err != nil {
		b.Fatal(err)
	}
	var p scene.Packed
	if err := s.Pack(&p); err != nil {
		b.Fatal(err)
	}
	cam := NewCamera()
	cam.Orbit(math3d.Zero3(), 120, 30, 0)
	ctx := context.Background()
	for b.Loop() {
		if _, err := r.Render(ctx, cam, &p, cull.AllLayers()); err != nil {
			b.Fatal(err)
		}
	}
}
