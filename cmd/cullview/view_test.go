package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/culler/pkg/logging"
	"github.com/taigrr/culler/pkg/math3d"
	"github.com/taigrr/culler/pkg/render"
	"github.com/taigrr/culler/pkg/scene"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Device.EnableDebugLayer = true
	cfg.Scene.Generate = scene.GenerateOptions{Count: 300, Seed: 3, Extent: 30, HiddenRatio: 0.1}
	cfg.Camera.Radius = 60
	cfg.Camera.Height = 20
	return cfg
}

func TestOrbitSettles(t *testing.T) {
	cfg := testConfig().Camera
	cfg.Speed = 0
	o := NewOrbit(cfg, 60)
	if o.Radius.Position != 60 || o.Height.Position != 20 {
		t.Fatalf("orbit starts at radius %v height %v", o.Radius.Position, o.Height.Position)
	}

	o.Zoom(0.5)
	o.Raise(10)
	o.Rotate(1)
	for range 600 {
		o.Step()
	}
	if math.Abs(o.Radius.Position-30) > 1e-3 || math.Abs(o.Height.Position-30) > 1e-3 || math.Abs(o.Angle.Position-1) > 1e-3 {
		t.Errorf("orbit settled at radius %v height %v angle %v", o.Radius.Position, o.Height.Position, o.Angle.Position)
	}

	cam := render.NewCamera()
	o.Apply(cam, math3d.Zero3())
	want := math3d.V3(30*float32(math.Sin(1)), 30, 30*float32(math.Cos(1)))
	if cam.Position.Distance(want) > 1e-2 {
		t.Errorf("camera at %v, want %v", cam.Position, want)
	}

	o.Reset()
	if o.Radius.Position != 60 || o.Angle.Position != 0 {
		t.Errorf("Reset left radius %v angle %v", o.Radius.Position, o.Angle.Position)
	}
}

func TestOrbitZoomClamps(t *testing.T) {
	o := NewOrbit(testConfig().Camera, 30)
	for range 100 {
		o.Zoom(0.5)
	}
	if o.Radius.Target != minOrbitRadius {
		t.Errorf("radius target = %v, want %v", o.Radius.Target, float64(minOrbitRadius))
	}
	for range 100 {
		o.Zoom(2)
	}
	if o.Radius.Target != maxOrbitRadius {
		t.Errorf("radius target = %v, want %v", o.Radius.Target, float64(maxOrbitRadius))
	}
}

func TestOrbitPause(t *testing.T) {
	o := NewOrbit(testConfig().Camera, 30)
	o.Step()
	if o.Angle.Target <= 0 {
		t.Fatal("a running orbit should advance")
	}
	o.Paused = true
	before := o.Angle.Target
	o.Step()
	if o.Angle.Target != before {
		t.Error("a paused orbit advanced")
	}
}

func TestLayout(t *testing.T) {
	tests := []struct {
		w, h                    int
		view, overview, pixRows int
	}{
		{80, 25, 40, 40, 48},
		{81, 10, 40, 41, 18},
		{1, 1, 1, 1, 2},
	}
	for _, tt := range tests {
		view, overview, rows := layout(tt.w, tt.h)
		if view != tt.view || overview != tt.overview || rows != tt.pixRows {
			t.Errorf("layout(%d, %d) = %d, %d, %d, want %d, %d, %d",
				tt.w, tt.h, view, overview, rows, tt.view, tt.overview, tt.pixRows)
		}
	}
}

func newTestView(t *testing.T, cfg Config) *View {
	t.Helper()
	s, err := loadScene(cfg.Scene)
	if err != nil {
		t.Fatal(err)
	}
	v, err := NewView(cfg, s, 30, 40, 13, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(v.Close)
	return v
}

func TestViewFrame(t *testing.T) {
	v := newTestView(t, testConfig())
	ctx := context.Background()
	for range 3 {
		if err := v.Frame(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if v.hud.stats.Objects != 300 {
		t.Errorf("HUD saw %d objects, want 300", v.hud.stats.Objects)
	}
	if len(v.hud.stats.Casters) != 3 {
		t.Errorf("HUD saw %d cascades, want 3", len(v.hud.stats.Casters))
	}

	scr := uv.NewScreenBuffer(40, 13)
	v.Draw(scr)
	if cell := scr.CellAt(0, 0); cell == nil || cell.Content != "▀" {
		t.Errorf("view cell = %+v", cell)
	}
	if cell := scr.CellAt(20, 0); cell == nil || cell.Content != "▀" {
		t.Errorf("overview cell = %+v", cell)
	}
	if cell := scr.CellAt(0, 12); cell == nil || cell.Content == "▀" {
		t.Errorf("status row cell = %+v", cell)
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := v.Snapshot(path); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestViewLayersAndResize(t *testing.T) {
	v := newTestView(t, testConfig())
	for l := range int8(4) {
		v.ToggleLayer(l)
	}
	if err := v.Frame(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v.hud.stats.Visible != 0 {
		t.Errorf("%d visible with every generated layer off", v.hud.stats.Visible)
	}
	if !strings.HasPrefix(layerString(v.active), "....4567") {
		t.Errorf("layers shown as %q", layerString(v.active))
	}

	if err := v.Resize(60, 21); err != nil {
		t.Fatal(err)
	}
	if err := v.Frame(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := v.r.Sync(); err != nil {
		t.Fatal(err)
	}
	if fb := v.r.Framebuffer(); fb.Width != 30 || fb.Height != 40 {
		t.Errorf("renderer is %dx%d after resize, want 30x40", fb.Width, fb.Height)
	}
}

func TestViewReconfigure(t *testing.T) {
	v := newTestView(t, testConfig())
	cfg := testConfig()
	cfg.Scene.Generate.Count = 50
	cfg.Scene.ActiveLayers = []int8{1}
	cfg.Shadow.Cascades = 1
	if err := v.Reconfigure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := v.Frame(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v.hud.stats.Objects != 50 || len(v.hud.stats.Casters) != 1 {
		t.Errorf("after reload: %d objects, %d cascades", v.hud.stats.Objects, len(v.hud.stats.Casters))
	}
	if v.active.Has(0) || !v.active.Has(1) {
		t.Error("active layers not reloaded")
	}

	bad := testConfig()
	bad.Scene.GLTF = filepath.Join(t.TempDir(), "missing.glb")
	if err := v.Reconfigure(bad); err == nil {
		t.Error("expected an error for a missing scene file")
	}
	if v.scene.Len() != 50 {
		t.Errorf("failed reload replaced the scene")
	}
}

func TestRunBench(t *testing.T) {
	cfg := testConfig()
	s, err := loadScene(cfg.Scene)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := runBench(context.Background(), cfg, s, 2, &out, logging.Discard()); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"scalar", "batch/scalar", "batch/wide", "parallel", "300 objects"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("bench output lacks %q:\n%s", want, out.String())
		}
	}
}
