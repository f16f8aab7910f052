// cullview - Frustum culling in the terminal
// Orbits a camera around a scene of boxes, culls them every frame and draws
// the visible ones as wireframes through the software RHI device, next to
// a top-down overview of what was kept, culled or cast into the shadow
// cascades.
//
// Controls:
//
//	←/→ or A/D  - Orbit left/right
//	↑/↓ or W/S  - Raise/lower the camera
//	Scroll, +/- - Zoom in/out
//	Space       - Pause the orbit
//	0-7         - Toggle layers
//	P           - Save the current frame as PNG
//	R           - Reset the camera
//	?           - Toggle help
//	Esc, Q      - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/chewxy/math32"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/logging"
	"github.com/taigrr/culler/pkg/math3d"
	"github.com/taigrr/culler/pkg/render"
	"github.com/taigrr/culler/pkg/rhi"
	"github.com/taigrr/culler/pkg/rhi/soft"
	"github.com/taigrr/culler/pkg/scene"
)

var (
	configPath = flag.String("config", "", "Path to a TOML config file")
	watch      = flag.Bool("watch", false, "Reload the config file when it changes")
	targetFPS  = flag.Int("fps", 30, "Target FPS")
	logPath    = flag.String("log", "", "Append logs to this file while the viewer runs")
	bench      = flag.Bool("bench", false, "Compare the cull paths on the configured scene and exit")
	iterations = flag.Int("iterations", 200, "Iterations per view in -bench mode")
	snapshot   = flag.String("snapshot", "", "Render one frame to this PNG file and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cullview - Frustum culling in the terminal\n\n")
		fmt.Fprintf(os.Stderr, "Usage: cullview [options] [scene.glb|scene.gltf]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  ←/→ ↑/↓     - Orbit and raise the camera\n")
		fmt.Fprintf(os.Stderr, "  Scroll, +/- - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  Space       - Pause the orbit\n")
		fmt.Fprintf(os.Stderr, "  0-7         - Toggle layers\n")
		fmt.Fprintf(os.Stderr, "  P           - Save a PNG snapshot\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset the camera\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if flag.NArg() > 0 {
		cfg.Scene.GLTF = flag.Arg(0)
	}
	if *targetFPS <= 0 {
		return fmt.Errorf("invalid -fps %d", *targetFPS)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The viewer owns the terminal, so it only logs to a file.
	var logOut io.Writer = os.Stderr
	viewer := !*bench && *snapshot == ""
	if viewer {
		logOut = io.Discard
		if *logPath != "" {
			f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			defer f.Close()
			logOut = f
		}
	}
	logger := logging.New(logOut, logging.Options{
		Prefix:       "cullview",
		Level:        cfg.Log.Level,
		ReportCaller: cfg.Log.ReportCaller,
	})

	s, err := loadScene(cfg.Scene)
	if err != nil {
		return err
	}
	logger.Info("scene loaded", "name", s.Name, "objects", s.Len(), "kernel", cull.ActiveKernel())

	switch {
	case *bench:
		return runBench(ctx, cfg, s, *iterations, os.Stdout, logger)
	case *snapshot != "":
		return runSnapshot(ctx, cfg, s, *snapshot, logger)
	}

	var reloads <-chan Config
	if *watch && *configPath != "" {
		reloads, err = WatchConfig(ctx, *configPath, logger)
		if err != nil {
			return err
		}
	}
	return runViewer(ctx, cfg, s, reloads, logger)
}

func loadScene(cfg SceneConfig) (*scene.Scene, error) {
	if cfg.GLTF != "" {
		l := scene.NewGLTFLoader()
		l.LayerByDepth = cfg.LayerByDepth
		return l.Load(cfg.GLTF)
	}
	return scene.Generate(cfg.Generate)
}

// View holds everything one viewer session draws with.
type View struct {
	cfg    Config
	log    *log.Logger
	dev    *rhi.Device
	r      *render.Renderer
	cam    *render.Camera
	orbit  *Orbit
	hud    *HUD
	scene  *scene.Scene
	packed scene.Packed

	overview   *render.Overview
	overviewFB *render.Framebuffer
	active     cull.LayerMask

	// Terminal size in cells.
	width, height int
}

// layout splits the terminal into the rendered view on the left and the
// overview on the right, above one status row. Each cell holds two pixel
// rows.
func layout(width, height int) (viewW, overviewW, pixelRows int) {
	viewW = max(width/2, 1)
	overviewW = max(width-viewW, 1)
	pixelRows = max(2*(height-1), 2)
	return viewW, overviewW, pixelRows
}

// NewView creates the device and renderer for a terminal of the given size.
func NewView(cfg Config, s *scene.Scene, fps, width, height int, logger *log.Logger) (*View, error) {
	dev, err := rhi.NewDevice(cfg.Device, soft.New(), rhi.WithLogger(logger.WithPrefix("rhi")))
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	logger.Debug("device created", "id", dev.ID(), "debug_layer", cfg.Device.EnableDebugLayer)

	viewW, overviewW, rows := layout(width, height)
	r, err := render.NewRenderer(dev, render.Options{
		Width:       viewW,
		Height:      rows,
		Present:     cfg.Present,
		SwapChain:   cfg.SwapChain,
		Cascades:    cfg.Shadow.Cascades,
		SplitLambda: cfg.Shadow.SplitLambda,
		LightDir:    cfg.LightDir(),
	})
	if err != nil {
		dev.Close()
		return nil, err
	}

	v := &View{
		cfg:        cfg,
		log:        logger,
		dev:        dev,
		r:          r,
		cam:        render.NewCamera(),
		orbit:      NewOrbit(cfg.Camera, fps),
		hud:        NewHUD(s.Name),
		overviewFB: render.NewFramebuffer(overviewW, rows),
		active:     cfg.ActiveLayers(),
		width:      width,
		height:     height,
	}
	v.hud.Active = v.active
	if err := v.setScene(s); err != nil {
		v.Close()
		return nil, err
	}
	v.configureCamera()
	v.cam.SetAspectRatio(float32(viewW) / float32(rows))
	return v, nil
}

func (v *View) setScene(s *scene.Scene) error {
	if err := s.Pack(&v.packed); err != nil {
		return err
	}
	v.scene = s
	// Leave room for the camera path around the scene.
	r := math3d.Splat3(v.cfg.Camera.Radius)
	ring := cull.NewAABB(v.cfg.Target().Sub(r), v.cfg.Target().Add(r))
	v.overview = render.NewOverview(s.Bounds().Union(ring))
	return nil
}

func (v *View) configureCamera() {
	c := v.cfg.Camera
	v.cam.SetFOV(c.FOV * math32.Pi / 180)
	v.cam.SetClipPlanes(c.Near, c.Far)
}

// Resize follows a terminal resize.
func (v *View) Resize(width, height int) error {
	viewW, overviewW, rows := layout(width, height)
	if err := v.r.Resize(viewW, rows); err != nil {
		return err
	}
	v.overviewFB = render.NewFramebuffer(overviewW, rows)
	v.cam.SetAspectRatio(float32(viewW) / float32(rows))
	v.width, v.height = width, height
	return nil
}

// Reconfigure applies a reloaded config. Device and swap chain settings
// only take effect on restart.
func (v *View) Reconfigure(cfg Config) error {
	if cfg.Device != v.cfg.Device || cfg.SwapChain != v.cfg.SwapChain || cfg.Present != v.cfg.Present {
		v.log.Warn("device and swap chain changes apply on restart")
	}
	level := logging.ParseLevel(cfg.Log.Level)
	v.log.SetLevel(level)
	v.dev.Logger().SetLevel(level)

	sceneChanged := cfg.Scene.GLTF != v.cfg.Scene.GLTF ||
		cfg.Scene.LayerByDepth != v.cfg.Scene.LayerByDepth ||
		cfg.Scene.Generate != v.cfg.Scene.Generate
	s := v.scene
	if sceneChanged {
		var err error
		if s, err = loadScene(cfg.Scene); err != nil {
			return err
		}
	}
	v.cfg = cfg
	if err := v.setScene(s); err != nil {
		return err
	}
	if sceneChanged {
		v.hud = NewHUD(s.Name)
	}
	v.active = cfg.ActiveLayers()
	v.hud.Active = v.active
	v.orbit.Configure(cfg.Camera)
	v.configureCamera()
	v.r.SetShadows(cfg.Shadow.Cascades, cfg.Shadow.SplitLambda, cfg.LightDir())
	return nil
}

// Frame advances the orbit, culls and renders.
func (v *View) Frame(ctx context.Context) error {
	v.orbit.Step()
	v.orbit.Apply(v.cam, v.cfg.Target())
	stats, err := v.r.Render(ctx, v.cam, &v.packed, v.active)
	if err != nil {
		return err
	}
	f := v.cam.Frustum()
	v.overview.Draw(v.overviewFB, &v.packed, v.r.Visible(), v.r.Casters(), &f)
	v.hud.Update(stats, v.r.LastStats())
	v.hud.Paused = v.orbit.Paused
	return nil
}

// Draw puts both views and the status line on scr.
func (v *View) Draw(scr uv.Screen) {
	fb := v.r.Framebuffer()
	rows := v.height - 1
	fb.Draw(scr, uv.Rect(0, 0, fb.Width, rows))
	v.overviewFB.Draw(scr, uv.Rect(fb.Width, 0, v.overviewFB.Width, rows))
	v.hud.Draw(scr, uv.Rect(0, rows, v.width, 1))
}

// Snapshot waits for the newest frame and writes it to path.
func (v *View) Snapshot(path string) error {
	if err := v.r.Sync(); err != nil {
		return err
	}
	if err := v.r.Framebuffer().SavePNG(path); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	v.log.Info("snapshot saved", "path", path, "frame", v.r.LastStats().Frame)
	return nil
}

// ToggleLayer flips one layer of the active mask.
func (v *View) ToggleLayer(layer int8) {
	if v.active.Has(layer) {
		v.active = v.active.Without(layer)
	} else {
		v.active = v.active.With(layer)
	}
	v.hud.Active = v.active
}

// Close releases the renderer and the device.
func (v *View) Close() {
	v.r.Close()
	if err := v.dev.Close(); err != nil {
		v.log.Error("close device", "err", err)
	}
	v.log.Debug("device closed", "id", v.dev.ID())
}

// runSnapshot renders a single frame without a terminal.
func runSnapshot(ctx context.Context, cfg Config, s *scene.Scene, path string, logger *log.Logger) error {
	v, err := NewView(cfg, s, *targetFPS, 80, 25, logger)
	if err != nil {
		return err
	}
	defer v.Close()
	if err := v.Frame(ctx); err != nil {
		return err
	}
	return v.Snapshot(path)
}

func runViewer(ctx context.Context, cfg Config, s *scene.Scene, reloads <-chan Config, logger *log.Logger) error {
	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	v, err := NewView(cfg, s, *targetFPS, width, height, logger)
	if err != nil {
		return err
	}
	defer v.Close()

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	if err := term.Resize(width, height); err != nil {
		return fmt.Errorf("resize terminal: %w", err)
	}
	defer func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}()

	ticker := time.NewTicker(time.Second / time.Duration(*targetFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case cfg, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			if err := v.Reconfigure(cfg); err != nil {
				logger.Error("apply config", "err", err)
				v.hud.Message = fgYellow + "config: " + err.Error()
			}

		case ev := <-term.Events():
			quit, err := v.handle(term, ev)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}

		case <-ticker.C:
			if err := v.Frame(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			v.Draw(term)
			if err := term.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		}
	}
}

// handle applies one terminal event and reports whether to quit.
func (v *View) handle(term *uv.Terminal, ev uv.Event) (bool, error) {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		term.Erase()
		if err := term.Resize(ev.Width, ev.Height); err != nil {
			return false, fmt.Errorf("resize terminal: %w", err)
		}
		if err := v.Resize(ev.Width, ev.Height); err != nil {
			return false, err
		}

	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("esc", "ctrl+c", "q"):
			return true, nil
		case ev.MatchString("left", "a"):
			v.orbit.Rotate(-0.2)
		case ev.MatchString("right", "d"):
			v.orbit.Rotate(0.2)
		case ev.MatchString("up", "w"):
			v.orbit.Raise(5)
		case ev.MatchString("down", "s"):
			v.orbit.Raise(-5)
		case ev.MatchString("+", "="):
			v.orbit.Zoom(0.9)
		case ev.MatchString("-", "_"):
			v.orbit.Zoom(1.1)
		case ev.MatchString("space"):
			v.orbit.Paused = !v.orbit.Paused
		case ev.MatchString("r"):
			v.orbit.Reset()
		case ev.MatchString("p"):
			path := fmt.Sprintf("cullview-%d.png", v.r.LastStats().Frame)
			v.hud.Message = fgCyan + "saved " + path
			if err := v.Snapshot(path); err != nil {
				v.log.Error("snapshot", "err", err)
				v.hud.Message = fgYellow + err.Error()
			}
		case ev.MatchString("?", "shift+/"):
			v.hud.Help = !v.hud.Help
		case ev.MatchString("0", "1", "2", "3", "4", "5", "6", "7"):
			v.ToggleLayer(int8(ev.Code - '0'))
		}

	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			v.orbit.Zoom(0.9)
		case uv.MouseWheelDown:
			v.orbit.Zoom(1.1)
		}
	}
	return false, nil
}
