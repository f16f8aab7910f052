package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/math3d"
	"github.com/taigrr/culler/pkg/rhi"
	"github.com/taigrr/culler/pkg/scene"
)

// Config is the cullview configuration file.
type Config struct {
	// Present copies every frame into a swap chain.
	Present   bool              `toml:"present"`
	Log       LogConfig         `toml:"log"`
	Device    rhi.DeviceDesc    `toml:"device"`
	SwapChain rhi.SwapChainDesc `toml:"swap_chain"`
	Camera    CameraConfig      `toml:"camera"`
	Scene     SceneConfig       `toml:"scene"`
	Shadow    ShadowConfig      `toml:"shadow"`
}

type LogConfig struct {
	Level        string `toml:"level"`
	ReportCaller bool   `toml:"report_caller"`
}

// CameraConfig places the orbiting camera. Angles are in degrees.
type CameraConfig struct {
	FOV    float32    `toml:"fov"`
	Near   float32    `toml:"near"`
	Far    float32    `toml:"far"`
	Target [3]float32 `toml:"target"`
	Radius float32    `toml:"radius"`
	Height float32    `toml:"height"`
	// Speed is the orbit rate in degrees per second.
	Speed float32 `toml:"speed"`
	// Stiffness is the angular frequency of the springs that smooth the
	// orbit; higher follows input faster.
	Stiffness float32 `toml:"stiffness"`
}

// SceneConfig selects the objects to cull. A non-empty GLTF path takes
// precedence over the generator.
type SceneConfig struct {
	GLTF         string                `toml:"gltf"`
	LayerByDepth bool                  `toml:"layer_by_depth"`
	ActiveLayers []int8                `toml:"active_layers"`
	Generate     scene.GenerateOptions `toml:"generate"`
}

type ShadowConfig struct {
	Cascades       int        `toml:"cascades"`
	SplitLambda    float32    `toml:"split_lambda"`
	LightDirection [3]float32 `toml:"light_direction"`
}

// DefaultConfig returns the settings used for keys missing from the file.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		SwapChain: rhi.SwapChainDesc{
			BufferCount:          2,
			MaximumFrameLatency:  1,
			FrameLatencyWaitable: true,
		},
		Camera: CameraConfig{
			FOV:       60,
			Near:      0.5,
			Far:       250,
			Radius:    140,
			Height:    45,
			Speed:     10,
			Stiffness: 4,
		},
		Scene: SceneConfig{
			Generate: scene.DefaultGenerateOptions(),
		},
		Shadow: ShadowConfig{
			Cascades:       3,
			SplitLambda:    0.6,
			LightDirection: [3]float32{-0.4, -1, -0.3},
		},
	}
}

// ActiveLayers returns the layer mask of the scene section. An empty list
// enables every layer.
func (c *Config) ActiveLayers() cull.LayerMask {
	if len(c.Scene.ActiveLayers) == 0 {
		return cull.AllLayers()
	}
	return cull.Layers(c.Scene.ActiveLayers...)
}

// LightDir returns the shadow light direction as a vector.
func (c *Config) LightDir() math3d.Vec3 {
	d := c.Shadow.LightDirection
	return math3d.V3(d[0], d[1], d[2])
}

// Target returns the orbit center.
func (c *Config) Target() math3d.Vec3 {
	t := c.Camera.Target
	return math3d.V3(t[0], t[1], t[2])
}

func (c *Config) validate() error {
	cam := &c.Camera
	var errs []error
	if cam.FOV <= 0 || cam.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov %v outside (0, 180)", cam.FOV))
	}
	if cam.Near <= 0 || cam.Far <= cam.Near {
		errs = append(errs, fmt.Errorf("camera clip planes %v..%v must satisfy 0 < near < far", cam.Near, cam.Far))
	}
	if cam.Stiffness <= 0 {
		errs = append(errs, fmt.Errorf("camera.stiffness %v must be positive", cam.Stiffness))
	}
	if c.Shadow.Cascades < 0 || c.Shadow.Cascades > 8 {
		errs = append(errs, fmt.Errorf("shadow.cascades %d outside [0, 8]", c.Shadow.Cascades))
	}
	if c.Shadow.SplitLambda < 0 || c.Shadow.SplitLambda > 1 {
		errs = append(errs, fmt.Errorf("shadow.split_lambda %v outside [0, 1]", c.Shadow.SplitLambda))
	}
	for _, l := range c.Scene.ActiveLayers {
		if l < 0 {
			errs = append(errs, fmt.Errorf("scene.active_layers: negative layer %d", l))
		}
	}
	if n := c.Scene.Generate.Count; n < 0 || n > cull.MaxObjects {
		errs = append(errs, fmt.Errorf("scene.generate.count %d outside [0, %d]", n, cull.MaxObjects))
	}
	return errors.Join(errs...)
}

// ParseConfig decodes a TOML document over the defaults and rejects
// unknown keys.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		var missing *toml.StrictMissingError
		if errors.As(err, &missing) {
			keys := make([]string, len(missing.Errors))
			for i := range missing.Errors {
				keys[i] = strings.Join(missing.Errors[i].Key(), ".")
			}
			return Config{}, fmt.Errorf("unknown keys %s", strings.Join(keys, ", "))
		}
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads path. An empty path gives the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// configDebounce coalesces the bursts of events editors produce on save.
const configDebounce = 100 * time.Millisecond

// WatchConfig reloads path whenever it changes and sends every config that
// parses. The directory is watched rather than the file so that editors
// replacing the file by rename keep being seen. The channel closes when
// ctx is done.
func WatchConfig(ctx context.Context, path string, logger *log.Logger) (<-chan Config, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch config: %w", err)
	}

	out := make(chan Config)
	go func() {
		defer close(out)
		defer w.Close()

		timer := time.NewTimer(configDebounce)
		timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return

			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != path || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				timer.Reset(configDebounce)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("config watcher", "err", err)

			case <-timer.C:
				cfg, err := LoadConfig(path)
				if err != nil {
					logger.Error("config not reloaded", "err", err)
					continue
				}
				logger.Info("config reloaded", "path", path)
				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
