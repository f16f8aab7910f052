package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chewxy/math32"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/render"
	"github.com/taigrr/culler/pkg/scene"
)

// benchResult is the timing of one cull path over a fixed set of views.
type benchResult struct {
	Name    string
	PerCull time.Duration
	Visible int
}

// benchViews is the number of camera angles each path is timed on.
const benchViews = 16

// runBench times the scalar, batched and parallel cull paths on the same
// scene and views, checks they agree, and writes a table to w.
func runBench(ctx context.Context, cfg Config, s *scene.Scene, iterations int, w io.Writer, logger *log.Logger) error {
	var p scene.Packed
	if err := s.Pack(&p); err != nil {
		return err
	}
	boxes := s.Boxes()

	cam := render.NewCamera()
	cam.SetFOV(cfg.Camera.FOV * math32.Pi / 180)
	cam.SetClipPlanes(cfg.Camera.Near, cfg.Camera.Far)
	frustums := make([]cull.Frustum, benchViews)
	for i := range frustums {
		angle := float32(i) * 2 * math32.Pi / benchViews
		cam.Orbit(cfg.Target(), cfg.Camera.Radius, cfg.Camera.Height, angle)
		frustums[i] = cam.Frustum()
	}

	want := make([][]uint16, len(frustums))
	for i := range frustums {
		want[i] = cull.CullScalar(nil, &frustums[i], boxes)
	}

	var dst []uint16
	paths := []struct {
		name string
		run  func(f *cull.Frustum) ([]uint16, error)
	}{
		{"scalar", func(f *cull.Frustum) ([]uint16, error) {
			dst = cull.CullScalar(dst, f, boxes)
			return dst, nil
		}},
		{"batch/" + cull.KernelScalar.String(), withKernel(cull.KernelScalar, func(f *cull.Frustum) ([]uint16, error) {
			dst = cull.Cull(dst, f, &p.Boxes)
			return dst, nil
		})},
		{"batch/" + cull.KernelWide.String(), withKernel(cull.KernelWide, func(f *cull.Frustum) ([]uint16, error) {
			dst = cull.Cull(dst, f, &p.Boxes)
			return dst, nil
		})},
		{"parallel", func(f *cull.Frustum) ([]uint16, error) {
			var err error
			dst, err = cull.CullParallel(ctx, dst, f, &p.Boxes, 0)
			return dst, err
		}},
	}

	results := make([]benchResult, 0, len(paths))
	for _, path := range paths {
		visible := 0
		for i := range frustums {
			got, err := path.run(&frustums[i])
			if err != nil {
				return fmt.Errorf("%s: %w", path.name, err)
			}
			if !slices.Equal(got, want[i]) {
				return fmt.Errorf("%s: view %d: %d visible, scalar has %d", path.name, i, len(got), len(want[i]))
			}
			visible += len(got)
		}

		start := time.Now()
		for range iterations {
			for i := range frustums {
				if _, err := path.run(&frustums[i]); err != nil {
					return fmt.Errorf("%s: %w", path.name, err)
				}
			}
		}
		elapsed := time.Since(start)
		r := benchResult{
			Name:    path.name,
			PerCull: elapsed / time.Duration(max(iterations*len(frustums), 1)),
			Visible: visible / len(frustums),
		}
		logger.Debug("bench path done", "path", r.Name, "per_cull", r.PerCull)
		results = append(results, r)
	}

	fmt.Fprintf(w, "%s: %d objects, %d views, %d iterations, kernel %s\n\n",
		s.Name, p.Len(), len(frustums), iterations, cull.ActiveKernel())
	fmt.Fprintf(w, "%-16s %12s %10s %9s\n", "path", "per cull", "visible", "speedup")
	base := results[0].PerCull
	for _, r := range results {
		speedup := 0.0
		if r.PerCull > 0 {
			speedup = float64(base) / float64(r.PerCull)
		}
		fmt.Fprintf(w, "%-16s %12s %10d %8.2fx\n", r.Name, r.PerCull, r.Visible, speedup)
	}
	return nil
}

// withKernel runs fn with kernel k selected.
func withKernel(k cull.Kernel, fn func(f *cull.Frustum) ([]uint16, error)) func(f *cull.Frustum) ([]uint16, error) {
	return func(f *cull.Frustum) ([]uint16, error) {
		prev := cull.SetKernel(k)
		defer cull.SetKernel(prev)
		return fn(f)
	}
}
