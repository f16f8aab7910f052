package scene

import (
	"fmt"
	"math/rand/v2"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/math3d"
)

// GenerateOptions controls Generate. Zero fields take the defaults of
// DefaultGenerateOptions.
type GenerateOptions struct {
	Count       int     `toml:"count"`
	Seed        uint64  `toml:"seed"`
	Extent      float32 `toml:"extent"`
	MinSize     float32 `toml:"min_size"`
	MaxSize     float32 `toml:"max_size"`
	Layers      int     `toml:"layers"`
	HiddenRatio float32 `toml:"hidden_ratio"`
}

// DefaultGenerateOptions returns a few thousand boxes on a 200 unit field.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Count:   4096,
		Seed:    1,
		Extent:  100,
		MinSize: 0.5,
		MaxSize: 4,
		Layers:  4,
	}
}

func (o GenerateOptions) withDefaults() GenerateOptions {
	d := DefaultGenerateOptions()
	if o.Count == 0 {
		o.Count = d.Count
	}
	if o.Extent <= 0 {
		o.Extent = d.Extent
	}
	if o.MinSize <= 0 {
		o.MinSize = d.MinSize
	}
	if o.MaxSize < o.MinSize {
		o.MaxSize = max(d.MaxSize, o.MinSize)
	}
	if o.Layers <= 0 {
		o.Layers = d.Layers
	}
	o.Layers = min(o.Layers, 128)
	return o
}

// Generate scatters boxes over a square field centered on the origin, with
// heights in [0, Extent/10]. The same options always give the same scene.
func Generate(opts GenerateOptions) (*Scene, error) {
	opts = opts.withDefaults()
	if opts.Count < 0 || opts.Count > cull.MaxObjects {
		return nil, fmt.Errorf("generate: count %d outside [0, %d]", opts.Count, cull.MaxObjects)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	uniform := func(lo, hi float32) float32 {
		return lo + rng.Float32()*(hi-lo)
	}

	s := &Scene{
		Name:    fmt.Sprintf("generated-%d", opts.Seed),
		Objects: make([]Object, opts.Count),
	}
	for i := range s.Objects {
		size := math3d.V3(
			uniform(opts.MinSize, opts.MaxSize),
			uniform(opts.MinSize, opts.MaxSize),
			uniform(opts.MinSize, opts.MaxSize),
		)
		lo := math3d.V3(
			uniform(-opts.Extent, opts.Extent),
			uniform(0, opts.Extent/10),
			uniform(-opts.Extent, opts.Extent),
		)
		s.Objects[i] = Object{
			Name:   fmt.Sprintf("box%05d", i),
			Bounds: cull.NewAABB(lo, lo.Add(size)),
			Layer:  int8(rng.IntN(opts.Layers)),
			Hidden: rng.Float32() < opts.HiddenRatio,
		}
	}
	return s, nil
}
