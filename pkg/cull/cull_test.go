package cull

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/taigrr/culler/pkg/math3d"
)

// randomScene returns a camera frustum and n boxes scattered around it. A
// few boxes are inverted or carry NaN components.
func randomScene(rng *rand.Rand, n int) (Frustum, []AABB) {
	coord := func(r float32) float32 { return (rng.Float32()*2 - 1) * r }

	eye := math3d.V3(coord(20), coord(20), coord(20))
	target := math3d.V3(coord(5), coord(5), coord(5))
	view := math3d.LookAt(eye, target, math3d.Up())
	proj := math3d.Perspective(0.4+rng.Float32()*1.2, 0.5+rng.Float32()*1.5, 0.1+rng.Float32(), 20+rng.Float32()*80)
	f := NewFrustum(proj.Mul(view).Inverse())

	boxes := make([]AABB, n)
	for i := range boxes {
		center := math3d.V3(coord(60), coord(60), coord(60))
		half := math3d.V3(0.05+rng.Float32()*4, 0.05+rng.Float32()*4, 0.05+rng.Float32()*4)
		boxes[i] = NewAABB(center.Sub(half), center.Add(half))
		switch rng.Intn(50) {
		case 0:
			boxes[i].Min, boxes[i].Max = boxes[i].Max, boxes[i].Min
		case 1:
			boxes[i].Min.Y = float32(math.NaN())
		}
	}
	return f, boxes
}

func withKernel(t testing.TB, k Kernel) {
	prev := SetKernel(k)
	t.Cleanup(func() { SetKernel(prev) })
}

func TestCullMatchesScalar(t *testing.T) {
	sizes := []int{0, 1, 7, 8, 9, 15, 16, 17, 63, 64, 1000, 1003}

	for _, k := range []Kernel{KernelScalar, KernelWide} {
		t.Run(k.String(), func(t *testing.T) {
			withKernel(t, k)
			rng := rand.New(rand.NewSource(7))
			for _, n := range sizes {
				for range 20 {
					f, boxes := randomScene(rng, n)
					packed := PackBoxes(boxes)

					want := CullScalar(nil, &f, boxes)
					if got := Cull(nil, &f, packed); !slices.Equal(got, want) {
						t.Fatalf("n=%d: Cull = %v, want %v", n, got, want)
					}

					want = CullScalarShadowCascade(nil, &f, boxes)
					if got := CullShadowCascade(nil, &f, packed); !slices.Equal(got, want) {
						t.Fatalf("n=%d: CullShadowCascade = %v, want %v", n, got, want)
					}
				}
			}
		})
	}
}

func TestCullOutputOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	f, boxes := randomScene(rng, 4096)

	got := Cull(nil, &f, PackBoxes(boxes))
	if !slices.IsSorted(got) {
		t.Fatal("indices are not increasing")
	}
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Fatalf("index %d reported twice", got[i])
		}
	}
}

func TestCullIdentityFrustum(t *testing.T) {
	f := NewFrustum(math3d.Identity())

	inside := NewAABB(math3d.Splat3(-0.5), math3d.Splat3(0.5))
	outside := NewAABB(math3d.Splat3(2), math3d.Splat3(3))
	if !f.Intersects(inside) {
		t.Error("centered box should be visible")
	}
	if f.Intersects(outside) {
		t.Error("box beyond the cube should be culled")
	}

	boxes := make([]AABB, 9)
	for i := range 8 {
		boxes[i] = inside
	}
	boxes[8] = outside

	got := Cull(nil, &f, PackBoxes(boxes))
	want := []uint16{0, 1, 2, 3, 4, 5, 6, 7}
	if !slices.Equal(got, want) {
		t.Errorf("Cull = %v, want %v", got, want)
	}
}

func TestCullReusesOutput(t *testing.T) {
	f := NewFrustum(math3d.Identity())
	packed := PackBoxes([]AABB{
		NewAABB(math3d.Splat3(-0.5), math3d.Splat3(0.5)),
		NewAABB(math3d.Splat3(2), math3d.Splat3(3)),
	})

	dst := make([]uint16, 5, 16)
	dst[0] = 42
	got := Cull(dst, &f, packed)
	if !slices.Equal(got, []uint16{0}) {
		t.Fatalf("Cull = %v, want [0]", got)
	}
	if &got[0] != &dst[0] {
		t.Error("Cull should reuse a large enough buffer")
	}
}

func TestCullFiltered(t *testing.T) {
	f := NewFrustum(math3d.Identity())
	const n = 19

	packed := NewBoxes(n)
	hidden := make([]bool, n)
	layers := make([]int8, n)
	for range n {
		packed.Append(NewAABB(math3d.Splat3(-0.5), math3d.Splat3(0.5)))
	}
	packed.Set(4, NewAABB(math3d.Splat3(2), math3d.Splat3(3)))
	hidden[3] = true
	hidden[17] = true
	layers[5] = -1
	layers[6] = 7
	layers[18] = 100
	active := AllLayers().Without(7)

	want := []uint32{0, 1, 2, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 18}
	for _, k := range []Kernel{KernelScalar, KernelWide} {
		t.Run(k.String(), func(t *testing.T) {
			withKernel(t, k)
			out := make([]uint32, n)
			count := CullFiltered(out, &f, packed, hidden, layers, active)
			if got := out[:count]; !slices.Equal(got, want) {
				t.Errorf("CullFiltered = %v, want %v", got, want)
			}

			count = CullShadowCascadeFiltered(out, &f, packed, hidden, layers, Layers(0))
			wantCascade := []uint32{0, 1, 2, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
			if got := out[:count]; !slices.Equal(got, wantCascade) {
				t.Errorf("CullShadowCascadeFiltered = %v, want %v", got, wantCascade)
			}
		})
	}
}

func TestCullFilteredMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{5, 8, 100, 777} {
		f, boxes := randomScene(rng, n)
		hidden := make([]bool, n)
		layers := make([]int8, n)
		for i := range n {
			hidden[i] = rng.Intn(4) == 0
			layers[i] = int8(rng.Intn(256) - 128)
		}
		active := Layers(0, 1, 2, 3, 64, 100, 127)

		var want []uint32
		for i, box := range boxes {
			if !hidden[i] && active.Has(layers[i]) && f.Intersects(box) {
				want = append(want, uint32(i))
			}
		}

		out := make([]uint32, n)
		count := CullFiltered(out, &f, PackBoxes(boxes), hidden, layers, active)
		if got := out[:count]; !slices.Equal(got, want) {
			t.Fatalf("n=%d: CullFiltered = %v, want %v", n, got, want)
		}
	}
}

func TestCullParallel(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	f, boxes := randomScene(rng, 20000)
	packed := PackBoxes(boxes)
	want := Cull(nil, &f, packed)

	for _, workers := range []int{0, 1, 3, 8} {
		got, err := CullParallel(context.Background(), nil, &f, packed, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if !slices.Equal(got, want) {
			t.Errorf("workers=%d: CullParallel differs from Cull", workers)
		}
	}
}

func TestSeparated8(t *testing.T) {
	f := NewFrustum(math3d.Identity())
	k := newKernelFrustum(&f)
	unit := NewAABB(math3d.Splat3(-0.5), math3d.Splat3(0.5))
	packed := PackBoxes([]AABB{
		NewAABB(math3d.V3(5, 0, 0), math3d.V3(6, 1, 1)),
		NewAABB(math3d.V3(-6, 0, 0), math3d.V3(-5, 1, 1)),
		NewAABB(math3d.V3(0, 0, 5), math3d.V3(1, 1, 6)),
		NewAABB(math3d.V3(0, -6, 0), math3d.V3(1, -5, 1)),
		unit, unit, unit, unit,
	})
	b := packed.batch(0)

	tests := []struct {
		inside, want uint8
	}{
		{0xff, 0x0f},
		{0x03, 0x03}, // both lanes separate on x
		{0x04, 0x04}, // needs the z axis
		{0xf0, 0x00},
		{0x00, 0x00},
	}
	for _, tt := range tests {
		if got := separated8(&k, &b, tt.inside); got != tt.want {
			t.Errorf("separated8(inside=%08b) = %08b, want %08b", tt.inside, got, tt.want)
		}
	}
}

func TestCullParallelCancelled(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	f, boxes := randomScene(rng, 20000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CullParallel(ctx, nil, &f, PackBoxes(boxes), 4)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLayerMask(t *testing.T) {
	m := Layers(0, 63, 64, 127, -3)

	tests := []struct {
		layer int8
		want  bool
	}{
		{0, true},
		{1, false},
		{63, true},
		{64, true},
		{127, true},
		{-3, false},
		{-128, false},
	}
	for _, tc := range tests {
		if got := m.Has(tc.layer); got != tc.want {
			t.Errorf("Has(%d) = %v, want %v", tc.layer, got, tc.want)
		}
	}

	if m.Without(64).Has(64) {
		t.Error("Without(64) should clear layer 64")
	}
	if AllLayers().Has(-1) {
		t.Error("negative layers are never active")
	}
}

func TestSetKernel(t *testing.T) {
	prev := SetKernel(KernelScalar)
	defer SetKernel(prev)

	if ActiveKernel() != KernelScalar {
		t.Fatalf("ActiveKernel = %v, want scalar", ActiveKernel())
	}
	if got := SetKernel(Kernel(99)); got != KernelScalar {
		t.Errorf("SetKernel returned %v, want scalar", got)
	}
	if k := ActiveKernel(); k != KernelScalar && k != KernelWide {
		t.Errorf("unknown kernel %v should fall back to detection", k)
	}
}

func benchmarkScene(n int) (Frustum, []AABB, *Boxes) {
	f, boxes := randomScene(rand.New(rand.NewSource(1)), n)
	return f, boxes, PackBoxes(boxes)
}

func BenchmarkCull(b *testing.B) {
	f, boxes, packed := benchmarkScene(10000)
	dst := make([]uint16, 0, len(boxes))

	b.Run("reference", func(b *testing.B) {
		for b.Loop() {
			dst = CullScalar(dst, &f, boxes)
		}
	})
	for _, k := range []Kernel{KernelScalar, KernelWide} {
		b.Run(k.String(), func(b *testing.B) {
			withKernel(b, k)
			for b.Loop() {
				dst = Cull(dst, &f, packed)
			}
		})
	}
	b.Run("parallel", func(b *testing.B) {
		ctx := context.Background()
		for b.Loop() {
			dst, _ = CullParallel(ctx, dst, &f, packed, 0)
		}
	})
}

func BenchmarkCullFiltered(b *testing.B) {
	f, boxes, packed := benchmarkScene(10000)
	out := make([]uint32, len(boxes))
	hidden := make([]bool, len(boxes))
	layers := make([]int8, len(boxes))

	for b.Loop() {
		_ = CullFiltered(out, &f, packed, hidden, layers, AllLayers())
	}
}
