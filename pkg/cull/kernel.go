package cull

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// batch8 is a view of eight consecutive boxes, one array per component.
type batch8 struct {
	min [3]*[8]float32
	max [3]*[8]float32
}

// kernelFrustum is the per-call frustum state a batch kernel reads. Corner
// components are transposed so the corner test walks one axis at a time.
type kernelFrustum struct {
	f       *Frustum
	corners [3][8]float32
}

func newKernelFrustum(f *Frustum) kernelFrustum {
	k := kernelFrustum{f: f}
	for i, c := range f.Corners {
		k.corners[0][i] = c.X
		k.corners[1][i] = c.Y
		k.corners[2][i] = c.Z
	}
	return k
}

// batchKernel tests eight boxes at once and returns a lane mask with bit i
// set when box i may be visible. Implementations must agree bit for bit
// with Frustum.Intersects and Frustum.IntersectsShadowCascade.
type batchKernel interface {
	cull8(k *kernelFrustum, b *batch8) uint8
	cullCascade8(k *kernelFrustum, b *batch8) uint8
}

// Kernel selects the batch implementation used by Cull and friends.
type Kernel int32

const (
	// KernelScalar runs the scalar primitive once per lane.
	KernelScalar Kernel = iota
	// KernelWide evaluates each plane and corner across all eight lanes.
	KernelWide
)

func (k Kernel) String() string {
	switch k {
	case KernelScalar:
		return "scalar"
	case KernelWide:
		return "wide"
	default:
		return fmt.Sprintf("Kernel(%d)", int32(k))
	}
}

var activeKernel atomic.Int32

func init() {
	activeKernel.Store(int32(detectKernel()))
}

// detectKernel picks the wide kernel on CPUs with 256-bit or NEON vector
// units, where the compiler's lane loops vectorize well.
func detectKernel() Kernel {
	if cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD {
		return KernelWide
	}
	return KernelScalar
}

// ActiveKernel returns the kernel batch culls currently use.
func ActiveKernel() Kernel {
	return Kernel(activeKernel.Load())
}

// SetKernel switches the batch kernel and returns the previous one. Results
// do not depend on the kernel; only speed does.
func SetKernel(k Kernel) Kernel {
	if k != KernelScalar && k != KernelWide {
		k = detectKernel()
	}
	return Kernel(activeKernel.Swap(int32(k)))
}

func kernelFor(k Kernel) batchKernel {
	if k == KernelWide {
		return wideKernel{}
	}
	return laneKernel{}
}

// laneKernel reuses the scalar primitive per lane.
type laneKernel struct{}

func (laneKernel) cull8(k *kernelFrustum, b *batch8) uint8 {
	var mask uint8
	for lane := range 8 {
		if k.f.Intersects(b.box(lane)) {
			mask |= 1 << lane
		}
	}
	return mask
}

func (laneKernel) cullCascade8(k *kernelFrustum, b *batch8) uint8 {
	var mask uint8
	for lane := range 8 {
		if k.f.IntersectsShadowCascade(b.box(lane)) {
			mask |= 1 << lane
		}
	}
	return mask
}

func (b *batch8) box(lane int) AABB {
	var box AABB
	box.Min.X, box.Min.Y, box.Min.Z = b.min[0][lane], b.min[1][lane], b.min[2][lane]
	box.Max.X, box.Max.Y, box.Max.Z = b.max[0][lane], b.max[1][lane], b.max[2][lane]
	return box
}

// wideKernel evaluates one plane or one corner against all eight lanes per
// step and keeps a running lane mask.
type wideKernel struct{}

func (wideKernel) cull8(k *kernelFrustum, b *batch8) uint8 {
	inside := planes8(k.f, b, FrustumNear)
	if inside == 0 {
		return 0
	}
	return inside &^ separated8(k, b, inside)
}

func (wideKernel) cullCascade8(k *kernelFrustum, b *batch8) uint8 {
	return planes8(k.f, b, FrustumFar)
}

// planes8 returns the lanes not fully behind any plane from first onward.
// The positive vertex depends only on the plane normal, so one column per
// axis is chosen per plane for all lanes.
func planes8(f *Frustum, b *batch8, first int) uint8 {
	inside := uint8(0xff)
	for i := first; i < len(f.Planes); i++ {
		p := &f.Planes[i]
		xs := pickColumn(p.Normal.X >= 0, b.max[0], b.min[0])
		ys := pickColumn(p.Normal.Y >= 0, b.max[1], b.min[1])
		zs := pickColumn(p.Normal.Z >= 0, b.max[2], b.min[2])
		var outside uint8
		for lane := range 8 {
			if planeDistance(p, xs[lane], ys[lane], zs[lane]) < 0 {
				outside |= 1 << lane
			}
		}
		inside &^= outside
		if inside == 0 {
			return 0
		}
	}
	return inside
}

// separated8 returns the lanes of inside for which all corners lie
// strictly beyond the box on some axis. It stops once every lane of inside
// is separated.
func separated8(k *kernelFrustum, b *batch8, inside uint8) uint8 {
	var separated uint8
	for axis := range 3 {
		lo, hi := b.min[axis], b.max[axis]
		below, above := uint8(0xff), uint8(0xff)
		for _, c := range k.corners[axis] {
			for lane := range 8 {
				if !(c < lo[lane]) {
					below &^= 1 << lane
				}
				if !(c > hi[lane]) {
					above &^= 1 << lane
				}
			}
		}
		separated |= (below | above) & inside
		if separated == inside {
			break
		}
	}
	return separated
}

func pickColumn(cond bool, a, b *[8]float32) *[8]float32 {
	if cond {
		return a
	}
	return b
}
