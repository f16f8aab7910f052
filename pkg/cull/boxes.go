package cull

import "github.com/taigrr/culler/pkg/math3d"

// Boxes stores bounding boxes as six parallel float32 columns so eight
// consecutive boxes load as one batch per component. All six slices must
// have the same length.
type Boxes struct {
	MinX, MinY, MinZ []float32
	MaxX, MaxY, MaxZ []float32
}

// NewBoxes returns an empty set with room for n boxes.
func NewBoxes(n int) *Boxes {
	return &Boxes{
		MinX: make([]float32, 0, n),
		MinY: make([]float32, 0, n),
		MinZ: make([]float32, 0, n),
		MaxX: make([]float32, 0, n),
		MaxY: make([]float32, 0, n),
		MaxZ: make([]float32, 0, n),
	}
}

// PackBoxes converts an array of boxes to columns.
func PackBoxes(src []AABB) *Boxes {
	b := NewBoxes(len(src))
	b.Pack(src)
	return b
}

// Pack replaces the contents with src, reusing the existing storage.
func (b *Boxes) Pack(src []AABB) {
	b.Reset()
	for i := range src {
		b.Append(src[i])
	}
}

// Append adds one box.
func (b *Boxes) Append(box AABB) {
	b.MinX = append(b.MinX, box.Min.X)
	b.MinY = append(b.MinY, box.Min.Y)
	b.MinZ = append(b.MinZ, box.Min.Z)
	b.MaxX = append(b.MaxX, box.Max.X)
	b.MaxY = append(b.MaxY, box.Max.Y)
	b.MaxZ = append(b.MaxZ, box.Max.Z)
}

// Set overwrites box i.
func (b *Boxes) Set(i int, box AABB) {
	b.MinX[i], b.MinY[i], b.MinZ[i] = box.Min.X, box.Min.Y, box.Min.Z
	b.MaxX[i], b.MaxY[i], b.MaxZ[i] = box.Max.X, box.Max.Y, box.Max.Z
}

// Reset truncates to zero boxes.
func (b *Boxes) Reset() {
	b.MinX, b.MinY, b.MinZ = b.MinX[:0], b.MinY[:0], b.MinZ[:0]
	b.MaxX, b.MaxY, b.MaxZ = b.MaxX[:0], b.MaxY[:0], b.MaxZ[:0]
}

// Len returns the number of boxes.
func (b *Boxes) Len() int {
	return len(b.MinX)
}

// At returns box i.
func (b *Boxes) At(i int) AABB {
	return AABB{
		Min: math3d.V3(b.MinX[i], b.MinY[i], b.MinZ[i]),
		Max: math3d.V3(b.MaxX[i], b.MaxY[i], b.MaxZ[i]),
	}
}

// Slice returns a view of boxes [start, end) sharing storage with b.
func (b *Boxes) Slice(start, end int) Boxes {
	return Boxes{
		MinX: b.MinX[start:end:end],
		MinY: b.MinY[start:end:end],
		MinZ: b.MinZ[start:end:end],
		MaxX: b.MaxX[start:end:end],
		MaxY: b.MaxY[start:end:end],
		MaxZ: b.MaxZ[start:end:end],
	}
}

func (b *Boxes) consistent() bool {
	n := len(b.MinX)
	return len(b.MinY) == n && len(b.MinZ) == n &&
		len(b.MaxX) == n && len(b.MaxY) == n && len(b.MaxZ) == n
}

// batch returns boxes [i, i+8) as fixed-size array views.
func (b *Boxes) batch(i int) batch8 {
	return batch8{
		min: [3]*[8]float32{
			(*[8]float32)(b.MinX[i : i+8]),
			(*[8]float32)(b.MinY[i : i+8]),
			(*[8]float32)(b.MinZ[i : i+8]),
		},
		max: [3]*[8]float32{
			(*[8]float32)(b.MaxX[i : i+8]),
			(*[8]float32)(b.MaxY[i : i+8]),
			(*[8]float32)(b.MaxZ[i : i+8]),
		},
	}
}
