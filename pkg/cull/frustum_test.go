package cull

import (
	"math"
	"testing"

	"github.com/taigrr/culler/pkg/math3d"
)

func perspectiveFrustum(fov, aspect, near, far float32, view math3d.Mat4) Frustum {
	proj := math3d.Perspective(fov, aspect, near, far)
	return NewFrustum(proj.Mul(view).Inverse())
}

func TestPlaneDistance(t *testing.T) {
	// Plane at Z=0, normal pointing +Z
	plane := Plane{Normal: math3d.V3(0, 0, 1), D: 0}

	tests := []struct {
		name     string
		point    math3d.Vec3
		expected float32
	}{
		{"origin", math3d.V3(0, 0, 0), 0},
		{"in front", math3d.V3(0, 0, 5), 5},
		{"behind", math3d.V3(0, 0, -3), -3},
		{"offset XY", math3d.V3(10, -5, 2), 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dist := plane.Distance(tc.point)
			if dist != tc.expected {
				t.Errorf("got %v, want %v", dist, tc.expected)
			}
		})
	}
}

func TestAABBBasics(t *testing.T) {
	box := NewAABB(math3d.V3(-1, -2, -3), math3d.V3(1, 2, 3))

	center := box.Center()
	if center.X != 0 || center.Y != 0 || center.Z != 0 {
		t.Errorf("center = %v, want (0, 0, 0)", center)
	}

	size := box.Size()
	if size.X != 2 || size.Y != 4 || size.Z != 6 {
		t.Errorf("size = %v, want (2, 4, 6)", size)
	}

	if !box.Valid() {
		t.Error("box should be valid")
	}
	if EmptyAABB().Valid() {
		t.Error("empty box should be inverted")
	}
}

func TestAABBTransform(t *testing.T) {
	box := NewAABB(math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1))

	t.Run("translation", func(t *testing.T) {
		transformed := box.Transform(math3d.Translate(math3d.V3(10, 20, 30)))

		if transformed.Min.X != 9 || transformed.Min.Y != 19 || transformed.Min.Z != 29 {
			t.Errorf("translated min = %v, want (9, 19, 29)", transformed.Min)
		}
		if transformed.Max.X != 11 || transformed.Max.Y != 21 || transformed.Max.Z != 31 {
			t.Errorf("translated max = %v, want (11, 21, 31)", transformed.Max)
		}
	})

	t.Run("scale", func(t *testing.T) {
		transformed := box.Transform(math3d.ScaleUniform(2.0))

		if transformed.Min != math3d.Splat3(-2) {
			t.Errorf("scaled min = %v, want (-2, -2, -2)", transformed.Min)
		}
		if transformed.Max != math3d.Splat3(2) {
			t.Errorf("scaled max = %v, want (2, 2, 2)", transformed.Max)
		}
	})
}

func TestFrustumIdentityCorners(t *testing.T) {
	f := NewFrustum(math3d.Identity())

	for i, c := range f.Corners {
		want := math3d.V3(
			selectComponent(i&1 != 0, 1, -1),
			selectComponent(i&2 != 0, 1, -1),
			selectComponent(i&4 != 0, 1, -1),
		)
		if c != want {
			t.Errorf("corner %d = %v, want %v", i, c, want)
		}
	}

	wantNormals := [6]math3d.Vec3{
		FrustumNear:   math3d.V3(0, 0, 1),
		FrustumFar:    math3d.V3(0, 0, -1),
		FrustumTop:    math3d.V3(0, -1, 0),
		FrustumBottom: math3d.V3(0, 1, 0),
		FrustumLeft:   math3d.V3(1, 0, 0),
		FrustumRight:  math3d.V3(-1, 0, 0),
	}
	for i, p := range f.Planes {
		if p.Normal != wantNormals[i] || p.D != 1 {
			t.Errorf("plane %d = %+v, want normal %v and D 1", i, p, wantNormals[i])
		}
	}
}

func TestFrustumPlanesEncloseCorners(t *testing.T) {
	views := map[string]math3d.Mat4{
		"identity": math3d.Identity(),
		"look at":  math3d.LookAt(math3d.V3(3, 10, 20), math3d.V3(0, 0, 0), math3d.Up()),
		"rotated":  math3d.RotateY(2.1).Mul(math3d.RotateX(-0.4)),
	}

	for name, view := range views {
		t.Run(name, func(t *testing.T) {
			f := perspectiveFrustum(math.Pi/3, 16.0/9.0, 0.5, 200, view)
			for i, p := range f.Planes {
				if l := p.Normal.Len(); math.Abs(float64(l-1)) > 1e-5 {
					t.Errorf("plane %d normal length = %v, want 1", i, l)
				}
				for j, c := range f.Corners {
					if d := p.Distance(c); d < -1e-2 {
						t.Errorf("corner %d is %v behind plane %d", j, d, i)
					}
				}
			}
		})
	}
}

func TestFrustumContainsPoint(t *testing.T) {
	frustum := perspectiveFrustum(math.Pi/3, 16.0/9.0, 0.1, 100, math3d.Identity())

	tests := []struct {
		name     string
		point    math3d.Vec3
		expected bool
	}{
		{"center near", math3d.V3(0, 0, -1), true},
		{"center mid", math3d.V3(0, 0, -50), true},
		{"center far", math3d.V3(0, 0, -99), true},
		{"behind camera", math3d.V3(0, 0, 1), false},
		{"too far", math3d.V3(0, 0, -200), false},
		{"too close", math3d.V3(0, 0, -0.01), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := frustum.ContainsPoint(tc.point)
			if result != tc.expected {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tc.point, result, tc.expected)
			}
		})
	}
}

func TestFrustumDepthRange(t *testing.T) {
	// Near 1, far 10: NDC depth 0 maps to view depth -20/11.
	f := NewFrustumDepth(math3d.Perspective(math.Pi/2, 1, 1, 10).Inverse(), 0, 1)

	if f.ContainsPoint(math3d.V3(0, 0, -1.5)) {
		t.Error("point in front of the depth slice should be outside")
	}
	if !f.ContainsPoint(math3d.V3(0, 0, -5)) {
		t.Error("point inside the depth slice should be inside")
	}

	near := f.Corners[CornerNearBottomLeft].Z
	if math.Abs(float64(near+20.0/11.0)) > 1e-4 {
		t.Errorf("slice near depth = %v, want %v", near, -20.0/11.0)
	}
}

func TestFrustumIntersects(t *testing.T) {
	frustum := perspectiveFrustum(math.Pi/3, 16.0/9.0, 1, 100, math3d.Identity())

	tests := []struct {
		name     string
		box      AABB
		expected bool
	}{
		{
			"fully inside",
			NewAABB(math3d.V3(-1, -1, -10), math3d.V3(1, 1, -5)),
			true,
		},
		{
			"partially visible",
			NewAABB(math3d.V3(-1, -1, -2), math3d.V3(1, 1, 2)), // Crosses near plane and goes behind
			true,
		},
		{
			"behind camera",
			NewAABB(math3d.V3(-1, -1, 5), math3d.V3(1, 1, 10)),
			false,
		},
		{
			"beyond far plane",
			NewAABB(math3d.V3(-1, -1, -150), math3d.V3(1, 1, -120)),
			false,
		},
		{
			"far to the right",
			NewAABB(math3d.V3(100, -1, -10), math3d.V3(110, 1, -5)),
			false,
		},
		{
			"large box containing frustum",
			NewAABB(math3d.V3(-200, -200, -200), math3d.V3(200, 200, 200)),
			true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := frustum.Intersects(tc.box)
			if result != tc.expected {
				t.Errorf("Intersects(%v) = %v, want %v", tc.box, result, tc.expected)
			}
		})
	}
}

func TestIntersectsCornerSeparation(t *testing.T) {
	// 90 degree frustum from z=-1 to z=-10; the far corners reach x=10.
	f := perspectiveFrustum(math.Pi/2, 1, 1, 10, math3d.Identity())

	// Passes every plane through its positive vertex but lies entirely
	// right of all eight corners.
	box := NewAABB(math3d.V3(11, -1, -20), math3d.V3(20, 1, -9))
	for i := range f.Planes {
		if outsidePlane(&f.Planes[i], &box) {
			t.Fatalf("box should pass plane %d", i)
		}
	}
	if f.Intersects(box) {
		t.Error("Intersects should reject a box separated on the x axis")
	}
	if !f.IntersectsShadowCascade(box) {
		t.Error("IntersectsShadowCascade should keep the box")
	}
}

func TestIntersectsShadowCascade(t *testing.T) {
	f := NewFrustum(math3d.Identity())

	tests := []struct {
		name    string
		box     AABB
		full    bool
		cascade bool
	}{
		{"inside", NewAABB(math3d.Splat3(-0.5), math3d.Splat3(0.5)), true, true},
		{"before near plane", NewAABB(math3d.V3(-0.5, -0.5, -5), math3d.V3(0.5, 0.5, -3)), false, true},
		{"beyond far plane", NewAABB(math3d.V3(-0.5, -0.5, 3), math3d.V3(0.5, 0.5, 5)), false, false},
		{"left of frustum", NewAABB(math3d.V3(-5, -0.5, -0.5), math3d.V3(-3, 0.5, 0.5)), false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.Intersects(tc.box); got != tc.full {
				t.Errorf("Intersects = %v, want %v", got, tc.full)
			}
			if got := f.IntersectsShadowCascade(tc.box); got != tc.cascade {
				t.Errorf("IntersectsShadowCascade = %v, want %v", got, tc.cascade)
			}
		})
	}
}

func TestFrustumWithRotatedCamera(t *testing.T) {
	// Camera at origin looking along +X
	view := math3d.LookAt(math3d.V3(0, 0, 0), math3d.V3(10, 0, 0), math3d.Up())
	frustum := perspectiveFrustum(math.Pi/3, 1.0, 1.0, 100.0, view)

	if !frustum.ContainsPoint(math3d.V3(10, 0, 0)) {
		t.Error("point in front of rotated camera should be visible")
	}
	if frustum.ContainsPoint(math3d.V3(-10, 0, 0)) {
		t.Error("point behind rotated camera should not be visible")
	}
	if !frustum.Intersects(NewAABB(math3d.V3(9, -1, -1), math3d.V3(11, 1, 1))) {
		t.Error("box in front of rotated camera should be visible")
	}
}

func BenchmarkFrustumIntersects(b *testing.B) {
	frustum := perspectiveFrustum(math.Pi/3, 16.0/9.0, 0.1, 1000.0, math3d.Identity())
	box := NewAABB(math3d.V3(-1, -1, -10), math3d.V3(1, 1, -5))

	for b.Loop() {
		_ = frustum.Intersects(box)
	}
}

func BenchmarkFrustumConstruction(b *testing.B) {
	proj := math3d.Perspective(math.Pi/3, 16.0/9.0, 0.1, 1000.0)
	view := math3d.LookAt(math3d.V3(0, 10, 20), math3d.V3(0, 0, 0), math3d.Up())
	inv := proj.Mul(view).Inverse()

	for b.Loop() {
		_ = NewFrustum(inv)
	}
}
