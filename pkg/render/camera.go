package render

import (
	"github.com/chewxy/math32"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/math3d"
)

// Camera represents a 3D camera with position and orientation.
type Camera struct {
	// Position in world space
	Position math3d.Vec3

	// Orientation (Euler angles in radians)
	Pitch float32 // Rotation around X axis (look up/down)
	Yaw   float32 // Rotation around Y axis (look left/right)

	// Projection parameters
	FOV         float32 // Vertical field of view in radians
	AspectRatio float32 // Width / Height
	Near        float32 // Near clipping plane
	Far         float32 // Far clipping plane

	// Cached matrices (computed on demand)
	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	invViewProj    math3d.Mat4
	viewDirty      bool
	projDirty      bool
	comboDirty     bool
}

// NewCamera creates a new camera with default settings.
func NewCamera() *Camera {
	return &Camera{
		Position:    math3d.V3(0, 10, 0),
		FOV:         math32.Pi / 3, // 60 degrees
		AspectRatio: 16.0 / 9.0,
		Near:        0.1,
		Far:         1000,
		viewDirty:   true,
		projDirty:   true,
		comboDirty:  true,
	}
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
	c.viewDirty = true
}

// SetRotation sets the camera rotation (pitch, yaw in radians).
func (c *Camera) SetRotation(pitch, yaw float32) {
	c.Pitch = pitch
	c.Yaw = yaw
	c.viewDirty = true
}

// SetFOV sets the field of view (in radians).
func (c *Camera) SetFOV(fov float32) {
	c.FOV = fov
	c.projDirty = true
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float32) {
	c.AspectRatio = aspect
	c.projDirty = true
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float32) {
	c.Near = near
	c.Far = far
	c.projDirty = true
}

// Forward returns the forward direction vector.
func (c *Camera) Forward() math3d.Vec3 {
	// Forward is -Z in camera space, rotated by yaw and pitch
	return math3d.V3(
		-math32.Sin(c.Yaw)*math32.Cos(c.Pitch),
		math32.Sin(c.Pitch),
		-math32.Cos(c.Yaw)*math32.Cos(c.Pitch),
	)
}

// Right returns the right direction vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(math32.Cos(c.Yaw), 0, -math32.Sin(c.Yaw))
}

// Up returns the up direction vector.
func (c *Camera) Up() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		// View = Rotation * Translation(-position)
		rot := math3d.RotateX(-c.Pitch).Mul(math3d.RotateY(-c.Yaw))
		c.viewMatrix = rot.Mul(math3d.Translate(c.Position.Negate()))
		c.viewDirty = false
		c.comboDirty = true
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
		c.projDirty = false
		c.comboDirty = true
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	view := c.ViewMatrix()
	proj := c.ProjectionMatrix()
	if c.comboDirty {
		c.viewProjMatrix = proj.Mul(view)
		c.invViewProj = c.viewProjMatrix.Inverse()
		c.comboDirty = false
	}
	return c.viewProjMatrix
}

// InverseViewProjection returns the matrix taking NDC back to world space.
func (c *Camera) InverseViewProjection() math3d.Mat4 {
	c.ViewProjectionMatrix()
	return c.invViewProj
}

// Frustum returns the world-space view frustum.
func (c *Camera) Frustum() cull.Frustum {
	return cull.NewFrustum(c.InverseViewProjection())
}

// LookAt makes the camera look at a target point.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()

	c.Pitch = math32.Asin(dir.Y)
	c.Yaw = math32.Atan2(-dir.X, -dir.Z)

	c.viewDirty = true
}

// Orbit places the camera on a circle of the given radius around target,
// raised by height, at angle radians from +Z, and aims it at target.
func (c *Camera) Orbit(target math3d.Vec3, radius, height, angle float32) {
	c.SetPosition(target.Add(math3d.V3(
		radius*math32.Sin(angle),
		height,
		radius*math32.Cos(angle),
	)))
	c.LookAt(target)
}

// NDCDepth maps a positive view distance between Near and Far to the
// NDC depth the projection gives it.
func (c *Camera) NDCDepth(distance float32) float32 {
	n, f := c.Near, c.Far
	return (f+n)/(f-n) - 2*f*n/((f-n)*distance)
}

// WorldToScreen transforms a world point to screen coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float32, visible bool) {
	clipPos := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))

	// Check if behind camera
	if clipPos.W <= 0 {
		return 0, 0, 0, false
	}

	ndc := clipPos.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	x = (ndc.X + 1) * 0.5 * float32(screenWidth)
	y = (1 - ndc.Y) * 0.5 * float32(screenHeight) // Y is flipped
	return x, y, ndc.Z, true
}
