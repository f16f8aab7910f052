package main

import (
	"github.com/charmbracelet/harmonica"
	"github.com/chewxy/math32"

	"github.com/taigrr/culler/pkg/math3d"
	"github.com/taigrr/culler/pkg/render"
)

// springValue eases Position toward Target with a critically damped
// spring.
type springValue struct {
	Position float64
	Target   float64
	velocity float64
	spring   harmonica.Spring
}

func newSpringValue(fps int, stiffness, v float64) springValue {
	return springValue{
		Position: v,
		Target:   v,
		spring:   harmonica.NewSpring(harmonica.FPS(fps), stiffness, 1.0),
	}
}

func (s *springValue) Update() {
	s.Position, s.velocity = s.spring.Update(s.Position, s.velocity, s.Target)
}

// Orbit circles the camera around a target. Input moves the targets of
// the angle, radius and height springs; the camera follows smoothly.
type Orbit struct {
	Angle  springValue
	Radius springValue
	Height springValue
	// Speed advances the angle target in radians per frame.
	Speed  float64
	Paused bool

	fps       int
	stiffness float64
	home      [3]float64
}

const (
	minOrbitRadius = 2
	maxOrbitRadius = 2000
)

// NewOrbit creates an orbit from the camera section of the config,
// stepped fps times a second.
func NewOrbit(cfg CameraConfig, fps int) *Orbit {
	o := &Orbit{fps: fps}
	o.Configure(cfg)
	o.Reset()
	return o
}

// Configure applies new settings. The camera keeps its current place and
// eases toward the new radius and height.
func (o *Orbit) Configure(cfg CameraConfig) {
	o.stiffness = float64(cfg.Stiffness)
	o.Speed = float64(cfg.Speed*math32.Pi/180) / float64(o.fps)
	o.home = [3]float64{0, float64(cfg.Radius), float64(cfg.Height)}

	angle, radius, height := o.Angle.Position, o.Radius.Position, o.Height.Position
	angleTarget := o.Angle.Target
	o.Angle = newSpringValue(o.fps, o.stiffness, angle)
	o.Angle.Target = angleTarget
	o.Radius = newSpringValue(o.fps, o.stiffness, radius)
	o.Radius.Target = o.home[1]
	o.Height = newSpringValue(o.fps, o.stiffness, height)
	o.Height.Target = o.home[2]
}

// Reset jumps back to the configured radius and height at angle zero.
func (o *Orbit) Reset() {
	o.Angle = newSpringValue(o.fps, o.stiffness, o.home[0])
	o.Radius = newSpringValue(o.fps, o.stiffness, o.home[1])
	o.Height = newSpringValue(o.fps, o.stiffness, o.home[2])
}

// Rotate turns the orbit by delta radians.
func (o *Orbit) Rotate(delta float64) {
	o.Angle.Target += delta
}

// Zoom scales the radius target, clamped to a sane range.
func (o *Orbit) Zoom(factor float64) {
	o.Radius.Target = min(max(o.Radius.Target*factor, minOrbitRadius), maxOrbitRadius)
}

// Raise moves the height target.
func (o *Orbit) Raise(delta float64) {
	o.Height.Target += delta
}

// Step advances one frame.
func (o *Orbit) Step() {
	if !o.Paused {
		o.Angle.Target += o.Speed
	}
	o.Angle.Update()
	o.Radius.Update()
	o.Height.Update()
}

// Apply places cam on the orbit around target.
func (o *Orbit) Apply(cam *render.Camera, target math3d.Vec3) {
	cam.Orbit(target, float32(o.Radius.Position), float32(o.Height.Position), float32(o.Angle.Position))
}
