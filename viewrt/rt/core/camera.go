package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Minimum polar angle; keeps LookAt away from the degenerate straight-down view.
const polarEpsilon = 1e-4

// reference frame rate the damping factor is expressed in
const dampingHz = 60

type OrbitOptions struct {
	FovDegrees    float32
	Near, Far     float32
	Position      mgl32.Vec3
	Target        mgl32.Vec3
	DampingFactor float32
	MaxPolar      float32
	RotateSpeed   float32
	PanSpeed      float32
	MinDistance   float32
	MaxDistance   float32
	GroundY       float32
}

// OrbitCamera orbits Target in spherical coordinates (radius, theta around +Y,
// phi from +Y). Input accumulates pending deltas that Update drains with
// exponential damping.
type OrbitCamera struct {
	Target mgl32.Vec3

	FovY   float32
	Aspect float32
	Near   float32
	Far    float32

	DampingFactor float32
	MinPolar      float32
	MaxPolar      float32
	MinDistance   float32
	MaxDistance   float32
	RotateSpeed   float32
	PanSpeed      float32
	// Target never sinks below GroundY. With MaxPolar under π/2 this keeps
	// the eye above the ground as well.
	GroundY float32

	radius float32
	theta  float32
	phi    float32

	dTheta float32
	dPhi   float32
	dPan   mgl32.Vec3
	// pending zoom as log(scale)
	dZoom float32
}

func NewOrbitCamera(opts OrbitOptions) *OrbitCamera {
	c := &OrbitCamera{
		Target:        opts.Target,
		FovY:          mgl32.DegToRad(opts.FovDegrees),
		Aspect:        1,
		Near:          opts.Near,
		Far:           opts.Far,
		DampingFactor: opts.DampingFactor,
		MinPolar:      polarEpsilon,
		MaxPolar:      min(opts.MaxPolar, math32.Pi/2-polarEpsilon),
		MinDistance:   opts.MinDistance,
		MaxDistance:   opts.MaxDistance,
		RotateSpeed:   opts.RotateSpeed,
		PanSpeed:      opts.PanSpeed,
		GroundY:       opts.GroundY,
	}
	if c.RotateSpeed == 0 {
		c.RotateSpeed = 1
	}
	if c.PanSpeed == 0 {
		c.PanSpeed = 1
	}
	c.SetPosition(opts.Position)
	return c
}

// SetPosition places the camera, clamping into the allowed polar and distance range.
func (c *OrbitCamera) SetPosition(p mgl32.Vec3) {
	off := p.Sub(c.Target)
	c.radius = off.Len()
	if c.radius > 0 {
		c.theta = math32.Atan2(off.X(), off.Z())
		c.phi = math32.Acos(mgl32.Clamp(off.Y()/c.radius, -1, 1))
	}
	c.clamp()
}

func (c *OrbitCamera) Position() mgl32.Vec3 {
	sp := math32.Sin(c.phi)
	return c.Target.Add(mgl32.Vec3{
		c.radius * sp * math32.Sin(c.theta),
		c.radius * math32.Cos(c.phi),
		c.radius * sp * math32.Cos(c.theta),
	})
}

func (c *OrbitCamera) Polar() float32    { return c.phi }
func (c *OrbitCamera) Azimuth() float32  { return c.theta }
func (c *OrbitCamera) Distance() float32 { return c.radius }

// Rotate queues an orbit by a pointer drag of (dx, dy) pixels in a viewport
// viewportH pixels tall. A full-height drag turns 2π.
func (c *OrbitCamera) Rotate(dx, dy, viewportH float32) {
	if viewportH <= 0 {
		return
	}
	c.dTheta -= 2 * math32.Pi * dx / viewportH * c.RotateSpeed
	c.dPhi -= 2 * math32.Pi * dy / viewportH * c.RotateSpeed
}

// Pan queues a target shift so the point under the pointer follows a drag of
// (dx, dy) pixels.
func (c *OrbitCamera) Pan(dx, dy, viewportH float32) {
	if viewportH <= 0 {
		return
	}
	scale := 2 * c.radius * math32.Tan(c.FovY/2) / viewportH * c.PanSpeed
	_, right, up := c.Basis()
	c.dPan = c.dPan.Add(right.Mul(-dx * scale)).Add(up.Mul(dy * scale))
}

// Dolly queues a distance change by factor; factors below 1 move closer.
func (c *OrbitCamera) Dolly(factor float32) {
	if factor <= 0 {
		return
	}
	c.dZoom += math32.Log(factor)
}

// Update drains the pending input. Each 1/60 s applies DampingFactor of what is
// left, so motion decays exponentially instead of snapping.
func (c *OrbitCamera) Update(dt float32) {
	if dt <= 0 {
		dt = 1.0 / dampingHz
	}
	keep := math32.Pow(1-mgl32.Clamp(c.DampingFactor, 0, 1), dt*dampingHz)
	apply := 1 - keep

	c.theta += c.dTheta * apply
	c.phi += c.dPhi * apply
	c.radius *= math32.Exp(c.dZoom * apply)
	c.Target = c.Target.Add(c.dPan.Mul(apply))

	c.dTheta *= keep
	c.dPhi *= keep
	c.dZoom *= keep
	c.dPan = c.dPan.Mul(keep)

	c.clamp()
}

// Settled reports whether no noticeable motion is pending.
func (c *OrbitCamera) Settled() bool {
	const eps = 1e-5
	return math32.Abs(c.dTheta) < eps && math32.Abs(c.dPhi) < eps &&
		math32.Abs(c.dZoom) < eps && c.dPan.Len() < eps
}

func (c *OrbitCamera) clamp() {
	if c.Target.Y() < c.GroundY {
		c.Target[1] = c.GroundY
		c.dPan[1] = max(c.dPan[1], 0)
	}
	c.phi = mgl32.Clamp(c.phi, c.MinPolar, c.MaxPolar)
	if c.MaxDistance > c.MinDistance && c.MinDistance > 0 {
		c.radius = mgl32.Clamp(c.radius, c.MinDistance, c.MaxDistance)
	}
}

// Basis returns the camera forward, right and up vectors in world space.
func (c *OrbitCamera) Basis() (forward, right, up mgl32.Vec3) {
	forward = c.Target.Sub(c.Position()).Normalize()
	right = forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

func (c *OrbitCamera) SetAspect(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	c.Aspect = float32(w) / float32(h)
}

func (c *OrbitCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, mgl32.Vec3{0, 1, 0})
}

func (c *OrbitCamera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

func (c *OrbitCamera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.ViewMatrix())
}

func (c *OrbitCamera) Frustum() [6]mgl32.Vec4 {
	return ExtractFrustum(c.ViewProjection())
}
