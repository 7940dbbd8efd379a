// Package camera implements a first-person camera in a left-handed space
// where +X is right, -Y is up and +Z is forward.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/playground/input"
)

const (
	DefaultMoveSpeed = 3.0
	DefaultLookSpeed = 1.5
	// MaxPitch keeps the camera just short of looking straight up or down.
	MaxPitch = 1.5
)

// Up is the world up direction.
var Up = mgl32.Vec3{0, -1, 0}

type Camera struct {
	MoveSpeed float32
	LookSpeed float32

	position mgl32.Vec3
	// rotation holds pitch (X), yaw (Y) and roll (Z) in radians.
	rotation mgl32.Vec3

	projection mgl32.Mat4
	view       mgl32.Mat4
}

func New() *Camera {
	return &Camera{
		MoveSpeed:  DefaultMoveSpeed,
		LookSpeed:  DefaultLookSpeed,
		projection: mgl32.Ident4(),
		view:       mgl32.Ident4(),
	}
}

func (c *Camera) Projection() mgl32.Mat4 {
	return c.projection
}

func (c *Camera) View() mgl32.Mat4 {
	return c.view
}

func (c *Camera) Position() mgl32.Vec3 {
	return c.position
}

func (c *Camera) Rotation() mgl32.Vec3 {
	return c.rotation
}

// SetPerspective builds a left-handed projection with depth mapped to [0, 1].
func (c *Camera) SetPerspective(fovY, aspect, near, far float32) {
	tanHalfFovY := float32(math.Tan(float64(fovY) / 2))

	projection := mgl32.Mat4{}
	projection.Set(0, 0, 1/(aspect*tanHalfFovY))
	projection.Set(1, 1, 1/tanHalfFovY)
	projection.Set(2, 2, far/(far-near))
	projection.Set(3, 2, 1)
	projection.Set(2, 3, -(far*near)/(far-near))
	c.projection = projection
}

// SetOrthographic maps the box [left, right] x [top, bottom] x [near, far]
// to clip space.
func (c *Camera) SetOrthographic(left, right, top, bottom, near, far float32) {
	projection := mgl32.Ident4()
	projection.Set(0, 0, 2/(right-left))
	projection.Set(1, 1, 2/(bottom-top))
	projection.Set(2, 2, 1/(far-near))
	projection.Set(0, 3, -(right+left)/(right-left))
	projection.Set(1, 3, -(bottom+top)/(bottom-top))
	projection.Set(2, 3, -near/(far-near))
	c.projection = projection
}

// SetViewDirection looks from position along direction.
func (c *Camera) SetViewDirection(position, direction, up mgl32.Vec3) {
	w := direction.Normalize()
	u := w.Cross(up).Normalize()
	v := w.Cross(u)

	view := mgl32.Ident4()
	view.SetRow(0, u.Vec4(-u.Dot(position)))
	view.SetRow(1, v.Vec4(-v.Dot(position)))
	view.SetRow(2, w.Vec4(-w.Dot(position)))
	c.view = view
	c.position = position
}

// SetViewTarget looks from position towards target.
func (c *Camera) SetViewTarget(position, target, up mgl32.Vec3) {
	c.SetViewDirection(position, target.Sub(position), up)
}

// SetPosition places the camera and recomputes the view from its rotation.
func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.position = position
	c.recomputeView()
}

// SetRotation orients the camera and recomputes the view.
func (c *Camera) SetRotation(rotation mgl32.Vec3) {
	c.rotation = rotation
	c.recomputeView()
}

// Forward is the horizontal direction the camera faces.
func (c *Camera) Forward() mgl32.Vec3 {
	yaw := float64(c.rotation.Y())
	return mgl32.Vec3{float32(math.Sin(yaw)), 0, float32(math.Cos(yaw))}
}

// Right is perpendicular to Forward in the horizontal plane.
func (c *Camera) Right() mgl32.Vec3 {
	forward := c.Forward()
	return mgl32.Vec3{forward.Z(), 0, -forward.X()}
}

// ProcessInput turns with the arrow keys and moves with WASD, Q and E. It
// reports whether the view changed.
func (c *Camera) ProcessInput(keyboard input.Keyboard, deltaTime float32) bool {
	changed := false

	var rotate mgl32.Vec3
	if keyboard.IsKeyPressed(input.KeyLeft) {
		rotate[1] -= 1
	}
	if keyboard.IsKeyPressed(input.KeyRight) {
		rotate[1] += 1
	}
	if keyboard.IsKeyPressed(input.KeyUp) {
		rotate[0] += 1
	}
	if keyboard.IsKeyPressed(input.KeyDown) {
		rotate[0] -= 1
	}

	if rotate.Dot(rotate) > mgl32.Epsilon {
		c.rotation = c.rotation.Add(rotate.Normalize().Mul(deltaTime * c.LookSpeed))
		c.rotation[0] = mgl32.Clamp(c.rotation[0], -MaxPitch, MaxPitch)
		c.rotation[1] = float32(math.Mod(float64(c.rotation[1]), 2*math.Pi))
		if c.rotation[1] < 0 {
			c.rotation[1] += 2 * math.Pi
		}
		changed = true
	}

	forward := c.Forward()
	right := c.Right()

	var translation mgl32.Vec3
	if keyboard.IsKeyPressed(input.KeyW) {
		translation = translation.Add(forward)
	}
	if keyboard.IsKeyPressed(input.KeyA) {
		translation = translation.Sub(right)
	}
	if keyboard.IsKeyPressed(input.KeyS) {
		translation = translation.Sub(forward)
	}
	if keyboard.IsKeyPressed(input.KeyD) {
		translation = translation.Add(right)
	}
	if keyboard.IsKeyPressed(input.KeyE) {
		translation = translation.Add(Up)
	}
	if keyboard.IsKeyPressed(input.KeyQ) {
		translation = translation.Sub(Up)
	}

	if translation.Dot(translation) > mgl32.Epsilon {
		c.position = c.position.Add(translation.Normalize().Mul(deltaTime * c.MoveSpeed))
		changed = true
	}

	if changed {
		c.recomputeView()
	}
	return changed
}

// recomputeView inverts the camera's rotation and translation.
func (c *Camera) recomputeView() {
	rotation := mgl32.Rotate3DY(c.rotation.Y()).
		Mul3(mgl32.Rotate3DX(c.rotation.X())).
		Mul3(mgl32.Rotate3DZ(c.rotation.Z()))

	translation := mgl32.Translate3D(-c.position.X(), -c.position.Y(), -c.position.Z())
	c.view = rotation.Transpose().Mat4().Mul4(translation)
}
