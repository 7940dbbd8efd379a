package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/vkngwrapper/playground/input"
)

const epsilon = 1e-5

func project(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	clip := m.Mul4x1(p.Vec4(1))
	return clip.Vec3().Mul(1 / clip.W())
}

func assertVec3(t *testing.T, expected, actual mgl32.Vec3) {
	t.Helper()
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], epsilon, "component %d of %v", i, actual)
	}
}

func TestNew(t *testing.T) {
	c := New()
	assert.Equal(t, mgl32.Ident4(), c.Projection())
	assert.Equal(t, mgl32.Ident4(), c.View())
	assert.Equal(t, float32(DefaultMoveSpeed), c.MoveSpeed)
	assert.Equal(t, float32(DefaultLookSpeed), c.LookSpeed)
}

func TestSetPerspectiveDepthRange(t *testing.T) {
	c := New()
	c.SetPerspective(mgl32.DegToRad(45), 16.0/9.0, 0.1, 100)

	near := project(c.Projection(), mgl32.Vec3{0, 0, 0.1})
	far := project(c.Projection(), mgl32.Vec3{0, 0, 100})
	assert.InDelta(t, 0, near.Z(), epsilon)
	assert.InDelta(t, 1, far.Z(), epsilon)

	// The top edge of the frustum at depth 1 lands on y = 1.
	top := float32(math.Tan(float64(mgl32.DegToRad(45)) / 2))
	assert.InDelta(t, 1, project(c.Projection(), mgl32.Vec3{0, top, 1}).Y(), epsilon)
	assert.InDelta(t, 1, project(c.Projection(), mgl32.Vec3{top * 16 / 9, 0, 1}).X(), epsilon)
}

func TestSetOrthographic(t *testing.T) {
	c := New()
	c.SetOrthographic(-2, 2, -1, 1, 0, 10)

	assertVec3(t, mgl32.Vec3{-1, -1, 0}, project(c.Projection(), mgl32.Vec3{-2, -1, 0}))
	assertVec3(t, mgl32.Vec3{1, 1, 1}, project(c.Projection(), mgl32.Vec3{2, 1, 10}))
	assertVec3(t, mgl32.Vec3{0, 0, 0.5}, project(c.Projection(), mgl32.Vec3{0, 0, 5}))
}

func TestSetViewDirection(t *testing.T) {
	c := New()
	c.SetViewDirection(mgl32.Vec3{0, 0, -3}, mgl32.Vec3{0, 0, 1}, Up)

	assert.Equal(t, mgl32.Vec3{0, 0, -3}, c.Position())
	assertVec3(t, mgl32.Vec3{0, 0, 0}, c.View().Mul4x1(mgl32.Vec4{0, 0, -3, 1}).Vec3())
	assertVec3(t, mgl32.Vec3{0, 0, 3}, c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3())
	assertVec3(t, mgl32.Vec3{1, 0, 3}, c.View().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3())
}

func TestSetViewTarget(t *testing.T) {
	c := New()
	c.SetViewTarget(mgl32.Vec3{0, 0, -3}, mgl32.Vec3{0, 0, 5}, Up)

	direction := New()
	direction.SetViewDirection(mgl32.Vec3{0, 0, -3}, mgl32.Vec3{0, 0, 1}, Up)
	assert.True(t, c.View().ApproxEqualThreshold(direction.View(), epsilon))
}

func TestSetPositionRecomputesView(t *testing.T) {
	c := New()
	c.SetPosition(mgl32.Vec3{1, 2, 3})
	assertVec3(t, mgl32.Vec3{}, c.View().Mul4x1(mgl32.Vec4{1, 2, 3, 1}).Vec3())

	c.SetRotation(mgl32.Vec3{0, math.Pi / 2, 0})
	assertVec3(t, mgl32.Vec3{}, c.View().Mul4x1(mgl32.Vec4{1, 2, 3, 1}).Vec3())
	// Facing +X, a point ahead of the camera is in front of it in view space.
	ahead := c.View().Mul4x1(mgl32.Vec4{2, 2, 3, 1}).Vec3()
	assertVec3(t, mgl32.Vec3{0, 0, 1}, ahead)
}

func TestProcessInputIdle(t *testing.T) {
	c := New()
	var keys input.State
	assert.False(t, c.ProcessInput(&keys, 0.1))
	assert.Equal(t, mgl32.Ident4(), c.View())
}

func TestProcessInputMove(t *testing.T) {
	testCases := []struct {
		name     string
		keys     []input.Key
		expected mgl32.Vec3
	}{
		{name: "forward", keys: []input.Key{input.KeyW}, expected: mgl32.Vec3{0, 0, 0.3}},
		{name: "back", keys: []input.Key{input.KeyS}, expected: mgl32.Vec3{0, 0, -0.3}},
		{name: "right", keys: []input.Key{input.KeyD}, expected: mgl32.Vec3{0.3, 0, 0}},
		{name: "left", keys: []input.Key{input.KeyA}, expected: mgl32.Vec3{-0.3, 0, 0}},
		{name: "up", keys: []input.Key{input.KeyE}, expected: mgl32.Vec3{0, -0.3, 0}},
		{name: "down", keys: []input.Key{input.KeyQ}, expected: mgl32.Vec3{0, 0.3, 0}},
		{name: "opposites cancel", keys: []input.Key{input.KeyW, input.KeyS}, expected: mgl32.Vec3{}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			c := New()
			var keys input.State
			keys.Press(testCase.keys...)

			c.ProcessInput(&keys, 0.1)
			assertVec3(t, testCase.expected, c.Position())
		})
	}
}

func TestProcessInputDiagonalSpeed(t *testing.T) {
	c := New()
	var keys input.State
	keys.Press(input.KeyW, input.KeyD)

	assert.True(t, c.ProcessInput(&keys, 1))
	assert.InDelta(t, DefaultMoveSpeed, c.Position().Len(), epsilon)
}

func TestProcessInputLook(t *testing.T) {
	c := New()
	var keys input.State

	keys.Press(input.KeyRight)
	assert.True(t, c.ProcessInput(&keys, 0.1))
	assert.InDelta(t, 0.15, c.Rotation().Y(), epsilon)
	assertVec3(t, mgl32.Vec3{float32(math.Sin(0.15)), 0, float32(math.Cos(0.15))}, c.Forward())

	keys.Reset()
	keys.Press(input.KeyLeft)
	c.ProcessInput(&keys, 0.2)
	assert.InDelta(t, 2*math.Pi-0.15, c.Rotation().Y(), epsilon, "yaw wraps into [0, 2pi)")

	keys.Reset()
	keys.Press(input.KeyUp)
	for i := 0; i < 100; i++ {
		c.ProcessInput(&keys, 0.1)
	}
	assert.InDelta(t, MaxPitch, c.Rotation().X(), epsilon)

	keys.Reset()
	keys.Press(input.KeyDown)
	for i := 0; i < 200; i++ {
		c.ProcessInput(&keys, 0.1)
	}
	assert.InDelta(t, -MaxPitch, c.Rotation().X(), epsilon)
}

func TestRightIsPerpendicular(t *testing.T) {
	c := New()
	for _, yaw := range []float32{0, 0.5, 2, 4} {
		c.SetRotation(mgl32.Vec3{0, yaw, 0})
		assert.InDelta(t, 0, c.Forward().Dot(c.Right()), epsilon)
		assert.InDelta(t, 1, c.Right().Len(), epsilon)
	}
}
