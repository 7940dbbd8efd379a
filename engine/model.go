package engine

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/playground/gpu"
)

// Transform places a model in the world. Rotation is Tait-Bryan angles in
// radians applied in Y, X, Z order.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3
	Scale       float32
}

func NewTransform() Transform {
	return Transform{Scale: 1}
}

// Mat4 returns translate * rotate * scale.
func (t Transform) Mat4() mgl32.Mat4 {
	translation := mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z())
	rotation := mgl32.Rotate3DY(t.Rotation.Y()).Mul3(mgl32.Rotate3DX(t.Rotation.X())).Mul3(mgl32.Rotate3DZ(t.Rotation.Z())).Mat4()
	scale := mgl32.Scale3D(t.Scale, t.Scale, t.Scale)
	return translation.Mul4(rotation).Mul4(scale)
}

// NormalMatrix is the inverse transpose of the model matrix, used to bring
// normals into world space under non-uniform scale.
func (t Transform) NormalMatrix() mgl32.Mat4 {
	return t.Mat4().Inv().Transpose()
}

// Model pairs a shared mesh with its own transform and optional texture.
// Meshes are owned by whoever created them, not by the model.
type Model struct {
	Mesh      *Mesh
	Texture   *Texture
	Transform Transform
}

func NewModel(mesh *Mesh) *Model {
	return &Model{Mesh: mesh, Transform: NewTransform()}
}

func (m *Model) Bind(commandBuffer gpu.CommandBuffer) {
	m.Mesh.Bind(commandBuffer)
}

func (m *Model) Draw(commandBuffer gpu.CommandBuffer) {
	m.Mesh.Draw(commandBuffer)
}
