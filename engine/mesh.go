package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
	vkngmath "github.com/vkngwrapper/math"
)

// Mesh owns device-local vertex and optional index buffers.
type Mesh struct {
	_ noCopy

	driver       gpu.Device
	vertexBuffer *Buffer
	vertexCount  int
	indexBuffer  *Buffer
	indexCount   int
}

// NewMesh uploads vertices and, when indices is non-empty, an index buffer.
func NewMesh(device *Device, vertices []Vertex, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, errors.New("mesh has no vertices")
	}

	mesh := &Mesh{driver: device.Driver()}

	vertexData, err := encode(vertices)
	if err != nil {
		return nil, err
	}
	mesh.vertexBuffer, err = NewDeviceLocalBuffer(device, vertexData, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return nil, errors.Wrap(err, "upload vertex buffer")
	}
	mesh.vertexCount = len(vertices)

	if len(indices) == 0 {
		return mesh, nil
	}

	indexData, err := encode(indices)
	if err != nil {
		mesh.Destroy()
		return nil, err
	}
	mesh.indexBuffer, err = NewDeviceLocalBuffer(device, indexData, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		mesh.Destroy()
		return nil, errors.Wrap(err, "upload index buffer")
	}
	mesh.indexCount = len(indices)

	return mesh, nil
}

// CreateSphereMesh builds a unit sphere by projecting a cube whose faces are
// subdivided into resolution x resolution quads.
func CreateSphereMesh(device *Device, resolution int) (*Mesh, error) {
	vertices, indices, err := SphereGeometry(resolution)
	if err != nil {
		return nil, err
	}
	return NewMesh(device, vertices, indices)
}

var cubeFaceNormals = [6]mgl32.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// SphereGeometry returns 6*(resolution+1)^2 vertices and 36*resolution^2
// indices for a unit cube sphere.
func SphereGeometry(resolution int) ([]Vertex, []uint32, error) {
	if resolution < 1 {
		return nil, nil, errors.Newf("sphere resolution must be at least 1, got %d", resolution)
	}

	side := resolution + 1
	vertices := make([]Vertex, 0, 6*side*side)
	indices := make([]uint32, 0, 36*resolution*resolution)

	for _, normal := range cubeFaceNormals {
		axisA := mgl32.Vec3{normal.Y(), normal.Z(), normal.X()}
		axisB := normal.Cross(axisA)
		base := uint32(len(vertices))

		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				u := float32(x) / float32(resolution)
				v := float32(y) / float32(resolution)

				onCube := normal.Add(axisA.Mul((u - 0.5) * 2)).Add(axisB.Mul((v - 0.5) * 2))
				onSphere := onCube.Normalize()

				vertices = append(vertices, Vertex{
					Position: vkngmath.Vec3[float32]{onSphere.X(), onSphere.Y(), onSphere.Z()},
					Normal:   vkngmath.Vec3[float32]{onSphere.X(), onSphere.Y(), onSphere.Z()},
					Color:    vkngmath.Vec3[float32]{1, 1, 1},
					UV:       vkngmath.Vec2[float32]{u, v},
				})

				if x < resolution && y < resolution {
					i := base + uint32(y*side+x)
					indices = append(indices,
						i, i+uint32(side)+1, i+uint32(side),
						i, i+1, i+uint32(side)+1,
					)
				}
			}
		}
	}

	return vertices, indices, nil
}

func (m *Mesh) Bind(commandBuffer gpu.CommandBuffer) {
	m.driver.CmdBindVertexBuffers(commandBuffer, 0, []gpu.Buffer{m.vertexBuffer.Handle()}, []int{0})

	if m.indexBuffer != nil {
		m.driver.CmdBindIndexBuffer(commandBuffer, m.indexBuffer.Handle(), 0, core1_0.IndexTypeUInt32)
	}
}

func (m *Mesh) Draw(commandBuffer gpu.CommandBuffer) {
	if m.indexBuffer != nil {
		m.driver.CmdDrawIndexed(commandBuffer, m.indexCount, 1, 0, 0, 0)
	} else {
		m.driver.CmdDraw(commandBuffer, m.vertexCount, 1, 0, 0)
	}
}

func (m *Mesh) VertexCount() int {
	return m.vertexCount
}

func (m *Mesh) IndexCount() int {
	return m.indexCount
}

func (m *Mesh) Destroy() {
	if m.indexBuffer != nil {
		m.indexBuffer.Destroy()
		m.indexBuffer = nil
	}
	if m.vertexBuffer != nil {
		m.vertexBuffer.Destroy()
		m.vertexBuffer = nil
	}
}
