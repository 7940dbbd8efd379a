// Package loader decodes model and texture files into the vertex and pixel
// data the engine uploads.
package loader

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/vkngwrapper/playground/engine"
	vkngmath "github.com/vkngwrapper/math"
)

// MeshData is an indexed triangle list ready for engine.NewMesh.
type MeshData struct {
	Vertices []engine.Vertex
	Indices  []uint32
}

var white = vkngmath.Vec3[float32]{1, 1, 1}

// DecodeOBJ reads a Wavefront OBJ model. Polygons are triangulated as fans and
// identical vertices are shared. mtl may be nil.
func DecodeOBJ(model io.Reader, mtl io.Reader) (*MeshData, error) {
	if mtl == nil {
		mtl = strings.NewReader("")
	}

	decoder, err := obj.DecodeReader(model, mtl)
	if err != nil {
		return nil, errors.Wrap(err, "decode obj")
	}

	builder := &meshBuilder{
		decoder:  decoder,
		vertices: make(map[engine.Vertex]uint32),
	}

	for _, object := range decoder.Objects {
		for _, face := range object.Faces {
			if len(face.Vertices) < 3 {
				continue
			}

			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					err = builder.addVertex(face, corner)
					if err != nil {
						return nil, err
					}
				}
			}
		}
	}

	if len(builder.mesh.Vertices) == 0 {
		return nil, errors.New("obj model has no faces")
	}

	return &builder.mesh, nil
}

type meshBuilder struct {
	decoder  *obj.Decoder
	vertices map[engine.Vertex]uint32
	mesh     MeshData
}

func (b *meshBuilder) addVertex(face obj.Face, corner int) error {
	vertInd := face.Vertices[corner]
	if vertInd < 0 || vertInd*3+2 >= len(b.decoder.Vertices) {
		return errors.Newf("obj face references missing vertex %d", vertInd)
	}

	vertex := engine.Vertex{
		Position: vkngmath.Vec3[float32]{
			b.decoder.Vertices[vertInd*3],
			b.decoder.Vertices[vertInd*3+1],
			b.decoder.Vertices[vertInd*3+2],
		},
		Color: white,
	}

	if corner < len(face.Normals) {
		normInd := face.Normals[corner]
		if normInd >= 0 && normInd*3+2 < len(b.decoder.Normals) {
			vertex.Normal = vkngmath.Vec3[float32]{
				b.decoder.Normals[normInd*3],
				b.decoder.Normals[normInd*3+1],
				b.decoder.Normals[normInd*3+2],
			}
		}
	}

	if corner < len(face.Uvs) {
		uvInd := face.Uvs[corner]
		if uvInd >= 0 && uvInd*2+1 < len(b.decoder.Uvs) {
			vertex.UV = vkngmath.Vec2[float32]{
				b.decoder.Uvs[uvInd*2],
				1.0 - b.decoder.Uvs[uvInd*2+1],
			}
		}
	}

	index, exists := b.vertices[vertex]
	if !exists {
		index = uint32(len(b.mesh.Vertices))
		b.vertices[vertex] = index
		b.mesh.Vertices = append(b.mesh.Vertices, vertex)
	}
	b.mesh.Indices = append(b.mesh.Indices, index)

	return nil
}
