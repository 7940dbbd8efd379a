package engine

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	vkngmath "github.com/vkngwrapper/math"
)

type Vertex struct {
	Position vkngmath.Vec3[float32]
	Normal   vkngmath.Vec3[float32]
	Color    vkngmath.Vec3[float32]
	UV       vkngmath.Vec2[float32]
}

func VertexBindingDescriptions() []core1_0.VertexInputBindingDescription {
	v := Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func VertexAttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Normal)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
		{
			Binding:  0,
			Location: 3,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.UV)),
		},
	}
}

// encode lays out fixed-size data the way the device reads it.
func encode(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, errors.Wrap(err, "encode vertex data")
	}
	return buf.Bytes(), nil
}
