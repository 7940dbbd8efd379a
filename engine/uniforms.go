package engine

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

// GlobalSet is the descriptor set index of the per-frame global uniforms.
const GlobalSet = 0

// GlobalUniformBufferObject is laid out for a std140 uniform block.
type GlobalUniformBufferObject struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
	// AmbientLightColor carries intensity in W.
	AmbientLightColor mgl32.Vec4
	LightPosition     mgl32.Vec3
	_                 float32
	// LightColor carries intensity in W.
	LightColor mgl32.Vec4
}

func DefaultGlobalUniformBufferObject() GlobalUniformBufferObject {
	return GlobalUniformBufferObject{
		Projection:        mgl32.Ident4(),
		View:              mgl32.Ident4(),
		AmbientLightColor: mgl32.Vec4{1, 1, 1, 0.05},
		LightPosition:     mgl32.Vec3{1, 1, 1},
		LightColor:        mgl32.Vec4{2, 2, 2, 2},
	}
}

// GlobalUniforms keeps one host-visible uniform buffer and descriptor set per
// frame slot so a frame never writes uniforms the GPU may still be reading.
type GlobalUniforms struct {
	layout  *DescriptorSetLayout
	buffers [MaxFramesInFlight]*Buffer
	sets    [MaxFramesInFlight]gpu.DescriptorSet
}

func NewGlobalUniforms(device *Device) (*GlobalUniforms, error) {
	layout, err := NewDescriptorSetLayout(device, core1_0.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      core1_0.StageVertex | core1_0.StageFragment,
	})
	if err != nil {
		return nil, err
	}

	uniforms := &GlobalUniforms{layout: layout}
	size := binary.Size(GlobalUniformBufferObject{})

	sets, err := layout.Allocate(MaxFramesInFlight)
	if err != nil {
		uniforms.Destroy()
		return nil, err
	}
	copy(uniforms.sets[:], sets)

	for i := range uniforms.buffers {
		buffer, err := NewBuffer(device, size, core1_0.BufferUsageUniformBuffer,
			core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			uniforms.Destroy()
			return nil, err
		}
		uniforms.buffers[i] = buffer

		err = buffer.Map()
		if err != nil {
			uniforms.Destroy()
			return nil, err
		}

		err = NewDescriptorWriter(layout).
			WriteBuffer(0, buffer.DescriptorInfo(gpu.WholeSize, 0)).
			Update(uniforms.sets[i])
		if err != nil {
			uniforms.Destroy()
			return nil, err
		}
	}

	return uniforms, nil
}

// Write stores ubo in the buffer of frameIndex and flushes it.
func (u *GlobalUniforms) Write(frameIndex int, ubo GlobalUniformBufferObject) error {
	if frameIndex < 0 || frameIndex >= MaxFramesInFlight {
		return errors.Newf("frame index %d out of range", frameIndex)
	}

	buffer := u.buffers[frameIndex]
	err := buffer.WriteValue(&ubo, 0)
	if err != nil {
		return err
	}
	return buffer.Flush(gpu.WholeSize, 0)
}

func (u *GlobalUniforms) Set(frameIndex int) gpu.DescriptorSet {
	return u.sets[frameIndex]
}

func (u *GlobalUniforms) Buffer(frameIndex int) *Buffer {
	return u.buffers[frameIndex]
}

func (u *GlobalUniforms) SetLayout() *DescriptorSetLayout {
	return u.layout
}

func (u *GlobalUniforms) Destroy() {
	for i, buffer := range u.buffers {
		if buffer != nil {
			buffer.Destroy()
			u.buffers[i] = nil
		}
	}
	u.layout.Destroy()
}
