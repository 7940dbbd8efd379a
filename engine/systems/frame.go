// Package systems records the draw calls of each kind of renderable into the
// frame the renderer is building.
package systems

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/playground/camera"
	"github.com/vkngwrapper/playground/engine"
	"github.com/vkngwrapper/playground/gpu"
)

// FrameInfo is everything a system needs to record one frame.
type FrameInfo struct {
	FrameIndex    int
	FrameTime     float32
	CommandBuffer gpu.CommandBuffer
	Camera        *camera.Camera
	GlobalSet     gpu.DescriptorSet
}

func createPipelineLayout(device *engine.Device, setLayouts []*engine.DescriptorSetLayout, pushConstants []gpu.PushConstantRange) (gpu.PipelineLayout, error) {
	handles := make([]gpu.DescriptorSetLayout, len(setLayouts))
	for i, layout := range setLayouts {
		handles[i] = layout.Handle()
	}

	layout, err := device.Driver().CreatePipelineLayout(gpu.PipelineLayoutCreateInfo{
		SetLayouts:         handles,
		PushConstantRanges: pushConstants,
	})
	return layout, errors.Wrap(err, "create pipeline layout")
}
