package systems

import (
	"io/fs"

	"github.com/vkngwrapper/playground/engine"
	"github.com/vkngwrapper/playground/gpu"
)

const (
	pointLightVertexShader   = "point_light.vert.spv"
	pointLightFragmentShader = "point_light.frag.spv"

	// pointLightVertices is two triangles; the vertex shader expands them
	// into a camera-facing billboard.
	pointLightVertices = 6
)

// PointLightRenderSystem draws the light from the global uniforms as a
// billboard. It has no vertex input.
type PointLightRenderSystem struct {
	driver         gpu.Device
	pipelineLayout gpu.PipelineLayout
	pipeline       *engine.GraphicsPipeline
}

func NewPointLightRenderSystem(device *engine.Device, renderPass gpu.RenderPass, shaders fs.FS,
	globalLayout *engine.DescriptorSetLayout) (*PointLightRenderSystem, error) {
	system := &PointLightRenderSystem{driver: device.Driver()}

	var err error
	system.pipelineLayout, err = createPipelineLayout(device, []*engine.DescriptorSetLayout{globalLayout}, nil)
	if err != nil {
		return nil, err
	}

	config := engine.DefaultGraphicsPipelineConfig()
	config.BindingDescriptions = nil
	config.AttributeDescriptions = nil
	config.PipelineLayout = system.pipelineLayout
	config.RenderPass = renderPass

	system.pipeline, err = engine.NewGraphicsPipeline(device, shaders, pointLightVertexShader, pointLightFragmentShader, config)
	if err != nil {
		system.driver.DestroyPipelineLayout(system.pipelineLayout)
		return nil, err
	}

	return system, nil
}

func (s *PointLightRenderSystem) Render(frame FrameInfo) {
	s.pipeline.Bind(frame.CommandBuffer)
	s.driver.CmdBindDescriptorSets(frame.CommandBuffer, s.pipelineLayout, engine.GlobalSet, frame.GlobalSet)
	s.driver.CmdDraw(frame.CommandBuffer, pointLightVertices, 1, 0, 0)
}

func (s *PointLightRenderSystem) Destroy() {
	s.pipeline.Destroy()
	s.driver.DestroyPipelineLayout(s.pipelineLayout)
}
