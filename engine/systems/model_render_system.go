package systems

import (
	"bytes"
	"encoding/binary"
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/engine"
	"github.com/vkngwrapper/playground/gpu"
)

const (
	modelVertexShader   = "model.vert.spv"
	modelFragmentShader = "model.frag.spv"
)

// modelPushConstants must match the push constant block of the model shaders.
type modelPushConstants struct {
	Model  mgl32.Mat4
	Normal mgl32.Mat4
}

// ModelRenderSystem draws lit, textured models. Models without a texture are
// drawn with the fallback texture.
type ModelRenderSystem struct {
	driver         gpu.Device
	pipelineLayout gpu.PipelineLayout
	pipeline       *engine.GraphicsPipeline
	fallback       *engine.Texture
}

func NewModelRenderSystem(device *engine.Device, renderPass gpu.RenderPass, shaders fs.FS,
	globalLayout, textureLayout *engine.DescriptorSetLayout, fallback *engine.Texture) (*ModelRenderSystem, error) {
	if fallback == nil {
		return nil, errors.New("model render system needs a fallback texture")
	}

	system := &ModelRenderSystem{
		driver:   device.Driver(),
		fallback: fallback,
	}

	var err error
	system.pipelineLayout, err = createPipelineLayout(device,
		[]*engine.DescriptorSetLayout{globalLayout, textureLayout},
		[]gpu.PushConstantRange{
			{
				Stages: core1_0.StageVertex,
				Offset: 0,
				Size:   binary.Size(modelPushConstants{}),
			},
		})
	if err != nil {
		return nil, err
	}

	config := engine.DefaultGraphicsPipelineConfig()
	config.PipelineLayout = system.pipelineLayout
	config.RenderPass = renderPass

	system.pipeline, err = engine.NewGraphicsPipeline(device, shaders, modelVertexShader, modelFragmentShader, config)
	if err != nil {
		system.driver.DestroyPipelineLayout(system.pipelineLayout)
		return nil, err
	}

	return system, nil
}

func (s *ModelRenderSystem) Render(frame FrameInfo, models []*engine.Model) error {
	s.pipeline.Bind(frame.CommandBuffer)
	s.driver.CmdBindDescriptorSets(frame.CommandBuffer, s.pipelineLayout, engine.GlobalSet, frame.GlobalSet)

	for _, model := range models {
		texture := model.Texture
		if texture == nil {
			texture = s.fallback
		}
		texture.Bind(frame.CommandBuffer, s.pipelineLayout)

		pushConstants := modelPushConstants{
			Model:  model.Transform.Mat4(),
			Normal: model.Transform.NormalMatrix(),
		}

		buf := &bytes.Buffer{}
		err := binary.Write(buf, common.ByteOrder, &pushConstants)
		if err != nil {
			return errors.Wrap(err, "encode model push constants")
		}
		s.driver.CmdPushConstants(frame.CommandBuffer, s.pipelineLayout, core1_0.StageVertex, 0, buf.Bytes())

		model.Bind(frame.CommandBuffer)
		model.Draw(frame.CommandBuffer)
	}

	return nil
}

func (s *ModelRenderSystem) Destroy() {
	s.pipeline.Destroy()
	s.driver.DestroyPipelineLayout(s.pipelineLayout)
}
