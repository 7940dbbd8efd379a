package engine

import (
	"io/fs"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

const (
	shaderExtension = ".spv"
	spirvMagic      = 0x07230203
)

// GraphicsPipelineConfig holds every fixed-function setting of a graphics
// pipeline along with the layout and render pass it is built against.
type GraphicsPipelineConfig struct {
	BindingDescriptions   []core1_0.VertexInputBindingDescription
	AttributeDescriptions []core1_0.VertexInputAttributeDescription

	InputAssembly        core1_0.PipelineInputAssemblyStateCreateInfo
	Viewport             core1_0.PipelineViewportStateCreateInfo
	Rasterization        core1_0.PipelineRasterizationStateCreateInfo
	Multisample          core1_0.PipelineMultisampleStateCreateInfo
	ColorBlendAttachment core1_0.PipelineColorBlendAttachmentState
	ColorBlend           core1_0.PipelineColorBlendStateCreateInfo
	DepthStencil         core1_0.PipelineDepthStencilStateCreateInfo
	DynamicStates        []core1_0.DynamicState

	PipelineLayout gpu.PipelineLayout
	RenderPass     gpu.RenderPass
	Subpass        int
}

// DefaultGraphicsPipelineConfig returns a triangle-list pipeline reading
// Vertex records, with no face culling, a less-than depth test that writes
// depth, blending disabled and a dynamic viewport and scissor. Layout and
// render pass are left for the caller.
func DefaultGraphicsPipelineConfig() GraphicsPipelineConfig {
	return GraphicsPipelineConfig{
		BindingDescriptions:   VertexBindingDescriptions(),
		AttributeDescriptions: VertexAttributeDescriptions(),

		InputAssembly: core1_0.PipelineInputAssemblyStateCreateInfo{
			Topology:               core1_0.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: false,
		},

		// One placeholder of each; the real values are set while recording.
		Viewport: core1_0.PipelineViewportStateCreateInfo{
			Viewports: []core1_0.Viewport{{}},
			Scissors:  []core1_0.Rect2D{{}},
		},

		Rasterization: core1_0.PipelineRasterizationStateCreateInfo{
			DepthClampEnable:        false,
			RasterizerDiscardEnable: false,

			PolygonMode: core1_0.PolygonModeFill,
			// No cull bits set: both faces are drawn.
			CullMode:    0,
			FrontFace:   core1_0.FrontFaceClockwise,

			DepthBiasEnable: false,

			LineWidth: 1.0,
		},

		Multisample: core1_0.PipelineMultisampleStateCreateInfo{
			SampleShadingEnable:  false,
			RasterizationSamples: core1_0.Samples1,
			MinSampleShading:     1.0,
		},

		ColorBlendAttachment: core1_0.PipelineColorBlendAttachmentState{
			BlendEnabled:   false,
			ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
		},

		ColorBlend: core1_0.PipelineColorBlendStateCreateInfo{
			LogicOpEnabled: false,
			LogicOp:        core1_0.LogicOpCopy,
			BlendConstants: [4]float32{0, 0, 0, 0},
		},

		DepthStencil: core1_0.PipelineDepthStencilStateCreateInfo{
			DepthTestEnable:  true,
			DepthWriteEnable: true,
			DepthCompareOp:   core1_0.CompareOpLess,
		},

		DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor},
	}
}

// GraphicsPipeline is an immutable compiled pipeline. It does not own its
// layout or render pass.
type GraphicsPipeline struct {
	_ noCopy

	driver   gpu.Device
	pipeline gpu.Pipeline
	layout   gpu.PipelineLayout
}

// NewGraphicsPipeline compiles a pipeline from the vertex and fragment shader
// bytecode files at vertPath and fragPath within shaders.
func NewGraphicsPipeline(device *Device, shaders fs.FS, vertPath, fragPath string, config GraphicsPipelineConfig) (*GraphicsPipeline, error) {
	if config.PipelineLayout == 0 {
		return nil, errors.Mark(errors.New("no pipeline layout in config"), ErrPipelineCreation)
	}
	if config.RenderPass == 0 {
		return nil, errors.Mark(errors.New("no render pass in config"), ErrPipelineCreation)
	}

	driver := device.Driver()

	vertShader, err := loadShaderModule(driver, shaders, vertPath)
	if err != nil {
		return nil, err
	}
	defer driver.DestroyShaderModule(vertShader)

	fragShader, err := loadShaderModule(driver, shaders, fragPath)
	if err != nil {
		return nil, err
	}
	defer driver.DestroyShaderModule(fragShader)

	colorBlend := config.ColorBlend
	colorBlend.Attachments = []core1_0.PipelineColorBlendAttachmentState{config.ColorBlendAttachment}

	var dynamicState *core1_0.PipelineDynamicStateCreateInfo
	if len(config.DynamicStates) > 0 {
		dynamicState = &core1_0.PipelineDynamicStateCreateInfo{
			DynamicStates: config.DynamicStates,
		}
	}

	pipeline, err := driver.CreateGraphicsPipeline(gpu.GraphicsPipelineCreateInfo{
		Stages: []gpu.PipelineShaderStage{
			{
				Stage:  core1_0.StageVertex,
				Module: vertShader,
				Name:   "main",
			},
			{
				Stage:  core1_0.StageFragment,
				Module: fragShader,
				Name:   "main",
			},
		},
		VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
			VertexBindingDescriptions:   config.BindingDescriptions,
			VertexAttributeDescriptions: config.AttributeDescriptions,
		},
		InputAssemblyState: &config.InputAssembly,
		ViewportState:      &config.Viewport,
		RasterizationState: &config.Rasterization,
		MultisampleState:   &config.Multisample,
		DepthStencilState:  &config.DepthStencil,
		ColorBlendState:    &colorBlend,
		DynamicState:       dynamicState,
		Layout:             config.PipelineLayout,
		RenderPass:         config.RenderPass,
		Subpass:            config.Subpass,
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "pipeline from %s and %s", vertPath, fragPath), ErrPipelineCreation)
	}

	return &GraphicsPipeline{
		driver:   driver,
		pipeline: pipeline,
		layout:   config.PipelineLayout,
	}, nil
}

func loadShaderModule(driver gpu.Device, shaders fs.FS, filePath string) (gpu.ShaderModule, error) {
	code, err := LoadShaderCode(shaders, filePath)
	if err != nil {
		return 0, err
	}

	module, err := driver.CreateShaderModule(code)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "create shader module %s", filePath), ErrShaderModuleLoad)
	}
	return module, nil
}

// LoadShaderCode reads a compiled SPIR-V file and returns its words.
func LoadShaderCode(shaders fs.FS, filePath string) ([]uint32, error) {
	if path.Ext(filePath) != shaderExtension {
		return nil, errors.Mark(errors.Newf("%s is not a %s file", filePath, shaderExtension), ErrShaderModuleLoad)
	}

	b, err := fs.ReadFile(shaders, filePath)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read shader %s", filePath), ErrShaderModuleLoad)
	}

	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Mark(errors.Newf("shader %s has length %d, not a whole number of words", filePath, len(b)), ErrShaderModuleLoad)
	}

	code := bytesToBytecode(b)
	if code[0] != spirvMagic {
		return nil, errors.Mark(errors.Newf("shader %s has bad magic number %#08x", filePath, code[0]), ErrShaderModuleLoad)
	}
	return code, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}

// Bind records a bind of the pipeline; it takes effect for later draws.
func (p *GraphicsPipeline) Bind(commandBuffer gpu.CommandBuffer) {
	p.driver.CmdBindPipeline(commandBuffer, p.pipeline)
}

func (p *GraphicsPipeline) Handle() gpu.Pipeline {
	return p.pipeline
}

func (p *GraphicsPipeline) Layout() gpu.PipelineLayout {
	return p.layout
}

func (p *GraphicsPipeline) Destroy() {
	if p.pipeline == 0 {
		return
	}
	p.driver.DestroyPipeline(p.pipeline)
	p.pipeline = 0
}
