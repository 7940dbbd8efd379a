package engine

import (
	"testing"
	"testing/fstest"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
	"github.com/vkngwrapper/playground/gpu/gputest"
)

func TestLoadShaderCode(t *testing.T) {
	shaders := testShaders()
	shaders["empty.spv"] = &fstest.MapFile{Data: nil}
	shaders["ragged.spv"] = &fstest.MapFile{Data: []byte{0x03, 0x02, 0x23, 0x07, 0x00}}
	shaders["garbage.spv"] = &fstest.MapFile{Data: []byte("not spir-v")}
	shaders["source.vert"] = &fstest.MapFile{Data: spirvBlob()}

	code, err := LoadShaderCode(shaders, "shader.vert.spv")
	require.NoError(t, err)
	assert.Equal(t, []uint32{spirvMagic, 1, 2, 3}, code)

	for _, name := range []string{"missing.spv", "empty.spv", "ragged.spv", "garbage.spv", "source.vert"} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadShaderCode(shaders, name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShaderModuleLoad))
			assert.Contains(t, err.Error(), name)
		})
	}
}

type pipelineFixture struct {
	device     *Device
	fake       *gputest.Device
	layout     gpu.PipelineLayout
	renderPass gpu.RenderPass
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{}
	f.device, _, f.fake = newTestDevice(t)

	var err error
	f.layout, err = f.device.Driver().CreatePipelineLayout(gpu.PipelineLayoutCreateInfo{})
	require.NoError(t, err)
	f.renderPass, err = f.device.Driver().CreateRenderPass(core1_0.RenderPassCreateInfo{})
	require.NoError(t, err)
	return f
}

func (f *pipelineFixture) config() GraphicsPipelineConfig {
	config := DefaultGraphicsPipelineConfig()
	config.PipelineLayout = f.layout
	config.RenderPass = f.renderPass
	return config
}

func (f *pipelineFixture) teardown(t *testing.T) {
	f.device.Driver().DestroyRenderPass(f.renderPass)
	f.device.Driver().DestroyPipelineLayout(f.layout)
	assertClean(t, f.device, f.fake)
}

func TestNewGraphicsPipeline(t *testing.T) {
	f := newPipelineFixture(t)
	defer f.teardown(t)

	pipeline, err := NewGraphicsPipeline(f.device, testShaders(), "shader.vert.spv", "shader.frag.spv", f.config())
	require.NoError(t, err)
	defer pipeline.Destroy()

	assert.Equal(t, f.layout, pipeline.Layout())
	assert.Zero(t, f.fake.LiveCount(gputest.KindShaderModule), "shader modules are released after creation")

	info := f.fake.PipelineInfo(pipeline.Handle())
	require.Len(t, info.Stages, 2)
	assert.Equal(t, core1_0.StageVertex, info.Stages[0].Stage)
	assert.Equal(t, core1_0.StageFragment, info.Stages[1].Stage)
	assert.Equal(t, "main", info.Stages[0].Name)
	assert.Equal(t, f.renderPass, info.RenderPass)
	require.NotNil(t, info.DynamicState)
	assert.ElementsMatch(t, []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor}, info.DynamicState.DynamicStates)
	require.NotNil(t, info.ColorBlendState)
	assert.Len(t, info.ColorBlendState.Attachments, 1)
	require.NotNil(t, info.DepthStencilState)
	assert.True(t, info.DepthStencilState.DepthTestEnable)
	require.NotNil(t, info.RasterizationState)
	assert.Zero(t, info.RasterizationState.CullMode, "no faces are culled")
	assert.Equal(t, core1_0.PolygonModeFill, info.RasterizationState.PolygonMode)
	assert.Len(t, info.VertexInputState.VertexAttributeDescriptions, 4)
}

func TestGraphicsPipelineBind(t *testing.T) {
	f := newPipelineFixture(t)
	defer f.teardown(t)

	pipeline, err := NewGraphicsPipeline(f.device, testShaders(), "shader.vert.spv", "shader.frag.spv", f.config())
	require.NoError(t, err)
	defer pipeline.Destroy()

	buffers, err := f.device.Driver().AllocateCommandBuffers(f.device.CommandPool(), 1)
	require.NoError(t, err)
	require.NoError(t, f.device.Driver().BeginCommandBuffer(buffers[0], 0))

	pipeline.Bind(buffers[0])

	commands := f.fake.Recorded(buffers[0])
	require.Len(t, commands, 1)
	assert.Equal(t, "CmdBindPipeline", commands[0].Name)
	assert.Equal(t, pipeline.Handle(), commands[0].Args)

	require.NoError(t, f.device.Driver().EndCommandBuffer(buffers[0]))
	f.device.Driver().FreeCommandBuffers(buffers...)
}

func TestNewGraphicsPipelineShaderErrors(t *testing.T) {
	f := newPipelineFixture(t)
	defer f.teardown(t)

	_, err := NewGraphicsPipeline(f.device, testShaders(), "missing.vert.spv", "shader.frag.spv", f.config())
	assert.True(t, errors.Is(err, ErrShaderModuleLoad))

	_, err = NewGraphicsPipeline(f.device, testShaders(), "shader.vert.spv", "missing.frag.spv", f.config())
	assert.True(t, errors.Is(err, ErrShaderModuleLoad))
	assert.Zero(t, f.fake.LiveCount(gputest.KindShaderModule))

	f.fake.FailOn("CreateShaderModule")
	_, err = NewGraphicsPipeline(f.device, testShaders(), "shader.vert.spv", "shader.frag.spv", f.config())
	assert.True(t, errors.Is(err, ErrShaderModuleLoad))
	f.fake.ClearFailures()
}

func TestNewGraphicsPipelineCreationErrors(t *testing.T) {
	f := newPipelineFixture(t)
	defer f.teardown(t)

	noLayout := f.config()
	noLayout.PipelineLayout = 0
	_, err := NewGraphicsPipeline(f.device, testShaders(), "shader.vert.spv", "shader.frag.spv", noLayout)
	assert.True(t, errors.Is(err, ErrPipelineCreation))

	noRenderPass := f.config()
	noRenderPass.RenderPass = 0
	_, err = NewGraphicsPipeline(f.device, testShaders(), "shader.vert.spv", "shader.frag.spv", noRenderPass)
	assert.True(t, errors.Is(err, ErrPipelineCreation))

	f.fake.FailOn("CreateGraphicsPipeline")
	_, err = NewGraphicsPipeline(f.device, testShaders(), "shader.vert.spv", "shader.frag.spv", f.config())
	assert.True(t, errors.Is(err, ErrPipelineCreation))
	assert.True(t, errors.Is(err, gputest.ErrInjected))
	assert.Zero(t, f.fake.LiveCount(gputest.KindShaderModule))
	f.fake.ClearFailures()
}

func TestVertexLayout(t *testing.T) {
	bindings := VertexBindingDescriptions()
	require.Len(t, bindings, 1)
	assert.Equal(t, int(unsafe.Sizeof(Vertex{})), bindings[0].Stride)
	assert.Equal(t, 44, bindings[0].Stride)

	attributes := VertexAttributeDescriptions()
	offsets := make([]int, len(attributes))
	for i, attribute := range attributes {
		assert.Equal(t, uint32(i), attribute.Location)
		offsets[i] = attribute.Offset
	}
	assert.Equal(t, []int{0, 12, 24, 36}, offsets)
}
