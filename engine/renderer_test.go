package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/playground/gpu"
	"github.com/vkngwrapper/playground/gpu/gputest"
)

type rendererFixture struct {
	device   *Device
	instance *gputest.Instance
	fake     *gputest.Device
	window   *gputest.Window
	renderer *Renderer
}

func newRendererFixture(t *testing.T) *rendererFixture {
	t.Helper()

	f := &rendererFixture{window: gputest.NewWindow(800, 600)}
	f.device, f.instance, f.fake = newTestDevice(t)

	var err error
	f.renderer, err = NewRenderer(f.device, f.window)
	require.NoError(t, err)
	return f
}

func (f *rendererFixture) teardown(t *testing.T) {
	t.Helper()

	require.NoError(t, f.device.WaitIdle())
	f.renderer.Destroy()
	assertClean(t, f.device, f.fake)
}

// drawEmptyFrame records an empty render pass. It reports whether a frame
// was recorded.
func (f *rendererFixture) drawEmptyFrame(t *testing.T) bool {
	t.Helper()

	commandBuffer, ok, err := f.renderer.BeginFrame()
	require.NoError(t, err)
	if !ok {
		return false
	}
	assert.True(t, f.renderer.FrameInProgress())

	require.NoError(t, f.renderer.BeginRenderPass(commandBuffer))
	f.renderer.EndRenderPass(commandBuffer)
	require.NoError(t, f.renderer.EndFrame())
	assert.False(t, f.renderer.FrameInProgress())
	return true
}

func (f *rendererFixture) swapchainHandle() gpu.Swapchain {
	return f.renderer.Swapchain().swapchain
}

func TestRendererFramesInFlight(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	const frames = MaxFramesInFlight + 1
	for i := 0; i < frames; i++ {
		require.True(t, f.drawEmptyFrame(t))
		assert.LessOrEqual(t, f.fake.Outstanding(), MaxFramesInFlight)
	}

	assert.Equal(t, frames, f.fake.Submissions())
	assert.Len(t, f.fake.Presented(), frames)
	assert.LessOrEqual(t, f.fake.MaxOutstanding(), MaxFramesInFlight)
	assert.Equal(t, idle, f.fake.WaitIdleCount())
}

func TestRendererSlotRotation(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	assert.Equal(t, 0, f.renderer.FrameIndex())
	for k := 1; k <= 7; k++ {
		require.True(t, f.drawEmptyFrame(t))
		assert.Equal(t, k%MaxFramesInFlight, f.renderer.FrameIndex())
	}
}

func TestRendererRecordsRenderPass(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	f.renderer.SetClearColor(0.1, 0.2, 0.3, 1)
	slot := f.renderer.FrameIndex()
	require.True(t, f.drawEmptyFrame(t))

	commands := f.fake.Recorded(f.renderer.commandBuffers[slot])
	require.Len(t, commands, 4)
	assert.Equal(t, "CmdSetViewport", commands[0].Name)
	assert.Equal(t, "CmdSetScissor", commands[1].Name)
	assert.Equal(t, "CmdBeginRenderPass", commands[2].Name)
	assert.Equal(t, "CmdEndRenderPass", commands[3].Name)

	begin := commands[2].Args.(gpu.RenderPassBeginInfo)
	assert.Equal(t, f.renderer.RenderPass(), begin.RenderPass)
	assert.Equal(t, f.renderer.Extent(), begin.RenderArea.Extent)
	require.Len(t, begin.ClearValues, 2)
	assert.Equal(t, core1_0.ClearValueFloat{0.1, 0.2, 0.3, 1}, begin.ClearValues[0])

	viewports := commands[0].Args.([]core1_0.Viewport)
	require.Len(t, viewports, 1)
	assert.Equal(t, float32(800), viewports[0].Width)
	assert.Equal(t, float32(600), viewports[0].Height)
}

func TestRendererViewportUsesSwapchainExtent(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	// The window asks for a size the surface does not honour.
	f.window.QueueResize(1920, 1080)
	f.window.WaitEvents()
	f.window.ResetResizedFlag()

	slot := f.renderer.FrameIndex()
	require.True(t, f.drawEmptyFrame(t))

	viewports := f.fake.Recorded(f.renderer.commandBuffers[slot])[0].Args.([]core1_0.Viewport)
	assert.Equal(t, float32(800), viewports[0].Width)
	assert.InDelta(t, 800.0/600.0, f.renderer.AspectRatio(), 1e-6)
}

func TestRendererOutOfDateOnAcquire(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	require.True(t, f.drawEmptyFrame(t))
	old := f.swapchainHandle()

	f.fake.ScriptAcquire(khr_swapchain.VKErrorOutOfDate)
	assert.False(t, f.drawEmptyFrame(t))
	assert.False(t, f.renderer.FrameInProgress())

	assert.NotEqual(t, old, f.swapchainHandle())
	assert.Equal(t, old, f.fake.SwapchainInfo(f.swapchainHandle()).OldSwapchain)
	assert.Equal(t, 1, f.fake.LiveCount(gputest.KindSwapchain))
	assert.Equal(t, 1, f.fake.WaitIdleCount())
	assert.Len(t, f.fake.Presented(), 1)

	require.True(t, f.drawEmptyFrame(t))
	assert.Len(t, f.fake.Presented(), 2)
}

func TestRendererOutOfDateOnPresent(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	old := f.swapchainHandle()
	f.fake.ScriptPresent(khr_swapchain.VKErrorOutOfDate)

	require.True(t, f.drawEmptyFrame(t))
	assert.Empty(t, f.fake.Presented())
	assert.NotEqual(t, old, f.swapchainHandle())
	assert.Equal(t, 1, f.fake.Submissions())

	require.True(t, f.drawEmptyFrame(t))
	assert.Len(t, f.fake.Presented(), 1)
}

func TestRendererSuboptimalPresentsThenRebuilds(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	old := f.swapchainHandle()
	f.fake.ScriptPresent(khr_swapchain.VKSuboptimal)

	require.True(t, f.drawEmptyFrame(t))
	require.Len(t, f.fake.Presented(), 1)
	assert.Equal(t, old, f.fake.Presented()[0].Swapchain)
	assert.NotEqual(t, old, f.swapchainHandle())
}

func TestRendererSuboptimalAcquireStillRenders(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	old := f.swapchainHandle()
	idle := f.fake.WaitIdleCount()
	f.fake.ScriptAcquire(khr_swapchain.VKSuboptimal)

	require.True(t, f.drawEmptyFrame(t))
	require.Len(t, f.fake.Presented(), 1)
	assert.Equal(t, old, f.fake.Presented()[0].Swapchain, "the suboptimal image is presented")
	assert.NotEqual(t, old, f.swapchainHandle(), "rebuilt after present")
	assert.Equal(t, idle+1, f.fake.WaitIdleCount())

	rebuilt := f.swapchainHandle()
	require.True(t, f.drawEmptyFrame(t))
	assert.Equal(t, rebuilt, f.swapchainHandle(), "one rebuild per suboptimal acquire")
}

func TestRendererClosedWhileMinimized(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	old := f.swapchainHandle()
	idle := f.fake.WaitIdleCount()
	f.window.Resize(0, 0)
	f.window.QueueClose()

	require.True(t, f.drawEmptyFrame(t))
	assert.True(t, f.window.ShouldClose())
	assert.Equal(t, 1, f.window.WaitCount)
	assert.Equal(t, old, f.swapchainHandle())
	assert.Equal(t, idle, f.fake.WaitIdleCount())
}

func TestRendererResize(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	require.True(t, f.drawEmptyFrame(t))
	oldRenderPass := f.renderer.RenderPass()

	f.instance.SetSurfaceExtent(1024, 768)
	f.window.Resize(1024, 768)
	require.True(t, f.drawEmptyFrame(t))

	assert.False(t, f.window.WasResized())
	assert.Equal(t, core1_0.Extent2D{Width: 1024, Height: 768}, f.renderer.Extent())
	assert.NotEqual(t, oldRenderPass, f.renderer.RenderPass())

	images := f.renderer.Swapchain().ImageCount()
	assert.Equal(t, images, f.fake.LiveCount(gputest.KindFramebuffer))
	assert.Equal(t, 2*images, f.fake.LiveCount(gputest.KindImageView), "color and depth views")
	assert.Equal(t, images, f.fake.LiveCount(gputest.KindImage), "depth images")
	assert.Equal(t, 1, f.fake.LiveCount(gputest.KindRenderPass))
	assert.Equal(t, 2*MaxFramesInFlight, f.fake.LiveCount(gputest.KindSemaphore))
	assert.Equal(t, MaxFramesInFlight, f.fake.LiveCount(gputest.KindFence))

	require.True(t, f.drawEmptyFrame(t))
}

func TestRendererWaitsWhileMinimized(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	f.window.Resize(0, 0)
	f.window.QueueResize(0, 0)
	f.window.QueueResize(640, 480)
	f.instance.SetSurfaceExtent(640, 480)

	require.True(t, f.drawEmptyFrame(t))
	assert.Equal(t, 2, f.window.WaitCount)
	assert.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, f.renderer.Extent())
}

func TestRendererFormatChangeIsFatal(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	f.instance.SetSurfaceFormats(khr_surface.SurfaceFormat{
		Format:     core1_0.FormatR8G8B8A8UnsignedNormalized,
		ColorSpace: khr_surface.ColorSpaceSRGBNonlinear,
	})
	f.window.Resize(800, 600)

	_, ok, err := f.renderer.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, f.renderer.BeginRenderPass(f.renderer.currentCommandBuffer()))
	f.renderer.EndRenderPass(f.renderer.currentCommandBuffer())

	err = f.renderer.EndFrame()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format changed")
}

func TestRendererProtocolErrors(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	assert.Error(t, f.renderer.BeginRenderPass(f.renderer.currentCommandBuffer()))
	assert.Error(t, f.renderer.EndFrame())

	_, ok, err := f.renderer.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = f.renderer.BeginFrame()
	assert.Error(t, err)

	require.NoError(t, f.renderer.EndFrame())
}

func TestRendererFatalAcquire(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	f.fake.ScriptAcquire(core1_0.VKErrorDeviceLost)

	_, ok, err := f.renderer.BeginFrame()
	assert.False(t, ok)
	assert.Error(t, err)
	assert.False(t, f.renderer.FrameInProgress())
}

func TestRendererFatalPresent(t *testing.T) {
	f := newRendererFixture(t)
	defer f.teardown(t)

	f.fake.ScriptPresent(core1_0.VKErrorDeviceLost)

	commandBuffer, ok, err := f.renderer.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, f.renderer.BeginRenderPass(commandBuffer))
	f.renderer.EndRenderPass(commandBuffer)

	assert.Error(t, f.renderer.EndFrame())
	assert.Equal(t, 1, f.renderer.FrameIndex(), "slot advances even when presentation fails")
}
