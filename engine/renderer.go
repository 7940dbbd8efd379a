package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
	"golang.org/x/exp/slog"
)

// Window is what the renderer needs from the platform window.
type Window interface {
	// Extent is the drawable size in pixels; zero while minimized.
	Extent() core1_0.Extent2D
	WasResized() bool
	ResetResizedFlag()
	ShouldClose() bool
	// WaitEvents blocks until the platform delivers at least one event.
	WaitEvents()
}

// Renderer drives the per-frame protocol: acquire, record, submit, present,
// and rebuilds the swapchain whenever the surface changes.
type Renderer struct {
	device *Device
	driver gpu.Device
	window Window
	logger *slog.Logger

	swapchain      *Swapchain
	commandBuffers [MaxFramesInFlight]gpu.CommandBuffer

	clearColor   core1_0.ClearValueFloat
	imageIndex   int
	frameStarted bool
	// recreatePending is set by a suboptimal acquire; the rebuild happens
	// after the frame has been presented.
	recreatePending bool
}

func NewRenderer(device *Device, window Window) (*Renderer, error) {
	renderer := &Renderer{
		device:     device,
		driver:     device.Driver(),
		window:     window,
		logger:     device.Logger(),
		clearColor: core1_0.ClearValueFloat{0, 0, 0, 1},
	}

	var err error
	renderer.swapchain, err = NewSwapchain(device, window.Extent(), nil)
	if err != nil {
		return nil, err
	}

	buffers, err := renderer.driver.AllocateCommandBuffers(device.CommandPool(), MaxFramesInFlight)
	if err != nil {
		renderer.swapchain.Destroy()
		return nil, errors.Wrap(err, "allocate frame command buffers")
	}
	copy(renderer.commandBuffers[:], buffers)

	return renderer, nil
}

// BeginFrame starts recording the next frame. It returns ok == false when the
// swapchain had to be rebuilt and no frame can be rendered this iteration.
func (r *Renderer) BeginFrame() (commandBuffer gpu.CommandBuffer, ok bool, err error) {
	if r.frameStarted {
		return 0, false, errors.New("BeginFrame called while a frame is in progress")
	}

	imageIndex, result, err := r.swapchain.AcquireNextImage()
	if err != nil {
		return 0, false, err
	}
	if result == OutOfDate {
		r.logger.Debug("swapchain out of date on acquire")
		return 0, false, r.recreateSwapchain()
	}
	if result == Suboptimal {
		r.logger.Debug("swapchain suboptimal on acquire")
		r.recreatePending = true
	}

	r.imageIndex = imageIndex
	commandBuffer = r.currentCommandBuffer()
	err = r.driver.BeginCommandBuffer(commandBuffer, 0)
	if err != nil {
		return 0, false, errors.Wrap(err, "begin frame command buffer")
	}

	r.frameStarted = true
	return commandBuffer, true, nil
}

// BeginRenderPass sets the dynamic viewport and scissor to the swapchain
// extent and begins the render pass on the acquired image.
func (r *Renderer) BeginRenderPass(commandBuffer gpu.CommandBuffer) error {
	if !r.frameStarted {
		return errors.New("BeginRenderPass called outside a frame")
	}

	extent := r.swapchain.Extent()
	r.driver.CmdSetViewport(commandBuffer, core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	r.driver.CmdSetScissor(commandBuffer, core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: extent,
	})

	err := r.driver.CmdBeginRenderPass(commandBuffer, gpu.RenderPassBeginInfo{
		RenderPass:  r.swapchain.RenderPass(),
		Framebuffer: r.swapchain.Framebuffer(r.imageIndex),
		RenderArea: core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValues: []core1_0.ClearValue{
			r.clearColor,
			core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
		},
	})
	return errors.Wrap(err, "begin render pass")
}

func (r *Renderer) EndRenderPass(commandBuffer gpu.CommandBuffer) {
	r.driver.CmdEndRenderPass(commandBuffer)
}

// EndFrame finishes recording, submits and presents. A suboptimal or
// out-of-date swapchain, or a resized window, triggers a rebuild.
func (r *Renderer) EndFrame() error {
	if !r.frameStarted {
		return errors.New("EndFrame called outside a frame")
	}
	r.frameStarted = false

	commandBuffer := r.currentCommandBuffer()
	err := r.driver.EndCommandBuffer(commandBuffer)
	if err != nil {
		return errors.Wrap(err, "end frame command buffer")
	}

	result, err := r.swapchain.SubmitAndPresent(commandBuffer, r.imageIndex)
	if err != nil {
		return err
	}

	if result != Success || r.window.WasResized() || r.recreatePending {
		r.logger.Debug("rebuilding swapchain", "result", result, "resized", r.window.WasResized(), "pending", r.recreatePending)
		r.window.ResetResizedFlag()
		return r.recreateSwapchain()
	}
	return nil
}

func (r *Renderer) recreateSwapchain() error {
	extent := r.window.Extent()
	for extent.Width == 0 || extent.Height == 0 {
		if r.window.ShouldClose() {
			r.logger.Debug("window closed while minimized, swapchain left as is")
			r.recreatePending = true
			return nil
		}
		r.window.WaitEvents()
		extent = r.window.Extent()
	}

	err := r.device.WaitIdle()
	if err != nil {
		return err
	}

	oldFormat := r.swapchain.ImageFormat()
	r.swapchain, err = NewSwapchain(r.device, extent, r.swapchain)
	if err != nil {
		return errors.Wrap(err, "recreate swapchain")
	}
	r.recreatePending = false

	// Pipelines were built against the old render pass and stay compatible
	// only while the attachment format is unchanged.
	if r.swapchain.ImageFormat() != oldFormat {
		return errors.Newf("swapchain image format changed from %s to %s", oldFormat, r.swapchain.ImageFormat())
	}
	return nil
}

func (r *Renderer) currentCommandBuffer() gpu.CommandBuffer {
	return r.commandBuffers[r.swapchain.FrameIndex()]
}

func (r *Renderer) SetClearColor(red, green, blue, alpha float32) {
	r.clearColor = core1_0.ClearValueFloat{red, green, blue, alpha}
}

// FrameIndex is the slot of the frame being recorded, in [0, MaxFramesInFlight).
func (r *Renderer) FrameIndex() int {
	return r.swapchain.FrameIndex()
}

func (r *Renderer) ImageIndex() int {
	return r.imageIndex
}

func (r *Renderer) FrameInProgress() bool {
	return r.frameStarted
}

func (r *Renderer) RenderPass() gpu.RenderPass {
	return r.swapchain.RenderPass()
}

func (r *Renderer) Extent() core1_0.Extent2D {
	return r.swapchain.Extent()
}

func (r *Renderer) AspectRatio() float32 {
	return r.swapchain.AspectRatio()
}

func (r *Renderer) Swapchain() *Swapchain {
	return r.swapchain
}

// Destroy releases the command buffers and the swapchain. The device must be idle.
func (r *Renderer) Destroy() {
	r.driver.FreeCommandBuffers(r.commandBuffers[:]...)
	r.commandBuffers = [MaxFramesInFlight]gpu.CommandBuffer{}
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
}
