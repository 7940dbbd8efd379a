package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/playground/gpu"
)

// MaxFramesInFlight is the number of frame slots. At most this many frames of
// GPU work are outstanding at once.
const MaxFramesInFlight = 2

// DepthFormat is the format of the depth attachment of every framebuffer.
const DepthFormat = core1_0.FormatD32SignedFloat

type frameSlot struct {
	imageAvailable gpu.Semaphore
	renderFinished gpu.Semaphore
	inFlight       gpu.Fence
}

// Swapchain owns the presentable images, the render pass that targets them and
// the synchronization objects of every frame slot.
type Swapchain struct {
	device *Device
	driver gpu.Device

	swapchain   gpu.Swapchain
	imageFormat core1_0.Format
	colorSpace  khr_surface.ColorSpace
	presentMode khr_surface.PresentMode
	extent      core1_0.Extent2D

	images       []gpu.Image
	imageViews   []gpu.ImageView
	depthImages  []*Image
	depthViews   []gpu.ImageView
	renderPass   gpu.RenderPass
	framebuffers []gpu.Framebuffer

	slots      [MaxFramesInFlight]frameSlot
	frameIndex int
}

// NewSwapchain builds a swapchain sized for windowExtent. When old is non-nil
// it is chained into the new swapchain and destroyed afterwards; the caller
// must not use old again, and the device must be idle.
func NewSwapchain(device *Device, windowExtent core1_0.Extent2D, old *Swapchain) (*Swapchain, error) {
	swapchain := &Swapchain{device: device, driver: device.Driver()}

	err := swapchain.createSwapchain(windowExtent, old)
	if old != nil {
		old.Destroy()
	}
	if err != nil {
		return nil, err
	}

	err = swapchain.createImageViews()
	if err != nil {
		swapchain.Destroy()
		return nil, err
	}

	err = swapchain.createDepthResources()
	if err != nil {
		swapchain.Destroy()
		return nil, err
	}

	err = swapchain.createRenderPass()
	if err != nil {
		swapchain.Destroy()
		return nil, err
	}

	err = swapchain.createFramebuffers()
	if err != nil {
		swapchain.Destroy()
		return nil, err
	}

	err = swapchain.createSyncObjects()
	if err != nil {
		swapchain.Destroy()
		return nil, err
	}

	device.Logger().Info("created swapchain",
		"format", swapchain.imageFormat,
		"colorSpace", swapchain.colorSpace,
		"presentMode", swapchain.presentMode,
		"width", swapchain.extent.Width,
		"height", swapchain.extent.Height,
		"images", len(swapchain.images),
	)
	return swapchain, nil
}

func (s *Swapchain) createSwapchain(windowExtent core1_0.Extent2D, old *Swapchain) error {
	swapchainSupport, err := s.device.SwapchainSupport()
	if err != nil {
		return errors.Wrap(err, "query swapchain support")
	}
	if len(swapchainSupport.Formats) == 0 || len(swapchainSupport.PresentModes) == 0 {
		return errors.New("surface reports no formats or present modes")
	}

	surfaceFormat := chooseSurfaceFormat(swapchainSupport.Formats)
	presentMode := choosePresentMode(swapchainSupport.PresentModes)
	extent := chooseExtent(swapchainSupport.Capabilities, windowExtent)
	imageCount := chooseImageCount(swapchainSupport.Capabilities)

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	indices := s.device.QueueFamilies()
	if *indices.GraphicsFamily != *indices.PresentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *indices.GraphicsFamily, *indices.PresentFamily)
	}

	var oldSwapchain gpu.Swapchain
	if old != nil {
		oldSwapchain = old.swapchain
	}

	s.swapchain, err = s.driver.CreateSwapchain(gpu.SwapchainCreateInfo{
		MinImageCount:   imageCount,
		ImageFormat:     surfaceFormat.Format,
		ImageColorSpace: surfaceFormat.ColorSpace,
		ImageExtent:     extent,
		ImageUsage:      core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   swapchainSupport.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,

		OldSwapchain: oldSwapchain,
	})
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}

	s.imageFormat = surfaceFormat.Format
	s.colorSpace = surfaceFormat.ColorSpace
	s.presentMode = presentMode
	s.extent = extent
	return nil
}

func (s *Swapchain) createImageViews() error {
	images, err := s.driver.GetSwapchainImages(s.swapchain)
	if err != nil {
		return errors.Wrap(err, "get swapchain images")
	}
	s.images = images

	for _, image := range images {
		view, err := s.driver.CreateImageView(gpu.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   s.imageFormat,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return errors.Wrap(err, "create swapchain image view")
		}

		s.imageViews = append(s.imageViews, view)
	}

	return nil
}

func (s *Swapchain) createDepthResources() error {
	for range s.images {
		depthImage, err := NewImage(s.device, s.extent.Width, s.extent.Height, DepthFormat, core1_0.ImageUsageDepthStencilAttachment)
		if err != nil {
			return errors.Wrap(err, "create depth image")
		}
		s.depthImages = append(s.depthImages, depthImage)

		view, err := depthImage.CreateView()
		if err != nil {
			return errors.Wrap(err, "create depth image view")
		}
		s.depthViews = append(s.depthViews, view)
	}

	return nil
}

func (s *Swapchain) createRenderPass() error {
	var err error
	s.renderPass, err = s.driver.CreateRenderPass(core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         s.imageFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
			{
				Format:         DepthFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	return errors.Wrap(err, "create render pass")
}

func (s *Swapchain) createFramebuffers() error {
	for i, imageView := range s.imageViews {
		framebuffer, err := s.driver.CreateFramebuffer(gpu.FramebufferCreateInfo{
			RenderPass:  s.renderPass,
			Layers:      1,
			Attachments: []gpu.ImageView{imageView, s.depthViews[i]},
			Width:       s.extent.Width,
			Height:      s.extent.Height,
		})
		if err != nil {
			return errors.Wrap(err, "create framebuffer")
		}

		s.framebuffers = append(s.framebuffers, framebuffer)
	}

	return nil
}

func (s *Swapchain) createSyncObjects() error {
	for i := range s.slots {
		slot := &s.slots[i]

		var err error
		slot.imageAvailable, err = s.driver.CreateSemaphore()
		if err != nil {
			return errors.Wrap(err, "create image-available semaphore")
		}

		slot.renderFinished, err = s.driver.CreateSemaphore()
		if err != nil {
			return errors.Wrap(err, "create render-finished semaphore")
		}

		// Signaled so the first wait on every slot returns immediately.
		slot.inFlight, err = s.driver.CreateFence(core1_0.FenceCreateSignaled)
		if err != nil {
			return errors.Wrap(err, "create in-flight fence")
		}
	}

	return nil
}

// AcquireNextImage waits until the current frame slot is free and then asks
// for the next presentable image. The returned index is only meaningful when
// the result is not OutOfDate.
func (s *Swapchain) AcquireNextImage() (int, Result, error) {
	slot := &s.slots[s.frameIndex]

	err := s.driver.WaitForFences(true, slot.inFlight)
	if err != nil {
		return 0, Success, errors.Wrap(err, "wait for frame slot")
	}

	err = s.driver.ResetFences(slot.inFlight)
	if err != nil {
		return 0, Success, errors.Wrap(err, "reset frame slot fence")
	}

	imageIndex, res, err := s.driver.AcquireNextImage(s.swapchain, slot.imageAvailable)
	result, err := classifyResult(res, err)
	if err != nil {
		return 0, result, errors.Wrap(err, "acquire swapchain image")
	}
	return imageIndex, result, nil
}

// SubmitAndPresent submits commandBuffer for the current frame slot and
// presents imageIndex once rendering finishes. The frame slot advances even
// when presentation fails.
func (s *Swapchain) SubmitAndPresent(commandBuffer gpu.CommandBuffer, imageIndex int) (Result, error) {
	slot := &s.slots[s.frameIndex]
	s.frameIndex = (s.frameIndex + 1) % MaxFramesInFlight

	err := s.driver.QueueSubmit(s.device.GraphicsQueue(), slot.inFlight, gpu.SubmitInfo{
		WaitSemaphores:   []gpu.Semaphore{slot.imageAvailable},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []gpu.CommandBuffer{commandBuffer},
		SignalSemaphores: []gpu.Semaphore{slot.renderFinished},
	})
	if err != nil {
		return Success, errors.Wrap(err, "submit frame")
	}

	res, err := s.driver.QueuePresent(s.device.PresentQueue(), gpu.PresentInfo{
		WaitSemaphores: []gpu.Semaphore{slot.renderFinished},
		Swapchain:      s.swapchain,
		ImageIndex:     imageIndex,
	})
	result, err := classifyResult(res, err)
	if err != nil {
		return result, errors.Wrap(err, "present frame")
	}
	return result, nil
}

func (s *Swapchain) RenderPass() gpu.RenderPass {
	return s.renderPass
}

func (s *Swapchain) Framebuffer(imageIndex int) gpu.Framebuffer {
	return s.framebuffers[imageIndex]
}

func (s *Swapchain) Extent() core1_0.Extent2D {
	return s.extent
}

func (s *Swapchain) ImageFormat() core1_0.Format {
	return s.imageFormat
}

func (s *Swapchain) PresentMode() khr_surface.PresentMode {
	return s.presentMode
}

func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// FrameIndex is the frame slot the next acquisition will use.
func (s *Swapchain) FrameIndex() int {
	return s.frameIndex
}

func (s *Swapchain) AspectRatio() float32 {
	return float32(s.extent.Width) / float32(s.extent.Height)
}

// Destroy releases everything the swapchain owns. The device must be idle.
func (s *Swapchain) Destroy() {
	for _, framebuffer := range s.framebuffers {
		s.driver.DestroyFramebuffer(framebuffer)
	}
	s.framebuffers = nil

	if s.renderPass != 0 {
		s.driver.DestroyRenderPass(s.renderPass)
		s.renderPass = 0
	}

	for _, imageView := range s.imageViews {
		s.driver.DestroyImageView(imageView)
	}
	s.imageViews = nil

	for _, depthView := range s.depthViews {
		s.driver.DestroyImageView(depthView)
	}
	s.depthViews = nil

	for _, depthImage := range s.depthImages {
		depthImage.Destroy()
	}
	s.depthImages = nil

	if s.swapchain != 0 {
		s.driver.DestroySwapchain(s.swapchain)
		s.swapchain = 0
	}

	for i := range s.slots {
		slot := &s.slots[i]
		if slot.imageAvailable != 0 {
			s.driver.DestroySemaphore(slot.imageAvailable)
		}
		if slot.renderFinished != 0 {
			s.driver.DestroySemaphore(slot.renderFinished)
		}
		if slot.inFlight != 0 {
			s.driver.DestroyFence(slot.inFlight)
		}
		*slot = frameSlot{}
	}
}
