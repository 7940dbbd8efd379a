package gpu

import (
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

type PhysicalDeviceProperties struct {
	Name              string
	Type              core1_0.PhysicalDeviceType
	PipelineCacheUUID uuid.UUID

	MaxSamplerAnisotropy float32
	// NonCoherentAtomSize is the granularity of flushed host memory ranges.
	NonCoherentAtomSize int
}

type QueueFamilyProperties struct {
	QueueFlags core1_0.QueueFlags
	QueueCount int
}

type MemoryType struct {
	PropertyFlags core1_0.MemoryPropertyFlags
	HeapIndex     int
}

type MemoryRequirements struct {
	Size           int
	Alignment      int
	MemoryTypeBits uint32
}

type MappedMemoryRange struct {
	Memory DeviceMemory
	Offset int
	Size   int
}

type SubmitInfo struct {
	WaitSemaphores   []Semaphore
	WaitDstStageMask []core1_0.PipelineStageFlags
	CommandBuffers   []CommandBuffer
	SignalSemaphores []Semaphore
}

type SwapchainCreateInfo struct {
	MinImageCount   int
	ImageFormat     core1_0.Format
	ImageColorSpace khr_surface.ColorSpace
	ImageExtent     core1_0.Extent2D
	ImageUsage      core1_0.ImageUsageFlags

	ImageSharingMode   core1_0.SharingMode
	QueueFamilyIndices []int

	PreTransform   khr_surface.SurfaceTransformFlags
	CompositeAlpha khr_surface.CompositeAlphaFlags
	PresentMode    khr_surface.PresentMode

	OldSwapchain Swapchain
}

type PresentInfo struct {
	WaitSemaphores []Semaphore
	Swapchain      Swapchain
	ImageIndex     int
}

type ImageViewCreateInfo struct {
	Image            Image
	ViewType         core1_0.ImageViewType
	Format           core1_0.Format
	SubresourceRange core1_0.ImageSubresourceRange
}

type FramebufferCreateInfo struct {
	RenderPass  RenderPass
	Attachments []ImageView
	Width       int
	Height      int
	Layers      int
}

type RenderPassBeginInfo struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	RenderArea  core1_0.Rect2D
	ClearValues []core1_0.ClearValue
}

type ImageMemoryBarrier struct {
	SrcAccessMask    core1_0.AccessFlags
	DstAccessMask    core1_0.AccessFlags
	OldLayout        core1_0.ImageLayout
	NewLayout        core1_0.ImageLayout
	Image            Image
	SubresourceRange core1_0.ImageSubresourceRange
}

type PushConstantRange struct {
	Stages core1_0.ShaderStageFlags
	Offset int
	Size   int
}

type PipelineLayoutCreateInfo struct {
	SetLayouts         []DescriptorSetLayout
	PushConstantRanges []PushConstantRange
}

type PipelineShaderStage struct {
	Stage  core1_0.ShaderStageFlags
	Module ShaderModule
	Name   string
}

type GraphicsPipelineCreateInfo struct {
	Stages []PipelineShaderStage

	VertexInputState   *core1_0.PipelineVertexInputStateCreateInfo
	InputAssemblyState *core1_0.PipelineInputAssemblyStateCreateInfo
	ViewportState      *core1_0.PipelineViewportStateCreateInfo
	RasterizationState *core1_0.PipelineRasterizationStateCreateInfo
	MultisampleState   *core1_0.PipelineMultisampleStateCreateInfo
	DepthStencilState  *core1_0.PipelineDepthStencilStateCreateInfo
	ColorBlendState    *core1_0.PipelineColorBlendStateCreateInfo
	DynamicState       *core1_0.PipelineDynamicStateCreateInfo

	Layout     PipelineLayout
	RenderPass RenderPass
	Subpass    int
}

type DescriptorBufferInfo struct {
	Buffer Buffer
	Offset int
	Range  int
}

type DescriptorImageInfo struct {
	Sampler     Sampler
	ImageView   ImageView
	ImageLayout core1_0.ImageLayout
}

type WriteDescriptorSet struct {
	DstSet          DescriptorSet
	DstBinding      int
	DstArrayElement int
	DescriptorType  core1_0.DescriptorType

	BufferInfo []DescriptorBufferInfo
	ImageInfo  []DescriptorImageInfo
}
