package gpu

import (
	"unsafe"

	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Instance is a loaded Vulkan instance bound to one presentation surface.
type Instance interface {
	EnumeratePhysicalDevices() ([]PhysicalDevice, error)
	GetPhysicalDeviceProperties(physicalDevice PhysicalDevice) (*PhysicalDeviceProperties, error)
	GetPhysicalDeviceFeatures(physicalDevice PhysicalDevice) *core1_0.PhysicalDeviceFeatures
	GetPhysicalDeviceQueueFamilyProperties(physicalDevice PhysicalDevice) []QueueFamilyProperties
	GetPhysicalDeviceMemoryTypes(physicalDevice PhysicalDevice) []MemoryType
	EnumerateDeviceExtensionNames(physicalDevice PhysicalDevice) ([]string, error)

	GetPhysicalDeviceSurfaceSupport(physicalDevice PhysicalDevice, queueFamilyIndex int) (bool, error)
	GetPhysicalDeviceSurfaceCapabilities(physicalDevice PhysicalDevice) (*khr_surface.SurfaceCapabilities, error)
	GetPhysicalDeviceSurfaceFormats(physicalDevice PhysicalDevice) ([]khr_surface.SurfaceFormat, error)
	GetPhysicalDeviceSurfacePresentModes(physicalDevice PhysicalDevice) ([]khr_surface.PresentMode, error)

	CreateDevice(physicalDevice PhysicalDevice, info core1_0.DeviceCreateInfo) (Device, error)
	Destroy()
}

// Device is a logical device together with its swapchain extension.
type Device interface {
	Queues
	Resources
	Pipelines
	Commands
	Swapchains

	DeviceWaitIdle() error
	Destroy()
}

type Queues interface {
	GetQueue(queueFamilyIndex, queueIndex int) Queue

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(semaphore Semaphore)
	CreateFence(flags core1_0.FenceCreateFlags) (Fence, error)
	DestroyFence(fence Fence)
	// WaitForFences blocks without a timeout.
	WaitForFences(waitAll bool, fences ...Fence) error
	ResetFences(fences ...Fence) error

	// QueueSubmit signals fence, when nonzero, once every batch has completed.
	QueueSubmit(queue Queue, fence Fence, submits ...SubmitInfo) error
	QueueWaitIdle(queue Queue) error
}

type Resources interface {
	CreateBuffer(info core1_0.BufferCreateInfo) (Buffer, error)
	DestroyBuffer(buffer Buffer)
	GetBufferMemoryRequirements(buffer Buffer) MemoryRequirements
	BindBufferMemory(buffer Buffer, memory DeviceMemory, offset int) error

	AllocateMemory(info core1_0.MemoryAllocateInfo) (DeviceMemory, error)
	FreeMemory(memory DeviceMemory)
	MapMemory(memory DeviceMemory, offset, size int) (unsafe.Pointer, error)
	UnmapMemory(memory DeviceMemory)
	FlushMappedMemoryRanges(ranges ...MappedMemoryRange) error

	CreateImage(info core1_0.ImageCreateInfo) (Image, error)
	DestroyImage(image Image)
	GetImageMemoryRequirements(image Image) MemoryRequirements
	BindImageMemory(image Image, memory DeviceMemory, offset int) error
	CreateImageView(info ImageViewCreateInfo) (ImageView, error)
	DestroyImageView(view ImageView)
	CreateSampler(info core1_0.SamplerCreateInfo) (Sampler, error)
	DestroySampler(sampler Sampler)

	CreateDescriptorSetLayout(bindings ...core1_0.DescriptorSetLayoutBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout DescriptorSetLayout)
	CreateDescriptorPool(info core1_0.DescriptorPoolCreateInfo) (DescriptorPool, error)
	DestroyDescriptorPool(pool DescriptorPool)
	AllocateDescriptorSets(pool DescriptorPool, layouts ...DescriptorSetLayout) ([]DescriptorSet, error)
	UpdateDescriptorSets(writes ...WriteDescriptorSet) error
}

type Pipelines interface {
	CreateRenderPass(info core1_0.RenderPassCreateInfo) (RenderPass, error)
	DestroyRenderPass(renderPass RenderPass)
	CreateFramebuffer(info FramebufferCreateInfo) (Framebuffer, error)
	DestroyFramebuffer(framebuffer Framebuffer)

	CreateShaderModule(code []uint32) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule)
	CreatePipelineLayout(info PipelineLayoutCreateInfo) (PipelineLayout, error)
	DestroyPipelineLayout(layout PipelineLayout)
	CreateGraphicsPipeline(info GraphicsPipelineCreateInfo) (Pipeline, error)
	DestroyPipeline(pipeline Pipeline)
}

type Commands interface {
	CreateCommandPool(info core1_0.CommandPoolCreateInfo) (CommandPool, error)
	DestroyCommandPool(pool CommandPool)
	AllocateCommandBuffers(pool CommandPool, count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers ...CommandBuffer)

	BeginCommandBuffer(buffer CommandBuffer, flags core1_0.CommandBufferUsageFlags) error
	EndCommandBuffer(buffer CommandBuffer) error
	ResetCommandBuffer(buffer CommandBuffer) error

	CmdBeginRenderPass(buffer CommandBuffer, info RenderPassBeginInfo) error
	CmdEndRenderPass(buffer CommandBuffer)
	CmdBindPipeline(buffer CommandBuffer, pipeline Pipeline)
	CmdSetViewport(buffer CommandBuffer, viewports ...core1_0.Viewport)
	CmdSetScissor(buffer CommandBuffer, scissors ...core1_0.Rect2D)
	CmdBindVertexBuffers(buffer CommandBuffer, firstBinding int, buffers []Buffer, offsets []int)
	CmdBindIndexBuffer(buffer CommandBuffer, indexBuffer Buffer, offset int, indexType core1_0.IndexType)
	CmdBindDescriptorSets(buffer CommandBuffer, layout PipelineLayout, firstSet int, sets ...DescriptorSet)
	CmdPushConstants(buffer CommandBuffer, layout PipelineLayout, stages core1_0.ShaderStageFlags, offset int, data []byte)
	CmdDraw(buffer CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance int)
	CmdDrawIndexed(buffer CommandBuffer, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int)
	CmdCopyBuffer(buffer CommandBuffer, src, dst Buffer, regions ...core1_0.BufferCopy) error
	CmdCopyBufferToImage(buffer CommandBuffer, src Buffer, dst Image, layout core1_0.ImageLayout, regions ...core1_0.BufferImageCopy) error
	CmdPipelineBarrier(buffer CommandBuffer, srcStage, dstStage core1_0.PipelineStageFlags, barriers ...ImageMemoryBarrier) error
}

// Swapchains wraps VK_KHR_swapchain. AcquireNextImage and QueuePresent
// report khr_swapchain.VKSuboptimal and khr_swapchain.VKErrorOutOfDate through
// the returned result; err is non-nil for every result that is not a success code.
type Swapchains interface {
	CreateSwapchain(info SwapchainCreateInfo) (Swapchain, error)
	DestroySwapchain(swapchain Swapchain)
	GetSwapchainImages(swapchain Swapchain) ([]Image, error)
	AcquireNextImage(swapchain Swapchain, semaphore Semaphore) (int, common.VkResult, error)
	QueuePresent(queue Queue, info PresentInfo) (common.VkResult, error)
}
