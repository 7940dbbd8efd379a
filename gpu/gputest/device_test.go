package gputest

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/playground/gpu"
)

func newFakeDevice(t *testing.T) (*Device, gpu.Queue) {
	t.Helper()

	instance := NewInstance(DiscreteGPU("test gpu"))
	_, err := instance.CreateDevice(gpu.PhysicalDevice(1), core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{QueueFamilyIndex: 0, QueuePriorities: []float32{1}},
		},
	})
	require.NoError(t, err)

	device := instance.Device()
	queue := device.GetQueue(0, 0)
	require.NotZero(t, queue)
	return device, queue
}

func recordEmpty(t *testing.T, device *Device, pool gpu.CommandPool) gpu.CommandBuffer {
	t.Helper()

	buffers, err := device.AllocateCommandBuffers(pool, 1)
	require.NoError(t, err)
	require.NoError(t, device.BeginCommandBuffer(buffers[0], 0))
	require.NoError(t, device.EndCommandBuffer(buffers[0]))
	return buffers[0]
}

func TestCreateDeviceChecks(t *testing.T) {
	instance := NewInstance(DiscreteGPU("test gpu"))

	_, err := instance.CreateDevice(gpu.PhysicalDevice(2), core1_0.DeviceCreateInfo{})
	assert.Error(t, err)

	_, err = instance.CreateDevice(gpu.PhysicalDevice(1), core1_0.DeviceCreateInfo{
		EnabledExtensionNames: []string{"VK_KHR_missing"},
	})
	assert.ErrorContains(t, err, "VK_KHR_missing")

	_, err = instance.CreateDevice(gpu.PhysicalDevice(1), core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{{QueueFamilyIndex: 7, QueuePriorities: []float32{1}}},
	})
	assert.Error(t, err)
	assert.Nil(t, instance.Device())
}

func TestGetQueueNotRequested(t *testing.T) {
	device, _ := newFakeDevice(t)

	assert.Zero(t, device.GetQueue(1, 0))
	assert.Len(t, device.Violations(), 1)
}

func TestFenceCompletesOnWait(t *testing.T) {
	device, queue := newFakeDevice(t)

	pool, err := device.CreateCommandPool(core1_0.CommandPoolCreateInfo{})
	require.NoError(t, err)
	buffer := recordEmpty(t, device, pool)

	fence, err := device.CreateFence(0)
	require.NoError(t, err)

	require.NoError(t, device.QueueSubmit(queue, fence, gpu.SubmitInfo{CommandBuffers: []gpu.CommandBuffer{buffer}}))
	assert.False(t, device.FenceSignaled(fence))
	assert.Equal(t, 1, device.Outstanding())

	assert.Error(t, device.ResetFences(fence), "pending fences cannot be reset")
	assert.Error(t, device.ResetCommandBuffer(buffer), "pending buffers cannot be reset")
	assert.Error(t, device.QueueSubmit(queue, fence), "a fence is single use until reset")

	require.NoError(t, device.WaitForFences(true, fence))
	assert.True(t, device.FenceSignaled(fence))
	assert.Zero(t, device.Outstanding())
	assert.Equal(t, 1, device.MaxOutstanding())
	assert.Equal(t, 1, device.Submissions())

	require.NoError(t, device.ResetFences(fence))
	assert.ErrorContains(t, device.WaitForFences(true, fence), "no submission will signal")

	device.DestroyFence(fence)
	device.DestroyCommandPool(pool)
	assert.Empty(t, device.Leaks())
	assert.Empty(t, device.Violations())
}

func TestWaitCompletesEarlierSubmissions(t *testing.T) {
	device, queue := newFakeDevice(t)

	pool, err := device.CreateCommandPool(core1_0.CommandPoolCreateInfo{})
	require.NoError(t, err)

	var fences []gpu.Fence
	for i := 0; i < 3; i++ {
		fence, err := device.CreateFence(0)
		require.NoError(t, err)
		buffer := recordEmpty(t, device, pool)
		require.NoError(t, device.QueueSubmit(queue, fence, gpu.SubmitInfo{CommandBuffers: []gpu.CommandBuffer{buffer}}))
		fences = append(fences, fence)
	}
	assert.Equal(t, 3, device.MaxOutstanding())

	require.NoError(t, device.WaitForFences(true, fences[1]))
	assert.True(t, device.FenceSignaled(fences[0]))
	assert.True(t, device.FenceSignaled(fences[1]))
	assert.False(t, device.FenceSignaled(fences[2]))

	device.DestroyCommandPool(pool)
	assert.NotEmpty(t, device.Violations(), "pool destroyed with a pending buffer")

	require.NoError(t, device.DeviceWaitIdle())
	assert.True(t, device.FenceSignaled(fences[2]))
	assert.Equal(t, 1, device.WaitIdleCount())
}

func TestSemaphoreSignalling(t *testing.T) {
	device, queue := newFakeDevice(t)

	pool, err := device.CreateCommandPool(core1_0.CommandPoolCreateInfo{Flags: core1_0.CommandPoolCreateResetBuffer})
	require.NoError(t, err)
	defer device.DestroyCommandPool(pool)

	semaphore, err := device.CreateSemaphore()
	require.NoError(t, err)
	defer device.DestroySemaphore(semaphore)

	buffer := recordEmpty(t, device, pool)
	err = device.QueueSubmit(queue, 0, gpu.SubmitInfo{
		WaitSemaphores:   []gpu.Semaphore{semaphore},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []gpu.CommandBuffer{buffer},
	})
	assert.ErrorContains(t, err, "no pending signal")

	signal := gpu.SubmitInfo{CommandBuffers: []gpu.CommandBuffer{buffer}, SignalSemaphores: []gpu.Semaphore{semaphore}}
	require.NoError(t, device.QueueSubmit(queue, 0, signal))
	require.NoError(t, device.QueueWaitIdle(queue))

	require.NoError(t, device.BeginCommandBuffer(buffer, 0))
	require.NoError(t, device.EndCommandBuffer(buffer))
	assert.ErrorContains(t, device.QueueSubmit(queue, 0, signal), "already signaled")

	err = device.QueueSubmit(queue, 0, gpu.SubmitInfo{
		WaitSemaphores: []gpu.Semaphore{semaphore},
		CommandBuffers: []gpu.CommandBuffer{buffer},
	})
	assert.ErrorContains(t, err, "stage mask")
}

func TestCommandBufferStates(t *testing.T) {
	device, _ := newFakeDevice(t)

	pool, err := device.CreateCommandPool(core1_0.CommandPoolCreateInfo{})
	require.NoError(t, err)
	defer device.DestroyCommandPool(pool)

	buffer := recordEmpty(t, device, pool)
	assert.ErrorContains(t, device.BeginCommandBuffer(buffer, 0), "reset flag")
	assert.Error(t, device.EndCommandBuffer(buffer))

	renderPass, err := device.CreateRenderPass(core1_0.RenderPassCreateInfo{})
	require.NoError(t, err)
	defer device.DestroyRenderPass(renderPass)
	framebuffer, err := device.CreateFramebuffer(gpu.FramebufferCreateInfo{RenderPass: renderPass, Width: 1, Height: 1, Layers: 1})
	require.NoError(t, err)
	defer device.DestroyFramebuffer(framebuffer)

	require.NoError(t, device.ResetCommandBuffer(buffer))
	require.NoError(t, device.BeginCommandBuffer(buffer, 0))
	assert.Error(t, device.CmdBeginRenderPass(buffer, gpu.RenderPassBeginInfo{}))
	require.NoError(t, device.CmdBeginRenderPass(buffer, gpu.RenderPassBeginInfo{RenderPass: renderPass, Framebuffer: framebuffer}))
	assert.ErrorContains(t, device.EndCommandBuffer(buffer), "inside a render pass")
	device.CmdEndRenderPass(buffer)
	require.NoError(t, device.EndCommandBuffer(buffer))

	assert.Equal(t, []string{"CmdBeginRenderPass", "CmdEndRenderPass"}, device.RecordedNames(buffer))
}

func TestBufferMemory(t *testing.T) {
	device, _ := newFakeDevice(t)

	buffer, err := device.CreateBuffer(core1_0.BufferCreateInfo{Size: 16, Usage: core1_0.BufferUsageVertexBuffer})
	require.NoError(t, err)
	requirements := device.GetBufferMemoryRequirements(buffer)
	assert.GreaterOrEqual(t, requirements.Size, 16)

	memory, err := device.AllocateMemory(core1_0.MemoryAllocateInfo{AllocationSize: requirements.Size, MemoryTypeIndex: 1})
	require.NoError(t, err)
	require.NoError(t, device.BindBufferMemory(buffer, memory, 0))

	ptr, err := device.MapMemory(memory, 0, requirements.Size)
	require.NoError(t, err)
	assert.True(t, device.Mapped(memory))
	_, err = device.MapMemory(memory, 0, requirements.Size)
	assert.Error(t, err, "memory is mapped once at a time")

	copy(unsafe.Slice((*byte)(ptr), 4), []byte{1, 2, 3, 4})
	assert.Equal(t, []byte{1, 2, 3, 4}, device.BufferContents(buffer)[:4])

	device.UnmapMemory(memory)
	assert.False(t, device.Mapped(memory))

	device.DestroyBuffer(buffer)
	device.FreeMemory(memory)
	device.DestroyBuffer(buffer)
	assert.Len(t, device.Violations(), 1, "double destroy is reported")
	assert.Empty(t, device.Leaks())
}

func TestFailOn(t *testing.T) {
	device, _ := newFakeDevice(t)

	device.FailOn("CreateBuffer")
	_, err := device.CreateBuffer(core1_0.BufferCreateInfo{Size: 4})
	assert.True(t, errors.Is(err, ErrInjected))
	assert.Contains(t, err.Error(), "CreateBuffer")

	device.ClearFailures()
	buffer, err := device.CreateBuffer(core1_0.BufferCreateInfo{Size: 4})
	require.NoError(t, err)
	device.DestroyBuffer(buffer)
}

func TestSwapchainScript(t *testing.T) {
	device, queue := newFakeDevice(t)

	info := gpu.SwapchainCreateInfo{
		MinImageCount: 2,
		ImageFormat:   core1_0.FormatB8G8R8A8SRGB,
		ImageExtent:   core1_0.Extent2D{Width: 800, Height: 600},
	}
	_, err := device.CreateSwapchain(gpu.SwapchainCreateInfo{MinImageCount: 2})
	assert.ErrorContains(t, err, "empty")

	swapchain, err := device.CreateSwapchain(info)
	require.NoError(t, err)
	images, err := device.GetSwapchainImages(swapchain)
	require.NoError(t, err)
	assert.Len(t, images, 2)

	acquired, err := device.CreateSemaphore()
	require.NoError(t, err)

	device.ScriptAcquire(khr_swapchain.VKErrorOutOfDate)
	_, result, err := device.AcquireNextImage(swapchain, acquired)
	assert.Error(t, err)
	assert.Equal(t, khr_swapchain.VKErrorOutOfDate, result)

	index, result, err := device.AcquireNextImage(swapchain, acquired)
	require.NoError(t, err)
	assert.Equal(t, core1_0.VKSuccess, result)
	assert.Zero(t, index)

	_, err = device.QueuePresent(queue, gpu.PresentInfo{Swapchain: swapchain, ImageIndex: 1})
	assert.ErrorContains(t, err, "not acquired")

	device.ScriptPresent(khr_swapchain.VKSuboptimal)
	result, err = device.QueuePresent(queue, gpu.PresentInfo{
		WaitSemaphores: []gpu.Semaphore{acquired},
		Swapchain:      swapchain,
		ImageIndex:     index,
	})
	require.NoError(t, err)
	assert.Equal(t, khr_swapchain.VKSuboptimal, result)
	assert.Equal(t, []Presentation{{Swapchain: swapchain, ImageIndex: 0}}, device.Presented())

	info.OldSwapchain = swapchain
	replacement, err := device.CreateSwapchain(info)
	require.NoError(t, err)
	_, _, err = device.AcquireNextImage(swapchain, acquired)
	assert.ErrorContains(t, err, "retired")
	assert.Equal(t, swapchain, device.SwapchainInfo(replacement).OldSwapchain)

	device.DestroySwapchain(swapchain)
	device.DestroySwapchain(replacement)
	device.DestroySemaphore(acquired)
	assert.Empty(t, device.Leaks())
	assert.Empty(t, device.Violations())
}

func TestWindow(t *testing.T) {
	window := NewWindow(0, 0)
	assert.False(t, window.WasResized())

	window.QueueResize(640, 480)
	assert.Equal(t, core1_0.Extent2D{}, window.Extent())

	window.WaitEvents()
	assert.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, window.Extent())
	assert.True(t, window.WasResized())
	window.ResetResizedFlag()

	window.WaitEvents()
	assert.False(t, window.WasResized())
	assert.Equal(t, 2, window.WaitCount)

	window.Resize(1024, 768)
	assert.True(t, window.WasResized())

	window.QueueClose()
	assert.False(t, window.ShouldClose())
	window.WaitEvents()
	assert.True(t, window.ShouldClose())
}

func TestFlushRanges(t *testing.T) {
	device, _ := newFakeDevice(t)

	memory, err := device.AllocateMemory(core1_0.MemoryAllocateInfo{AllocationSize: 256, MemoryTypeIndex: 2})
	require.NoError(t, err)
	defer device.FreeMemory(memory)

	assert.ErrorContains(t, device.FlushMappedMemoryRanges(gpu.MappedMemoryRange{Memory: memory, Size: gpu.WholeSize}), "not mapped")

	_, err = device.MapMemory(memory, 0, gpu.WholeSize)
	require.NoError(t, err)
	defer device.UnmapMemory(memory)

	testCases := []struct {
		name   string
		offset int
		size   int
		valid  bool
	}{
		{name: "whole allocation", offset: 0, size: gpu.WholeSize, valid: true},
		{name: "whole atoms", offset: 64, size: 128, valid: true},
		{name: "runs to the end", offset: 192, size: 64, valid: true},
		{name: "remainder from an atom", offset: 128, size: gpu.WholeSize, valid: true},
		{name: "partial atom", offset: 0, size: 176},
		{name: "unaligned offset", offset: 10, size: 64},
		{name: "past the end", offset: 192, size: 128},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := device.FlushMappedMemoryRanges(gpu.MappedMemoryRange{Memory: memory, Offset: testCase.offset, Size: testCase.size})
			if testCase.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
	assert.Len(t, device.Flushes(), 4)
}
