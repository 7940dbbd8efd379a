package vkng

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/playground/gpu"
)

type queueKey struct {
	family int
	index  int
}

type bufferObject struct {
	buffer core1_0.Buffer
	size   int
}

type memoryObject struct {
	memory core1_0.DeviceMemory
	size   int
}

type imageObject struct {
	image core1_0.Image
	// owner is nonzero for swapchain images, which are never destroyed
	// directly.
	owner gpu.Swapchain
}

type descriptorSetObject struct {
	set  core1_0.DescriptorSet
	pool gpu.DescriptorPool
}

type swapchainObject struct {
	swapchain khr_swapchain.Swapchain
	images    []gpu.Image
}

// Device maps gpu handles onto vkngwrapper objects. It is not safe for
// concurrent use.
type Device struct {
	driver             core1_0.DeviceDriver
	swapchainExtension khr_swapchain.ExtensionDriver
	surface            khr_surface.Surface

	queueHandles map[queueKey]gpu.Queue
	queues       *table[core1_0.Queue]

	semaphores     *table[core1_0.Semaphore]
	fences         *table[core1_0.Fence]
	commandPools   *table[core1_0.CommandPool]
	commandBuffers *table[core1_0.CommandBuffer]

	buffers    *table[bufferObject]
	memories   *table[memoryObject]
	images     *table[imageObject]
	imageViews *table[core1_0.ImageView]
	samplers   *table[core1_0.Sampler]

	setLayouts      *table[core1_0.DescriptorSetLayout]
	descriptorPools *table[core1_0.DescriptorPool]
	descriptorSets  *table[descriptorSetObject]

	renderPasses    *table[core1_0.RenderPass]
	framebuffers    *table[core1_0.Framebuffer]
	shaderModules   *table[core1_0.ShaderModule]
	pipelineLayouts *table[core1_0.PipelineLayout]
	pipelines       *table[core1_0.Pipeline]

	swapchains *table[swapchainObject]
}

var _ gpu.Device = (*Device)(nil)

func newDevice(driver core1_0.DeviceDriver, surface khr_surface.Surface) *Device {
	return &Device{
		driver:             driver,
		swapchainExtension: khr_swapchain.CreateExtensionDriverFromCoreDriver(driver),
		surface:            surface,

		queueHandles: make(map[queueKey]gpu.Queue),
		queues:       newTable[core1_0.Queue](),

		semaphores:     newTable[core1_0.Semaphore](),
		fences:         newTable[core1_0.Fence](),
		commandPools:   newTable[core1_0.CommandPool](),
		commandBuffers: newTable[core1_0.CommandBuffer](),

		buffers:    newTable[bufferObject](),
		memories:   newTable[memoryObject](),
		images:     newTable[imageObject](),
		imageViews: newTable[core1_0.ImageView](),
		samplers:   newTable[core1_0.Sampler](),

		setLayouts:      newTable[core1_0.DescriptorSetLayout](),
		descriptorPools: newTable[core1_0.DescriptorPool](),
		descriptorSets:  newTable[descriptorSetObject](),

		renderPasses:    newTable[core1_0.RenderPass](),
		framebuffers:    newTable[core1_0.Framebuffer](),
		shaderModules:   newTable[core1_0.ShaderModule](),
		pipelineLayouts: newTable[core1_0.PipelineLayout](),
		pipelines:       newTable[core1_0.Pipeline](),

		swapchains: newTable[swapchainObject](),
	}
}

func (d *Device) DeviceWaitIdle() error {
	_, err := d.driver.DeviceWaitIdle()
	return err
}

func (d *Device) Destroy() {
	d.driver.DestroyDevice(nil)
}

// Queues

func (d *Device) GetQueue(queueFamilyIndex, queueIndex int) gpu.Queue {
	key := queueKey{family: queueFamilyIndex, index: queueIndex}
	handle, ok := d.queueHandles[key]
	if !ok {
		handle = gpu.Queue(d.queues.add(d.driver.GetQueue(queueFamilyIndex, queueIndex)))
		d.queueHandles[key] = handle
	}
	return handle
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	semaphore, _, err := d.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return 0, err
	}
	return gpu.Semaphore(d.semaphores.add(semaphore)), nil
}

func (d *Device) DestroySemaphore(semaphore gpu.Semaphore) {
	if object, ok := d.semaphores.remove(uint64(semaphore)); ok {
		d.driver.DestroySemaphore(object, nil)
	}
}

func (d *Device) CreateFence(flags core1_0.FenceCreateFlags) (gpu.Fence, error) {
	fence, _, err := d.driver.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: flags,
	})
	if err != nil {
		return 0, err
	}
	return gpu.Fence(d.fences.add(fence)), nil
}

func (d *Device) DestroyFence(fence gpu.Fence) {
	if object, ok := d.fences.remove(uint64(fence)); ok {
		d.driver.DestroyFence(object, nil)
	}
}

func (d *Device) fenceList(fences []gpu.Fence) []core1_0.Fence {
	objects := make([]core1_0.Fence, len(fences))
	for i, fence := range fences {
		objects[i] = d.fences.get(uint64(fence))
	}
	return objects
}

func (d *Device) WaitForFences(waitAll bool, fences ...gpu.Fence) error {
	_, err := d.driver.WaitForFences(waitAll, common.NoTimeout, d.fenceList(fences)...)
	return err
}

func (d *Device) ResetFences(fences ...gpu.Fence) error {
	_, err := d.driver.ResetFences(d.fenceList(fences)...)
	return err
}

func (d *Device) semaphoreList(semaphores []gpu.Semaphore) []core1_0.Semaphore {
	if len(semaphores) == 0 {
		return nil
	}
	objects := make([]core1_0.Semaphore, len(semaphores))
	for i, semaphore := range semaphores {
		objects[i] = d.semaphores.get(uint64(semaphore))
	}
	return objects
}

func (d *Device) QueueSubmit(queue gpu.Queue, fence gpu.Fence, submits ...gpu.SubmitInfo) error {
	submitInfos := make([]core1_0.SubmitInfo, len(submits))
	for i, submit := range submits {
		commandBuffers := make([]core1_0.CommandBuffer, len(submit.CommandBuffers))
		for j, commandBuffer := range submit.CommandBuffers {
			commandBuffers[j] = d.commandBuffers.get(uint64(commandBuffer))
		}

		submitInfos[i] = core1_0.SubmitInfo{
			WaitSemaphores:   d.semaphoreList(submit.WaitSemaphores),
			WaitDstStageMask: submit.WaitDstStageMask,
			CommandBuffers:   commandBuffers,
			SignalSemaphores: d.semaphoreList(submit.SignalSemaphores),
		}
	}

	var fenceObject *core1_0.Fence
	if fence != 0 {
		object := d.fences.get(uint64(fence))
		fenceObject = &object
	}

	_, err := d.driver.QueueSubmit(d.queues.get(uint64(queue)), fenceObject, submitInfos...)
	return err
}

func (d *Device) QueueWaitIdle(queue gpu.Queue) error {
	_, err := d.driver.QueueWaitIdle(d.queues.get(uint64(queue)))
	return err
}

// Resources

func (d *Device) CreateBuffer(info core1_0.BufferCreateInfo) (gpu.Buffer, error) {
	buffer, _, err := d.driver.CreateBuffer(nil, info)
	if err != nil {
		return 0, err
	}
	return gpu.Buffer(d.buffers.add(bufferObject{buffer: buffer, size: info.Size})), nil
}

func (d *Device) DestroyBuffer(buffer gpu.Buffer) {
	if object, ok := d.buffers.remove(uint64(buffer)); ok {
		d.driver.DestroyBuffer(object.buffer, nil)
	}
}

func (d *Device) GetBufferMemoryRequirements(buffer gpu.Buffer) gpu.MemoryRequirements {
	memRequirements := d.driver.GetBufferMemoryRequirements(d.buffers.get(uint64(buffer)).buffer)
	return gpu.MemoryRequirements{
		Size:           memRequirements.Size,
		Alignment:      memRequirements.Alignment,
		MemoryTypeBits: memRequirements.MemoryTypeBits,
	}
}

func (d *Device) BindBufferMemory(buffer gpu.Buffer, memory gpu.DeviceMemory, offset int) error {
	_, err := d.driver.BindBufferMemory(d.buffers.get(uint64(buffer)).buffer, d.memories.get(uint64(memory)).memory, offset)
	return err
}

func (d *Device) AllocateMemory(info core1_0.MemoryAllocateInfo) (gpu.DeviceMemory, error) {
	memory, _, err := d.driver.AllocateMemory(nil, info)
	if err != nil {
		return 0, err
	}
	return gpu.DeviceMemory(d.memories.add(memoryObject{memory: memory, size: info.AllocationSize})), nil
}

func (d *Device) FreeMemory(memory gpu.DeviceMemory) {
	if object, ok := d.memories.remove(uint64(memory)); ok {
		d.driver.FreeMemory(object.memory, nil)
	}
}

// resolveSize turns gpu.WholeSize into the bytes left after offset.
func resolveSize(total, offset, size int) int {
	if size == gpu.WholeSize {
		return total - offset
	}
	return size
}

func (d *Device) MapMemory(memory gpu.DeviceMemory, offset, size int) (unsafe.Pointer, error) {
	object := d.memories.get(uint64(memory))
	pointer, _, err := d.driver.MapMemory(object.memory, offset, resolveSize(object.size, offset, size), 0)
	return pointer, err
}

func (d *Device) UnmapMemory(memory gpu.DeviceMemory) {
	d.driver.UnmapMemory(d.memories.get(uint64(memory)).memory)
}

func (d *Device) FlushMappedMemoryRanges(ranges ...gpu.MappedMemoryRange) error {
	memoryRanges := make([]core1_0.MappedMemoryRange, len(ranges))
	for i, memoryRange := range ranges {
		size := memoryRange.Size
		if size == gpu.WholeSize {
			// Only VK_WHOLE_SIZE may end a range short of an atom boundary.
			size = common.WholeSize
		}
		memoryRanges[i] = core1_0.MappedMemoryRange{
			Memory: d.memories.get(uint64(memoryRange.Memory)).memory,
			Offset: memoryRange.Offset,
			Size:   size,
		}
	}

	_, err := d.driver.FlushMappedMemoryRanges(memoryRanges...)
	return err
}

func (d *Device) CreateImage(info core1_0.ImageCreateInfo) (gpu.Image, error) {
	image, _, err := d.driver.CreateImage(nil, info)
	if err != nil {
		return 0, err
	}
	return gpu.Image(d.images.add(imageObject{image: image})), nil
}

func (d *Device) DestroyImage(image gpu.Image) {
	object, ok := d.images.lookup(uint64(image))
	if !ok || object.owner != 0 {
		return
	}
	d.images.remove(uint64(image))
	d.driver.DestroyImage(object.image, nil)
}

func (d *Device) GetImageMemoryRequirements(image gpu.Image) gpu.MemoryRequirements {
	memRequirements := d.driver.GetImageMemoryRequirements(d.images.get(uint64(image)).image)
	return gpu.MemoryRequirements{
		Size:           memRequirements.Size,
		Alignment:      memRequirements.Alignment,
		MemoryTypeBits: memRequirements.MemoryTypeBits,
	}
}

func (d *Device) BindImageMemory(image gpu.Image, memory gpu.DeviceMemory, offset int) error {
	_, err := d.driver.BindImageMemory(d.images.get(uint64(image)).image, d.memories.get(uint64(memory)).memory, offset)
	return err
}

func (d *Device) CreateImageView(info gpu.ImageViewCreateInfo) (gpu.ImageView, error) {
	imageView, _, err := d.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:            d.images.get(uint64(info.Image)).image,
		ViewType:         info.ViewType,
		Format:           info.Format,
		SubresourceRange: info.SubresourceRange,
	})
	if err != nil {
		return 0, err
	}
	return gpu.ImageView(d.imageViews.add(imageView)), nil
}

func (d *Device) DestroyImageView(view gpu.ImageView) {
	if object, ok := d.imageViews.remove(uint64(view)); ok {
		d.driver.DestroyImageView(object, nil)
	}
}

func (d *Device) CreateSampler(info core1_0.SamplerCreateInfo) (gpu.Sampler, error) {
	sampler, _, err := d.driver.CreateSampler(nil, info)
	if err != nil {
		return 0, err
	}
	return gpu.Sampler(d.samplers.add(sampler)), nil
}

func (d *Device) DestroySampler(sampler gpu.Sampler) {
	if object, ok := d.samplers.remove(uint64(sampler)); ok {
		d.driver.DestroySampler(object, nil)
	}
}

func (d *Device) CreateDescriptorSetLayout(bindings ...core1_0.DescriptorSetLayoutBinding) (gpu.DescriptorSetLayout, error) {
	layout, _, err := d.driver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: bindings,
	})
	if err != nil {
		return 0, err
	}
	return gpu.DescriptorSetLayout(d.setLayouts.add(layout)), nil
}

func (d *Device) DestroyDescriptorSetLayout(layout gpu.DescriptorSetLayout) {
	if object, ok := d.setLayouts.remove(uint64(layout)); ok {
		d.driver.DestroyDescriptorSetLayout(object, nil)
	}
}

func (d *Device) CreateDescriptorPool(info core1_0.DescriptorPoolCreateInfo) (gpu.DescriptorPool, error) {
	pool, _, err := d.driver.CreateDescriptorPool(nil, info)
	if err != nil {
		return 0, err
	}
	return gpu.DescriptorPool(d.descriptorPools.add(pool)), nil
}

// DestroyDescriptorPool also forgets every set allocated from the pool.
func (d *Device) DestroyDescriptorPool(pool gpu.DescriptorPool) {
	object, ok := d.descriptorPools.remove(uint64(pool))
	if !ok {
		return
	}

	for handle, set := range d.descriptorSets.objects {
		if set.pool == pool {
			d.descriptorSets.remove(handle)
		}
	}
	d.driver.DestroyDescriptorPool(object, nil)
}

func (d *Device) AllocateDescriptorSets(pool gpu.DescriptorPool, layouts ...gpu.DescriptorSetLayout) ([]gpu.DescriptorSet, error) {
	setLayouts := make([]core1_0.DescriptorSetLayout, len(layouts))
	for i, layout := range layouts {
		setLayouts[i] = d.setLayouts.get(uint64(layout))
	}

	sets, _, err := d.driver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: d.descriptorPools.get(uint64(pool)),
		SetLayouts:     setLayouts,
	})
	if err != nil {
		return nil, err
	}

	handles := make([]gpu.DescriptorSet, len(sets))
	for i, set := range sets {
		handles[i] = gpu.DescriptorSet(d.descriptorSets.add(descriptorSetObject{set: set, pool: pool}))
	}
	return handles, nil
}

func (d *Device) UpdateDescriptorSets(writes ...gpu.WriteDescriptorSet) error {
	descriptorWrites := make([]core1_0.WriteDescriptorSet, len(writes))
	for i, write := range writes {
		descriptorWrite := core1_0.WriteDescriptorSet{
			DstSet:          d.descriptorSets.get(uint64(write.DstSet)).set,
			DstBinding:      write.DstBinding,
			DstArrayElement: write.DstArrayElement,

			DescriptorType: write.DescriptorType,
		}

		for _, bufferInfo := range write.BufferInfo {
			object := d.buffers.get(uint64(bufferInfo.Buffer))
			descriptorWrite.BufferInfo = append(descriptorWrite.BufferInfo, core1_0.DescriptorBufferInfo{
				Buffer: object.buffer,
				Offset: bufferInfo.Offset,
				Range:  resolveSize(object.size, bufferInfo.Offset, bufferInfo.Range),
			})
		}

		for _, imageInfo := range write.ImageInfo {
			descriptorWrite.ImageInfo = append(descriptorWrite.ImageInfo, core1_0.DescriptorImageInfo{
				Sampler:     d.samplers.get(uint64(imageInfo.Sampler)),
				ImageView:   d.imageViews.get(uint64(imageInfo.ImageView)),
				ImageLayout: imageInfo.ImageLayout,
			})
		}

		descriptorWrites[i] = descriptorWrite
	}

	return d.driver.UpdateDescriptorSets(descriptorWrites, nil)
}

// Pipelines

func (d *Device) CreateRenderPass(info core1_0.RenderPassCreateInfo) (gpu.RenderPass, error) {
	renderPass, _, err := d.driver.CreateRenderPass(nil, info)
	if err != nil {
		return 0, err
	}
	return gpu.RenderPass(d.renderPasses.add(renderPass)), nil
}

func (d *Device) DestroyRenderPass(renderPass gpu.RenderPass) {
	if object, ok := d.renderPasses.remove(uint64(renderPass)); ok {
		d.driver.DestroyRenderPass(object, nil)
	}
}

func (d *Device) CreateFramebuffer(info gpu.FramebufferCreateInfo) (gpu.Framebuffer, error) {
	attachments := make([]core1_0.ImageView, len(info.Attachments))
	for i, view := range info.Attachments {
		attachments[i] = d.imageViews.get(uint64(view))
	}

	framebuffer, _, err := d.driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  d.renderPasses.get(uint64(info.RenderPass)),
		Layers:      info.Layers,
		Attachments: attachments,
		Width:       info.Width,
		Height:      info.Height,
	})
	if err != nil {
		return 0, err
	}
	return gpu.Framebuffer(d.framebuffers.add(framebuffer)), nil
}

func (d *Device) DestroyFramebuffer(framebuffer gpu.Framebuffer) {
	if object, ok := d.framebuffers.remove(uint64(framebuffer)); ok {
		d.driver.DestroyFramebuffer(object, nil)
	}
}

func (d *Device) CreateShaderModule(code []uint32) (gpu.ShaderModule, error) {
	module, _, err := d.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	if err != nil {
		return 0, err
	}
	return gpu.ShaderModule(d.shaderModules.add(module)), nil
}

func (d *Device) DestroyShaderModule(module gpu.ShaderModule) {
	if object, ok := d.shaderModules.remove(uint64(module)); ok {
		d.driver.DestroyShaderModule(object, nil)
	}
}

func (d *Device) CreatePipelineLayout(info gpu.PipelineLayoutCreateInfo) (gpu.PipelineLayout, error) {
	setLayouts := make([]core1_0.DescriptorSetLayout, len(info.SetLayouts))
	for i, layout := range info.SetLayouts {
		setLayouts[i] = d.setLayouts.get(uint64(layout))
	}

	var pushConstantRanges []core1_0.PushConstantRange
	for _, pushConstantRange := range info.PushConstantRanges {
		pushConstantRanges = append(pushConstantRanges, core1_0.PushConstantRange{
			StageFlags: pushConstantRange.Stages,
			Offset:     pushConstantRange.Offset,
			Size:       pushConstantRange.Size,
		})
	}

	layout, _, err := d.driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts:         setLayouts,
		PushConstantRanges: pushConstantRanges,
	})
	if err != nil {
		return 0, err
	}
	return gpu.PipelineLayout(d.pipelineLayouts.add(layout)), nil
}

func (d *Device) DestroyPipelineLayout(layout gpu.PipelineLayout) {
	if object, ok := d.pipelineLayouts.remove(uint64(layout)); ok {
		d.driver.DestroyPipelineLayout(object, nil)
	}
}

func (d *Device) CreateGraphicsPipeline(info gpu.GraphicsPipelineCreateInfo) (gpu.Pipeline, error) {
	stages := make([]core1_0.PipelineShaderStageCreateInfo, len(info.Stages))
	for i, stage := range info.Stages {
		stages[i] = core1_0.PipelineShaderStageCreateInfo{
			Stage:  stage.Stage,
			Module: d.shaderModules.get(uint64(stage.Module)),
			Name:   stage.Name,
		}
	}

	pipelines, _, err := d.driver.CreateGraphicsPipelines(nil, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages:             stages,
			VertexInputState:   info.VertexInputState,
			InputAssemblyState: info.InputAssemblyState,
			ViewportState:      info.ViewportState,
			RasterizationState: info.RasterizationState,
			MultisampleState:   info.MultisampleState,
			DepthStencilState:  info.DepthStencilState,
			ColorBlendState:    info.ColorBlendState,
			DynamicState:       info.DynamicState,
			Layout:             d.pipelineLayouts.get(uint64(info.Layout)),
			RenderPass:         d.renderPasses.get(uint64(info.RenderPass)),
			Subpass:            info.Subpass,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		return 0, err
	}
	if len(pipelines) != 1 {
		return 0, errors.Newf("expected one pipeline, driver returned %d", len(pipelines))
	}
	return gpu.Pipeline(d.pipelines.add(pipelines[0])), nil
}

func (d *Device) DestroyPipeline(pipeline gpu.Pipeline) {
	if object, ok := d.pipelines.remove(uint64(pipeline)); ok {
		d.driver.DestroyPipeline(object, nil)
	}
}
