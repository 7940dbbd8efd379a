package gputest

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

const (
	KindSemaphore           = "semaphore"
	KindFence               = "fence"
	KindCommandPool         = "command pool"
	KindCommandBuffer       = "command buffer"
	KindBuffer              = "buffer"
	KindMemory              = "device memory"
	KindImage               = "image"
	KindImageView           = "image view"
	KindSampler             = "sampler"
	KindRenderPass          = "render pass"
	KindFramebuffer         = "framebuffer"
	KindShaderModule        = "shader module"
	KindDescriptorSetLayout = "descriptor set layout"
	KindDescriptorPool      = "descriptor pool"
	KindPipelineLayout      = "pipeline layout"
	KindPipeline            = "pipeline"
	KindSwapchain           = "swapchain"
)

// ErrInjected is returned by operations named in Device.FailOn.
var ErrInjected = errors.New("injected failure")

type fence struct {
	signaled bool
	pending  bool
}

type memory struct {
	data      []byte
	typeIndex int
	mapped    bool
}

type buffer struct {
	info   core1_0.BufferCreateInfo
	memory gpu.DeviceMemory
	offset int
	bound  bool
}

type image struct {
	info      core1_0.ImageCreateInfo
	layout    core1_0.ImageLayout
	memory    gpu.DeviceMemory
	swapchain gpu.Swapchain
	data      []byte
}

type descriptorPool struct {
	info core1_0.DescriptorPoolCreateInfo
	sets int
}

// Device simulates a logical device. It is not safe for concurrent use.
type Device struct {
	instance *Instance
	spec     *PhysicalDeviceSpec

	CreateInfo core1_0.DeviceCreateInfo

	nextHandle uint64
	live       map[uint64]string
	violations []string
	failOn     map[string]bool
	destroyed  bool

	semaphores     map[gpu.Semaphore]bool
	fences         map[gpu.Fence]*fence
	commandPools   map[gpu.CommandPool]core1_0.CommandPoolCreateInfo
	commandBuffers map[gpu.CommandBuffer]*commandBuffer
	buffers        map[gpu.Buffer]*buffer
	memories       map[gpu.DeviceMemory]*memory
	flushes        []gpu.MappedMemoryRange
	images         map[gpu.Image]*image
	imageViews     map[gpu.ImageView]gpu.ImageViewCreateInfo
	renderPasses   map[gpu.RenderPass]core1_0.RenderPassCreateInfo
	framebuffers   map[gpu.Framebuffer]gpu.FramebufferCreateInfo
	shaderModules  map[gpu.ShaderModule][]uint32
	setLayouts     map[gpu.DescriptorSetLayout][]core1_0.DescriptorSetLayoutBinding
	pools          map[gpu.DescriptorPool]*descriptorPool
	setWrites      map[gpu.DescriptorSet][]gpu.WriteDescriptorSet
	layouts        map[gpu.PipelineLayout]gpu.PipelineLayoutCreateInfo
	pipelines      map[gpu.Pipeline]gpu.GraphicsPipelineCreateInfo
	swapchains     map[gpu.Swapchain]*swapchain
	acquireScript  []common.VkResult
	presentScript  []common.VkResult
	presented      []Presentation

	queue          []*submission
	maxOutstanding int
	submitCount    int
	waitIdleCount  int
}

var _ gpu.Device = (*Device)(nil)

func newDevice(instance *Instance, spec *PhysicalDeviceSpec, info core1_0.DeviceCreateInfo) *Device {
	return &Device{
		instance:   instance,
		spec:       spec,
		CreateInfo: info,

		live:   make(map[uint64]string),
		failOn: make(map[string]bool),

		semaphores:     make(map[gpu.Semaphore]bool),
		fences:         make(map[gpu.Fence]*fence),
		commandPools:   make(map[gpu.CommandPool]core1_0.CommandPoolCreateInfo),
		commandBuffers: make(map[gpu.CommandBuffer]*commandBuffer),
		buffers:        make(map[gpu.Buffer]*buffer),
		memories:       make(map[gpu.DeviceMemory]*memory),
		images:         make(map[gpu.Image]*image),
		imageViews:     make(map[gpu.ImageView]gpu.ImageViewCreateInfo),
		renderPasses:   make(map[gpu.RenderPass]core1_0.RenderPassCreateInfo),
		framebuffers:   make(map[gpu.Framebuffer]gpu.FramebufferCreateInfo),
		shaderModules:  make(map[gpu.ShaderModule][]uint32),
		setLayouts:     make(map[gpu.DescriptorSetLayout][]core1_0.DescriptorSetLayoutBinding),
		pools:          make(map[gpu.DescriptorPool]*descriptorPool),
		setWrites:      make(map[gpu.DescriptorSet][]gpu.WriteDescriptorSet),
		layouts:        make(map[gpu.PipelineLayout]gpu.PipelineLayoutCreateInfo),
		pipelines:      make(map[gpu.Pipeline]gpu.GraphicsPipelineCreateInfo),
		swapchains:     make(map[gpu.Swapchain]*swapchain),
	}
}

// FailOn makes the named method (for example "CreateBuffer") return ErrInjected
// until ClearFailures is called.
func (d *Device) FailOn(methods ...string) {
	for _, method := range methods {
		d.failOn[method] = true
	}
}

func (d *Device) ClearFailures() {
	d.failOn = make(map[string]bool)
}

func (d *Device) injected(method string) error {
	if d.failOn[method] {
		return errors.Wrapf(ErrInjected, "%s", method)
	}
	return nil
}

// Violations lists API misuse detected by calls that cannot return an error.
func (d *Device) Violations() []string {
	return append([]string(nil), d.violations...)
}

func (d *Device) violate(format string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

func (d *Device) create(kind string) uint64 {
	d.nextHandle++
	d.live[d.nextHandle] = kind
	return d.nextHandle
}

func (d *Device) destroy(kind string, handle uint64) bool {
	if handle == 0 {
		return false
	}
	if d.live[handle] != kind {
		d.violate("destroy of unknown %s %d", kind, handle)
		return false
	}
	delete(d.live, handle)
	return true
}

// LiveCount reports how many objects of kind are currently alive.
func (d *Device) LiveCount(kind string) int {
	count := 0
	for _, liveKind := range d.live {
		if liveKind == kind {
			count++
		}
	}
	return count
}

// Leaks lists every object still alive, sorted by kind.
func (d *Device) Leaks() []string {
	var leaks []string
	for handle, kind := range d.live {
		leaks = append(leaks, fmt.Sprintf("%s %d", kind, handle))
	}
	sort.Strings(leaks)
	return leaks
}

func (d *Device) Destroyed() bool {
	return d.destroyed
}

func (d *Device) Destroy() {
	if len(d.queue) > 0 {
		d.violate("device destroyed with %d submissions in flight", len(d.queue))
	}
	d.destroyed = true
}

func (d *Device) GetQueue(queueFamilyIndex, queueIndex int) gpu.Queue {
	for _, queueInfo := range d.CreateInfo.QueueCreateInfos {
		if queueInfo.QueueFamilyIndex == queueFamilyIndex && queueIndex < len(queueInfo.QueuePriorities) {
			return gpu.Queue(1<<32 | uint64(queueFamilyIndex)<<8 | uint64(queueIndex))
		}
	}
	d.violate("queue %d of family %d was not requested at device creation", queueIndex, queueFamilyIndex)
	return 0
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	semaphore := gpu.Semaphore(d.create(KindSemaphore))
	d.semaphores[semaphore] = false
	return semaphore, nil
}

func (d *Device) DestroySemaphore(semaphore gpu.Semaphore) {
	if d.destroy(KindSemaphore, uint64(semaphore)) {
		delete(d.semaphores, semaphore)
	}
}

func (d *Device) CreateFence(flags core1_0.FenceCreateFlags) (gpu.Fence, error) {
	handle := gpu.Fence(d.create(KindFence))
	d.fences[handle] = &fence{signaled: flags&core1_0.FenceCreateSignaled != 0}
	return handle, nil
}

func (d *Device) DestroyFence(handle gpu.Fence) {
	if f, ok := d.fences[handle]; ok && f.pending {
		d.violate("fence %d destroyed while in use", handle)
	}
	if d.destroy(KindFence, uint64(handle)) {
		delete(d.fences, handle)
	}
}

// FenceSignaled reports the host-visible state of a fence.
func (d *Device) FenceSignaled(handle gpu.Fence) bool {
	f, ok := d.fences[handle]
	return ok && f.signaled
}

func (d *Device) ResetFences(fences ...gpu.Fence) error {
	for _, handle := range fences {
		f, ok := d.fences[handle]
		if !ok {
			return errors.Newf("reset of unknown fence %d", handle)
		}
		if f.pending {
			return errors.Newf("fence %d reset while its submission is pending", handle)
		}
		f.signaled = false
	}
	return nil
}

func (d *Device) CreateBuffer(info core1_0.BufferCreateInfo) (gpu.Buffer, error) {
	if err := d.injected("CreateBuffer"); err != nil {
		return 0, err
	}
	if info.Size <= 0 {
		return 0, errors.Newf("buffer size must be positive, got %d", info.Size)
	}
	handle := gpu.Buffer(d.create(KindBuffer))
	d.buffers[handle] = &buffer{info: info}
	return handle, nil
}

func (d *Device) DestroyBuffer(handle gpu.Buffer) {
	if d.destroy(KindBuffer, uint64(handle)) {
		delete(d.buffers, handle)
	}
}

func alignUp(size, alignment int) int {
	return (size + alignment - 1) / alignment * alignment
}

func (d *Device) allMemoryTypeBits() uint32 {
	return uint32(1)<<len(d.spec.MemoryTypes) - 1
}

func (d *Device) GetBufferMemoryRequirements(handle gpu.Buffer) gpu.MemoryRequirements {
	b, ok := d.buffers[handle]
	if !ok {
		d.violate("memory requirements of unknown buffer %d", handle)
		return gpu.MemoryRequirements{}
	}
	return gpu.MemoryRequirements{
		Size:           alignUp(b.info.Size, 256),
		Alignment:      256,
		MemoryTypeBits: d.allMemoryTypeBits(),
	}
}

func (d *Device) BindBufferMemory(handle gpu.Buffer, mem gpu.DeviceMemory, offset int) error {
	b, ok := d.buffers[handle]
	if !ok {
		return errors.Newf("bind of unknown buffer %d", handle)
	}
	m, ok := d.memories[mem]
	if !ok {
		return errors.Newf("bind of unknown memory %d", mem)
	}
	if b.bound {
		return errors.Newf("buffer %d is already bound", handle)
	}
	if offset+b.info.Size > len(m.data) {
		return errors.Newf("buffer %d does not fit in memory %d at offset %d", handle, mem, offset)
	}
	b.memory, b.offset, b.bound = mem, offset, true
	return nil
}

func (d *Device) AllocateMemory(info core1_0.MemoryAllocateInfo) (gpu.DeviceMemory, error) {
	if err := d.injected("AllocateMemory"); err != nil {
		return 0, err
	}
	if info.MemoryTypeIndex < 0 || info.MemoryTypeIndex >= len(d.spec.MemoryTypes) {
		return 0, errors.Newf("memory type %d does not exist", info.MemoryTypeIndex)
	}
	handle := gpu.DeviceMemory(d.create(KindMemory))
	d.memories[handle] = &memory{
		data:      make([]byte, info.AllocationSize),
		typeIndex: info.MemoryTypeIndex,
	}
	return handle, nil
}

func (d *Device) FreeMemory(handle gpu.DeviceMemory) {
	if d.destroy(KindMemory, uint64(handle)) {
		delete(d.memories, handle)
	}
}

func (d *Device) MapMemory(handle gpu.DeviceMemory, offset, size int) (unsafe.Pointer, error) {
	m, ok := d.memories[handle]
	if !ok {
		return nil, errors.Newf("map of unknown memory %d", handle)
	}
	if d.spec.MemoryTypes[m.typeIndex].PropertyFlags&core1_0.MemoryPropertyHostVisible == 0 {
		return nil, errors.Newf("memory %d is not host visible", handle)
	}
	if m.mapped {
		return nil, errors.Newf("memory %d is already mapped", handle)
	}
	if size == gpu.WholeSize {
		size = len(m.data) - offset
	}
	if offset < 0 || size <= 0 || offset+size > len(m.data) {
		return nil, errors.Newf("map range [%d, %d) outside memory %d of size %d", offset, offset+size, handle, len(m.data))
	}
	m.mapped = true
	return unsafe.Pointer(&m.data[offset]), nil
}

func (d *Device) UnmapMemory(handle gpu.DeviceMemory) {
	m, ok := d.memories[handle]
	if !ok || !m.mapped {
		d.violate("unmap of memory %d that is not mapped", handle)
		return
	}
	m.mapped = false
}

// Mapped reports whether memory is currently mapped.
func (d *Device) Mapped(handle gpu.DeviceMemory) bool {
	m, ok := d.memories[handle]
	return ok && m.mapped
}

func (d *Device) FlushMappedMemoryRanges(ranges ...gpu.MappedMemoryRange) error {
	for _, r := range ranges {
		m, ok := d.memories[r.Memory]
		if !ok {
			return errors.Newf("flush of unknown memory %d", r.Memory)
		}
		if !m.mapped {
			return errors.Newf("flush of memory %d that is not mapped", r.Memory)
		}
		atom := d.spec.NonCoherentAtomSize
		if atom <= 0 {
			atom = 1
		}
		if r.Offset < 0 || r.Offset%atom != 0 || r.Offset >= len(m.data) {
			return errors.Newf("flush offset %d of memory %d is not a multiple of the %d byte atom", r.Offset, r.Memory, atom)
		}
		if r.Size != gpu.WholeSize {
			if r.Size <= 0 || r.Offset+r.Size > len(m.data) {
				return errors.Newf("flush range [%d, %d) outside memory %d of size %d", r.Offset, r.Offset+r.Size, r.Memory, len(m.data))
			}
			if r.Size%atom != 0 && r.Offset+r.Size != len(m.data) {
				return errors.Newf("flush size %d of memory %d is not a multiple of the %d byte atom", r.Size, r.Memory, atom)
			}
		}
		d.flushes = append(d.flushes, r)
	}
	return nil
}

// Flushes returns every range passed to FlushMappedMemoryRanges.
func (d *Device) Flushes() []gpu.MappedMemoryRange {
	return append([]gpu.MappedMemoryRange(nil), d.flushes...)
}

// BufferMemory returns the allocation a buffer is bound to.
func (d *Device) BufferMemory(handle gpu.Buffer) gpu.DeviceMemory {
	b, ok := d.buffers[handle]
	if !ok {
		return 0
	}
	return b.memory
}

// BufferContents returns a copy of the bytes backing a bound buffer.
func (d *Device) BufferContents(handle gpu.Buffer) []byte {
	b, ok := d.buffers[handle]
	if !ok || !b.bound {
		return nil
	}
	m := d.memories[b.memory]
	return append([]byte(nil), m.data[b.offset:b.offset+b.info.Size]...)
}

// BufferInfo returns the create info of a live buffer.
func (d *Device) BufferInfo(handle gpu.Buffer) core1_0.BufferCreateInfo {
	b, ok := d.buffers[handle]
	if !ok {
		return core1_0.BufferCreateInfo{}
	}
	return b.info
}

// MemoryProperties returns the property flags of the type an allocation came from.
func (d *Device) MemoryProperties(handle gpu.DeviceMemory) core1_0.MemoryPropertyFlags {
	m, ok := d.memories[handle]
	if !ok {
		return 0
	}
	return d.spec.MemoryTypes[m.typeIndex].PropertyFlags
}

func (d *Device) CreateImage(info core1_0.ImageCreateInfo) (gpu.Image, error) {
	if err := d.injected("CreateImage"); err != nil {
		return 0, err
	}
	handle := gpu.Image(d.create(KindImage))
	d.images[handle] = &image{info: info, layout: info.InitialLayout}
	return handle, nil
}

func (d *Device) DestroyImage(handle gpu.Image) {
	if img, ok := d.images[handle]; ok && img.swapchain != 0 {
		d.violate("destroy of swapchain-owned image %d", handle)
		return
	}
	if d.destroy(KindImage, uint64(handle)) {
		delete(d.images, handle)
	}
}

func (d *Device) GetImageMemoryRequirements(handle gpu.Image) gpu.MemoryRequirements {
	img, ok := d.images[handle]
	if !ok {
		d.violate("memory requirements of unknown image %d", handle)
		return gpu.MemoryRequirements{}
	}
	size := img.info.Extent.Width * img.info.Extent.Height * img.info.Extent.Depth * 4
	return gpu.MemoryRequirements{
		Size:           alignUp(size, 256),
		Alignment:      256,
		MemoryTypeBits: d.allMemoryTypeBits(),
	}
}

func (d *Device) BindImageMemory(handle gpu.Image, mem gpu.DeviceMemory, offset int) error {
	img, ok := d.images[handle]
	if !ok {
		return errors.Newf("bind of unknown image %d", handle)
	}
	m, ok := d.memories[mem]
	if !ok {
		return errors.Newf("bind of unknown memory %d", mem)
	}
	img.memory = mem
	img.data = m.data[offset:]
	return nil
}

// ImageLayout returns the layout an image was last transitioned to by an
// executed barrier.
func (d *Device) ImageLayout(handle gpu.Image) core1_0.ImageLayout {
	img, ok := d.images[handle]
	if !ok {
		return core1_0.ImageLayoutUndefined
	}
	return img.layout
}

// ImageContents returns the bytes copied into an image so far.
func (d *Device) ImageContents(handle gpu.Image) []byte {
	img, ok := d.images[handle]
	if !ok || img.data == nil {
		return nil
	}
	extent := img.info.Extent
	return append([]byte(nil), img.data[:extent.Width*extent.Height*extent.Depth*4]...)
}

func (d *Device) CreateImageView(info gpu.ImageViewCreateInfo) (gpu.ImageView, error) {
	if _, ok := d.images[info.Image]; !ok {
		return 0, errors.Newf("image view of unknown image %d", info.Image)
	}
	handle := gpu.ImageView(d.create(KindImageView))
	d.imageViews[handle] = info
	return handle, nil
}

func (d *Device) DestroyImageView(handle gpu.ImageView) {
	if d.destroy(KindImageView, uint64(handle)) {
		delete(d.imageViews, handle)
	}
}

// ImageViewInfo returns the create info of a live image view.
func (d *Device) ImageViewInfo(handle gpu.ImageView) gpu.ImageViewCreateInfo {
	return d.imageViews[handle]
}

func (d *Device) CreateSampler(info core1_0.SamplerCreateInfo) (gpu.Sampler, error) {
	if err := d.injected("CreateSampler"); err != nil {
		return 0, err
	}
	return gpu.Sampler(d.create(KindSampler)), nil
}

func (d *Device) DestroySampler(handle gpu.Sampler) {
	d.destroy(KindSampler, uint64(handle))
}

func (d *Device) CreateDescriptorSetLayout(bindings ...core1_0.DescriptorSetLayoutBinding) (gpu.DescriptorSetLayout, error) {
	handle := gpu.DescriptorSetLayout(d.create(KindDescriptorSetLayout))
	d.setLayouts[handle] = append([]core1_0.DescriptorSetLayoutBinding(nil), bindings...)
	return handle, nil
}

func (d *Device) DestroyDescriptorSetLayout(handle gpu.DescriptorSetLayout) {
	if d.destroy(KindDescriptorSetLayout, uint64(handle)) {
		delete(d.setLayouts, handle)
	}
}

// DescriptorSetLayoutBindings returns the bindings a layout was created with.
func (d *Device) DescriptorSetLayoutBindings(handle gpu.DescriptorSetLayout) []core1_0.DescriptorSetLayoutBinding {
	return d.setLayouts[handle]
}

func (d *Device) CreateDescriptorPool(info core1_0.DescriptorPoolCreateInfo) (gpu.DescriptorPool, error) {
	if info.MaxSets <= 0 {
		return 0, errors.Newf("descriptor pool needs at least one set, got %d", info.MaxSets)
	}
	handle := gpu.DescriptorPool(d.create(KindDescriptorPool))
	d.pools[handle] = &descriptorPool{info: info}
	return handle, nil
}

func (d *Device) DestroyDescriptorPool(handle gpu.DescriptorPool) {
	if d.destroy(KindDescriptorPool, uint64(handle)) {
		delete(d.pools, handle)
	}
}

// DescriptorPoolInfo returns the create info of a live pool.
func (d *Device) DescriptorPoolInfo(handle gpu.DescriptorPool) core1_0.DescriptorPoolCreateInfo {
	pool, ok := d.pools[handle]
	if !ok {
		return core1_0.DescriptorPoolCreateInfo{}
	}
	return pool.info
}

func (d *Device) AllocateDescriptorSets(handle gpu.DescriptorPool, layouts ...gpu.DescriptorSetLayout) ([]gpu.DescriptorSet, error) {
	pool, ok := d.pools[handle]
	if !ok {
		return nil, errors.Newf("allocation from unknown descriptor pool %d", handle)
	}
	if pool.sets+len(layouts) > pool.info.MaxSets {
		return nil, errors.Newf("descriptor pool %d exhausted: %d of %d sets in use", handle, pool.sets, pool.info.MaxSets)
	}
	var sets []gpu.DescriptorSet
	for _, layout := range layouts {
		if _, ok := d.setLayouts[layout]; !ok {
			return nil, errors.Newf("allocation with unknown descriptor set layout %d", layout)
		}
		d.nextHandle++
		sets = append(sets, gpu.DescriptorSet(d.nextHandle))
	}
	pool.sets += len(layouts)
	return sets, nil
}

func (d *Device) UpdateDescriptorSets(writes ...gpu.WriteDescriptorSet) error {
	for _, write := range writes {
		for _, info := range write.BufferInfo {
			if _, ok := d.buffers[info.Buffer]; !ok {
				return errors.Newf("descriptor write references unknown buffer %d", info.Buffer)
			}
		}
		for _, info := range write.ImageInfo {
			if _, ok := d.imageViews[info.ImageView]; !ok {
				return errors.Newf("descriptor write references unknown image view %d", info.ImageView)
			}
		}
		d.setWrites[write.DstSet] = append(d.setWrites[write.DstSet], write)
	}
	return nil
}

// DescriptorWrites returns every write applied to a descriptor set.
func (d *Device) DescriptorWrites(set gpu.DescriptorSet) []gpu.WriteDescriptorSet {
	return d.setWrites[set]
}

func (d *Device) CreateRenderPass(info core1_0.RenderPassCreateInfo) (gpu.RenderPass, error) {
	handle := gpu.RenderPass(d.create(KindRenderPass))
	d.renderPasses[handle] = info
	return handle, nil
}

func (d *Device) DestroyRenderPass(handle gpu.RenderPass) {
	if d.destroy(KindRenderPass, uint64(handle)) {
		delete(d.renderPasses, handle)
	}
}

// RenderPassInfo returns the create info of a live render pass.
func (d *Device) RenderPassInfo(handle gpu.RenderPass) core1_0.RenderPassCreateInfo {
	return d.renderPasses[handle]
}

func (d *Device) CreateFramebuffer(info gpu.FramebufferCreateInfo) (gpu.Framebuffer, error) {
	if _, ok := d.renderPasses[info.RenderPass]; !ok {
		return 0, errors.Newf("framebuffer for unknown render pass %d", info.RenderPass)
	}
	for _, view := range info.Attachments {
		if _, ok := d.imageViews[view]; !ok {
			return 0, errors.Newf("framebuffer attachment %d is not a live image view", view)
		}
	}
	handle := gpu.Framebuffer(d.create(KindFramebuffer))
	d.framebuffers[handle] = info
	return handle, nil
}

func (d *Device) DestroyFramebuffer(handle gpu.Framebuffer) {
	if d.destroy(KindFramebuffer, uint64(handle)) {
		delete(d.framebuffers, handle)
	}
}

// FramebufferInfo returns the create info of a live framebuffer.
func (d *Device) FramebufferInfo(handle gpu.Framebuffer) gpu.FramebufferCreateInfo {
	return d.framebuffers[handle]
}

func (d *Device) CreateShaderModule(code []uint32) (gpu.ShaderModule, error) {
	if err := d.injected("CreateShaderModule"); err != nil {
		return 0, err
	}
	if len(code) == 0 || code[0] != 0x07230203 {
		return 0, errors.New("shader code is not SPIR-V")
	}
	handle := gpu.ShaderModule(d.create(KindShaderModule))
	d.shaderModules[handle] = append([]uint32(nil), code...)
	return handle, nil
}

func (d *Device) DestroyShaderModule(handle gpu.ShaderModule) {
	if d.destroy(KindShaderModule, uint64(handle)) {
		delete(d.shaderModules, handle)
	}
}

func (d *Device) CreatePipelineLayout(info gpu.PipelineLayoutCreateInfo) (gpu.PipelineLayout, error) {
	for _, layout := range info.SetLayouts {
		if _, ok := d.setLayouts[layout]; !ok {
			return 0, errors.Newf("pipeline layout references unknown set layout %d", layout)
		}
	}
	handle := gpu.PipelineLayout(d.create(KindPipelineLayout))
	d.layouts[handle] = info
	return handle, nil
}

func (d *Device) DestroyPipelineLayout(handle gpu.PipelineLayout) {
	if d.destroy(KindPipelineLayout, uint64(handle)) {
		delete(d.layouts, handle)
	}
}

// PipelineLayoutInfo returns the create info of a live pipeline layout.
func (d *Device) PipelineLayoutInfo(handle gpu.PipelineLayout) gpu.PipelineLayoutCreateInfo {
	return d.layouts[handle]
}

func (d *Device) CreateGraphicsPipeline(info gpu.GraphicsPipelineCreateInfo) (gpu.Pipeline, error) {
	if err := d.injected("CreateGraphicsPipeline"); err != nil {
		return 0, err
	}
	if _, ok := d.layouts[info.Layout]; !ok {
		return 0, errors.Newf("pipeline with unknown layout %d", info.Layout)
	}
	if _, ok := d.renderPasses[info.RenderPass]; !ok {
		return 0, errors.Newf("pipeline with unknown render pass %d", info.RenderPass)
	}
	for _, stage := range info.Stages {
		if _, ok := d.shaderModules[stage.Module]; !ok {
			return 0, errors.Newf("pipeline stage uses unknown shader module %d", stage.Module)
		}
	}
	handle := gpu.Pipeline(d.create(KindPipeline))
	d.pipelines[handle] = info
	return handle, nil
}

func (d *Device) DestroyPipeline(handle gpu.Pipeline) {
	if d.destroy(KindPipeline, uint64(handle)) {
		delete(d.pipelines, handle)
	}
}

// PipelineInfo returns the create info of a live pipeline.
func (d *Device) PipelineInfo(handle gpu.Pipeline) gpu.GraphicsPipelineCreateInfo {
	return d.pipelines[handle]
}
