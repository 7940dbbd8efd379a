package gputest

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

type commandBufferState int

const (
	stateInitial commandBufferState = iota
	stateRecording
	stateExecutable
	statePending
)

func (s commandBufferState) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case stateRecording:
		return "recording"
	case stateExecutable:
		return "executable"
	case statePending:
		return "pending"
	}
	return "invalid"
}

// Command is one recorded command. Args holds the call's arguments in the
// form the gpu.Commands method received them.
type Command struct {
	Name string
	Args any
}

type (
	CopyBufferArgs struct {
		Src, Dst gpu.Buffer
		Regions  []core1_0.BufferCopy
	}
	CopyBufferToImageArgs struct {
		Src     gpu.Buffer
		Dst     gpu.Image
		Layout  core1_0.ImageLayout
		Regions []core1_0.BufferImageCopy
	}
	PipelineBarrierArgs struct {
		SrcStage, DstStage core1_0.PipelineStageFlags
		Barriers           []gpu.ImageMemoryBarrier
	}
	BindVertexBuffersArgs struct {
		FirstBinding int
		Buffers      []gpu.Buffer
		Offsets      []int
	}
	BindIndexBufferArgs struct {
		Buffer    gpu.Buffer
		Offset    int
		IndexType core1_0.IndexType
	}
	BindDescriptorSetsArgs struct {
		Layout   gpu.PipelineLayout
		FirstSet int
		Sets     []gpu.DescriptorSet
	}
	PushConstantsArgs struct {
		Layout gpu.PipelineLayout
		Stages core1_0.ShaderStageFlags
		Offset int
		Data   []byte
	}
	DrawArgs struct {
		VertexCount, InstanceCount, FirstVertex, FirstInstance int
	}
	DrawIndexedArgs struct {
		IndexCount, InstanceCount, FirstIndex, VertexOffset, FirstInstance int
	}
)

type commandBuffer struct {
	pool     gpu.CommandPool
	state    commandBufferState
	flags    core1_0.CommandBufferUsageFlags
	commands []Command
	inPass   bool
}

type submission struct {
	queue    gpu.Queue
	fence    gpu.Fence
	buffers  []gpu.CommandBuffer
	signals  []gpu.Semaphore
	sequence int
}

func (d *Device) CreateCommandPool(info core1_0.CommandPoolCreateInfo) (gpu.CommandPool, error) {
	handle := gpu.CommandPool(d.create(KindCommandPool))
	d.commandPools[handle] = info
	return handle, nil
}

func (d *Device) DestroyCommandPool(handle gpu.CommandPool) {
	if !d.destroy(KindCommandPool, uint64(handle)) {
		return
	}
	delete(d.commandPools, handle)
	for buffer, cb := range d.commandBuffers {
		if cb.pool == handle {
			if cb.state == statePending {
				d.violate("command pool %d destroyed while buffer %d is pending", handle, buffer)
			}
			delete(d.live, uint64(buffer))
			delete(d.commandBuffers, buffer)
		}
	}
}

// CommandPoolInfo returns the create info of a live command pool.
func (d *Device) CommandPoolInfo(handle gpu.CommandPool) core1_0.CommandPoolCreateInfo {
	return d.commandPools[handle]
}

func (d *Device) AllocateCommandBuffers(pool gpu.CommandPool, count int) ([]gpu.CommandBuffer, error) {
	if _, ok := d.commandPools[pool]; !ok {
		return nil, errors.Newf("allocation from unknown command pool %d", pool)
	}
	var buffers []gpu.CommandBuffer
	for i := 0; i < count; i++ {
		handle := gpu.CommandBuffer(d.create(KindCommandBuffer))
		d.commandBuffers[handle] = &commandBuffer{pool: pool}
		buffers = append(buffers, handle)
	}
	return buffers, nil
}

func (d *Device) FreeCommandBuffers(buffers ...gpu.CommandBuffer) {
	for _, handle := range buffers {
		if cb, ok := d.commandBuffers[handle]; ok && cb.state == statePending {
			d.violate("command buffer %d freed while pending", handle)
		}
		if d.destroy(KindCommandBuffer, uint64(handle)) {
			delete(d.commandBuffers, handle)
		}
	}
}

func (d *Device) BeginCommandBuffer(handle gpu.CommandBuffer, flags core1_0.CommandBufferUsageFlags) error {
	cb, ok := d.commandBuffers[handle]
	if !ok {
		return errors.Newf("begin of unknown command buffer %d", handle)
	}
	if cb.state == statePending || cb.state == stateRecording {
		return errors.Newf("begin of command buffer %d in %s state", handle, cb.state)
	}
	if cb.state == stateExecutable && d.commandPools[cb.pool].Flags&core1_0.CommandPoolCreateResetBuffer == 0 {
		return errors.Newf("implicit reset of command buffer %d from a pool without the reset flag", handle)
	}
	cb.state = stateRecording
	cb.flags = flags
	cb.commands = nil
	cb.inPass = false
	return nil
}

func (d *Device) EndCommandBuffer(handle gpu.CommandBuffer) error {
	cb, ok := d.commandBuffers[handle]
	if !ok {
		return errors.Newf("end of unknown command buffer %d", handle)
	}
	if cb.state != stateRecording {
		return errors.Newf("end of command buffer %d in %s state", handle, cb.state)
	}
	if cb.inPass {
		return errors.Newf("end of command buffer %d inside a render pass", handle)
	}
	cb.state = stateExecutable
	return nil
}

func (d *Device) ResetCommandBuffer(handle gpu.CommandBuffer) error {
	cb, ok := d.commandBuffers[handle]
	if !ok {
		return errors.Newf("reset of unknown command buffer %d", handle)
	}
	if cb.state == statePending {
		return errors.Newf("reset of pending command buffer %d", handle)
	}
	cb.state = stateInitial
	cb.commands = nil
	return nil
}

// Recorded returns the commands of the last recording of a command buffer.
func (d *Device) Recorded(handle gpu.CommandBuffer) []Command {
	cb, ok := d.commandBuffers[handle]
	if !ok {
		return nil
	}
	return append([]Command(nil), cb.commands...)
}

// RecordedNames returns the names of the recorded commands in order.
func (d *Device) RecordedNames(handle gpu.CommandBuffer) []string {
	var names []string
	for _, command := range d.Recorded(handle) {
		names = append(names, command.Name)
	}
	return names
}

func (d *Device) record(handle gpu.CommandBuffer, name string, args any) *commandBuffer {
	cb, ok := d.commandBuffers[handle]
	if !ok {
		d.violate("%s on unknown command buffer %d", name, handle)
		return nil
	}
	if cb.state != stateRecording {
		d.violate("%s on command buffer %d in %s state", name, handle, cb.state)
		return nil
	}
	cb.commands = append(cb.commands, Command{Name: name, Args: args})
	return cb
}

func (d *Device) CmdBeginRenderPass(handle gpu.CommandBuffer, info gpu.RenderPassBeginInfo) error {
	if _, ok := d.renderPasses[info.RenderPass]; !ok {
		return errors.Newf("begin of unknown render pass %d", info.RenderPass)
	}
	if _, ok := d.framebuffers[info.Framebuffer]; !ok {
		return errors.Newf("begin render pass with unknown framebuffer %d", info.Framebuffer)
	}
	cb := d.record(handle, "CmdBeginRenderPass", info)
	if cb == nil {
		return errors.Newf("command buffer %d is not recording", handle)
	}
	if cb.inPass {
		return errors.Newf("render pass begun twice on command buffer %d", handle)
	}
	cb.inPass = true
	return nil
}

func (d *Device) CmdEndRenderPass(handle gpu.CommandBuffer) {
	cb := d.record(handle, "CmdEndRenderPass", nil)
	if cb == nil {
		return
	}
	if !cb.inPass {
		d.violate("render pass ended outside a render pass on command buffer %d", handle)
	}
	cb.inPass = false
}

func (d *Device) CmdBindPipeline(handle gpu.CommandBuffer, pipeline gpu.Pipeline) {
	if _, ok := d.pipelines[pipeline]; !ok {
		d.violate("bind of unknown pipeline %d", pipeline)
	}
	d.record(handle, "CmdBindPipeline", pipeline)
}

func (d *Device) CmdSetViewport(handle gpu.CommandBuffer, viewports ...core1_0.Viewport) {
	d.record(handle, "CmdSetViewport", viewports)
}

func (d *Device) CmdSetScissor(handle gpu.CommandBuffer, scissors ...core1_0.Rect2D) {
	d.record(handle, "CmdSetScissor", scissors)
}

func (d *Device) CmdBindVertexBuffers(handle gpu.CommandBuffer, firstBinding int, buffers []gpu.Buffer, offsets []int) {
	d.record(handle, "CmdBindVertexBuffers", BindVertexBuffersArgs{FirstBinding: firstBinding, Buffers: buffers, Offsets: offsets})
}

func (d *Device) CmdBindIndexBuffer(handle gpu.CommandBuffer, indexBuffer gpu.Buffer, offset int, indexType core1_0.IndexType) {
	d.record(handle, "CmdBindIndexBuffer", BindIndexBufferArgs{Buffer: indexBuffer, Offset: offset, IndexType: indexType})
}

func (d *Device) CmdBindDescriptorSets(handle gpu.CommandBuffer, layout gpu.PipelineLayout, firstSet int, sets ...gpu.DescriptorSet) {
	d.record(handle, "CmdBindDescriptorSets", BindDescriptorSetsArgs{Layout: layout, FirstSet: firstSet, Sets: sets})
}

func (d *Device) CmdPushConstants(handle gpu.CommandBuffer, layout gpu.PipelineLayout, stages core1_0.ShaderStageFlags, offset int, data []byte) {
	d.record(handle, "CmdPushConstants", PushConstantsArgs{Layout: layout, Stages: stages, Offset: offset, Data: append([]byte(nil), data...)})
}

func (d *Device) CmdDraw(handle gpu.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance int) {
	d.record(handle, "CmdDraw", DrawArgs{vertexCount, instanceCount, firstVertex, firstInstance})
}

func (d *Device) CmdDrawIndexed(handle gpu.CommandBuffer, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int) {
	d.record(handle, "CmdDrawIndexed", DrawIndexedArgs{indexCount, instanceCount, firstIndex, vertexOffset, firstInstance})
}

func (d *Device) CmdCopyBuffer(handle gpu.CommandBuffer, src, dst gpu.Buffer, regions ...core1_0.BufferCopy) error {
	srcBuffer, ok := d.buffers[src]
	if !ok {
		return errors.Newf("copy from unknown buffer %d", src)
	}
	dstBuffer, ok := d.buffers[dst]
	if !ok {
		return errors.Newf("copy to unknown buffer %d", dst)
	}
	if srcBuffer.info.Usage&core1_0.BufferUsageTransferSrc == 0 {
		return errors.Newf("copy source %d lacks transfer-src usage", src)
	}
	if dstBuffer.info.Usage&core1_0.BufferUsageTransferDst == 0 {
		return errors.Newf("copy destination %d lacks transfer-dst usage", dst)
	}
	for _, region := range regions {
		if region.SrcOffset+region.Size > srcBuffer.info.Size || region.DstOffset+region.Size > dstBuffer.info.Size {
			return errors.Newf("copy region %+v out of bounds", region)
		}
	}
	if d.record(handle, "CmdCopyBuffer", CopyBufferArgs{Src: src, Dst: dst, Regions: regions}) == nil {
		return errors.Newf("command buffer %d is not recording", handle)
	}
	return nil
}

func (d *Device) CmdCopyBufferToImage(handle gpu.CommandBuffer, src gpu.Buffer, dst gpu.Image, layout core1_0.ImageLayout, regions ...core1_0.BufferImageCopy) error {
	if _, ok := d.buffers[src]; !ok {
		return errors.Newf("copy from unknown buffer %d", src)
	}
	if _, ok := d.images[dst]; !ok {
		return errors.Newf("copy to unknown image %d", dst)
	}
	if layout != core1_0.ImageLayoutTransferDstOptimal {
		return errors.Newf("copy to image %d in layout %s", dst, layout)
	}
	if d.record(handle, "CmdCopyBufferToImage", CopyBufferToImageArgs{Src: src, Dst: dst, Layout: layout, Regions: regions}) == nil {
		return errors.Newf("command buffer %d is not recording", handle)
	}
	return nil
}

func (d *Device) CmdPipelineBarrier(handle gpu.CommandBuffer, srcStage, dstStage core1_0.PipelineStageFlags, barriers ...gpu.ImageMemoryBarrier) error {
	for _, barrier := range barriers {
		if _, ok := d.images[barrier.Image]; !ok {
			return errors.Newf("barrier on unknown image %d", barrier.Image)
		}
	}
	if d.record(handle, "CmdPipelineBarrier", PipelineBarrierArgs{SrcStage: srcStage, DstStage: dstStage, Barriers: barriers}) == nil {
		return errors.Newf("command buffer %d is not recording", handle)
	}
	return nil
}

func (d *Device) QueueSubmit(queue gpu.Queue, handle gpu.Fence, submits ...gpu.SubmitInfo) error {
	if queue == 0 {
		return errors.New("submit to a null queue")
	}
	if handle != 0 {
		f, ok := d.fences[handle]
		if !ok {
			return errors.Newf("submit with unknown fence %d", handle)
		}
		if f.signaled || f.pending {
			return errors.Newf("submit with fence %d that is signaled or in use", handle)
		}
	}

	for _, submit := range submits {
		if len(submit.WaitSemaphores) != len(submit.WaitDstStageMask) {
			return errors.New("every wait semaphore needs a destination stage mask")
		}
		for _, semaphore := range submit.WaitSemaphores {
			signaled, ok := d.semaphores[semaphore]
			if !ok {
				return errors.Newf("wait on unknown semaphore %d", semaphore)
			}
			if !signaled {
				return errors.Newf("wait on semaphore %d that has no pending signal", semaphore)
			}
		}
		for _, semaphore := range submit.SignalSemaphores {
			signaled, ok := d.semaphores[semaphore]
			if !ok {
				return errors.Newf("signal of unknown semaphore %d", semaphore)
			}
			if signaled {
				return errors.Newf("signal of semaphore %d that is already signaled", semaphore)
			}
		}
		for _, buffer := range submit.CommandBuffers {
			cb, ok := d.commandBuffers[buffer]
			if !ok {
				return errors.Newf("submit of unknown command buffer %d", buffer)
			}
			if cb.state != stateExecutable {
				return errors.Newf("submit of command buffer %d in %s state", buffer, cb.state)
			}
		}
	}

	d.submitCount++
	sub := &submission{queue: queue, fence: handle, sequence: d.submitCount}
	for _, submit := range submits {
		for _, semaphore := range submit.WaitSemaphores {
			d.semaphores[semaphore] = false
		}
		for _, buffer := range submit.CommandBuffers {
			cb := d.commandBuffers[buffer]
			if err := d.execute(cb); err != nil {
				return err
			}
			cb.state = statePending
			sub.buffers = append(sub.buffers, buffer)
		}
		for _, semaphore := range submit.SignalSemaphores {
			d.semaphores[semaphore] = true
		}
		sub.signals = append(sub.signals, submit.SignalSemaphores...)
	}
	if handle != 0 {
		d.fences[handle].pending = true
	}
	d.queue = append(d.queue, sub)
	if outstanding := d.Outstanding(); outstanding > d.maxOutstanding {
		d.maxOutstanding = outstanding
	}
	return nil
}

// execute applies the memory side effects of transfer and barrier commands.
func (d *Device) execute(cb *commandBuffer) error {
	for _, command := range cb.commands {
		switch args := command.Args.(type) {
		case CopyBufferArgs:
			src, dst := d.buffers[args.Src], d.buffers[args.Dst]
			if src == nil || dst == nil || !src.bound || !dst.bound {
				return errors.New("copy between buffers without memory")
			}
			srcData := d.memories[src.memory].data[src.offset:]
			dstData := d.memories[dst.memory].data[dst.offset:]
			for _, region := range args.Regions {
				copy(dstData[region.DstOffset:region.DstOffset+region.Size], srcData[region.SrcOffset:region.SrcOffset+region.Size])
			}
		case CopyBufferToImageArgs:
			src, dst := d.buffers[args.Src], d.images[args.Dst]
			if src == nil || dst == nil || !src.bound || dst.data == nil {
				return errors.New("copy from buffer to image without memory")
			}
			if dst.layout != core1_0.ImageLayoutTransferDstOptimal {
				return errors.Newf("copy to image in layout %s", dst.layout)
			}
			srcData := d.memories[src.memory].data[src.offset : src.offset+src.info.Size]
			for _, region := range args.Regions {
				size := region.ImageExtent.Width * region.ImageExtent.Height * region.ImageExtent.Depth * 4
				copy(dst.data[:size], srcData[region.BufferOffset:])
			}
		case PipelineBarrierArgs:
			for _, barrier := range args.Barriers {
				img := d.images[barrier.Image]
				if img == nil {
					return errors.Newf("barrier on destroyed image %d", barrier.Image)
				}
				if barrier.OldLayout != core1_0.ImageLayoutUndefined && barrier.OldLayout != img.layout {
					return errors.Newf("barrier expects layout %s but image %d is in %s", barrier.OldLayout, barrier.Image, img.layout)
				}
				img.layout = barrier.NewLayout
			}
		}
	}
	return nil
}

// Outstanding counts fenced submissions that have not completed yet.
func (d *Device) Outstanding() int {
	count := 0
	for _, sub := range d.queue {
		if sub.fence != 0 {
			count++
		}
	}
	return count
}

// MaxOutstanding is the high-water mark of Outstanding.
func (d *Device) MaxOutstanding() int {
	return d.maxOutstanding
}

// Submissions counts successful QueueSubmit calls.
func (d *Device) Submissions() int {
	return d.submitCount
}

// WaitIdleCount counts DeviceWaitIdle calls.
func (d *Device) WaitIdleCount() int {
	return d.waitIdleCount
}

// completeThrough retires submissions in order up to and including index.
func (d *Device) completeThrough(index int) {
	for _, sub := range d.queue[:index+1] {
		for _, buffer := range sub.buffers {
			if cb, ok := d.commandBuffers[buffer]; ok {
				cb.state = stateExecutable
			}
		}
		if f, ok := d.fences[sub.fence]; ok {
			f.pending = false
			f.signaled = true
		}
	}
	d.queue = d.queue[index+1:]
}

func (d *Device) WaitForFences(waitAll bool, fences ...gpu.Fence) error {
	last := -1
	for _, handle := range fences {
		f, ok := d.fences[handle]
		if !ok {
			return errors.Newf("wait on unknown fence %d", handle)
		}
		if f.signaled {
			if !waitAll {
				return nil
			}
			continue
		}
		if !f.pending {
			return errors.Newf("wait on fence %d that no submission will signal", handle)
		}
		for index, sub := range d.queue {
			if sub.fence == handle && index > last {
				last = index
			}
		}
	}
	if last >= 0 {
		d.completeThrough(last)
	}
	return nil
}

func (d *Device) QueueWaitIdle(queue gpu.Queue) error {
	last := -1
	for index, sub := range d.queue {
		if sub.queue == queue {
			last = index
		}
	}
	if last >= 0 {
		d.completeThrough(last)
	}
	return nil
}

func (d *Device) DeviceWaitIdle() error {
	d.waitIdleCount++
	if len(d.queue) > 0 {
		d.completeThrough(len(d.queue) - 1)
	}
	return nil
}
