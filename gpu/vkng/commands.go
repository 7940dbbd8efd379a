package vkng

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

func (d *Device) CreateCommandPool(info core1_0.CommandPoolCreateInfo) (gpu.CommandPool, error) {
	pool, _, err := d.driver.CreateCommandPool(nil, info)
	if err != nil {
		return 0, err
	}
	return gpu.CommandPool(d.commandPools.add(pool)), nil
}

func (d *Device) DestroyCommandPool(pool gpu.CommandPool) {
	if object, ok := d.commandPools.remove(uint64(pool)); ok {
		d.driver.DestroyCommandPool(object, nil)
	}
}

func (d *Device) AllocateCommandBuffers(pool gpu.CommandPool, count int) ([]gpu.CommandBuffer, error) {
	buffers, _, err := d.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.commandPools.get(uint64(pool)),
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, err
	}

	handles := make([]gpu.CommandBuffer, len(buffers))
	for i, buffer := range buffers {
		handles[i] = gpu.CommandBuffer(d.commandBuffers.add(buffer))
	}
	return handles, nil
}

func (d *Device) FreeCommandBuffers(buffers ...gpu.CommandBuffer) {
	var objects []core1_0.CommandBuffer
	for _, buffer := range buffers {
		if object, ok := d.commandBuffers.remove(uint64(buffer)); ok {
			objects = append(objects, object)
		}
	}
	if len(objects) > 0 {
		d.driver.FreeCommandBuffers(objects...)
	}
}

func (d *Device) commandBuffer(buffer gpu.CommandBuffer) core1_0.CommandBuffer {
	return d.commandBuffers.get(uint64(buffer))
}

func (d *Device) BeginCommandBuffer(buffer gpu.CommandBuffer, flags core1_0.CommandBufferUsageFlags) error {
	_, err := d.driver.BeginCommandBuffer(d.commandBuffer(buffer), core1_0.CommandBufferBeginInfo{
		Flags: flags,
	})
	return err
}

func (d *Device) EndCommandBuffer(buffer gpu.CommandBuffer) error {
	_, err := d.driver.EndCommandBuffer(d.commandBuffer(buffer))
	return err
}

func (d *Device) ResetCommandBuffer(buffer gpu.CommandBuffer) error {
	_, err := d.driver.ResetCommandBuffer(d.commandBuffer(buffer), 0)
	return err
}

func (d *Device) CmdBeginRenderPass(buffer gpu.CommandBuffer, info gpu.RenderPassBeginInfo) error {
	return d.driver.CmdBeginRenderPass(d.commandBuffer(buffer), core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  d.renderPasses.get(uint64(info.RenderPass)),
			Framebuffer: d.framebuffers.get(uint64(info.Framebuffer)),
			RenderArea:  info.RenderArea,
			ClearValues: info.ClearValues,
		})
}

func (d *Device) CmdEndRenderPass(buffer gpu.CommandBuffer) {
	d.driver.CmdEndRenderPass(d.commandBuffer(buffer))
}

func (d *Device) CmdBindPipeline(buffer gpu.CommandBuffer, pipeline gpu.Pipeline) {
	d.driver.CmdBindPipeline(d.commandBuffer(buffer), core1_0.PipelineBindPointGraphics, d.pipelines.get(uint64(pipeline)))
}

func (d *Device) CmdSetViewport(buffer gpu.CommandBuffer, viewports ...core1_0.Viewport) {
	d.driver.CmdSetViewport(d.commandBuffer(buffer), viewports...)
}

func (d *Device) CmdSetScissor(buffer gpu.CommandBuffer, scissors ...core1_0.Rect2D) {
	d.driver.CmdSetScissor(d.commandBuffer(buffer), scissors...)
}

func (d *Device) CmdBindVertexBuffers(buffer gpu.CommandBuffer, firstBinding int, buffers []gpu.Buffer, offsets []int) {
	objects := make([]core1_0.Buffer, len(buffers))
	for i, vertexBuffer := range buffers {
		objects[i] = d.buffers.get(uint64(vertexBuffer)).buffer
	}
	d.driver.CmdBindVertexBuffers(d.commandBuffer(buffer), firstBinding, objects, offsets)
}

func (d *Device) CmdBindIndexBuffer(buffer gpu.CommandBuffer, indexBuffer gpu.Buffer, offset int, indexType core1_0.IndexType) {
	d.driver.CmdBindIndexBuffer(d.commandBuffer(buffer), d.buffers.get(uint64(indexBuffer)).buffer, offset, indexType)
}

func (d *Device) CmdBindDescriptorSets(buffer gpu.CommandBuffer, layout gpu.PipelineLayout, firstSet int, sets ...gpu.DescriptorSet) {
	objects := make([]core1_0.DescriptorSet, len(sets))
	for i, set := range sets {
		objects[i] = d.descriptorSets.get(uint64(set)).set
	}
	d.driver.CmdBindDescriptorSets(d.commandBuffer(buffer), core1_0.PipelineBindPointGraphics,
		d.pipelineLayouts.get(uint64(layout)), firstSet, objects, nil)
}

func (d *Device) CmdPushConstants(buffer gpu.CommandBuffer, layout gpu.PipelineLayout, stages core1_0.ShaderStageFlags, offset int, data []byte) {
	d.driver.CmdPushConstants(d.commandBuffer(buffer), d.pipelineLayouts.get(uint64(layout)), stages, offset, data)
}

func (d *Device) CmdDraw(buffer gpu.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance int) {
	d.driver.CmdDraw(d.commandBuffer(buffer), vertexCount, instanceCount, uint32(firstVertex), uint32(firstInstance))
}

func (d *Device) CmdDrawIndexed(buffer gpu.CommandBuffer, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int) {
	d.driver.CmdDrawIndexed(d.commandBuffer(buffer), indexCount, instanceCount, uint32(firstIndex), vertexOffset, uint32(firstInstance))
}

func (d *Device) CmdCopyBuffer(buffer gpu.CommandBuffer, src, dst gpu.Buffer, regions ...core1_0.BufferCopy) error {
	return d.driver.CmdCopyBuffer(d.commandBuffer(buffer), d.buffers.get(uint64(src)).buffer, d.buffers.get(uint64(dst)).buffer, regions...)
}

func (d *Device) CmdCopyBufferToImage(buffer gpu.CommandBuffer, src gpu.Buffer, dst gpu.Image, layout core1_0.ImageLayout, regions ...core1_0.BufferImageCopy) error {
	return d.driver.CmdCopyBufferToImage(d.commandBuffer(buffer), d.buffers.get(uint64(src)).buffer, d.images.get(uint64(dst)).image, layout, regions...)
}

func (d *Device) CmdPipelineBarrier(buffer gpu.CommandBuffer, srcStage, dstStage core1_0.PipelineStageFlags, barriers ...gpu.ImageMemoryBarrier) error {
	imageBarriers := make([]core1_0.ImageMemoryBarrier, len(barriers))
	for i, barrier := range barriers {
		imageBarriers[i] = core1_0.ImageMemoryBarrier{
			SrcAccessMask:       barrier.SrcAccessMask,
			DstAccessMask:       barrier.DstAccessMask,
			OldLayout:           barrier.OldLayout,
			NewLayout:           barrier.NewLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               d.images.get(uint64(barrier.Image)).image,
			SubresourceRange:    barrier.SubresourceRange,
		}
	}

	return d.driver.CmdPipelineBarrier(d.commandBuffer(buffer), srcStage, dstStage, 0, nil, nil, imageBarriers)
}
