package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

var colorSubresourceRange = core1_0.ImageSubresourceRange{
	AspectMask:     core1_0.ImageAspectColor,
	BaseMipLevel:   0,
	LevelCount:     1,
	BaseArrayLayer: 0,
	LayerCount:     1,
}

func isDepthFormat(format core1_0.Format) bool {
	return format == core1_0.FormatD32SignedFloat ||
		format == core1_0.FormatD32SignedFloatS8UnsignedInt ||
		format == core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
}

// Image owns a device-local 2D image with a single mip level, its memory and
// the layout it was last transitioned to.
type Image struct {
	_ noCopy

	device *Device
	driver gpu.Device

	image  gpu.Image
	memory gpu.DeviceMemory
	format core1_0.Format
	width  int
	height int
	layout core1_0.ImageLayout
}

func NewImage(device *Device, width, height int, format core1_0.Format, usage core1_0.ImageUsageFlags) (*Image, error) {
	driver := device.Driver()

	image, err := driver.CreateImage(core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create %dx%d image", width, height)
	}

	memReqs := driver.GetImageMemoryRequirements(image)
	memoryIndex, err := device.QueryMemoryType(memReqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		driver.DestroyImage(image)
		return nil, errors.Mark(err, ErrMemoryAllocationFailed)
	}

	memory, err := driver.AllocateMemory(core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		driver.DestroyImage(image)
		return nil, errors.Mark(errors.Wrap(err, "allocate image memory"), ErrMemoryAllocationFailed)
	}

	err = driver.BindImageMemory(image, memory, 0)
	if err != nil {
		driver.FreeMemory(memory)
		driver.DestroyImage(image)
		return nil, errors.Wrap(err, "bind image memory")
	}

	return &Image{
		device: device,
		driver: driver,
		image:  image,
		memory: memory,
		format: format,
		width:  width,
		height: height,
		layout: core1_0.ImageLayoutUndefined,
	}, nil
}

// layoutTransitionBarrier describes the only two transitions an upload needs.
// Any other pair is a programming error.
func layoutTransitionBarrier(oldLayout, newLayout core1_0.ImageLayout) (barrier gpu.ImageMemoryBarrier, srcStage, dstStage core1_0.PipelineStageFlags, err error) {
	switch {
	case oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = core1_0.AccessTransferWrite
		srcStage = core1_0.PipelineStageTopOfPipe
		dstStage = core1_0.PipelineStageTransfer
	case oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = core1_0.AccessTransferWrite
		barrier.DstAccessMask = core1_0.AccessShaderRead
		srcStage = core1_0.PipelineStageTransfer
		dstStage = core1_0.PipelineStageFragmentShader
	default:
		return barrier, 0, 0, errors.WithDetailf(ErrUnsupportedLayoutTransition, "%s -> %s", oldLayout, newLayout)
	}

	barrier.OldLayout = oldLayout
	barrier.NewLayout = newLayout
	barrier.SubresourceRange = colorSubresourceRange
	return barrier, srcStage, dstStage, nil
}

// TransitionLayout moves the image from its current layout to newLayout and
// waits for the barrier to execute.
func (i *Image) TransitionLayout(newLayout core1_0.ImageLayout) error {
	barrier, srcStage, dstStage, err := layoutTransitionBarrier(i.layout, newLayout)
	if err != nil {
		return err
	}
	barrier.Image = i.image

	err = i.device.ExecuteOneShot(func(commandBuffer gpu.CommandBuffer) error {
		return i.driver.CmdPipelineBarrier(commandBuffer, srcStage, dstStage, barrier)
	})
	if err != nil {
		return errors.Wrapf(err, "transition image to %s", newLayout)
	}

	i.layout = newLayout
	return nil
}

// CopyFromBuffer fills the whole image from tightly packed texels in src.
// The image must be in the transfer destination layout.
func (i *Image) CopyFromBuffer(src *Buffer) error {
	if i.layout != core1_0.ImageLayoutTransferDstOptimal {
		return errors.Newf("copy into image in layout %s", i.layout)
	}

	return i.device.ExecuteOneShot(func(commandBuffer gpu.CommandBuffer) error {
		return i.driver.CmdCopyBufferToImage(commandBuffer, src.Handle(), i.image, core1_0.ImageLayoutTransferDstOptimal,
			core1_0.BufferImageCopy{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: i.width, Height: i.height, Depth: 1},
			},
		)
	})
}

func (i *Image) CreateView() (gpu.ImageView, error) {
	subresourceRange := colorSubresourceRange
	if isDepthFormat(i.format) {
		subresourceRange.AspectMask = core1_0.ImageAspectDepth
	}

	view, err := i.driver.CreateImageView(gpu.ImageViewCreateInfo{
		Image:            i.image,
		ViewType:         core1_0.ImageViewType2D,
		Format:           i.format,
		SubresourceRange: subresourceRange,
	})
	return view, errors.Wrap(err, "create image view")
}

func (i *Image) Handle() gpu.Image {
	return i.image
}

func (i *Image) Layout() core1_0.ImageLayout {
	return i.layout
}

func (i *Image) Format() core1_0.Format {
	return i.format
}

func (i *Image) Extent() core1_0.Extent2D {
	return core1_0.Extent2D{Width: i.width, Height: i.height}
}

func (i *Image) Destroy() {
	if i.image == 0 {
		return
	}
	i.driver.DestroyImage(i.image)
	i.driver.FreeMemory(i.memory)
	i.image = 0
	i.memory = 0
}
