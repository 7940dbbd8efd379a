package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu/gputest"
)

func TestLayoutTransitionBarrier(t *testing.T) {
	barrier, src, dst, err := layoutTransitionBarrier(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Zero(t, barrier.SrcAccessMask)
	assert.Equal(t, core1_0.AccessTransferWrite, barrier.DstAccessMask)
	assert.Equal(t, core1_0.PipelineStageTopOfPipe, src)
	assert.Equal(t, core1_0.PipelineStageTransfer, dst)

	barrier, src, dst, err = layoutTransitionBarrier(core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.AccessTransferWrite, barrier.SrcAccessMask)
	assert.Equal(t, core1_0.AccessShaderRead, barrier.DstAccessMask)
	assert.Equal(t, core1_0.PipelineStageTransfer, src)
	assert.Equal(t, core1_0.PipelineStageFragmentShader, dst)
	assert.Equal(t, colorSubresourceRange, barrier.SubresourceRange)

	_, _, _, err = layoutTransitionBarrier(core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.ImageLayoutTransferDstOptimal)
	assert.True(t, errors.Is(err, ErrUnsupportedLayoutTransition))
	_, _, _, err = layoutTransitionBarrier(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutShaderReadOnlyOptimal)
	assert.True(t, errors.Is(err, ErrUnsupportedLayoutTransition))
}

func TestImageUpload(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	image, err := NewImage(device, 4, 2, core1_0.FormatR8G8B8A8SRGB,
		core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled)
	require.NoError(t, err)
	defer image.Destroy()

	assert.Equal(t, core1_0.Extent2D{Width: 4, Height: 2}, image.Extent())
	assert.Equal(t, core1_0.ImageLayoutUndefined, image.Layout())

	data := pattern(4 * 2 * 4)
	staging, err := NewStagingBuffer(device, data)
	require.NoError(t, err)
	defer staging.Destroy()

	assert.Error(t, image.CopyFromBuffer(staging), "copy before transition")

	require.NoError(t, image.TransitionLayout(core1_0.ImageLayoutTransferDstOptimal))
	assert.Equal(t, core1_0.ImageLayoutTransferDstOptimal, fake.ImageLayout(image.Handle()))

	require.NoError(t, image.CopyFromBuffer(staging))
	assert.Equal(t, data, fake.ImageContents(image.Handle()))

	require.NoError(t, image.TransitionLayout(core1_0.ImageLayoutShaderReadOnlyOptimal))
	assert.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, image.Layout())
	assert.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, fake.ImageLayout(image.Handle()))

	err = image.TransitionLayout(core1_0.ImageLayoutTransferDstOptimal)
	assert.True(t, errors.Is(err, ErrUnsupportedLayoutTransition))
	assert.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, image.Layout())
	assert.Equal(t, 3, fake.Submissions())
}

func TestImageViewAspect(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	color, err := NewImage(device, 8, 8, core1_0.FormatB8G8R8A8SRGB, core1_0.ImageUsageColorAttachment)
	require.NoError(t, err)
	defer color.Destroy()

	depth, err := NewImage(device, 8, 8, DepthFormat, core1_0.ImageUsageDepthStencilAttachment)
	require.NoError(t, err)
	defer depth.Destroy()

	colorView, err := color.CreateView()
	require.NoError(t, err)
	defer device.Driver().DestroyImageView(colorView)

	depthView, err := depth.CreateView()
	require.NoError(t, err)
	defer device.Driver().DestroyImageView(depthView)

	assert.Equal(t, core1_0.ImageAspectColor, fake.ImageViewInfo(colorView).SubresourceRange.AspectMask)
	assert.Equal(t, core1_0.ImageAspectDepth, fake.ImageViewInfo(depthView).SubresourceRange.AspectMask)
	assert.Equal(t, DepthFormat, fake.ImageViewInfo(depthView).Format)
}

func TestNewImageFailures(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	fake.FailOn("CreateImage")
	_, err := NewImage(device, 8, 8, core1_0.FormatR8G8B8A8SRGB, core1_0.ImageUsageSampled)
	assert.True(t, errors.Is(err, gputest.ErrInjected))
	fake.ClearFailures()

	fake.FailOn("AllocateMemory")
	_, err = NewImage(device, 8, 8, core1_0.FormatR8G8B8A8SRGB, core1_0.ImageUsageSampled)
	assert.True(t, errors.Is(err, ErrMemoryAllocationFailed))
	assert.Zero(t, fake.LiveCount(gputest.KindImage))
	fake.ClearFailures()
}
