package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu/gputest"
)

func checkerboard(width, height int) Pixels {
	pixels := Pixels{Width: width, Height: height, Data: make([]byte, width*height*4)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			texel := pixels.Data[4*(y*width+x):]
			if (x+y)%2 == 0 {
				texel[0], texel[1], texel[2] = 0xff, 0xff, 0xff
			}
			texel[3] = 0xff
		}
	}
	return pixels
}

func TestTextureManagerLoad(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	textures, err := NewTextureManager(device)
	require.NoError(t, err)
	defer textures.Destroy()

	pixels := checkerboard(4, 4)
	texture, err := textures.Load("checker", pixels)
	require.NoError(t, err)

	image := texture.Image()
	assert.Equal(t, core1_0.FormatR8G8B8A8SRGB, image.Format())
	assert.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, image.Layout())
	assert.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, fake.ImageLayout(image.Handle()))
	assert.Equal(t, pixels.Data, fake.ImageContents(image.Handle()))

	writes := fake.DescriptorWrites(texture.DescriptorSet())
	require.Len(t, writes, 1)
	assert.Equal(t, 0, writes[0].DstBinding)
	assert.Equal(t, core1_0.DescriptorTypeCombinedImageSampler, writes[0].DescriptorType)
	require.Len(t, writes[0].ImageInfo, 1)
	assert.Equal(t, texture.DescriptorInfo(), writes[0].ImageInfo[0])

	assert.Zero(t, fake.LiveCount(gputest.KindBuffer), "staging buffer released")

	got, ok := textures.Get("checker")
	assert.True(t, ok)
	assert.Same(t, texture, got)
	_, ok = textures.Get("missing")
	assert.False(t, ok)
}

func TestTextureManagerNames(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	textures, err := NewTextureManager(device)
	require.NoError(t, err)
	defer textures.Destroy()

	for _, name := range []string{"wood", "brick", "marble"} {
		_, err := textures.Load(name, checkerboard(2, 2))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"brick", "marble", "wood"}, textures.Names())

	_, err = textures.Load("wood", checkerboard(2, 2))
	assert.Error(t, err)
	assert.Len(t, textures.Names(), 3)
}

func TestTextureBadPixels(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	textures, err := NewTextureManager(device)
	require.NoError(t, err)
	defer textures.Destroy()

	testCases := []struct {
		name   string
		pixels Pixels
	}{
		{name: "empty extent", pixels: Pixels{Width: 0, Height: 4}},
		{name: "short data", pixels: Pixels{Width: 2, Height: 2, Data: make([]byte, 15)}},
		{name: "long data", pixels: Pixels{Width: 2, Height: 2, Data: make([]byte, 17)}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := textures.Load(testCase.name, testCase.pixels)
			assert.Error(t, err)
		})
	}

	assert.Empty(t, textures.Names())
	assert.Zero(t, fake.LiveCount(gputest.KindImage))
}

func TestTextureFailureReleasesResources(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	textures, err := NewTextureManager(device)
	require.NoError(t, err)
	defer textures.Destroy()

	fake.FailOn("CreateSampler")
	_, err = textures.Load("broken", checkerboard(2, 2))
	assert.Error(t, err)
	fake.ClearFailures()

	assert.Zero(t, fake.LiveCount(gputest.KindImage))
	assert.Zero(t, fake.LiveCount(gputest.KindImageView))
	assert.Zero(t, fake.LiveCount(gputest.KindSampler))
	assert.Zero(t, fake.LiveCount(gputest.KindBuffer))
}

func TestTextureBind(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	textures, err := NewTextureManager(device)
	require.NoError(t, err)
	defer textures.Destroy()

	texture, err := textures.Load("checker", checkerboard(2, 2))
	require.NoError(t, err)

	buffers, err := device.Driver().AllocateCommandBuffers(device.CommandPool(), 1)
	require.NoError(t, err)
	defer device.Driver().FreeCommandBuffers(buffers...)
	require.NoError(t, device.Driver().BeginCommandBuffer(buffers[0], 0))

	texture.Bind(buffers[0], 7)
	require.NoError(t, device.Driver().EndCommandBuffer(buffers[0]))

	commands := fake.Recorded(buffers[0])
	require.Len(t, commands, 1)
	args := commands[0].Args.(gputest.BindDescriptorSetsArgs)
	assert.Equal(t, TextureSet, args.FirstSet)
	assert.EqualValues(t, 7, args.Layout)
	assert.Equal(t, texture.DescriptorSet(), args.Sets[0])
}
