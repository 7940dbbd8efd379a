package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
	"github.com/vkngwrapper/playground/gpu/gputest"
)

func TestRatePhysicalDevice(t *testing.T) {
	noAnisotropy := gputest.DiscreteGPU("no anisotropy")
	noAnisotropy.Features.SamplerAnisotropy = false

	noSwapchain := gputest.DiscreteGPU("no swapchain")
	noSwapchain.Extensions = nil

	noPresent := gputest.DiscreteGPU("no present")
	noPresent.PresentFamilies = nil

	noFormats := gputest.DiscreteGPU("no formats")
	noFormats.Formats = nil

	noPresentModes := gputest.DiscreteGPU("no present modes")
	noPresentModes.PresentModes = nil

	virtual := gputest.DiscreteGPU("virtual")
	virtual.Type = core1_0.PhysicalDeviceTypeVirtualGPU

	testCases := []struct {
		name  string
		spec  gputest.PhysicalDeviceSpec
		score int
	}{
		{name: "discrete", spec: gputest.DiscreteGPU("discrete"), score: 1000},
		{name: "integrated", spec: gputest.IntegratedGPU("integrated"), score: 100},
		{name: "other type", spec: virtual, score: 0},
		{name: "missing anisotropy", spec: noAnisotropy, score: -1},
		{name: "missing swapchain extension", spec: noSwapchain, score: -1},
		{name: "missing present queue", spec: noPresent, score: -1},
		{name: "missing formats", spec: noFormats, score: -1},
		{name: "missing present modes", spec: noPresentModes, score: -1},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			instance := gputest.NewInstance(testCase.spec)
			assert.Equal(t, testCase.score, ratePhysicalDevice(instance, gpu.PhysicalDevice(1)))
		})
	}
}

func TestNewDevicePrefersDiscrete(t *testing.T) {
	device, _, fake := newTestDevice(t, gputest.IntegratedGPU("integrated"), gputest.DiscreteGPU("discrete"))
	defer assertClean(t, device, fake)

	assert.Equal(t, "discrete", device.Properties().Name)
	assert.Equal(t, gpu.PhysicalDevice(2), device.PhysicalDevice())
}

func TestNewDeviceSkipsUnsuitableDiscrete(t *testing.T) {
	broken := gputest.DiscreteGPU("broken")
	broken.Features.SamplerAnisotropy = false

	device, _, fake := newTestDevice(t, broken, gputest.IntegratedGPU("integrated"))
	defer assertClean(t, device, fake)

	assert.Equal(t, "integrated", device.Properties().Name)
}

func TestNewDeviceNoSuitableAdapter(t *testing.T) {
	broken := gputest.DiscreteGPU("broken")
	broken.Extensions = nil
	virtual := gputest.DiscreteGPU("virtual")
	virtual.Type = core1_0.PhysicalDeviceTypeVirtualGPU

	for name, instance := range map[string]*gputest.Instance{
		"none":       gputest.NewInstance(),
		"unsuitable": gputest.NewInstance(broken),
		"zero score": gputest.NewInstance(virtual),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewDevice(instance, DeviceOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoSuitableAdapter))
			assert.Nil(t, instance.Device())
		})
	}
}

func TestNewDeviceQueues(t *testing.T) {
	spec := gputest.DiscreteGPU("split")
	spec.PresentFamilies = []int{1}

	device, _, fake := newTestDevice(t, spec)
	defer assertClean(t, device, fake)

	families := device.QueueFamilies()
	require.True(t, families.IsComplete())
	assert.Equal(t, 0, *families.GraphicsFamily)
	assert.Equal(t, 1, *families.PresentFamily)
	assert.NotEqual(t, device.GraphicsQueue(), device.PresentQueue())

	require.Len(t, fake.CreateInfo.QueueCreateInfos, 2)
	assert.True(t, fake.CreateInfo.EnabledFeatures.SamplerAnisotropy)
	assert.Contains(t, fake.CreateInfo.EnabledExtensionNames, deviceExtensions[0])
}

func TestNewDeviceSharedQueueFamily(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	require.Len(t, fake.CreateInfo.QueueCreateInfos, 1)
	assert.Equal(t, device.GraphicsQueue(), device.PresentQueue())
	assert.NotZero(t, fake.CommandPoolInfo(device.CommandPool()).Flags&core1_0.CommandPoolCreateResetBuffer)
	assert.Equal(t, DefaultDescriptorPoolSizes().MaxSets, fake.DescriptorPoolInfo(device.DescriptorPool()).MaxSets)
}

func TestQueryMemoryType(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	hostVisible := core1_0.MemoryPropertyHostVisible

	index, err := device.QueryMemoryType(0b111, core1_0.MemoryPropertyDeviceLocal)
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	index, err = device.QueryMemoryType(0b111, hostVisible)
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	index, err = device.QueryMemoryType(0b100, hostVisible)
	require.NoError(t, err)
	assert.Equal(t, 2, index)

	index, err = device.QueryMemoryType(0b111, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	_, err = device.QueryMemoryType(0b001, hostVisible)
	assert.True(t, errors.Is(err, ErrNoSuitableMemoryType))

	_, err = device.QueryMemoryType(0b111, core1_0.MemoryPropertyLazilyAllocated)
	assert.True(t, errors.Is(err, ErrNoSuitableMemoryType))
}

func TestExecuteOneShot(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	var recorded gpu.CommandBuffer
	err := device.ExecuteOneShot(func(commandBuffer gpu.CommandBuffer) error {
		recorded = commandBuffer
		return nil
	})
	require.NoError(t, err)

	assert.NotZero(t, recorded)
	assert.Equal(t, 1, fake.Submissions())
	assert.Zero(t, fake.Outstanding())
	assert.Zero(t, fake.LiveCount(gputest.KindCommandBuffer))
}

func TestExecuteOneShotRecordError(t *testing.T) {
	device, _, fake := newTestDevice(t)
	defer assertClean(t, device, fake)

	recordErr := errors.New("record failed")
	err := device.ExecuteOneShot(func(gpu.CommandBuffer) error {
		return recordErr
	})
	assert.True(t, errors.Is(err, recordErr))
	assert.Zero(t, fake.Submissions())
	assert.Zero(t, fake.LiveCount(gputest.KindCommandBuffer))
}

func TestRateAdapters(t *testing.T) {
	broken := gputest.DiscreteGPU("broken")
	broken.PresentFamilies = nil
	instance := gputest.NewInstance(gputest.IntegratedGPU("integrated"), broken, gputest.DiscreteGPU("discrete"))

	ratings, err := RateAdapters(instance)
	require.NoError(t, err)
	require.Len(t, ratings, 3)

	assert.Equal(t, "integrated", ratings[0].Properties.Name)
	assert.Equal(t, 100, ratings[0].Score)
	assert.False(t, ratings[1].Suitable())
	assert.Equal(t, gpu.PhysicalDevice(3), ratings[2].PhysicalDevice)
	assert.True(t, ratings[2].Suitable())
}
