package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/playground/gpu"
	"golang.org/x/exp/slog"
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

type SwapchainSupportDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// DescriptorPoolSizes bounds the descriptor pool every Device owns.
type DescriptorPoolSizes struct {
	MaxSets               int
	UniformBuffers        int
	CombinedImageSamplers int
}

// MaxTextures is the number of texture descriptor sets the default pool holds.
const MaxTextures = 16

// DefaultDescriptorPoolSizes fits one global uniform set per frame slot and
// one sampler set per texture.
func DefaultDescriptorPoolSizes() DescriptorPoolSizes {
	return DescriptorPoolSizes{
		MaxSets:               MaxFramesInFlight + MaxTextures,
		UniformBuffers:        MaxFramesInFlight,
		CombinedImageSamplers: MaxTextures,
	}
}

type DeviceOptions struct {
	Logger          *slog.Logger
	DescriptorPool  DescriptorPoolSizes
	EnabledFeatures core1_0.PhysicalDeviceFeatures
}

// Device owns the logical device, its queues and the pools shared by every
// other component. It lives for the whole process.
type Device struct {
	instance gpu.Instance
	driver   gpu.Device
	logger   *slog.Logger

	physicalDevice gpu.PhysicalDevice
	properties     *gpu.PhysicalDeviceProperties
	memoryTypes    []gpu.MemoryType
	queueFamilies  QueueFamilyIndices

	graphicsQueue  gpu.Queue
	presentQueue   gpu.Queue
	commandPool    gpu.CommandPool
	descriptorPool gpu.DescriptorPool
}

func NewDevice(instance gpu.Instance, options DeviceOptions) (*Device, error) {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.DescriptorPool.MaxSets == 0 {
		options.DescriptorPool = DefaultDescriptorPoolSizes()
	}

	device := &Device{instance: instance, logger: options.Logger}

	err := device.pickPhysicalDevice()
	if err != nil {
		return nil, err
	}

	err = device.createLogicalDevice(options.EnabledFeatures)
	if err != nil {
		return nil, err
	}

	err = device.createCommandPool()
	if err != nil {
		device.driver.Destroy()
		return nil, err
	}

	err = device.createDescriptorPool(options.DescriptorPool)
	if err != nil {
		device.driver.DestroyCommandPool(device.commandPool)
		device.driver.Destroy()
		return nil, err
	}

	return device, nil
}

func (d *Device) pickPhysicalDevice() error {
	ratings, err := RateAdapters(d.instance)
	if err != nil {
		return err
	}

	bestScore := 0
	for _, rating := range ratings {
		d.logger.Debug("rated physical device", "name", rating.Properties.Name, "type", rating.Properties.Type, "score", rating.Score)

		if rating.Score > bestScore {
			bestScore = rating.Score
			d.physicalDevice = rating.PhysicalDevice
			d.properties = rating.Properties
		}
	}

	if bestScore <= 0 {
		return errors.WithDetailf(ErrNoSuitableAdapter, "%d physical devices considered", len(ratings))
	}

	d.queueFamilies, err = findQueueFamilies(d.instance, d.physicalDevice)
	if err != nil {
		return err
	}
	d.memoryTypes = d.instance.GetPhysicalDeviceMemoryTypes(d.physicalDevice)

	d.logger.Info("selected physical device",
		"name", d.properties.Name,
		"type", d.properties.Type,
		"score", bestScore,
		"pipelineCacheUUID", d.properties.PipelineCacheUUID.String(),
	)
	return nil
}

func (d *Device) createLogicalDevice(features core1_0.PhysicalDeviceFeatures) error {
	uniqueQueueFamilies := []int{*d.queueFamilies.GraphicsFamily}
	if uniqueQueueFamilies[0] != *d.queueFamilies.PresentFamily {
		uniqueQueueFamilies = append(uniqueQueueFamilies, *d.queueFamilies.PresentFamily)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range uniqueQueueFamilies {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	// Portability implementations (MoltenVK) must enable the subset extension when they advertise it.
	extensions, err := d.instance.EnumerateDeviceExtensionNames(d.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "enumerate device extensions")
	}
	for _, extension := range extensions {
		if extension == khr_portability_subset.ExtensionName {
			extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
		}
	}

	features.SamplerAnisotropy = true
	d.driver, err = d.instance.CreateDevice(d.physicalDevice, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueFamilyOptions,
		EnabledFeatures:       &features,
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}

	d.graphicsQueue = d.driver.GetQueue(*d.queueFamilies.GraphicsFamily, 0)
	d.presentQueue = d.driver.GetQueue(*d.queueFamilies.PresentFamily, 0)
	return nil
}

func (d *Device) createCommandPool() error {
	var err error
	d.commandPool, err = d.driver.CreateCommandPool(core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: *d.queueFamilies.GraphicsFamily,
		Flags:            core1_0.CommandPoolCreateTransient | core1_0.CommandPoolCreateResetBuffer,
	})
	return errors.Wrap(err, "create command pool")
}

func (d *Device) createDescriptorPool(sizes DescriptorPoolSizes) error {
	var err error
	d.descriptorPool, err = d.driver.CreateDescriptorPool(core1_0.DescriptorPoolCreateInfo{
		MaxSets: sizes.MaxSets,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: sizes.UniformBuffers,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: sizes.CombinedImageSamplers,
			},
		},
	})
	return errors.Wrap(err, "create descriptor pool")
}

func (d *Device) Driver() gpu.Device {
	return d.driver
}

func (d *Device) Logger() *slog.Logger {
	return d.logger
}

func (d *Device) PhysicalDevice() gpu.PhysicalDevice {
	return d.physicalDevice
}

func (d *Device) Properties() *gpu.PhysicalDeviceProperties {
	return d.properties
}

func (d *Device) QueueFamilies() QueueFamilyIndices {
	return d.queueFamilies
}

func (d *Device) GraphicsQueue() gpu.Queue {
	return d.graphicsQueue
}

func (d *Device) PresentQueue() gpu.Queue {
	return d.presentQueue
}

func (d *Device) CommandPool() gpu.CommandPool {
	return d.commandPool
}

func (d *Device) DescriptorPool() gpu.DescriptorPool {
	return d.descriptorPool
}

// SwapchainSupport re-queries the surface; the answer changes whenever the
// window does.
func (d *Device) SwapchainSupport() (SwapchainSupportDetails, error) {
	return querySwapchainSupport(d.instance, d.physicalDevice)
}

// QueryMemoryType returns the first memory type allowed by typeFilter whose
// flags include every bit of properties.
func (d *Device) QueryMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range d.memoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.WithDetailf(ErrNoSuitableMemoryType, "filter %#b, properties %s", typeFilter, properties)
}

// ExecuteOneShot records a primary command buffer with record, submits it to
// the graphics queue and blocks until the queue is idle.
func (d *Device) ExecuteOneShot(record func(commandBuffer gpu.CommandBuffer) error) error {
	buffers, err := d.driver.AllocateCommandBuffers(d.commandPool, 1)
	if err != nil {
		return errors.Wrap(err, "allocate one-shot command buffer")
	}
	commandBuffer := buffers[0]
	defer d.driver.FreeCommandBuffers(commandBuffer)

	err = d.driver.BeginCommandBuffer(commandBuffer, core1_0.CommandBufferUsageOneTimeSubmit)
	if err != nil {
		return errors.Wrap(err, "begin one-shot command buffer")
	}

	err = record(commandBuffer)
	if err != nil {
		return err
	}

	err = d.driver.EndCommandBuffer(commandBuffer)
	if err != nil {
		return errors.Wrap(err, "end one-shot command buffer")
	}

	err = d.driver.QueueSubmit(d.graphicsQueue, 0, gpu.SubmitInfo{
		CommandBuffers: []gpu.CommandBuffer{commandBuffer},
	})
	if err != nil {
		return errors.Wrap(err, "submit one-shot command buffer")
	}

	return errors.Wrap(d.driver.QueueWaitIdle(d.graphicsQueue), "wait for one-shot command buffer")
}

func (d *Device) WaitIdle() error {
	return errors.Wrap(d.driver.DeviceWaitIdle(), "wait for device idle")
}

// Destroy releases the pools and the logical device. Every object created
// from the device must already be destroyed.
func (d *Device) Destroy() {
	d.driver.DestroyDescriptorPool(d.descriptorPool)
	d.driver.DestroyCommandPool(d.commandPool)
	d.driver.Destroy()
}
