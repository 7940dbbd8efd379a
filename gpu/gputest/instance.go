// Package gputest provides an in-memory gpu.Instance whose devices simulate
// queue execution deterministically. Submitted work completes only when the
// caller waits for it, so fence and semaphore misuse shows up as errors
// instead of races.
package gputest

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/playground/gpu"
)

// PhysicalDeviceSpec describes one simulated adapter.
type PhysicalDeviceSpec struct {
	Name     string
	Type     core1_0.PhysicalDeviceType
	Features core1_0.PhysicalDeviceFeatures

	// NonCoherentAtomSize bounds flushed ranges; zero means 1.
	NonCoherentAtomSize int

	QueueFamilies   []gpu.QueueFamilyProperties
	PresentFamilies []int
	Extensions      []string
	MemoryTypes     []gpu.MemoryType

	Capabilities khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// DiscreteGPU returns an adapter that satisfies every renderer requirement.
func DiscreteGPU(name string) PhysicalDeviceSpec {
	return PhysicalDeviceSpec{
		Name:     name,
		Type:     core1_0.PhysicalDeviceTypeDiscreteGPU,
		Features: core1_0.PhysicalDeviceFeatures{SamplerAnisotropy: true},

		NonCoherentAtomSize: 64,

		QueueFamilies: []gpu.QueueFamilyProperties{
			{QueueFlags: core1_0.QueueGraphics | core1_0.QueueTransfer, QueueCount: 4},
			{QueueFlags: core1_0.QueueTransfer, QueueCount: 2},
		},
		PresentFamilies: []int{0},
		Extensions:      []string{khr_swapchain.ExtensionName},
		MemoryTypes: []gpu.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal, HeapIndex: 0},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent, HeapIndex: 1},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCached, HeapIndex: 1},
		},
		Capabilities: khr_surface.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  core1_0.Extent2D{Width: 800, Height: 600},
			MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
		},
		Formats: []khr_surface.SurfaceFormat{
			{Format: core1_0.FormatR8G8B8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		},
		PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox},
	}
}

// IntegratedGPU is DiscreteGPU with an integrated device type.
func IntegratedGPU(name string) PhysicalDeviceSpec {
	spec := DiscreteGPU(name)
	spec.Type = core1_0.PhysicalDeviceTypeIntegratedGPU
	return spec
}

type Instance struct {
	physicalDevices []*PhysicalDeviceSpec
	devices         []*Device
	destroyed       bool
}

var _ gpu.Instance = (*Instance)(nil)

func NewInstance(physicalDevices ...PhysicalDeviceSpec) *Instance {
	instance := &Instance{}
	for i := range physicalDevices {
		spec := physicalDevices[i]
		instance.physicalDevices = append(instance.physicalDevices, &spec)
	}
	return instance
}

// Device returns the most recently created logical device.
func (i *Instance) Device() *Device {
	if len(i.devices) == 0 {
		return nil
	}
	return i.devices[len(i.devices)-1]
}

func (i *Instance) Destroyed() bool {
	return i.destroyed
}

// SetSurfaceExtent changes the current extent reported for every adapter, as a
// window resize would.
func (i *Instance) SetSurfaceExtent(width, height int) {
	for _, spec := range i.physicalDevices {
		spec.Capabilities.CurrentExtent = core1_0.Extent2D{Width: width, Height: height}
	}
}

func (i *Instance) spec(physicalDevice gpu.PhysicalDevice) (*PhysicalDeviceSpec, error) {
	index := int(physicalDevice) - 1
	if index < 0 || index >= len(i.physicalDevices) {
		return nil, errors.Newf("unknown physical device %d", physicalDevice)
	}
	return i.physicalDevices[index], nil
}

func (i *Instance) mustSpec(physicalDevice gpu.PhysicalDevice) *PhysicalDeviceSpec {
	spec, err := i.spec(physicalDevice)
	if err != nil {
		panic(err)
	}
	return spec
}

func (i *Instance) EnumeratePhysicalDevices() ([]gpu.PhysicalDevice, error) {
	var physicalDevices []gpu.PhysicalDevice
	for index := range i.physicalDevices {
		physicalDevices = append(physicalDevices, gpu.PhysicalDevice(index+1))
	}
	return physicalDevices, nil
}

func (i *Instance) GetPhysicalDeviceProperties(physicalDevice gpu.PhysicalDevice) (*gpu.PhysicalDeviceProperties, error) {
	spec, err := i.spec(physicalDevice)
	if err != nil {
		return nil, err
	}
	return &gpu.PhysicalDeviceProperties{
		Name:                 spec.Name,
		Type:                 spec.Type,
		MaxSamplerAnisotropy: 16,
		NonCoherentAtomSize:  spec.NonCoherentAtomSize,
	}, nil
}

func (i *Instance) GetPhysicalDeviceFeatures(physicalDevice gpu.PhysicalDevice) *core1_0.PhysicalDeviceFeatures {
	features := i.mustSpec(physicalDevice).Features
	return &features
}

func (i *Instance) GetPhysicalDeviceQueueFamilyProperties(physicalDevice gpu.PhysicalDevice) []gpu.QueueFamilyProperties {
	return append([]gpu.QueueFamilyProperties(nil), i.mustSpec(physicalDevice).QueueFamilies...)
}

func (i *Instance) GetPhysicalDeviceMemoryTypes(physicalDevice gpu.PhysicalDevice) []gpu.MemoryType {
	return append([]gpu.MemoryType(nil), i.mustSpec(physicalDevice).MemoryTypes...)
}

func (i *Instance) EnumerateDeviceExtensionNames(physicalDevice gpu.PhysicalDevice) ([]string, error) {
	spec, err := i.spec(physicalDevice)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), spec.Extensions...), nil
}

func (i *Instance) GetPhysicalDeviceSurfaceSupport(physicalDevice gpu.PhysicalDevice, queueFamilyIndex int) (bool, error) {
	spec, err := i.spec(physicalDevice)
	if err != nil {
		return false, err
	}
	for _, family := range spec.PresentFamilies {
		if family == queueFamilyIndex {
			return true, nil
		}
	}
	return false, nil
}

func (i *Instance) GetPhysicalDeviceSurfaceCapabilities(physicalDevice gpu.PhysicalDevice) (*khr_surface.SurfaceCapabilities, error) {
	spec, err := i.spec(physicalDevice)
	if err != nil {
		return nil, err
	}
	capabilities := spec.Capabilities
	return &capabilities, nil
}

func (i *Instance) GetPhysicalDeviceSurfaceFormats(physicalDevice gpu.PhysicalDevice) ([]khr_surface.SurfaceFormat, error) {
	spec, err := i.spec(physicalDevice)
	if err != nil {
		return nil, err
	}
	return append([]khr_surface.SurfaceFormat(nil), spec.Formats...), nil
}

func (i *Instance) GetPhysicalDeviceSurfacePresentModes(physicalDevice gpu.PhysicalDevice) ([]khr_surface.PresentMode, error) {
	spec, err := i.spec(physicalDevice)
	if err != nil {
		return nil, err
	}
	return append([]khr_surface.PresentMode(nil), spec.PresentModes...), nil
}

func (i *Instance) CreateDevice(physicalDevice gpu.PhysicalDevice, info core1_0.DeviceCreateInfo) (gpu.Device, error) {
	spec, err := i.spec(physicalDevice)
	if err != nil {
		return nil, err
	}

	available := make(map[string]bool)
	for _, extension := range spec.Extensions {
		available[extension] = true
	}
	for _, extension := range info.EnabledExtensionNames {
		if !available[extension] {
			return nil, errors.Newf("extension %s not present on %s", extension, spec.Name)
		}
	}
	for _, queueInfo := range info.QueueCreateInfos {
		if queueInfo.QueueFamilyIndex < 0 || queueInfo.QueueFamilyIndex >= len(spec.QueueFamilies) {
			return nil, errors.Newf("queue family %d does not exist", queueInfo.QueueFamilyIndex)
		}
	}

	device := newDevice(i, spec, info)
	i.devices = append(i.devices, device)
	return device, nil
}

func (i *Instance) Destroy() {
	i.destroyed = true
}

// SetSurfaceFormats replaces the surface formats every adapter reports.
func (i *Instance) SetSurfaceFormats(formats ...khr_surface.SurfaceFormat) {
	for _, spec := range i.physicalDevices {
		spec.Formats = append([]khr_surface.SurfaceFormat(nil), formats...)
	}
}
