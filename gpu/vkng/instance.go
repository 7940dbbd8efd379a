// Package vkng implements the gpu driver surface on vkngwrapper.
package vkng

import (
	"sort"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/playground/gpu"
	"golang.org/x/exp/slog"
)

// SurfaceSource is the window the instance presents to.
type SurfaceSource interface {
	RequiredInstanceExtensions() []string
	ProcAddr() unsafe.Pointer
	CreateSurface(instance core1_0.Instance, surfaceExtension khr_surface.ExtensionDriver) (khr_surface.Surface, error)
}

type Options struct {
	ApplicationName string
	// Validation enables the Khronos validation layer and routes its
	// messages to Logger.
	Validation bool
	Logger     *slog.Logger
}

type Instance struct {
	logger *slog.Logger

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	physicalDevices []core1_0.PhysicalDevice
}

var _ gpu.Instance = (*Instance)(nil)

func NewInstance(source SurfaceSource, options Options) (*Instance, error) {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	instance := &Instance{logger: options.Logger}

	var err error
	instance.globalDriver, err = core.CreateDriverFromProcAddr(source.ProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "load vulkan")
	}

	err = instance.createInstance(source, options)
	if err != nil {
		return nil, err
	}

	if options.Validation {
		instance.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(instance.instanceDriver)
		instance.debugMessenger, _, err = instance.debugDriver.CreateDebugUtilsMessenger(nil, instance.debugMessengerOptions())
		if err != nil {
			instance.Destroy()
			return nil, errors.Wrap(err, "create debug messenger")
		}
	}

	instance.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(instance.instanceDriver)
	instance.surface, err = source.CreateSurface(instance.instanceDriver.Instance(), instance.surfaceExtension)
	if err != nil {
		instance.Destroy()
		return nil, err
	}

	return instance, nil
}

func (i *Instance) createInstance(source SurfaceSource, options Options) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    options.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "Playground",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := i.globalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "enumerate instance extensions")
	}

	for _, ext := range source.RequiredInstanceExtensions() {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Newf("window needs missing instance extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if options.Validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if options.Validation {
		layers, _, err := i.globalDriver.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "enumerate instance layers")
		}

		for _, layer := range validationLayers {
			_, hasValidation := layers[layer]
			if !hasValidation {
				return errors.WithHintf(errors.Newf("validation layer %s not available", layer),
					"install the LunarG Vulkan SDK or run with --no-validation")
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		// Also report problems in instance creation itself.
		instanceOptions.Next = i.debugMessengerOptions()
	}

	i.instanceDriver, _, err = i.globalDriver.CreateInstance(nil, instanceOptions)
	return errors.Wrap(err, "create instance")
}

func (i *Instance) physicalDevice(handle gpu.PhysicalDevice) core1_0.PhysicalDevice {
	index := int(handle) - 1
	if index < 0 || index >= len(i.physicalDevices) {
		return core1_0.PhysicalDevice{}
	}
	return i.physicalDevices[index]
}

func (i *Instance) EnumeratePhysicalDevices() ([]gpu.PhysicalDevice, error) {
	physicalDevices, _, err := i.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, err
	}
	i.physicalDevices = physicalDevices

	handles := make([]gpu.PhysicalDevice, len(physicalDevices))
	for index := range physicalDevices {
		handles[index] = gpu.PhysicalDevice(index + 1)
	}
	return handles, nil
}

func (i *Instance) GetPhysicalDeviceProperties(physicalDevice gpu.PhysicalDevice) (*gpu.PhysicalDeviceProperties, error) {
	properties, err := i.instanceDriver.GetPhysicalDeviceProperties(i.physicalDevice(physicalDevice))
	if err != nil {
		return nil, err
	}

	return &gpu.PhysicalDeviceProperties{
		Name:                 properties.DeviceName,
		Type:                 properties.DeviceType,
		PipelineCacheUUID:    properties.PipelineCacheUUID,
		MaxSamplerAnisotropy: properties.Limits.MaxSamplerAnisotropy,
		NonCoherentAtomSize:  properties.Limits.NonCoherentAtomSize,
	}, nil
}

func (i *Instance) GetPhysicalDeviceFeatures(physicalDevice gpu.PhysicalDevice) *core1_0.PhysicalDeviceFeatures {
	return i.instanceDriver.GetPhysicalDeviceFeatures(i.physicalDevice(physicalDevice))
}

func (i *Instance) GetPhysicalDeviceQueueFamilyProperties(physicalDevice gpu.PhysicalDevice) []gpu.QueueFamilyProperties {
	var families []gpu.QueueFamilyProperties
	for _, queueFamily := range i.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(i.physicalDevice(physicalDevice)) {
		families = append(families, gpu.QueueFamilyProperties{
			QueueFlags: queueFamily.QueueFlags,
			QueueCount: queueFamily.QueueCount,
		})
	}
	return families
}

func (i *Instance) GetPhysicalDeviceMemoryTypes(physicalDevice gpu.PhysicalDevice) []gpu.MemoryType {
	memProperties := i.instanceDriver.GetPhysicalDeviceMemoryProperties(i.physicalDevice(physicalDevice))

	var memoryTypes []gpu.MemoryType
	for _, memoryType := range memProperties.MemoryTypes {
		memoryTypes = append(memoryTypes, gpu.MemoryType{
			PropertyFlags: memoryType.PropertyFlags,
			HeapIndex:     memoryType.HeapIndex,
		})
	}
	return memoryTypes
}

func (i *Instance) EnumerateDeviceExtensionNames(physicalDevice gpu.PhysicalDevice) ([]string, error) {
	extensions, _, err := i.instanceDriver.EnumerateDeviceExtensionProperties(i.physicalDevice(physicalDevice))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (i *Instance) GetPhysicalDeviceSurfaceSupport(physicalDevice gpu.PhysicalDevice, queueFamilyIndex int) (bool, error) {
	supported, _, err := i.surfaceExtension.GetPhysicalDeviceSurfaceSupport(i.surface, i.physicalDevice(physicalDevice), queueFamilyIndex)
	return supported, err
}

func (i *Instance) GetPhysicalDeviceSurfaceCapabilities(physicalDevice gpu.PhysicalDevice) (*khr_surface.SurfaceCapabilities, error) {
	capabilities, _, err := i.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(i.surface, i.physicalDevice(physicalDevice))
	return capabilities, err
}

func (i *Instance) GetPhysicalDeviceSurfaceFormats(physicalDevice gpu.PhysicalDevice) ([]khr_surface.SurfaceFormat, error) {
	formats, _, err := i.surfaceExtension.GetPhysicalDeviceSurfaceFormats(i.surface, i.physicalDevice(physicalDevice))
	return formats, err
}

func (i *Instance) GetPhysicalDeviceSurfacePresentModes(physicalDevice gpu.PhysicalDevice) ([]khr_surface.PresentMode, error) {
	presentModes, _, err := i.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(i.surface, i.physicalDevice(physicalDevice))
	return presentModes, err
}

func (i *Instance) CreateDevice(physicalDevice gpu.PhysicalDevice, info core1_0.DeviceCreateInfo) (gpu.Device, error) {
	deviceDriver, _, err := i.instanceDriver.CreateDevice(i.physicalDevice(physicalDevice), nil, info)
	if err != nil {
		return nil, err
	}
	return newDevice(deviceDriver, i.surface), nil
}

// Destroy releases the surface, the debug messenger and the instance. The
// device must already be destroyed.
func (i *Instance) Destroy() {
	if i.surface.Initialized() {
		i.surfaceExtension.DestroySurface(i.surface, nil)
		i.surface = khr_surface.Surface{}
	}

	if i.debugMessenger.Initialized() {
		i.debugDriver.DestroyDebugUtilsMessenger(i.debugMessenger, nil)
		i.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if i.instanceDriver != nil {
		i.instanceDriver.DestroyInstance(nil)
		i.instanceDriver = nil
	}
}
