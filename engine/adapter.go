package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

const (
	scoreDiscrete   = 1000
	scoreIntegrated = 100
	scoreUnsuitable = -1
)

// AdapterRating is the suitability of one physical device for rendering to
// the instance's surface.
type AdapterRating struct {
	PhysicalDevice gpu.PhysicalDevice
	Properties     *gpu.PhysicalDeviceProperties
	Score          int
}

// Suitable reports whether the adapter can be selected at all.
func (r AdapterRating) Suitable() bool {
	return r.Score > 0
}

// RateAdapters scores every physical device of instance, in enumeration order.
func RateAdapters(instance gpu.Instance) ([]AdapterRating, error) {
	physicalDevices, err := instance.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	ratings := make([]AdapterRating, 0, len(physicalDevices))
	for _, physicalDevice := range physicalDevices {
		properties, err := instance.GetPhysicalDeviceProperties(physicalDevice)
		if err != nil {
			return nil, errors.Wrap(err, "query physical device properties")
		}

		ratings = append(ratings, AdapterRating{
			PhysicalDevice: physicalDevice,
			Properties:     properties,
			Score:          ratePhysicalDevice(instance, physicalDevice),
		})
	}
	return ratings, nil
}

// ratePhysicalDevice scores a physical device for rendering to the instance's
// surface. A negative score means the device can never be used.
func ratePhysicalDevice(instance gpu.Instance, physicalDevice gpu.PhysicalDevice) int {
	indices, err := findQueueFamilies(instance, physicalDevice)
	if err != nil || !indices.IsComplete() {
		return scoreUnsuitable
	}

	if !checkDeviceExtensionSupport(instance, physicalDevice) {
		return scoreUnsuitable
	}

	swapchainSupport, err := querySwapchainSupport(instance, physicalDevice)
	if err != nil || len(swapchainSupport.Formats) == 0 || len(swapchainSupport.PresentModes) == 0 {
		return scoreUnsuitable
	}

	features := instance.GetPhysicalDeviceFeatures(physicalDevice)
	if !features.SamplerAnisotropy {
		return scoreUnsuitable
	}

	properties, err := instance.GetPhysicalDeviceProperties(physicalDevice)
	if err != nil {
		return scoreUnsuitable
	}

	score := 0
	switch properties.Type {
	case core1_0.PhysicalDeviceTypeDiscreteGPU:
		score += scoreDiscrete
	case core1_0.PhysicalDeviceTypeIntegratedGPU:
		score += scoreIntegrated
	}
	return score
}

func checkDeviceExtensionSupport(instance gpu.Instance, physicalDevice gpu.PhysicalDevice) bool {
	extensions, err := instance.EnumerateDeviceExtensionNames(physicalDevice)
	if err != nil {
		return false
	}

	available := make(map[string]struct{}, len(extensions))
	for _, extension := range extensions {
		available[extension] = struct{}{}
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := available[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func findQueueFamilies(instance gpu.Instance, physicalDevice gpu.PhysicalDevice) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}
	queueFamilies := instance.GetPhysicalDeviceQueueFamilyProperties(physicalDevice)

	for queueFamilyIdx, queueFamily := range queueFamilies {
		if queueFamily.QueueCount == 0 {
			continue
		}

		if indices.GraphicsFamily == nil && (queueFamily.QueueFlags&core1_0.QueueGraphics) != 0 {
			indices.GraphicsFamily = new(int)
			*indices.GraphicsFamily = queueFamilyIdx
		}

		supported, err := instance.GetPhysicalDeviceSurfaceSupport(physicalDevice, queueFamilyIdx)
		if err != nil {
			return indices, err
		}

		if indices.PresentFamily == nil && supported {
			indices.PresentFamily = new(int)
			*indices.PresentFamily = queueFamilyIdx
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices, nil
}

func querySwapchainSupport(instance gpu.Instance, physicalDevice gpu.PhysicalDevice) (SwapchainSupportDetails, error) {
	var details SwapchainSupportDetails
	var err error

	details.Capabilities, err = instance.GetPhysicalDeviceSurfaceCapabilities(physicalDevice)
	if err != nil {
		return details, err
	}

	details.Formats, err = instance.GetPhysicalDeviceSurfaceFormats(physicalDevice)
	if err != nil {
		return details, err
	}

	details.PresentModes, err = instance.GetPhysicalDeviceSurfacePresentModes(physicalDevice)
	return details, err
}
