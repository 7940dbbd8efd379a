package vkng

import (
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/playground/gpu"
)

func (d *Device) CreateSwapchain(info gpu.SwapchainCreateInfo) (gpu.Swapchain, error) {
	var oldSwapchain khr_swapchain.Swapchain
	if info.OldSwapchain != 0 {
		oldSwapchain = d.swapchains.get(uint64(info.OldSwapchain)).swapchain
	}

	swapchain, _, err := d.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: d.surface,

		MinImageCount:    info.MinImageCount,
		ImageFormat:      info.ImageFormat,
		ImageColorSpace:  info.ImageColorSpace,
		ImageExtent:      info.ImageExtent,
		ImageArrayLayers: 1,
		ImageUsage:       info.ImageUsage,

		ImageSharingMode:   info.ImageSharingMode,
		QueueFamilyIndices: info.QueueFamilyIndices,

		PreTransform:   info.PreTransform,
		CompositeAlpha: info.CompositeAlpha,
		PresentMode:    info.PresentMode,
		Clipped:        true,
		OldSwapchain:   oldSwapchain,
	})
	if err != nil {
		return 0, err
	}
	return gpu.Swapchain(d.swapchains.add(swapchainObject{swapchain: swapchain})), nil
}

// DestroySwapchain also forgets the swapchain's images.
func (d *Device) DestroySwapchain(swapchain gpu.Swapchain) {
	object, ok := d.swapchains.remove(uint64(swapchain))
	if !ok {
		return
	}

	for _, image := range object.images {
		d.images.remove(uint64(image))
	}
	d.swapchainExtension.DestroySwapchain(object.swapchain, nil)
}

// GetSwapchainImages returns the same handles on every call for a swapchain.
func (d *Device) GetSwapchainImages(swapchain gpu.Swapchain) ([]gpu.Image, error) {
	object, ok := d.swapchains.lookup(uint64(swapchain))
	if !ok {
		return nil, nil
	}
	if object.images != nil {
		return object.images, nil
	}

	images, _, err := d.swapchainExtension.GetSwapchainImages(object.swapchain)
	if err != nil {
		return nil, err
	}

	object.images = make([]gpu.Image, len(images))
	for i, image := range images {
		object.images[i] = gpu.Image(d.images.add(imageObject{image: image, owner: swapchain}))
	}
	d.swapchains.objects[uint64(swapchain)] = object
	return object.images, nil
}

func (d *Device) AcquireNextImage(swapchain gpu.Swapchain, semaphore gpu.Semaphore) (int, common.VkResult, error) {
	imageAvailable := d.semaphores.get(uint64(semaphore))
	return d.swapchainExtension.AcquireNextImage(d.swapchains.get(uint64(swapchain)).swapchain, common.NoTimeout, &imageAvailable, nil)
}

func (d *Device) QueuePresent(queue gpu.Queue, info gpu.PresentInfo) (common.VkResult, error) {
	return d.swapchainExtension.QueuePresent(d.queues.get(uint64(queue)), khr_swapchain.PresentInfo{
		WaitSemaphores: d.semaphoreList(info.WaitSemaphores),
		Swapchains:     []khr_swapchain.Swapchain{d.swapchains.get(uint64(info.Swapchain)).swapchain},
		ImageIndices:   []int{info.ImageIndex},
	})
}
