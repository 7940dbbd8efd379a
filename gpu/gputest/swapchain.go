package gputest

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/playground/gpu"
)

type swapchain struct {
	info     gpu.SwapchainCreateInfo
	images   []gpu.Image
	next     int
	acquired map[int]bool
	retired  bool
}

// Presentation is one successful QueuePresent.
type Presentation struct {
	Swapchain  gpu.Swapchain
	ImageIndex int
}

var errOutOfDate = errors.New("swapchain is out of date")

// ScriptAcquire queues results for upcoming AcquireNextImage calls. Calls past
// the end of the script succeed.
func (d *Device) ScriptAcquire(results ...common.VkResult) {
	d.acquireScript = append(d.acquireScript, results...)
}

// ScriptPresent queues results for upcoming QueuePresent calls.
func (d *Device) ScriptPresent(results ...common.VkResult) {
	d.presentScript = append(d.presentScript, results...)
}

func pop(results *[]common.VkResult) common.VkResult {
	if len(*results) == 0 {
		return core1_0.VKSuccess
	}
	result := (*results)[0]
	*results = (*results)[1:]
	return result
}

func (d *Device) CreateSwapchain(info gpu.SwapchainCreateInfo) (gpu.Swapchain, error) {
	if err := d.injected("CreateSwapchain"); err != nil {
		return 0, err
	}
	caps := d.spec.Capabilities
	if info.ImageExtent.Width <= 0 || info.ImageExtent.Height <= 0 {
		return 0, errors.Newf("swapchain extent %dx%d is empty", info.ImageExtent.Width, info.ImageExtent.Height)
	}
	if info.ImageExtent.Width < caps.MinImageExtent.Width || info.ImageExtent.Width > caps.MaxImageExtent.Width ||
		info.ImageExtent.Height < caps.MinImageExtent.Height || info.ImageExtent.Height > caps.MaxImageExtent.Height {
		return 0, errors.Newf("swapchain extent %dx%d outside surface limits", info.ImageExtent.Width, info.ImageExtent.Height)
	}
	if info.MinImageCount < caps.MinImageCount || (caps.MaxImageCount > 0 && info.MinImageCount > caps.MaxImageCount) {
		return 0, errors.Newf("swapchain image count %d outside surface limits", info.MinImageCount)
	}
	if info.OldSwapchain != 0 {
		old, ok := d.swapchains[info.OldSwapchain]
		if !ok {
			return 0, errors.Newf("old swapchain %d is not alive", info.OldSwapchain)
		}
		old.retired = true
	}

	handle := gpu.Swapchain(d.create(KindSwapchain))
	sc := &swapchain{info: info, acquired: make(map[int]bool)}
	for i := 0; i < info.MinImageCount; i++ {
		d.nextHandle++
		img := gpu.Image(d.nextHandle)
		d.images[img] = &image{
			info: core1_0.ImageCreateInfo{
				Format: info.ImageFormat,
				Extent: core1_0.Extent3D{Width: info.ImageExtent.Width, Height: info.ImageExtent.Height, Depth: 1},
			},
			layout:    core1_0.ImageLayoutUndefined,
			swapchain: handle,
		}
		sc.images = append(sc.images, img)
	}
	d.swapchains[handle] = sc
	return handle, nil
}

func (d *Device) DestroySwapchain(handle gpu.Swapchain) {
	sc, ok := d.swapchains[handle]
	if !ok {
		d.violate("destroy of unknown swapchain %d", handle)
		return
	}
	for _, img := range sc.images {
		for view, info := range d.imageViews {
			if info.Image == img {
				d.violate("swapchain %d destroyed while image view %d is alive", handle, view)
			}
		}
		delete(d.images, img)
	}
	d.destroy(KindSwapchain, uint64(handle))
	delete(d.swapchains, handle)
}

// SwapchainInfo returns the create info of a live swapchain.
func (d *Device) SwapchainInfo(handle gpu.Swapchain) gpu.SwapchainCreateInfo {
	sc, ok := d.swapchains[handle]
	if !ok {
		return gpu.SwapchainCreateInfo{}
	}
	return sc.info
}

func (d *Device) GetSwapchainImages(handle gpu.Swapchain) ([]gpu.Image, error) {
	sc, ok := d.swapchains[handle]
	if !ok {
		return nil, errors.Newf("images of unknown swapchain %d", handle)
	}
	return append([]gpu.Image(nil), sc.images...), nil
}

func (d *Device) AcquireNextImage(handle gpu.Swapchain, semaphore gpu.Semaphore) (int, common.VkResult, error) {
	sc, ok := d.swapchains[handle]
	if !ok {
		return 0, core1_0.VKErrorDeviceLost, errors.Newf("acquire from unknown swapchain %d", handle)
	}
	if sc.retired {
		return 0, core1_0.VKErrorDeviceLost, errors.Newf("acquire from retired swapchain %d", handle)
	}
	signaled, ok := d.semaphores[semaphore]
	if !ok {
		return 0, core1_0.VKErrorDeviceLost, errors.Newf("acquire with unknown semaphore %d", semaphore)
	}
	if signaled {
		return 0, core1_0.VKErrorDeviceLost, errors.Newf("acquire with semaphore %d that is already signaled", semaphore)
	}

	result := pop(&d.acquireScript)
	if result == khr_swapchain.VKErrorOutOfDate {
		return 0, result, errOutOfDate
	}
	if result < 0 {
		return 0, result, errors.Newf("scripted acquire failure %s", result)
	}
	if sc.acquired[sc.next] {
		return 0, core1_0.VKErrorDeviceLost, errors.Newf("image %d of swapchain %d acquired twice", sc.next, handle)
	}

	index := sc.next
	sc.next = (sc.next + 1) % len(sc.images)
	sc.acquired[index] = true
	d.semaphores[semaphore] = true
	return index, result, nil
}

func (d *Device) QueuePresent(queue gpu.Queue, info gpu.PresentInfo) (common.VkResult, error) {
	if queue == 0 {
		return core1_0.VKErrorDeviceLost, errors.New("present on a null queue")
	}
	sc, ok := d.swapchains[info.Swapchain]
	if !ok {
		return core1_0.VKErrorDeviceLost, errors.Newf("present to unknown swapchain %d", info.Swapchain)
	}
	if !sc.acquired[info.ImageIndex] {
		return core1_0.VKErrorDeviceLost, errors.Newf("present of image %d that was not acquired", info.ImageIndex)
	}
	for _, semaphore := range info.WaitSemaphores {
		signaled, ok := d.semaphores[semaphore]
		if !ok || !signaled {
			return core1_0.VKErrorDeviceLost, errors.Newf("present waits on semaphore %d that has no pending signal", semaphore)
		}
	}
	for _, semaphore := range info.WaitSemaphores {
		d.semaphores[semaphore] = false
	}
	delete(sc.acquired, info.ImageIndex)

	result := pop(&d.presentScript)
	if result == khr_swapchain.VKErrorOutOfDate {
		return result, errOutOfDate
	}
	if result < 0 {
		return result, errors.Newf("scripted present failure %s", result)
	}
	d.presented = append(d.presented, Presentation{Swapchain: info.Swapchain, ImageIndex: info.ImageIndex})
	return result, nil
}

// Presented returns every image handed to the presentation engine.
func (d *Device) Presented() []Presentation {
	return append([]Presentation(nil), d.presented...)
}
