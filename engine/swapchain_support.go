package engine

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/playground/gpu"
)

// chooseSurfaceFormat prefers 8-bit BGRA sRGB and falls back to whatever the
// surface lists first. availableFormats must not be empty.
func chooseSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

// choosePresentMode prefers mailbox; FIFO is the only mode every surface has.
func choosePresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

func chooseExtent(capabilities *khr_surface.SurfaceCapabilities, windowExtent core1_0.Extent2D) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != gpu.ExtentUndefined {
		return capabilities.CurrentExtent
	}

	width := windowExtent.Width
	height := windowExtent.Height

	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

// chooseImageCount asks for one image more than the minimum so acquisition
// rarely waits on the presentation engine. A MaxImageCount of zero means no limit.
func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}
