// Package window is the SDL2 window the renderer presents to. It tracks
// resizes and keyboard state from the SDL event queue.
package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
	"github.com/vkngwrapper/playground/input"
)

type Window struct {
	window *sdl.Window
	title  string

	resized     bool
	shouldClose bool
	keys        input.State
}

// New initializes SDL video and opens a resizable Vulkan window. It must be
// called from the thread that runs the event loop.
func New(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "init sdl")
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return &Window{window: window, title: title}, nil
}

func (w *Window) Title() string {
	return w.title
}

// Extent is the drawable size in pixels, which differs from the window size
// on high-DPI displays.
func (w *Window) Extent() core1_0.Extent2D {
	width, height := w.window.VulkanGetDrawableSize()
	return core1_0.Extent2D{Width: int(width), Height: int(height)}
}

func (w *Window) WasResized() bool {
	return w.resized
}

func (w *Window) ResetResizedFlag() {
	w.resized = false
}

func (w *Window) ShouldClose() bool {
	return w.shouldClose
}

func (w *Window) IsKeyPressed(key input.Key) bool {
	return w.keys.IsKeyPressed(key)
}

// PollEvents drains the event queue without blocking.
func (w *Window) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handleEvent(event)
	}
}

// WaitEvents blocks until at least one event arrives, then drains the queue.
func (w *Window) WaitEvents() {
	event := sdl.WaitEvent()
	if event != nil {
		w.handleEvent(event)
	}
	w.PollEvents()
}

func (w *Window) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		w.shouldClose = true
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			w.resized = true
		case sdl.WINDOWEVENT_FOCUS_LOST:
			w.keys.Reset()
		}
	case *sdl.KeyboardEvent:
		key := keyForScancode(e.Keysym.Scancode)
		if e.Type == sdl.KEYDOWN {
			w.keys.Press(key)
			if key == input.KeyEscape {
				w.shouldClose = true
			}
		} else if e.Type == sdl.KEYUP {
			w.keys.Release(key)
		}
	}
}

// RequiredInstanceExtensions lists the instance extensions SDL needs to
// create a surface for this window.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// ProcAddr is the Vulkan loader entry point SDL resolved.
func (w *Window) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *Window) CreateSurface(instance core1_0.Instance, surfaceExtension khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	surface, err := vkng_sdl2.CreateSurface(instance, surfaceExtension, w.window)
	return surface, errors.Wrap(err, "create window surface")
}

func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}
