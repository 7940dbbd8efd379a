package gputest

import (
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Window is a platform window whose size is set by the test. WaitEvents
// applies the next queued event, so a minimized window can be restored or
// closed from inside a recreation loop.
type Window struct {
	extent  core1_0.Extent2D
	resized bool
	closed  bool
	pending []func()

	WaitCount int
}

func NewWindow(width, height int) *Window {
	return &Window{extent: core1_0.Extent2D{Width: width, Height: height}}
}

func (w *Window) Extent() core1_0.Extent2D {
	return w.extent
}

func (w *Window) WasResized() bool {
	return w.resized
}

func (w *Window) ResetResizedFlag() {
	w.resized = false
}

func (w *Window) ShouldClose() bool {
	return w.closed
}

func (w *Window) WaitEvents() {
	w.WaitCount++
	if len(w.pending) == 0 {
		return
	}
	event := w.pending[0]
	w.pending = w.pending[1:]
	event()
}

// Resize changes the extent immediately and raises the resized flag.
func (w *Window) Resize(width, height int) {
	w.extent = core1_0.Extent2D{Width: width, Height: height}
	w.resized = true
}

// QueueResize defers a resize until the next WaitEvents.
func (w *Window) QueueResize(width, height int) {
	w.pending = append(w.pending, func() { w.Resize(width, height) })
}

// Close asks the window to close immediately.
func (w *Window) Close() {
	w.closed = true
}

// QueueClose defers a close request until the next WaitEvents.
func (w *Window) QueueClose() {
	w.pending = append(w.pending, w.Close)
}
