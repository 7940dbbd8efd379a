package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var (
	ErrNoSuitableAdapter           = errors.New("failed to find a suitable GPU")
	ErrNoSuitableMemoryType        = errors.New("failed to find a suitable memory type")
	ErrBufferCreationFailed        = errors.New("failed to create buffer")
	ErrMemoryAllocationFailed      = errors.New("failed to allocate memory")
	ErrShaderModuleLoad            = errors.New("failed to load shader module")
	ErrPipelineCreation            = errors.New("failed to create graphics pipeline")
	ErrUnsupportedLayoutTransition = errors.New("unsupported layout transition")
)

// Result classifies the outcome of image acquisition and presentation.
type Result int

const (
	Success Result = iota
	// Suboptimal images are still usable but the swapchain should be rebuilt.
	Suboptimal
	// OutOfDate images must not be used.
	OutOfDate
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Suboptimal:
		return "suboptimal"
	case OutOfDate:
		return "out of date"
	}
	return "unknown"
}

func classifyResult(res common.VkResult, err error) (Result, error) {
	switch {
	case res == khr_swapchain.VKErrorOutOfDate:
		return OutOfDate, nil
	case err != nil:
		return Success, err
	case res == khr_swapchain.VKSuboptimal:
		return Suboptimal, nil
	}
	return Success, nil
}
