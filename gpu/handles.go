// Package gpu is the narrow driver surface the renderer is written against.
//
// Handles are opaque integers owned by the Driver that issued them; the zero
// value of every handle type means "no object". Pure-data create infos reuse the
// vkngwrapper core1_0 and khr_surface types, infos that reference objects are
// declared here in terms of gpu handles.
package gpu

type PhysicalDevice uint64

type Queue uint64

type Semaphore uint64

type Fence uint64

type CommandPool uint64

type CommandBuffer uint64

type Buffer uint64

type DeviceMemory uint64

type Image uint64

type ImageView uint64

type Sampler uint64

type RenderPass uint64

type Framebuffer uint64

type ShaderModule uint64

type DescriptorSetLayout uint64

type DescriptorPool uint64

type DescriptorSet uint64

type PipelineLayout uint64

type Pipeline uint64

type Swapchain uint64

// WholeSize selects the remainder of a buffer or allocation from the given offset.
const WholeSize = -1

// ExtentUndefined is the surface's current extent width when the window
// lets the swapchain pick its own size.
const ExtentUndefined = -1
