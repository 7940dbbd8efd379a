package engine

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

// noCopy makes go vet's copylocks check flag copies of the resource types
// that embed it. Every GPU handle has exactly one owner.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Buffer owns one GPU buffer, its backing allocation and an optional
// persistent host mapping.
type Buffer struct {
	_ noCopy

	device *Device
	driver gpu.Device

	buffer         gpu.Buffer
	memory         gpu.DeviceMemory
	size           int
	allocationSize int
	usage      core1_0.BufferUsageFlags
	properties core1_0.MemoryPropertyFlags

	mapped unsafe.Pointer
}

func NewBuffer(device *Device, size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*Buffer, error) {
	driver := device.Driver()

	buffer, err := driver.CreateBuffer(core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "create %d byte buffer", size), ErrBufferCreationFailed)
	}

	memRequirements := driver.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := device.QueryMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		driver.DestroyBuffer(buffer)
		return nil, errors.Mark(err, ErrMemoryAllocationFailed)
	}

	memory, err := driver.AllocateMemory(core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		driver.DestroyBuffer(buffer)
		return nil, errors.Mark(errors.Wrapf(err, "allocate %d bytes", memRequirements.Size), ErrMemoryAllocationFailed)
	}

	err = driver.BindBufferMemory(buffer, memory, 0)
	if err != nil {
		driver.FreeMemory(memory)
		driver.DestroyBuffer(buffer)
		return nil, errors.Mark(errors.Wrap(err, "bind buffer memory"), ErrMemoryAllocationFailed)
	}

	return &Buffer{
		device:     device,
		driver:     driver,
		buffer:         buffer,
		memory:         memory,
		size:           size,
		allocationSize: memRequirements.Size,
		usage:          usage,
		properties:     properties,
	}, nil
}

// NewDeviceLocalBuffer uploads data into a new device-local buffer through a
// transient host-visible staging buffer.
func NewDeviceLocalBuffer(device *Device, data []byte, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	if len(data) == 0 {
		return nil, errors.Mark(errors.New("device-local buffer with no contents"), ErrBufferCreationFailed)
	}

	staging, err := NewStagingBuffer(device, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	buffer, err := NewBuffer(device, len(data), usage|core1_0.BufferUsageTransferDst, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = staging.CopyTo(buffer, len(data), 0, 0)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	return buffer, nil
}

// NewStagingBuffer returns an unmapped host-visible transfer source holding data.
func NewStagingBuffer(device *Device, data []byte) (*Buffer, error) {
	staging, err := NewBuffer(device, len(data), core1_0.BufferUsageTransferSrc,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}

	err = staging.Map()
	if err == nil {
		err = staging.Write(data, gpu.WholeSize, 0)
		staging.Unmap()
	}
	if err != nil {
		staging.Destroy()
		return nil, err
	}

	return staging, nil
}

// Map establishes a persistent host pointer to the whole allocation. The
// memory type must be host visible.
func (b *Buffer) Map() error {
	if b.mapped != nil {
		return nil
	}

	ptr, err := b.driver.MapMemory(b.memory, 0, gpu.WholeSize)
	if err != nil {
		return errors.Wrap(err, "map buffer memory")
	}
	b.mapped = ptr
	return nil
}

func (b *Buffer) Unmap() {
	if b.mapped == nil {
		return
	}
	b.driver.UnmapMemory(b.memory)
	b.mapped = nil
}

func (b *Buffer) IsMapped() bool {
	return b.mapped != nil
}

// resolveRange turns a (size, offset) pair into a concrete range within the
// buffer. gpu.WholeSize means everything from offset to the end.
func (b *Buffer) resolveRange(size, offset int) (int, error) {
	if size == gpu.WholeSize {
		size = b.size - offset
	}
	if offset < 0 || size <= 0 || offset+size > b.size {
		return 0, errors.Newf("range [%d, %d) is outside buffer of size %d", offset, offset+size, b.size)
	}
	return size, nil
}

// Mapped returns the mapped allocation as a byte slice the length of the
// buffer, or nil when the buffer is not mapped.
func (b *Buffer) Mapped() []byte {
	if b.mapped == nil {
		return nil
	}
	return unsafe.Slice((*byte)(b.mapped), b.size)
}

// Write copies size bytes of data into the mapped buffer at offset.
// Passing gpu.WholeSize writes from offset to the end of the buffer.
func (b *Buffer) Write(data []byte, size, offset int) error {
	if b.mapped == nil {
		return errors.New("write to a buffer that is not mapped")
	}

	size, err := b.resolveRange(size, offset)
	if err != nil {
		return err
	}
	if len(data) < size {
		return errors.Newf("write of %d bytes from %d bytes of data", size, len(data))
	}

	copy(b.Mapped()[offset:offset+size], data[:size])
	return nil
}

// WriteValue encodes a fixed-size value in the device byte order and writes
// it at offset.
func (b *Buffer) WriteValue(value any, offset int) error {
	var data bytes.Buffer
	err := binary.Write(&data, common.ByteOrder, value)
	if err != nil {
		return errors.Wrap(err, "encode buffer contents")
	}

	return b.Write(data.Bytes(), data.Len(), offset)
}

// Flush makes host writes in the range visible to the device. It is needed
// only for memory types that are not host coherent but is always valid.
// Passing gpu.WholeSize flushes from offset to the end of the allocation.
func (b *Buffer) Flush(size, offset int) error {
	if b.mapped == nil {
		return errors.New("flush of a buffer that is not mapped")
	}

	resolved, err := b.resolveRange(size, offset)
	if err != nil {
		return err
	}

	memoryRange := b.flushRange(resolved, offset)
	if size == gpu.WholeSize {
		memoryRange.Size = gpu.WholeSize
	}
	return errors.Wrap(b.driver.FlushMappedMemoryRanges(memoryRange), "flush buffer memory")
}

// flushRange widens a buffer range to whole non-coherent atoms. A range that
// would run to or past the end of the allocation becomes gpu.WholeSize.
func (b *Buffer) flushRange(size, offset int) gpu.MappedMemoryRange {
	atom := b.device.Properties().NonCoherentAtomSize
	if atom <= 0 {
		atom = 1
	}

	start := offset / atom * atom
	end := (offset + size + atom - 1) / atom * atom
	if end >= b.allocationSize {
		return gpu.MappedMemoryRange{Memory: b.memory, Offset: start, Size: gpu.WholeSize}
	}
	return gpu.MappedMemoryRange{Memory: b.memory, Offset: start, Size: end - start}
}

// CopyTo copies size bytes from this buffer at srcOffset into dst at
// dstOffset and waits for the copy to complete.
func (b *Buffer) CopyTo(dst *Buffer, size, srcOffset, dstOffset int) error {
	size, err := b.resolveRange(size, srcOffset)
	if err != nil {
		return err
	}
	if dstOffset < 0 || dstOffset+size > dst.size {
		return errors.Newf("copy of %d bytes at offset %d overruns destination of size %d", size, dstOffset, dst.size)
	}

	return b.device.ExecuteOneShot(func(commandBuffer gpu.CommandBuffer) error {
		return b.driver.CmdCopyBuffer(commandBuffer, b.buffer, dst.buffer, core1_0.BufferCopy{
			SrcOffset: srcOffset,
			DstOffset: dstOffset,
			Size:      size,
		})
	})
}

// DescriptorInfo describes a range of the buffer for a descriptor write.
func (b *Buffer) DescriptorInfo(size, offset int) gpu.DescriptorBufferInfo {
	if size == gpu.WholeSize {
		size = b.size - offset
	}
	return gpu.DescriptorBufferInfo{Buffer: b.buffer, Offset: offset, Range: size}
}

func (b *Buffer) Handle() gpu.Buffer {
	return b.buffer
}

func (b *Buffer) Memory() gpu.DeviceMemory {
	return b.memory
}

func (b *Buffer) Size() int {
	return b.size
}

func (b *Buffer) Usage() core1_0.BufferUsageFlags {
	return b.usage
}

func (b *Buffer) MemoryProperties() core1_0.MemoryPropertyFlags {
	return b.properties
}

// Destroy unmaps and releases the buffer. The GPU must no longer be using it.
func (b *Buffer) Destroy() {
	if b.buffer == 0 {
		return
	}
	b.Unmap()
	b.driver.DestroyBuffer(b.buffer)
	b.driver.FreeMemory(b.memory)
	b.buffer = 0
	b.memory = 0
}
