package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

// DescriptorSetLayout owns a set layout and allocates sets for it from the
// device's descriptor pool. Sets are released with the pool.
type DescriptorSetLayout struct {
	_ noCopy

	device   *Device
	layout   gpu.DescriptorSetLayout
	bindings map[int]core1_0.DescriptorSetLayoutBinding
}

func NewDescriptorSetLayout(device *Device, bindings ...core1_0.DescriptorSetLayoutBinding) (*DescriptorSetLayout, error) {
	byIndex := make(map[int]core1_0.DescriptorSetLayoutBinding, len(bindings))
	for _, binding := range bindings {
		if _, duplicate := byIndex[binding.Binding]; duplicate {
			return nil, errors.Newf("binding %d declared twice", binding.Binding)
		}
		byIndex[binding.Binding] = binding
	}

	layout, err := device.Driver().CreateDescriptorSetLayout(bindings...)
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor set layout")
	}

	return &DescriptorSetLayout{
		device:   device,
		layout:   layout,
		bindings: byIndex,
	}, nil
}

func (l *DescriptorSetLayout) Handle() gpu.DescriptorSetLayout {
	return l.layout
}

// Allocate takes count sets with this layout from the device pool.
func (l *DescriptorSetLayout) Allocate(count int) ([]gpu.DescriptorSet, error) {
	layouts := make([]gpu.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = l.layout
	}

	sets, err := l.device.Driver().AllocateDescriptorSets(l.device.DescriptorPool(), layouts...)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %d descriptor sets", count)
	}
	return sets, nil
}

func (l *DescriptorSetLayout) Destroy() {
	if l.layout == 0 {
		return
	}
	l.device.Driver().DestroyDescriptorSetLayout(l.layout)
	l.layout = 0
}

// DescriptorWriter collects writes against one layout and applies them to a
// set in a single update. The first invalid write is reported by Update.
type DescriptorWriter struct {
	layout *DescriptorSetLayout
	writes []gpu.WriteDescriptorSet
	err    error
}

func NewDescriptorWriter(layout *DescriptorSetLayout) *DescriptorWriter {
	return &DescriptorWriter{layout: layout}
}

func (w *DescriptorWriter) binding(binding int) (core1_0.DescriptorSetLayoutBinding, bool) {
	if w.err != nil {
		return core1_0.DescriptorSetLayoutBinding{}, false
	}

	description, ok := w.layout.bindings[binding]
	if !ok {
		w.err = errors.Newf("layout has no binding %d", binding)
		return description, false
	}
	if description.DescriptorCount != 1 {
		w.err = errors.Newf("binding %d holds %d descriptors, expected one", binding, description.DescriptorCount)
		return description, false
	}
	return description, true
}

func (w *DescriptorWriter) WriteBuffer(binding int, info gpu.DescriptorBufferInfo) *DescriptorWriter {
	description, ok := w.binding(binding)
	if !ok {
		return w
	}

	w.writes = append(w.writes, gpu.WriteDescriptorSet{
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  description.DescriptorType,
		BufferInfo:      []gpu.DescriptorBufferInfo{info},
	})
	return w
}

func (w *DescriptorWriter) WriteImage(binding int, info gpu.DescriptorImageInfo) *DescriptorWriter {
	description, ok := w.binding(binding)
	if !ok {
		return w
	}

	w.writes = append(w.writes, gpu.WriteDescriptorSet{
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  description.DescriptorType,
		ImageInfo:       []gpu.DescriptorImageInfo{info},
	})
	return w
}

// Update applies every collected write to set.
func (w *DescriptorWriter) Update(set gpu.DescriptorSet) error {
	if w.err != nil {
		return w.err
	}

	writes := make([]gpu.WriteDescriptorSet, len(w.writes))
	for i, write := range w.writes {
		write.DstSet = set
		writes[i] = write
	}

	return errors.Wrap(w.layout.device.Driver().UpdateDescriptorSets(writes...), "update descriptor set")
}
