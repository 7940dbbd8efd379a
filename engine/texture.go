package engine

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/playground/gpu"
)

// TextureSet is the descriptor set index textures are bound at. Set 0 holds
// the per-frame global uniforms.
const TextureSet = 1

// Pixels is a decoded RGBA8 image, four bytes per texel in row order.
type Pixels struct {
	Width  int
	Height int
	Data   []byte
}

// Texture is a sampled sRGB image with its view, sampler and descriptor set.
type Texture struct {
	_ noCopy

	driver  gpu.Device
	image   *Image
	view    gpu.ImageView
	sampler gpu.Sampler
	set     gpu.DescriptorSet
}

// NewTexture uploads pixels into a device-local image and writes a combined
// image sampler descriptor for it at binding 0 of a set allocated from layout.
func NewTexture(device *Device, pixels Pixels, layout *DescriptorSetLayout) (*Texture, error) {
	if pixels.Width <= 0 || pixels.Height <= 0 {
		return nil, errors.Newf("texture has empty extent %dx%d", pixels.Width, pixels.Height)
	}
	if len(pixels.Data) != pixels.Width*pixels.Height*4 {
		return nil, errors.Newf("texture of %dx%d needs %d bytes, got %d",
			pixels.Width, pixels.Height, pixels.Width*pixels.Height*4, len(pixels.Data))
	}

	texture := &Texture{driver: device.Driver()}

	err := texture.createImage(device, pixels)
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	texture.view, err = texture.image.CreateView()
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	err = texture.createSampler(device)
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	sets, err := layout.Allocate(1)
	if err != nil {
		texture.Destroy()
		return nil, err
	}
	texture.set = sets[0]

	err = NewDescriptorWriter(layout).
		WriteImage(0, texture.DescriptorInfo()).
		Update(texture.set)
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	return texture, nil
}

func (t *Texture) createImage(device *Device, pixels Pixels) error {
	staging, err := NewStagingBuffer(device, pixels.Data)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	t.image, err = NewImage(device, pixels.Width, pixels.Height, core1_0.FormatR8G8B8A8SRGB,
		core1_0.ImageUsageTransferSrc|core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled)
	if err != nil {
		return err
	}

	err = t.image.TransitionLayout(core1_0.ImageLayoutTransferDstOptimal)
	if err != nil {
		return err
	}

	err = t.image.CopyFromBuffer(staging)
	if err != nil {
		return err
	}

	return t.image.TransitionLayout(core1_0.ImageLayoutShaderReadOnlyOptimal)
}

func (t *Texture) createSampler(device *Device) error {
	var err error
	t.sampler, err = t.driver.CreateSampler(core1_0.SamplerCreateInfo{
		MagFilter:        core1_0.FilterLinear,
		MinFilter:        core1_0.FilterLinear,
		AddressModeU:     core1_0.SamplerAddressModeRepeat,
		AddressModeV:     core1_0.SamplerAddressModeRepeat,
		AddressModeW:     core1_0.SamplerAddressModeRepeat,
		AnisotropyEnable: true,
		MaxAnisotropy:    device.Properties().MaxSamplerAnisotropy,
		BorderColor:      core1_0.BorderColorIntOpaqueBlack,
		MipmapMode:       core1_0.SamplerMipmapModeLinear,
		MinLod:           0,
		MaxLod:           0,
	})
	return errors.Wrap(err, "create texture sampler")
}

func (t *Texture) DescriptorInfo() gpu.DescriptorImageInfo {
	return gpu.DescriptorImageInfo{
		Sampler:     t.sampler,
		ImageView:   t.view,
		ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
	}
}

// Bind records a bind of the texture's descriptor set at TextureSet.
func (t *Texture) Bind(commandBuffer gpu.CommandBuffer, layout gpu.PipelineLayout) {
	t.driver.CmdBindDescriptorSets(commandBuffer, layout, TextureSet, t.set)
}

func (t *Texture) Image() *Image {
	return t.image
}

func (t *Texture) DescriptorSet() gpu.DescriptorSet {
	return t.set
}

func (t *Texture) Destroy() {
	if t.sampler != 0 {
		t.driver.DestroySampler(t.sampler)
		t.sampler = 0
	}
	if t.view != 0 {
		t.driver.DestroyImageView(t.view)
		t.view = 0
	}
	if t.image != nil {
		t.image.Destroy()
		t.image = nil
	}
}

// TextureManager owns the texture set layout and every texture loaded
// through it, keyed by name.
type TextureManager struct {
	device   *Device
	layout   *DescriptorSetLayout
	textures map[string]*Texture
}

func NewTextureManager(device *Device) (*TextureManager, error) {
	layout, err := NewDescriptorSetLayout(device, core1_0.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      core1_0.StageFragment,
	})
	if err != nil {
		return nil, err
	}

	return &TextureManager{
		device:   device,
		layout:   layout,
		textures: make(map[string]*Texture),
	}, nil
}

// Load uploads pixels under name. Loading a name twice is an error.
func (m *TextureManager) Load(name string, pixels Pixels) (*Texture, error) {
	if _, exists := m.textures[name]; exists {
		return nil, errors.Newf("texture %q is already loaded", name)
	}

	texture, err := NewTexture(m.device, pixels, m.layout)
	if err != nil {
		return nil, errors.Wrapf(err, "load texture %q", name)
	}

	m.textures[name] = texture
	m.device.Logger().Debug("loaded texture", "name", name, "width", pixels.Width, "height", pixels.Height)
	return texture, nil
}

func (m *TextureManager) Get(name string) (*Texture, bool) {
	texture, ok := m.textures[name]
	return texture, ok
}

// Names lists the loaded textures in sorted order.
func (m *TextureManager) Names() []string {
	names := make([]string, 0, len(m.textures))
	for name := range m.textures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *TextureManager) SetLayout() *DescriptorSetLayout {
	return m.layout
}

func (m *TextureManager) Destroy() {
	for name, texture := range m.textures {
		texture.Destroy()
		delete(m.textures, name)
	}
	m.layout.Destroy()
}
