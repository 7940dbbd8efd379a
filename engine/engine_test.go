package engine

import (
	"encoding/binary"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/playground/gpu/gputest"
)

func newTestDevice(t *testing.T, specs ...gputest.PhysicalDeviceSpec) (*Device, *gputest.Instance, *gputest.Device) {
	t.Helper()

	if len(specs) == 0 {
		specs = []gputest.PhysicalDeviceSpec{gputest.DiscreteGPU("test gpu")}
	}
	instance := gputest.NewInstance(specs...)

	device, err := NewDevice(instance, DeviceOptions{})
	require.NoError(t, err)
	return device, instance, instance.Device()
}

// assertClean destroys device and checks nothing created from it survived.
func assertClean(t *testing.T, device *Device, fake *gputest.Device) {
	t.Helper()

	device.Destroy()
	assert.Empty(t, fake.Leaks())
	assert.Empty(t, fake.Violations())
}

func spirvBlob(words ...uint32) []byte {
	code := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(code, spirvMagic)
	for i, word := range words {
		binary.LittleEndian.PutUint32(code[4*(i+1):], word)
	}
	return code
}

func testShaders() fstest.MapFS {
	return fstest.MapFS{
		"shader.vert.spv": {Data: spirvBlob(1, 2, 3)},
		"shader.frag.spv": {Data: spirvBlob(4, 5, 6)},
	}
}
