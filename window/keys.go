package window

import (
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/playground/input"
)

// Scancodes follow physical key positions, so WASD stays put on every layout.
var scancodeKeys = map[sdl.Scancode]input.Key{
	sdl.SCANCODE_W:      input.KeyW,
	sdl.SCANCODE_A:      input.KeyA,
	sdl.SCANCODE_S:      input.KeyS,
	sdl.SCANCODE_D:      input.KeyD,
	sdl.SCANCODE_Q:      input.KeyQ,
	sdl.SCANCODE_E:      input.KeyE,
	sdl.SCANCODE_LEFT:   input.KeyLeft,
	sdl.SCANCODE_RIGHT:  input.KeyRight,
	sdl.SCANCODE_UP:     input.KeyUp,
	sdl.SCANCODE_DOWN:   input.KeyDown,
	sdl.SCANCODE_ESCAPE: input.KeyEscape,
}

func keyForScancode(scancode sdl.Scancode) input.Key {
	key, ok := scancodeKeys[scancode]
	if !ok {
		return input.KeyUnknown
	}
	return key
}
