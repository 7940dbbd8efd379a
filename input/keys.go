// Package input names the keys the playground reacts to, independent of the
// window system that reports them.
package input

type Key int

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyEscape

	keyCount
)

var keyNames = [keyCount]string{
	KeyUnknown: "Unknown",
	KeyW:       "W",
	KeyA:       "A",
	KeyS:       "S",
	KeyD:       "D",
	KeyQ:       "Q",
	KeyE:       "E",
	KeyLeft:    "Left",
	KeyRight:   "Right",
	KeyUp:      "Up",
	KeyDown:    "Down",
	KeyEscape:  "Escape",
}

func (k Key) String() string {
	if k < 0 || k >= keyCount {
		return keyNames[KeyUnknown]
	}
	return keyNames[k]
}

// Keys lists every named key.
func Keys() []Key {
	keys := make([]Key, 0, keyCount-1)
	for k := KeyW; k < keyCount; k++ {
		keys = append(keys, k)
	}
	return keys
}

// Keyboard reports whether a key is currently held down.
type Keyboard interface {
	IsKeyPressed(key Key) bool
}

// State is a Keyboard backed by a fixed set of flags. The zero value has
// every key released.
type State [keyCount]bool

func (s *State) Press(keys ...Key) {
	for _, key := range keys {
		if key > KeyUnknown && key < keyCount {
			s[key] = true
		}
	}
}

func (s *State) Release(keys ...Key) {
	for _, key := range keys {
		if key > KeyUnknown && key < keyCount {
			s[key] = false
		}
	}
}

func (s *State) Reset() {
	*s = State{}
}

func (s *State) IsKeyPressed(key Key) bool {
	if key <= KeyUnknown || key >= keyCount {
		return false
	}
	return s[key]
}
