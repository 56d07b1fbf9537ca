package mandel

import (
	"errors"
	"time"
)

// ErrQuit is returned by FrameController.Step once the surface was closed
// or the escape key is held.
var ErrQuit = errors.New("quit requested")

// ErrNoFrame is returned by GetImage before the first frame was presented.
var ErrNoFrame = errors.New("no frame presented yet")

// Key is a logical key of the explorer, independent of the physical binding.
type Key int

const (
	KeyEscape Key = iota
	KeyPanUp
	KeyPanDown
	KeyPanLeft
	KeyPanRight
	KeyZoomIn
	KeyZoomOut
)

// NavigationKeys are the keys that move the view.
var NavigationKeys = []Key{KeyZoomIn, KeyZoomOut, KeyPanUp, KeyPanDown, KeyPanRight, KeyPanLeft}

var keyNames = map[Key]string{
	KeyEscape:   "escape",
	KeyPanUp:    "pan-up",
	KeyPanDown:  "pan-down",
	KeyPanLeft:  "pan-left",
	KeyPanRight: "pan-right",
	KeyZoomIn:   "zoom-in",
	KeyZoomOut:  "zoom-out",
}

func (k Key) String() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	return "unknown"
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, bool) {
	for k, n := range keyNames {
		if n == s {
			return k, true
		}
	}
	return 0, false
}

type KeyState interface {
	IsKeyDown(k Key) bool
}

// DisplaySurface shows frames to the user and reports the keys held down.
type DisplaySurface interface {
	KeyState
	IsOpen() bool
	Present(buf *PixelBuffer) error
}

// Status describes the frame that was just presented.
type Status struct {
	View            Viewport
	MaxIterations   int
	FramesSinceMove int
	RenderTime      time.Duration
}

// StatusSink is implemented by surfaces that can display a Status next to the frame.
type StatusSink interface {
	ShowStatus(s Status)
}
