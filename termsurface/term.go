// Package termsurface shows the explorer inside a truecolor terminal.
//
// Every character cell holds two vertically stacked pixels drawn with an
// upper half block, the foreground colouring the top pixel and the
// background the bottom one. Terminals only report key presses, so a key is
// considered held while its auto-repeat keeps arriving.
package termsurface

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	xdraw "golang.org/x/image/draw"

	mandel "github.com/marben/mandel_explorer"
)

// DefaultHold is how long a key counts as held after its last press or repeat.
const DefaultHold = 150 * time.Millisecond

const upperHalfBlock = '▀'

var runeKeys = map[rune]mandel.Key{
	'k': mandel.KeyZoomIn,
	'e': mandel.KeyZoomIn,
	'+': mandel.KeyZoomIn,
	'=': mandel.KeyZoomIn,
	'j': mandel.KeyZoomOut,
	'-': mandel.KeyZoomOut,
	'w': mandel.KeyPanUp,
	's': mandel.KeyPanDown,
	'a': mandel.KeyPanLeft,
	'd': mandel.KeyPanRight,
	'q': mandel.KeyEscape,
}

var specialKeys = map[tcell.Key]mandel.Key{
	tcell.KeyEscape: mandel.KeyEscape,
	tcell.KeyUp:     mandel.KeyPanUp,
	tcell.KeyDown:   mandel.KeyPanDown,
	tcell.KeyLeft:   mandel.KeyPanLeft,
	tcell.KeyRight:  mandel.KeyPanRight,
}

type Surface struct {
	screen tcell.Screen
	hold   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	pressed map[mandel.Key]time.Time
	closed  bool

	// reused between frames
	src, dst *image.RGBA

	done chan struct{}
}

var _ mandel.DisplaySurface = (*Surface)(nil)
var _ mandel.StatusSink = (*Surface)(nil)

// Open takes over the controlling terminal.
func Open() (*Surface, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("tcell.NewScreen: %w", err)
	}
	return New(screen, DefaultHold)
}

// New initialises screen and starts reading its events.
func New(screen tcell.Screen, hold time.Duration) (*Surface, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("screen.Init: %w", err)
	}
	screen.HideCursor()
	screen.Clear()

	s := &Surface{
		screen:  screen,
		hold:    hold,
		now:     time.Now,
		pressed: make(map[mandel.Key]time.Time),
		done:    make(chan struct{}),
	}
	go s.pollEvents()
	return s, nil
}

// Close restores the terminal.
func (s *Surface) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.screen.Fini()
	<-s.done
	return nil
}

func (s *Surface) pollEvents() {
	defer close(s.done)
	for {
		ev := s.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			// screen finalized
			return
		case *tcell.EventResize:
			s.screen.Sync()
		case *tcell.EventKey:
			s.handleKey(ev)
		}
	}
}

func (s *Surface) handleKey(ev *tcell.EventKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Key() == tcell.KeyCtrlC {
		s.closed = true
		return
	}

	k, ok := specialKeys[ev.Key()]
	if !ok && ev.Key() == tcell.KeyRune {
		k, ok = runeKeys[ev.Rune()]
	}
	if ok {
		s.pressed[k] = s.now()
	}
}

func (s *Surface) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *Surface) IsKeyDown(k mandel.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pressed[k]
	return ok && s.now().Sub(t) < s.hold
}

// Present scales the frame to the largest square that fits the terminal,
// keeping the bottom row for the status line.
func (s *Surface) Present(buf *mandel.PixelBuffer) error {
	cols, rows := s.screen.Size()
	side := min(cols, 2*(rows-1)) &^ 1
	if side <= 0 {
		return nil
	}

	if s.src == nil || s.src.Rect.Dx() != buf.Width || s.src.Rect.Dy() != buf.Height {
		s.src = image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	}
	buf.WriteRGBA(s.src.Pix)
	if s.dst == nil || s.dst.Rect.Dx() != side {
		s.dst = image.NewRGBA(image.Rect(0, 0, side, side))
		s.screen.Clear()
	}
	xdraw.ApproxBiLinear.Scale(s.dst, s.dst.Bounds(), s.src, s.src.Bounds(), xdraw.Src, nil)

	offX := (cols - side) / 2
	for cy := range side / 2 {
		for x := range side {
			top := s.dst.RGBAAt(x, 2*cy)
			bottom := s.dst.RGBAAt(x, 2*cy+1)
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			s.screen.SetContent(offX+x, cy, upperHalfBlock, nil, style)
		}
	}
	s.screen.Show()
	return nil
}

func (s *Surface) ShowStatus(st mandel.Status) {
	cols, rows := s.screen.Size()
	if rows < 1 {
		return
	}
	line := fmt.Sprintf(" center (%.10g, %.10g)  scope %.4g  iterations %d  %s",
		st.View.Center.Re, st.View.Center.Im, st.View.Scope, st.MaxIterations, st.RenderTime.Round(time.Millisecond))
	drawText(s.screen, 0, rows-1, cols, line, tcell.StyleDefault.Reverse(true))
	s.screen.Show()
}

// drawText writes text at (x, y), padding the rest of the width with spaces.
func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	i := 0
	for _, r := range text {
		if i >= width {
			return
		}
		screen.SetContent(x+i, y, r, nil, style)
		i++
	}
	for ; i < width; i++ {
		screen.SetContent(x+i, y, ' ', nil, style)
	}
}
