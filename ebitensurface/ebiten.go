// Package ebitensurface shows the explorer in a native window using Ebiten.
// Ebiten owns the main loop, so its Update callback drives
// mandel.FrameController.Step once per tick.
package ebitensurface

import (
	"errors"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	mandel "github.com/marben/mandel_explorer"
)

// bindings maps logical keys to the physical keys that trigger them.
var bindings = map[mandel.Key][]ebiten.Key{
	mandel.KeyEscape:   {ebiten.KeyEscape},
	mandel.KeyZoomIn:   {ebiten.KeyK, ebiten.KeyE, ebiten.KeyEqual, ebiten.KeyNumpadAdd},
	mandel.KeyZoomOut:  {ebiten.KeyJ, ebiten.KeyQ, ebiten.KeyMinus, ebiten.KeyNumpadSubtract},
	mandel.KeyPanUp:    {ebiten.KeyW, ebiten.KeyArrowUp},
	mandel.KeyPanDown:  {ebiten.KeyS, ebiten.KeyArrowDown},
	mandel.KeyPanLeft:  {ebiten.KeyA, ebiten.KeyArrowLeft},
	mandel.KeyPanRight: {ebiten.KeyD, ebiten.KeyArrowRight},
}

type Surface struct {
	width, height int
	title         string
	tps           int
	hud           bool

	fc     *mandel.FrameController
	pix    []byte // RGBA of the last presented frame
	status *mandel.Status
}

var _ mandel.DisplaySurface = (*Surface)(nil)
var _ mandel.StatusSink = (*Surface)(nil)
var _ ebiten.Game = (*Surface)(nil)

// New creates a window surface for frames of cfg's size. The window is
// opened by Run.
func New(cfg mandel.Config, hud bool) *Surface {
	tps := cfg.FrameRate
	if tps == 0 {
		tps = ebiten.SyncWithFPS
	}
	return &Surface{
		width:  cfg.Width,
		height: cfg.Height,
		title:  "Mandelbrot - ESC to exit",
		tps:    tps,
		hud:    hud,
	}
}

// Run opens the window and blocks until the explorer quits or the window is closed.
func (s *Surface) Run(fc *mandel.FrameController) error {
	s.fc = fc
	ebiten.SetWindowSize(s.width, s.height)
	ebiten.SetWindowTitle(s.title)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetTPS(s.tps)

	if err := ebiten.RunGame(s); err != nil {
		return fmt.Errorf("ebiten.RunGame: %w", err)
	}
	return nil
}

func (s *Surface) IsOpen() bool {
	return !ebiten.IsWindowBeingClosed()
}

func (s *Surface) IsKeyDown(k mandel.Key) bool {
	for _, ek := range bindings[k] {
		if ebiten.IsKeyPressed(ek) {
			return true
		}
	}
	return false
}

func (s *Surface) Present(buf *mandel.PixelBuffer) error {
	if buf.Width != s.width || buf.Height != s.height {
		return fmt.Errorf("frame %dx%d does not fit window %dx%d", buf.Width, buf.Height, s.width, s.height)
	}
	if len(s.pix) != 4*len(buf.Pix) {
		s.pix = make([]byte, 4*len(buf.Pix))
	}
	buf.WriteRGBA(s.pix)
	return nil
}

func (s *Surface) ShowStatus(st mandel.Status) {
	s.status = &st
}

// Update implements ebiten.Game.
func (s *Surface) Update() error {
	err := s.fc.Step()
	if errors.Is(err, mandel.ErrQuit) {
		return ebiten.Termination
	}
	return err
}

// Draw implements ebiten.Game.
func (s *Surface) Draw(screen *ebiten.Image) {
	if s.pix == nil {
		return
	}
	screen.WritePixels(s.pix)

	if s.hud && s.status != nil {
		v := s.status.View
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nCenter: (%.10g, %.10g)\nScope: %.4g\nIterations: %d\nRender: %s",
			ebiten.ActualFPS(), v.Center.Re, v.Center.Im, v.Scope, s.status.MaxIterations, s.status.RenderTime.Round(100*time.Microsecond)))
	}
}

// Layout implements ebiten.Game. The frame is scaled to the window.
func (s *Surface) Layout(outsideWidth, outsideHeight int) (int, int) {
	return s.width, s.height
}
