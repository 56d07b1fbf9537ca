package mandel

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"
)

// FrameController runs the per-frame loop: sample keys, move the view,
// pick the iteration cap, render and present.
type FrameController struct {
	cfg     Config
	surface DisplaySurface
	state   *RenderState
	escape  EscapeFunc
	buf     *PixelBuffer

	fullDetail bool // cap reached cfg.MaxIterations since the last move

	mu    sync.Mutex
	frame *image.RGBA // last presented frame, nil until the first present
}

var _ ImgProvider = (*FrameController)(nil)

type Option func(*FrameController)

// WithEvaluator replaces the default EscapeCount evaluator.
func WithEvaluator(f EscapeFunc) Option {
	return func(fc *FrameController) {
		fc.escape = f
	}
}

// WithState starts the controller from s instead of the configured view.
func WithState(s *RenderState) Option {
	return func(fc *FrameController) {
		fc.state = s
	}
}

func NewFrameController(cfg Config, surface DisplaySurface, opts ...Option) (*FrameController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fc := &FrameController{
		cfg:     cfg,
		surface: surface,
		escape:  EscapeCount,
		buf:     NewPixelBuffer(cfg.Width, cfg.Height),
	}
	for _, opt := range opts {
		opt(fc)
	}
	if fc.state == nil {
		fc.state = NewRenderState(cfg)
	}
	return fc, nil
}

// State returns a copy of the current render state.
func (fc *FrameController) State() RenderState {
	return *fc.state
}

// Step renders and presents a single frame. It returns ErrQuit when the
// surface is closed or escape is held, and a wrapped error when the frame
// could not be presented.
func (fc *FrameController) Step() error {
	if !fc.surface.IsOpen() {
		return ErrQuit
	}

	// keys are sampled once and used for the whole frame
	held := make(map[Key]bool, len(NavigationKeys)+1)
	held[KeyEscape] = fc.surface.IsKeyDown(KeyEscape)
	for _, k := range NavigationKeys {
		held[k] = fc.surface.IsKeyDown(k)
	}
	if held[KeyEscape] {
		return ErrQuit
	}

	moved := fc.move(held)
	maxIter := fc.state.Advance(moved, fc.cfg)
	fc.logDetail(moved, maxIter)

	start := time.Now()
	Render(fc.buf, fc.state.View, maxIter, fc.escape)
	elapsed := time.Since(start)

	if err := fc.surface.Present(fc.buf); err != nil {
		return fmt.Errorf("present frame: %w", err)
	}
	fc.keepFrame()

	if sink, ok := fc.surface.(StatusSink); ok {
		sink.ShowStatus(Status{
			View:            fc.state.View,
			MaxIterations:   maxIter,
			FramesSinceMove: fc.state.FramesSinceMove,
			RenderTime:      elapsed,
		})
	}
	return nil
}

// move applies the held navigation keys to the view and reports whether
// any of them was held. The step is taken from the scope at frame start.
func (fc *FrameController) move(held map[Key]bool) bool {
	v := &fc.state.View
	step := v.Scope * fc.cfg.StepFraction
	moved := false

	if held[KeyZoomOut] {
		v.Scope += step
		moved = true
	}
	if held[KeyZoomIn] {
		v.Scope -= step
		moved = true
	}
	if held[KeyPanUp] {
		v.Center.Im += step
		moved = true
	}
	if held[KeyPanDown] {
		v.Center.Im -= step
		moved = true
	}
	if held[KeyPanRight] {
		v.Center.Re += step
		moved = true
	}
	if held[KeyPanLeft] {
		v.Center.Re -= step
		moved = true
	}
	return moved
}

func (fc *FrameController) keepFrame() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.frame == nil {
		fc.frame = image.NewRGBA(image.Rect(0, 0, fc.buf.Width, fc.buf.Height))
	}
	fc.buf.WriteRGBA(fc.frame.Pix)
}

// GetImage returns a copy of the last presented frame. It is safe to call
// from other goroutines while the controller runs.
func (fc *FrameController) GetImage() (image.RGBA, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.frame == nil {
		return image.RGBA{}, ErrNoFrame
	}
	img := *fc.frame
	img.Pix = append([]uint8(nil), fc.frame.Pix...)
	return img, nil
}

func (fc *FrameController) logDetail(moved bool, maxIter int) {
	if moved {
		fc.fullDetail = false
		return
	}
	if !fc.fullDetail && maxIter == fc.cfg.MaxIterations {
		fc.fullDetail = true
		log.Printf("full detail: %d iterations at center (%g, %g) scope %g",
			maxIter, fc.state.View.Center.Re, fc.state.View.Center.Im, fc.state.View.Scope)
	}
}

// Run calls Step until the surface asks to quit, presenting fails or ctx is
// done. Quitting is not an error.
func (fc *FrameController) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if fc.cfg.FrameRate > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(fc.cfg.FrameRate))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if err := fc.Step(); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return err
		}

		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if tick == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-tick:
		}
	}
}
