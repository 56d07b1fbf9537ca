package mandel

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the startup parameters of the explorer.
type Config struct {
	Width, Height int

	// Initial view
	Center Complex
	Scope  float64

	// Iteration cap starts at MinIterations whenever the view moves and grows
	// by GrowthIncrement every GrowthPeriod idle frames, up to MaxIterations.
	MinIterations   int
	MaxIterations   int
	GrowthIncrement int
	GrowthPeriod    int

	// StepFraction of the current scope is applied per frame for each held key.
	StepFraction float64

	// FrameRate caps the frames per second of FrameController.Run, 0 means unpaced.
	FrameRate int
}

func DefaultConfig() Config {
	return Config{
		Width:           600,
		Height:          600,
		Center:          Complex{Re: -0.5, Im: 0.0},
		Scope:           1.0,
		MinIterations:   150,
		MaxIterations:   2000,
		GrowthIncrement: 100,
		GrowthPeriod:    5,
		StepFraction:    0.05,
		FrameRate:       60,
	}
}

// InitialView returns the viewport the explorer starts with.
func (c Config) InitialView() Viewport {
	return Viewport{Center: c.Center, Scope: c.Scope}
}

func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case !(c.Scope > 0) || math.IsInf(c.Scope, 0):
		return fmt.Errorf("%w: scope %g must be positive and finite", ErrInvalidConfig, c.Scope)
	case math.IsNaN(c.Center.Re) || math.IsNaN(c.Center.Im) || math.IsInf(c.Center.Re, 0) || math.IsInf(c.Center.Im, 0):
		return fmt.Errorf("%w: center %v is not finite", ErrInvalidConfig, c.Center)
	case c.MinIterations <= 0 || c.MinIterations > c.MaxIterations:
		return fmt.Errorf("%w: iterations range [%d, %d]", ErrInvalidConfig, c.MinIterations, c.MaxIterations)
	case c.GrowthIncrement < 0:
		return fmt.Errorf("%w: growth increment %d", ErrInvalidConfig, c.GrowthIncrement)
	case c.GrowthPeriod <= 0:
		return fmt.Errorf("%w: growth period %d", ErrInvalidConfig, c.GrowthPeriod)
	case !(c.StepFraction > 0 && c.StepFraction < 1):
		return fmt.Errorf("%w: step fraction %g must be in (0, 1)", ErrInvalidConfig, c.StepFraction)
	case c.FrameRate < 0:
		return fmt.Errorf("%w: frame rate %d", ErrInvalidConfig, c.FrameRate)
	}
	return nil
}

// RegisterFlags binds the fields of c to command line flags of fs, using
// the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Width, "width", c.Width, "frame width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "frame height in pixels")
	fs.Float64Var(&c.Center.Re, "re", c.Center.Re, "real part of the initial center")
	fs.Float64Var(&c.Center.Im, "im", c.Center.Im, "imaginary part of the initial center")
	fs.Float64Var(&c.Scope, "scope", c.Scope, "initial half extent of the view")
	fs.IntVar(&c.MinIterations, "min-iter", c.MinIterations, "iteration cap while moving")
	fs.IntVar(&c.MaxIterations, "max-iter", c.MaxIterations, "iteration cap reached when idle")
	fs.IntVar(&c.GrowthIncrement, "growth", c.GrowthIncrement, "iterations added per growth period")
	fs.IntVar(&c.GrowthPeriod, "period", c.GrowthPeriod, "idle frames per growth step")
	fs.Float64Var(&c.StepFraction, "step", c.StepFraction, "fraction of the scope moved per frame")
	fs.IntVar(&c.FrameRate, "fps", c.FrameRate, "frames per second, 0 for unpaced")
}

// ApplyLandmark replaces the initial view with the named landmark.
func (c *Config) ApplyLandmark(name string) error {
	r, ok := Landmarks[name]
	if !ok {
		return fmt.Errorf("%w: unknown view %q, known: %s", ErrInvalidConfig, name, strings.Join(LandmarkNames(), ", "))
	}
	v := ViewportFromRegion(r)
	c.Center, c.Scope = v.Center, v.Scope
	return nil
}
