// Package surface provides the fixed-size raster target render jobs draw
// into, backed by a gg drawing context.
package surface

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"sync"

	"github.com/gogpu/gg"
)

// DefaultBackground is the color a surface is cleared to between jobs.
const DefaultBackground = "#ffffff"

// Option configures a Surface.
type Option func(*Surface)

// WithBackground sets the reset color as a hex string.
func WithBackground(hex string) Option {
	return func(s *Surface) {
		if hex != "" {
			s.background = hex
		}
	}
}

// Surface is a width x height pixel buffer. Drawing goes through Context;
// Screenshot and EncodePNG read back a copy of the pixels.
type Surface struct {
	mu         sync.Mutex
	dc         *gg.Context
	background string
	resets     int
}

// New creates a surface cleared to its background color.
func New(width, height int, opts ...Option) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	s := &Surface{
		dc:         gg.NewContext(width, height),
		background: DefaultBackground,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Clear()
	return s, nil
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.dc.Width() }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.dc.Height() }

// Background returns the reset color.
func (s *Surface) Background() string { return s.background }

// Context returns the drawing context. Callers drawing from more than one
// goroutine must hold Lock.
func (s *Surface) Context() *gg.Context { return s.dc }

// Lock serializes drawing against Screenshot.
func (s *Surface) Lock() { s.mu.Lock() }

// Unlock releases Lock.
func (s *Surface) Unlock() { s.mu.Unlock() }

// Screenshot returns a copy of the current pixels.
func (s *Surface) Screenshot() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.dc.FlushGPU()
	return s.dc.Image()
}

// Clear fills the surface with its background color.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.ClearWithColor(gg.Hex(s.background))
}

// Reset clears the surface and drops any transform or path left by the
// previous job.
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.ClearPath()
	s.dc.Identity()
	s.dc.ClearWithColor(gg.Hex(s.background))
	s.resets++
}

// Resets returns how many times Reset has run.
func (s *Surface) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// EncodePNG writes the current pixels as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.Screenshot())
}

// Close releases the drawing context.
func (s *Surface) Close() error {
	return s.dc.Close()
}

// PNG encodes img.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
