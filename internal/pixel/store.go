package pixel

import (
	"math/rand"
	"sync/atomic"
)

// cell holds one pixel. Color and brightness share a word so that the drain handler always reads a consistent
// color/brightness pair; the fade bookkeeping fields are independent.
type cell struct {
	color        atomic.Uint32
	canFade      atomic.Bool
	fadeOutDelay atomic.Uint32
	nextFadeTime atomic.Uint64
}

// Store is a fixed size set of pixels shared between the drain handler (reader) and the animation context (writer).
// It never blocks: every field is an atomic, and concurrent multi-field updates are last-write-wins.
//
// Every setter silently ignores out of range indices and brightness values and reports whether anything was
// written.
type Store struct {
	cells         []cell
	maxBrightness uint8
	fadeOutTime   uint32
}

// NewStore allocates n pixels, all black with fading disabled. fadeOutTime is the time budget used to derive each
// pixel's brightness decay delay.
func NewStore(n int, maxBrightness uint8, fadeOutTime uint32) *Store {
	if n < 0 {
		n = 0
	}
	if maxBrightness == 0 {
		maxBrightness = DefaultMaxBrightness
	}
	return &Store{
		cells:         make([]cell, n),
		maxBrightness: maxBrightness,
		fadeOutTime:   fadeOutTime,
	}
}

func (s *Store) Len() int {
	return len(s.cells)
}

func (s *Store) MaxBrightness() uint8 {
	return s.maxBrightness
}

func (s *Store) valid(i int) bool {
	return i >= 0 && i < len(s.cells)
}

// Set replaces pixel i with p.
func (s *Store) Set(i int, p Pixel) bool {
	if !s.valid(i) || p.Brightness > s.maxBrightness {
		return false
	}
	c := &s.cells[i]
	c.color.Store(pack(p.R, p.G, p.B, p.Brightness))
	c.canFade.Store(p.CanFade)
	c.fadeOutDelay.Store(p.FadeOutDelay)
	c.nextFadeTime.Store(p.NextFadeTime)
	return true
}

// Get returns pixel i, or a zero brightness pixel if i is out of range.
func (s *Store) Get(i int) Pixel {
	if !s.valid(i) {
		return Pixel{}
	}
	c := &s.cells[i]
	r, g, b, brightness := unpack(c.color.Load())
	return Pixel{
		R:            r,
		G:            g,
		B:            b,
		Brightness:   brightness,
		CanFade:      c.canFade.Load(),
		FadeOutDelay: c.fadeOutDelay.Load(),
		NextFadeTime: c.nextFadeTime.Load(),
	}
}

// update applies f to the packed color word of pixel i with a compare-and-swap loop, so a concurrent brightness
// decrement does not undo a color change and vice versa.
func (s *Store) update(i int, f func(r, g, b, brightness uint8) (uint8, uint8, uint8, uint8)) {
	c := &s.cells[i]
	for {
		old := c.color.Load()
		next := pack(f(unpack(old)))
		if c.color.CompareAndSwap(old, next) {
			return
		}
	}
}

// SetColor sets the nominal color of pixel i, keeping its brightness.
func (s *Store) SetColor(i int, r, g, b uint8) bool {
	if !s.valid(i) {
		return false
	}
	s.update(i, func(_, _, _, brightness uint8) (uint8, uint8, uint8, uint8) {
		return r, g, b, brightness
	})
	return true
}

// SetBrightness sets the brightness of pixel i and derives its decay delay from the fade out time.
func (s *Store) SetBrightness(i int, brightness uint8) bool {
	if !s.valid(i) || brightness > s.maxBrightness {
		return false
	}
	s.update(i, func(r, g, b, _ uint8) (uint8, uint8, uint8, uint8) {
		return r, g, b, brightness
	})
	if brightness > 0 {
		s.cells[i].fadeOutDelay.Store(s.fadeOutTime / uint32(brightness))
	}
	return true
}

// SetColorNormalized sets the color of pixel i so that its strongest channel is driven to the level implied by
// brightness, keeping the ratio between channels. Black is treated as white.
func (s *Store) SetColorNormalized(i int, r, g, b, brightness uint8) bool {
	if !s.valid(i) || brightness > s.maxBrightness {
		return false
	}
	r, g, b = Normalize(r, g, b, brightness)
	s.cells[i].color.Store(pack(r, g, b, brightness))
	if brightness > 0 {
		s.cells[i].fadeOutDelay.Store(s.fadeOutTime / uint32(brightness))
	}
	return true
}

// Normalize scales r, g and b so the largest channel becomes round(brightness/100*255).
func Normalize(r, g, b, brightness uint8) (uint8, uint8, uint8) {
	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	if max == 0 {
		r, g, b, max = 255, 255, 255, 255
	}
	// round(c * brightness*255/100 / max) in integers, halves round up
	den := 200 * uint32(max)
	scale := func(c uint8) uint8 {
		return uint8((2*uint32(c)*uint32(brightness)*255 + 100*uint32(max)) / den)
	}
	return scale(r), scale(g), scale(b)
}

// Randomize gives pixel i a random normalized color at the given brightness.
func (s *Store) Randomize(i int, brightness uint8, rnd *rand.Rand) bool {
	v := rnd.Uint32()
	return s.SetColorNormalized(i, uint8(v>>16), uint8(v>>8), uint8(v), brightness)
}

// Fill sets every pixel to the same color and brightness.
func (s *Store) Fill(r, g, b, brightness uint8) bool {
	if brightness > s.maxBrightness {
		return false
	}
	for i := range s.cells {
		s.SetColor(i, r, g, b)
		s.SetBrightness(i, brightness)
	}
	return true
}

func (s *Store) SetCanFade(i int, canFade bool) bool {
	if !s.valid(i) {
		return false
	}
	s.cells[i].canFade.Store(canFade)
	return true
}

func (s *Store) EnableFade() {
	for i := range s.cells {
		s.cells[i].canFade.Store(true)
	}
}

func (s *Store) DisableFade() {
	for i := range s.cells {
		s.cells[i].canFade.Store(false)
	}
}

func (s *Store) SetNextFadeTime(i int, t uint64) bool {
	if !s.valid(i) {
		return false
	}
	s.cells[i].nextFadeTime.Store(t)
	return true
}

// DecrementBrightness lowers the brightness of pixel i by one step if it is fade eligible, still lit and its
// deadline has been reached at now. The next deadline is set one decay delay after now.
func (s *Store) DecrementBrightness(i int, now uint64) bool {
	if !s.valid(i) {
		return false
	}
	c := &s.cells[i]
	if !c.canFade.Load() || now < c.nextFadeTime.Load() {
		return false
	}
	decremented := false
	s.update(i, func(r, g, b, brightness uint8) (uint8, uint8, uint8, uint8) {
		decremented = brightness > 0
		if decremented {
			brightness--
		}
		return r, g, b, brightness
	})
	if decremented {
		c.nextFadeTime.Store(now + uint64(c.fadeOutDelay.Load()))
	}
	return decremented
}
