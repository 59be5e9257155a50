// Package fade animates pixel brightness and color over time. Time is whatever monotonic unit the caller uses
// (milliseconds in this repository), as long as it is consistent across calls.
package fade

import (
	"sync"

	"github.com/callebjorkell/pixelbus/internal/pixel"
)

// Descriptor is a linear color transition of one pixel.
type Descriptor struct {
	From     [3]uint8
	To       [3]uint8
	Start    uint64
	Duration uint64
	Finished bool
}

// Engine owns one descriptor per pixel of the store. It only runs in the animation context, never in the drain
// handler, so the descriptors are guarded by a plain mutex.
type Engine struct {
	store *pixel.Store

	mu    sync.Mutex
	fades []Descriptor
}

func NewEngine(store *pixel.Store) *Engine {
	fades := make([]Descriptor, store.Len())
	for i := range fades {
		fades[i].Finished = true
	}
	return &Engine{
		store: store,
		fades: fades,
	}
}

func (e *Engine) Store() *pixel.Store {
	return e.store
}

func (e *Engine) valid(i int) bool {
	return i >= 0 && i < len(e.fades)
}

// DecreaseBrightness lowers the brightness of pixel i by one step once its deadline has passed.
func (e *Engine) DecreaseBrightness(i int, now uint64) {
	e.store.DecrementBrightness(i, now)
}

// SetNextColor starts a fade of pixel i from its current color to r, g, b. A fade in progress is retargeted from
// wherever it currently is.
func (e *Engine) SetNextColor(i int, r, g, b uint8, duration, now uint64) {
	if !e.valid(i) {
		return
	}
	p := e.store.Get(i)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.fades[i] = Descriptor{
		From:     [3]uint8{p.R, p.G, p.B},
		To:       [3]uint8{r, g, b},
		Start:    now,
		Duration: duration,
	}
}

// FadeColor moves pixel i along its fade for the time now. At the end of the fade the color is pinned to the
// target and the fade is marked finished.
func (e *Engine) FadeColor(i int, now uint64) {
	if !e.valid(i) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	f := &e.fades[i]
	if f.Finished {
		return
	}
	t := progress(f.Start, f.Duration, now)
	if t >= 1 {
		e.store.SetColor(i, f.To[0], f.To[1], f.To[2])
		f.Finished = true
		return
	}
	e.store.SetColor(i, lerp(f.From[0], f.To[0], t), lerp(f.From[1], f.To[1], t), lerp(f.From[2], f.To[2], t))
}

func progress(start, duration, now uint64) float64 {
	if duration == 0 {
		return 1
	}
	if now <= start {
		return 0
	}
	return float64(now-start) / float64(duration)
}

func lerp(from, to uint8, t float64) uint8 {
	return uint8(float64(from) + (float64(to)-float64(from))*t)
}

// Tick runs both mutators on every pixel.
func (e *Engine) Tick(now uint64) {
	for i := 0; i < e.store.Len(); i++ {
		e.DecreaseBrightness(i, now)
		e.FadeColor(i, now)
	}
}

func (e *Engine) Finished(i int) bool {
	if !e.valid(i) {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fades[i].Finished
}

// Active returns the number of fades still in progress.
func (e *Engine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, f := range e.fades {
		if !f.Finished {
			n++
		}
	}
	return n
}

func (e *Engine) Descriptor(i int) Descriptor {
	if !e.valid(i) {
		return Descriptor{Finished: true}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fades[i]
}

// Cancel stops every color fade and brightness decay, leaving the pixels where they are.
func (e *Engine) Cancel() {
	e.store.DisableFade()
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.fades {
		e.fades[i].Finished = true
	}
}
