package bus

import (
	"sync"

	"github.com/callebjorkell/pixelbus/internal/waveform"
)

// Framer decodes the clocked out halves back into colors. A frame ends at the first idle half after LED data,
// which is the point where the LEDs latch.
type Framer struct {
	enc     waveform.Encoder
	pending []uint32

	mu       sync.Mutex
	frame    []uint32
	count    uint64
	handlers []func([]uint32)
}

func NewFramer(enc waveform.Encoder, leds int) *Framer {
	return &Framer{
		enc:     enc,
		pending: make([]uint32, 0, leds),
	}
}

// OnFrame registers f to be called with every completed frame. f runs in the transfer goroutine and owns the slice
// it gets.
func (f *Framer) OnFrame(h func(frame []uint32)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
}

func (f *Framer) Drain(codes []byte) {
	r, g, b, idle := f.enc.Decode(codes)
	if !idle {
		f.pending = append(f.pending, uint32(r)<<16|uint32(g)<<8|uint32(b))
		return
	}
	if len(f.pending) == 0 {
		return
	}

	f.mu.Lock()
	f.frame = append(f.frame[:0], f.pending...)
	f.count++
	handlers := f.handlers
	f.mu.Unlock()
	f.pending = f.pending[:0]

	for _, h := range handlers {
		h(f.Frame())
	}
}

// Frame returns a copy of the last complete frame.
func (f *Framer) Frame() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint32, len(f.frame))
	copy(out, f.frame)
	return out
}

// Count returns the number of complete frames seen.
func (f *Framer) Count() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}
