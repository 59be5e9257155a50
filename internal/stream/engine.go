// Package stream keeps a two-slot transfer buffer filled ahead of a circular transfer that drains it continuously.
//
// The transfer raises an event each time it has finished reading one half of the buffer and moves on to the other.
// Handle is the only code allowed to write the buffer, and it only ever writes the half that was just drained,
// which the transfer will not read again until it has finished the other half.
package stream

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/callebjorkell/pixelbus/internal/waveform"
)

// Event tells which half of the transfer buffer has just been drained.
type Event uint8

const (
	// HalfDrained is raised when the first half has been read and the transfer continues with the second.
	HalfDrained Event = iota
	// FullyDrained is raised when the second half has been read and the transfer wraps to the first.
	FullyDrained
)

func (e Event) String() string {
	switch e {
	case HalfDrained:
		return "half-drained"
	case FullyDrained:
		return "fully-drained"
	}
	return fmt.Sprintf("event(%d)", uint8(e))
}

// Phase is what the engine is currently writing into the buffer.
type Phase uint8

const (
	LEDData Phase = iota
	ResetData
)

func (p Phase) String() string {
	switch p {
	case LEDData:
		return "led-data"
	case ResetData:
		return "reset-data"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

const (
	// BufferSize is the length of the transfer buffer: two LED slots.
	BufferSize = 2 * waveform.SlotSize

	// idleWrites is the number of reset events that clear a half. After that both halves hold the latch level.
	idleWrites = 2

	// DefaultResetThreshold gives 300µs of latch time at 800kHz, enough for WS2812B parts.
	DefaultResetThreshold = 10
)

// Stats are counters that can be read while the engine is running.
type Stats struct {
	Frames  uint64
	Desyncs uint64
	Cursor  int
	Phase   Phase
	Leds    int
}

// Engine is the refill state machine.
type Engine struct {
	buf       [BufferSize]byte
	src       waveform.Source
	enc       waveform.Encoder
	threshold int
	onDesync  func(Event)

	cursor int
	phase  Phase
	last   Event
	resets int

	// written by Handle, read from anywhere
	frames  atomic.Uint64
	desyncs atomic.Uint64
	state   atomic.Uint32
}

type Option func(*Engine)

// WithResetThreshold sets the number of drain events spent in the reset phase. Values below two are raised to two
// since the first two reset events are the ones clearing the buffer.
func WithResetThreshold(n int) Option {
	return func(e *Engine) {
		if n < idleWrites {
			n = idleWrites
		}
		e.threshold = n
	}
}

// WithDesyncHook registers a function called from Handle when an event repeats. It runs in the drain context and
// must not block.
func WithDesyncHook(f func(Event)) Option {
	return func(e *Engine) {
		e.onDesync = f
	}
}

func NewEngine(src waveform.Source, enc waveform.Encoder, opts ...Option) *Engine {
	e := &Engine{
		src:       src,
		enc:       enc,
		threshold: DefaultResetThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResetThreshold returns the number of drain events needed to hold the line low for at least resetTime at the
// given bit rate. Every drain event accounts for one slot of idle codes.
func ResetThreshold(resetTime time.Duration, bitRate uint32) int {
	if bitRate == 0 {
		return DefaultResetThreshold
	}
	slot := time.Duration(waveform.SlotSize) * time.Second / time.Duration(bitRate)
	n := int(math.Ceil(float64(resetTime) / float64(slot)))
	if n < idleWrites {
		n = idleWrites
	}
	return n
}

// Prime encodes the first two LEDs into the buffer. It must be called once, before the transfer is started.
func (e *Engine) Prime() {
	for i := range e.buf {
		e.buf[i] = 0
	}
	e.enc.EncodeLED(e.buf[:waveform.SlotSize], e.src, 0)
	e.enc.EncodeLED(e.buf[waveform.SlotSize:], e.src, 1)
	e.cursor = 2
	e.phase = LEDData
	e.last = FullyDrained
	e.resets = 0
	if e.cursor >= e.src.Len() {
		e.phase = ResetData
	}
	e.publish()
}

// Buffer is the transfer buffer. The transfer reads it, only Handle writes it.
func (e *Engine) Buffer() []byte {
	return e.buf[:]
}

func (e *Engine) Cursor() int {
	return e.cursor
}

func (e *Engine) Phase() Phase {
	return e.phase
}

func (e *Engine) ResetCount() int {
	return e.resets
}

func (e *Engine) Threshold() int {
	return e.threshold
}

// Handle advances the state machine for one drain event. It runs in the drain context: it does not allocate, lock
// or fail.
func (e *Engine) Handle(ev Event) {
	if ev == e.last {
		e.desyncs.Add(1)
		if e.onDesync != nil {
			e.onDesync(ev)
		}
		return
	}
	e.last = ev

	half := e.buf[:waveform.SlotSize]
	if ev == FullyDrained {
		half = e.buf[waveform.SlotSize:]
	}

	if e.phase == LEDData {
		e.enc.EncodeLED(half, e.src, e.cursor)
		e.cursor++
		if e.cursor >= e.src.Len() {
			e.phase = ResetData
			e.resets = 0
		}
	} else {
		if e.resets < idleWrites {
			waveform.Idle(half)
		}
		e.resets++
		if e.resets >= e.threshold {
			e.cursor = 0
			e.phase = LEDData
			e.frames.Add(1)
		}
	}
	e.publish()
}

func (e *Engine) publish() {
	e.state.Store(uint32(e.phase)<<16 | uint32(uint16(e.cursor)))
}

// Stats may be called from any goroutine.
func (e *Engine) Stats() Stats {
	s := e.state.Load()
	return Stats{
		Frames:  e.frames.Load(),
		Desyncs: e.desyncs.Load(),
		Cursor:  int(uint16(s)),
		Phase:   Phase(s >> 16),
		Leds:    e.src.Len(),
	}
}
