// Package bus stands in for the timer and circular transfer that clock the pulse codes out to the LEDs. It reads
// the transfer buffer half by half, hands every half to the outputs and raises the drain events.
package bus

import (
	"context"
	"time"

	"github.com/callebjorkell/pixelbus/internal/stream"
	"github.com/callebjorkell/pixelbus/internal/waveform"
	log "github.com/sirupsen/logrus"
)

// Handler receives drain events. *stream.Engine is one.
type Handler interface {
	Handle(ev stream.Event)
}

// Sink gets a view of every half of the buffer as it is clocked out. The view is only valid during the call.
type Sink interface {
	Drain(codes []byte)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(codes []byte)

func (f SinkFunc) Drain(codes []byte) {
	f(codes)
}

// Loop emulates a free running circular transfer over a two-half buffer.
type Loop struct {
	buf     []byte
	handler Handler
	sinks   []Sink

	halfPeriod time.Duration
	tick       time.Duration
	next       stream.Event
	halves     uint64
}

type LoopOption func(*Loop)

// WithTick sets how often Run wakes up to catch up with the emulated transfer.
func WithTick(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.tick = d
		}
	}
}

func WithSinks(sinks ...Sink) LoopOption {
	return func(l *Loop) {
		l.sinks = append(l.sinks, sinks...)
	}
}

// NewLoop returns a loop draining buf, which must be primed, into the sinks and reporting to h. bitRate decides
// how long a half takes.
func NewLoop(buf []byte, h Handler, bitRate uint32, opts ...LoopOption) *Loop {
	if bitRate == 0 {
		bitRate = 800000
	}
	l := &Loop{
		buf:        buf,
		handler:    h,
		halfPeriod: time.Duration(waveform.SlotSize) * time.Second / time.Duration(bitRate),
		tick:       time.Millisecond,
		next:       stream.HalfDrained,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// HalfPeriod is the time it takes to clock out one half.
func (l *Loop) HalfPeriod() time.Duration {
	return l.halfPeriod
}

// Halves returns how many halves have been clocked out. Only call it from the goroutine running the loop.
func (l *Loop) Halves() uint64 {
	return l.halves
}

// Step clocks out the next half and raises its drain event.
func (l *Loop) Step() {
	mid := len(l.buf) / 2
	half := l.buf[:mid]
	if l.next == stream.FullyDrained {
		half = l.buf[mid:]
	}
	for _, s := range l.sinks {
		s.Drain(half)
	}
	l.handler.Handle(l.next)
	l.halves++
	l.next ^= 1
}

// Run keeps clocking halves out at the emulated rate until ctx is done. Halves are produced in batches every tick
// since the host cannot sleep for a single half period.
func (l *Loop) Run(ctx context.Context) error {
	log.Debugf("Starting transfer loop: %v per half, %v tick", l.halfPeriod, l.tick)
	t := time.NewTicker(l.tick)
	defer t.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Debugf("Transfer loop stopped after %d halves", l.halves)
			return nil
		case now := <-t.C:
			due := uint64(now.Sub(start) / l.halfPeriod)
			for l.halves < due {
				l.Step()
			}
		}
	}
}
