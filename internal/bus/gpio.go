package bus

import (
	"fmt"

	"github.com/callebjorkell/pixelbus/internal/waveform"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiostream"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Streamer is the part of a periph pin the GPIO sink needs.
type Streamer interface {
	StreamOut(s gpiostream.Stream) error
}

// GPIO bit-bangs the pulse codes on a pin. Every code becomes three bits on the wire, 110 for a long pulse and
// 100 for a short one, so the pin is clocked at three times the bit rate. A frame is sent in one go when the line
// goes idle.
type GPIO struct {
	out       Streamer
	freq      physic.Frequency
	threshold byte
	bits      []byte
	codes     int
}

// OpenGPIO initializes the periph host drivers and opens the named pin.
func OpenGPIO(name string, bitRate uint32, enc waveform.Encoder) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not initialize periph: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no such pin: %s", name)
	}
	out, ok := p.(gpiostream.PinOut)
	if !ok {
		return nil, fmt.Errorf("pin %s does not support streaming", name)
	}
	log.Infof("Streaming pulse codes on %s", p)
	return NewGPIO(out, bitRate, enc), nil
}

func NewGPIO(out Streamer, bitRate uint32, enc waveform.Encoder) *GPIO {
	return &GPIO{
		out:       out,
		freq:      physic.Frequency(3*bitRate) * physic.Hertz,
		threshold: (enc.One + enc.Zero + 1) / 2,
	}
}

func (g *GPIO) Drain(codes []byte) {
	if isIdle(codes) {
		if g.codes > 0 {
			g.flush()
		}
		return
	}
	for _, c := range codes {
		g.bits = appendCode(g.bits, g.codes, c >= g.threshold)
		g.codes++
	}
}

func (g *GPIO) flush() {
	s := &gpiostream.BitStream{
		Freq: g.freq,
		Bits: g.bits,
	}
	if err := g.out.StreamOut(s); err != nil {
		log.Warnf("Could not stream frame: %v", err)
	}
	g.bits = g.bits[:0]
	g.codes = 0
}

// appendCode adds the three wire bits of code number n, most significant bit first.
func appendCode(bits []byte, n int, one bool) []byte {
	pattern := [3]bool{true, one, false}
	for k, set := range pattern {
		pos := 3*n + k
		if pos/8 >= len(bits) {
			bits = append(bits, 0)
		}
		if set {
			bits[pos/8] |= 0x80 >> uint(pos%8)
		}
	}
	return bits
}

func isIdle(codes []byte) bool {
	for _, c := range codes {
		if c != 0 {
			return false
		}
	}
	return true
}
