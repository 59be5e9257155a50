// Package waveform translates LED colors into the pulse width codes of the WS2812 one-wire protocol.
//
// Every bit of a color is sent as one timer period whose high time is either long (logical 1) or short (logical
// 0). Channels go out red, green, blue, each most significant bit first, so one LED takes SlotSize periods. A
// code of zero keeps the line low for the whole period, which is what the LEDs need to latch.
//
// The protocol is documented in any neopixel datasheet, e.g.
// https://datasheet.lcsc.com/szlcsc/2009231607_TCWIN-TC1010RGB-3CSA-TX1812-1010A-1010_C784559.pdf
package waveform

import (
	"github.com/callebjorkell/pixelbus/internal/pixel"
)

const (
	// BitsPerChannel is the number of codes per color channel.
	BitsPerChannel = 8
	// SlotSize is the number of codes needed for one LED.
	SlotSize = 3 * BitsPerChannel

	// DefaultPeriod is the reference timer period; it yields the codes 60 and 20.
	DefaultPeriod = 80
)

// Source is what the encoder reads pixels from.
type Source interface {
	Len() int
	Get(i int) pixel.Pixel
}

// Encoder maps bits to pulse width codes.
type Encoder struct {
	One  byte
	Zero byte
}

// NewEncoder returns the encoder for a timer period: 3/4 of the period for a 1, 1/4 for a 0.
func NewEncoder(period uint8) Encoder {
	return Encoder{
		One:  byte(uint16(period) * 3 / 4),
		Zero: period / 4,
	}
}

// Effective returns the channels of p scaled by its brightness.
func Effective(p pixel.Pixel) (r, g, b uint8) {
	scale := func(c uint8) uint8 {
		return uint8(uint16(c) * uint16(p.Brightness) / 100)
	}
	return scale(p.R), scale(p.G), scale(p.B)
}

// Encode writes the codes for r, g and b into the first SlotSize bytes of dst. A dst shorter than that is left
// untouched.
func (e Encoder) Encode(dst []byte, r, g, b uint8) {
	if len(dst) < SlotSize {
		return
	}
	e.channel(dst[0:8], r)
	e.channel(dst[8:16], g)
	e.channel(dst[16:24], b)
}

func (e Encoder) channel(dst []byte, v uint8) {
	for i := 0; i < BitsPerChannel; i++ {
		if v&(0x80>>uint(i)) != 0 {
			dst[i] = e.One
		} else {
			dst[i] = e.Zero
		}
	}
}

// EncodeLED writes the effective color of LED i of src into dst. Out of range LEDs are ignored.
func (e Encoder) EncodeLED(dst []byte, src Source, i int) {
	if i < 0 || i >= src.Len() {
		return
	}
	r, g, b := Effective(src.Get(i))
	e.Encode(dst, r, g, b)
}

// Idle fills one slot of dst with the latch level.
func Idle(dst []byte) {
	if len(dst) < SlotSize {
		return
	}
	for i := 0; i < SlotSize; i++ {
		dst[i] = 0
	}
}

// Decode reads one slot of codes back into a color. Codes at or above the midpoint between Zero and One are read
// as 1. A slot made entirely of zero codes is reported as idle.
func (e Encoder) Decode(codes []byte) (r, g, b uint8, idle bool) {
	if len(codes) < SlotSize {
		return 0, 0, 0, false
	}
	threshold := (uint16(e.One) + uint16(e.Zero) + 1) / 2
	idle = true
	var v [3]uint8
	for i := 0; i < SlotSize; i++ {
		c := codes[i]
		if c != 0 {
			idle = false
		}
		v[i/BitsPerChannel] <<= 1
		if uint16(c) >= threshold {
			v[i/BitsPerChannel] |= 1
		}
	}
	return v[0], v[1], v[2], idle
}
