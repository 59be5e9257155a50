package pixel

import (
	"fmt"
)

// DefaultMaxBrightness is the brightness ceiling of a pixel, in percent.
const DefaultMaxBrightness = 100

// Pixel is the stored state of a single LED. The color channels are nominal values, the color that ends up on the
// wire is scaled by Brightness.
type Pixel struct {
	R, G, B    uint8
	Brightness uint8

	CanFade      bool
	FadeOutDelay uint32
	NextFadeTime uint64
}

// RGB returns the nominal color packed as 0xRRGGBB.
func (p Pixel) RGB() uint32 {
	return uint32(p.R)<<16 | uint32(p.G)<<8 | uint32(p.B)
}

func (p Pixel) String() string {
	return fmt.Sprintf("#%06x@%d%%", p.RGB(), p.Brightness)
}

// Unpack splits a 0xRRGGBB color into its channels.
func Unpack(color uint32) (r, g, b uint8) {
	return uint8(color >> 16), uint8(color >> 8), uint8(color)
}

func pack(r, g, b, brightness uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(brightness)
}

func unpack(v uint32) (r, g, b, brightness uint8) {
	return uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)
}
