package animation

// wheel returns a fully saturated color for a hue in degrees.
func wheel(hue int) uint32 {
	hue %= 360
	if hue < 0 {
		hue += 360
	}
	pos := uint32(hue%120) * 255 / 120
	switch hue / 120 {
	case 0:
		return (255-pos)<<16 | pos<<8
	case 1:
		return (255-pos)<<8 | pos
	default:
		return pos<<16 | (255 - pos)
	}
}
