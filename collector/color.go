package collector

// ARGBToRGB converts a packed alpha/red/green/blue color into a packed RGB
// value with red as the most significant byte. The alpha byte is discarded;
// the function is total over the 32-bit input domain.
func ARGBToRGB(argb uint32) uint32 {
	r := (argb >> 16) & 0xFF
	g := (argb >> 8) & 0xFF
	b := argb & 0xFF
	return r<<16 | g<<8 | b
}
