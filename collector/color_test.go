package collector

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestARGBToRGB(t *testing.T) {
	cases := []struct {
		in, want uint32
	}{
		{0xFFAABBCC, 0x00AABBCC},
		{0x001E88E5, 0x001E88E5},
		{0x00000000, 0x00000000},
		{0xFFFFFFFF, 0x00FFFFFF},
		{0x80FF0000, 0x00FF0000},
	}
	for _, c := range cases {
		if got := ARGBToRGB(c.in); got != c.want {
			t.Errorf("ARGBToRGB(%#08x) = %#08x, want %#08x", c.in, got, c.want)
		}
	}
}

func TestARGBToRGBDropsOnlyAlpha(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output is the low 24 bits of the input", prop.ForAll(
		func(in uint32) bool {
			out := ARGBToRGB(in)
			return out == in&0xFFFFFF
		},
		gen.UInt32(),
	))
	properties.Property("alpha byte never affects the output", prop.ForAll(
		func(in uint32, alpha uint8) bool {
			withAlpha := in&0xFFFFFF | uint32(alpha)<<24
			return ARGBToRGB(withAlpha) == ARGBToRGB(in)
		},
		gen.UInt32(), gen.UInt8(),
	))

	properties.TestingRun(t)
}
