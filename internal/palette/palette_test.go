package palette

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Generate(0))
	colors := Generate(6)
	require.Len(t, colors, 6)
	seen := map[[3]uint32]bool{}
	for _, c := range colors {
		r, g, b, a := c.RGBA()
		assert.Equal(t, uint32(0xffff), a)
		seen[[3]uint32{r, g, b}] = true
	}
	assert.Len(t, seen, 6, "colours must be distinct")
}

func TestHex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#a0a0a0", Hex(Noise))
	assert.Equal(t, "#ff0000", Hex(color.RGBA{R: 255, A: 255}))
	// Hue 0 at 70% saturation, 50% lightness.
	assert.Equal(t, "#d82626", Hex(Generate(1)[0]))
}

func TestHSLGrey(t *testing.T) {
	t.Parallel()

	r, g, b := hslToRGB(0.3, 0, 0.5)
	assert.Equal(t, [3]uint8{127, 127, 127}, [3]uint8{r, g, b})
}
