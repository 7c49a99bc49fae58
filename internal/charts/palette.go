package charts

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// colormap interpolates linearly between evenly spaced color stops.
type colormap []drawing.Color

func hexColors(codes ...string) colormap {
	cm := make(colormap, len(codes))
	for i, c := range codes {
		cm[i] = drawing.ColorFromHex(c)
	}
	return cm
}

var (
	viridis  = hexColors("440154", "482878", "3e4989", "31688e", "26828e", "1f9e89", "35b779", "6ece58", "b5de2b", "fde725")
	plasma   = hexColors("0d0887", "46039f", "7201a8", "9c179e", "bd3786", "d8576b", "ed7953", "fb9f3a", "fdca26", "f0f921")
	coolwarm = hexColors("3b4cc0", "688aef", "99baff", "c9d8ef", "edd1c2", "f7a889", "e26952", "b40426")
)

// at returns the color at position t in [0, 1]; t is clamped.
func (cm colormap) at(t float64) drawing.Color {
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(cm)-1)
	i := int(math.Floor(pos))
	if i >= len(cm)-1 {
		return cm[len(cm)-1]
	}
	frac := pos - float64(i)
	a, b := cm[i], cm[i+1]
	return drawing.Color{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: 255,
	}
}

// scaled maps v from [lo, hi] onto the colormap. A zero-width domain maps
// to the middle.
func (cm colormap) scaled(v, lo, hi float64) drawing.Color {
	if hi <= lo {
		return cm.at(0.5)
	}
	return cm.at((v - lo) / (hi - lo))
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// textColorOn picks black or white for legibility on bg.
func textColorOn(bg drawing.Color) drawing.Color {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma > 140 {
		return drawing.ColorBlack
	}
	return drawing.ColorWhite
}
